// Package eviction deletes the oldest objects of over-quota buckets.
package eviction

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/abduss/msc/internal/logger"
	"github.com/abduss/msc/internal/metrics"
	"github.com/abduss/msc/internal/objectstore"
	"github.com/abduss/msc/internal/state"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Outcome names how an enforcement run ended.
type Outcome string

const (
	// OutcomeCompleted means the deletion budget was reached.
	OutcomeCompleted Outcome = "completed"
	// OutcomeIncomplete means every directory was drained before the budget was reached.
	OutcomeIncomplete Outcome = "incomplete"
	// OutcomeStaleStatistics means the bucket was cleaned after the last usage snapshot.
	OutcomeStaleStatistics Outcome = "stale_statistics"
	// OutcomeNoDirectories means the bucket has no indexed directories.
	OutcomeNoDirectories Outcome = "no_directories"
	// OutcomeEmptyBudget means the budget rounded down to zero objects.
	OutcomeEmptyBudget Outcome = "empty_budget"
	// OutcomeFailed means the run was aborted by an error.
	OutcomeFailed Outcome = "failed"
)

type objectStore interface {
	ObjectCount(ctx context.Context, bucket string) (uint64, error)
	LastStatsUpdate(ctx context.Context) (time.Time, error)
	WalkObjects(ctx context.Context, bucket, prefix string, recursive bool, fn func(objectstore.Object) bool) error
	RemoveObject(ctx context.Context, bucket, name string) error
}

type thresholdChecker interface {
	QuotaBearingBuckets(ctx context.Context) ([]string, error)
	IsOverThreshold(ctx context.Context, bucket string) bool
}

// Config tunes the eviction engine.
type Config struct {
	// DeletePercent is the share of the bucket's objects removed per run.
	DeletePercent int
}

// Result describes a single enforcement run.
type Result struct {
	Bucket    string  `json:"bucket"`
	Outcome   Outcome `json:"outcome"`
	Budget    uint64  `json:"budget"`
	Deleted   uint64  `json:"deleted"`
	Directory string  `json:"directory,omitempty"`
}

// Service enforces quotas by deleting the oldest objects first.
type Service struct {
	store   state.Store
	objects objectStore
	monitor thresholdChecker
	cfg     Config
	log     *zap.Logger
	nowFunc func() time.Time
}

// NewService wires the eviction engine.
func NewService(store state.Store, objects objectStore, monitor thresholdChecker, cfg Config, log *zap.Logger) *Service {
	return &Service{
		store:   store,
		objects: objects,
		monitor: monitor,
		cfg:     cfg,
		log:     logger.OrNop(log).Named("eviction"),
		nowFunc: time.Now,
	}
}

// Budget returns floor(total * percent / 100).
func Budget(total uint64, percent int) uint64 {
	if percent <= 0 {
		return 0
	}
	return total * uint64(percent) / 100
}

// EnforceQuota runs one cleanup cycle on the bucket. Directories are visited
// least recently cleaned first and their objects oldest first, deleting until
// the budget is spent. Only a run that spends its whole budget advances the
// bucket's timestamp and that of the directory it stopped in.
func (s *Service) EnforceQuota(ctx context.Context, bucket string) (Result, error) {
	res, err := s.enforce(ctx, bucket)
	if err != nil {
		res.Outcome = OutcomeFailed
	}
	metrics.EvictionOutcomes.WithLabelValues(bucket, string(res.Outcome)).Inc()
	return res, err
}

func (s *Service) enforce(ctx context.Context, bucket string) (Result, error) {
	res := Result{Bucket: bucket}
	log := s.log.With(zap.String("bucket", bucket))

	record, err := s.store.GetBucket(ctx, bucket)
	if err != nil {
		if errors.Is(err, state.ErrBucketNotFound) {
			log.Error("bucket not found in state store")
			return res, fmt.Errorf("%w: %s", ErrBucketNotIndexed, bucket)
		}
		return res, fmt.Errorf("get bucket %s: %w", bucket, err)
	}

	statsAt, err := s.objects.LastStatsUpdate(ctx)
	if err != nil {
		if errors.Is(err, objectstore.ErrUsageUnavailable) {
			log.Info("usage statistics unavailable, skipping cleanup")
			res.Outcome = OutcomeStaleStatistics
			return res, nil
		}
		return res, fmt.Errorf("last stats update: %w", err)
	}
	lastCleaned := record.LastCleanedAt.UTC()
	if lastCleaned.After(statsAt.UTC()) {
		log.Info("bucket already cleaned since last stats update",
			zap.Time("last_cleaned", lastCleaned),
			zap.Time("stats_updated", statsAt.UTC()),
		)
		res.Outcome = OutcomeStaleStatistics
		return res, nil
	}

	dirs, err := s.store.ListDirectories(ctx, bucket)
	if err != nil {
		return res, fmt.Errorf("list directories %s: %w", bucket, err)
	}
	if len(dirs) == 0 {
		log.Info("no directories indexed")
		res.Outcome = OutcomeNoDirectories
		return res, nil
	}

	total, err := s.objects.ObjectCount(ctx, bucket)
	if err != nil {
		return res, fmt.Errorf("object count %s: %w", bucket, err)
	}
	res.Budget = Budget(total, s.cfg.DeletePercent)
	if res.Budget == 0 {
		log.Info("deletion budget is empty", zap.Uint64("objects", total))
		res.Outcome = OutcomeEmptyBudget
		return res, nil
	}

	for _, dir := range dirs {
		objs, err := s.oldestFirst(ctx, bucket, dir.Path)
		if err != nil {
			return res, err
		}
		for _, obj := range objs {
			if obj.Name == "" {
				log.Error("object without name", zap.String("directory", dir.Path))
				return res, fmt.Errorf("%w in %s/%s", ErrUnnamedObject, bucket, dir.Path)
			}
			if err := s.objects.RemoveObject(ctx, bucket, obj.Name); err != nil {
				return res, err
			}
			res.Deleted++
			metrics.ObjectsDeleted.WithLabelValues(bucket).Inc()

			if res.Deleted == res.Budget {
				res.Directory = dir.Path
				if err := s.markCleaned(ctx, bucket, dir.Path); err != nil {
					return res, err
				}
				log.Info("cleanup completed",
					zap.Uint64("deleted", res.Deleted),
					zap.String("directory", dir.Path),
				)
				res.Outcome = OutcomeCompleted
				return res, nil
			}
		}
	}

	log.Info("cleanup incomplete, directories exhausted before budget",
		zap.Uint64("deleted", res.Deleted),
		zap.Uint64("budget", res.Budget),
	)
	res.Outcome = OutcomeIncomplete
	return res, nil
}

// oldestFirst lists every object under the directory sorted by modification time.
func (s *Service) oldestFirst(ctx context.Context, bucket, prefix string) ([]objectstore.Object, error) {
	var objs []objectstore.Object
	err := s.objects.WalkObjects(ctx, bucket, prefix, true, func(o objectstore.Object) bool {
		objs = append(objs, o)
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(objs, func(i, j int) bool {
		return objs[i].LastModified.Before(objs[j].LastModified)
	})
	return objs, nil
}

func (s *Service) markCleaned(ctx context.Context, bucket, dir string) error {
	now := s.nowFunc().UTC()
	if err := s.store.TouchBucket(ctx, bucket, now); err != nil {
		return fmt.Errorf("touch bucket %s: %w", bucket, err)
	}
	if err := s.store.TouchDirectory(ctx, dir, now); err != nil {
		return fmt.Errorf("touch directory %s: %w", dir, err)
	}
	metrics.BucketLastCleaned.WithLabelValues(bucket).Set(float64(now.Unix()))
	return nil
}

// EnforceAll cleans every quota-bearing bucket whose headroom is below the
// threshold. Failures are collected per bucket and do not stop the others.
func (s *Service) EnforceAll(ctx context.Context) error {
	names, err := s.monitor.QuotaBearingBuckets(ctx)
	if err != nil {
		return fmt.Errorf("list quota-bearing buckets: %w", err)
	}

	var errs error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		if !s.monitor.IsOverThreshold(ctx, name) {
			continue
		}
		s.log.Info("starting bucket cleanup", zap.String("bucket", name))
		res, err := s.EnforceQuota(ctx, name)
		if err != nil {
			s.log.Error("bucket cleanup failed",
				zap.String("bucket", name),
				zap.Uint64("deleted", res.Deleted),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
			continue
		}
		s.log.Debug("bucket cleanup finished",
			zap.String("bucket", name),
			zap.String("outcome", string(res.Outcome)),
			zap.Uint64("deleted", res.Deleted),
		)
	}
	return errs
}
