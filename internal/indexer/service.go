package indexer

import (
	"context"
	"fmt"

	"github.com/abduss/msc/internal/logger"
	"github.com/abduss/msc/internal/metrics"
	"github.com/abduss/msc/internal/state"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type bucketSource interface {
	QuotaBearingBuckets(ctx context.Context) ([]string, error)
}

// Report summarises one bucket's reindex pass.
type Report struct {
	Bucket     string   `json:"bucket"`
	Candidates int      `json:"candidates"`
	Finished   int      `json:"finished"`
	Registered []string `json:"registered"`
}

// Service keeps the state store's directory index in step with the object store.
type Service struct {
	store   state.Store
	lister  Lister
	buckets bucketSource
	log     *zap.Logger
}

// NewService wires the indexer.
func NewService(store state.Store, lister Lister, buckets bucketSource, log *zap.Logger) *Service {
	return &Service{
		store:   store,
		lister:  lister,
		buckets: buckets,
		log:     logger.OrNop(log).Named("indexer"),
	}
}

// Reindex walks the bucket and registers every finished directory not yet
// known. The bucket must already be registered.
func (s *Service) Reindex(ctx context.Context, bucket string) (Report, error) {
	candidates := Walk(ctx, s.lister, bucket, true, s.log)
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	report := Report{Bucket: bucket, Candidates: len(candidates)}
	for _, c := range candidates {
		if !c.Finished || c.Path == "" {
			continue
		}
		report.Finished++

		dir, created, err := s.store.InsertDirectory(ctx, c.Path, bucket)
		if err != nil {
			return report, fmt.Errorf("register directory %s in %s: %w", c.Path, bucket, err)
		}
		if !created {
			continue
		}
		report.Registered = append(report.Registered, dir.Path)
		metrics.DirectoriesRegistered.WithLabelValues(bucket).Inc()
		s.log.Info("directory added",
			zap.String("bucket", bucket),
			zap.String("path", dir.Path),
		)
	}
	return report, nil
}

// CheckDirs registers every quota-bearing bucket and reindexes it. A failing
// bucket is logged and reported in the returned error without stopping the rest.
func (s *Service) CheckDirs(ctx context.Context) error {
	names, err := s.buckets.QuotaBearingBuckets(ctx)
	if err != nil {
		return fmt.Errorf("list quota-bearing buckets: %w", err)
	}

	var errs error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		if err := s.checkBucket(ctx, name); err != nil {
			s.log.Error("bucket reindex failed", zap.String("bucket", name), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (s *Service) checkBucket(ctx context.Context, name string) error {
	_, created, err := s.store.InsertBucket(ctx, name)
	if err != nil {
		return fmt.Errorf("register bucket %s: %w", name, err)
	}
	if created {
		metrics.BucketsRegistered.Inc()
		s.log.Info("bucket added", zap.String("bucket", name))
	}

	report, err := s.Reindex(ctx, name)
	if err != nil {
		return err
	}
	s.log.Debug("bucket reindexed",
		zap.String("bucket", name),
		zap.Int("candidates", report.Candidates),
		zap.Int("finished", report.Finished),
		zap.Int("registered", len(report.Registered)),
	)
	return nil
}
