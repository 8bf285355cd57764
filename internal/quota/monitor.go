// Package quota decides which buckets are managed and when they need cleaning.
package quota

import (
	"context"
	"fmt"
	"strconv"

	"github.com/abduss/msc/internal/logger"
	"github.com/abduss/msc/internal/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type objectStore interface {
	ListBuckets(ctx context.Context) ([]string, error)
	BucketQuota(ctx context.Context, bucket string) (uint64, error)
	BucketUsedBytes(ctx context.Context, bucket string) (uint64, error)
}

// Status is a bucket's quota position as seen by the monitor.
type Status struct {
	Bucket        string          `json:"bucket"`
	QuotaBytes    uint64          `json:"quota_bytes"`
	UsedBytes     uint64          `json:"used_bytes"`
	FreePercent   decimal.Decimal `json:"free_percent"`
	OverThreshold bool            `json:"over_threshold"`
}

// Monitor reads quota and usage figures from the object store.
type Monitor struct {
	store     objectStore
	threshold decimal.Decimal
	log       *zap.Logger
}

// NewMonitor builds a monitor that flags buckets whose free headroom drops
// below thresholdPercent.
func NewMonitor(store objectStore, thresholdPercent int, log *zap.Logger) *Monitor {
	return &Monitor{
		store:     store,
		threshold: decimal.NewFromInt(int64(thresholdPercent)),
		log:       logger.OrNop(log).Named("quota"),
	}
}

// QuotaBearingBuckets lists buckets with a retrievable, non-zero quota.
// A quota of 0 marks the bucket as unmanaged.
func (m *Monitor) QuotaBearingBuckets(ctx context.Context) ([]string, error) {
	names, err := m.store.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}

	managed := make([]string, 0, len(names))
	for _, name := range names {
		q, err := m.store.BucketQuota(ctx, name)
		if err != nil {
			m.log.Debug("quota unavailable", zap.String("bucket", name), zap.Error(err))
			continue
		}
		if q == 0 {
			continue
		}
		managed = append(managed, name)
	}
	return managed, nil
}

// IsOverThreshold reports whether the bucket's free headroom is below the
// configured threshold. Missing quota or usage data yields false.
func (m *Monitor) IsOverThreshold(ctx context.Context, bucket string) bool {
	st, err := m.Status(ctx, bucket)
	if err != nil {
		m.log.Info("bucket not eligible for cleanup", zap.String("bucket", bucket), zap.Error(err))
		return false
	}
	return st.OverThreshold
}

// Status computes the bucket's current quota position.
func (m *Monitor) Status(ctx context.Context, bucket string) (Status, error) {
	q, err := m.store.BucketQuota(ctx, bucket)
	if err != nil {
		return Status{}, err
	}
	if q == 0 {
		return Status{}, fmt.Errorf("bucket %s: %w", bucket, ErrUnmanaged)
	}
	used, err := m.store.BucketUsedBytes(ctx, bucket)
	if err != nil {
		return Status{}, err
	}

	free := FreePercent(used, q)
	f, _ := free.Float64()
	metrics.BucketFreePercent.WithLabelValues(bucket).Set(f)

	return Status{
		Bucket:        bucket,
		QuotaBytes:    q,
		UsedBytes:     used,
		FreePercent:   free,
		OverThreshold: free.LessThan(m.threshold),
	}, nil
}

// FreePercent returns 100 - used/(quota/100) rounded to two decimals, with
// ties resolved on the exact binary value of the float64 result. quota must
// be non-zero; zero yields zero.
func FreePercent(used, quota uint64) decimal.Decimal {
	if quota == 0 {
		return decimal.Zero
	}
	v := 100 - float64(used)/(float64(quota)/100)
	return decimal.RequireFromString(strconv.FormatFloat(v, 'f', 2, 64))
}
