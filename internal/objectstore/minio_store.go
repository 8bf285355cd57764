package objectstore

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
)

type s3API interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type adminAPI interface {
	GetBucketQuota(ctx context.Context, bucket string) (madmin.BucketQuota, error)
	DataUsageInfo(ctx context.Context) (madmin.DataUsageInfo, error)
}

// MinIOStore adapts the MinIO S3 and admin clients to the cleaner's needs.
type MinIOStore struct {
	s3    s3API
	admin adminAPI
}

// NewMinIOStore constructs an adapter.
func NewMinIOStore(client s3API, admin adminAPI) *MinIOStore {
	return &MinIOStore{s3: client, admin: admin}
}

// ListBuckets returns the names of all buckets.
func (s *MinIOStore) ListBuckets(ctx context.Context) ([]string, error) {
	infos, err := s.s3.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names, nil
}

// BucketQuota returns the configured hard quota in bytes; 0 means none is set.
func (s *MinIOStore) BucketQuota(ctx context.Context, bucket string) (uint64, error) {
	q, err := s.admin.GetBucketQuota(ctx, bucket)
	if err != nil {
		return 0, fmt.Errorf("get bucket quota %s: %w", bucket, err)
	}
	if q.Size != 0 {
		return q.Size, nil
	}
	return q.Quota, nil
}

// DataUsage returns the server's usage snapshot for the bucket.
func (s *MinIOStore) DataUsage(ctx context.Context, bucket string) (Usage, error) {
	info, err := s.admin.DataUsageInfo(ctx)
	if err != nil {
		return Usage{}, fmt.Errorf("data usage info: %w", err)
	}

	bucketUsage, inUsage := info.BucketsUsage[bucket]
	size, inSizes := info.BucketSizes[bucket]
	if !inUsage && !inSizes {
		return Usage{}, fmt.Errorf("bucket %s: %w", bucket, ErrUsageUnavailable)
	}
	if !inSizes {
		size = bucketUsage.Size
	}

	return Usage{
		UsedBytes:   size,
		ObjectCount: bucketUsage.ObjectsCount,
		LastUpdate:  info.LastUpdate,
	}, nil
}

// BucketUsedBytes returns the bucket's used size from the usage snapshot.
func (s *MinIOStore) BucketUsedBytes(ctx context.Context, bucket string) (uint64, error) {
	usage, err := s.DataUsage(ctx, bucket)
	if err != nil {
		return 0, err
	}
	return usage.UsedBytes, nil
}

// ObjectCount returns the bucket's object count from the usage snapshot.
func (s *MinIOStore) ObjectCount(ctx context.Context, bucket string) (uint64, error) {
	usage, err := s.DataUsage(ctx, bucket)
	if err != nil {
		return 0, err
	}
	return usage.ObjectCount, nil
}

// LastStatsUpdate returns when the server last refreshed its usage snapshot.
func (s *MinIOStore) LastStatsUpdate(ctx context.Context) (time.Time, error) {
	info, err := s.admin.DataUsageInfo(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("data usage info: %w", err)
	}
	if info.LastUpdate.IsZero() {
		return time.Time{}, ErrUsageUnavailable
	}
	return info.LastUpdate.UTC(), nil
}

// WalkObjects streams the entries under prefix to fn until fn returns false or
// the listing ends. Stopping early cancels the underlying listing.
func (s *MinIOStore) WalkObjects(ctx context.Context, bucket, prefix string, recursive bool, fn func(Object) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := s.s3.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	})
	for info := range objects {
		if info.Err != nil {
			return fmt.Errorf("list objects %s/%s: %w", bucket, prefix, info.Err)
		}
		if !fn(toObject(info)) {
			return nil
		}
	}
	return nil
}

// RemoveObject deletes a single object.
func (s *MinIOStore) RemoveObject(ctx context.Context, bucket, name string) error {
	if err := s.s3.RemoveObject(ctx, bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s/%s: %w", bucket, name, err)
	}
	return nil
}

// Ping verifies the S3 endpoint answers.
func (s *MinIOStore) Ping(ctx context.Context) error {
	_, err := s.s3.ListBuckets(ctx)
	return err
}

func toObject(info minio.ObjectInfo) Object {
	return Object{
		Name:         info.Key,
		IsDir:        IsDirKey(info.Key),
		LastModified: info.LastModified,
		Size:         info.Size,
	}
}
