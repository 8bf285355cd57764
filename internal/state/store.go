package state

import (
	"context"
	"time"
)

// Store is the persistence port used by the indexer and the eviction engine.
//
// Insert methods are idempotent: registering a known name or path returns
// created=false and a nil error. ListDirectories orders by last-cleaned time
// ascending, ties broken by registration order.
type Store interface {
	InsertBucket(ctx context.Context, name string) (Bucket, bool, error)
	GetBucket(ctx context.Context, name string) (Bucket, error)
	ListBuckets(ctx context.Context) ([]Bucket, error)
	TouchBucket(ctx context.Context, name string, at time.Time) error

	InsertDirectory(ctx context.Context, path, bucketName string) (Directory, bool, error)
	GetDirectory(ctx context.Context, path string) (Directory, error)
	TouchDirectory(ctx context.Context, path string, at time.Time) error
	ListDirectories(ctx context.Context, bucketName string) ([]Directory, error)
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryStore)(nil)
)
