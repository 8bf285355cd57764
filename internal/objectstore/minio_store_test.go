package objectstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkObjectsStopsWhenCallbackDeclines(t *testing.T) {
	s3 := &fakeS3{objects: []minio.ObjectInfo{
		{Key: "a/"},
		{Key: "a.txt", Size: 3},
		{Key: "b.txt", Size: 4},
	}}
	store := NewMinIOStore(s3, &fakeAdmin{})

	var seen []Object
	err := store.WalkObjects(context.Background(), "bucket", "", false, func(o Object) bool {
		seen = append(seen, o)
		return o.IsDir
	})
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.True(t, seen[0].IsDir)
	assert.False(t, seen[1].IsDir)
	assert.Equal(t, minio.ListObjectsOptions{Prefix: "", Recursive: false}, s3.lastOpts)
}

func TestWalkObjectsReportsListingErrors(t *testing.T) {
	s3 := &fakeS3{objects: []minio.ObjectInfo{{Err: errors.New("boom")}}}
	store := NewMinIOStore(s3, &fakeAdmin{})

	err := store.WalkObjects(context.Background(), "bucket", "x/", true, func(Object) bool { return true })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket/x/")
}

func TestBucketQuotaPrefersSize(t *testing.T) {
	admin := &fakeAdmin{quotas: map[string]madmin.BucketQuota{
		"new": {Size: 2048},
		"old": {Quota: 1024},
	}}
	store := NewMinIOStore(&fakeS3{}, admin)

	q, err := store.BucketQuota(context.Background(), "new")
	require.NoError(t, err)
	assert.Equal(t, uint64(2048), q)

	q, err = store.BucketQuota(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), q)

	_, err = store.BucketQuota(context.Background(), "missing")
	assert.Error(t, err)
}

func TestDataUsage(t *testing.T) {
	last := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	admin := &fakeAdmin{usage: madmin.DataUsageInfo{
		LastUpdate:   last,
		BucketSizes:  map[string]uint64{"photos": 910},
		BucketsUsage: map[string]madmin.BucketUsageInfo{"photos": {Size: 900, ObjectsCount: 97}, "docs": {Size: 10, ObjectsCount: 1}},
	}}
	store := NewMinIOStore(&fakeS3{}, admin)
	ctx := context.Background()

	used, err := store.BucketUsedBytes(ctx, "photos")
	require.NoError(t, err)
	assert.Equal(t, uint64(910), used)

	used, err = store.BucketUsedBytes(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), used)

	count, err := store.ObjectCount(ctx, "photos")
	require.NoError(t, err)
	assert.Equal(t, uint64(97), count)

	_, err = store.BucketUsedBytes(ctx, "unknown")
	assert.True(t, errors.Is(err, ErrUsageUnavailable))

	got, err := store.LastStatsUpdate(ctx)
	require.NoError(t, err)
	assert.True(t, got.Equal(last))
}

func TestLastStatsUpdateUnavailable(t *testing.T) {
	store := NewMinIOStore(&fakeS3{}, &fakeAdmin{})
	_, err := store.LastStatsUpdate(context.Background())
	assert.True(t, errors.Is(err, ErrUsageUnavailable))
}

func TestListBucketsAndRemove(t *testing.T) {
	s3 := &fakeS3{buckets: []minio.BucketInfo{{Name: "a"}, {Name: "b"}}}
	store := NewMinIOStore(s3, &fakeAdmin{})

	names, err := store.ListBuckets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	require.NoError(t, store.RemoveObject(context.Background(), "a", "x/1.bin"))
	assert.Equal(t, []string{"a/x/1.bin"}, s3.removed)
}

// --- fakes ---

type fakeS3 struct {
	buckets  []minio.BucketInfo
	objects  []minio.ObjectInfo
	lastOpts minio.ListObjectsOptions
	removed  []string
}

func (f *fakeS3) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	return f.buckets, nil
}

func (f *fakeS3) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	f.lastOpts = opts
	ch := make(chan minio.ObjectInfo)
	go func() {
		defer close(ch)
		for _, obj := range f.objects {
			select {
			case ch <- obj:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (f *fakeS3) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	f.removed = append(f.removed, bucketName+"/"+objectName)
	return nil
}

type fakeAdmin struct {
	quotas map[string]madmin.BucketQuota
	usage  madmin.DataUsageInfo
}

func (f *fakeAdmin) GetBucketQuota(ctx context.Context, bucket string) (madmin.BucketQuota, error) {
	q, ok := f.quotas[bucket]
	if !ok {
		return madmin.BucketQuota{}, errors.New("quota configuration does not exist")
	}
	return q, nil
}

func (f *fakeAdmin) DataUsageInfo(ctx context.Context) (madmin.DataUsageInfo, error) {
	return f.usage, nil
}
