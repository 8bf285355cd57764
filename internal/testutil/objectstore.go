// Package testutil provides an in-memory MinIO namespace for package tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abduss/msc/internal/objectstore"
)

// FakeObjectStore emulates the subset of MinIO the cleaner talks to. Listing
// follows S3 delimiter semantics: entries come back sorted by key, and a
// non-recursive listing folds deeper keys into "prefix/" entries.
type FakeObjectStore struct {
	mu sync.Mutex

	objects map[string]map[string]time.Time
	quotas  map[string]uint64
	used    map[string]uint64
	counts  map[string]uint64

	// StatsUpdated is reported by LastStatsUpdate; zero means unavailable.
	StatsUpdated time.Time

	// ListErrors fails WalkObjects for "bucket|prefix" keys.
	ListErrors map[string]error
	// RemoveErrors fails RemoveObject for every object in the bucket.
	RemoveErrors map[string]error
	// QuotaErrors fails BucketQuota for the bucket.
	QuotaErrors map[string]error
	// BucketsError fails ListBuckets.
	BucketsError error

	Removed []string
	Walks   []string
}

// NewFakeObjectStore returns an empty namespace.
func NewFakeObjectStore() *FakeObjectStore {
	return &FakeObjectStore{
		objects:      make(map[string]map[string]time.Time),
		quotas:       make(map[string]uint64),
		used:         make(map[string]uint64),
		counts:       make(map[string]uint64),
		ListErrors:   make(map[string]error),
		RemoveErrors: make(map[string]error),
		QuotaErrors:  make(map[string]error),
	}
}

// AddBucket creates a bucket with the given quota (0 = none).
func (f *FakeObjectStore) AddBucket(name string, quota uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[name]; !ok {
		f.objects[name] = make(map[string]time.Time)
	}
	f.quotas[name] = quota
}

// Put stores an object key modified at the given time.
func (f *FakeObjectStore) Put(bucket, key string, modified time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[bucket]; !ok {
		f.objects[bucket] = make(map[string]time.Time)
	}
	f.objects[bucket][key] = modified
}

// SetUsage sets the usage snapshot figures for a bucket.
func (f *FakeObjectStore) SetUsage(bucket string, usedBytes, objectCount uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.used[bucket] = usedBytes
	f.counts[bucket] = objectCount
}

// Keys returns the remaining object keys of a bucket in sorted order.
func (f *FakeObjectStore) Keys(bucket string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects[bucket]))
	for k := range f.objects[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *FakeObjectStore) ListBuckets(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BucketsError != nil {
		return nil, f.BucketsError
	}
	names := make([]string, 0, len(f.objects))
	for name := range f.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *FakeObjectStore) BucketQuota(_ context.Context, bucket string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.QuotaErrors[bucket]; err != nil {
		return 0, err
	}
	q, ok := f.quotas[bucket]
	if !ok {
		return 0, fmt.Errorf("bucket %s does not exist", bucket)
	}
	return q, nil
}

func (f *FakeObjectStore) BucketUsedBytes(_ context.Context, bucket string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	used, ok := f.used[bucket]
	if !ok {
		return 0, objectstore.ErrUsageUnavailable
	}
	return used, nil
}

func (f *FakeObjectStore) ObjectCount(_ context.Context, bucket string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count, ok := f.counts[bucket]
	if !ok {
		return 0, objectstore.ErrUsageUnavailable
	}
	return count, nil
}

func (f *FakeObjectStore) LastStatsUpdate(_ context.Context) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StatsUpdated.IsZero() {
		return time.Time{}, objectstore.ErrUsageUnavailable
	}
	return f.StatsUpdated, nil
}

func (f *FakeObjectStore) WalkObjects(ctx context.Context, bucket, prefix string, recursive bool, fn func(objectstore.Object) bool) error {
	entries, err := f.list(bucket, prefix, recursive)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(e) {
			return nil
		}
	}
	return nil
}

func (f *FakeObjectStore) RemoveObject(_ context.Context, bucket, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.RemoveErrors[bucket]; err != nil {
		return err
	}
	if _, ok := f.objects[bucket][name]; !ok {
		return fmt.Errorf("object %s/%s does not exist", bucket, name)
	}
	delete(f.objects[bucket], name)
	f.Removed = append(f.Removed, bucket+"/"+name)
	return nil
}

func (f *FakeObjectStore) Ping(_ context.Context) error {
	return nil
}

func (f *FakeObjectStore) list(bucket, prefix string, recursive bool) ([]objectstore.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Walks = append(f.Walks, bucket+"|"+prefix)
	if err := f.ListErrors[bucket+"|"+prefix]; err != nil {
		return nil, err
	}
	objects, ok := f.objects[bucket]
	if !ok {
		return nil, fmt.Errorf("bucket %s does not exist", bucket)
	}

	seen := make(map[string]bool)
	var out []objectstore.Object
	for key, modified := range objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if !recursive {
			if i := strings.Index(rest, "/"); i >= 0 && i < len(rest)-1 {
				dir := prefix + rest[:i+1]
				if !seen[dir] {
					seen[dir] = true
					out = append(out, objectstore.Object{Name: dir, IsDir: true})
				}
				continue
			}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, objectstore.Object{
			Name:         key,
			IsDir:        objectstore.IsDirKey(key),
			LastModified: modified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
