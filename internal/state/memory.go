package state

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Records live only as long as the value.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	nextID  int64
	buckets map[string]*Bucket
	dirs    map[string]*Directory
}

// NewMemoryStore returns an empty store stamping new records with time.Now.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock returns an empty store stamping new records with now.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		now:     now,
		buckets: make(map[string]*Bucket),
		dirs:    make(map[string]*Directory),
	}
}

func (m *MemoryStore) InsertBucket(_ context.Context, name string) (Bucket, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buckets[name]; ok {
		return Bucket{}, false, nil
	}
	m.nextID++
	now := m.now().UTC()
	b := &Bucket{ID: m.nextID, Name: name, LastCleanedAt: now, CreatedAt: now, UpdatedAt: now}
	m.buckets[name] = b
	return *b, true, nil
}

func (m *MemoryStore) GetBucket(_ context.Context, name string) (Bucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[name]
	if !ok {
		return Bucket{}, ErrBucketNotFound
	}
	return *b, nil
}

func (m *MemoryStore) ListBuckets(_ context.Context) ([]Bucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Bucket, 0, len(m.buckets))
	for _, b := range m.buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) TouchBucket(_ context.Context, name string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[name]
	if !ok {
		return ErrBucketNotFound
	}
	b.LastCleanedAt = at.UTC()
	b.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryStore) InsertDirectory(_ context.Context, path, bucketName string) (Directory, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucketName]
	if !ok {
		return Directory{}, false, ErrBucketNotFound
	}
	if _, ok := m.dirs[path]; ok {
		return Directory{}, false, nil
	}
	m.nextID++
	now := m.now().UTC()
	d := &Directory{
		ID:            m.nextID,
		Path:          path,
		BucketID:      b.ID,
		BucketName:    b.Name,
		LastCleanedAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.dirs[path] = d
	return *d, true, nil
}

func (m *MemoryStore) GetDirectory(_ context.Context, path string) (Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.dirs[path]
	if !ok {
		return Directory{}, ErrDirectoryNotFound
	}
	return *d, nil
}

func (m *MemoryStore) TouchDirectory(_ context.Context, path string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.dirs[path]
	if !ok {
		return ErrDirectoryNotFound
	}
	d.LastCleanedAt = at.UTC()
	d.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryStore) ListDirectories(_ context.Context, bucketName string) ([]Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucketName]
	if !ok {
		return nil, ErrBucketNotFound
	}
	var out []Directory
	for _, d := range m.dirs {
		if d.BucketID == b.ID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastCleanedAt.Equal(out[j].LastCleanedAt) {
			return out[i].LastCleanedAt.Before(out[j].LastCleanedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
