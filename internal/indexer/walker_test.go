package indexer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abduss/msc/internal/testutil"
	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTree(bucket string, keys ...string) *testutil.FakeObjectStore {
	store := testutil.NewFakeObjectStore()
	store.AddBucket(bucket, 1000)
	for i, k := range keys {
		store.Put(bucket, k, epoch.Add(time.Duration(i)*time.Minute))
	}
	return store
}

func TestWalkMarksOnlyLeafDirectories(t *testing.T) {
	store := newTree("b", "a/b/file.txt")

	got := Walk(context.Background(), store, "b", true, nil)

	assert.Equal(t, []Candidate{
		{Path: "a/", Bucket: "b", Finished: false},
		{Path: "a/b/", Bucket: "b", Finished: true},
	}, got)
}

func TestWalkIsPreorder(t *testing.T) {
	store := newTree("b", "a/1/x", "a/2/y", "b/z")

	got := Walk(context.Background(), store, "b", true, nil)

	paths := make([]string, 0, len(got))
	for _, c := range got {
		paths = append(paths, c.Path)
	}
	assert.Equal(t, []string{"a/", "a/1/", "a/2/", "b/"}, paths)
	assert.True(t, got[1].Finished)
	assert.True(t, got[2].Finished)
	assert.True(t, got[3].Finished)
	assert.False(t, got[0].Finished)
}

func TestWalkStopsLevelAtFirstObject(t *testing.T) {
	store := newTree("b", "x/1.txt", "x/z/2.txt")

	got := Walk(context.Background(), store, "b", true, nil)

	// x/z/ sorts after x/1.txt and is never reached.
	assert.Equal(t, []Candidate{{Path: "x/", Bucket: "b", Finished: true}}, got)
	assert.NotContains(t, store.Walks, "b|x/z/")
}

func TestWalkVisitsSubdirsListedBeforeObject(t *testing.T) {
	store := newTree("b", "x/a/2.txt", "x/b.txt")

	got := Walk(context.Background(), store, "b", true, nil)

	assert.Equal(t, []Candidate{
		{Path: "x/", Bucket: "b", Finished: true},
		{Path: "x/a/", Bucket: "b", Finished: true},
	}, got)
}

func TestWalkRootIsNeverCandidate(t *testing.T) {
	store := newTree("b", "top.txt")

	assert.Empty(t, Walk(context.Background(), store, "b", true, nil))
}

func TestWalkNonRecursiveListsRootOnly(t *testing.T) {
	store := newTree("b", "a/b/file.txt", "c/d.txt")

	got := Walk(context.Background(), store, "b", false, nil)

	assert.Equal(t, []Candidate{
		{Path: "a/", Bucket: "b"},
		{Path: "c/", Bucket: "b"},
	}, got)
	assert.Equal(t, []string{"b|"}, store.Walks)
}

func TestWalkToleratesListingErrors(t *testing.T) {
	store := newTree("b", "a/file.txt", "b/file.txt")
	store.ListErrors["b|a/"] = errors.New("malformed prefix")

	got := Walk(context.Background(), store, "b", true, nil)

	assert.Equal(t, []Candidate{
		{Path: "a/", Bucket: "b", Finished: false},
		{Path: "b/", Bucket: "b", Finished: true},
	}, got)
}

func TestWalkSkipsFolderMarkers(t *testing.T) {
	store := newTree("b", "a/", "a/file.txt")

	got := Walk(context.Background(), store, "b", true, nil)

	assert.Equal(t, []Candidate{{Path: "a/", Bucket: "b", Finished: true}}, got)
}

func TestWalkHonoursCancellation(t *testing.T) {
	store := newTree("b", "a/file.txt")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, Walk(ctx, store, "b", true, nil))
}
