package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/abduss/msc/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreePercent(t *testing.T) {
	cases := []struct {
		used, quota uint64
		want        string
	}{
		{910, 1000, "9"},
		{850, 1000, "15"},
		{0, 1000, "100"},
		{1000, 1000, "0"},
		{1100, 1000, "-10"},
		{1, 3, "66.67"},
		{2, 3, "33.33"},
		{0, 0, "0"},
	}
	for _, tc := range cases {
		got := FreePercent(tc.used, tc.quota)
		assert.Truef(t, got.Equal(decimal.RequireFromString(tc.want)),
			"FreePercent(%d, %d) = %s, want %s", tc.used, tc.quota, got, tc.want)
	}
}

func TestIsOverThreshold(t *testing.T) {
	store := testutil.NewFakeObjectStore()
	store.AddBucket("tight", 1000)
	store.SetUsage("tight", 910, 10)
	store.AddBucket("roomy", 1000)
	store.SetUsage("roomy", 850, 10)
	store.AddBucket("edge", 1000)
	store.SetUsage("edge", 900, 10)

	m := NewMonitor(store, 10, nil)
	ctx := context.Background()

	assert.True(t, m.IsOverThreshold(ctx, "tight"))
	assert.False(t, m.IsOverThreshold(ctx, "roomy"))
	// exactly at the threshold is not below it
	assert.False(t, m.IsOverThreshold(ctx, "edge"))
}

func TestIsOverThresholdFailsClosed(t *testing.T) {
	store := testutil.NewFakeObjectStore()
	store.AddBucket("no-usage", 1000)
	store.AddBucket("unmanaged", 0)
	store.SetUsage("unmanaged", 5000, 10)
	store.AddBucket("broken", 1000)
	store.SetUsage("broken", 999, 10)
	store.QuotaErrors["broken"] = errors.New("admin api down")

	m := NewMonitor(store, 10, nil)
	ctx := context.Background()

	assert.False(t, m.IsOverThreshold(ctx, "no-usage"))
	assert.False(t, m.IsOverThreshold(ctx, "unmanaged"))
	assert.False(t, m.IsOverThreshold(ctx, "broken"))
	assert.False(t, m.IsOverThreshold(ctx, "missing"))
}

func TestQuotaBearingBuckets(t *testing.T) {
	store := testutil.NewFakeObjectStore()
	store.AddBucket("a", 1000)
	store.AddBucket("b", 0)
	store.AddBucket("c", 50)
	store.AddBucket("d", 10)
	store.QuotaErrors["d"] = errors.New("no quota config")

	m := NewMonitor(store, 10, nil)
	got, err := m.QuotaBearingBuckets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, got)
}

func TestQuotaBearingBucketsPropagatesListingFailure(t *testing.T) {
	store := testutil.NewFakeObjectStore()
	store.BucketsError = errors.New("connection refused")

	_, err := NewMonitor(store, 10, nil).QuotaBearingBuckets(context.Background())
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	store := testutil.NewFakeObjectStore()
	store.AddBucket("photos", 3)
	store.SetUsage("photos", 2, 2)
	store.AddBucket("free", 0)

	m := NewMonitor(store, 50, nil)
	st, err := m.Status(context.Background(), "photos")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), st.QuotaBytes)
	assert.Equal(t, uint64(2), st.UsedBytes)
	assert.Equal(t, "33.33", st.FreePercent.String())
	assert.True(t, st.OverThreshold)

	_, err = m.Status(context.Background(), "free")
	assert.ErrorIs(t, err, ErrUnmanaged)
}
