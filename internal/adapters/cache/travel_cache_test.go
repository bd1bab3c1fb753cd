package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-ops-service/internal/platform/db"
	"delivery-ops-service/internal/platform/obs"
	"delivery-ops-service/internal/ports"
)

func newTestTravelCache(t *testing.T) *SQLiteTravelCache {
	t.Helper()

	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c, err := NewSQLiteTravelCache(ctx, conn, obs.Discard())
	require.NoError(t, err)
	return c
}

func TestSQLiteTravelCache(t *testing.T) {
	c := newTestTravelCache(t)
	ctx := context.Background()

	err := c.PutMany(ctx, "50.000000,14.000000", map[string]ports.TravelResult{
		"50.100000,14.100000": {DurationSeconds: 300, DistanceMeters: 2400},
		"50.200000,14.200000": {DurationSeconds: 600, DistanceMeters: -1},
	})
	require.NoError(t, err)

	got, err := c.GetMany(ctx, "50.000000,14.000000", []string{
		"50.100000,14.100000",
		"50.200000,14.200000",
		"50.300000,14.300000",
		"50.100000,14.100000",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]ports.TravelResult{
		"50.100000,14.100000": {DurationSeconds: 300, DistanceMeters: 2400},
		"50.200000,14.200000": {DurationSeconds: 600, DistanceMeters: -1},
	}, got)
}

func TestSQLiteTravelCacheReplaces(t *testing.T) {
	c := newTestTravelCache(t)
	ctx := context.Background()

	require.NoError(t, c.PutMany(ctx, "a", map[string]ports.TravelResult{"b": {DurationSeconds: 1, DistanceMeters: 1}}))
	require.NoError(t, c.PutMany(ctx, "a", map[string]ports.TravelResult{"b": {DurationSeconds: 2, DistanceMeters: 3}}))

	got, err := c.GetMany(ctx, "a", []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, got["b"].DurationSeconds)
}

func TestSQLiteTravelCacheValidation(t *testing.T) {
	c := newTestTravelCache(t)
	ctx := context.Background()

	_, err := c.GetMany(ctx, "", []string{"x"})
	assert.Error(t, err)

	got, err := c.GetMany(ctx, "a", nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.Error(t, c.PutMany(ctx, "a", map[string]ports.TravelResult{" ": {}}))
}
