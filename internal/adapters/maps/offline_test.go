package maps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-ops-service/internal/domain"
)

func TestOfflineMatrix(t *testing.T) {
	points := []domain.Coordinates{
		{Lat: 50.0755, Lng: 14.4378},
		{Lat: 50.0875, Lng: 14.4213},
		{Lat: 50.0755, Lng: 14.4378},
	}

	m, err := NewOfflineMatrix().TravelMatrix(context.Background(), points)
	require.NoError(t, err)
	require.True(t, m.Complete(3))

	d, ok := m.Distance(0, 1)
	require.True(t, ok)
	assert.InDelta(t, 1780, d, 50)
	assert.InDelta(t, d/offlineSpeedMetersPerSecond, m.Durations[0][1], 1e-9)
	assert.Equal(t, m.Durations[0][1], m.Durations[1][0], "symmetric")
	assert.Zero(t, m.Durations[0][2], "same point")
	assert.Zero(t, m.Durations[1][1])
}
