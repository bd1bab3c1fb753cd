package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-ops-service/internal/platform/obs"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MAPS_PROVIDER", "")
	t.Setenv("MATRIX_TIMEOUT", "")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load(obs.Discard())
	require.NoError(t, err)

	assert.Equal(t, ProviderOffline, cfg.MapsProvider)
	assert.Equal(t, 20*time.Second, cfg.MatrixTimeout)
	assert.Equal(t, 5*time.Second, cfg.GeocodeTimeout)
	assert.Equal(t, 50.0755, cfg.DefaultStart.Lat)
	assert.Equal(t, "UTC", cfg.Location.String())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "badDuration", key: "GEOCODE_TIMEOUT", val: "soon"},
		{name: "unknownProvider", key: "MAPS_PROVIDER", val: "bing"},
		{name: "orsWithoutKey", key: "MAPS_PROVIDER", val: "ors"},
		{name: "badTimezone", key: "TIMEZONE", val: "Mars/Olympus"},
		{name: "badLatitude", key: "DEFAULT_START_LAT", val: "north"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ORS_API_KEY", "")
			t.Setenv(tt.key, tt.val)

			_, err := Load(obs.Discard())
			assert.Error(t, err)
		})
	}
}
