package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
	"delivery-ops-service/internal/ports"
)

type mapGeocodeCache struct {
	mu sync.Mutex
	m  map[string]domain.Coordinates
}

func newMapGeocodeCache() *mapGeocodeCache {
	return &mapGeocodeCache{m: map[string]domain.Coordinates{}}
}

func (c *mapGeocodeCache) Get(ctx context.Context, address string) (domain.Coordinates, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[address]
	return v, ok, nil
}

func (c *mapGeocodeCache) Put(ctx context.Context, address string, v domain.Coordinates) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[address] = v
	return nil
}

func TestGeocodeCachesProviderResults(t *testing.T) {
	provider := &stubGeocoder{known: map[string]domain.Coordinates{
		"Narodni 2 110 00": {Lat: 50.08, Lng: 14.42},
	}}
	cache := newMapGeocodeCache()
	svc := NewGeocodingService(provider, cache, time.Second, obs.Discard())

	c, err := svc.Geocode(context.Background(), "  Narodni 2   110 00 ")
	require.NoError(t, err)
	assert.InDelta(t, 50.08, c.Lat, 1e-9)

	_, err = svc.Geocode(context.Background(), "Narodni 2 110 00")
	require.NoError(t, err)

	assert.Equal(t, int32(1), provider.calls.Load(), "second lookup served from cache")
}

func TestGeocodeLiteralCoordinates(t *testing.T) {
	provider := &stubGeocoder{}
	svc := NewGeocodingService(provider, nil, time.Second, obs.Discard())

	c, err := svc.Geocode(context.Background(), "50.0755, 14.4378")
	require.NoError(t, err)

	assert.Equal(t, domain.Coordinates{Lat: 50.0755, Lng: 14.4378}, c)
	assert.Zero(t, provider.calls.Load())
}

func TestGeocodeFailuresBecomeNotFound(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubGeocoder
		timeout  time.Duration
		address  string
	}{
		{name: "unknown address", provider: &stubGeocoder{}, timeout: time.Second, address: "Atlantis 1"},
		{name: "timeout", provider: &stubGeocoder{delay: time.Second}, timeout: 10 * time.Millisecond, address: "Slow street 1"},
		{name: "blank", provider: &stubGeocoder{}, timeout: time.Second, address: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewGeocodingService(tt.provider, nil, tt.timeout, obs.Discard())

			_, err := svc.Geocode(context.Background(), tt.address)
			assert.True(t, errors.Is(err, ports.ErrNotFound), "got %v", err)
		})
	}
}

func TestGeocodeAllKeepsOrder(t *testing.T) {
	provider := &stubGeocoder{known: map[string]domain.Coordinates{
		"a": {Lat: 1, Lng: 1},
		"c": {Lat: 3, Lng: 3},
	}}
	svc := NewGeocodingService(provider, nil, time.Second, obs.Discard())

	out := svc.GeocodeAll(context.Background(), []string{"a", "b", "c"})

	require.Len(t, out, 3)
	require.NotNil(t, out[0])
	assert.Equal(t, 1.0, out[0].Lat)
	assert.Nil(t, out[1])
	require.NotNil(t, out[2])
	assert.Equal(t, 3.0, out[2].Lat)
}

type mapTravelCache struct {
	mu sync.Mutex
	m  map[string]map[string]ports.TravelResult
}

func newMapTravelCache() *mapTravelCache {
	return &mapTravelCache{m: map[string]map[string]ports.TravelResult{}}
}

func (c *mapTravelCache) GetMany(ctx context.Context, origin string, destinations []string) (map[string]ports.TravelResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]ports.TravelResult{}
	for _, d := range destinations {
		if r, ok := c.m[origin][d]; ok {
			out[d] = r
		}
	}
	return out, nil
}

func (c *mapTravelCache) PutMany(ctx context.Context, origin string, results map[string]ports.TravelResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m[origin] == nil {
		c.m[origin] = map[string]ports.TravelResult{}
	}
	for k, v := range results {
		c.m[origin][k] = v
	}
	return nil
}

func TestPairwiseTravelTimesServesFromCache(t *testing.T) {
	provider := &stubMatrixProvider{m: domain.TravelMatrix{
		Durations: [][]float64{{0, 60}, {90, 0}},
		Distances: [][]float64{{0, 500}, {700, 0}},
	}}
	svc := NewTravelTimeService(provider, newMapTravelCache(), time.Second, obs.Discard())
	points := []domain.Coordinates{{Lat: 50, Lng: 14}, {Lat: 50.1, Lng: 14.1}}

	first := svc.PairwiseTravelTimes(context.Background(), points)
	second := svc.PairwiseTravelTimes(context.Background(), points)

	assert.Equal(t, int32(1), provider.calls.Load())
	assert.Equal(t, first.Durations, second.Durations)
	d, ok := second.Distance(1, 0)
	require.True(t, ok)
	assert.Equal(t, 700.0, d)
}

func TestPairwiseTravelTimesDegradesToEmpty(t *testing.T) {
	points := []domain.Coordinates{{Lat: 50, Lng: 14}, {Lat: 50.1, Lng: 14.1}}

	tests := []struct {
		name     string
		provider *stubMatrixProvider
	}{
		{name: "provider error", provider: &stubMatrixProvider{err: ports.ErrUnavailable}},
		{name: "incomplete matrix", provider: &stubMatrixProvider{m: domain.TravelMatrix{Durations: [][]float64{{0}}}}},
		{name: "timeout", provider: &stubMatrixProvider{delay: time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewTravelTimeService(tt.provider, nil, 20*time.Millisecond, obs.Discard())
			assert.True(t, svc.PairwiseTravelTimes(context.Background(), points).Empty())
		})
	}
}

func TestPairwiseTravelTimesSanitizesEntries(t *testing.T) {
	provider := &stubMatrixProvider{m: domain.TravelMatrix{
		Durations: [][]float64{{7, -1}, {60, 3}},
	}}
	svc := NewTravelTimeService(provider, nil, time.Second, obs.Discard())

	m := svc.PairwiseTravelTimes(context.Background(), []domain.Coordinates{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}})

	assert.Zero(t, m.Durations[0][0])
	assert.Zero(t, m.Durations[1][1])
	assert.True(t, m.Durations[0][1] > 1e300, "negative becomes unreachable")
}

// gatedGeocoder holds every lookup until release is closed and fails if its
// context was cancelled meanwhile.
type gatedGeocoder struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedGeocoder) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	if err := ctx.Err(); err != nil {
		return domain.Coordinates{}, err
	}
	return domain.Coordinates{Lat: 50.08, Lng: 14.42}, nil
}

func TestGeocodeSharedLookupSurvivesCallerCancel(t *testing.T) {
	provider := &gatedGeocoder{entered: make(chan struct{}), release: make(chan struct{})}
	cache := newMapGeocodeCache()
	svc := NewGeocodingService(provider, cache, 5*time.Second, obs.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Geocode(ctx, "Narodni 2")
		firstErr <- err
	}()
	<-provider.entered

	second := make(chan error, 1)
	go func() {
		_, err := svc.Geocode(context.Background(), "Narodni 2")
		second <- err
	}()

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(provider.release)
	require.NoError(t, <-second)

	assert.Eventually(t, func() bool {
		_, ok, _ := cache.Get(context.Background(), "Narodni 2")
		return ok
	}, time.Second, 5*time.Millisecond, "lookup finished and was cached")
}
