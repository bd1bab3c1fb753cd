package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
	"delivery-ops-service/internal/ports"
)

const geocodeConcurrency = 5

// GeocodingService resolves addresses through an optional cache and a
// timeout-bounded provider. Provider failures degrade to ports.ErrNotFound;
// callers treat that as "coordinates unavailable", never as fatal.
type GeocodingService struct {
	provider ports.Geocoder
	cache    ports.GeocodeCache
	timeout  time.Duration
	log      *slog.Logger
	group    singleflight.Group
}

func NewGeocodingService(provider ports.Geocoder, cache ports.GeocodeCache, timeout time.Duration, log *slog.Logger) *GeocodingService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GeocodingService{
		provider: provider,
		cache:    cache,
		timeout:  timeout,
		log:      log,
	}
}

// normalize ensures consistent cache keys by collapsing whitespace.
func normalizeAddress(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Geocode returns the coordinates for address or ports.ErrNotFound.
func (g *GeocodingService) Geocode(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, g.log, "geocode")(&err)

	key := normalizeAddress(address)
	if key == "" {
		return domain.Coordinates{}, ports.ErrNotFound
	}

	// Literal "lat,lng" addresses need no provider.
	if c, perr := domain.ParseCoordinates(key); perr == nil {
		return c, nil
	}

	if g.cache != nil {
		c, ok, cerr := g.cache.Get(ctx, key)
		if cerr != nil {
			g.log.Warn("geocode cache read failed", "address", key, "error", cerr)
		} else if ok {
			return c, nil
		}
	}

	// The lookup is shared by every caller waiting on key, so it must outlive
	// any one of them. lookup applies its own timeout.
	ch := g.group.DoChan(key, func() (any, error) {
		return g.lookup(context.WithoutCancel(ctx), key)
	})

	select {
	case <-ctx.Done():
		return domain.Coordinates{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return domain.Coordinates{}, r.Err
		}
		return r.Val.(domain.Coordinates), nil
	}
}

func (g *GeocodingService) lookup(ctx context.Context, key string) (domain.Coordinates, error) {
	if g.provider == nil {
		return domain.Coordinates{}, ports.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	c, err := g.provider.Geocode(ctx, key)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			g.log.Warn("geocode provider failed", "address", key, "error", err)
		}
		return domain.Coordinates{}, ports.ErrNotFound
	}
	if !c.Valid() {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: provider returned invalid coordinates: %w", key, ports.ErrNotFound)
	}

	if g.cache != nil {
		if err := g.cache.Put(ctx, key, c); err != nil {
			g.log.Warn("geocode cache write failed", "address", key, "error", err)
		}
	}

	return c, nil
}

// GeocodeAll resolves addresses concurrently. The result preserves input
// order; a nil entry means the address could not be resolved. Individual
// failures never short-circuit the batch.
func (g *GeocodingService) GeocodeAll(ctx context.Context, addresses []string) []*domain.Coordinates {
	out := make([]*domain.Coordinates, len(addresses))

	var eg errgroup.Group
	eg.SetLimit(geocodeConcurrency)

	for i, a := range addresses {
		eg.Go(func() error {
			c, err := g.Geocode(ctx, a)
			if err == nil {
				out[i] = &c
			}
			return nil
		})
	}
	_ = eg.Wait()

	return out
}
