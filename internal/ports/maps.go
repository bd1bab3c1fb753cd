package ports

import (
	"context"
	"errors"

	"delivery-ops-service/internal/domain"
)

var (
	// ErrNotFound means the provider answered but had no match.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable means the provider failed or timed out.
	ErrUnavailable = errors.New("provider unavailable")
)

// Contract for resolving free-text addresses to coordinates.
type Geocoder interface {
	// Return the best-match coordinate, or ErrNotFound when nothing matched.
	Geocode(ctx context.Context, address string) (domain.Coordinates, error)
}

// Contract for retrieving a full pairwise travel-time matrix.
type TravelMatrixProvider interface {
	// Return travel times between every ordered pair of points.
	// Unreachable pairs must be +Inf, never zero or omitted.
	TravelMatrix(ctx context.Context, points []domain.Coordinates) (domain.TravelMatrix, error)
}

// Cache of address -> coordinate lookups.
type GeocodeCache interface {
	// Get reports false without error on a miss.
	Get(ctx context.Context, address string) (domain.Coordinates, bool, error)
	Put(ctx context.Context, address string, c domain.Coordinates) error
}

// Travel time and, when known, distance between two points.
// DistanceMeters is negative when the provider did not report one.
type TravelResult struct {
	DurationSeconds float64
	DistanceMeters  float64
}

// Cache of origin -> destination travel results keyed by point strings.
type TravelCache interface {
	// GetMany returns the cached subset; misses are simply absent.
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]TravelResult, error)
	PutMany(ctx context.Context, origin string, results map[string]TravelResult) error
}
