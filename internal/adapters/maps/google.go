package maps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gmaps "googlemaps.github.io/maps"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
	"delivery-ops-service/internal/ports"
)

// Distance Matrix API request limits.
const (
	googleMaxSide     = 25
	googleMaxElements = 100
)

// GoogleClient implements ports.Geocoder and ports.TravelMatrixProvider on the
// Google Maps Geocoding and Distance Matrix APIs.
type GoogleClient struct {
	client *gmaps.Client
	region string
	log    *slog.Logger
}

func NewGoogleClient(apiKey, region string, log *slog.Logger, opts ...gmaps.ClientOption) (*GoogleClient, error) {
	if apiKey == "" {
		return nil, errors.New("google maps api key is empty")
	}

	c, err := gmaps.NewClient(append([]gmaps.ClientOption{gmaps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("google maps client: %w", err)
	}

	return &GoogleClient{client: c, region: region, log: log}, nil
}

func (g *GoogleClient) Geocode(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, g.log, "google.Geocode")(&err)

	results, err := g.client.Geocode(ctx, &gmaps.GeocodingRequest{
		Address: address,
		Region:  g.region,
	})
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("google geocode %q: %w: %w", address, ports.ErrUnavailable, err)
	}
	if len(results) == 0 {
		return domain.Coordinates{}, fmt.Errorf("google geocode %q: %w", address, ports.ErrNotFound)
	}

	loc := results[0].Geometry.Location
	return domain.Coordinates{Lat: loc.Lat, Lng: loc.Lng}, nil
}

// TravelMatrix assembles the full matrix from as many Distance Matrix calls as
// the per-request limits require.
func (g *GoogleClient) TravelMatrix(ctx context.Context, points []domain.Coordinates) (_ domain.TravelMatrix, err error) {
	defer obs.Time(ctx, g.log, "google.TravelMatrix")(&err)

	n := len(points)
	m := domain.TravelMatrix{
		Durations: make([][]float64, n),
		Distances: make([][]float64, n),
	}
	for i := range n {
		m.Durations[i] = make([]float64, n)
		m.Distances[i] = make([]float64, n)
	}

	labels := make([]string, n)
	for i, p := range points {
		labels[i] = p.String()
	}

	for _, b := range matrixBlocks(n) {
		resp, err := g.client.DistanceMatrix(ctx, &gmaps.DistanceMatrixRequest{
			Origins:      labels[b.originFrom:b.originTo],
			Destinations: labels[b.destFrom:b.destTo],
			Mode:         gmaps.TravelModeDriving,
		})
		if err != nil {
			return domain.TravelMatrix{}, fmt.Errorf("google distance matrix: %w: %w", ports.ErrUnavailable, err)
		}
		if len(resp.Rows) != b.originTo-b.originFrom {
			return domain.TravelMatrix{}, fmt.Errorf("google distance matrix: got %d rows, want %d", len(resp.Rows), b.originTo-b.originFrom)
		}

		for r, row := range resp.Rows {
			i := b.originFrom + r
			if len(row.Elements) != b.destTo-b.destFrom {
				return domain.TravelMatrix{}, fmt.Errorf("google distance matrix: row %d has %d elements", i, len(row.Elements))
			}
			for c, el := range row.Elements {
				j := b.destFrom + c
				if el == nil || el.Status != "OK" {
					m.Durations[i][j] = domain.Unreachable()
					m.Distances[i][j] = domain.Unreachable()
					continue
				}
				m.Durations[i][j] = el.Duration.Seconds()
				m.Distances[i][j] = float64(el.Distance.Meters)
			}
		}
	}

	return m, nil
}

type matrixBlock struct {
	originFrom, originTo int
	destFrom, destTo     int
}

// matrixBlocks tiles an n x n matrix into requests within the API limits.
func matrixBlocks(n int) []matrixBlock {
	var blocks []matrixBlock
	for df := 0; df < n; df += googleMaxSide {
		dt := min(df+googleMaxSide, n)
		rows := min(googleMaxSide, googleMaxElements/(dt-df))
		for of := 0; of < n; of += rows {
			blocks = append(blocks, matrixBlock{
				originFrom: of,
				originTo:   min(of+rows, n),
				destFrom:   df,
				destTo:     dt,
			})
		}
	}
	return blocks
}
