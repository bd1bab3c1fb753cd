package maps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
	"delivery-ops-service/internal/ports"
)

type matrixRequest struct {
	Locations [][]float64 `json:"locations"`
	Metrics   []string    `json:"metrics"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// TravelMatrix fetches the full n x n matrix in one /v2/matrix call.
// Pairs ORS cannot route come back as null and are reported as +Inf.
func (c *ORSClient) TravelMatrix(ctx context.Context, points []domain.Coordinates) (_ domain.TravelMatrix, err error) {
	defer obs.Time(ctx, c.log, "ors.TravelMatrix")(&err)

	n := len(points)
	if n == 0 {
		return domain.TravelMatrix{}, nil
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", c.baseURL, c.profile)

	locations := make([][]float64, 0, n)
	for _, p := range points {
		locations = append(locations, p.CoordsToList())
	}

	payload, err := json.Marshal(matrixRequest{
		Locations: locations,
		Metrics:   []string{"distance", "duration"},
	})
	if err != nil {
		return domain.TravelMatrix{}, fmt.Errorf("marshal matrix request: %w", err)
	}

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return domain.TravelMatrix{}, fmt.Errorf("matrix request failed: %w: %w", ports.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return domain.TravelMatrix{}, fmt.Errorf("decode matrix response: %w", err)
	}

	if len(mr.Durations) != n {
		return domain.TravelMatrix{}, fmt.Errorf("expected %d duration rows, got %d", n, len(mr.Durations))
	}

	m := domain.TravelMatrix{
		Durations: make([][]float64, n),
		Distances: make([][]float64, n),
	}
	for i := range n {
		if len(mr.Durations[i]) != n {
			return domain.TravelMatrix{}, fmt.Errorf("duration row %d has %d entries, want %d", i, len(mr.Durations[i]), n)
		}

		m.Durations[i] = make([]float64, n)
		m.Distances[i] = make([]float64, n)
		for j := range n {
			m.Durations[i][j] = valueOrInf(mr.Durations[i][j])
			m.Distances[i][j] = domain.Unreachable()
			if i < len(mr.Distances) && j < len(mr.Distances[i]) {
				m.Distances[i][j] = valueOrInf(mr.Distances[i][j])
			}
		}
	}

	return m, nil
}

func valueOrInf(v *float64) float64 {
	if v == nil {
		return domain.Unreachable()
	}
	return *v
}
