package maps

import (
	"context"

	"delivery-ops-service/internal/domain"
)

// offlineSpeedMetersPerSecond is an urban delivery average of 25 km/h.
const offlineSpeedMetersPerSecond = 25_000.0 / 3600

// OfflineMatrix estimates travel from great-circle distance at a fixed speed.
// It needs no network and backs development and demo deployments.
type OfflineMatrix struct {
	speed float64
}

func NewOfflineMatrix() *OfflineMatrix {
	return &OfflineMatrix{speed: offlineSpeedMetersPerSecond}
}

func (o *OfflineMatrix) TravelMatrix(ctx context.Context, points []domain.Coordinates) (domain.TravelMatrix, error) {
	n := len(points)
	m := domain.TravelMatrix{
		Durations: make([][]float64, n),
		Distances: make([][]float64, n),
	}

	for i := range n {
		m.Durations[i] = make([]float64, n)
		m.Distances[i] = make([]float64, n)
		for j := range n {
			if i == j {
				continue
			}
			d := domain.HaversineMeters(points[i], points[j])
			m.Distances[i][j] = d
			m.Durations[i][j] = d / o.speed
		}
	}

	return m, nil
}
