package services

import (
	"context"
	"log/slog"
	"math"
	"time"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
	"delivery-ops-service/internal/ports"
)

// TravelTimeService produces pairwise travel-time matrices. It serves fully
// cached matrices without calling the provider and returns an empty matrix
// when the provider fails or times out.
type TravelTimeService struct {
	provider ports.TravelMatrixProvider
	cache    ports.TravelCache
	timeout  time.Duration
	log      *slog.Logger
}

func NewTravelTimeService(provider ports.TravelMatrixProvider, cache ports.TravelCache, timeout time.Duration, log *slog.Logger) *TravelTimeService {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &TravelTimeService{
		provider: provider,
		cache:    cache,
		timeout:  timeout,
		log:      log,
	}
}

// PairwiseTravelTimes returns M where M.Durations[i][j] is seconds from
// points[i] to points[j]. An empty matrix means "optimization unavailable".
func (s *TravelTimeService) PairwiseTravelTimes(ctx context.Context, points []domain.Coordinates) domain.TravelMatrix {
	var err error
	defer obs.Time(ctx, s.log, "travel.PairwiseTravelTimes")(&err)

	n := len(points)
	if n == 0 {
		return domain.TravelMatrix{}
	}
	if n == 1 {
		return domain.TravelMatrix{Durations: [][]float64{{0}}, Distances: [][]float64{{0}}}
	}

	if m, ok := s.fromCache(ctx, points); ok {
		return m
	}

	if s.provider == nil {
		return domain.TravelMatrix{}
	}

	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	m, err := s.provider.TravelMatrix(pctx, points)
	if err != nil {
		s.log.Warn("travel matrix unavailable", "points", n, "error", err)
		return domain.TravelMatrix{}
	}
	if !m.Complete(n) {
		s.log.Warn("travel matrix incomplete", "points", n, "rows", m.Len())
		return domain.TravelMatrix{}
	}

	m = sanitize(m)
	s.toCache(ctx, points, m)

	return m
}

// sanitize turns NaN and negative travel times into +Inf and pins the diagonal
// to zero, so the sequencer only ever sees valid costs.
func sanitize(m domain.TravelMatrix) domain.TravelMatrix {
	for i, row := range m.Durations {
		for j, d := range row {
			switch {
			case i == j:
				row[j] = 0
			case math.IsNaN(d) || d < 0:
				row[j] = domain.Unreachable()
			}
		}
	}
	return m
}

func (s *TravelTimeService) fromCache(ctx context.Context, points []domain.Coordinates) (domain.TravelMatrix, bool) {
	if s.cache == nil {
		return domain.TravelMatrix{}, false
	}

	n := len(points)
	keys := make([]string, n)
	for i, p := range points {
		keys[i] = p.String()
	}

	m := newMatrix(n)
	for i := range points {
		hits, err := s.cache.GetMany(ctx, keys[i], keys)
		if err != nil {
			s.log.Warn("travel cache read failed", "origin", keys[i], "error", err)
			return domain.TravelMatrix{}, false
		}

		for j := range points {
			if i == j {
				continue
			}
			r, ok := hits[keys[j]]
			if !ok {
				return domain.TravelMatrix{}, false
			}
			m.Durations[i][j] = r.DurationSeconds
			if r.DistanceMeters >= 0 {
				m.Distances[i][j] = r.DistanceMeters
			} else {
				m.Distances[i][j] = math.NaN()
			}
		}
	}

	return m, true
}

func (s *TravelTimeService) toCache(ctx context.Context, points []domain.Coordinates, m domain.TravelMatrix) {
	if s.cache == nil {
		return
	}

	for i, origin := range points {
		results := make(map[string]ports.TravelResult, len(points)-1)
		for j, dest := range points {
			if i == j || math.IsInf(m.Durations[i][j], 1) {
				continue
			}

			meters := -1.0
			if d, ok := m.Distance(i, j); ok {
				meters = d
			}
			results[dest.String()] = ports.TravelResult{
				DurationSeconds: m.Durations[i][j],
				DistanceMeters:  meters,
			}
		}

		if err := s.cache.PutMany(ctx, origin.String(), results); err != nil {
			s.log.Warn("travel cache write failed", "origin", origin.String(), "error", err)
			return
		}
	}
}

func newMatrix(n int) domain.TravelMatrix {
	m := domain.TravelMatrix{
		Durations: make([][]float64, n),
		Distances: make([][]float64, n),
	}
	for i := range n {
		m.Durations[i] = make([]float64, n)
		m.Distances[i] = make([]float64, n)
	}
	return m
}
