package services

import (
	"context"
	"log/slog"
	"math"
	"time"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
)

const (
	dayStartHour      = 8
	unloadingTime     = 5 * time.Minute
	fallbackStartHour = 9
	fallbackSpacing   = 15 * time.Minute
	fallbackStopKm    = 5.0
	// totalDistanceKm is derived from travel time, not measured.
	approxMetersPerSecond = 0.5
)

type batchGeocoder interface {
	GeocodeAll(ctx context.Context, addresses []string) []*domain.Coordinates
}

type travelTimer interface {
	PairwiseTravelTimes(ctx context.Context, points []domain.Coordinates) domain.TravelMatrix
}

// RouteOptimizer sequences delivery stops with the nearest-neighbor heuristic
// and derives per-stop ETAs and route totals.
type RouteOptimizer struct {
	geocoder batchGeocoder
	travel   travelTimer
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger
}

func NewRouteOptimizer(geocoder batchGeocoder, travel travelTimer, loc *time.Location, log *slog.Logger) *RouteOptimizer {
	if loc == nil {
		loc = time.Local
	}
	return &RouteOptimizer{
		geocoder: geocoder,
		travel:   travel,
		loc:      loc,
		now:      time.Now,
		log:      log,
	}
}

// OptimizeRoute orders stops starting from start. Stops whose coordinates
// cannot be resolved are dropped and counted, never failed. When no travel
// matrix is available the stops keep their input order with fixed spacing and
// the result reports IsOptimized=false.
func (o *RouteOptimizer) OptimizeRoute(
	ctx context.Context,
	stops []domain.DeliveryStop,
	start domain.Coordinates,
) (_ *domain.RouteOptimizationResult, err error) {
	defer obs.Time(ctx, o.log, "route.OptimizeRoute")(&err)

	if !start.Valid() {
		return nil, domain.Validationf("start coordinates out of range: %v", start)
	}

	resolved, dropped := o.resolve(ctx, stops)

	res := &domain.RouteOptimizationResult{
		OrderedStops:     []domain.RouteStop{},
		DroppedStopCount: len(dropped),
		DroppedOrderIDs:  dropped,
		IsOptimized:      true,
		DistanceSource:   domain.DistanceFromApproximation,
	}

	if len(resolved) == 0 {
		return res, nil
	}

	points := make([]domain.Coordinates, 0, 1+len(resolved))
	points = append(points, start)
	for _, s := range resolved {
		points = append(points, *s.Coordinates)
	}

	m := o.travel.PairwiseTravelTimes(ctx, points)
	if m.Empty() || !m.Complete(len(points)) {
		o.log.Warn("route optimization unavailable, keeping input order", "stops", len(resolved))
		o.fallback(res, resolved)
		return res, nil
	}

	route := NearestNeighborOrder(m.Durations, 0)
	o.sequence(res, resolved, route, m)

	return res, nil
}

// resolve fills missing coordinates and splits stops into routable and dropped.
func (o *RouteOptimizer) resolve(ctx context.Context, stops []domain.DeliveryStop) ([]domain.DeliveryStop, []string) {
	var missing []string
	var missingIdx []int
	for i, s := range stops {
		if s.Coordinates == nil || !s.Coordinates.Valid() {
			missing = append(missing, s.Address)
			missingIdx = append(missingIdx, i)
		}
	}

	found := make(map[int]*domain.Coordinates, len(missing))
	if len(missing) > 0 && o.geocoder != nil {
		coords := o.geocoder.GeocodeAll(ctx, missing)
		for k, idx := range missingIdx {
			if coords[k] != nil {
				found[idx] = coords[k]
			}
		}
	}

	resolved := make([]domain.DeliveryStop, 0, len(stops))
	dropped := []string{}
	for i, s := range stops {
		if s.Coordinates == nil || !s.Coordinates.Valid() {
			c, ok := found[i]
			if !ok {
				dropped = append(dropped, s.OrderID)
				continue
			}
			cc := *c
			s.Coordinates = &cc
		}
		if s.Priority == 0 {
			s.Priority = domain.PriorityFromWindow(s.DeliveryTimeWindow)
		}
		resolved = append(resolved, s)
	}

	return resolved, dropped
}

func (o *RouteOptimizer) anchor(hour int) time.Time {
	now := o.now().In(o.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, o.loc)
}

// sequence maps route (indices into [start]+stops) to ordered stops with ETAs.
func (o *RouteOptimizer) sequence(res *domain.RouteOptimizationResult, stops []domain.DeliveryStop, route []int, m domain.TravelMatrix) {
	day := o.anchor(dayStartHour)
	at := day

	totalSeconds := 0.0
	totalMeters := 0.0
	allDistances := true

	for i := 1; i < len(route); i++ {
		from, to := route[i-1], route[i]

		leg := m.Durations[from][to]
		unreachable := math.IsInf(leg, 1)
		if unreachable {
			leg = fallbackSpacing.Seconds()
		}

		if d, ok := m.Distance(from, to); ok && !unreachable {
			totalMeters += d
		} else {
			allDistances = false
		}

		totalSeconds += leg
		at = at.Add(time.Duration(math.Round(leg))*time.Second + unloadingTime)

		res.OrderedStops = append(res.OrderedStops, domain.RouteStop{
			DeliveryStop:     stops[to-1],
			Sequence:         i,
			EstimatedArrival: at.Format("15:04"),
			DayOffset:        domain.DaysBetween(day, at),
			ArriveAt:         at,
			TravelSeconds:    int(math.Round(leg)),
			Unreachable:      unreachable,
		})
	}

	res.TotalDurationMinutes = int(math.Round(totalSeconds / 60))
	res.TotalDistanceKm = roundKm(totalSeconds * approxMetersPerSecond / 1000)
	res.DistanceSource = domain.DistanceFromApproximation
	if allDistances {
		km := roundKm(totalMeters / 1000)
		res.ProviderDistanceKm = &km
	}
}

// fallback keeps input order with fixed spacing from 09:00.
func (o *RouteOptimizer) fallback(res *domain.RouteOptimizationResult, stops []domain.DeliveryStop) {
	at := o.anchor(fallbackStartHour)

	for i, s := range stops {
		eta := at.Add(time.Duration(i) * fallbackSpacing)
		res.OrderedStops = append(res.OrderedStops, domain.RouteStop{
			DeliveryStop:     s,
			Sequence:         i + 1,
			EstimatedArrival: eta.Format("15:04"),
			DayOffset:        domain.DaysBetween(at, eta),
			ArriveAt:         eta,
		})
	}

	res.IsOptimized = false
	res.TotalDurationMinutes = len(stops) * int(fallbackSpacing.Minutes())
	res.TotalDistanceKm = fallbackStopKm * float64(len(stops))
	res.DistanceSource = domain.DistanceFromFallback
}

func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}
