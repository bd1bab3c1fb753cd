package domain

import (
	"math"
	"time"
)

// TravelMatrix holds one-way travel times between points.
// Durations[i][j] is seconds from point i to point j; unreachable pairs are +Inf.
// Distances is optional and, when present, holds metres with the same shape.
type TravelMatrix struct {
	Durations [][]float64
	Distances [][]float64
}

func (m TravelMatrix) Len() int { return len(m.Durations) }

// Empty reports whether the matrix carries no usable data.
func (m TravelMatrix) Empty() bool { return len(m.Durations) == 0 }

// Complete reports whether the matrix is square with n rows.
func (m TravelMatrix) Complete(n int) bool {
	if len(m.Durations) != n {
		return false
	}
	for _, row := range m.Durations {
		if len(row) != n {
			return false
		}
	}
	return true
}

// Distance returns the metres from i to j and whether a finite value is known.
func (m TravelMatrix) Distance(i, j int) (float64, bool) {
	if i >= len(m.Distances) || j >= len(m.Distances[i]) {
		return 0, false
	}
	d := m.Distances[i][j]
	if math.IsInf(d, 0) || math.IsNaN(d) {
		return 0, false
	}
	return d, true
}

// Unreachable is the travel time used for pairs with no route.
func Unreachable() float64 { return math.Inf(1) }

// Represents a single stop in an optimized route, with its computed arrival.
// EstimatedArrival is a wall-clock "HH:MM" label and wraps at midnight;
// DayOffset counts the days past the route's start day and ArriveAt is the
// value to order by.
type RouteStop struct {
	DeliveryStop
	Sequence         int       `json:"sequence"`
	EstimatedArrival string    `json:"estimatedArrival"`
	DayOffset        int       `json:"dayOffset,omitempty"`
	ArriveAt         time.Time `json:"arriveAt"`
	TravelSeconds    int       `json:"travelSeconds"`
	Unreachable      bool      `json:"unreachable,omitempty"`
}

// DaysBetween counts calendar days from start to t in start's location.
func DaysBetween(start, t time.Time) int {
	t = t.In(start.Location())
	a := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// DistanceSource values say how TotalDistanceKm was derived.
const (
	DistanceFromApproximation = "approximation"
	DistanceFromFallback      = "fallback"
)

// RouteOptimizationResult is the output of the route sequencer. It is
// immutable planning data and contains no side effects.
type RouteOptimizationResult struct {
	OrderedStops         []RouteStop `json:"orderedStops"`
	TotalDurationMinutes int         `json:"totalDurationMinutes"`
	TotalDistanceKm      float64     `json:"totalDistanceKm"`
	// ProviderDistanceKm is the sum of provider-reported leg distances, set
	// only when every leg has one.
	ProviderDistanceKm   *float64    `json:"providerDistanceKm,omitempty"`
	DroppedStopCount     int         `json:"droppedStopCount"`
	DroppedOrderIDs      []string    `json:"droppedOrderIds,omitempty"`
	IsOptimized          bool        `json:"isOptimized"`
	DistanceSource       string      `json:"distanceSource"`
}
