package services

import (
	"context"
	"fmt"
	"log/slog"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
)

type routeOptimizer interface {
	OptimizeRoute(ctx context.Context, stops []domain.DeliveryStop, start domain.Coordinates) (*domain.RouteOptimizationResult, error)
}

// DriverRoutePlanner plans the route over a driver's remaining orders and
// stores the resulting ETAs and coordinates back on the orders.
type DriverRoutePlanner struct {
	orders    *OrderService
	optimizer routeOptimizer
	log       *slog.Logger
}

func NewDriverRoutePlanner(orders *OrderService, optimizer routeOptimizer, log *slog.Logger) *DriverRoutePlanner {
	return &DriverRoutePlanner{orders: orders, optimizer: optimizer, log: log}
}

// PlanDriverRoute optimizes the driver's pending, on-route and delayed orders.
func (p *DriverRoutePlanner) PlanDriverRoute(ctx context.Context, driverID string, start domain.Coordinates) (_ *domain.RouteOptimizationResult, err error) {
	defer obs.Time(ctx, p.log, "route.PlanDriverRoute")(&err)

	orders, err := p.orders.List(ctx, driverID)
	if err != nil {
		return nil, err
	}

	stops := make([]domain.DeliveryStop, 0, len(orders))
	for _, o := range orders {
		if !remaining(o.Status) {
			continue
		}
		stops = append(stops, o.Stop())
	}

	res, err := p.optimizer.OptimizeRoute(ctx, stops, start)
	if err != nil {
		return nil, fmt.Errorf("plan route for driver %s: %w", driverID, err)
	}

	if err := p.orders.ApplyRoute(ctx, res); err != nil {
		return nil, fmt.Errorf("plan route for driver %s: %w", driverID, err)
	}

	return res, nil
}

func remaining(s domain.OrderStatus) bool {
	switch s {
	case domain.StatusPending, domain.StatusOnRoute, domain.StatusDelayed:
		return true
	default:
		return false
	}
}
