package ordersource

import (
	"context"
	"log/slog"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/ports"
)

// Failover reads from the live source and falls back to the fixture when the
// live source is missing or fails, reporting which one answered.
type Failover struct {
	live     ports.OrderSource
	fallback ports.OrderSource
	log      *slog.Logger
}

// NewFailover builds the core's DataSource. live may be nil.
func NewFailover(live, fallback ports.OrderSource, log *slog.Logger) *Failover {
	return &Failover{live: live, fallback: fallback, log: log}
}

func (f *Failover) TodaysOrders(ctx context.Context) ([]*domain.Order, ports.DataSourceMode, error) {
	if f.live != nil {
		orders, err := f.live.ListTodaysOrders(ctx)
		if err == nil {
			return orders, ports.DataSourceLive, nil
		}
		f.log.Warn("live order source failed, serving fallback orders", "error", err)
	}

	orders, err := f.fallback.ListTodaysOrders(ctx)
	return orders, ports.DataSourceDegraded, err
}

func (f *Failover) ProductCatalog(ctx context.Context) ([]ports.Product, ports.DataSourceMode, error) {
	if f.live != nil {
		products, err := f.live.GetProductCatalog(ctx)
		if err == nil {
			return products, ports.DataSourceLive, nil
		}
		f.log.Warn("live product catalog failed, serving fallback catalog", "error", err)
	}

	products, err := f.fallback.GetProductCatalog(ctx)
	return products, ports.DataSourceDegraded, err
}

// Write-backs only go to the live source; without one they are dropped.
func (f *Failover) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, note string) error {
	if f.live == nil {
		return nil
	}
	return f.live.UpdateOrderStatus(ctx, id, status, note)
}

func (f *Failover) AddOrderNote(ctx context.Context, id, note string) error {
	if f.live == nil {
		return nil
	}
	return f.live.AddOrderNote(ctx, id, note)
}
