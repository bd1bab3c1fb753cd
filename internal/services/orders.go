package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
	"delivery-ops-service/internal/ports"
)

// OrderService applies driver actions to orders. Every transition is applied
// atomically through the store; notifications, receipts, events and the
// write-back to the order source happen afterwards and never block or undo it.
type OrderService struct {
	store    ports.OrderStore
	source   ports.DataSource
	dispatch *Dispatcher
	timeout  time.Duration
	now      func() time.Time
	log      *slog.Logger

	// mode of the last successful sync
	mode atomic.Value
}

type OrderServiceDeps struct {
	Store         ports.OrderStore
	Source        ports.DataSource
	Dispatcher    *Dispatcher
	SourceTimeout time.Duration
}

func NewOrderService(deps OrderServiceDeps, log *slog.Logger) *OrderService {
	timeout := deps.SourceTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	s := &OrderService{
		store:    deps.Store,
		source:   deps.Source,
		dispatch: deps.Dispatcher,
		timeout:  timeout,
		now:      time.Now,
		log:      log,
	}
	if s.dispatch != nil {
		s.dispatch.receiptSent = s.markReceiptSent
	}
	return s
}

type SyncResult struct {
	Imported   int                  `json:"imported"`
	DataSource ports.DataSourceMode `json:"dataSource"`
}

// Sync imports today's orders from the data source into the store.
func (s *OrderService) Sync(ctx context.Context) (_ SyncResult, err error) {
	defer obs.Time(ctx, s.log, "orders.Sync")(&err)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	orders, mode, err := s.source.TodaysOrders(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync orders: %w", err)
	}

	valid := make([]*domain.Order, 0, len(orders))
	for _, o := range orders {
		if o == nil || strings.TrimSpace(o.ID) == "" {
			continue
		}
		valid = append(valid, o)
	}

	if err := s.store.Upsert(ctx, valid); err != nil {
		return SyncResult{}, fmt.Errorf("sync orders: store: %w", err)
	}

	s.mode.Store(mode)
	if mode == ports.DataSourceDegraded {
		s.log.Warn("orders imported from fallback dataset", "count", len(valid))
	}

	return SyncResult{Imported: len(valid), DataSource: mode}, nil
}

// DataSource reports where the stored orders last came from.
func (s *OrderService) DataSource() ports.DataSourceMode {
	if m, ok := s.mode.Load().(ports.DataSourceMode); ok {
		return m
	}
	return ports.DataSourceLive
}

// Catalog returns the product catalog and where it came from.
func (s *OrderService) Catalog(ctx context.Context) ([]ports.Product, ports.DataSourceMode, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	products, mode, err := s.source.ProductCatalog(ctx)
	if err != nil {
		return nil, mode, fmt.Errorf("product catalog: %w", err)
	}
	return products, mode, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return o, nil
}

// List returns the driver's orders (all orders when driverID is empty),
// most urgent delivery window first.
func (s *OrderService) List(ctx context.Context, driverID string) ([]*domain.Order, error) {
	orders, err := s.store.List(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	slices.SortStableFunc(orders, func(a, b *domain.Order) int {
		if c := cmp.Compare(domain.PriorityFromWindow(a.DeliveryTimeWindow), domain.PriorityFromWindow(b.DeliveryTimeWindow)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return orders, nil
}

// UpdateStatus applies a status transition. Repeating a transition the order
// already went through is a no-op.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, ch domain.StatusChange) (_ *domain.Order, err error) {
	defer obs.Time(ctx, s.log, "orders.UpdateStatus")(&err)

	var (
		prev    domain.OrderStatus
		changed bool
	)

	o, err := s.store.Update(ctx, id, func(o *domain.Order) error {
		prev = o.Status
		if ch.ConfirmedBy == "" {
			ch.ConfirmedBy = cmp.Or(o.AssignedDriverID, ch.DriverID)
		}

		var aerr error
		changed, aerr = o.ApplyStatus(ch, s.now())
		return aerr
	})
	if err != nil {
		return nil, fmt.Errorf("update order %s status: %w", id, err)
	}

	if changed {
		s.afterTransition(ctx, o, prev, ch.Note)
	}

	return o, nil
}

// ConfirmCash records cash collection for a delivered cash order.
// Confirming twice leaves the order unchanged.
func (s *OrderService) ConfirmCash(ctx context.Context, id, confirmedBy string) (_ *domain.Order, err error) {
	defer obs.Time(ctx, s.log, "orders.ConfirmCash")(&err)

	var changed bool
	o, err := s.store.Update(ctx, id, func(o *domain.Order) error {
		by := strings.TrimSpace(confirmedBy)
		if by == "" {
			by = o.AssignedDriverID
		}

		var cerr error
		if changed, cerr = o.ConfirmCash(by, s.now()); cerr != nil {
			return cerr
		}
		// The collector owes this cash at the end of their shift.
		if o.AssignedDriverID == "" && by != "" {
			o.AssignedDriverID = by
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("confirm cash for order %s: %w", id, err)
	}

	if changed && s.source != nil && s.dispatch != nil {
		note := fmt.Sprintf("Cash payment of %.2f confirmed by %s", o.TotalAmount, o.CashConfirmedBy)
		s.dispatch.Go(ctx, func(ctx context.Context) {
			if err := s.source.AddOrderNote(ctx, o.ID, note); err != nil {
				s.log.Warn("order source note failed", "order_id", o.ID, "error", err)
			}
		})
	}

	return o, nil
}

// UndoDelivery moves a delivered order back on route. Payment state is kept.
func (s *OrderService) UndoDelivery(ctx context.Context, id, note string) (*domain.Order, error) {
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("undo delivery %s: %w", id, err)
	}
	if cur.Status != domain.StatusDelivered {
		return nil, &domain.Error{
			Code:    domain.CodeInvalidTransition,
			Message: fmt.Sprintf("order %s is %s, not delivered", id, cur.Status),
		}
	}

	if strings.TrimSpace(note) == "" {
		note = "Delivery undone"
	}
	return s.UpdateStatus(ctx, id, domain.StatusChange{Status: domain.StatusOnRoute, Note: note})
}

// ApplyRoute stores resolved coordinates and ETAs from an optimized route.
func (s *OrderService) ApplyRoute(ctx context.Context, res *domain.RouteOptimizationResult) error {
	for _, stop := range res.OrderedStops {
		_, err := s.store.Update(ctx, stop.OrderID, func(o *domain.Order) error {
			o.EstimatedArrival = stop.EstimatedArrival
			if stop.Coordinates != nil {
				c := *stop.Coordinates
				o.Coordinates = &c
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("apply route to order %s: %w", stop.OrderID, err)
		}
	}
	return nil
}

func (s *OrderService) afterTransition(ctx context.Context, o *domain.Order, prev domain.OrderStatus, note string) {
	if s.dispatch == nil {
		return
	}

	s.dispatch.StatusChanged(ctx, *o, prev)

	if s.source == nil {
		return
	}
	id, status := o.ID, o.Status
	s.dispatch.Go(ctx, func(ctx context.Context) {
		if err := s.source.UpdateOrderStatus(ctx, id, status, note); err != nil {
			s.log.Warn("order source write-back failed", "order_id", id, "status", status, "error", err)
		}
	})
}

func (s *OrderService) markReceiptSent(ctx context.Context, orderID string) error {
	_, err := s.store.Update(ctx, orderID, func(o *domain.Order) error {
		o.ReceiptSent = true
		return nil
	})
	return err
}
