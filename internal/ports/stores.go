package ports

import (
	"context"
	"time"

	"delivery-ops-service/internal/domain"
)

// Port: persistence boundary for orders. Lookups of unknown ids return
// domain.ErrOrderNotFound.
//
// Update applies mutate to the stored order atomically; a mutate error aborts
// the update and is returned unchanged.
type OrderStore interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, driverID string) ([]*domain.Order, error)
	// Upsert inserts orders or refreshes source-owned fields of existing ones.
	// Driver-side progress (status, payment, timestamps) is never overwritten.
	Upsert(ctx context.Context, orders []*domain.Order) error
	Update(ctx context.Context, id string, mutate func(*domain.Order) error) (*domain.Order, error)
	// ListDelivered returns orders delivered by driverID in [from, to].
	ListDelivered(ctx context.Context, driverID string, from, to time.Time) ([]*domain.Order, error)
}

// Port: persistence boundary for shifts. At most one open shift per driver.
//
// Update hands mutate a context bound to the same unit of work, so BreakStore
// calls made with it commit or roll back together with the shift.
type ShiftStore interface {
	// Create fails with domain.ErrAlreadyActive when the driver has an open shift.
	Create(ctx context.Context, s *domain.Shift) error
	Get(ctx context.Context, id string) (*domain.Shift, error)
	// GetOpenByDriver returns nil, nil when the driver has no open shift.
	GetOpenByDriver(ctx context.Context, driverID string) (*domain.Shift, error)
	Update(ctx context.Context, id string, mutate func(ctx context.Context, s *domain.Shift) error) (*domain.Shift, error)
}

// Port: persistence boundary for breaks.
type BreakStore interface {
	Create(ctx context.Context, b *domain.Break) error
	Get(ctx context.Context, id string) (*domain.Break, error)
	// GetOpenByShift returns nil, nil when no break is open.
	GetOpenByShift(ctx context.Context, shiftID string) (*domain.Break, error)
	Save(ctx context.Context, b *domain.Break) error
}
