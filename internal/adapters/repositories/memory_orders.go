package repositories

import (
	"context"
	"slices"
	"sync"
	"time"

	"delivery-ops-service/internal/domain"
)

// MemoryOrderStore keeps orders in process. Reads return clones so callers
// never alias stored state.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[string]*domain.Order)}
}

func (s *MemoryOrderStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, orderNotFound(id)
	}
	return cloneOrder(o), nil
}

func (s *MemoryOrderStore) List(ctx context.Context, driverID string) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if driverID != "" && o.AssignedDriverID != driverID {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	slices.SortFunc(out, func(a, b *domain.Order) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *MemoryOrderStore) Upsert(ctx context.Context, orders []*domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, in := range orders {
		if in == nil {
			continue
		}
		cur, ok := s.orders[in.ID]
		if !ok {
			o := cloneOrder(in)
			if o.Status == "" {
				o.Status = domain.StatusPending
			}
			if o.PaymentStatus == "" {
				o.PaymentStatus = domain.PaymentUnpaid
			}
			s.orders[in.ID] = o
			continue
		}
		refreshSourceFields(cur, in)
	}
	return nil
}

func (s *MemoryOrderStore) Update(ctx context.Context, id string, mutate func(*domain.Order) error) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.orders[id]
	if !ok {
		return nil, orderNotFound(id)
	}

	work := cloneOrder(cur)
	if err := mutate(work); err != nil {
		return nil, err
	}
	s.orders[id] = work
	return cloneOrder(work), nil
}

func (s *MemoryOrderStore) ListDelivered(ctx context.Context, driverID string, from, to time.Time) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Order
	for _, o := range s.orders {
		if o.Status != domain.StatusDelivered || o.DeliveredAt == nil {
			continue
		}
		if o.AssignedDriverID != driverID {
			continue
		}
		if o.DeliveredAt.Before(from) || o.DeliveredAt.After(to) {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	slices.SortFunc(out, func(a, b *domain.Order) int { return a.DeliveredAt.Compare(*b.DeliveredAt) })
	return out, nil
}

// refreshSourceFields copies fields owned by the order source onto cur.
func refreshSourceFields(cur, in *domain.Order) {
	cur.CustomerName = in.CustomerName
	cur.CustomerPhone = in.CustomerPhone
	cur.CustomerEmail = in.CustomerEmail
	cur.Address = in.Address
	cur.PostalCode = in.PostalCode
	cur.DeliveryTimeWindow = in.DeliveryTimeWindow
	cur.Items = slices.Clone(in.Items)
	cur.TotalAmount = in.TotalAmount
	cur.PaymentMethod = in.PaymentMethod
	if in.AssignedDriverID != "" {
		cur.AssignedDriverID = in.AssignedDriverID
	}
	if cur.Coordinates == nil && in.Coordinates != nil {
		c := *in.Coordinates
		cur.Coordinates = &c
	}
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	c.Notes = slices.Clone(o.Notes)
	if o.Coordinates != nil {
		v := *o.Coordinates
		c.Coordinates = &v
	}
	if o.DeliveredAt != nil {
		v := *o.DeliveredAt
		c.DeliveredAt = &v
	}
	if o.CashConfirmedAt != nil {
		v := *o.CashConfirmedAt
		c.CashConfirmedAt = &v
	}
	return &c
}

func orderNotFound(id string) error {
	return &domain.Error{Code: domain.CodeOrderNotFound, Message: "order " + id + " not found"}
}
