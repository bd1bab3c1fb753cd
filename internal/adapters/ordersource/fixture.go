package ordersource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/ports"
)

// Fixture is the file-backed dataset served when the live source is down or
// not configured.
type Fixture struct {
	Orders   []*domain.Order `json:"orders"`
	Products []ports.Product `json:"products"`
}

// LoadFixture reads and validates a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load fixture: read %q: %w", path, err)
	}

	var f Fixture
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("load fixture: parse json: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Orders))
	for i, o := range f.Orders {
		if o == nil || strings.TrimSpace(o.ID) == "" {
			return nil, fmt.Errorf("load fixture: order at index %d has no id", i)
		}
		if _, dup := seen[o.ID]; dup {
			return nil, fmt.Errorf("load fixture: duplicate order id %q", o.ID)
		}
		seen[o.ID] = struct{}{}

		if o.Status == "" {
			o.Status = domain.StatusPending
		}
		if o.PaymentStatus == "" {
			o.PaymentStatus = domain.PaymentUnpaid
		}
	}

	return &f, nil
}

// FixtureSource serves a Fixture as an order source. Write-backs are dropped.
type FixtureSource struct {
	f *Fixture
}

func NewFixtureSource(f *Fixture) *FixtureSource {
	if f == nil {
		f = &Fixture{}
	}
	return &FixtureSource{f: f}
}

// ListTodaysOrders returns copies so callers cannot mutate the dataset.
func (s *FixtureSource) ListTodaysOrders(ctx context.Context) ([]*domain.Order, error) {
	out := make([]*domain.Order, 0, len(s.f.Orders))
	for _, o := range s.f.Orders {
		c := *o
		c.Items = append([]domain.OrderItem(nil), o.Items...)
		c.Notes = append([]string(nil), o.Notes...)
		if o.Coordinates != nil {
			v := *o.Coordinates
			c.Coordinates = &v
		}
		out = append(out, &c)
	}
	return out, nil
}

func (s *FixtureSource) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, note string) error {
	return nil
}

func (s *FixtureSource) AddOrderNote(ctx context.Context, id, note string) error {
	return nil
}

func (s *FixtureSource) GetProductCatalog(ctx context.Context) ([]ports.Product, error) {
	return append([]ports.Product(nil), s.f.Products...), nil
}
