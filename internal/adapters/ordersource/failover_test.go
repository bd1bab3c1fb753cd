package ordersource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
	"delivery-ops-service/internal/ports"
)

type stubSource struct {
	orders []*domain.Order
	err    error
	writes []string
}

func (s *stubSource) ListTodaysOrders(context.Context) ([]*domain.Order, error) {
	return s.orders, s.err
}

func (s *stubSource) UpdateOrderStatus(_ context.Context, id string, status domain.OrderStatus, _ string) error {
	s.writes = append(s.writes, id+"="+string(status))
	return nil
}

func (s *stubSource) AddOrderNote(_ context.Context, id, note string) error {
	s.writes = append(s.writes, id+":"+note)
	return nil
}

func (s *stubSource) GetProductCatalog(context.Context) ([]ports.Product, error) {
	return nil, s.err
}

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFixture(t *testing.T) {
	path := writeFixture(t, `{
		"orders": [{"id": "F1", "customerName": "Jana", "address": "Narodni 2", "paymentMethod": "cash-on-delivery", "totalAmount": 100}],
		"products": [{"id": "P1", "name": "Eggs", "price": 60, "inStock": true}]
	}`)

	f, err := LoadFixture(path)
	require.NoError(t, err)
	require.Len(t, f.Orders, 1)
	assert.Equal(t, domain.StatusPending, f.Orders[0].Status)
	assert.Equal(t, domain.PaymentUnpaid, f.Orders[0].PaymentStatus)
	assert.Len(t, f.Products, 1)
}

func TestLoadFixtureRejectsBadData(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: `{"orders": [`},
		{name: "missing id", body: `{"orders": [{"customerName": "x"}]}`},
		{name: "duplicate id", body: `{"orders": [{"id": "A"}, {"id": "A"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFixture(writeFixture(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadFixture(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestFixtureSourceReturnsCopies(t *testing.T) {
	src := NewFixtureSource(&Fixture{Orders: []*domain.Order{{ID: "F1", Notes: []string{"gate code 12"}}}})

	first, err := src.ListTodaysOrders(context.Background())
	require.NoError(t, err)
	first[0].Status = domain.StatusDelivered
	first[0].Notes[0] = "changed"

	second, err := src.ListTodaysOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatus(""), second[0].Status)
	assert.Equal(t, []string{"gate code 12"}, second[0].Notes)
}

func TestFailover(t *testing.T) {
	ctx := context.Background()
	fallback := NewFixtureSource(&Fixture{
		Orders:   []*domain.Order{{ID: "F1"}},
		Products: []ports.Product{{ID: "P1"}},
	})

	t.Run("live", func(t *testing.T) {
		live := &stubSource{orders: []*domain.Order{{ID: "L1"}}}
		f := NewFailover(live, fallback, obs.Discard())

		orders, mode, err := f.TodaysOrders(ctx)
		require.NoError(t, err)
		assert.Equal(t, ports.DataSourceLive, mode)
		assert.Equal(t, "L1", orders[0].ID)

		require.NoError(t, f.UpdateOrderStatus(ctx, "L1", domain.StatusDelivered, ""))
		require.NoError(t, f.AddOrderNote(ctx, "L1", "cash received"))
		assert.Equal(t, []string{"L1=delivered", "L1:cash received"}, live.writes)
	})

	t.Run("live failing", func(t *testing.T) {
		f := NewFailover(&stubSource{err: errors.New("503")}, fallback, obs.Discard())

		orders, mode, err := f.TodaysOrders(ctx)
		require.NoError(t, err)
		assert.Equal(t, ports.DataSourceDegraded, mode)
		assert.Equal(t, "F1", orders[0].ID)

		products, mode, err := f.ProductCatalog(ctx)
		require.NoError(t, err)
		assert.Equal(t, ports.DataSourceDegraded, mode)
		assert.Len(t, products, 1)
	})

	t.Run("no live source", func(t *testing.T) {
		f := NewFailover(nil, fallback, obs.Discard())

		_, mode, err := f.TodaysOrders(ctx)
		require.NoError(t, err)
		assert.Equal(t, ports.DataSourceDegraded, mode)
		assert.NoError(t, f.UpdateOrderStatus(ctx, "F1", domain.StatusDelivered, ""))
	})
}
