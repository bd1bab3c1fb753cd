package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-ops-service/internal/adapters/repositories"
	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
	"delivery-ops-service/internal/ports"
)

type orderHarness struct {
	svc      *OrderService
	store    *repositories.MemoryOrderStore
	source   *stubDataSource
	notifier *recordingNotifier
	receipts *recordingReceipts
	events   *recordingEvents
	dispatch *Dispatcher
	clock    *clock
}

func newOrderHarness(t *testing.T, orders ...*domain.Order) *orderHarness {
	t.Helper()

	h := &orderHarness{
		store:    repositories.NewMemoryOrderStore(),
		source:   &stubDataSource{mode: ports.DataSourceLive},
		notifier: &recordingNotifier{},
		receipts: &recordingReceipts{},
		events:   &recordingEvents{},
		clock:    newClock(testDay.Add(3 * time.Hour)),
	}
	h.dispatch = NewDispatcher(h.notifier, h.receipts, h.events, time.Second, obs.Discard())
	h.svc = NewOrderService(OrderServiceDeps{
		Store:      h.store,
		Source:     h.source,
		Dispatcher: h.dispatch,
	}, obs.Discard())
	h.svc.now = h.clock.Now

	require.NoError(t, h.store.Upsert(context.Background(), orders))
	return h
}

func codOrder(id, driverID string, amount float64) *domain.Order {
	return &domain.Order{
		ID:                 id,
		CustomerName:       "Jana Novakova",
		CustomerPhone:      "+420600000001",
		CustomerEmail:      "jana@example.com",
		Address:            "Narodni 2",
		PostalCode:         "110 00",
		DeliveryTimeWindow: "10:00-12:00",
		Status:             domain.StatusOnRoute,
		TotalAmount:        amount,
		PaymentMethod:      domain.PaymentCashOnDelivery,
		PaymentStatus:      domain.PaymentUnpaid,
		AssignedDriverID:   driverID,
		EstimatedArrival:   "10:30",
	}
}

func cardOrder(id, driverID string, amount float64) *domain.Order {
	o := codOrder(id, driverID, amount)
	o.PaymentMethod = domain.PaymentCard
	o.PaymentStatus = domain.PaymentPaid
	return o
}

func TestUpdateStatusDeliveredConfirmsCash(t *testing.T) {
	h := newOrderHarness(t, codOrder("1001", "drv-1", 300))

	o, err := h.svc.UpdateStatus(context.Background(), "1001", domain.StatusChange{Status: domain.StatusDelivered})
	require.NoError(t, err)
	h.dispatch.Wait()

	assert.Equal(t, domain.StatusDelivered, o.Status)
	assert.Equal(t, domain.PaymentCashConfirmed, o.PaymentStatus)
	assert.Equal(t, "drv-1", o.CashConfirmedBy)
	require.NotNil(t, o.DeliveredAt)

	sent := h.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, ports.TemplateDelivered, sent[0].Kind)
	assert.Equal(t, "+420600000001", sent[0].Phone)

	assert.Equal(t, []string{"1001"}, h.receipts.ids)
	assert.Equal(t, []string{TopicOrderStatus}, h.events.topics)
	assert.Equal(t, []statusWrite{{ID: "1001", Status: domain.StatusDelivered}}, h.source.Writes())

	stored, err := h.store.Get(context.Background(), "1001")
	require.NoError(t, err)
	assert.True(t, stored.ReceiptSent)
}

func TestUpdateStatusRepeatIsNoop(t *testing.T) {
	h := newOrderHarness(t, codOrder("1001", "drv-1", 300))
	ctx := context.Background()

	first, err := h.svc.UpdateStatus(ctx, "1001", domain.StatusChange{Status: domain.StatusDelivered})
	require.NoError(t, err)

	h.clock.Advance(10 * time.Minute)
	second, err := h.svc.UpdateStatus(ctx, "1001", domain.StatusChange{Status: domain.StatusDelivered})
	require.NoError(t, err)
	h.dispatch.Wait()

	assert.Equal(t, first.DeliveredAt, second.DeliveredAt)
	assert.Len(t, h.notifier.Sent(), 1)
}

func TestUpdateStatusErrors(t *testing.T) {
	pending := codOrder("2001", "drv-1", 100)
	pending.Status = domain.StatusPending
	cancelled := codOrder("2002", "drv-1", 100)
	cancelled.Status = domain.StatusCancelled

	tests := []struct {
		name   string
		id     string
		change domain.StatusChange
		want   error
	}{
		{name: "pending cannot be delivered", id: "2001", change: domain.StatusChange{Status: domain.StatusDelivered}, want: domain.ErrInvalidTransition},
		{name: "cancelled is terminal", id: "2002", change: domain.StatusChange{Status: domain.StatusOnRoute}, want: domain.ErrInvalidTransition},
		{name: "delay needs minutes", id: "2001", change: domain.StatusChange{Status: domain.StatusDelayed}, want: domain.ErrValidation},
		{name: "unknown order", id: "nope", change: domain.StatusChange{Status: domain.StatusOnRoute}, want: domain.ErrOrderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newOrderHarness(t, pending, cancelled)

			_, err := h.svc.UpdateStatus(context.Background(), tt.id, tt.change)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			h.dispatch.Wait()
			assert.Empty(t, h.notifier.Sent())
		})
	}
}

func TestUpdateStatusDelayedNotifiesWithNewETA(t *testing.T) {
	h := newOrderHarness(t, codOrder("3001", "drv-1", 50))

	o, err := h.svc.UpdateStatus(context.Background(), "3001", domain.StatusChange{
		Status:       domain.StatusDelayed,
		DelayMinutes: 20,
		Note:         "traffic on Wilsonova",
	})
	require.NoError(t, err)
	h.dispatch.Wait()

	assert.Equal(t, "10:50", o.EstimatedArrival)
	assert.Equal(t, []string{"traffic on Wilsonova"}, o.Notes)

	sent := h.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, ports.TemplateDelayed, sent[0].Kind)
	assert.Equal(t, "20", sent[0].Params["delayMinutes"])
	assert.Equal(t, "10:50", sent[0].Params["eta"])
}

func TestConfirmCash(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		o := codOrder("4001", "drv-1", 120)
		o.Status = domain.StatusDelivered
		at := testDay
		o.DeliveredAt = &at
		o.PaymentStatus = domain.PaymentCashAwaiting
		h := newOrderHarness(t, o)

		first, err := h.svc.ConfirmCash(ctx, "4001", "drv-1")
		require.NoError(t, err)
		h.clock.Advance(time.Hour)
		second, err := h.svc.ConfirmCash(ctx, "4001", "someone-else")
		require.NoError(t, err)
		h.dispatch.Wait()

		assert.Equal(t, domain.PaymentCashConfirmed, second.PaymentStatus)
		assert.Equal(t, first.CashConfirmedAt, second.CashConfirmedAt)
		assert.Equal(t, "drv-1", second.CashConfirmedBy)
		assert.Len(t, h.source.notes, 1)
	})

	t.Run("card order", func(t *testing.T) {
		h := newOrderHarness(t, cardOrder("4002", "drv-1", 80))

		_, err := h.svc.ConfirmCash(ctx, "4002", "drv-1")
		assert.True(t, errors.Is(err, domain.ErrNotCashOrder), "got %v", err)
	})

	t.Run("not delivered yet", func(t *testing.T) {
		h := newOrderHarness(t, codOrder("4003", "drv-1", 80))

		_, err := h.svc.ConfirmCash(ctx, "4003", "drv-1")
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "got %v", err)
	})
}

func TestUndoDelivery(t *testing.T) {
	ctx := context.Background()
	h := newOrderHarness(t, codOrder("5001", "drv-1", 60), codOrder("5002", "drv-1", 60))

	_, err := h.svc.UpdateStatus(ctx, "5001", domain.StatusChange{Status: domain.StatusDelivered})
	require.NoError(t, err)

	o, err := h.svc.UndoDelivery(ctx, "5001", "")
	require.NoError(t, err)
	h.dispatch.Wait()

	assert.Equal(t, domain.StatusOnRoute, o.Status)
	assert.Nil(t, o.DeliveredAt)
	assert.Equal(t, domain.PaymentCashConfirmed, o.PaymentStatus, "payment is kept")

	// Only the delivery itself reached the customer.
	assert.Len(t, h.notifier.Sent(), 1)

	_, err = h.svc.UndoDelivery(ctx, "5002", "")
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "got %v", err)
}

func TestSyncImportsOrders(t *testing.T) {
	h := newOrderHarness(t, codOrder("6001", "drv-1", 10))
	ctx := context.Background()

	_, err := h.svc.UpdateStatus(ctx, "6001", domain.StatusChange{Status: domain.StatusDelivered})
	require.NoError(t, err)

	refreshed := codOrder("6001", "drv-1", 15)
	refreshed.Status = domain.StatusPending
	h.source.orders = []*domain.Order{refreshed, codOrder("6002", "drv-1", 20), {ID: " "}}
	h.source.mode = ports.DataSourceDegraded

	res, err := h.svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Imported: 2, DataSource: ports.DataSourceDegraded}, res)
	assert.Equal(t, ports.DataSourceDegraded, h.svc.DataSource())

	kept, err := h.store.Get(ctx, "6001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, kept.Status, "driver progress survives a sync")
	assert.Equal(t, 15.0, kept.TotalAmount)
}

func TestListSortsByWindow(t *testing.T) {
	late := codOrder("b", "drv-1", 1)
	late.DeliveryTimeWindow = "18:00-20:00"
	early := codOrder("c", "drv-1", 1)
	early.DeliveryTimeWindow = "08:00-10:00"
	midday := codOrder("a", "drv-1", 1)
	midday.DeliveryTimeWindow = "12:00-14:00"
	other := codOrder("d", "drv-2", 1)

	h := newOrderHarness(t, late, early, midday, other)

	orders, err := h.svc.List(context.Background(), "drv-1")
	require.NoError(t, err)

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestPlanDriverRouteStoresETAs(t *testing.T) {
	ctx := context.Background()
	a := codOrder("A", "drv-1", 1)
	a.Coordinates = coords(50.07, 14.45)
	b := codOrder("B", "drv-1", 1)
	b.Coordinates = coords(50.08, 14.42)
	done := codOrder("C", "drv-1", 1)
	done.Status = domain.StatusCancelled

	h := newOrderHarness(t, a, b, done)
	m := domain.TravelMatrix{Durations: [][]float64{
		{0, 600, 60},
		{600, 0, 60},
		{60, 60, 0},
	}}
	planner := NewDriverRoutePlanner(h.svc, newTestOptimizer(noGeocoder(), fixedMatrix(m)), obs.Discard())

	res, err := planner.PlanDriverRoute(ctx, "drv-1", prague)
	require.NoError(t, err)

	require.Len(t, res.OrderedStops, 2)
	assert.Equal(t, "B", res.OrderedStops[0].OrderID)

	stored, err := h.store.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, res.OrderedStops[1].EstimatedArrival, stored.EstimatedArrival)
}
