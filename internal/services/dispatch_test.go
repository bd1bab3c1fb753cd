package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
	"delivery-ops-service/internal/ports"
)

func TestTemplateFor(t *testing.T) {
	tests := []struct {
		name   string
		status domain.OrderStatus
		prev   domain.OrderStatus
		want   ports.TemplateKind
		ok     bool
	}{
		{name: "departed", status: domain.StatusOnRoute, prev: domain.StatusPending, want: ports.TemplateOnRoute, ok: true},
		{name: "delayed", status: domain.StatusDelayed, prev: domain.StatusOnRoute, want: ports.TemplateDelayed, ok: true},
		{name: "delivered", status: domain.StatusDelivered, prev: domain.StatusOnRoute, want: ports.TemplateDelivered, ok: true},
		{name: "undo is silent", status: domain.StatusOnRoute, prev: domain.StatusDelivered},
		{name: "cancel is silent", status: domain.StatusCancelled, prev: domain.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := templateFor(tt.status, tt.prev)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDispatcherFailuresDoNotPropagate(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("sms gateway down")}
	events := &recordingEvents{}
	d := NewDispatcher(notifier, nil, events, time.Second, obs.Discard())

	o := domain.Order{
		ID:               "7001",
		CustomerPhone:    "+420600000002",
		Status:           domain.StatusOnRoute,
		AssignedDriverID: "drv-1",
		PaymentStatus:    domain.PaymentUnpaid,
		UpdatedAt:        testDay,
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.StatusChanged(ctx, o, domain.StatusPending)
	// The request finishing must not cancel side effects.
	cancel()
	d.Wait()

	assert.Len(t, notifier.Sent(), 1)
	require.Len(t, events.msgs, 1)

	var ev map[string]any
	require.NoError(t, json.Unmarshal(events.msgs[0], &ev))
	assert.Equal(t, "7001", ev["orderId"])
	assert.Equal(t, "on-route", ev["status"])
	assert.Equal(t, "pending", ev["previousStatus"])
}

func TestDispatcherSkipsCustomersWithoutPhone(t *testing.T) {
	notifier := &recordingNotifier{}
	d := NewDispatcher(notifier, nil, nil, time.Second, obs.Discard())

	d.StatusChanged(context.Background(), domain.Order{ID: "7002", Status: domain.StatusDelivered}, domain.StatusOnRoute)
	d.Wait()

	assert.Empty(t, notifier.Sent())
}
