package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/ports"
)

const TopicOrderStatus = "delivery.order.status"

type orderStatusEvent struct {
	OrderID        string             `json:"orderId"`
	Status         domain.OrderStatus `json:"status"`
	PreviousStatus domain.OrderStatus `json:"previousStatus"`
	DriverID       string             `json:"driverId,omitempty"`
	PaymentStatus  string             `json:"paymentStatus"`
	At             time.Time          `json:"at"`
}

// Dispatcher fans order status changes out to customer notifications, the
// receipt sender and the event bus. Every side effect runs in the background
// with its own timeout; failures are logged and never reach the caller.
type Dispatcher struct {
	notifier ports.Notifier
	receipts ports.ReceiptSender
	events   ports.EventPublisher
	timeout  time.Duration
	log      *slog.Logger

	// receiptSent is called after a successful receipt send.
	receiptSent func(ctx context.Context, orderID string) error

	wg sync.WaitGroup
}

func NewDispatcher(notifier ports.Notifier, receipts ports.ReceiptSender, events ports.EventPublisher, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		notifier: notifier,
		receipts: receipts,
		events:   events,
		timeout:  timeout,
		log:      log,
	}
}

// StatusChanged schedules the side effects for o having left prev.
// o must be a snapshot; it is read from other goroutines.
func (d *Dispatcher) StatusChanged(ctx context.Context, o domain.Order, prev domain.OrderStatus) {
	// Keep request-scoped values (request id) but not the request's deadline.
	ctx = context.WithoutCancel(ctx)

	if kind, ok := templateFor(o.Status, prev); ok && d.notifier != nil && o.CustomerPhone != "" {
		d.goWithTimeout(ctx, func(ctx context.Context) {
			if err := d.notifier.Notify(ctx, o.CustomerPhone, kind, notificationParams(o)); err != nil {
				d.log.Warn("customer notification failed", "order_id", o.ID, "kind", kind, "error", err)
			}
		})
	}

	if o.Status == domain.StatusDelivered && d.receipts != nil && o.CustomerEmail != "" && !o.ReceiptSent {
		d.goWithTimeout(ctx, func(ctx context.Context) {
			if err := d.receipts.SendReceipt(ctx, &o); err != nil {
				d.log.Warn("receipt send failed", "order_id", o.ID, "error", err)
				return
			}
			if d.receiptSent != nil {
				if err := d.receiptSent(ctx, o.ID); err != nil {
					d.log.Warn("receipt flag update failed", "order_id", o.ID, "error", err)
				}
			}
		})
	}

	if d.events != nil {
		d.goWithTimeout(ctx, func(ctx context.Context) {
			msg, err := json.Marshal(orderStatusEvent{
				OrderID:        o.ID,
				Status:         o.Status,
				PreviousStatus: prev,
				DriverID:       o.AssignedDriverID,
				PaymentStatus:  string(o.PaymentStatus),
				At:             o.UpdatedAt,
			})
			if err != nil {
				d.log.Warn("encode order event failed", "order_id", o.ID, "error", err)
				return
			}
			if err := d.events.Publish(ctx, TopicOrderStatus, msg); err != nil {
				d.log.Warn("publish order event failed", "order_id", o.ID, "error", err)
			}
		})
	}
}

// Wait blocks until in-flight side effects finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Go runs fn in the background under the dispatcher's timeout.
func (d *Dispatcher) Go(ctx context.Context, fn func(ctx context.Context)) {
	d.goWithTimeout(context.WithoutCancel(ctx), fn)
}

func (d *Dispatcher) goWithTimeout(ctx context.Context, fn func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func templateFor(status, prev domain.OrderStatus) (ports.TemplateKind, bool) {
	switch status {
	case domain.StatusOnRoute:
		// Undoing a delivery is an internal correction; the customer is not told.
		if prev == domain.StatusDelivered {
			return "", false
		}
		return ports.TemplateOnRoute, true
	case domain.StatusDelayed:
		return ports.TemplateDelayed, true
	case domain.StatusDelivered:
		return ports.TemplateDelivered, true
	default:
		return "", false
	}
}

func notificationParams(o domain.Order) map[string]string {
	p := map[string]string{
		"orderId":      o.ID,
		"customerName": o.CustomerName,
	}
	if o.EstimatedArrival != "" {
		p["eta"] = o.EstimatedArrival
	}
	if o.DelayMinutes > 0 {
		p["delayMinutes"] = strconv.Itoa(o.DelayMinutes)
	}
	return p
}
