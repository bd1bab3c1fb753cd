package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusOnRoute   OrderStatus = "on-route"
	StatusDelivered OrderStatus = "delivered"
	StatusDelayed   OrderStatus = "delayed"
	StatusCancelled OrderStatus = "cancelled"
)

// orderTransitions is the complete table of legal status moves.
// delivered -> on-route is the administrative "undo delivery" correction.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusOnRoute, StatusDelayed, StatusCancelled},
	StatusOnRoute:   {StatusDelivered, StatusDelayed, StatusCancelled},
	StatusDelayed:   {StatusDelivered},
	StatusDelivered: {StatusOnRoute},
	StatusCancelled: {},
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := orderTransitions[st]; !ok {
		return "", Validationf("unknown order status %q", s)
	}
	return st, nil
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(orderTransitions[s], next)
}

func (s OrderStatus) Terminal() bool { return len(orderTransitions[s]) == 0 }

type PaymentMethod string

const (
	PaymentCash           PaymentMethod = "cash"
	PaymentCashOnDelivery PaymentMethod = "cash-on-delivery"
	PaymentCard           PaymentMethod = "card"
	PaymentBankTransfer   PaymentMethod = "bank-transfer"
	PaymentOther          PaymentMethod = "other"
)

// ParsePaymentMethod maps order-source payment method labels onto the closed set.
// Unrecognised labels become PaymentOther.
func ParsePaymentMethod(s string) PaymentMethod {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cash":
		return PaymentCash
	case "cash-on-delivery", "cod", "cash_on_delivery":
		return PaymentCashOnDelivery
	case "card", "stripe", "credit-card":
		return PaymentCard
	case "bank-transfer", "bacs", "bank_transfer":
		return PaymentBankTransfer
	default:
		return PaymentOther
	}
}

func (m PaymentMethod) IsCash() bool {
	return m == PaymentCash || m == PaymentCashOnDelivery
}

type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "unpaid"
	PaymentPending       PaymentStatus = "pending"
	PaymentPaid          PaymentStatus = "paid"
	PaymentCashAwaiting  PaymentStatus = "cash-awaiting"
	PaymentCashConfirmed PaymentStatus = "cash-confirmed"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentUnpaid:        {PaymentPending, PaymentPaid, PaymentCashAwaiting},
	PaymentPending:       {PaymentPaid, PaymentCashAwaiting},
	PaymentCashAwaiting:  {PaymentCashConfirmed},
	PaymentPaid:          {},
	PaymentCashConfirmed: {},
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	ps := PaymentStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := paymentTransitions[ps]; !ok {
		return "", Validationf("unknown payment status %q", s)
	}
	return ps, nil
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return slices.Contains(paymentTransitions[s], next)
}

type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Source   string `json:"farmerOrSource"`
}

// Order is the central transactional entity. It is created by the order
// source, mutated by driver actions, and archived once delivered.
type Order struct {
	ID                 string        `json:"id"`
	CustomerName       string        `json:"customerName"`
	CustomerPhone      string        `json:"customerPhone"`
	CustomerEmail      string        `json:"customerEmail,omitempty"`
	Address            string        `json:"address"`
	PostalCode         string        `json:"postalCode"`
	Coordinates        *Coordinates  `json:"coordinates,omitempty"`
	DeliveryTimeWindow string        `json:"deliveryTimeWindow"`
	Status             OrderStatus   `json:"status"`
	Items              []OrderItem   `json:"items"`
	TotalAmount        float64       `json:"totalAmount"`
	PaymentMethod      PaymentMethod `json:"paymentMethod"`
	PaymentStatus      PaymentStatus `json:"paymentStatus"`
	AssignedDriverID   string        `json:"assignedDriverId,omitempty"`
	EstimatedArrival   string        `json:"estimatedArrival,omitempty"`
	DelayMinutes       int           `json:"delayMinutes,omitempty"`
	CancelReason       string        `json:"cancelReason,omitempty"`
	Notes              []string      `json:"notes,omitempty"`
	DeliveredAt        *time.Time    `json:"deliveredAt,omitempty"`
	CashConfirmedAt    *time.Time    `json:"cashConfirmedAt,omitempty"`
	CashConfirmedBy    string        `json:"cashConfirmedBy,omitempty"`
	ReceiptSent        bool          `json:"receiptSent"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// StatusChange is a driver-requested status transition.
type StatusChange struct {
	Status       OrderStatus
	Note         string
	DelayMinutes int
	CancelReason string
	// ConfirmedBy is recorded as the cash collector when delivering a cash order.
	ConfirmedBy  string
	// DriverID is the driver making the change. It claims unassigned orders.
	DriverID     string
}

const DefaultCancelReason = "cancelled by driver"

// ApplyStatus performs one transition of the order state machine.
// It reports false without error when the order is already in the target status.
func (o *Order) ApplyStatus(ch StatusChange, now time.Time) (bool, error) {
	if ch.Status == o.Status {
		return false, nil
	}

	if !o.Status.CanTransitionTo(ch.Status) {
		return false, newError(CodeInvalidTransition, "order %s: %s -> %s is not permitted", o.ID, o.Status, ch.Status)
	}

	prev := o.Status
	switch ch.Status {
	case StatusDelayed:
		if ch.DelayMinutes <= 0 {
			return false, Validationf("order %s: delayMinutes must be a positive integer", o.ID)
		}
		o.DelayMinutes = ch.DelayMinutes
		o.EstimatedArrival = ShiftClock(o.EstimatedArrival, ch.DelayMinutes)

	case StatusCancelled:
		reason := strings.TrimSpace(ch.CancelReason)
		if reason == "" {
			reason = DefaultCancelReason
		}
		o.CancelReason = reason

	case StatusDelivered:
		o.Status = StatusDelivered
		t := now
		o.DeliveredAt = &t

		// Cash is confirmed together with delivery; the driver has it in hand.
		if o.PaymentMethod.IsCash() && o.PaymentStatus != PaymentPaid {
			if _, err := o.ConfirmCash(ch.ConfirmedBy, now); err != nil {
				o.Status = prev
				o.DeliveredAt = nil
				return false, err
			}
		}

	case StatusOnRoute:
		if prev == StatusDelivered {
			o.DeliveredAt = nil
		}
	}

	if o.AssignedDriverID == "" && ch.Status.driverHeld() {
		o.AssignedDriverID = ch.actor()
	}

	o.Status = ch.Status
	if note := strings.TrimSpace(ch.Note); note != "" {
		o.Notes = append(o.Notes, note)
	}
	o.UpdatedAt = now

	return true, nil
}

// driverHeld reports whether an order in status s is in a driver's hands.
func (s OrderStatus) driverHeld() bool {
	return s == StatusOnRoute || s == StatusDelayed || s == StatusDelivered
}

func (ch StatusChange) actor() string {
	if id := strings.TrimSpace(ch.DriverID); id != "" {
		return id
	}
	return strings.TrimSpace(ch.ConfirmedBy)
}

// ConfirmCash records that the driver collected the cash for a delivered order.
// Confirming an already confirmed order is a no-op reporting false.
func (o *Order) ConfirmCash(by string, now time.Time) (bool, error) {
	if !o.PaymentMethod.IsCash() {
		return false, newError(CodeNotCashOrder, "order %s is paid by %s", o.ID, o.PaymentMethod)
	}

	if o.PaymentStatus == PaymentCashConfirmed {
		return false, nil
	}

	if o.Status != StatusDelivered {
		return false, newError(CodeInvalidTransition, "order %s: cash can only be confirmed after delivery (status %s)", o.ID, o.Status)
	}

	// Unsettled cash orders pass through cash-awaiting; confirmation is only
	// legal from there.
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentUnpaid
	}
	if o.PaymentStatus != PaymentCashAwaiting {
		if !o.PaymentStatus.CanTransitionTo(PaymentCashAwaiting) {
			return false, newError(CodeInvalidTransition, "order %s: payment %s cannot be confirmed as cash", o.ID, o.PaymentStatus)
		}
		o.PaymentStatus = PaymentCashAwaiting
	}

	o.PaymentStatus = PaymentCashConfirmed
	t := now
	o.CashConfirmedAt = &t
	o.CashConfirmedBy = strings.TrimSpace(by)
	o.UpdatedAt = now

	return true, nil
}

// Stop projects the order onto its routing target.
func (o *Order) Stop() DeliveryStop {
	var coords *Coordinates
	if o.Coordinates != nil {
		c := *o.Coordinates
		coords = &c
	}

	return DeliveryStop{
		OrderID:            o.ID,
		Address:            strings.TrimSpace(strings.Join([]string{o.Address, o.PostalCode}, " ")),
		Coordinates:        coords,
		CustomerName:       o.CustomerName,
		DeliveryTimeWindow: o.DeliveryTimeWindow,
		Priority:           PriorityFromWindow(o.DeliveryTimeWindow),
	}
}

func (o *Order) String() string {
	return fmt.Sprintf("order %s (%s, %s/%s)", o.ID, o.Status, o.PaymentMethod, o.PaymentStatus)
}
