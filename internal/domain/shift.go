package domain

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ShiftStatus string

const (
	ShiftActive    ShiftStatus = "active"
	ShiftPaused    ShiftStatus = "paused"
	ShiftCompleted ShiftStatus = "completed"
)

type BreakType string

const (
	BreakLunch     BreakType = "lunch"
	BreakRest      BreakType = "rest"
	BreakPersonal  BreakType = "personal"
	BreakEmergency BreakType = "emergency"
)

func ParseBreakType(s string) (BreakType, error) {
	switch bt := BreakType(strings.ToLower(strings.TrimSpace(s))); bt {
	case BreakLunch, BreakRest, BreakPersonal, BreakEmergency:
		return bt, nil
	case "":
		return BreakRest, nil
	default:
		return "", Validationf("unknown break type %q", s)
	}
}

// Shift is one driver's working session. While a break is open the shift is
// paused; it is "open" (counts against the one-shift-per-driver rule) until
// completed.
type Shift struct {
	ID                      string        `json:"id"`
	DriverID                string        `json:"driverId"`
	DriverName              string        `json:"driverName"`
	StartedAt               time.Time     `json:"startedAt"`
	EndedAt                 *time.Time    `json:"endedAt,omitempty"`
	Status                  ShiftStatus   `json:"status"`
	BreakMinutesAccumulated int           `json:"breakMinutesAccumulated"`
	TotalOrdersDelivered    int           `json:"totalOrdersDelivered"`
	TotalCashCollected      float64       `json:"totalCashCollected"`
	StartLocation           string        `json:"startLocation"`
	EndLocation             string        `json:"endLocation,omitempty"`
	Summary                 *ShiftSummary `json:"summary,omitempty"`
}

func NewShift(driverID, driverName, location string, now time.Time) *Shift {
	return &Shift{
		ID:            uuid.NewString(),
		DriverID:      driverID,
		DriverName:    driverName,
		StartedAt:     now,
		Status:        ShiftActive,
		StartLocation: location,
	}
}

func (s *Shift) Open() bool {
	return s.Status == ShiftActive || s.Status == ShiftPaused
}

// BeginBreak opens a break on an active shift and pauses the shift.
func (s *Shift) BeginBreak(t BreakType, now time.Time) (*Break, error) {
	if s.Status != ShiftActive {
		return nil, newError(CodeNoActiveShift, "shift %s is %s", s.ID, s.Status)
	}

	s.Status = ShiftPaused
	return &Break{
		ID:        uuid.NewString(),
		DriverID:  s.DriverID,
		ShiftID:   s.ID,
		Type:      t,
		StartedAt: now,
	}, nil
}

// FinishBreak closes b and adds its rounded duration to the shift exactly once.
func (s *Shift) FinishBreak(b *Break, now time.Time) error {
	if b.ShiftID != s.ID {
		return Validationf("break %s does not belong to shift %s", b.ID, s.ID)
	}
	if err := b.Close(now); err != nil {
		return err
	}

	s.BreakMinutesAccumulated += b.DurationMinutes
	if s.Status == ShiftPaused {
		s.Status = ShiftActive
	}
	return nil
}

// End completes the shift with the reconciliation computed over its deliveries.
func (s *Shift) End(location string, summary ShiftSummary, now time.Time) error {
	switch s.Status {
	case ShiftPaused:
		return newError(CodeBreakInProgress, "shift %s has an open break", s.ID)
	case ShiftCompleted:
		return newError(CodeNoActiveShift, "shift %s is already completed", s.ID)
	}

	t := now
	s.EndedAt = &t
	s.Status = ShiftCompleted
	s.EndLocation = location
	s.TotalOrdersDelivered = summary.TotalDelivered
	s.TotalCashCollected = summary.TotalCashAmount
	s.Summary = &summary
	return nil
}

// Break is a sub-interval of a Shift.
type Break struct {
	ID              string     `json:"id"`
	DriverID        string     `json:"driverId"`
	ShiftID         string     `json:"shiftId"`
	Type            BreakType  `json:"type"`
	StartedAt       time.Time  `json:"startedAt"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	DurationMinutes int        `json:"durationMinutes"`
}

func (b *Break) Open() bool { return b.EndedAt == nil }

// Close sets the end time and the duration in whole minutes, rounded.
func (b *Break) Close(now time.Time) error {
	if !b.Open() {
		return newError(CodeBreakNotOpen, "break %s already ended", b.ID)
	}
	if now.Before(b.StartedAt) {
		now = b.StartedAt
	}

	t := now
	b.EndedAt = &t
	b.DurationMinutes = int(math.Round(float64(now.Sub(b.StartedAt).Milliseconds()) / 60000))
	return nil
}

// ShiftSummary is the cash reconciliation of a driver's delivered orders.
type ShiftSummary struct {
	TotalDelivered          int     `json:"totalDelivered"`
	CashOrderCount          int     `json:"cashOrderCount"`
	TotalCashAmount         float64 `json:"totalCashAmount"`
	ConfirmedCashOrderCount int     `json:"confirmedCashOrderCount"`
	PendingCashOrderCount   int     `json:"pendingCashOrderCount"`
	PaidOrderCount          int     `json:"paidOrderCount"`
	CashOrders              []Order `json:"cashOrders"`
}

// HasAnomaly reports cash orders delivered without a recorded confirmation.
func (s ShiftSummary) HasAnomaly() bool { return s.PendingCashOrderCount > 0 }
