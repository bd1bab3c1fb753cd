package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
	"delivery-ops-service/internal/ports"
)

// ShiftService tracks driver shifts and breaks and reconciles cash at shift end.
//
// A break pauses its shift: status goes active -> paused -> active, and a
// paused shift still counts as the driver's one open shift.
type ShiftService struct {
	shifts ports.ShiftStore
	breaks ports.BreakStore
	orders ports.OrderStore
	now    func() time.Time
	log    *slog.Logger
}

func NewShiftService(shifts ports.ShiftStore, breaks ports.BreakStore, orders ports.OrderStore, log *slog.Logger) *ShiftService {
	return &ShiftService{
		shifts: shifts,
		breaks: breaks,
		orders: orders,
		now:    time.Now,
		log:    log,
	}
}

// StartShift opens a shift. It fails with domain.ErrAlreadyActive when the
// driver already has an open shift, leaving that shift untouched.
func (s *ShiftService) StartShift(ctx context.Context, driverID, driverName, location string) (_ *domain.Shift, err error) {
	defer obs.Time(ctx, s.log, "shifts.StartShift")(&err)

	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return nil, domain.Validationf("driverId is required")
	}

	sh := domain.NewShift(driverID, strings.TrimSpace(driverName), strings.TrimSpace(location), s.now())
	if err := s.shifts.Create(ctx, sh); err != nil {
		return nil, fmt.Errorf("start shift for driver %s: %w", driverID, err)
	}

	s.log.Info("shift started", "shift_id", sh.ID, "driver_id", driverID)
	return sh, nil
}

// ActiveShift returns the driver's open shift.
func (s *ShiftService) ActiveShift(ctx context.Context, driverID string) (*domain.Shift, error) {
	sh, err := s.shifts.GetOpenByDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("active shift for driver %s: %w", driverID, err)
	}
	if sh == nil {
		return nil, &domain.Error{Code: domain.CodeNoActiveShift, Message: fmt.Sprintf("driver %s has no open shift", driverID)}
	}
	return sh, nil
}

// StartBreak opens a break on the driver's active shift. An empty shiftID
// selects the driver's open shift.
func (s *ShiftService) StartBreak(ctx context.Context, driverID, shiftID string, t domain.BreakType) (_ *domain.Break, err error) {
	defer obs.Time(ctx, s.log, "shifts.StartBreak")(&err)

	if strings.TrimSpace(shiftID) == "" {
		sh, err := s.ActiveShift(ctx, driverID)
		if err != nil {
			return nil, err
		}
		shiftID = sh.ID
	}

	var b *domain.Break
	_, err = s.shifts.Update(ctx, shiftID, func(ctx context.Context, sh *domain.Shift) error {
		if driverID != "" && sh.DriverID != driverID {
			return domain.Validationf("shift %s belongs to another driver", sh.ID)
		}

		nb, err := sh.BeginBreak(t, s.now())
		if err != nil {
			return err
		}
		if err := s.breaks.Create(ctx, nb); err != nil {
			return fmt.Errorf("store break: %w", err)
		}
		b = nb
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("start break on shift %s: %w", shiftID, err)
	}

	return b, nil
}

// EndBreak closes an open break and adds its duration to the shift once.
func (s *ShiftService) EndBreak(ctx context.Context, driverID, breakID string) (_ *domain.Break, err error) {
	defer obs.Time(ctx, s.log, "shifts.EndBreak")(&err)

	b, err := s.breaks.Get(ctx, breakID)
	if err != nil {
		return nil, fmt.Errorf("end break %s: %w", breakID, err)
	}
	if driverID != "" && b.DriverID != driverID {
		return nil, domain.Validationf("break %s belongs to another driver", breakID)
	}

	var closed *domain.Break
	_, err = s.shifts.Update(ctx, b.ShiftID, func(ctx context.Context, sh *domain.Shift) error {
		// Re-read under the shift lock so a concurrent end cannot double count.
		cur, err := s.breaks.Get(ctx, breakID)
		if err != nil {
			return err
		}
		if err := sh.FinishBreak(cur, s.now()); err != nil {
			return err
		}
		if err := s.breaks.Save(ctx, cur); err != nil {
			return fmt.Errorf("store break: %w", err)
		}
		closed = cur
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("end break %s: %w", breakID, err)
	}

	return closed, nil
}

// EndShift completes the shift and stores its cash reconciliation.
func (s *ShiftService) EndShift(ctx context.Context, shiftID, driverID, location string) (_ *domain.Shift, err error) {
	defer obs.Time(ctx, s.log, "shifts.EndShift")(&err)

	sh, err := s.shifts.Update(ctx, shiftID, func(ctx context.Context, sh *domain.Shift) error {
		if driverID != "" && sh.DriverID != driverID {
			return domain.Validationf("shift %s belongs to another driver", sh.ID)
		}
		if sh.Status != domain.ShiftActive {
			// End reports BREAK_IN_PROGRESS or NO_ACTIVE_SHIFT.
			return sh.End(location, domain.ShiftSummary{}, s.now())
		}

		now := s.now()
		delivered, err := s.orders.ListDelivered(ctx, sh.DriverID, sh.StartedAt, now)
		if err != nil {
			return fmt.Errorf("list delivered orders: %w", err)
		}

		return sh.End(strings.TrimSpace(location), Summarize(delivered), now)
	})
	if err != nil {
		return nil, fmt.Errorf("end shift %s: %w", shiftID, err)
	}

	if sh.Summary != nil && sh.Summary.HasAnomaly() {
		s.log.Warn("shift ended with unconfirmed cash orders",
			"shift_id", sh.ID, "driver_id", sh.DriverID, "pending", sh.Summary.PendingCashOrderCount)
	}
	s.log.Info("shift ended", "shift_id", sh.ID, "delivered", sh.TotalOrdersDelivered, "cash", sh.TotalCashCollected)

	return sh, nil
}

// Summary previews the reconciliation for a shift at any time.
func (s *ShiftService) Summary(ctx context.Context, shiftID string) (domain.ShiftSummary, error) {
	sh, err := s.shifts.Get(ctx, shiftID)
	if err != nil {
		return domain.ShiftSummary{}, fmt.Errorf("shift summary %s: %w", shiftID, err)
	}

	if sh.Summary != nil {
		return *sh.Summary, nil
	}

	delivered, err := s.orders.ListDelivered(ctx, sh.DriverID, sh.StartedAt, s.now())
	if err != nil {
		return domain.ShiftSummary{}, fmt.Errorf("shift summary %s: %w", shiftID, err)
	}
	return Summarize(delivered), nil
}

// IsNotFound reports whether err is one of the domain not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrShiftNotFound) ||
		errors.Is(err, domain.ErrBreakNotFound) ||
		errors.Is(err, domain.ErrOrderNotFound)
}
