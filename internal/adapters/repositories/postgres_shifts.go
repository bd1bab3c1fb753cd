package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
)

const (
	shiftColumns = `
	id, driver_id, driver_name, started_at, ended_at, status, break_minutes,
	total_orders_delivered, total_cash_collected, start_location, end_location, summary`

	breakColumns = `id, driver_id, shift_id, type, started_at, ended_at, duration_minutes`

	openShiftIndex = "uq_shifts_open_driver"
)

// PostgresShiftStore persists shifts. Update runs mutate inside a transaction
// holding the shift row lock; PostgresBreakStore calls made with the context
// passed to mutate join that transaction.
type PostgresShiftStore struct {
	DB  *sql.DB
	log *slog.Logger
}

func NewPostgresShiftStore(db *sql.DB, log *slog.Logger) *PostgresShiftStore {
	return &PostgresShiftStore{DB: db, log: log}
}

func scanShift(row rowScanner) (*domain.Shift, error) {
	var (
		sh      domain.Shift
		ended   sql.NullTime
		summary []byte
	)

	err := row.Scan(
		&sh.ID, &sh.DriverID, &sh.DriverName, &sh.StartedAt, &ended, &sh.Status, &sh.BreakMinutesAccumulated,
		&sh.TotalOrdersDelivered, &sh.TotalCashCollected, &sh.StartLocation, &sh.EndLocation, &summary,
	)
	if err != nil {
		return nil, err
	}

	sh.EndedAt = timeOrNil(ended)
	if len(summary) > 0 {
		var v domain.ShiftSummary
		if err := json.Unmarshal(summary, &v); err != nil {
			return nil, fmt.Errorf("decode summary of shift %s: %w", sh.ID, err)
		}
		sh.Summary = &v
	}

	return &sh, nil
}

func (s *PostgresShiftStore) Create(ctx context.Context, sh *domain.Shift) (err error) {
	defer obs.Time(ctx, s.log, "shifts.store.Create")(&err)

	_, err = conn(ctx, s.DB).ExecContext(ctx, `
	INSERT INTO shifts (id, driver_id, driver_name, started_at, status, start_location)
	VALUES ($1, $2, $3, $4, $5, $6)`,
		sh.ID, sh.DriverID, sh.DriverName, sh.StartedAt, string(sh.Status), sh.StartLocation,
	)
	if isUniqueViolation(err, openShiftIndex) {
		return domain.ErrAlreadyActive
	}
	if err != nil {
		return fmt.Errorf("create shift: %w", err)
	}
	return nil
}

func (s *PostgresShiftStore) Get(ctx context.Context, id string) (*domain.Shift, error) {
	row := conn(ctx, s.DB).QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id)

	sh, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shiftNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get shift %s: %w", id, err)
	}
	return sh, nil
}

func (s *PostgresShiftStore) GetOpenByDriver(ctx context.Context, driverID string) (*domain.Shift, error) {
	row := conn(ctx, s.DB).QueryRowContext(ctx, `
	SELECT `+shiftColumns+` FROM shifts
	WHERE driver_id = $1 AND status IN ('active', 'paused')`, driverID)

	sh, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open shift for driver %s: %w", driverID, err)
	}
	return sh, nil
}

func (s *PostgresShiftStore) Update(ctx context.Context, id string, mutate func(ctx context.Context, sh *domain.Shift) error) (_ *domain.Shift, err error) {
	defer obs.Time(ctx, s.log, "shifts.store.Update")(&err)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update shift %s: begin: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1 FOR UPDATE`, id)
	sh, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shiftNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("update shift %s: load: %w", id, err)
	}

	if err := mutate(withTx(ctx, tx), sh); err != nil {
		return nil, err
	}

	var summary []byte
	if sh.Summary != nil {
		if summary, err = json.Marshal(sh.Summary); err != nil {
			return nil, fmt.Errorf("update shift %s: encode summary: %w", id, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
	UPDATE shifts SET
		ended_at = $2, status = $3, break_minutes = $4, total_orders_delivered = $5,
		total_cash_collected = $6, end_location = $7, summary = $8
	WHERE id = $1`,
		sh.ID, nullTime(sh.EndedAt), string(sh.Status), sh.BreakMinutesAccumulated, sh.TotalOrdersDelivered,
		sh.TotalCashCollected, sh.EndLocation, summary,
	)
	if err != nil {
		return nil, fmt.Errorf("update shift %s: write: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update shift %s: commit: %w", id, err)
	}
	return sh, nil
}

// PostgresBreakStore persists breaks.
type PostgresBreakStore struct {
	DB *sql.DB
}

func NewPostgresBreakStore(db *sql.DB) *PostgresBreakStore {
	return &PostgresBreakStore{DB: db}
}

func scanBreak(row rowScanner) (*domain.Break, error) {
	var (
		b     domain.Break
		ended sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.DriverID, &b.ShiftID, &b.Type, &b.StartedAt, &ended, &b.DurationMinutes); err != nil {
		return nil, err
	}
	b.EndedAt = timeOrNil(ended)
	return &b, nil
}

func (s *PostgresBreakStore) Create(ctx context.Context, b *domain.Break) error {
	_, err := conn(ctx, s.DB).ExecContext(ctx, `
	INSERT INTO breaks (`+breakColumns+`)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.DriverID, b.ShiftID, string(b.Type), b.StartedAt, nullTime(b.EndedAt), b.DurationMinutes,
	)
	if isUniqueViolation(err, "") {
		return &domain.Error{Code: domain.CodeNoActiveShift, Message: "shift " + b.ShiftID + " already has an open break"}
	}
	if err != nil {
		return fmt.Errorf("create break: %w", err)
	}
	return nil
}

func (s *PostgresBreakStore) Get(ctx context.Context, id string) (*domain.Break, error) {
	row := conn(ctx, s.DB).QueryRowContext(ctx, `SELECT `+breakColumns+` FROM breaks WHERE id = $1`, id)

	b, err := scanBreak(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.Error{Code: domain.CodeBreakNotFound, Message: "break " + id + " not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("get break %s: %w", id, err)
	}
	return b, nil
}

func (s *PostgresBreakStore) GetOpenByShift(ctx context.Context, shiftID string) (*domain.Break, error) {
	row := conn(ctx, s.DB).QueryRowContext(ctx, `
	SELECT `+breakColumns+` FROM breaks WHERE shift_id = $1 AND ended_at IS NULL`, shiftID)

	b, err := scanBreak(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open break for shift %s: %w", shiftID, err)
	}
	return b, nil
}

func (s *PostgresBreakStore) Save(ctx context.Context, b *domain.Break) error {
	res, err := conn(ctx, s.DB).ExecContext(ctx, `
	UPDATE breaks SET ended_at = $2, duration_minutes = $3 WHERE id = $1`,
		b.ID, nullTime(b.EndedAt), b.DurationMinutes,
	)
	if err != nil {
		return fmt.Errorf("save break %s: %w", b.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &domain.Error{Code: domain.CodeBreakNotFound, Message: "break " + b.ID + " not found"}
	}
	return nil
}
