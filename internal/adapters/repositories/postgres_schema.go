package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InitSchema creates the Postgres tables and indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createOrdersQuery := `
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		customer_name TEXT NOT NULL DEFAULT '',
		customer_phone TEXT NOT NULL DEFAULT '',
		customer_email TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		delivery_time_window TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		items JSONB NOT NULL DEFAULT '[]',
		total_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		payment_method TEXT NOT NULL DEFAULT '',
		payment_status TEXT NOT NULL,
		assigned_driver_id TEXT NOT NULL DEFAULT '',
		estimated_arrival TEXT NOT NULL DEFAULT '',
		delay_minutes INTEGER NOT NULL DEFAULT 0,
		cancel_reason TEXT NOT NULL DEFAULT '',
		notes JSONB NOT NULL DEFAULT '[]',
		delivered_at TIMESTAMPTZ,
		cash_confirmed_at TIMESTAMPTZ,
		cash_confirmed_by TEXT NOT NULL DEFAULT '',
		receipt_sent BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createOrdersDeliveredIndex := `
	CREATE INDEX IF NOT EXISTS idx_orders_driver_delivered
	ON orders (assigned_driver_id, delivered_at)
	WHERE status = 'delivered';
	`

	createShiftsQuery := `
	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		driver_id TEXT NOT NULL,
		driver_name TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		break_minutes INTEGER NOT NULL DEFAULT 0,
		total_orders_delivered INTEGER NOT NULL DEFAULT 0,
		total_cash_collected DOUBLE PRECISION NOT NULL DEFAULT 0,
		start_location TEXT NOT NULL DEFAULT '',
		end_location TEXT NOT NULL DEFAULT '',
		summary JSONB
	);
	`

	// One open shift per driver, enforced by the database.
	createOpenShiftIndex := `
	CREATE UNIQUE INDEX IF NOT EXISTS uq_shifts_open_driver
	ON shifts (driver_id)
	WHERE status IN ('active', 'paused');
	`

	createBreaksQuery := `
	CREATE TABLE IF NOT EXISTS breaks (
		id TEXT PRIMARY KEY,
		driver_id TEXT NOT NULL,
		shift_id TEXT NOT NULL REFERENCES shifts(id),
		type TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		duration_minutes INTEGER NOT NULL DEFAULT 0
	);
	`

	createOpenBreakIndex := `
	CREATE UNIQUE INDEX IF NOT EXISTS uq_breaks_open_shift
	ON breaks (shift_id)
	WHERE ended_at IS NULL;
	`

	statements := []string{
		createOrdersQuery,
		createOrdersDeliveredIndex,
		createShiftsQuery,
		createOpenShiftIndex,
		createBreaksQuery,
		createOpenBreakIndex,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
