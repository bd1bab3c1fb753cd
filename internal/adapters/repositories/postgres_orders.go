package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/platform/obs"
)

const orderColumns = `
	id, customer_name, customer_phone, customer_email, address, postal_code,
	lat, lng, delivery_time_window, status, items, total_amount,
	payment_method, payment_status, assigned_driver_id, estimated_arrival,
	delay_minutes, cancel_reason, notes, delivered_at, cash_confirmed_at,
	cash_confirmed_by, receipt_sent, updated_at`

// PostgresOrderStore persists orders in Postgres.
type PostgresOrderStore struct {
	DB  *sql.DB
	log *slog.Logger
}

func NewPostgresOrderStore(db *sql.DB, log *slog.Logger) *PostgresOrderStore {
	return &PostgresOrderStore{DB: db, log: log}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                  domain.Order
		lat, lng           sql.NullFloat64
		items, notes       []byte
		delivered, confirm sql.NullTime
	)

	err := row.Scan(
		&o.ID, &o.CustomerName, &o.CustomerPhone, &o.CustomerEmail, &o.Address, &o.PostalCode,
		&lat, &lng, &o.DeliveryTimeWindow, &o.Status, &items, &o.TotalAmount,
		&o.PaymentMethod, &o.PaymentStatus, &o.AssignedDriverID, &o.EstimatedArrival,
		&o.DelayMinutes, &o.CancelReason, &notes, &delivered, &confirm,
		&o.CashConfirmedBy, &o.ReceiptSent, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid && lng.Valid {
		o.Coordinates = &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of order %s: %w", o.ID, err)
	}
	if err := json.Unmarshal(notes, &o.Notes); err != nil {
		return nil, fmt.Errorf("decode notes of order %s: %w", o.ID, err)
	}
	o.DeliveredAt = timeOrNil(delivered)
	o.CashConfirmedAt = timeOrNil(confirm)

	return &o, nil
}

func orderArgs(o *domain.Order) ([]any, error) {
	items, err := json.Marshal(nonNil(o.Items))
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	notes, err := json.Marshal(nonNil(o.Notes))
	if err != nil {
		return nil, fmt.Errorf("encode notes: %w", err)
	}

	var lat, lng sql.NullFloat64
	if o.Coordinates != nil {
		lat = sql.NullFloat64{Float64: o.Coordinates.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: o.Coordinates.Lng, Valid: true}
	}

	updated := o.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	return []any{
		o.ID, o.CustomerName, o.CustomerPhone, o.CustomerEmail, o.Address, o.PostalCode,
		lat, lng, o.DeliveryTimeWindow, string(o.Status), items, o.TotalAmount,
		string(o.PaymentMethod), string(o.PaymentStatus), o.AssignedDriverID, o.EstimatedArrival,
		o.DelayMinutes, o.CancelReason, notes, nullTime(o.DeliveredAt), nullTime(o.CashConfirmedAt),
		o.CashConfirmedBy, o.ReceiptSent, updated,
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (s *PostgresOrderStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	row := conn(ctx, s.DB).QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, orderNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return o, nil
}

func (s *PostgresOrderStore) List(ctx context.Context, driverID string) (_ []*domain.Order, err error) {
	defer obs.Time(ctx, s.log, "orders.store.List")(&err)

	q := `SELECT ` + orderColumns + ` FROM orders WHERE ($1 = '' OR assigned_driver_id = $1) ORDER BY id`
	return s.query(ctx, q, driverID)
}

func (s *PostgresOrderStore) ListDelivered(ctx context.Context, driverID string, from, to time.Time) (_ []*domain.Order, err error) {
	defer obs.Time(ctx, s.log, "orders.store.ListDelivered")(&err)

	q := `SELECT ` + orderColumns + ` FROM orders
	WHERE status = 'delivered'
		AND assigned_driver_id = $1
		AND delivered_at BETWEEN $2 AND $3
	ORDER BY delivered_at`
	return s.query(ctx, q, driverID, from, to)
}

func (s *PostgresOrderStore) query(ctx context.Context, q string, args ...any) ([]*domain.Order, error) {
	rows, err := conn(ctx, s.DB).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query orders: row iteration: %w", err)
	}
	return out, nil
}

// Upsert inserts new orders and refreshes source-owned columns of existing
// ones. Status, payment and driver timestamps are left alone on conflict.
func (s *PostgresOrderStore) Upsert(ctx context.Context, orders []*domain.Order) (err error) {
	defer obs.Time(ctx, s.log, "orders.store.Upsert")(&err)

	if len(orders) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert orders: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO orders (`+orderColumns+`)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	ON CONFLICT (id) DO UPDATE SET
		customer_name = EXCLUDED.customer_name,
		customer_phone = EXCLUDED.customer_phone,
		customer_email = EXCLUDED.customer_email,
		address = EXCLUDED.address,
		postal_code = EXCLUDED.postal_code,
		lat = COALESCE(orders.lat, EXCLUDED.lat),
		lng = COALESCE(orders.lng, EXCLUDED.lng),
		delivery_time_window = EXCLUDED.delivery_time_window,
		items = EXCLUDED.items,
		total_amount = EXCLUDED.total_amount,
		payment_method = EXCLUDED.payment_method,
		assigned_driver_id = COALESCE(NULLIF(EXCLUDED.assigned_driver_id, ''), orders.assigned_driver_id)
	`)
	if err != nil {
		return fmt.Errorf("upsert orders: prepare: %w", err)
	}
	defer stmt.Close()

	for _, o := range orders {
		if o == nil {
			continue
		}
		in := *o
		if in.Status == "" {
			in.Status = domain.StatusPending
		}
		if in.PaymentStatus == "" {
			in.PaymentStatus = domain.PaymentUnpaid
		}

		args, err := orderArgs(&in)
		if err != nil {
			return fmt.Errorf("upsert order %s: %w", in.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("upsert order %s: %w", in.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert orders: commit: %w", err)
	}
	return nil
}

// Update locks the row for the duration of mutate.
func (s *PostgresOrderStore) Update(ctx context.Context, id string, mutate func(*domain.Order) error) (_ *domain.Order, err error) {
	defer obs.Time(ctx, s.log, "orders.store.Update")(&err)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update order %s: begin: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, orderNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("update order %s: load: %w", id, err)
	}

	if err := mutate(o); err != nil {
		return nil, err
	}

	args, err := orderArgs(o)
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", id, err)
	}

	_, err = tx.ExecContext(ctx, `
	UPDATE orders SET
		customer_name = $2, customer_phone = $3, customer_email = $4, address = $5, postal_code = $6,
		lat = $7, lng = $8, delivery_time_window = $9, status = $10, items = $11, total_amount = $12,
		payment_method = $13, payment_status = $14, assigned_driver_id = $15, estimated_arrival = $16,
		delay_minutes = $17, cancel_reason = $18, notes = $19, delivered_at = $20, cash_confirmed_at = $21,
		cash_confirmed_by = $22, receipt_sent = $23, updated_at = $24
	WHERE id = $1`, args...)
	if err != nil {
		return nil, fmt.Errorf("update order %s: write: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update order %s: commit: %w", id, err)
	}
	return o, nil
}
