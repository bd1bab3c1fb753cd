package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/ports"
)

var testDay = time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)

func coords(lat, lng float64) *domain.Coordinates {
	return &domain.Coordinates{Lat: lat, Lng: lng}
}

// stubGeocoder resolves addresses from a fixed table.
type stubGeocoder struct {
	known map[string]domain.Coordinates
	calls atomic.Int32
	delay time.Duration
}

func (g *stubGeocoder) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	g.calls.Add(1)
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return domain.Coordinates{}, ctx.Err()
		}
	}
	c, ok := g.known[address]
	if !ok {
		return domain.Coordinates{}, ports.ErrNotFound
	}
	return c, nil
}

type batchFunc func(ctx context.Context, addresses []string) []*domain.Coordinates

func (f batchFunc) GeocodeAll(ctx context.Context, addresses []string) []*domain.Coordinates {
	return f(ctx, addresses)
}

type matrixFunc func(ctx context.Context, points []domain.Coordinates) domain.TravelMatrix

func (f matrixFunc) PairwiseTravelTimes(ctx context.Context, points []domain.Coordinates) domain.TravelMatrix {
	return f(ctx, points)
}

func fixedMatrix(m domain.TravelMatrix) matrixFunc {
	return func(context.Context, []domain.Coordinates) domain.TravelMatrix { return m }
}

// stubMatrixProvider answers with m or err, optionally after a delay.
type stubMatrixProvider struct {
	m     domain.TravelMatrix
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (p *stubMatrixProvider) TravelMatrix(ctx context.Context, points []domain.Coordinates) (domain.TravelMatrix, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return domain.TravelMatrix{}, ctx.Err()
		}
	}
	return p.m, p.err
}

type notification struct {
	Phone  string
	Kind   ports.TemplateKind
	Params map[string]string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, phone string, kind ports.TemplateKind, params map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{Phone: phone, Kind: kind, Params: params})
	return n.err
}

func (n *recordingNotifier) Sent() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

type recordingReceipts struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingReceipts) SendReceipt(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, o.ID)
	return nil
}

type recordingEvents struct {
	mu     sync.Mutex
	topics []string
	msgs   [][]byte
}

func (e *recordingEvents) Publish(ctx context.Context, topic string, msg []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.topics = append(e.topics, topic)
	e.msgs = append(e.msgs, msg)
	return nil
}

type statusWrite struct {
	ID     string
	Status domain.OrderStatus
}

// stubDataSource serves a fixed order list and records write-backs.
type stubDataSource struct {
	orders   []*domain.Order
	products []ports.Product
	mode     ports.DataSourceMode
	err      error

	mu     sync.Mutex
	writes []statusWrite
	notes  []string
}

func (s *stubDataSource) TodaysOrders(ctx context.Context) ([]*domain.Order, ports.DataSourceMode, error) {
	return s.orders, s.mode, s.err
}

func (s *stubDataSource) ProductCatalog(ctx context.Context) ([]ports.Product, ports.DataSourceMode, error) {
	return s.products, s.mode, s.err
}

func (s *stubDataSource) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, statusWrite{ID: id, Status: status})
	return nil
}

func (s *stubDataSource) AddOrderNote(ctx context.Context, id string, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, note)
	return nil
}

func (s *stubDataSource) Writes() []statusWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]statusWrite(nil), s.writes...)
}

// clock is a settable time source for services under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
