package handlers

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/ports"
	"delivery-ops-service/internal/services"
)

type OrderService interface {
	Sync(ctx context.Context) (services.SyncResult, error)
	DataSource() ports.DataSourceMode
	Catalog(ctx context.Context) ([]ports.Product, ports.DataSourceMode, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, driverID string) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, ch domain.StatusChange) (*domain.Order, error)
	ConfirmCash(ctx context.Context, id, confirmedBy string) (*domain.Order, error)
	UndoDelivery(ctx context.Context, id, note string) (*domain.Order, error)
}

type ShiftService interface {
	StartShift(ctx context.Context, driverID, driverName, location string) (*domain.Shift, error)
	ActiveShift(ctx context.Context, driverID string) (*domain.Shift, error)
	StartBreak(ctx context.Context, driverID, shiftID string, t domain.BreakType) (*domain.Break, error)
	EndBreak(ctx context.Context, driverID, breakID string) (*domain.Break, error)
	EndShift(ctx context.Context, shiftID, driverID, location string) (*domain.Shift, error)
	Summary(ctx context.Context, shiftID string) (domain.ShiftSummary, error)
}

type RouteOptimizer interface {
	OptimizeRoute(ctx context.Context, stops []domain.DeliveryStop, start domain.Coordinates) (*domain.RouteOptimizationResult, error)
}

type DriverRoutePlanner interface {
	PlanDriverRoute(ctx context.Context, driverID string, start domain.Coordinates) (*domain.RouteOptimizationResult, error)
}

type HandlerDeps struct {
	Orders    OrderService
	Shifts    ShiftService
	Optimizer RouteOptimizer
	Planner   DriverRoutePlanner
	// DefaultStart is the depot used when a route request has no start.
	DefaultStart domain.Coordinates
}

// Handler serves the driver-facing API.
type Handler struct {
	deps HandlerDeps
	log  *slog.Logger
}

func NewHandler(deps HandlerDeps, log *slog.Logger) *Handler {
	return &Handler{deps: deps, log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", Health(h.log))

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Post("/sync", h.SyncOrders)
		r.Get("/{id}", h.GetOrder)
		r.Put("/{id}/status", h.UpdateOrderStatus)
		r.Post("/{id}/cash-payment", h.ConfirmCashPayment)
		r.Post("/{id}/undo-delivery", h.UndoDelivery)
	})
	r.Get("/products", h.ListProducts)

	r.Post("/routes/optimize", h.OptimizeRoute)
	r.Post("/drivers/{driverId}/route", h.PlanDriverRoute)

	r.Route("/shifts", func(r chi.Router) {
		r.Post("/start", h.StartShift)
		r.Post("/end", h.EndShift)
		r.Get("/active", h.ActiveShift)
		r.Post("/breaks/start", h.StartBreak)
		r.Post("/breaks/end", h.EndBreak)
		r.Get("/{id}/summary", h.ShiftSummary)
	})
}
