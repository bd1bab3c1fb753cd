package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"delivery-ops-service/internal/api/dto"
	"delivery-ops-service/internal/domain"
	"delivery-ops-service/internal/ports"
)

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	driverID := strings.TrimSpace(r.URL.Query().Get("driverId"))

	orders, err := h.deps.Orders.List(r.Context(), driverID)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	writeJSON(w, r, h.log, http.StatusOK, dto.ListOrdersResponse{
		Success:    true,
		Orders:     orders,
		Count:      len(orders),
		DataSource: h.deps.Orders.DataSource(),
	})
}

func (h *Handler) SyncOrders(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Orders.Sync(r.Context())
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, r, h.log, http.StatusOK, dto.SyncResponse{Success: true, Imported: res.Imported, DataSource: res.DataSource})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.deps.Orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, r, h.log, http.StatusOK, dto.OrderResponse{Success: true, Order: o})
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateStatusRequest
	if !decodeJSON(w, r, h.log, &req, false) {
		return
	}

	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}

	o, err := h.deps.Orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), domain.StatusChange{
		Status:       status,
		Note:         req.Notes,
		DelayMinutes: req.DelayMinutes,
		CancelReason: req.CancelReason,
		ConfirmedBy:  strings.TrimSpace(req.ConfirmedBy),
		DriverID:     strings.TrimSpace(req.DriverID),
	})
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, r, h.log, http.StatusOK, dto.OrderResponse{Success: true, Order: o})
}

func (h *Handler) ConfirmCashPayment(w http.ResponseWriter, r *http.Request) {
	var req dto.CashPaymentRequest
	if !decodeJSON(w, r, h.log, &req, true) {
		return
	}

	o, err := h.deps.Orders.ConfirmCash(r.Context(), chi.URLParam(r, "id"), req.ConfirmedBy)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, r, h.log, http.StatusOK, dto.OrderResponse{Success: true, Order: o})
}

func (h *Handler) UndoDelivery(w http.ResponseWriter, r *http.Request) {
	var req dto.UndoDeliveryRequest
	if !decodeJSON(w, r, h.log, &req, true) {
		return
	}

	o, err := h.deps.Orders.UndoDelivery(r.Context(), chi.URLParam(r, "id"), req.Note)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, r, h.log, http.StatusOK, dto.OrderResponse{Success: true, Order: o})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, mode, err := h.deps.Orders.Catalog(r.Context())
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	if products == nil {
		products = []ports.Product{}
	}
	writeJSON(w, r, h.log, http.StatusOK, dto.ProductsResponse{Success: true, Products: products, DataSource: mode})
}
