package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"delivery-ops-service/internal/api/dto"
	"delivery-ops-service/internal/domain"
)

const maxStops = 200

// OptimizeRoute sequences an ad-hoc list of stops. Provider outages never
// fail the request; the result says whether it was optimized.
func (h *Handler) OptimizeRoute(w http.ResponseWriter, r *http.Request) {
	var req dto.OptimizeRouteRequest
	if !decodeJSON(w, r, h.log, &req, false) {
		return
	}
	if len(req.Stops) > maxStops {
		writeDomainError(w, r, h.log, domain.Validationf("at most %d stops per request", maxStops))
		return
	}

	start := h.deps.DefaultStart
	if req.Start != nil {
		start = *req.Start
	}

	res, err := h.deps.Optimizer.OptimizeRoute(r.Context(), req.Stops, start)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, r, h.log, http.StatusOK, dto.RouteResponse{Success: true, RouteOptimizationResult: res})
}

// PlanDriverRoute sequences the driver's remaining orders and stores the ETAs.
func (h *Handler) PlanDriverRoute(w http.ResponseWriter, r *http.Request) {
	driverID := strings.TrimSpace(chi.URLParam(r, "driverId"))

	var req dto.DriverRouteRequest
	if !decodeJSON(w, r, h.log, &req, true) {
		return
	}

	start := h.deps.DefaultStart
	if req.Start != nil {
		start = *req.Start
	}

	res, err := h.deps.Planner.PlanDriverRoute(r.Context(), driverID, start)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, r, h.log, http.StatusOK, dto.RouteResponse{Success: true, RouteOptimizationResult: res})
}
