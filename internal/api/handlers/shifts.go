package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"delivery-ops-service/internal/api/dto"
	"delivery-ops-service/internal/domain"
)

func (h *Handler) StartShift(w http.ResponseWriter, r *http.Request) {
	var req dto.StartShiftRequest
	if !decodeJSON(w, r, h.log, &req, false) {
		return
	}

	sh, err := h.deps.Shifts.StartShift(r.Context(), strings.TrimSpace(req.DriverID), strings.TrimSpace(req.DriverName), req.Location)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, r, h.log, http.StatusCreated, dto.ShiftResponse{Success: true, Shift: sh})
}

func (h *Handler) ActiveShift(w http.ResponseWriter, r *http.Request) {
	driverID := strings.TrimSpace(r.URL.Query().Get("driverId"))
	if driverID == "" {
		writeDomainError(w, r, h.log, domain.Validationf("driverId is required"))
		return
	}

	sh, err := h.deps.Shifts.ActiveShift(r.Context(), driverID)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, r, h.log, http.StatusOK, dto.ShiftResponse{Success: true, Shift: sh})
}

// EndShift closes the shift and returns it with the cash reconciliation.
func (h *Handler) EndShift(w http.ResponseWriter, r *http.Request) {
	var req dto.EndShiftRequest
	if !decodeJSON(w, r, h.log, &req, false) {
		return
	}
	if strings.TrimSpace(req.ShiftID) == "" {
		writeDomainError(w, r, h.log, domain.Validationf("shiftId is required"))
		return
	}

	sh, err := h.deps.Shifts.EndShift(r.Context(), strings.TrimSpace(req.ShiftID), strings.TrimSpace(req.DriverID), req.Location)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, r, h.log, http.StatusOK, dto.ShiftResponse{Success: true, Shift: sh})
}

func (h *Handler) StartBreak(w http.ResponseWriter, r *http.Request) {
	var req dto.StartBreakRequest
	if !decodeJSON(w, r, h.log, &req, false) {
		return
	}

	bt, err := domain.ParseBreakType(req.Type)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}

	b, err := h.deps.Shifts.StartBreak(r.Context(), strings.TrimSpace(req.DriverID), strings.TrimSpace(req.ShiftID), bt)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, r, h.log, http.StatusCreated, dto.BreakResponse{Success: true, Break: b})
}

func (h *Handler) EndBreak(w http.ResponseWriter, r *http.Request) {
	var req dto.EndBreakRequest
	if !decodeJSON(w, r, h.log, &req, false) {
		return
	}
	if strings.TrimSpace(req.BreakID) == "" {
		writeDomainError(w, r, h.log, domain.Validationf("breakId is required"))
		return
	}

	b, err := h.deps.Shifts.EndBreak(r.Context(), strings.TrimSpace(req.DriverID), strings.TrimSpace(req.BreakID))
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, r, h.log, http.StatusOK, dto.BreakResponse{Success: true, Break: b})
}

func (h *Handler) ShiftSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sum, err := h.deps.Shifts.Summary(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, r, h.log, http.StatusOK, dto.SummaryResponse{Success: true, ShiftID: id, Summary: sum})
}
