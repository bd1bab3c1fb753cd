package handlers

import (
	"log/slog"
	"net/http"

	"delivery-ops-service/internal/api/dto"
)

// Health provides a minimal liveness check endpoint.
func Health(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, log, http.StatusOK, dto.HealthResponse{Success: true, Status: "ok"})
	}
}
