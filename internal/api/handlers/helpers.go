package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"delivery-ops-service/internal/api/dto"
	"delivery-ops-service/internal/domain"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("encode failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, status int, code, msg string) {
	writeJSON(w, r, log, status, dto.ErrorResponse{Success: false, Error: msg, Code: code})
}

// writeDomainError maps domain error codes onto HTTP statuses. Anything that
// is not a domain error is logged and reported as a generic 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		log.Error("request failed",
			"req_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, r, log, http.StatusInternalServerError, "", "internal server error")
		return
	}

	writeError(w, r, log, statusFor(derr.Code), string(derr.Code), derr.Message)
}

func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeOrderNotFound, domain.CodeShiftNotFound, domain.CodeBreakNotFound:
		return http.StatusNotFound
	case domain.CodeAlreadyActive, domain.CodeNoActiveShift, domain.CodeBreakInProgress,
		domain.CodeBreakNotOpen, domain.CodeInvalidTransition:
		return http.StatusConflict
	case domain.CodeNotCashOrder:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads exactly one JSON object. An empty body leaves dst
// untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return true
		}
		writeError(w, r, log, http.StatusBadRequest, string(domain.CodeValidation), "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, log, http.StatusBadRequest, string(domain.CodeValidation), "body must contain only one JSON object")
		return false
	}
	return true
}
