package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"coiportal/internal/answers"
	"coiportal/internal/metrics"
	"coiportal/internal/service"

	"go.uber.org/zap"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string                   `json:"error"`
	Code    string                   `json:"code,omitempty"`
	Message string                   `json:"message"`
	Errors  answers.ValidationErrors `json:"errors,omitempty"`
}

// WriteError writes a standardized error response
func WriteError(w http.ResponseWriter, code int, errCode, message string, log *zap.Logger) {
	writeErrorResponse(w, code, ErrorResponse{Error: errCode, Code: errCode, Message: message}, log)
}

func writeErrorResponse(w http.ResponseWriter, code int, resp ErrorResponse, log *zap.Logger) {
	if code >= http.StatusInternalServerError {
		log.Error("API error", zap.String("code", resp.Code), zap.String("message", resp.Message))
	} else {
		log.Warn("API error", zap.Int("status", code), zap.String("code", resp.Code), zap.String("message", resp.Message))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps service sentinels to HTTP statuses
func writeServiceError(w http.ResponseWriter, err error, log *zap.Logger) {
	if verrs, ok := service.IsValidation(err); ok {
		writeErrorResponse(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation_failed",
			Code:    "validation_failed",
			Message: verrs.Error(),
			Errors:  verrs,
		}, log)
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", err.Error(), log)
	case errors.Is(err, service.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", err.Error(), log)
	case errors.Is(err, service.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), log)
	case errors.Is(err, answers.ErrReadOnly):
		WriteError(w, http.StatusConflict, "read_only", err.Error(), log)
	case errors.Is(err, service.ErrPlanRequired):
		WriteError(w, http.StatusConflict, "plan_required", err.Error(), log)
	case errors.Is(err, service.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, "invalid_transition", err.Error(), log)
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error(), log)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// RequestLogger logs HTTP requests and records their latency
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip wrapping for WebSocket upgrades - they need direct access to ResponseWriter
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(wrapped.statusCode)).Observe(duration.Seconds())

			log.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", duration),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func pageParams(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
