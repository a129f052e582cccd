package handlers

import (
	"commute-area-service/internal/platform/obs"
	"commute-area-service/internal/ports"
	"commute-area-service/internal/services/commute"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("req_id", obs.RequestID(r.Context())),
			zap.Error(err),
		)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// decodeJSON reads exactly one JSON object into v, rejecting unknown fields.
// It writes the 400 response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// statusFor maps manager and provider failures onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ports.ErrIsochroneNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, ports.ErrRangeExceeded):
		return http.StatusBadRequest
	case errors.Is(err, commute.ErrAreaNotFound):
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func writeOperationError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, statusFor(err), commute.Message(err))
}
