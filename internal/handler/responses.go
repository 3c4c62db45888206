package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/logger"
)

// MessageResponse represents a simple message body
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response. Error carries detail the
// caller can act on and is omitted for server faults.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// encoded bodies are staged here so an encode failure can still become a 500
var bodyPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 1024))
	},
}

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	buf := bodyPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		bodyPool.Put(buf)
	}()

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		slog.Error(LogMsgEncodeResponseFailed, "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"` + ErrMsgServerError + `"}` + "\n"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error(LogMsgWriteResponseFailed, "error", err)
	}
}

// respondMessage sends {"message": msg}
func respondMessage(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, MessageResponse{Message: msg})
}

// respondError sends {"message": msg, "error": detail}
func respondError(w http.ResponseWriter, status int, msg, detail string) {
	respondJSON(w, status, ErrorResponse{Message: msg, Error: detail})
}

// mapServiceError maps domain errors to an HTTP status and message.
// Client faults keep the error text as detail; server faults do not.
func mapServiceError(err error) (status int, msg string, detail string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, ErrMsgServerError, ""
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrMsgTimeout, ""
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrMsgInvalidCredentials, ""
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, ErrMsgForbidden, ""
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrMsgRecordNotFound, ""
	case errors.Is(err, domain.ErrSessionAlreadyOpen), errors.Is(err, domain.ErrConstraintViolation):
		return http.StatusConflict, ErrMsgConflict, err.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, ErrMsgInvalidRequestSummary, err.Error()
	case errors.Is(err, domain.ErrStorageUnavailable), errors.Is(err, domain.ErrNotInitialized):
		return http.StatusServiceUnavailable, ErrMsgUnavailable, ""
	default:
		return http.StatusInternalServerError, ErrMsgServerError, ""
	}
}

// respondServiceError logs err and writes the mapped response
func respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg, detail := mapServiceError(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(op, "error", err)
	} else {
		log.Warn(op, "error", err, "status", status)
	}
	respondError(w, status, msg, detail)
}
