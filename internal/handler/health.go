package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/osse101/FieldSync_Go/internal/database"
)

// HealthResponse represents the response for health endpoints
type HealthResponse struct {
	Status    string `json:"status"`
	Component string `json:"component,omitempty"`
	Message   string `json:"message,omitempty"`
}

const readinessTimeout = 2 * time.Second

// Readiness components
const (
	ComponentDatabase = "database"
	ComponentRegistry = "registry"
)

// HandleHealthz provides a basic liveness check
// @Summary Liveness check
// @Description Returns OK if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func HandleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}

// ReadinessCheck is one dependency probed by /readyz
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HandleReadyz reports ready once the database answers and every extra
// check passes, in order. The first failure names its component.
// @Summary Readiness check
// @Description Returns OK when the database is reachable and the table registry matches its schema
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /readyz [get]
func HandleReadyz(dbPool database.Pool, checks ...ReadinessCheck) http.HandlerFunc {
	all := append([]ReadinessCheck{{Name: ComponentDatabase, Check: dbPool.Ping}}, checks...)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		for _, c := range all {
			if err := c.Check(ctx); err != nil {
				slog.Error(LogMsgReadinessFailed, "component", c.Name, "error", err)
				respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
					Status:    "unavailable",
					Component: c.Name,
					Message:   c.Name + " check failed",
				})
				return
			}
		}

		respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
