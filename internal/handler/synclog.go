package handler

import (
	"net/http"
	"time"

	"github.com/osse101/FieldSync_Go/internal/eventlog"
)

// HandleListSyncLog returns recent bulk-sync outcomes, newest first
// @Summary List sync log entries
// @Tags sync
// @Produce json
// @Param table query string false "Filter by table"
// @Param status query string false "applied or failed"
// @Param since query string false "RFC3339 lower bound"
// @Param limit query int false "Maximum entries"
// @Success 200 {array} domain.SyncLogEntry
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /sync-log [get]
func HandleListSyncLog(svc eventlog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := getNonNegativeIntParam(w, r, "limit")
		if !ok {
			return
		}

		filter := eventlog.Filter{
			TableName: GetOptionalQueryParam(r, "table", ""),
			Status:    GetOptionalQueryParam(r, "status", ""),
			Limit:     limit,
		}
		if raw := GetOptionalQueryParam(r, "since", ""); raw != "" {
			since, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				respondError(w, http.StatusBadRequest, ErrMsgInvalidRequestSummary, "since must be RFC3339")
				return
			}
			filter.Since = &since
		}

		entries, err := svc.Recent(r.Context(), filter)
		if err != nil {
			respondServiceError(w, r, "List sync log failed", err)
			return
		}
		respondJSON(w, http.StatusOK, entries)
	}
}
