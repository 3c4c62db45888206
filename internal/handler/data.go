package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/osse101/FieldSync_Go/internal/auth"
	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/logger"
	"github.com/osse101/FieldSync_Go/internal/reconciler"
)

// UpsertRequest is the body of POST and PUT /data/{table}. Clients may send
// the envelope {"record": {...}, "conflictTarget": "..."} or the columns
// flat next to conflictTarget.
type UpsertRequest struct {
	Record         domain.Record `json:"record" validate:"required"`
	ConflictTarget string        `json:"conflictTarget"`
}

// UnmarshalJSON accepts both body shapes. A body whose only keys are record
// (an object) and optionally conflictTarget is the envelope; anything else
// is a flat record.
func (u *UpsertRequest) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var body map[string]interface{}
	if err := dec.Decode(&body); err != nil {
		return err
	}

	if target, ok := body[fieldConflictTarget]; ok {
		s, ok := target.(string)
		if !ok {
			return errors.New(ErrMsgConflictTargetType)
		}
		u.ConflictTarget = s
		delete(body, fieldConflictTarget)
	}

	if inner, ok := body[fieldRecord]; ok && len(body) == 1 {
		rec, ok := inner.(map[string]interface{})
		if !ok {
			return errors.New(ErrMsgRecordType)
		}
		u.Record = domain.Record(rec)
		return nil
	}

	if len(body) > 0 {
		u.Record = domain.Record(body)
	}
	return nil
}

// BulkSyncRequest is the body of POST /data/bulk-sync/{table}
type BulkSyncRequest struct {
	Records        []domain.Record `json:"records"`
	ConflictTarget string          `json:"conflictTarget"`
}

// BulkSyncResponse reports the applied rows in input order
type BulkSyncResponse struct {
	Message  string          `json:"message"`
	Results  []domain.Record `json:"results"`
	Inserted int             `json:"inserted"`
	Updated  int             `json:"updated"`
	Replayed bool            `json:"replayed,omitempty"`
}

// DataHandler serves the generic table API over the reconciler
type DataHandler struct {
	svc reconciler.Service
}

// NewDataHandler creates a new DataHandler
func NewDataHandler(svc reconciler.Service) *DataHandler {
	return &DataHandler{svc: svc}
}

// resolveTable checks the allow-list and the restricted flag before any
// service call. On failure the response has already been written.
func resolveTable(w http.ResponseWriter, r *http.Request) (reconciler.TableSpec, bool) {
	table := chi.URLParam(r, "table")
	spec, ok := reconciler.Lookup(table)
	if !ok {
		logger.FromContext(r.Context()).Warn(LogMsgTableRejected, logger.AttrKeyTable, table)
		respondMessage(w, http.StatusBadRequest, fmt.Sprintf(ErrMsgTableNotAllowedFormat, table))
		return reconciler.TableSpec{}, false
	}
	if spec.Restricted && !auth.HasRole(r.Context(), domain.RoleTeamLeader) {
		logger.FromContext(r.Context()).Warn(LogMsgRestrictedTable, logger.AttrKeyTable, table)
		respondMessage(w, http.StatusForbidden, ErrMsgForbidden)
		return reconciler.TableSpec{}, false
	}
	return spec, true
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondMessage(w, http.StatusBadRequest, ErrMsgInvalidRecordID)
		return 0, false
	}
	return id, true
}

// HandleList returns the rows of a table in its default order
// @Summary List records
// @Tags data
// @Produce json
// @Param table path string true "Table name"
// @Param limit query int false "Maximum rows"
// @Param offset query int false "Rows to skip"
// @Param order_by query string false "Sort column"
// @Param desc query bool false "Sort descending"
// @Success 200 {array} object
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /data/{table} [get]
func (h *DataHandler) HandleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec, ok := resolveTable(w, r)
		if !ok {
			return
		}
		limit, ok := getNonNegativeIntParam(w, r, "limit")
		if !ok {
			return
		}
		offset, ok := getNonNegativeIntParam(w, r, "offset")
		if !ok {
			return
		}

		desc, _ := strconv.ParseBool(GetOptionalQueryParam(r, "desc", "false"))
		rows, err := h.svc.List(r.Context(), spec.Name, domain.ListOptions{
			OrderBy:    GetOptionalQueryParam(r, "order_by", ""),
			Descending: desc,
			Limit:      limit,
			Offset:     offset,
		})
		if err != nil {
			respondServiceError(w, r, "List records failed", err)
			return
		}
		respondJSON(w, http.StatusOK, rows)
	}
}

// HandleGet returns one row by id
// @Summary Get a record
// @Tags data
// @Produce json
// @Param table path string true "Table name"
// @Param id path int true "Record id"
// @Success 200 {object} object
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /data/{table}/{id} [get]
func (h *DataHandler) HandleGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec, ok := resolveTable(w, r)
		if !ok {
			return
		}
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		row, err := h.svc.Get(r.Context(), spec.Name, id)
		if err != nil {
			respondServiceError(w, r, "Get record failed", err)
			return
		}
		respondJSON(w, http.StatusOK, row)
	}
}

// HandleCreate upserts one record against the given conflict target
// @Summary Upsert a record
// @Tags data
// @Accept json
// @Produce json
// @Param table path string true "Table name"
// @Param request body UpsertRequest true "Record and conflict target"
// @Success 201 {object} object
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /data/{table} [post]
func (h *DataHandler) HandleCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec, ok := resolveTable(w, r)
		if !ok {
			return
		}

		var req UpsertRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Upsert record"); err != nil {
			return
		}
		if req.ConflictTarget == "" {
			respondMessage(w, http.StatusBadRequest, ErrMsgConflictTargetRequired)
			return
		}

		row, err := h.svc.Upsert(r.Context(), spec.Name, req.Record, req.ConflictTarget)
		if err != nil {
			respondServiceError(w, r, "Upsert record failed", err)
			return
		}
		respondJSON(w, http.StatusCreated, row)
	}
}

// HandleUpdate upserts the record with the path id merged in. The conflict
// target defaults to id.
// @Summary Update a record
// @Tags data
// @Accept json
// @Produce json
// @Param table path string true "Table name"
// @Param id path int true "Record id"
// @Param request body UpsertRequest true "Record and optional conflict target"
// @Success 200 {object} object
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /data/{table}/{id} [put]
func (h *DataHandler) HandleUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec, ok := resolveTable(w, r)
		if !ok {
			return
		}
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		var req UpsertRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Update record"); err != nil {
			return
		}
		record := req.Record.Clone()
		record[domain.FieldID] = id

		target := req.ConflictTarget
		if target == "" {
			target = domain.FieldID
		}

		row, err := h.svc.Upsert(r.Context(), spec.Name, record, target)
		if err != nil {
			respondServiceError(w, r, "Update record failed", err)
			return
		}
		respondJSON(w, http.StatusOK, row)
	}
}

// HandleDelete removes one row by id. Nothing cascades.
// @Summary Delete a record
// @Tags data
// @Produce json
// @Param table path string true "Table name"
// @Param id path int true "Record id"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /data/{table}/{id} [delete]
func (h *DataHandler) HandleDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec, ok := resolveTable(w, r)
		if !ok {
			return
		}
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		if err := h.svc.Delete(r.Context(), spec.Name, id, auth.SubjectFromContext(r.Context())); err != nil {
			respondServiceError(w, r, "Delete record failed", err)
			return
		}
		respondMessage(w, http.StatusOK, MsgRecordDeleted)
	}
}

// HandleBulkSync applies a batch of records in one transaction
// @Summary Bulk sync records
// @Description Upserts every record against conflictTarget, all or nothing.
// @Description A repeated Idempotency-Key returns the first result.
// @Tags data
// @Accept json
// @Produce json
// @Param table path string true "Table name"
// @Param Idempotency-Key header string false "Replay key"
// @Param request body BulkSyncRequest true "Records and conflict target"
// @Success 200 {object} BulkSyncResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /data/bulk-sync/{table} [post]
func (h *DataHandler) HandleBulkSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec, ok := resolveTable(w, r)
		if !ok {
			return
		}

		var req BulkSyncRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Bulk sync"); err != nil {
			return
		}
		if len(req.Records) == 0 || req.ConflictTarget == "" {
			respondMessage(w, http.StatusBadRequest, ErrMsgBulkSyncMissingFields)
			return
		}

		ctx := r.Context()
		res, err := h.svc.BulkUpsert(ctx, domain.SyncBatch{
			Table:          spec.Name,
			Records:        req.Records,
			ConflictTarget: req.ConflictTarget,
		}, reconciler.BulkOptions{
			Subject:        auth.SubjectFromContext(ctx),
			IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
			RequestID:      logger.GetRequestID(ctx),
		})
		if err != nil {
			status, _, detail := mapServiceError(err)
			logger.FromContext(ctx).Error(ErrMsgDataSyncFailed, logger.AttrKeyTable, spec.Name, logger.AttrKeyRecords, len(req.Records), logger.AttrKeyError, err)
			respondError(w, status, ErrMsgDataSyncFailed, detail)
			return
		}

		if res.Replayed {
			w.Header().Set(HeaderIdempotentReplayed, "true")
		}
		respondJSON(w, http.StatusOK, BulkSyncResponse{
			Message:  fmt.Sprintf(MsgRecordsSyncedFormat, len(res.Results), spec.Name),
			Results:  res.Results,
			Inserted: res.Inserted,
			Updated:  res.Updated,
			Replayed: res.Replayed,
		})
	}
}
