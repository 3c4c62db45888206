package syncclient

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/localstore"
	"github.com/osse101/FieldSync_Go/internal/logger"
)

// batchNamespace scopes idempotency keys
var batchNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("fieldsync:bulk-sync"))

// Result summarizes one collection's push
type Result struct {
	Collection string
	Table      string
	Batches    int
	Sent       int
	Inserted   int
	Updated    int
	Replayed   int
	Marked     int
	Skipped    bool
}

// Summary is the outcome of SyncAll
type Summary struct {
	Results  []Result
	Duration time.Duration
}

// Sent returns the total number of records pushed
func (s Summary) Sent() int {
	n := 0
	for _, r := range s.Results {
		n += r.Sent
	}
	return n
}

type bulkSyncRequest struct {
	Records        []domain.Record `json:"records"`
	ConflictTarget string          `json:"conflictTarget"`
}

type bulkSyncResponse struct {
	Message  string          `json:"message"`
	Results  []domain.Record `json:"results"`
	Inserted int             `json:"inserted"`
	Updated  int             `json:"updated"`
	Replayed bool            `json:"replayed"`
}

// SyncAll pushes every route in order. A failing collection does not stop
// the others; all failures are returned together.
func (c *Client) SyncAll(ctx context.Context) (Summary, error) {
	start := time.Now()
	var (
		summary Summary
		errs    []error
	)
	for _, route := range c.routes {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := c.SyncCollection(ctx, route)
		if err != nil && !errors.Is(err, ErrSyncInProgress) {
			errs = append(errs, fmt.Errorf("%s: %w", route.Collection, err))
		}
		summary.Results = append(summary.Results, res)
	}
	summary.Duration = time.Since(start)

	logger.FromContext(ctx).Info(LogMsgSyncAllFinished,
		logger.AttrKeyDeviceID, c.cfg.DeviceID, "sent", summary.Sent(), "failed", len(errs), "duration", summary.Duration)
	return summary, errors.Join(errs...)
}

// SyncCollection pushes the pending records of one route in batches until
// none are left. Each batch is marked synced only after the server accepted
// it. Returns ErrSyncInProgress if the collection is already being pushed.
func (c *Client) SyncCollection(ctx context.Context, route Route) (Result, error) {
	res := Result{Collection: route.Collection, Table: route.Table}
	var err error

	ran := c.locks.TryWithLock(route.Collection, func() {
		err = c.pushPending(ctx, route, &res)
	})
	if !ran {
		res.Skipped = true
		logger.FromContext(ctx).Debug(LogMsgCollectionSkip, logger.AttrKeyCollection, route.Collection)
		return res, ErrSyncInProgress
	}
	if err != nil {
		return res, err
	}
	if res.Sent > 0 {
		logger.FromContext(ctx).Info(LogMsgCollectionDone,
			logger.AttrKeyCollection, route.Collection, logger.AttrKeyTable, route.Table,
			"sent", res.Sent, "inserted", res.Inserted, "updated", res.Updated)
	}
	return res, nil
}

func (c *Client) pushPending(ctx context.Context, route Route, res *Result) error {
	log := logger.FromContext(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pending, err := c.store.Pending(ctx, route.Collection, c.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("%s: %w", ErrMsgReadPending, err)
		}
		if len(pending) == 0 {
			return nil
		}

		records := make([]domain.Record, len(pending))
		marks := make([]localstore.SyncMark, len(pending))
		for i, p := range pending {
			mapped, err := route.Map(p.Record)
			if err != nil {
				return fmt.Errorf("%s %v: %w", ErrMsgMapRecord, p.Record[domain.FieldID], err)
			}
			records[i] = mapped
			marks[i] = localstore.SyncMark{ID: recordID(p.Record), Revision: p.Revision}
		}

		var out bulkSyncResponse
		key, err := idempotencyKey(c.cfg.DeviceID, route, records, marks)
		if err != nil {
			return fmt.Errorf("%s: %w", ErrMsgMapRecord, err)
		}
		headers := map[string]string{HeaderIdempotencyKey: key}
		respHeader, err := c.do(ctx, http.MethodPost, PathBulkSync+url.PathEscape(route.Table),
			bulkSyncRequest{Records: records, ConflictTarget: route.ConflictTarget}, headers, &out)
		if err != nil {
			return err
		}

		res.Batches++
		res.Sent += len(records)
		res.Inserted += out.Inserted
		res.Updated += out.Updated
		if out.Replayed || respHeader.Get(HeaderIdempotentReplay) == "true" {
			res.Replayed += len(records)
		}
		log.Debug(LogMsgBatchSent, logger.AttrKeyTable, route.Table, logger.AttrKeyRecords, len(records), "replayed", out.Replayed)

		marked, err := c.store.MarkSynced(ctx, route.Collection, marks)
		if err != nil {
			return fmt.Errorf("%s: %w", ErrMsgMarkSynced, err)
		}
		res.Marked += marked
		if marked == 0 {
			// every record changed while in flight; the next run sends them again
			log.Warn(LogMsgNoSyncProgress, logger.AttrKeyCollection, route.Collection)
			return nil
		}
	}
}

// PullStores copies the server's stores into the local store, keeping the
// server ids. Returns the number of stores written.
func (c *Client) PullStores(ctx context.Context) (int, error) {
	total := 0
	for offset := 0; ; offset += DefaultPullPageSize {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(DefaultPullPageSize))
		q.Set("offset", strconv.Itoa(offset))

		var page []domain.Record
		if _, err := c.do(ctx, http.MethodGet, PathData+TableStores+"?"+q.Encode(), nil, nil, &page); err != nil {
			return total, err
		}
		for _, row := range page {
			if _, err := c.store.Upsert(ctx, localstore.CollStores, storeRecord(row)); err != nil {
				return total, fmt.Errorf("%s: %w", ErrMsgStoreLocalRecord, err)
			}
			total++
		}
		if len(page) < DefaultPullPageSize {
			break
		}
	}

	logger.FromContext(ctx).Info(LogMsgStoresPulled, "stores", total)
	return total, nil
}

// storeRecord drops server bookkeeping columns the local store keeps itself
func storeRecord(row domain.Record) domain.Record {
	out := make(domain.Record, len(row))
	for k, v := range row {
		if k == "updated_on" || v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// idempotencyKey is stable for the same device sending the same mapped
// records at the same revisions, so a batch retried after a lost response
// replays instead of reapplying. Record content is part of the key because
// local ids restart at 1 on every install.
func idempotencyKey(deviceID string, route Route, records []domain.Record, marks []localstore.SyncMark) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s", deviceID, route.Table, route.ConflictTarget)
	for i, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "|%v:%d:", rec[route.ConflictTarget], marks[i].Revision)
		h.Write(raw)
	}
	return uuid.NewSHA1(batchNamespace, h.Sum(nil)).String(), nil
}

func recordID(rec domain.Record) int64 {
	id, _ := rec[domain.FieldID].(int64)
	return id
}
