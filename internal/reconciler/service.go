package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/event"
	"github.com/osse101/FieldSync_Go/internal/logger"
	"github.com/osse101/FieldSync_Go/internal/metrics"
	"github.com/osse101/FieldSync_Go/internal/repository"
	"github.com/osse101/FieldSync_Go/internal/validation"
)

// ErrTableNotAllowed matches requests for tables outside the registry. It
// also matches domain.ErrInvalidInput.
var ErrTableNotAllowed = fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgTableNotAllowed)

// Config tunes the reconciler
type Config struct {
	// Timeout bounds every store operation; zero disables it
	Timeout         time.Duration
	MaxBatch        int
	ReplayCacheSize int
	ReplayCacheTTL  time.Duration
	BcryptCost      int
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		Timeout:         DefaultTimeout,
		MaxBatch:        DefaultMaxBatch,
		ReplayCacheSize: DefaultReplayCacheSize,
		ReplayCacheTTL:  DefaultReplayCacheTTL,
		BcryptCost:      bcrypt.DefaultCost,
	}
}

// BulkOptions carries request context for a bulk sync
type BulkOptions struct {
	// Subject is the authenticated username
	Subject string
	// IdempotencyKey enables replay of a previous identical request
	IdempotencyKey string
	RequestID      string
}

// BulkResult is the outcome of an applied batch
type BulkResult struct {
	Table    string
	Results  []domain.Record
	Inserted int
	Updated  int
	Replayed bool
}

// Service defines the sync reconciler operations
type Service interface {
	Upsert(ctx context.Context, table string, record domain.Record, conflictTarget string) (domain.Record, error)
	BulkUpsert(ctx context.Context, batch domain.SyncBatch, opts BulkOptions) (*BulkResult, error)
	List(ctx context.Context, table string, opts domain.ListOptions) ([]domain.Record, error)
	Get(ctx context.Context, table string, id int64) (domain.Record, error)
	Delete(ctx context.Context, table string, id int64, subject string) error
	// Verify compares the registry with the live database schema
	Verify(ctx context.Context) error
}

type service struct {
	repo    repository.Sync
	schemas validation.SchemaValidator
	bus     event.Bus
	cache   *replayCache
	cfg     Config
	now     func() time.Time
}

// NewService creates a reconciler over repo. bus may be nil.
func NewService(repo repository.Sync, schemas validation.SchemaValidator, bus event.Bus, cfg Config) (Service, error) {
	def := DefaultConfig()
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = def.MaxBatch
	}
	if cfg.ReplayCacheSize <= 0 {
		cfg.ReplayCacheSize = def.ReplayCacheSize
	}
	if cfg.ReplayCacheTTL <= 0 {
		cfg.ReplayCacheTTL = def.ReplayCacheTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = def.BcryptCost
	}

	if err := registerSchemas(schemas); err != nil {
		return nil, err
	}

	return &service{
		repo:    repo,
		schemas: schemas,
		bus:     bus,
		cache:   newReplayCache(cfg.ReplayCacheSize, cfg.ReplayCacheTTL),
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

func lookup(table string) (TableSpec, error) {
	spec, ok := Lookup(table)
	if !ok {
		return TableSpec{}, fmt.Errorf("%w: %q", ErrTableNotAllowed, table)
	}
	return spec, nil
}

func (s *service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

// Upsert inserts or overwrites one record by its conflict target
func (s *service) Upsert(ctx context.Context, table string, record domain.Record, conflictTarget string) (domain.Record, error) {
	spec, err := lookup(table)
	if err != nil {
		return nil, err
	}
	conflict, err := ParseConflictTarget(spec, conflictTarget)
	if err != nil {
		return nil, err
	}
	prepared, err := s.prepare(spec, record, conflict)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.repo.Upsert(opCtx, spec.Name, prepared, conflict)
	metrics.RecordUpsert(spec.Name, res.Inserted, err)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Debug(LogMsgRecordUpserted, logger.AttrKeyTable, spec.Name, "inserted", res.Inserted)
	return redact(spec, res.Row), nil
}

// BulkUpsert applies a whole batch in one transaction, or nothing
func (s *service) BulkUpsert(ctx context.Context, batch domain.SyncBatch, opts BulkOptions) (*BulkResult, error) {
	log := logger.FromContext(ctx)

	spec, err := lookup(batch.Table)
	if err != nil {
		return nil, err
	}
	if len(batch.Records) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgEmptyBatch)
	}
	if len(batch.Records) > s.cfg.MaxBatch {
		return nil, fmt.Errorf("%w: %s (%d > %d)", domain.ErrInvalidInput, ErrMsgBatchTooLarge, len(batch.Records), s.cfg.MaxBatch)
	}
	conflict, err := ParseConflictTarget(spec, batch.ConflictTarget)
	if err != nil {
		return nil, err
	}

	if opts.IdempotencyKey != "" {
		if cached, ok := s.cache.Get(opts.Subject, spec.Name, opts.IdempotencyKey); ok {
			metrics.SyncReplayHits.WithLabelValues(spec.Name).Inc()
			log.Info(LogMsgBatchReplayed, logger.AttrKeyTable, spec.Name, logger.AttrKeySubject, opts.Subject)
			return cached, nil
		}
	}

	result := &BulkResult{Table: spec.Name, Results: []domain.Record{}}

	prepared := make([]domain.Record, len(batch.Records))
	for i, rec := range batch.Records {
		p, err := s.prepare(spec, rec, conflict)
		if err != nil {
			err = fmt.Errorf("record %d: %w", i, err)
			s.publishFailed(ctx, spec, batch, opts, err)
			return nil, err
		}
		prepared[i] = p
	}

	start := s.now()
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.repo.BulkUpsert(opCtx, spec.Name, prepared, conflict)
	if err != nil {
		s.publishFailed(ctx, spec, batch, opts, err)
		log.Warn(LogMsgBatchFailed, logger.AttrKeyTable, spec.Name, logger.AttrKeyRecords, len(batch.Records), logger.AttrKeyError, err)
		return nil, err
	}

	for _, r := range rows {
		if r.Inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
		result.Results = append(result.Results, redact(spec, r.Row))
	}

	if opts.IdempotencyKey != "" {
		s.cache.Add(opts.Subject, spec.Name, opts.IdempotencyKey, result)
	}

	duration := s.now().Sub(start)
	s.publish(ctx, event.NewSyncBatchAppliedEvent(event.SyncBatchAppliedPayloadV1{
		Table:          spec.Name,
		Subject:        opts.Subject,
		ConflictTarget: batch.ConflictTarget,
		RecordCount:    len(rows),
		Inserted:       result.Inserted,
		Updated:        result.Updated,
		DurationMs:     duration.Milliseconds(),
	}, opts.RequestID))

	log.Info(LogMsgBatchApplied,
		logger.AttrKeyTable, spec.Name,
		logger.AttrKeyRecords, len(rows),
		"inserted", result.Inserted,
		"updated", result.Updated,
		"duration", duration)
	return result, nil
}

// List returns rows in the table's default order
func (s *service) List(ctx context.Context, table string, opts domain.ListOptions) ([]domain.Record, error) {
	spec, err := lookup(table)
	if err != nil {
		return nil, err
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", domain.ErrInvalidInput)
	}
	if opts.OrderBy == "" {
		opts.OrderBy = spec.DefaultOrder
		opts.Descending = spec.Descending
	} else if !spec.HasColumn(opts.OrderBy) {
		return nil, fmt.Errorf("%w: cannot order %s by %q", domain.ErrInvalidInput, spec.Name, opts.OrderBy)
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.repo.List(opCtx, spec.Name, opts)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		redact(spec, r)
	}
	return rows, nil
}

// Get returns one row by id
func (s *service) Get(ctx context.Context, table string, id int64) (domain.Record, error) {
	spec, err := lookup(table)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	row, err := s.repo.Get(opCtx, spec.Name, id)
	if err != nil {
		return nil, err
	}
	return redact(spec, row), nil
}

// Delete removes one row by id. Nothing cascades.
func (s *service) Delete(ctx context.Context, table string, id int64, subject string) error {
	spec, err := lookup(table)
	if err != nil {
		return err
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.Delete(opCtx, spec.Name, id); err != nil {
		return err
	}

	s.publish(ctx, event.NewRecordDeletedEvent(spec.Name, strconv.FormatInt(id, 10), subject))
	logger.FromContext(ctx).Info(LogMsgRecordDeleted, logger.AttrKeyTable, spec.Name, "id", id, logger.AttrKeySubject, subject)
	return nil
}

// Verify compares the registry with the live database schema
func (s *service) Verify(ctx context.Context) error {
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := VerifyRegistry(opCtx, s.repo); err != nil {
		return err
	}
	logger.FromContext(ctx).Info(LogMsgRegistryOK, "tables", int(tableCount))
	return nil
}

func (s *service) publishFailed(ctx context.Context, spec TableSpec, batch domain.SyncBatch, opts BulkOptions, cause error) {
	s.publish(ctx, event.NewSyncBatchFailedEvent(event.SyncBatchFailedPayloadV1{
		Table:       spec.Name,
		Subject:     opts.Subject,
		RecordCount: len(batch.Records),
		Error:       cause.Error(),
	}, opts.RequestID))
}

func (s *service) publish(ctx context.Context, evt event.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, evt); err != nil && !errors.Is(err, context.Canceled) {
		logger.FromContext(ctx).Warn(LogMsgPublishFailed, "type", evt.Type, logger.AttrKeyError, err)
	}
}
