package eventlog

import (
	"context"
	"time"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/event"
	"github.com/osse101/FieldSync_Go/internal/logger"
)

// Service persists sync batch outcomes published on the event bus
type Service interface {
	// Subscribe registers the sync logger on the bus
	Subscribe(bus event.Bus) error

	// Recent returns logged batches, newest first
	Recent(ctx context.Context, filter Filter) ([]domain.SyncLogEntry, error)

	// CleanupOldEvents removes entries older than retention period
	CleanupOldEvents(ctx context.Context, retentionDays int) (int64, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new sync log service
func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Subscribe(bus event.Bus) error {
	bus.Subscribe(event.SyncBatchApplied, s.handleApplied)
	bus.Subscribe(event.SyncBatchFailed, s.handleFailed)
	return nil
}

func (s *service) handleApplied(ctx context.Context, evt event.Event) error {
	p, err := event.DecodePayload[event.SyncBatchAppliedPayloadV1](evt.Payload)
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgPayloadDecodeFailed, LogFieldType, evt.Type, LogFieldError, err)
		return nil
	}
	return s.write(ctx, domain.SyncLogEntry{
		TableName:      p.Table,
		Subject:        p.Subject,
		Status:         domain.SyncStatusApplied,
		ConflictTarget: p.ConflictTarget,
		RecordCount:    p.RecordCount,
		Inserted:       p.Inserted,
		Updated:        p.Updated,
		DurationMs:     p.DurationMs,
		RequestID:      requestID(evt),
		CreatedAt:      s.now().UTC(),
	})
}

func (s *service) handleFailed(ctx context.Context, evt event.Event) error {
	p, err := event.DecodePayload[event.SyncBatchFailedPayloadV1](evt.Payload)
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgPayloadDecodeFailed, LogFieldType, evt.Type, LogFieldError, err)
		return nil
	}
	return s.write(ctx, domain.SyncLogEntry{
		TableName:   p.Table,
		Subject:     p.Subject,
		Status:      domain.SyncStatusFailed,
		RecordCount: p.RecordCount,
		Error:       p.Error,
		RequestID:   requestID(evt),
		CreatedAt:   s.now().UTC(),
	})
}

func (s *service) write(ctx context.Context, entry domain.SyncLogEntry) error {
	log := logger.FromContext(ctx)
	if err := s.repo.LogBatch(ctx, entry); err != nil {
		log.Error(LogMsgFailedToLogEvent, LogFieldError, err, LogFieldTable, entry.TableName)
		return err
	}
	log.Debug(LogMsgEventLogged, LogFieldTable, entry.TableName, "status", entry.Status)
	return nil
}

func requestID(evt event.Event) string {
	id, _ := evt.GetMetadataValue(event.MetaRequestID).(string)
	return id
}

func (s *service) Recent(ctx context.Context, filter Filter) ([]domain.SyncLogEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	return s.repo.ListEntries(ctx, filter)
}

// CleanupOldEvents removes entries older than the retention period
func (s *service) CleanupOldEvents(ctx context.Context, retentionDays int) (int64, error) {
	return s.repo.CleanupOldEntries(ctx, retentionDays)
}
