package metrics

import (
	"context"
	"time"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/event"
	"github.com/osse101/FieldSync_Go/internal/logger"
)

// EventMetricsCollector subscribes to events and records metrics
type EventMetricsCollector struct{}

// NewEventMetricsCollector creates a new event metrics collector
func NewEventMetricsCollector() *EventMetricsCollector {
	return &EventMetricsCollector{}
}

// Register subscribes to all events
func (e *EventMetricsCollector) Register(bus event.Bus) error {
	for _, eventType := range []event.Type{
		event.SyncBatchApplied,
		event.SyncBatchFailed,
		event.RecordDeleted,
		event.UserLoggedIn,
	} {
		bus.Subscribe(eventType, e.HandleEvent)
	}
	return nil
}

// HandleEvent processes events and updates metrics
func (e *EventMetricsCollector) HandleEvent(ctx context.Context, evt event.Event) error {
	log := logger.FromContext(ctx)

	EventsPublished.WithLabelValues(string(evt.Type)).Inc()

	switch evt.Type {
	case event.SyncBatchApplied:
		p, err := event.DecodePayload[event.SyncBatchAppliedPayloadV1](evt.Payload)
		if err != nil {
			log.Debug(LogMsgPayloadDecodeFailed, "type", evt.Type, "error", err)
			return nil
		}
		SyncBatches.WithLabelValues(p.Table, domain.SyncStatusApplied).Inc()
		SyncBatchSize.WithLabelValues(p.Table).Observe(float64(p.RecordCount))
		SyncBatchDuration.WithLabelValues(p.Table).Observe((time.Duration(p.DurationMs) * time.Millisecond).Seconds())
		SyncUpserts.WithLabelValues(p.Table, OutcomeInserted).Add(float64(p.Inserted))
		SyncUpserts.WithLabelValues(p.Table, OutcomeUpdated).Add(float64(p.Updated))

	case event.SyncBatchFailed:
		p, err := event.DecodePayload[event.SyncBatchFailedPayloadV1](evt.Payload)
		if err != nil {
			log.Debug(LogMsgPayloadDecodeFailed, "type", evt.Type, "error", err)
			return nil
		}
		SyncBatches.WithLabelValues(p.Table, domain.SyncStatusFailed).Inc()
		SyncBatchSize.WithLabelValues(p.Table).Observe(float64(p.RecordCount))

	}

	log.Debug(LogMsgMetricsRecorded, "type", evt.Type)
	return nil
}
