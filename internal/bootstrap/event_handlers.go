package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/osse101/FieldSync_Go/internal/event"
	"github.com/osse101/FieldSync_Go/internal/eventlog"
	"github.com/osse101/FieldSync_Go/internal/metrics"
)

// EventHandlerDependencies holds the dependencies needed for event handler registration.
type EventHandlerDependencies struct {
	EventBus       event.Bus
	SyncLogService eventlog.Service
}

// RegisterEventHandlers subscribes the metrics collector and the sync log
// writer to the bus.
func RegisterEventHandlers(deps EventHandlerDependencies) error {
	metricsCollector := metrics.NewEventMetricsCollector()
	if err := metricsCollector.Register(deps.EventBus); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedRegisterMetrics, err)
	}
	slog.Info(LogMsgMetricsCollectorRegistered)

	if err := deps.SyncLogService.Subscribe(deps.EventBus); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedSubscribeSyncLogger, err)
	}
	slog.Info(LogMsgSyncLoggerInitialized)

	return nil
}
