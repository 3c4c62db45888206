package event

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Type represents the type of an event
type Type string

// Metadata defines the type for event metadata
type Metadata interface{}

// Event represents a generic event in the system
type Event struct {
	Version  string      `json:"version"` // Event schema version (e.g., "1.0")
	Type     Type        `json:"type"`
	Payload  interface{} `json:"payload"`
	Metadata Metadata    `json:"metadata"`
}

// GetMetadataValue extracts a value from the event metadata safely
func (e Event) GetMetadataValue(key string) interface{} {
	if m, ok := e.Metadata.(map[string]interface{}); ok {
		return m[key]
	}
	return nil
}

// Table returns the sync table an event concerns, or "" for events that
// are not about a table
func (e Event) Table() string {
	switch p := e.Payload.(type) {
	case SyncBatchAppliedPayloadV1:
		return p.Table
	case SyncBatchFailedPayloadV1:
		return p.Table
	case RecordDeletedPayloadV1:
		return p.Table
	case map[string]interface{}:
		s, _ := p["table"].(string)
		return s
	}
	return ""
}

// Sync event types
const (
	SyncBatchApplied Type = "sync.batch.applied"
	SyncBatchFailed  Type = "sync.batch.failed"
	RecordDeleted    Type = "sync.record.deleted"
	UserLoggedIn     Type = "auth.login"
)

// Metadata keys
const (
	MetaRequestID = "request_id"
	MetaSource    = "source"
)

// SyncBatchAppliedPayloadV1 describes a committed bulk-sync batch
type SyncBatchAppliedPayloadV1 struct {
	Table          string `json:"table"`
	Subject        string `json:"subject,omitempty"`
	ConflictTarget string `json:"conflict_target"`
	RecordCount    int    `json:"record_count"`
	Inserted       int    `json:"inserted"`
	Updated        int    `json:"updated"`
	DurationMs     int64  `json:"duration_ms"`
}

// SyncBatchFailedPayloadV1 describes a rolled back batch
type SyncBatchFailedPayloadV1 struct {
	Table       string `json:"table"`
	Subject     string `json:"subject,omitempty"`
	RecordCount int    `json:"record_count"`
	Error       string `json:"error"`
}

// RecordDeletedPayloadV1 is the typed payload for single record deletes
type RecordDeletedPayloadV1 struct {
	Table   string `json:"table"`
	ID      string `json:"id"`
	Subject string `json:"subject,omitempty"`
}

// UserLoggedInPayloadV1 is the typed payload for successful logins
type UserLoggedInPayloadV1 struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	Timestamp int64  `json:"timestamp"`
}

// NewSyncBatchAppliedEvent creates a versioned batch applied event
func NewSyncBatchAppliedEvent(p SyncBatchAppliedPayloadV1, requestID string) Event {
	return Event{
		Version:  EventSchemaVersion,
		Type:     SyncBatchApplied,
		Payload:  p,
		Metadata: map[string]interface{}{MetaRequestID: requestID},
	}
}

// NewSyncBatchFailedEvent creates a versioned batch failed event
func NewSyncBatchFailedEvent(p SyncBatchFailedPayloadV1, requestID string) Event {
	return Event{
		Version:  EventSchemaVersion,
		Type:     SyncBatchFailed,
		Payload:  p,
		Metadata: map[string]interface{}{MetaRequestID: requestID},
	}
}

// NewRecordDeletedEvent creates a versioned delete event
func NewRecordDeletedEvent(table, id, subject string) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    RecordDeleted,
		Payload: RecordDeletedPayloadV1{Table: table, ID: id, Subject: subject},
	}
}

// NewUserLoggedInEvent creates a versioned login event
func NewUserLoggedInEvent(username, role string, at time.Time) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    UserLoggedIn,
		Payload: UserLoggedInPayloadV1{Username: username, Role: role, Timestamp: at.Unix()},
	}
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for an event bus
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType Type, handler Handler)
}

// MemoryBus is an in-memory implementation of the Event Bus
type MemoryBus struct {
	handlers map[Type][]Handler
	mu       sync.RWMutex
}

// NewMemoryBus creates a new MemoryBus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[Type][]Handler),
	}
}

// Publish publishes an event to all subscribers.
// Handlers run synchronously in subscription order.
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers, ok := b.handlers[event.Type]
	b.mu.RUnlock()

	if !ok {
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf(LogMsgHandlerErrorFormat, len(errs), event.Type, errs)
	}

	return nil
}

// Subscribe subscribes a handler to an event type
func (b *MemoryBus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}
