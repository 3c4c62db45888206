package domain

import "time"

// Record is a single row of captured data: field name to scalar or JSON value.
type Record map[string]interface{}

// Common record field names shared by the client and server schemas
const (
	FieldID         = "id"
	FieldUUID       = "uuid"
	FieldClientUUID = "client_uuid"
	FieldStoreID    = "store_id"
	FieldSubmitter  = "submitter"
	FieldCreatedOn  = "created_on"
	FieldData       = "data"
)

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the field as a string, or "" when absent or not a string.
func (r Record) String(field string) string {
	if s, ok := r[field].(string); ok {
		return s
	}
	return ""
}

// SyncBatch is an ordered set of records bound for one table and applied
// against one conflict target.
type SyncBatch struct {
	Table          string   `json:"table"`
	Records        []Record `json:"records"`
	ConflictTarget string   `json:"conflictTarget"`
}

// UpsertResult is the row produced by an upsert and whether it was inserted
// (true) or overwrote an existing row (false).
type UpsertResult struct {
	Row      Record
	Inserted bool
}

// ListOptions controls ordering and paging of table reads.
type ListOptions struct {
	OrderBy    string
	Descending bool
	Limit      int
	Offset     int
}

// Sync log statuses
const (
	SyncStatusApplied = "applied"
	SyncStatusFailed  = "failed"
)

// SyncLogEntry summarises one bulk-sync batch.
type SyncLogEntry struct {
	ID             int64     `json:"id"`
	TableName      string    `json:"table_name"`
	Subject        string    `json:"subject,omitempty"`
	Status         string    `json:"status"`
	ConflictTarget string    `json:"conflict_target,omitempty"`
	RecordCount    int       `json:"record_count"`
	Inserted       int       `json:"inserted"`
	Updated        int       `json:"updated"`
	DurationMs     int64     `json:"duration_ms"`
	Error          string    `json:"error,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
