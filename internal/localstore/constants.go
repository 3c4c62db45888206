package localstore

import "time"

// LatestVersion is the newest schema version this package can migrate to
const LatestVersion = 6

// TimeLayout is fixed width so created_on sorts lexicographically
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// CheckoutOpen marks a check-in session that has not been closed
const CheckoutOpen = "none"

// Connection settings
const (
	DefaultBusyTimeout = 5 * time.Second
	DBDirPermission    = 0o755
)

// Bootstrap user created on first open
const (
	DefaultUsername = "admin"
	DefaultPassword = "admin123"
	DefaultEmail    = "admin@fieldreporter.local"
	DefaultAssigned = "team-leader"
)

// DefaultBrands is the fixed brand list seeded at schema version 4
var DefaultBrands = []string{
	"KC Coconut",
	"Chrome Lemon",
	"Orijin AHS",
	"McDowells",
	"Tusker Gold",
	"Smirnoff Ginsen",
	"Chrome RTD",
	"William Lawson 1L",
	"William Lawson 75cl",
	"William Lawson 35cl",
}

// Collection names
const (
	CollUsers           = "users"
	CollLoginLog        = "loginLog"
	CollStores          = "stores"
	CollCheckin         = "shop_checkin"
	CollAvailability    = "availability"
	CollPlacement       = "placement"
	CollActivation      = "activation"
	CollVisibility      = "visibility"
	CollTLFocus         = "tl_focus"
	CollTLObjectives    = "tl_objectives"
	CollObjectives      = "objectives"
	CollOtherObjectives = "other_objectives"
	CollListings        = "listings"
	CollBrands          = "brands"
	CollBrandStocks     = "brand_stocks"
	CollChecklist       = "checklist"
	CollDailyPlanner    = "daily_planner"
	CollPerformance     = "performance"
)

// Record fields with a storage meaning
const (
	FieldUsername        = "username"
	FieldPassword        = "password"
	FieldEmail           = "email"
	FieldAssigned        = "assigned"
	FieldAssignedVersion = "assigned_version"
	FieldEventType       = "event_type"
	FieldUserID          = "user_id"
	FieldName            = "name"
	FieldSessionID       = "session_id"
	FieldStore           = "store"
	FieldCheckinTime     = "checkin_time"
	FieldCheckinPlace    = "checkin_place"
	FieldCheckoutTime    = "checkout_time"
	FieldCheckoutPlace   = "checkout_place"
	FieldDailyDate       = "daily_date"
	FieldDay             = "day"

	// FieldSingleOpen marks sessions opened under the one-open-session-per-
	// store rule. Sessions written before version 6 lack it, so legacy
	// duplicates stay outside the unique index.
	FieldSingleOpen = "single_open"
)

// Error messages
const (
	ErrMsgOpenFailed          = "failed to open local store"
	ErrMsgVersionTooNew       = "requested schema version is newer than this build supports"
	ErrMsgVersionDowngrade    = "persisted schema version is newer than requested"
	ErrMsgMigrationFailed     = "migration failed"
	ErrMsgUnknownCollection   = "unknown collection"
	ErrMsgCollectionNotInV    = "collection is not part of the open schema version"
	ErrMsgUnknownIndex        = "unknown index"
	ErrMsgEmptyRecord         = "empty record"
	ErrMsgBadIndexValue       = "index value has the wrong type"
	ErrMsgMissingServerKey    = "record has no server-assigned id"
	ErrMsgSeedUserFailed      = "failed to seed default user"
	ErrMsgHashPasswordFailed  = "failed to hash password"
	ErrMsgQueryFailed         = "local query failed"
	ErrMsgWriteFailed         = "local write failed"
	ErrMsgDecodeFailed        = "failed to decode local record"
	ErrMsgUsernameRequired    = "username and password are required"
	ErrMsgStoreIDRequired     = "store id is required"
	ErrMsgSessionIDRequired   = "session id is required"
	ErrMsgCloseFailed         = "failed to close local store"
	ErrMsgReadVersionFailed   = "failed to read schema version"
	ErrMsgCollectionNotSynced = "collection is not tracked for sync"
)

// Log messages
const (
	LogMsgStoreOpened       = "Local store opened"
	LogMsgMigrationApplied  = "Local schema migration applied"
	LogMsgBrandsSeeded      = "Seeded brand list"
	LogMsgDefaultUserSeeded = "Seeded default user"
	LogMsgCountFailed       = "Count failed, treating as zero"
	LogMsgLoginRecorded     = "Login recorded"
)
