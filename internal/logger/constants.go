package logger

// Context keys
const (
	ContextKeyRequestID = "request_id"
	ContextKeySubject   = "subject"
)

// Log levels accepted by LOG_LEVEL
const (
	LogLevelDebug   = "debug"
	LogLevelInfo    = "info"
	LogLevelWarn    = "warn"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
)

// Log formats accepted by LOG_FORMAT
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

const (
	DefaultServiceName = "fieldsync"
	AgentServiceName   = "fieldagent"
	DefaultVersion     = "dev"
	ProductionVersion  = "1.0.0"
)

const (
	EnvironmentDev        = "dev"
	EnvironmentStaging    = "staging"
	EnvironmentProduction = "prod"
	EnvironmentTest       = "test"
)

// Attribute keys shared by the server, the sync client and the CLI
const (
	AttrKeyService     = "service"
	AttrKeyVersion     = "version"
	AttrKeyEnvironment = "environment"
	AttrKeyRequestID   = "request_id"
	AttrKeySubject     = "subject"
	AttrKeyTable       = "table"
	AttrKeyCollection  = "collection"
	AttrKeyRecords     = "records"
	AttrKeyDeviceID    = "device_id"
	AttrKeyError       = "error"
)
