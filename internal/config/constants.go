package config

import "time"

// Environment variable names
const (
	EnvPort        = "PORT"
	EnvLogLevel    = "LOG_LEVEL"
	EnvLogFormat   = "LOG_FORMAT"
	EnvEnvironment = "ENVIRONMENT"
	EnvVersion     = "VERSION"
	EnvLogDir      = "LOG_DIR"

	EnvDBUser               = "DB_USER"
	EnvDBPassword           = "DB_PASSWORD"
	EnvDBHost               = "DB_HOST"
	EnvDBPort               = "DB_PORT"
	EnvDBName               = "DB_NAME"
	EnvDBMaxConns           = "DB_MAX_CONNS"
	EnvDBMaxConnIdleTime    = "DB_MAX_CONN_IDLE_TIME"
	EnvDBMaxConnLifetime    = "DB_MAX_CONN_LIFETIME"
	EnvJWTSecret            = "JWT_SECRET"
	EnvTokenTTL             = "TOKEN_TTL"
	EnvTrustedProxies       = "TRUSTED_PROXIES"
	EnvSyncTimeout          = "SYNC_TIMEOUT"
	EnvBulkMaxRecords       = "BULK_MAX_RECORDS"
	EnvReplayCacheSize      = "REPLAY_CACHE_SIZE"
	EnvReplayCacheTTL       = "REPLAY_CACHE_TTL"
	EnvSyncLogRetentionDays = "SYNC_LOG_RETENTION_DAYS"
	EnvAutoMigrate          = "AUTO_MIGRATE"
	EnvSchemaVersion        = "ENV_SCHEMA_VERSION"
	EnvEventMaxRetries      = "EVENT_MAX_RETRIES"
	EnvEventRetryDelay      = "EVENT_RETRY_DELAY"
	EnvEventDeadLetterPath  = "EVENT_DEADLETTER_PATH"
)

// Defaults
const (
	DefaultPort        = "8080"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultEnvironment = "dev"
	DefaultVersion     = "dev"
	DefaultLogDir      = "logs"

	DefaultDBUser     = "postgres"
	DefaultDBPassword = "postgres"
	DefaultDBHost     = "localhost"
	DefaultDBPort     = "5432"
	DefaultDBName     = "fieldsync"

	DefaultDBMaxConns        = 20
	DefaultDBMaxConnIdleTime = 5 * time.Minute
	DefaultDBMaxConnLifetime = 30 * time.Minute

	DefaultTokenTTL = 24 * time.Hour

	DefaultSyncTimeout          = 30 * time.Second
	DefaultBulkMaxRecords       = 1000
	DefaultReplayCacheSize      = 1024
	DefaultReplayCacheTTL       = 10 * time.Minute
	DefaultSyncLogRetentionDays = 30
	DefaultAutoMigrate          = true
)

// Example values shipped in .env.example that must not reach production
const (
	ExampleDBPassword = "change_this_secure_password"
	ExampleJWTSecret  = "generate_with_openssl_rand_hex_32"
)
