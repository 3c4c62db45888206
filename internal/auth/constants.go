package auth

import "time"

// Token defaults
const (
	DefaultIssuer   = "fieldsync"
	DefaultTokenTTL = time.Hour

	BearerPrefix = "Bearer "
)

// Error messages
const (
	ErrMsgMissingSecret      = "jwt secret must not be empty"
	ErrMsgMissingBearer      = "missing bearer token"
	ErrMsgInvalidToken       = "invalid token"
	ErrMsgUnexpectedSigning  = "unexpected signing method"
	ErrMsgSignTokenFailed    = "failed to sign token"
	ErrMsgUnauthorized       = "Unauthorized"
	ErrMsgForbidden          = "Forbidden"
	ErrMsgLookupUserFailed   = "failed to look up user"
	ErrMsgCredentialsMissing = "username and password are required"
	ErrMsgRecordLoginFailed  = "Failed to record login"
	ErrMsgPublishLoginFailed = "Failed to publish login event"
)

// Log messages
const (
	LogMsgTokenRejected = "Bearer token rejected"
	LogMsgRoleDenied    = "Role requirement not met"
	LogMsgLoginOK       = "User logged in"
	LogMsgLoginFailed   = "Login failed"
)

// Login metric results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)
