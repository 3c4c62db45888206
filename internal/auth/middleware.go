package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/logger"
)

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal stores the authenticated caller in ctx
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the caller set by Middleware
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// SubjectFromContext returns the caller's username, or "" for anonymous requests
func SubjectFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.Username
}

// Middleware rejects requests without a valid bearer token
func (a *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, BearerPrefix) {
			logger.FromContext(r.Context()).Warn(LogMsgTokenRejected, "path", r.URL.Path, "reason", ErrMsgMissingBearer)
			writeMessage(w, http.StatusUnauthorized, ErrMsgUnauthorized)
			return
		}

		p, err := a.ValidateToken(strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix)))
		if err != nil {
			logger.FromContext(r.Context()).Warn(LogMsgTokenRejected, "path", r.URL.Path, "error", err)
			writeMessage(w, http.StatusUnauthorized, ErrMsgUnauthorized)
			return
		}

		ctx := logger.WithSubject(WithPrincipal(r.Context(), p), p.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole only lets callers holding role through
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeMessage(w, http.StatusUnauthorized, ErrMsgUnauthorized)
				return
			}
			if p.Role != role {
				logger.FromContext(r.Context()).Warn(LogMsgRoleDenied, "user", p.Username, "role", p.Role, "required", role)
				writeMessage(w, http.StatusForbidden, ErrMsgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
