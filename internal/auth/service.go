package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/event"
	"github.com/osse101/FieldSync_Go/internal/logger"
	"github.com/osse101/FieldSync_Go/internal/metrics"
	"github.com/osse101/FieldSync_Go/internal/repository"
)

// LoginResult is returned to a caller that presented valid credentials
type LoginResult struct {
	Token     string
	Role      domain.Role
	ExpiresAt time.Time
	User      *domain.User
}

// Service authenticates users against the server's users table
type Service interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
}

type service struct {
	users  repository.User
	tokens *JWTAuth
	bus    event.Bus
}

// NewService creates a login service. bus may be nil.
func NewService(users repository.User, tokens *JWTAuth, bus event.Bus) Service {
	return &service{users: users, tokens: tokens, bus: bus}
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// equalizeTiming spends one bcrypt comparison so unknown usernames take as
// long as wrong passwords
func equalizeTiming(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("fieldsync-placeholder"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// Login checks the password and issues a bearer token. Unknown users and
// wrong passwords both return domain.ErrInvalidCredentials.
func (s *service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	log := logger.FromContext(ctx)

	name := domain.NormalizeUsername(username)
	if name == "" || password == "" {
		metrics.Logins.WithLabelValues(ResultFailure).Inc()
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, ErrMsgCredentialsMissing)
	}

	user, err := s.users.GetUserByUsername(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			equalizeTiming(password)
			metrics.Logins.WithLabelValues(ResultFailure).Inc()
			log.Info(LogMsgLoginFailed, "username", name, "reason", "unknown user")
			return nil, domain.ErrInvalidCredentials
		}
		metrics.Logins.WithLabelValues(ResultError).Inc()
		return nil, fmt.Errorf("%s: %w", ErrMsgLookupUserFailed, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.Logins.WithLabelValues(ResultFailure).Inc()
		log.Info(LogMsgLoginFailed, "username", name, "reason", "password mismatch")
		return nil, domain.ErrInvalidCredentials
	}

	token, expires, err := s.tokens.GenerateToken(user)
	if err != nil {
		metrics.Logins.WithLabelValues(ResultError).Inc()
		return nil, err
	}

	if err := s.users.RecordLogin(ctx, user, domain.LoginEventLogin); err != nil {
		log.Warn(ErrMsgRecordLoginFailed, "username", name, "error", err)
	}

	role := user.Role()
	if s.bus != nil {
		evt := event.NewUserLoggedInEvent(name, string(role), time.Now())
		if err := s.bus.Publish(ctx, evt); err != nil {
			log.Warn(ErrMsgPublishLoginFailed, "username", name, "error", err)
		}
	}

	metrics.Logins.WithLabelValues(ResultSuccess).Inc()
	log.Info(LogMsgLoginOK, "username", name, "role", role)

	return &LoginResult{
		Token:     token,
		Role:      role,
		ExpiresAt: expires,
		User:      user,
	}, nil
}

// HasRole reports whether the caller in ctx holds role
func HasRole(ctx context.Context, role domain.Role) bool {
	p, ok := PrincipalFromContext(ctx)
	return ok && strings.EqualFold(string(p.Role), string(role))
}
