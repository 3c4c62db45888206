package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/event"
	"github.com/osse101/FieldSync_Go/internal/metrics"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) RecordLogin(ctx context.Context, user *domain.User, eventType string) error {
	return m.Called(ctx, user, eventType).Error(0)
}

func hashedUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := *leader
	u.Username = "admin"
	u.PasswordHash = string(hash)
	return &u
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	user := hashedUser(t, "admin123")

	repo := new(mockUserRepo)
	repo.On("GetUserByUsername", ctx, "admin").Return(user, nil)
	repo.On("RecordLogin", ctx, user, domain.LoginEventLogin).Return(nil)

	bus := event.NewMemoryBus()
	var got []event.Event
	bus.Subscribe(event.UserLoggedIn, func(_ context.Context, e event.Event) error {
		got = append(got, e)
		return nil
	})

	before := testutil.ToFloat64(metrics.Logins.WithLabelValues(ResultSuccess))
	svc := NewService(repo, newTestAuth(t, time.Now()), bus)

	res, err := svc.Login(ctx, "  ADMIN ", "admin123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, domain.RoleTeamLeader, res.Role)
	assert.Len(t, got, 1)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Logins.WithLabelValues(ResultSuccess)))
	repo.AssertExpectations(t)
}

func TestService_LoginRejectsWrongPassword(t *testing.T) {
	ctx := context.Background()
	repo := new(mockUserRepo)
	repo.On("GetUserByUsername", ctx, "admin").Return(hashedUser(t, "admin123"), nil)

	_, err := NewService(repo, newTestAuth(t, time.Now()), nil).Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	repo.AssertNotCalled(t, "RecordLogin", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_LoginUnknownUserLooksLikeBadPassword(t *testing.T) {
	ctx := context.Background()
	repo := new(mockUserRepo)
	repo.On("GetUserByUsername", ctx, "ghost").Return(nil, domain.ErrNotFound)

	_, err := NewService(repo, newTestAuth(t, time.Now()), nil).Login(ctx, "ghost", "x")
	assert.Equal(t, domain.ErrInvalidCredentials, err)
}

func TestService_LoginMissingFields(t *testing.T) {
	repo := new(mockUserRepo)
	_, err := NewService(repo, newTestAuth(t, time.Now()), nil).Login(context.Background(), " ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	repo.AssertNotCalled(t, "GetUserByUsername", mock.Anything, mock.Anything)
}

func TestService_LoginStoreFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	repo := new(mockUserRepo)
	repo.On("GetUserByUsername", ctx, "admin").Return(nil, boom)

	_, err := NewService(repo, newTestAuth(t, time.Now()), nil).Login(ctx, "admin", "admin123")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestService_LoginSurvivesLoginLogFailure(t *testing.T) {
	ctx := context.Background()
	user := hashedUser(t, "admin123")
	repo := new(mockUserRepo)
	repo.On("GetUserByUsername", ctx, "admin").Return(user, nil)
	repo.On("RecordLogin", ctx, user, domain.LoginEventLogin).Return(errors.New("disk full"))

	res, err := NewService(repo, newTestAuth(t, time.Now()), nil).Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}
