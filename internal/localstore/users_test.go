package localstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

func TestAuthenticate_DefaultUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.Authenticate(ctx, " Admin ", DefaultPassword)
	require.NoError(t, err)
	assert.Equal(t, DefaultUsername, user.Username)
	assert.Equal(t, domain.RoleTeamLeader, user.Role())

	logs, err := s.QueryByIndex(ctx, CollLoginLog, FieldUsername, DefaultUsername)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.LoginEventLogin, logs[0][FieldEventType])
}

func TestAuthenticate_Rejections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Authenticate(ctx, DefaultUsername, "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = s.Authenticate(ctx, "ghost", "whatever")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	n, err := s.CountByIndex(ctx, CollLoginLog, FieldUsername, DefaultUsername)
	require.NoError(t, err)
	assert.Zero(t, n, "failed logins are not logged")
}

func TestAddUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	agent, err := s.AddUser(ctx, NewUser{Username: "Agent", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "agent", agent.Username)
	assert.Equal(t, domain.RoleField, agent.Role())
	assert.Equal(t, domain.CurrentAssignedVersion, agent.AssignedVersion)

	_, err = s.AddUser(ctx, NewUser{Username: "AGENT", Password: "pw"})
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)

	_, err = s.AddUser(ctx, NewUser{Username: " ", Password: "pw"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Authenticate(ctx, "agent", "pw")
	assert.NoError(t, err)
}

func TestLogout_AppendsEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Authenticate(ctx, DefaultUsername, DefaultPassword)
	require.NoError(t, err)
	require.NoError(t, s.Logout(ctx, DefaultUsername))

	logs, err := s.QueryByIndex(ctx, CollLoginLog, FieldUsername, DefaultUsername)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.LoginEventLogout, logs[0][FieldEventType])
	assert.Equal(t, domain.LoginEventLogin, logs[1][FieldEventType])

	assert.ErrorIs(t, s.Logout(ctx, "ghost"), domain.ErrNotFound)
}
