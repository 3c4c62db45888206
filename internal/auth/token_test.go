package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

var leader = &domain.User{
	ID:              7,
	Username:        "Admin",
	Assigned:        "team-leader",
	AssignedVersion: domain.AssignedVersionRole,
}

func newTestAuth(t *testing.T, now time.Time) *JWTAuth {
	t.Helper()
	a, err := NewJWTAuth("test-secret", time.Hour)
	require.NoError(t, err)
	a.now = func() time.Time { return now }
	return a
}

func TestNewJWTAuth_RequiresSecret(t *testing.T) {
	_, err := NewJWTAuth("", time.Hour)
	assert.Error(t, err)

	a, err := NewJWTAuth("s", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, a.ttl)
}

func TestJWTAuth_RoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAuth(t, now)

	token, expires, err := a.GenerateToken(leader)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expires)

	p, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.UserID)
	assert.Equal(t, "admin", p.Username)
	assert.Equal(t, domain.RoleTeamLeader, p.Role)
	assert.True(t, p.IsTeamLeader())
}

func TestJWTAuth_LegacyAssignmentIsFieldRole(t *testing.T) {
	a := newTestAuth(t, time.Now())
	legacy := &domain.User{ID: 3, Username: "agent", Assigned: "team-leader", AssignedVersion: domain.AssignedVersionLegacy}

	token, _, err := a.GenerateToken(legacy)
	require.NoError(t, err)

	p, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleField, p.Role)
}

func TestJWTAuth_RejectsExpiredToken(t *testing.T) {
	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAuth(t, issued)
	token, _, err := a.GenerateToken(leader)
	require.NoError(t, err)

	a.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = a.ValidateToken(token)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestJWTAuth_RejectsForeignSecret(t *testing.T) {
	now := time.Now()
	other, err := NewJWTAuth("other-secret", time.Hour)
	require.NoError(t, err)
	token, _, err := other.GenerateToken(leader)
	require.NoError(t, err)

	_, err = newTestAuth(t, now).ValidateToken(token)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestJWTAuth_RejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{
		Role: string(domain.RoleTeamLeader),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			Issuer:    DefaultIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestAuth(t, time.Now()).ValidateToken(token)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestJWTAuth_RejectsGarbage(t *testing.T) {
	_, err := newTestAuth(t, time.Now()).ValidateToken("not.a.token")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
