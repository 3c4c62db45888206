package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

// Claims are the JWT claims carried by every bearer token. Subject holds the
// normalized username.
type Claims struct {
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller of a request
type Principal struct {
	UserID   int64
	Username string
	Role     domain.Role
}

// IsTeamLeader reports whether the caller holds the team-leader role
func (p Principal) IsTeamLeader() bool {
	return p.Role == domain.RoleTeamLeader
}

// JWTAuth issues and validates HS256 bearer tokens
type JWTAuth struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTAuth creates a token authority. A zero ttl uses DefaultTokenTTL.
func NewJWTAuth(secret string, ttl time.Duration) (*JWTAuth, error) {
	if secret == "" {
		return nil, errors.New(ErrMsgMissingSecret)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTAuth{
		secret: []byte(secret),
		issuer: DefaultIssuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// GenerateToken signs a token for user that expires after the configured ttl
func (a *JWTAuth) GenerateToken(user *domain.User) (string, time.Time, error) {
	now := a.now()
	expires := now.Add(a.ttl)

	claims := &Claims{
		UserID: user.ID,
		Role:   string(user.Role()),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   domain.NormalizeUsername(user.Username),
			Issuer:    a.issuer,
			ID:        strconv.FormatInt(now.UnixNano(), 36),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", ErrMsgSignTokenFailed, err)
	}
	return signed, expires, nil
}

// ValidateToken parses tokenString and returns the principal it names.
// Every failure matches domain.ErrInvalidCredentials.
func (a *JWTAuth) ValidateToken(tokenString string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%s: %v", ErrMsgUnexpectedSigning, t.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithIssuer(a.issuer),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidCredentials, ErrMsgInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, ErrMsgInvalidToken)
	}

	role := domain.Role(claims.Role)
	if !role.Valid() {
		role = domain.RoleField
	}
	return Principal{UserID: claims.UserID, Username: claims.Subject, Role: role}, nil
}
