package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/logger"
)

// NewUser is the input to AddUser. Password is plain text and is hashed
// before it is stored.
type NewUser struct {
	Username string
	Password string
	Email    string
	Assigned string
}

// AddUser stores a new user. Usernames are unique in their normalized form.
func (s *Store) AddUser(ctx context.Context, u NewUser) (*domain.User, error) {
	c, err := s.collection(CollUsers)
	if err != nil {
		return nil, err
	}

	var out *domain.User
	err = s.withDB(func(db *sql.DB) error {
		out, err = s.addUser(ctx, db, c, u)
		return err
	})
	return out, err
}

func (s *Store) addUser(ctx context.Context, q queryer, c Collection, u NewUser) (*domain.User, error) {
	username := domain.NormalizeUsername(u.Username)
	if username == "" || u.Password == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgUsernameRequired)
	}
	assigned := strings.TrimSpace(u.Assigned)
	if assigned == "" {
		assigned = string(domain.RoleField)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgHashPasswordFailed, err)
	}

	rec, err := s.insertRow(ctx, q, c, domain.Record{
		FieldUsername:        username,
		FieldEmail:           u.Email,
		FieldPassword:        string(hash),
		FieldAssigned:        assigned,
		FieldAssignedVersion: domain.CurrentAssignedVersion,
	})
	if err != nil {
		return nil, err
	}
	return userFromRecord(rec), nil
}

// Authenticate checks a username and password and appends a login entry
// to the login log
func (s *Store) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.userByName(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.logLoginEvent(ctx, user, domain.LoginEventLogin); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info(LogMsgLoginRecorded, "username", user.Username, "role", user.Role())
	return user, nil
}

// Logout appends a logout entry for the user
func (s *Store) Logout(ctx context.Context, username string) error {
	user, err := s.userByName(ctx, username)
	if err != nil {
		return err
	}
	return s.logLoginEvent(ctx, user, domain.LoginEventLogout)
}

// User returns a user by username
func (s *Store) User(ctx context.Context, username string) (*domain.User, error) {
	return s.userByName(ctx, username)
}

func (s *Store) userByName(ctx context.Context, username string) (*domain.User, error) {
	rows, err := s.QueryByIndex(ctx, CollUsers, FieldUsername, domain.NormalizeUsername(username))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, username)
	}
	return userFromRecord(rows[0]), nil
}

func (s *Store) logLoginEvent(ctx context.Context, user *domain.User, eventType string) error {
	_, err := s.Insert(ctx, CollLoginLog, domain.Record{
		FieldUsername:  user.Username,
		FieldUserID:    user.ID,
		FieldEventType: eventType,
	})
	return err
}

// seedDefaultUser creates the bootstrap user when there are no users. The
// count and the insert share one immediate transaction.
func (s *Store) seedDefaultUser(ctx context.Context) error {
	c, err := s.collection(CollUsers)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM "users"`).Scan(&count); err != nil {
			return mapError(ErrMsgQueryFailed, err)
		}
		if count > 0 {
			return nil
		}

		if _, err := s.addUser(ctx, tx, c, NewUser{
			Username: DefaultUsername,
			Password: DefaultPassword,
			Email:    DefaultEmail,
			Assigned: DefaultAssigned,
		}); err != nil {
			return err
		}
		logger.FromContext(ctx).Info(LogMsgDefaultUserSeeded, "username", DefaultUsername)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgSeedUserFailed, err)
	}
	return nil
}

// userFromRecord reads a users row. Rows without assigned_version are
// legacy.
func userFromRecord(rec domain.Record) *domain.User {
	id, _ := toInt64(rec[colID])
	version, ok := toInt64(rec[FieldAssignedVersion])
	if !ok {
		version = domain.AssignedVersionLegacy
	}
	return &domain.User{
		ID:              id,
		Username:        rec.String(FieldUsername),
		Email:           rec.String(FieldEmail),
		Assigned:        rec.String(FieldAssigned),
		AssignedVersion: int(version),
		PasswordHash:    rec.String(FieldPassword),
	}
}
