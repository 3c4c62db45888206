package repository

import (
	"context"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

// User defines the lookups the auth layer needs
type User interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	RecordLogin(ctx context.Context, user *domain.User, event string) error
}
