package eventlog

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) LogBatch(ctx context.Context, entry domain.SyncLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRepository) ListEntries(ctx context.Context, filter Filter) ([]domain.SyncLogEntry, error) {
	args := m.Called(ctx, filter)
	entries, _ := args.Get(0).([]domain.SyncLogEntry)
	return entries, args.Error(1)
}

func (m *MockRepository) CleanupOldEntries(ctx context.Context, retentionDays int) (int64, error) {
	args := m.Called(ctx, retentionDays)
	return args.Get(0).(int64), args.Error(1)
}
