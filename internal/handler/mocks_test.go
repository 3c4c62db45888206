package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/osse101/FieldSync_Go/internal/auth"
	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/event"
	"github.com/osse101/FieldSync_Go/internal/eventlog"
	"github.com/osse101/FieldSync_Go/internal/reconciler"
)

type mockReconciler struct {
	mock.Mock
}

func (m *mockReconciler) Upsert(ctx context.Context, table string, record domain.Record, conflictTarget string) (domain.Record, error) {
	args := m.Called(ctx, table, record, conflictTarget)
	if r := args.Get(0); r != nil {
		return r.(domain.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReconciler) BulkUpsert(ctx context.Context, batch domain.SyncBatch, opts reconciler.BulkOptions) (*reconciler.BulkResult, error) {
	args := m.Called(ctx, batch, opts)
	if r := args.Get(0); r != nil {
		return r.(*reconciler.BulkResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReconciler) List(ctx context.Context, table string, opts domain.ListOptions) ([]domain.Record, error) {
	args := m.Called(ctx, table, opts)
	if r := args.Get(0); r != nil {
		return r.([]domain.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReconciler) Get(ctx context.Context, table string, id int64) (domain.Record, error) {
	args := m.Called(ctx, table, id)
	if r := args.Get(0); r != nil {
		return r.(domain.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReconciler) Delete(ctx context.Context, table string, id int64, subject string) error {
	return m.Called(ctx, table, id, subject).Error(0)
}

func (m *mockReconciler) Verify(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*auth.LoginResult, error) {
	args := m.Called(ctx, username, password)
	if r := args.Get(0); r != nil {
		return r.(*auth.LoginResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSyncLog struct {
	mock.Mock
}

func (m *mockSyncLog) Subscribe(bus event.Bus) error {
	return m.Called(bus).Error(0)
}

func (m *mockSyncLog) Recent(ctx context.Context, filter eventlog.Filter) ([]domain.SyncLogEntry, error) {
	args := m.Called(ctx, filter)
	if r := args.Get(0); r != nil {
		return r.([]domain.SyncLogEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSyncLog) CleanupOldEvents(ctx context.Context, retentionDays int) (int64, error) {
	args := m.Called(ctx, retentionDays)
	return args.Get(0).(int64), args.Error(1)
}
