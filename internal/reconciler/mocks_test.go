package reconciler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

type mockSyncRepo struct {
	mock.Mock
}

func (m *mockSyncRepo) List(ctx context.Context, table string, opts domain.ListOptions) ([]domain.Record, error) {
	args := m.Called(ctx, table, opts)
	rows, _ := args.Get(0).([]domain.Record)
	return rows, args.Error(1)
}

func (m *mockSyncRepo) Get(ctx context.Context, table string, id int64) (domain.Record, error) {
	args := m.Called(ctx, table, id)
	row, _ := args.Get(0).(domain.Record)
	return row, args.Error(1)
}

func (m *mockSyncRepo) Upsert(ctx context.Context, table string, record domain.Record, conflict []string) (domain.UpsertResult, error) {
	args := m.Called(ctx, table, record, conflict)
	res, _ := args.Get(0).(domain.UpsertResult)
	return res, args.Error(1)
}

func (m *mockSyncRepo) BulkUpsert(ctx context.Context, table string, records []domain.Record, conflict []string) ([]domain.UpsertResult, error) {
	args := m.Called(ctx, table, records, conflict)
	res, _ := args.Get(0).([]domain.UpsertResult)
	return res, args.Error(1)
}

func (m *mockSyncRepo) Delete(ctx context.Context, table string, id int64) error {
	args := m.Called(ctx, table, id)
	return args.Error(0)
}

func (m *mockSyncRepo) TableColumns(ctx context.Context, table string) (map[string]string, error) {
	args := m.Called(ctx, table)
	cols, _ := args.Get(0).(map[string]string)
	return cols, args.Error(1)
}
