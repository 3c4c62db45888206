package reconciler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var allowList = []string{
	"users", "login_logs", "stores", "checkin_sessions", "availability_records",
	"placement_records", "activation_records", "visibility_records",
	"tl_focus_records", "tl_objectives_records", "objectives_records",
	"other_objectives_records", "listings_records", "brands",
	"brand_stocks_records", "performance_records", "daily_planner_records",
	"checklist_records",
}

func TestRegistry_AllowList(t *testing.T) {
	assert.Len(t, Tables(), len(allowList))

	for _, name := range allowList {
		spec, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, spec.Name)
		assert.Equal(t, name, spec.ID.String())
		assert.True(t, spec.HasColumn(ColumnID), name)
		assert.Contains(t, spec.UniqueKeys, []string{ColumnID}, name)
		assert.True(t, spec.HasColumn(spec.DefaultOrder), name)
	}

	for _, name := range []string{"secrets", "", "USERS", "pg_user", "stores; DROP TABLE users"} {
		_, ok := Lookup(name)
		assert.False(t, ok, name)
	}
}

func TestRegistry_OnlyUsersIsRestricted(t *testing.T) {
	for _, spec := range Tables() {
		assert.Equal(t, spec.ID == TableUsers, spec.Restricted, spec.Name)
	}
	assert.Equal(t, []string{ColumnPassword}, TableUsers.Spec().Redacted)
}

func liveColumns(spec TableSpec) map[string]string {
	cols := make(map[string]string, len(spec.Columns))
	for _, c := range spec.Columns {
		cols[c.Name] = c.Type
	}
	return cols
}

func TestVerifyRegistry(t *testing.T) {
	t.Run("matching schema", func(t *testing.T) {
		repo := new(mockSyncRepo)
		for _, spec := range Tables() {
			repo.On("TableColumns", mock.Anything, spec.Name).Return(liveColumns(spec), nil)
		}
		assert.NoError(t, VerifyRegistry(context.Background(), repo))
	})

	t.Run("reports every mismatch", func(t *testing.T) {
		repo := new(mockSyncRepo)
		for _, spec := range Tables() {
			cols := liveColumns(spec)
			switch spec.ID {
			case TableStores:
				cols["latitude"] = "text"
			case TableBrands:
				cols = map[string]string{}
			case TableUsers:
				delete(cols, ColumnAssignedVersion)
			}
			repo.On("TableColumns", mock.Anything, spec.Name).Return(cols, nil)
		}

		err := VerifyRegistry(context.Background(), repo)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stores.latitude is text, want double precision")
		assert.Contains(t, err.Error(), "table brands is missing")
		assert.Contains(t, err.Error(), "users.assigned_version is missing")
	})
}
