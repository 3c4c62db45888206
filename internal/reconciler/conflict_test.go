package reconciler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

func TestParseConflictTarget(t *testing.T) {
	stores := TableStores.Spec()

	tests := []struct {
		name    string
		target  string
		want    []string
		wantErr string
	}{
		{"single key", "name", []string{"name"}, ""},
		{"trims whitespace", "  id ", []string{"id"}, ""},
		{"empty", "", nil, ErrMsgConflictTargetRequired},
		{"blank", "   ", nil, ErrMsgConflictTargetRequired},
		{"empty part", "name,", nil, "malformed conflict target"},
		{"duplicate part", "name,name", nil, "malformed conflict target"},
		{"unknown column", "nickname", nil, "unknown conflict column"},
		{"column without unique constraint", "region", nil, "no unique constraint"},
		{"injection attempt", `name") DO NOTHING; --`, nil, "unknown conflict column"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConflictTarget(stores, tt.target)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSameColumns_IgnoresOrder(t *testing.T) {
	assert.True(t, sameColumns([]string{"a", "b"}, []string{"b", "a"}))
	assert.False(t, sameColumns([]string{"a"}, []string{"a", "b"}))
	assert.False(t, sameColumns([]string{"a", "c"}, []string{"a", "b"}))
}
