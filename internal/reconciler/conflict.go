package reconciler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

// ParseConflictTarget splits a comma separated conflict target and checks it
// names a unique key of the table
func ParseConflictTarget(spec TableSpec, target string) ([]string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgConflictTargetRequired)
	}

	parts := strings.Split(target, ",")
	cols := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		col := strings.TrimSpace(p)
		if col == "" || seen[col] {
			return nil, fmt.Errorf("%w: malformed conflict target %q", domain.ErrInvalidInput, target)
		}
		if !spec.HasColumn(col) {
			return nil, fmt.Errorf("%w: unknown conflict column %q on %s", domain.ErrInvalidInput, col, spec.Name)
		}
		seen[col] = true
		cols = append(cols, col)
	}

	for _, key := range spec.UniqueKeys {
		if sameColumns(key, cols) {
			return cols, nil
		}
	}
	return nil, fmt.Errorf("%w: no unique constraint on (%s) for %s", domain.ErrInvalidInput, strings.Join(cols, ", "), spec.Name)
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
