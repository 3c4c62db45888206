package reconciler

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

// prepare validates a record against the table and returns the copy that is
// written: conflict keys normalized, passwords hashed, updated_on stamped
func (s *service) prepare(spec TableSpec, record domain.Record, conflict []string) (domain.Record, error) {
	if len(record) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgEmptyRecord)
	}

	for field := range record {
		if !spec.HasColumn(field) {
			return nil, fmt.Errorf("%w: column %q does not exist on %s", domain.ErrInvalidInput, field, spec.Name)
		}
	}
	for _, col := range conflict {
		if v, ok := record[col]; !ok || v == nil {
			return nil, fmt.Errorf("%w: record is missing conflict column %q", domain.ErrInvalidInput, col)
		}
	}

	value, err := jsonValue(record)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := s.schemas.Validate(spec.Name, value); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	out := domain.Record(value)
	for _, col := range conflict {
		if str, ok := out[col].(string); ok {
			out[col] = norm.NFC.String(str)
		}
	}

	if spec.ID == TableUsers {
		if err := s.prepareUser(out); err != nil {
			return nil, err
		}
	}

	if spec.HasColumn(ColumnUpdatedOn) {
		out[ColumnUpdatedOn] = s.now().UTC().Format(time.RFC3339Nano)
	}
	return out, nil
}

func (s *service) prepareUser(rec domain.Record) error {
	if name, ok := rec[ColumnUsername].(string); ok {
		rec[ColumnUsername] = domain.NormalizeUsername(name)
	}

	if pw, ok := rec[ColumnPassword].(string); ok && !isBcryptHash(pw) {
		hash, err := bcrypt.GenerateFromPassword([]byte(pw), s.cfg.BcryptCost)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, ErrMsgPasswordHashFailed, err)
		}
		rec[ColumnPassword] = string(hash)
	}

	// A write that sets assigned without a version is a current-version write
	if _, ok := rec[ColumnAssigned]; ok {
		if _, versioned := rec[ColumnAssignedVersion]; !versioned {
			rec[ColumnAssignedVersion] = domain.CurrentAssignedVersion
		}
	}
	return nil
}

func isBcryptHash(s string) bool {
	if len(s) != 60 {
		return false
	}
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// redact strips columns that must not leave the server
func redact(spec TableSpec, row domain.Record) domain.Record {
	if len(spec.Redacted) == 0 || row == nil {
		return row
	}
	for _, col := range spec.Redacted {
		delete(row, col)
	}
	return row
}
