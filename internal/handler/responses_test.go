package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osse101/FieldSync_Go/internal/domain"
)

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
		keepDetail bool
	}{
		{"invalid input", fmt.Errorf("%w: bad", domain.ErrInvalidInput), http.StatusBadRequest, ErrMsgInvalidRequestSummary, true},
		{"not found", fmt.Errorf("%w: x", domain.ErrNotFound), http.StatusNotFound, ErrMsgRecordNotFound, false},
		{"session not found", domain.ErrSessionNotFound, http.StatusNotFound, ErrMsgRecordNotFound, false},
		{"constraint before store", fmt.Errorf("%w: %w", domain.ErrConstraintViolation, domain.ErrUnderlyingStore), http.StatusConflict, ErrMsgConflict, true},
		{"session open", domain.ErrSessionAlreadyOpen, http.StatusConflict, ErrMsgConflict, true},
		{"credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, ErrMsgInvalidCredentials, false},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, ErrMsgForbidden, false},
		{"deadline", fmt.Errorf("%w: %w", domain.ErrUnderlyingStore, context.DeadlineExceeded), http.StatusGatewayTimeout, ErrMsgTimeout, false},
		{"unavailable", domain.ErrStorageUnavailable, http.StatusServiceUnavailable, ErrMsgUnavailable, false},
		{"store", domain.ErrUnderlyingStore, http.StatusInternalServerError, ErrMsgServerError, false},
		{"unknown", errors.New("pq: secret internals"), http.StatusInternalServerError, ErrMsgServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg, detail := mapServiceError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
			if tt.keepDetail {
				assert.Equal(t, tt.err.Error(), detail)
			} else {
				assert.Empty(t, detail)
			}
		})
	}
}
