package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPool struct {
	mock.Mock
}

func (m *mockPool) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockPool) Close() {
	m.Called()
}

func readyz(t *testing.T, h http.HandlerFunc) (int, HealthResponse) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr.Code, body
}

func TestHandleHealthz(t *testing.T) {
	rr := httptest.NewRecorder()
	HandleHealthz().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"status":"ok"}`+"\n", rr.Body.String())
}

func TestHandleReadyz(t *testing.T) {
	registryOK := ReadinessCheck{Name: ComponentRegistry, Check: func(context.Context) error { return nil }}

	t.Run("ready", func(t *testing.T) {
		db := &mockPool{}
		db.On("Ping", mock.Anything).Return(nil)

		code, body := readyz(t, HandleReadyz(db, registryOK))
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
		db.AssertExpectations(t)
	})

	t.Run("database down skips later checks", func(t *testing.T) {
		db := &mockPool{}
		db.On("Ping", mock.Anything).Return(errors.New("connection refused"))
		called := false
		registry := ReadinessCheck{Name: ComponentRegistry, Check: func(context.Context) error {
			called = true
			return nil
		}}

		code, body := readyz(t, HandleReadyz(db, registry))
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unavailable", body.Status)
		assert.Equal(t, ComponentDatabase, body.Component)
		assert.False(t, called)
	})

	t.Run("registry drift", func(t *testing.T) {
		db := &mockPool{}
		db.On("Ping", mock.Anything).Return(nil)
		drift := ReadinessCheck{Name: ComponentRegistry, Check: func(context.Context) error {
			return errors.New("brand_stocks_records.stock_date is missing")
		}}

		code, body := readyz(t, HandleReadyz(db, drift))
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, ComponentRegistry, body.Component)
		assert.Equal(t, "registry check failed", body.Message)
	})

	t.Run("ping runs under a deadline", func(t *testing.T) {
		db := &mockPool{}
		db.On("Ping", mock.MatchedBy(func(ctx context.Context) bool {
			_, ok := ctx.Deadline()
			return ok
		})).Return(context.DeadlineExceeded)

		code, body := readyz(t, HandleReadyz(db))
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, ComponentDatabase, body.Component)
		db.AssertExpectations(t)
	})
}
