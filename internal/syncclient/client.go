// Package syncclient pushes pending local records to the server's bulk-sync
// endpoint and pulls server-owned rows back into the local store.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/osse101/FieldSync_Go/internal/concurrency"
	"github.com/osse101/FieldSync_Go/internal/domain"
	"github.com/osse101/FieldSync_Go/internal/localstore"
	"github.com/osse101/FieldSync_Go/internal/logger"
)

// ErrSyncInProgress is returned when the same collection is already syncing
var ErrSyncInProgress = errors.New(ErrMsgSyncInProgress)

// Config controls batching, timeouts and retry
type Config struct {
	BaseURL string
	// DeviceID identifies this install in idempotency keys; New generates
	// one when empty
	DeviceID  string
	BatchSize int
	// RequestTimeout bounds each attempt, not the whole retry sequence
	RequestTimeout time.Duration
	MaxRetries     uint64
	BackoffMin     time.Duration
	BackoffMax     time.Duration
	HTTPClient     *http.Client
}

// Store is the part of the local store the client needs
type Store interface {
	Pending(ctx context.Context, collection string, limit int) ([]localstore.PendingRecord, error)
	MarkSynced(ctx context.Context, collection string, marks []localstore.SyncMark) (int, error)
	Upsert(ctx context.Context, collection string, rec domain.Record) (domain.Record, error)
}

// Client talks to one server on behalf of one local store
type Client struct {
	cfg    Config
	store  Store
	http   *http.Client
	routes []Route
	locks  *concurrency.LockManager

	mu    sync.RWMutex
	token string
}

// HTTPError is a non-2xx response. It unwraps to the matching domain error.
type HTTPError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %d", ErrMsgUnexpectedStatus, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap maps the status code to a domain sentinel
func (e *HTTPError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return domain.ErrInvalidInput
	case http.StatusUnauthorized:
		return domain.ErrInvalidCredentials
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConstraintViolation
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return domain.ErrStorageUnavailable
	default:
		return domain.ErrUnderlyingStore
	}
}

// Temporary reports whether a retry may succeed
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// New creates a client with DefaultRoutes
func New(cfg Config, store Store) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgBaseURLRequired)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgStoreRequired)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.DeviceID == "" {
		cfg.DeviceID = uuid.NewString()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = DefaultBackoffMin
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = DefaultBackoffMax
		if cfg.BackoffMax < cfg.BackoffMin {
			cfg.BackoffMax = cfg.BackoffMin
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		cfg:    cfg,
		store:  store,
		http:   httpClient,
		routes: DefaultRoutes(),
		locks:  concurrency.NewLockManager(),
	}, nil
}

// SetToken sets the bearer token sent with every request
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Routes returns the push routes in sync order
func (c *Client) Routes() []Route {
	return c.routes
}

// LoginResponse is the body of a successful login
type LoginResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login obtains a bearer token and keeps it for later requests
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	body := map[string]string{"username": username, "password": password}

	var out LoginResponse
	if _, err := c.do(ctx, http.MethodPost, PathLogin, body, nil, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	logger.FromContext(ctx).Info(LogMsgLoggedIn, logger.AttrKeySubject, username, "role", out.Role, logger.AttrKeyDeviceID, c.cfg.DeviceID)
	return &out, nil
}

// do sends one request with per-attempt timeout and exponential backoff.
// 4xx responses other than 429 are not retried. The response headers of the
// successful attempt are returned.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, headers map[string]string, out interface{}) (http.Header, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, ErrMsgEncodeBody, err)
		}
		payload = b
	}

	var respHeader http.Header
	attempt := 0
	op := func() error {
		attempt++
		h, err := c.attempt(ctx, method, path, payload, headers, out)
		if err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && !httpErr.Temporary() {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		respHeader = h
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.FromContext(ctx).Warn(LogMsgRetrying, "path", path, "attempt", attempt, "wait", wait, logger.AttrKeyError, err)
	}

	if err := backoff.RetryNotify(op, c.newBackOff(ctx), notify); err != nil {
		return nil, err
	}
	return respHeader, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.BackoffMin
	b.MaxInterval = c.cfg.BackoffMax
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx)
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, headers map[string]string, out interface{}) (http.Header, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgBuildRequest, err)
	}
	if payload != nil {
		req.Header.Set(HeaderContentType, ContentTypeJSON)
	}
	if token := c.Token(); token != "" {
		req.Header.Set(HeaderAuthorization, BearerPrefix+token)
	}
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: e.Message, Detail: e.Error}
	}

	if out != nil && len(raw) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(out); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("%w: %s: %v", domain.ErrUnderlyingStore, ErrMsgDecodeResponse, err))
		}
	}
	return resp.Header, nil
}
