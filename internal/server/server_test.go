package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upcheck/internal/auth"
	"upcheck/internal/shared"
	"upcheck/internal/storage"
)

type testEnv struct {
	api    *API
	d      *Dispatcher
	store  storage.Store
	tokens *auth.Service
	cfg    *shared.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	cfg := &shared.Config{
		HashingSecret: "test-secret",
		MaxChecks:     5,
		TokenTTL:      time.Hour,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewService(store, cfg.TokenTTL)
	api := NewAPI(store, tokens, cfg, logger)
	return &testEnv{api: api, d: api.Dispatcher(), store: store, tokens: tokens, cfg: cfg}
}

// do issues a request against the dispatcher and returns the recorder.
func (e *testEnv) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		if raw, ok := body.([]byte); ok {
			rdr = bytes.NewReader(raw)
		} else {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			rdr = bytes.NewReader(b)
		}
	}
	req := httptest.NewRequest(method, target, rdr)
	if token != "" {
		req.Header.Set("token", token)
	}
	rec := httptest.NewRecorder()
	e.d.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// createUser registers a user and returns a fresh login token for it.
func (e *testEnv) createUser(t *testing.T, phone string) *shared.Token {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/users", "", map[string]any{
		"firstName":    "Ada",
		"lastName":     "Lovelace",
		"phone":        phone,
		"password":     "hunter2",
		"tosAgreement": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/tokens", "", map[string]any{
		"phone":    phone,
		"password": "hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := decodeJSON[shared.Token](t, rec)
	return &token
}

// createCheck creates a check owned by the token's user.
func (e *testEnv) createCheck(t *testing.T, token string) shared.Check {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/checks", token, map[string]any{
		"protocol":       "http",
		"url":            "example.com",
		"method":         "get",
		"successCodes":   []int{200},
		"timeoutSeconds": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeJSON[shared.Check](t, rec)
}

// expireToken forces the stored expiry into the past.
func (e *testEnv) expireToken(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	var token shared.Token
	require.NoError(t, e.store.Read(ctx, shared.CollectionTokens, id, &token))
	token.Expires = time.Now().Add(-time.Minute)
	require.NoError(t, e.store.Update(ctx, shared.CollectionTokens, id, &token))
}

func TestDispatcherUnknownPath(t *testing.T) {
	e := newTestEnv(t)
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodPatch} {
		rec := e.do(t, method, "/no/such/path", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
		assert.JSONEq(t, `{}`, rec.Body.String())
	}
}

func TestDispatcherUnsupportedVerb(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/users", "/tokens", "/checks"} {
		rec := e.do(t, http.MethodPatch, path, "", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
}

func TestDispatcherPing(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestDispatcherTrimsPath(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/ping/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDispatcherMalformedBodyIsNilPayload(t *testing.T) {
	e := newTestEnv(t)
	// malformed JSON does not fail dispatch; the handler rejects the
	// missing payload shape
	rec := e.do(t, http.MethodPost, "/users", "", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeJSON[map[string]any](t, rec)
	assert.Contains(t, body["error"], "payload")
}
