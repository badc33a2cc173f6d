package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upcheck/internal/shared"
	"upcheck/internal/storage"
)

func TestCheckCreate(t *testing.T) {
	e := newTestEnv(t)
	token := e.createUser(t, "5551234567")

	check := e.createCheck(t, token.ID)
	assert.Len(t, check.ID, 20)
	assert.Equal(t, "5551234567", check.UserPhone)
	assert.Equal(t, "http", check.Protocol)
	assert.Equal(t, []int{200}, check.SuccessCodes)

	// the owner's check list references the new check
	var user shared.User
	require.NoError(t, e.store.Read(context.Background(), shared.CollectionUsers, "5551234567", &user))
	assert.Equal(t, []string{check.ID}, user.Checks)
}

func TestCheckCreateRequiresAllFields(t *testing.T) {
	e := newTestEnv(t)
	token := e.createUser(t, "5551234567")

	tests := []struct {
		name    string
		payload map[string]any
		field   string
	}{
		{"bad protocol", map[string]any{"protocol": "ftp", "url": "example.com", "method": "get", "successCodes": []int{200}, "timeoutSeconds": 3}, "protocol"},
		{"missing url", map[string]any{"protocol": "http", "method": "get", "successCodes": []int{200}, "timeoutSeconds": 3}, "url"},
		{"bad method", map[string]any{"protocol": "http", "url": "example.com", "method": "patch", "successCodes": []int{200}, "timeoutSeconds": 3}, "method"},
		{"empty success codes", map[string]any{"protocol": "http", "url": "example.com", "method": "get", "successCodes": []int{}, "timeoutSeconds": 3}, "successCodes"},
		{"timeout too large", map[string]any{"protocol": "http", "url": "example.com", "method": "get", "successCodes": []int{200}, "timeoutSeconds": 6}, "timeoutSeconds"},
		{"timeout too small", map[string]any{"protocol": "http", "url": "example.com", "method": "get", "successCodes": []int{200}, "timeoutSeconds": 0}, "timeoutSeconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/checks", token.ID, tt.payload)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeJSON[struct {
				Fields map[string]string `json:"fields"`
			}](t, rec)
			assert.Contains(t, body.Fields, tt.field)
		})
	}
}

func TestCheckCreateRequiresToken(t *testing.T) {
	e := newTestEnv(t)
	token := e.createUser(t, "5551234567")

	payload := map[string]any{
		"protocol": "http", "url": "example.com", "method": "get",
		"successCodes": []int{200}, "timeoutSeconds": 3,
	}
	rec := e.do(t, http.MethodPost, "/checks", "", payload)
	assert.Equal(t, http.StatusForbidden, rec.Code, "no token")

	e.expireToken(t, token.ID)
	rec = e.do(t, http.MethodPost, "/checks", token.ID, payload)
	assert.Equal(t, http.StatusForbidden, rec.Code, "expired token")
}

func TestCheckCreateCap(t *testing.T) {
	e := newTestEnv(t)
	token := e.createUser(t, "5551234567")

	for i := 0; i < e.cfg.MaxChecks; i++ {
		e.createCheck(t, token.ID)
	}
	rec := e.do(t, http.MethodPost, "/checks", token.ID, map[string]any{
		"protocol": "http", "url": "example.com", "method": "get",
		"successCodes": []int{200}, "timeoutSeconds": 3,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "the cap+1-th create must fail")
	body := decodeJSON[struct {
		Fields map[string]string `json:"fields"`
	}](t, rec)
	assert.Contains(t, body.Fields["checks"], fmt.Sprintf("%d", e.cfg.MaxChecks))
}

func TestCheckCreateCapZero(t *testing.T) {
	e := newTestEnv(t)
	e.api.Checks.maxChecks = 0
	token := e.createUser(t, "5551234567")

	rec := e.do(t, http.MethodPost, "/checks", token.ID, map[string]any{
		"protocol": "http", "url": "example.com", "method": "get",
		"successCodes": []int{200}, "timeoutSeconds": 3,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckRead(t *testing.T) {
	e := newTestEnv(t)
	token := e.createUser(t, "5551234567")
	check := e.createCheck(t, token.ID)

	rec := e.do(t, http.MethodGet, "/checks?id="+check.ID, token.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON[shared.Check](t, rec)
	assert.Equal(t, check.ID, got.ID)

	// a token bound to a different phone cannot read it
	other := e.createUser(t, "5557654321")
	rec = e.do(t, http.MethodGet, "/checks?id="+check.ID, other.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheckReadMissing(t *testing.T) {
	e := newTestEnv(t)
	token := e.createUser(t, "5551234567")

	rec := e.do(t, http.MethodGet, "/checks?id=nosuchcheckid0000000", token.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckUpdateSingleField(t *testing.T) {
	e := newTestEnv(t)
	token := e.createUser(t, "5551234567")
	check := e.createCheck(t, token.ID)

	rec := e.do(t, http.MethodPut, "/checks?id="+check.ID, token.ID, map[string]any{
		"timeoutSeconds": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got shared.Check
	require.NoError(t, e.store.Read(context.Background(), shared.CollectionChecks, check.ID, &got))
	assert.Equal(t, 5, got.TimeoutSeconds)
	// every other field keeps its prior stored value
	assert.Equal(t, check.Protocol, got.Protocol)
	assert.Equal(t, check.URL, got.URL)
	assert.Equal(t, check.Method, got.Method)
	assert.Equal(t, check.SuccessCodes, got.SuccessCodes)
}

func TestCheckUpdateNoValidFields(t *testing.T) {
	e := newTestEnv(t)
	token := e.createUser(t, "5551234567")
	check := e.createCheck(t, token.ID)

	rec := e.do(t, http.MethodPut, "/checks?id="+check.ID, token.ID, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty patch")

	rec = e.do(t, http.MethodPut, "/checks?id="+check.ID, token.ID, map[string]any{
		"protocol": "gopher",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "only invalid fields supplied")
	body := decodeJSON[struct {
		Fields map[string]string `json:"fields"`
	}](t, rec)
	assert.Contains(t, body.Fields, "protocol")
}

func TestCheckUpdateOwnership(t *testing.T) {
	e := newTestEnv(t)
	token := e.createUser(t, "5551234567")
	check := e.createCheck(t, token.ID)
	other := e.createUser(t, "5557654321")

	rec := e.do(t, http.MethodPut, "/checks?id="+check.ID, other.ID, map[string]any{
		"timeoutSeconds": 5,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheckDelete(t *testing.T) {
	e := newTestEnv(t)
	token := e.createUser(t, "5551234567")
	check := e.createCheck(t, token.ID)
	keep := e.createCheck(t, token.ID)

	rec := e.do(t, http.MethodDelete, "/checks?id="+check.ID, token.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ctx := context.Background()
	var got shared.Check
	assert.ErrorIs(t, e.store.Read(ctx, shared.CollectionChecks, check.ID, &got), storage.ErrNotFound)

	// gone from the owner's list, sibling untouched
	var user shared.User
	require.NoError(t, e.store.Read(ctx, shared.CollectionUsers, "5551234567", &user))
	assert.Equal(t, []string{keep.ID}, user.Checks)
}

func TestCheckDeleteIntegrityFailure(t *testing.T) {
	e := newTestEnv(t)
	token := e.createUser(t, "5551234567")
	check := e.createCheck(t, token.ID)

	// corrupt the cross-reference: drop the ID from the owner's list
	ctx := context.Background()
	var user shared.User
	require.NoError(t, e.store.Read(ctx, shared.CollectionUsers, "5551234567", &user))
	user.Checks = nil
	require.NoError(t, e.store.Update(ctx, shared.CollectionUsers, "5551234567", &user))

	rec := e.do(t, http.MethodDelete, "/checks?id="+check.ID, token.ID, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeJSON[map[string]any](t, rec)
	assert.Contains(t, body["error"], "missing from its owner's check list")
}

func TestCheckDeleteOwnership(t *testing.T) {
	e := newTestEnv(t)
	token := e.createUser(t, "5551234567")
	check := e.createCheck(t, token.ID)
	other := e.createUser(t, "5557654321")

	rec := e.do(t, http.MethodDelete, "/checks?id="+check.ID, other.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var got shared.Check
	assert.NoError(t, e.store.Read(context.Background(), shared.CollectionChecks, check.ID, &got))
}
