package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func (env *testEnv) adminRequest(t *testing.T, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-admin-token")
	resp := httptest.NewRecorder()
	env.gin.ServeHTTP(resp, req)
	return resp
}

func TestAdminRequiresBearerToken(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/blacklist", nil)
	resp := httptest.NewRecorder()
	env.gin.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/admin/blacklist", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp = httptest.NewRecorder()
	env.gin.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAdminBlacklistLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	created := env.adminRequest(t, http.MethodPost, "/v1/admin/blacklist", map[string]any{
		"ip_pattern": "203.0.113.0/24",
		"reason":     "abuse report",
		"actor":      "secops",
	})
	require.Equal(t, http.StatusCreated, created.Code)

	var entry BlacklistEntry
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &entry))
	require.True(t, entry.IsActive)

	// The new entry takes effect immediately.
	denied := env.do(http.MethodGet, deviceVerificationPath, "203.0.113.9")
	require.Equal(t, http.StatusForbidden, denied.Code)

	removed := env.adminRequest(t, http.MethodDelete, fmt.Sprintf("/v1/admin/blacklist/%d", entry.ID), nil)
	require.Equal(t, http.StatusNoContent, removed.Code)

	// Deactivated, not erased: listing still shows it, gating ignores it.
	listed := env.adminRequest(t, http.MethodGet, "/v1/admin/blacklist", nil)
	require.Equal(t, http.StatusOK, listed.Code)
	var entries []BlacklistEntry
	require.NoError(t, json.Unmarshal(listed.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.False(t, entries[0].IsActive)

	allowed := env.do(http.MethodGet, deviceVerificationPath, "203.0.113.9")
	require.Equal(t, http.StatusOK, allowed.Code)
}

func TestAdminWhitelistLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	created := env.adminRequest(t, http.MethodPost, "/v1/admin/whitelist", map[string]any{
		"ip_pattern": "10.0.0.0/8",
		"actor":      "netops",
	})
	require.Equal(t, http.StatusCreated, created.Code)

	var rule WhitelistRule
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &rule))

	removed := env.adminRequest(t, http.MethodDelete, fmt.Sprintf("/v1/admin/whitelist/%d", rule.ID), nil)
	require.Equal(t, http.StatusNoContent, removed.Code)
}

func TestAdminDeleteMissingEntry(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.adminRequest(t, http.MethodDelete, "/v1/admin/blacklist/999", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = env.adminRequest(t, http.MethodDelete, "/v1/admin/blacklist/not-a-number", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdminAttemptListing(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.server.db.Create(&BlacklistEntry{
		IPPattern: "203.0.113.9",
		IsActive:  true,
	}).Error)

	env.do(http.MethodGet, deviceVerificationPath, "203.0.113.9")

	resp := env.adminRequest(t, http.MethodGet, "/v1/admin/attempts", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var attempts []AccessAttempt
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &attempts))
	require.Len(t, attempts, 1)
	require.Equal(t, ResultBlockedBlacklist, attempts[0].Result)
	require.Equal(t, "203.0.113.9", attempts[0].ClientIP)
}

func TestAdminRateLimitStats(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(http.MethodGet, deviceAuthorizationPath, "198.51.100.7")

	resp := env.adminRequest(t, http.MethodGet, "/v1/admin/ratelimits", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"keys":1}`, resp.Body.String())
}
