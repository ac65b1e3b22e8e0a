package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActivateRedirectsValidCode(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(http.MethodGet, "/activate?user_code=AB12-CD34", "198.51.100.7")
	require.Equal(t, http.StatusFound, resp.Code)
	require.Equal(t, "/oauth2/device_verification?user_code=AB12-CD34", resp.Header().Get("Location"))
}

func TestActivateRejectsMalformedCode(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(http.MethodGet, "/activate?user_code=short", "198.51.100.7")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "invalid_user_code")
	require.Empty(t, resp.Header().Get("Location"), "malformed code must not redirect")
}

func TestActivateWithoutCodeRendersEntryForm(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(http.MethodGet, "/activate", "198.51.100.7")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Header().Get("Content-Type"), "text/html")
	require.Contains(t, resp.Body.String(), "user_code")
}

func TestActivatedTerminalView(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(http.MethodGet, "/activated", "198.51.100.7")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "Device activated")
}

func TestRootSuccessView(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(http.MethodGet, "/?success", "198.51.100.7")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "Success")
}

func TestRootWithoutSuccessRedirectsToActivate(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(http.MethodGet, "/", "198.51.100.7")
	require.Equal(t, http.StatusFound, resp.Code)
	require.Equal(t, "/activate", resp.Header().Get("Location"))
}
