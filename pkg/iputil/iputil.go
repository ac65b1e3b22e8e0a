// Package iputil extracts originating client addresses from proxied HTTP
// requests and matches them against exact-IP or CIDR patterns.
package iputil

import (
	"bytes"
	"encoding/base64"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// ClientIP returns the originating client address for a request, preferring
// the first X-Forwarded-For entry, then X-Real-IP, then the socket address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
		if first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// MatchPattern reports whether ip falls inside pattern. A pattern is either
// an exact address or a CIDR range. Unparseable patterns or addresses never
// match.
func MatchPattern(pattern, ip string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}

	addr := net.ParseIP(strings.TrimSpace(ip))
	if addr == nil {
		return false
	}

	if strings.Contains(pattern, "/") {
		_, cidr, err := net.ParseCIDR(pattern)
		if err != nil {
			return false
		}
		return cidr.Contains(addr)
	}

	exact := net.ParseIP(pattern)
	return exact != nil && exact.Equal(addr)
}

// ClientIDFromRequest extracts an optional OAuth client identifier for audit
// logging: the decoded Basic username when present, else the client_id
// request parameter. The result never affects an admission decision.
func ClientIDFromRequest(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Basic ") {
		if raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(authz, "Basic ")); err == nil {
			if idx := strings.IndexByte(string(raw), ':'); idx >= 0 {
				return string(raw[:idx])
			}
		}
	}
	if id := r.URL.Query().Get("client_id"); id != "" {
		return id
	}
	return formClientID(r)
}

// formClientID reads client_id from a form-encoded POST body without
// consuming it. The body is restored afterwards so later handlers and the
// upstream proxy see it intact.
func formClientID(r *http.Request) string {
	if r.Method != http.MethodPost || r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return ""
	}

	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return ""
	}
	return values.Get("client_id")
}
