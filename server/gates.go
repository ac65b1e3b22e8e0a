package main

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Paths never evaluated by the reputation gates: operational surfaces that
// must stay reachable even for misconfigured or blocked origins.
var gateExemptPrefixes = []string{
	"/v1/health",
	"/v1/admin",
	"/metrics",
	"/error",
}

// The whitelist gate additionally skips static assets.
var staticAssetPrefixes = []string{
	"/static/",
	"/assets/",
	"/favicon.ico",
}

func isGateExempt(path string) bool {
	for _, prefix := range gateExemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func isWhitelistExempt(path string) bool {
	if isGateExempt(path) {
		return true
	}
	for _, prefix := range staticAssetPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// blockDelay throttles automated probing on denial paths. It blocks only
// the denied request's own handler goroutine.
func (s *Server) blockDelay() {
	if s.cfg.Blacklist.BlockDelayMs > 0 {
		time.Sleep(time.Duration(s.cfg.Blacklist.BlockDelayMs) * time.Millisecond)
	}
}

// admissionAudit records an ALLOWED attempt for protocol endpoints once all
// gates have admitted the request. Runs after the gate middlewares.
func (s *Server) admissionAudit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/oauth2/") {
			s.attempts.Record(c, ResultAllowed, "")
		}
		c.Next()
	}
}
