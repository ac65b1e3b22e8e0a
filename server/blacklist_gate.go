package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gatehouse-dev/gatehouse/pkg/iputil"
)

// blacklistGate is the first admission filter. A request from a blacklisted
// IP is logged, delayed, and rejected before any later gate or handler runs.
// Exempt paths skip evaluation entirely: no log entry, no delay.
func (s *Server) blacklistGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.cfg.Blacklist.Enabled || isGateExempt(c.Request.URL.Path) {
			c.Next()
			return
		}

		ip := iputil.ClientIP(c.Request)
		blocked, reason, err := s.blacklist.IsBlacklisted(ip)
		if err != nil {
			// The blacklist is best-effort at this layer: lookup failures
			// admit the request rather than taking the gateway down with
			// the reputation store.
			logger := requestLogger(c, s.logger)
			logger.Error().Err(err).Str("client_ip", ip).
				Msg("blacklist lookup failed, admitting request")
			c.Next()
			return
		}
		if !blocked {
			c.Next()
			return
		}

		s.attempts.Record(c, ResultBlockedBlacklist, reason)
		logger := requestLogger(c, s.logger)
		logger.Warn().
			Str("client_ip", ip).
			Str("reason", reason).
			Msg("blacklisted IP rejected")

		s.blockDelay()
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "ip_blacklisted",
			"message":   "Access denied",
			"status":    http.StatusForbidden,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
