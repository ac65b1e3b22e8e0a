package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gatehouse-dev/gatehouse/pkg/iputil"
)

// whitelistGate runs after the blacklist gate when whitelist enforcement is
// enabled. Denials answer a deliberately generic 403; the specific reason
// stays in the audit log. Internal validation errors follow enforce_mode:
// fail-closed when set, fail-open (with a warning) otherwise.
func (s *Server) whitelistGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.cfg.Whitelist.Enabled || isWhitelistExempt(c.Request.URL.Path) {
			c.Next()
			return
		}

		ip := iputil.ClientIP(c.Request)
		verdict, err := s.whitelist.Validate(WhitelistQuery{
			IP:        ip,
			Path:      c.Request.URL.Path,
			Method:    c.Request.Method,
			ClientID:  iputil.ClientIDFromRequest(c.Request),
			UserAgent: c.Request.UserAgent(),
		})
		if err != nil {
			logger := requestLogger(c, s.logger)
			if s.cfg.Whitelist.EnforceMode {
				logger.Error().Err(err).Str("client_ip", ip).
					Msg("whitelist validation failed, enforce mode denies request")
				s.deny(c, ResultBlockedNotWhitelst, "whitelist validation error under enforce mode")
				return
			}
			logger.Warn().Err(err).Str("client_ip", ip).
				Msg("whitelist validation failed, admitting request")
			c.Next()
			return
		}

		if verdict.Allowed {
			c.Next()
			return
		}

		logger := requestLogger(c, s.logger)
		logger.Info().
			Str("client_ip", ip).
			Str("reason", verdict.Reason).
			Msg("request not whitelisted")
		s.deny(c, ResultBlockedNotWhitelst, verdict.Reason)
	}
}

func (s *Server) deny(c *gin.Context, result, reason string) {
	s.attempts.Record(c, result, reason)
	s.blockDelay()
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"error":   "Forbidden",
		"message": "Access denied",
	})
}
