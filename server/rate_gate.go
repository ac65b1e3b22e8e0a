package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gatehouse-dev/gatehouse/pkg/iputil"
)

const (
	deviceAuthorizationPath = "/oauth2/device_authorization"
	deviceVerificationPath  = "/oauth2/device_verification"

	rateLimitKeyPrefix = "device-auth"
)

// deviceRateGate throttles device-code issuance per client IP. It covers
// only GET requests to the device-authorization endpoint; the verification
// endpoint carries legitimate user consent actions and is never throttled.
func (s *Server) deviceRateGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || c.Request.URL.Path != deviceAuthorizationPath {
			c.Next()
			return
		}

		ip := iputil.ClientIP(c.Request)
		decision, ok := s.limits.Acquire(rateLimitKeyPrefix + "-" + ip)
		if !ok {
			// Counter contention past the acquisition timeout is an
			// internal failure, not evidence of abuse: admit the request.
			logger := requestLogger(c, s.logger)
			logger.Error().Str("client_ip", ip).
				Msg("rate limiter acquisition timed out, admitting request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.UnixMilli(), 10))

		if decision.Allowed {
			c.Next()
			return
		}

		retryAfter := int(time.Until(decision.ResetAt).Seconds()) + 1
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))

		reason := fmt.Sprintf("exceeded %d device authorization requests per window", decision.Limit)
		s.attempts.Record(c, ResultRateLimited, reason)

		// Sustained throttling here is a device-code enumeration signal,
		// so it logs above the ordinary denial severity.
		logger := requestLogger(c, s.logger)
		logger.Warn().
			Str("client_ip", ip).
			Int("limit", decision.Limit).
			Time("window_reset", decision.ResetAt).
			Msg("device authorization rate limit exceeded")

		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":             "too_many_requests",
			"error_description": "Too many device authorization requests. Retry after the indicated delay.",
			"retry_after":       retryAfter,
		})
	}
}
