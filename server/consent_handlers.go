package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gatehouse-dev/gatehouse/pkg/consent"
	"github.com/gatehouse-dev/gatehouse/pkg/engine"
)

// The fronting authentication layer identifies the principal through this
// header; the gateway itself holds no sessions.
const principalHeader = "X-Authenticated-User"

type consentFetcher interface {
	GetConsent(ctx context.Context, clientID, principal string) (*engine.ConsentRecord, error)
}

// handleConsent renders the consent-page data for an authenticated
// principal: which requested scopes still need approval, which were granted
// before, and where the approval form should submit.
func (s *Server) handleConsent(c *gin.Context) {
	principal := c.GetHeader(principalHeader)
	if principal == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	clientID := c.Query("client_id")
	if clientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing client_id"})
		return
	}
	requestedScope := c.Query("scope")
	state := c.Query("state")
	userCode := c.Query("user_code")

	record, err := s.engine.GetConsent(c.Request.Context(), clientID, principal)
	if err != nil {
		logger := requestLogger(c, s.logger)
		logger.Error().Err(err).
			Str("client_id", clientID).
			Msg("consent record lookup failed")
		respondError(c, http.StatusBadGateway, "consent lookup failed", s.logger)
		return
	}

	decision := consent.Partition(requestedScope, record.GrantedScopes)

	requestURI := "/oauth2/authorize"
	if userCode != "" {
		requestURI = deviceVerificationPath
	}

	c.JSON(http.StatusOK, gin.H{
		"client_id":                  clientID,
		"state":                      state,
		"user_code":                  userCode,
		"principal_name":             principal,
		"request_uri":                requestURI,
		"scopes_to_approve":          decision.ScopesToApprove,
		"previously_approved_scopes": decision.PreviouslyApprovedScopes,
	})
}
