package main

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func (s *Server) registerAdminRoutes(r *gin.Engine) {
	admin := r.Group("/v1/admin", s.requireAdmin)

	admin.GET("/blacklist", s.handleListBlacklist)
	admin.POST("/blacklist", s.handleCreateBlacklist)
	admin.DELETE("/blacklist/:id", s.handleDeleteBlacklist)

	admin.GET("/whitelist", s.handleListWhitelist)
	admin.POST("/whitelist", s.handleCreateWhitelist)
	admin.DELETE("/whitelist/:id", s.handleDeleteWhitelist)

	admin.GET("/attempts", s.handleListAttempts)
	admin.GET("/ratelimits", s.handleRateLimitStats)
}

func (s *Server) requireAdmin(c *gin.Context) {
	authz := c.GetHeader("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	token := strings.TrimPrefix(authz, "Bearer ")
	if s.cfg.AdminToken == "" || !secureCompare(token, s.cfg.AdminToken) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
		return
	}
	c.Next()
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type reputationEntryRequest struct {
	IPPattern string `json:"ip_pattern" binding:"required"`
	Priority  int    `json:"priority"`
	Reason    string `json:"reason"`
	Actor     string `json:"actor"`
}

func (s *Server) handleListBlacklist(c *gin.Context) {
	var entries []BlacklistEntry
	if err := s.db.Order("priority desc").Find(&entries).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list blacklist entries", s.logger)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleCreateBlacklist(c *gin.Context) {
	var req reputationEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry := BlacklistEntry{
		IPPattern: req.IPPattern,
		Priority:  req.Priority,
		IsActive:  true,
		Reason:    req.Reason,
		BlockedBy: req.Actor,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "failed to persist blacklist entry", s.logger)
		return
	}

	logger := requestLogger(c, s.logger)
	logger.Info().
		Str("ip_pattern", entry.IPPattern).
		Str("blocked_by", entry.BlockedBy).
		Msg("blacklist entry created")
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) handleDeleteBlacklist(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return
	}

	var entry BlacklistEntry
	if err := s.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to load entry", s.logger)
		return
	}

	// Deactivate instead of deleting so the audit trail keeps its context.
	if err := s.db.Model(&entry).Update("is_active", false).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "failed to deactivate entry", s.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListWhitelist(c *gin.Context) {
	var rules []WhitelistRule
	if err := s.db.Order("priority desc").Find(&rules).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list whitelist rules", s.logger)
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (s *Server) handleCreateWhitelist(c *gin.Context) {
	var req reputationEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule := WhitelistRule{
		IPPattern: req.IPPattern,
		Priority:  req.Priority,
		IsActive:  true,
		Reason:    req.Reason,
		CreatedBy: req.Actor,
	}
	if err := s.db.Create(&rule).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "failed to persist whitelist rule", s.logger)
		return
	}

	logger := requestLogger(c, s.logger)
	logger.Info().
		Str("ip_pattern", rule.IPPattern).
		Str("created_by", rule.CreatedBy).
		Msg("whitelist rule created")
	c.JSON(http.StatusCreated, rule)
}

func (s *Server) handleDeleteWhitelist(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	var rule WhitelistRule
	if err := s.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to load rule", s.logger)
		return
	}

	if err := s.db.Model(&rule).Update("is_active", false).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "failed to deactivate rule", s.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListAttempts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	attempts, err := s.attempts.Recent(limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list attempts", s.logger)
		return
	}
	c.JSON(http.StatusOK, attempts)
}

func (s *Server) handleRateLimitStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.limits.Stats())
}

func parseUintParam(raw string) (uint, error) {
	if raw == "" {
		return 0, strconv.ErrSyntax
	}
	id64, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id64), nil
}
