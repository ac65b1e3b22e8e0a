package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/gatehouse-dev/gatehouse/pkg/iputil"
)

// AttemptLog appends admission decisions to the database. Rows are never
// mutated after creation; old rows are pruned by age.
type AttemptLog struct {
	db        *gorm.DB
	logger    zerolog.Logger
	retention time.Duration
}

func NewAttemptLog(db *gorm.DB, logger zerolog.Logger, retention time.Duration) *AttemptLog {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &AttemptLog{db: db, logger: logger, retention: retention}
}

// Record writes one attempt row. A write failure is logged and swallowed:
// audit logging is best-effort and must never turn an allow into a deny or
// mask a deny.
func (l *AttemptLog) Record(c *gin.Context, result, reason string) {
	attempt := AccessAttempt{
		ClientIP:   iputil.ClientIP(c.Request),
		UserAgent:  c.Request.UserAgent(),
		Endpoint:   c.Request.URL.Path,
		HTTPMethod: c.Request.Method,
		ClientID:   iputil.ClientIDFromRequest(c.Request),
		UserCode:   c.Query("user_code"),
		SessionID:  requestID(c),
		Result:     result,
		Reason:     reason,
	}

	if err := l.db.Create(&attempt).Error; err != nil {
		l.logger.Error().Err(err).
			Str("result", result).
			Str("client_ip", attempt.ClientIP).
			Msg("failed to record access attempt")
	}
}

// Prune deletes attempts older than the retention window.
func (l *AttemptLog) Prune() error {
	cutoff := time.Now().Add(-l.retention)
	return l.db.Where("created_at < ?", cutoff).Delete(&AccessAttempt{}).Error
}

// Recent returns up to limit attempts, newest first.
func (l *AttemptLog) Recent(limit int) ([]AccessAttempt, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var attempts []AccessAttempt
	err := l.db.Order("created_at desc").Limit(limit).Find(&attempts).Error
	return attempts, err
}
