package main

import "time"

// Access attempt results, one per admission decision.
const (
	ResultAllowed            = "ALLOWED"
	ResultBlockedBlacklist   = "BLOCKED_BLACKLIST"
	ResultBlockedNotWhitelst = "BLOCKED_NOT_WHITELISTED"
	ResultRateLimited        = "RATE_LIMITED"
)

// BlacklistEntry marks an IP or CIDR range that must never reach the
// protocol engine. Entries are administered through the admin API; the
// gates only read them.
type BlacklistEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	IPPattern string    `gorm:"index;not null" json:"ip_pattern"`
	Priority  int       `gorm:"index" json:"priority"`
	IsActive  bool      `gorm:"index" json:"is_active"`
	Reason    string    `json:"reason"`
	BlockedBy string    `json:"blocked_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WhitelistRule admits an IP or CIDR range when whitelist enforcement is on.
// Overlapping rules resolve by highest priority; inactive rules never match.
type WhitelistRule struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	IPPattern string    `gorm:"index;not null" json:"ip_pattern"`
	Priority  int       `gorm:"index" json:"priority"`
	IsActive  bool      `gorm:"index" json:"is_active"`
	Reason    string    `json:"reason"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccessAttempt is one immutable row in the append-only admission audit log.
// References to the matching rule are reason text only, never a foreign key.
type AccessAttempt struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ClientIP   string    `gorm:"index" json:"client_ip"`
	UserAgent  string    `json:"user_agent"`
	Endpoint   string    `json:"endpoint"`
	HTTPMethod string    `json:"http_method"`
	ClientID   string    `json:"client_id,omitempty"`
	UserCode   string    `json:"user_code,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	Result     string    `gorm:"index" json:"result"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
