package main

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/gatehouse-dev/gatehouse/pkg/iputil"
)

// blacklistChecker answers whether an IP is blocked. Split out as an
// interface so gate tests can inject lookup failures.
type blacklistChecker interface {
	IsBlacklisted(ip string) (bool, string, error)
}

// WhitelistQuery carries the full request context into whitelist validation.
// Only the IP decides admission; the rest is audit context.
type WhitelistQuery struct {
	IP        string
	Path      string
	Method    string
	ClientID  string
	UserAgent string
}

// WhitelistVerdict is the validation outcome plus a human-readable reason.
// The reason goes into the audit log, never into the response body.
type WhitelistVerdict struct {
	Allowed bool
	Reason  string
}

type whitelistValidator interface {
	Validate(q WhitelistQuery) (WhitelistVerdict, error)
}

// ReputationStore reads blacklist entries and whitelist rules from the
// database. It is read-heavy; writes happen only through the admin API.
type ReputationStore struct {
	db *gorm.DB
}

func NewReputationStore(db *gorm.DB) *ReputationStore {
	return &ReputationStore{db: db}
}

// IsBlacklisted matches ip against active blacklist entries, highest
// priority first. Returns the matching entry's reason for the audit log.
func (s *ReputationStore) IsBlacklisted(ip string) (bool, string, error) {
	var entries []BlacklistEntry
	if err := s.db.Where("is_active = ?", true).Order("priority desc").Find(&entries).Error; err != nil {
		return false, "", err
	}

	for _, entry := range entries {
		if iputil.MatchPattern(entry.IPPattern, ip) {
			reason := entry.Reason
			if reason == "" {
				reason = fmt.Sprintf("matched blacklist pattern %s", entry.IPPattern)
			}
			return true, reason, nil
		}
	}
	return false, "", nil
}

// Validate admits the query when its IP falls inside an active whitelist
// rule. Overlaps resolve by highest priority; inactive rules never match.
func (s *ReputationStore) Validate(q WhitelistQuery) (WhitelistVerdict, error) {
	var rules []WhitelistRule
	if err := s.db.Where("is_active = ?", true).Order("priority desc").Find(&rules).Error; err != nil {
		return WhitelistVerdict{}, err
	}

	for _, rule := range rules {
		if iputil.MatchPattern(rule.IPPattern, q.IP) {
			return WhitelistVerdict{
				Allowed: true,
				Reason:  fmt.Sprintf("matched whitelist rule %d (%s)", rule.ID, rule.IPPattern),
			}, nil
		}
	}
	return WhitelistVerdict{
		Allowed: false,
		Reason:  fmt.Sprintf("no active whitelist rule covers %s %s from %s", q.Method, q.Path, q.IP),
	}, nil
}

var (
	_ blacklistChecker   = (*ReputationStore)(nil)
	_ whitelistValidator = (*ReputationStore)(nil)
)
