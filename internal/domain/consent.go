package domain

import (
	"time"
)

// Consent type constants.
const (
	ConsentTerms     = "terms"
	ConsentPrivacy   = "privacy"
	ConsentAge       = "age"
	ConsentMarketing = "marketing"
)

// RequiredConsents returns the consent types that must accompany every
// registration.
func RequiredConsents() []string {
	return []string{ConsentTerms, ConsentPrivacy, ConsentAge}
}

// IsValidConsentType checks whether the given string is a known consent type.
func IsValidConsentType(t string) bool {
	switch t {
	case ConsentTerms, ConsentPrivacy, ConsentAge, ConsentMarketing:
		return true
	}
	return false
}

// Consent is one immutable audit row per (account, consent type) pair.
// Rows are append-only and never updated.
type Consent struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Type      string    `json:"type"`
	SourceIP  string    `json:"source_ip"`
	CreatedAt time.Time `json:"created_at"`
}
