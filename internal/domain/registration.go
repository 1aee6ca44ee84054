package domain

import (
	"time"
)

// Registration step identifiers, returned to the client as the next
// location in the flow.
const (
	StepVerifyOTP       = "verify_otp"
	StepCompleteProfile = "complete_profile"
	StepDone            = "done"
)

// PendingRegistration carries the state of one registration attempt between
// requests. It is serialized as a single blob into the session store under
// its RegistrationID and bounded by an explicit TTL that the orchestrator
// checks on every read. Only a salted hash of the OTP is ever held; the
// plaintext code exists solely in the SMS message.
type PendingRegistration struct {
	RegistrationID string      `json:"registration_id"`
	AccountID      string      `json:"account_id"`
	Phone          string      `json:"phone"`
	PhoneID        string      `json:"phone_id"`
	Role           ProfileKind `json:"role"`
	OTPHash        string      `json:"otp_hash"`
	OTPSalt        string      `json:"otp_salt"`
	OTPExpiresAt   time.Time   `json:"otp_expires_at"`
	AttemptCount   int         `json:"attempt_count"`
	PhoneVerified  bool        `json:"phone_verified"`
	CreatedAt      time.Time   `json:"created_at"`
	ExpiresAt      time.Time   `json:"expires_at"`
}

// Expired reports whether the whole registration attempt has outlived its
// TTL at the given instant.
func (p *PendingRegistration) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// OTPExpired reports whether the current code has outlived its own expiry.
func (p *PendingRegistration) OTPExpired(now time.Time) bool {
	return now.After(p.OTPExpiresAt)
}

// NextStep derives the step the client should perform next. Resumability
// depends on this being a pure function of the blob's state.
func (p *PendingRegistration) NextStep() string {
	if !p.PhoneVerified {
		return StepVerifyOTP
	}
	return StepCompleteProfile
}
