package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/santahate/czesci/internal/domain"
	apperrors "github.com/santahate/czesci/pkg/errors"
)

// Key prefixes for session-scoped state.
const (
	pendingKeyPrefix  = "pending_registration:"
	phoneOTPKeyPrefix = "settings_phone_otp:"
)

// PhoneChallenge is the transient OTP state for the authenticated
// settings-page phone-add flow. One challenge exists per phone id.
type PhoneChallenge struct {
	PhoneID      string    `json:"phone_id"`
	AccountID    string    `json:"account_id"`
	OTPHash      string    `json:"otp_hash"`
	OTPSalt      string    `json:"otp_salt"`
	AttemptCount int       `json:"attempt_count"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the challenge has outlived its expiry.
func (c *PhoneChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Store keeps per-flow transient state in Redis. Each entry is one JSON blob
// under one key so concurrent requests within a flow observe a consistent
// snapshot, last write wins.
type Store struct {
	client *redis.Client
}

// NewStore creates a Redis-backed session store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// SavePending writes the pending-registration blob with the given TTL.
func (s *Store) SavePending(ctx context.Context, pending *domain.PendingRegistration, ttl time.Duration) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending registration: %w", err)
	}

	key := pendingKeyPrefix + pending.RegistrationID
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save pending registration: %w", err)
	}

	return nil
}

// GetPending loads the pending-registration blob for the given registration
// id. Returns apperrors.ErrNotFound when the key is missing or expired.
func (s *Store) GetPending(ctx context.Context, registrationID string) (*domain.PendingRegistration, error) {
	payload, err := s.client.Get(ctx, pendingKeyPrefix+registrationID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get pending registration: %w", err)
	}

	var pending domain.PendingRegistration
	if err := json.Unmarshal(payload, &pending); err != nil {
		return nil, fmt.Errorf("unmarshal pending registration: %w", err)
	}

	return &pending, nil
}

// DeletePending removes the pending-registration blob.
func (s *Store) DeletePending(ctx context.Context, registrationID string) error {
	if err := s.client.Del(ctx, pendingKeyPrefix+registrationID).Err(); err != nil {
		return fmt.Errorf("delete pending registration: %w", err)
	}
	return nil
}

// SavePhoneChallenge writes a settings-flow OTP challenge keyed by phone id.
func (s *Store) SavePhoneChallenge(ctx context.Context, challenge *PhoneChallenge, ttl time.Duration) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("marshal phone challenge: %w", err)
	}

	key := phoneOTPKeyPrefix + challenge.PhoneID
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save phone challenge: %w", err)
	}

	return nil
}

// GetPhoneChallenge loads the settings-flow OTP challenge for the given
// phone id. Returns apperrors.ErrNotFound when no challenge exists.
func (s *Store) GetPhoneChallenge(ctx context.Context, phoneID string) (*PhoneChallenge, error) {
	payload, err := s.client.Get(ctx, phoneOTPKeyPrefix+phoneID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get phone challenge: %w", err)
	}

	var challenge PhoneChallenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return nil, fmt.Errorf("unmarshal phone challenge: %w", err)
	}

	return &challenge, nil
}

// DeletePhoneChallenge removes the settings-flow OTP challenge.
func (s *Store) DeletePhoneChallenge(ctx context.Context, phoneID string) error {
	if err := s.client.Del(ctx, phoneOTPKeyPrefix+phoneID).Err(); err != nil {
		return fmt.Errorf("delete phone challenge: %w", err)
	}
	return nil
}
