package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/santahate/czesci/internal/domain"
	"github.com/santahate/czesci/internal/event"
	"github.com/santahate/czesci/internal/otp"
	"github.com/santahate/czesci/internal/repository"
	"github.com/santahate/czesci/internal/session"
	"github.com/santahate/czesci/internal/sms"
	apperrors "github.com/santahate/czesci/pkg/errors"
)

// PhoneService is the authenticated settings-page phone registry: listing,
// adding, verifying, and deactivating numbers on an existing profile.
type PhoneService struct {
	phoneRepo   repository.PhoneRepository
	profileRepo repository.ProfileRepository
	sessions    SessionStore
	gateway     sms.Gateway
	producer    *event.Producer
	logger      *slog.Logger
	cfg         RegistrationConfig
}

// NewPhoneService creates a new phone service.
func NewPhoneService(
	phoneRepo repository.PhoneRepository,
	profileRepo repository.ProfileRepository,
	sessions SessionStore,
	gateway sms.Gateway,
	producer *event.Producer,
	logger *slog.Logger,
	cfg RegistrationConfig,
) *PhoneService {
	return &PhoneService{
		phoneRepo:   phoneRepo,
		profileRepo: profileRepo,
		sessions:    sessions,
		gateway:     gateway,
		producer:    producer,
		logger:      logger,
		cfg:         cfg,
	}
}

// AddPhoneInput holds the settings-flow phone-add submission.
type AddPhoneInput struct {
	Number string
	Kind   string
}

// List returns every phone number owned by any of the account's profiles.
func (s *PhoneService) List(ctx context.Context, accountID string) ([]domain.PhoneNumber, error) {
	refs, err := s.ownedProfiles(ctx, accountID)
	if err != nil {
		return nil, err
	}

	phones := []domain.PhoneNumber{}
	for _, ref := range refs {
		owned, err := s.phoneRepo.ListByOwner(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("list phones: %w", err)
		}
		phones = append(phones, owned...)
	}

	return phones, nil
}

// Add creates a new unverified number on the account's profile of the given
// kind and dispatches a verification code. The record is created and owned
// immediately; only verification is gated on the OTP.
func (s *PhoneService) Add(ctx context.Context, accountID string, input AddPhoneInput) (*domain.PhoneNumber, error) {
	if !phonePattern.MatchString(input.Number) {
		return nil, apperrors.InvalidInput("phone must be a valid E.164 number")
	}
	if !domain.IsValidProfileKind(input.Kind) {
		return nil, apperrors.InvalidInput("kind must be buyer or seller")
	}

	owner, err := s.profileRef(ctx, accountID, domain.ProfileKind(input.Kind))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	phone := &domain.PhoneNumber{
		ID:          uuid.New().String(),
		Number:      input.Number,
		ProfileType: owner.Kind,
		Owner:       owner,
		IsActive:    true,
		IsVerified:  false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.phoneRepo.Create(ctx, phone); err != nil {
		return nil, fmt.Errorf("create phone record: %w", err)
	}

	if err := s.issueChallenge(ctx, accountID, phone); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "phone added",
		slog.String("account_id", accountID),
		slog.String("phone_id", phone.ID),
	)

	return phone, nil
}

// ResendChallenge issues a fresh verification code for an owned, unverified
// number.
func (s *PhoneService) ResendChallenge(ctx context.Context, accountID, phoneID string) error {
	phone, err := s.ownedActivePhone(ctx, accountID, phoneID)
	if err != nil {
		return err
	}

	if phone.IsVerified {
		return apperrors.InvalidInput("phone already verified")
	}

	return s.issueChallenge(ctx, accountID, phone)
}

// Verify checks the submitted code for a settings-flow challenge and marks
// the phone verified on match. Verifying an already-verified number is a
// no-op.
func (s *PhoneService) Verify(ctx context.Context, accountID, phoneID, code string) error {
	phone, err := s.ownedActivePhone(ctx, accountID, phoneID)
	if err != nil {
		return err
	}

	if phone.IsVerified {
		return nil
	}

	challenge, err := s.sessions.GetPhoneChallenge(ctx, phoneID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("verification challenge", phoneID)
		}
		return fmt.Errorf("load phone challenge: %w", err)
	}

	now := time.Now().UTC()
	if challenge.Expired(now) {
		return apperrors.Unauthorized("verification code has expired, request a new one")
	}

	if !otp.VerifyCode(code, challenge.OTPSalt, challenge.OTPHash) {
		challenge.AttemptCount++
		if challenge.AttemptCount >= s.cfg.MaxOTPAttempts {
			if err := s.sessions.DeletePhoneChallenge(ctx, phoneID); err != nil {
				s.logger.ErrorContext(ctx, "failed to clear phone challenge",
					slog.String("phone_id", phoneID),
					slog.String("error", err.Error()),
				)
			}
			return apperrors.AttemptsExceeded()
		}

		if err := s.sessions.SavePhoneChallenge(ctx, challenge, time.Until(challenge.ExpiresAt)); err != nil {
			return fmt.Errorf("save phone challenge: %w", err)
		}
		return apperrors.InvalidOTP(s.cfg.MaxOTPAttempts - challenge.AttemptCount)
	}

	if err := s.phoneRepo.MarkVerified(ctx, phoneID); err != nil {
		return fmt.Errorf("mark phone verified: %w", err)
	}

	if err := s.sessions.DeletePhoneChallenge(ctx, phoneID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear phone challenge",
			slog.String("phone_id", phoneID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishPhoneVerified(ctx, accountID, phoneID, phone.Number); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish phone.verified event",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "phone verified",
		slog.String("account_id", accountID),
		slog.String("phone_id", phoneID),
	)

	return nil
}

// Deactivate soft-deletes an owned, active number after the ownership check.
func (s *PhoneService) Deactivate(ctx context.Context, accountID, phoneID string) error {
	if _, err := s.ownedActivePhone(ctx, accountID, phoneID); err != nil {
		return err
	}

	if err := s.phoneRepo.Deactivate(ctx, phoneID); err != nil {
		return fmt.Errorf("deactivate phone: %w", err)
	}

	if err := s.producer.PublishPhoneDeactivated(ctx, accountID, phoneID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish phone.deactivated event",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "phone deactivated",
		slog.String("account_id", accountID),
		slog.String("phone_id", phoneID),
	)

	return nil
}

// --- Helpers ---

// ownedActivePhone loads the phone and enforces that it is active and owned
// by one of the requesting account's profiles. Ownership failures are
// Forbidden, inactive or missing records are NotFound.
func (s *PhoneService) ownedActivePhone(ctx context.Context, accountID, phoneID string) (*domain.PhoneNumber, error) {
	phone, err := s.phoneRepo.GetByID(ctx, phoneID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("phone", phoneID)
		}
		return nil, fmt.Errorf("get phone: %w", err)
	}

	if !phone.IsActive {
		return nil, apperrors.NotFound("phone", phoneID)
	}

	if phone.Owner.IsZero() {
		return nil, apperrors.Forbidden("phone does not belong to this account")
	}

	owner, err := s.profileRef(ctx, accountID, phone.Owner.Kind)
	if err != nil {
		if errors.Is(err, apperrors.ErrForbidden) || errors.Is(err, apperrors.ErrInvalidInput) {
			return nil, apperrors.Forbidden("phone does not belong to this account")
		}
		return nil, err
	}
	if owner.ID != phone.Owner.ID {
		return nil, apperrors.Forbidden("phone does not belong to this account")
	}

	return phone, nil
}

// profileRef resolves the account's profile of the given kind to a tagged
// reference.
func (s *PhoneService) profileRef(ctx context.Context, accountID string, kind domain.ProfileKind) (domain.ProfileRef, error) {
	switch kind {
	case domain.ProfileKindBuyer:
		profile, err := s.profileRepo.GetBuyerByAccountID(ctx, accountID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return domain.ProfileRef{}, apperrors.InvalidInput("account has no buyer profile")
			}
			return domain.ProfileRef{}, fmt.Errorf("get buyer profile: %w", err)
		}
		return profile.Ref(), nil
	case domain.ProfileKindSeller:
		profile, err := s.profileRepo.GetSellerByAccountID(ctx, accountID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return domain.ProfileRef{}, apperrors.InvalidInput("account has no seller profile")
			}
			return domain.ProfileRef{}, fmt.Errorf("get seller profile: %w", err)
		}
		return profile.Ref(), nil
	default:
		return domain.ProfileRef{}, apperrors.InvalidInput("kind must be buyer or seller")
	}
}

// ownedProfiles returns references to every profile the account holds.
func (s *PhoneService) ownedProfiles(ctx context.Context, accountID string) ([]domain.ProfileRef, error) {
	var refs []domain.ProfileRef

	buyer, err := s.profileRepo.GetBuyerByAccountID(ctx, accountID)
	if err == nil {
		refs = append(refs, buyer.Ref())
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get buyer profile: %w", err)
	}

	seller, err := s.profileRepo.GetSellerByAccountID(ctx, accountID)
	if err == nil {
		refs = append(refs, seller.Ref())
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get seller profile: %w", err)
	}

	return refs, nil
}

// issueChallenge generates a settings-flow verification code, stores only
// its salted hash, and dispatches the plaintext over SMS. Dispatch failures
// are logged and swallowed.
func (s *PhoneService) issueChallenge(ctx context.Context, accountID string, phone *domain.PhoneNumber) error {
	code, err := otp.GenerateCode()
	if err != nil {
		return err
	}
	salt, err := otp.NewSalt()
	if err != nil {
		return err
	}

	challenge := &session.PhoneChallenge{
		PhoneID:   phone.ID,
		AccountID: accountID,
		OTPHash:   otp.HashCode(code, salt),
		OTPSalt:   salt,
		ExpiresAt: time.Now().UTC().Add(s.cfg.OTPTTL),
	}

	if err := s.sessions.SavePhoneChallenge(ctx, challenge, s.cfg.OTPTTL); err != nil {
		return fmt.Errorf("save phone challenge: %w", err)
	}

	text := fmt.Sprintf("Your verification code is %s", code)
	if err := s.gateway.Send(ctx, phone.Number, text); err != nil {
		s.logger.ErrorContext(ctx, "sms dispatch failed",
			slog.String("phone_id", phone.ID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}
