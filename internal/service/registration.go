package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/santahate/czesci/internal/auth"
	"github.com/santahate/czesci/internal/domain"
	"github.com/santahate/czesci/internal/event"
	"github.com/santahate/czesci/internal/otp"
	"github.com/santahate/czesci/internal/repository"
	"github.com/santahate/czesci/internal/session"
	"github.com/santahate/czesci/internal/sms"
	apperrors "github.com/santahate/czesci/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// maxUsernameProbes bounds the suffix probing loop. The unique constraint on
// accounts.username is the real guard; the loop is a best-effort pre-check.
const maxUsernameProbes = 100

// createRetries is how many times account creation retries after losing a
// username race to a concurrent registration.
const createRetries = 3

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)

// SessionStore is the transient per-flow state store the services depend on.
// Implemented by session.Store over Redis.
type SessionStore interface {
	SavePending(ctx context.Context, pending *domain.PendingRegistration, ttl time.Duration) error
	GetPending(ctx context.Context, registrationID string) (*domain.PendingRegistration, error)
	DeletePending(ctx context.Context, registrationID string) error
	SavePhoneChallenge(ctx context.Context, challenge *session.PhoneChallenge, ttl time.Duration) error
	GetPhoneChallenge(ctx context.Context, phoneID string) (*session.PhoneChallenge, error)
	DeletePhoneChallenge(ctx context.Context, phoneID string) error
}

// RegistrationConfig holds the tunables of the registration flow.
type RegistrationConfig struct {
	MaxOTPAttempts int
	OTPTTL         time.Duration
	PendingTTL     time.Duration
}

// RegistrationService drives the three-step onboarding pipeline: account
// creation, OTP issuance and validation, profile materialization.
type RegistrationService struct {
	accountRepo      repository.AccountRepository
	phoneRepo        repository.PhoneRepository
	profileRepo      repository.ProfileRepository
	refreshTokenRepo repository.RefreshTokenRepository
	sessions         SessionStore
	gateway          sms.Gateway
	jwtManager       *auth.JWTManager
	producer         *event.Producer
	logger           *slog.Logger
	cfg              RegistrationConfig
}

// NewRegistrationService creates a new registration service.
func NewRegistrationService(
	accountRepo repository.AccountRepository,
	phoneRepo repository.PhoneRepository,
	profileRepo repository.ProfileRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	sessions SessionStore,
	gateway sms.Gateway,
	jwtManager *auth.JWTManager,
	producer *event.Producer,
	logger *slog.Logger,
	cfg RegistrationConfig,
) *RegistrationService {
	return &RegistrationService{
		accountRepo:      accountRepo,
		phoneRepo:        phoneRepo,
		profileRepo:      profileRepo,
		refreshTokenRepo: refreshTokenRepo,
		sessions:         sessions,
		gateway:          gateway,
		jwtManager:       jwtManager,
		producer:         producer,
		logger:           logger,
		cfg:              cfg,
	}
}

// --- Input/Output types ---

// BeginInput holds the step-1 basic info submission.
type BeginInput struct {
	FirstName       string
	LastName        string
	Phone           string
	Email           string
	Password        string
	PasswordConfirm string
	Role            string
	AcceptTerms     bool
	AcceptPrivacy   bool
	ConfirmAge      bool
	AcceptMarketing bool
	SourceIP        string
}

// BeginResult is returned after a successful step-1 submission.
type BeginResult struct {
	RegistrationID string `json:"registration_id"`
	Username       string `json:"username"`
	NextStep       string `json:"next_step"`
}

// VerifyResult is returned after a successful OTP verification.
type VerifyResult struct {
	Tokens   *domain.TokenPair `json:"tokens"`
	NextStep string            `json:"next_step"`
}

// CompleteProfileInput holds the step-3 role-specific submission. Buyer
// fields and seller fields are mutually exclusive; the pending role decides
// which set is read.
type CompleteProfileInput struct {
	RegistrationID string

	// Buyer fields.
	DeliveryAddress string

	// Seller fields.
	BusinessName    string
	BusinessAddress string
	Company         *CompanyInput
}

// CompanyInput holds the normalized legal data for a seller registration.
type CompanyInput struct {
	LegalName          string
	LegalForm          string
	AddressLine1       string
	AddressLine2       string
	City               string
	PostalCode         string
	CountryCode        string
	NIP                string
	REGON              string
	KRS                string
	VATPayer           bool
	IBAN               string
	SWIFT              string
	InvoiceDisplayName string
}

// ProfileResult is returned after step 3 completes or is found already done.
type ProfileResult struct {
	ProfileID string `json:"profile_id"`
	Role      string `json:"role"`
	NextStep  string `json:"next_step"`
}

// --- Step 1: basic info ---

// Begin validates the basic-info submission, creates the account with its
// consents, records the phone, dispatches an OTP, and opens a pending
// registration. The OTP itself never appears in the result.
func (s *RegistrationService) Begin(ctx context.Context, input BeginInput) (*BeginResult, error) {
	if err := s.validateBegin(input); err != nil {
		return nil, err
	}

	// A verified number owned by an existing profile blocks re-registration.
	taken, err := s.phoneRepo.ExistsVerifiedOwned(ctx, input.Phone)
	if err != nil {
		return nil, fmt.Errorf("check phone availability: %w", err)
	}
	if taken {
		return nil, apperrors.AlreadyExists("phone", "number", input.Phone)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.createAccount(ctx, input, string(hashedPassword))
	if err != nil {
		return nil, err
	}

	role := domain.ProfileKind(input.Role)
	phone, err := s.ensurePhoneRecord(ctx, input.Phone, role)
	if err != nil {
		return nil, err
	}

	pending := &domain.PendingRegistration{
		RegistrationID: uuid.New().String(),
		AccountID:      account.ID,
		Phone:          input.Phone,
		PhoneID:        phone.ID,
		Role:           role,
		CreatedAt:      time.Now().UTC(),
		ExpiresAt:      time.Now().UTC().Add(s.cfg.PendingTTL),
	}

	if err := s.issueOTP(ctx, pending); err != nil {
		return nil, err
	}

	if err := s.sessions.SavePending(ctx, pending, s.cfg.PendingTTL); err != nil {
		return nil, fmt.Errorf("save pending registration: %w", err)
	}

	if err := s.producer.PublishRegistrationStarted(ctx, account.ID, account.Username, input.Role); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish registration.started event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "registration started",
		slog.String("account_id", account.ID),
		slog.String("registration_id", pending.RegistrationID),
		slog.String("role", input.Role),
	)

	return &BeginResult{
		RegistrationID: pending.RegistrationID,
		Username:       account.Username,
		NextStep:       domain.StepVerifyOTP,
	}, nil
}

func (s *RegistrationService) validateBegin(input BeginInput) error {
	if input.FirstName == "" {
		return apperrors.InvalidInput("first name is required")
	}
	if input.LastName == "" {
		return apperrors.InvalidInput("last name is required")
	}
	if !phonePattern.MatchString(input.Phone) {
		return apperrors.InvalidInput("phone must be a valid E.164 number")
	}
	if !domain.IsValidProfileKind(input.Role) {
		return apperrors.InvalidInput("role must be buyer or seller")
	}
	if input.Password != input.PasswordConfirm {
		return apperrors.InvalidInput("passwords do not match")
	}
	if err := validatePassword(input.Password); err != nil {
		return err
	}
	if !input.AcceptTerms || !input.AcceptPrivacy || !input.ConfirmAge {
		return apperrors.InvalidInput("terms, privacy, and age consents are required")
	}
	return nil
}

// createAccount derives a unique username from the phone number and inserts
// the account with its consent rows, retrying on a lost username race.
func (s *RegistrationService) createAccount(ctx context.Context, input BeginInput, passwordHash string) (*domain.Account, error) {
	base := usernameBase(input.Phone)

	for attempt := 0; attempt < createRetries; attempt++ {
		username, err := s.probeUsername(ctx, base)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		account := &domain.Account{
			ID:           uuid.New().String(),
			Username:     username,
			Email:        input.Email,
			PasswordHash: passwordHash,
			FirstName:    input.FirstName,
			LastName:     input.LastName,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		err = s.accountRepo.Create(ctx, account, buildConsents(account.ID, input, now))
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, fmt.Errorf("create account: %w", err)
		}

		// A concurrent registration took the probed username; probe again.
		s.logger.WarnContext(ctx, "username race lost, retrying",
			slog.String("username", username),
		)
	}

	return nil, apperrors.Internal(fmt.Errorf("could not allocate a unique username for %q", base))
}

// probeUsername walks base, base_1, base_2, ... until a free name is found.
func (s *RegistrationService) probeUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 1; i <= maxUsernameProbes; i++ {
		exists, err := s.accountRepo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("probe username: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
	return "", apperrors.Internal(fmt.Errorf("username space exhausted for %q", base))
}

// ensurePhoneRecord reuses a stale unowned unverified row for the number if
// one exists, otherwise creates a fresh one.
func (s *RegistrationService) ensurePhoneRecord(ctx context.Context, number string, role domain.ProfileKind) (*domain.PhoneNumber, error) {
	existing, err := s.phoneRepo.FindUnowned(ctx, number, role)
	if err == nil {
		if touchErr := s.phoneRepo.UpdateOTPIssued(ctx, existing.ID); touchErr != nil {
			return nil, fmt.Errorf("reuse phone record: %w", touchErr)
		}
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("find phone record: %w", err)
	}

	now := time.Now().UTC()
	phone := &domain.PhoneNumber{
		ID:          uuid.New().String(),
		Number:      number,
		ProfileType: role,
		IsActive:    true,
		IsVerified:  false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.phoneRepo.Create(ctx, phone); err != nil {
		return nil, fmt.Errorf("create phone record: %w", err)
	}

	return phone, nil
}

// issueOTP generates a fresh code, stores only its salted hash on the
// pending blob, and dispatches the plaintext over SMS. Dispatch failures are
// logged and swallowed.
func (s *RegistrationService) issueOTP(ctx context.Context, pending *domain.PendingRegistration) error {
	code, err := otp.GenerateCode()
	if err != nil {
		return err
	}
	salt, err := otp.NewSalt()
	if err != nil {
		return err
	}

	pending.OTPHash = otp.HashCode(code, salt)
	pending.OTPSalt = salt
	pending.OTPExpiresAt = time.Now().UTC().Add(s.cfg.OTPTTL)

	text := fmt.Sprintf("Your verification code is %s", code)
	if err := s.gateway.Send(ctx, pending.Phone, text); err != nil {
		s.logger.ErrorContext(ctx, "sms dispatch failed",
			slog.String("phone_id", pending.PhoneID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// --- Step 2: OTP verification ---

// VerifyOTP checks the submitted code against the pending registration. On
// match it marks the phone verified and logs the account in by issuing a
// token pair. Crossing the attempt ceiling clears the pending state and
// forces a restart of the whole flow.
func (s *RegistrationService) VerifyOTP(ctx context.Context, registrationID, code string) (*VerifyResult, error) {
	pending, err := s.loadPending(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	if pending.PhoneVerified {
		return nil, apperrors.InvalidInput("phone already verified")
	}

	now := time.Now().UTC()
	if pending.OTPExpired(now) {
		return nil, apperrors.Unauthorized("verification code has expired, request a new one")
	}

	if !otp.VerifyCode(code, pending.OTPSalt, pending.OTPHash) {
		pending.AttemptCount++
		if pending.AttemptCount >= s.cfg.MaxOTPAttempts {
			if err := s.sessions.DeletePending(ctx, registrationID); err != nil {
				s.logger.ErrorContext(ctx, "failed to clear pending registration",
					slog.String("registration_id", registrationID),
					slog.String("error", err.Error()),
				)
			}
			s.logger.WarnContext(ctx, "otp attempt ceiling crossed",
				slog.String("registration_id", registrationID),
				slog.String("account_id", pending.AccountID),
			)
			return nil, apperrors.AttemptsExceeded()
		}

		if err := s.sessions.SavePending(ctx, pending, time.Until(pending.ExpiresAt)); err != nil {
			return nil, fmt.Errorf("save pending registration: %w", err)
		}
		return nil, apperrors.InvalidOTP(s.cfg.MaxOTPAttempts - pending.AttemptCount)
	}

	if err := s.phoneRepo.MarkVerified(ctx, pending.PhoneID); err != nil {
		return nil, fmt.Errorf("mark phone verified: %w", err)
	}

	account, err := s.accountRepo.GetByID(ctx, pending.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account after verification: %w", err)
	}

	tokens, err := s.generateTokenPair(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	// Clear transient OTP state, keep phone and role for step 3.
	pending.PhoneVerified = true
	pending.OTPHash = ""
	pending.OTPSalt = ""
	pending.AttemptCount = 0

	if err := s.sessions.SavePending(ctx, pending, time.Until(pending.ExpiresAt)); err != nil {
		return nil, fmt.Errorf("save pending registration: %w", err)
	}

	if err := s.producer.PublishPhoneVerified(ctx, account.ID, pending.PhoneID, pending.Phone); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish phone.verified event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "phone verified",
		slog.String("account_id", account.ID),
		slog.String("phone_id", pending.PhoneID),
	)

	return &VerifyResult{
		Tokens:   tokens,
		NextStep: domain.StepCompleteProfile,
	}, nil
}

// ResendOTP generates and dispatches a fresh code for a pending
// registration, replacing the previous one.
func (s *RegistrationService) ResendOTP(ctx context.Context, registrationID string) error {
	pending, err := s.loadPending(ctx, registrationID)
	if err != nil {
		return err
	}

	if pending.PhoneVerified {
		return apperrors.InvalidInput("phone already verified")
	}

	if err := s.issueOTP(ctx, pending); err != nil {
		return err
	}

	if err := s.phoneRepo.UpdateOTPIssued(ctx, pending.PhoneID); err != nil {
		return fmt.Errorf("touch phone record: %w", err)
	}

	if err := s.sessions.SavePending(ctx, pending, time.Until(pending.ExpiresAt)); err != nil {
		return fmt.Errorf("save pending registration: %w", err)
	}

	s.logger.InfoContext(ctx, "otp redispatched",
		slog.String("registration_id", registrationID),
	)

	return nil
}

// --- Step 3: profile materialization ---

// CompleteProfile creates the role-specific profile and claims the phone row
// recorded at step 1. Invoking it twice for the same account returns the
// existing profile unchanged.
func (s *RegistrationService) CompleteProfile(ctx context.Context, accountID string, input CompleteProfileInput) (*ProfileResult, error) {
	pending, err := s.loadPending(ctx, input.RegistrationID)
	if err != nil {
		// The blob is cleared on first success and lapses with its TTL. A
		// replay or late completion must still resolve to the materialized
		// profile instead of failing the flow.
		if errors.Is(err, apperrors.ErrNotFound) {
			if result := s.materializedProfile(ctx, accountID); result != nil {
				return result, nil
			}
		}
		return nil, err
	}

	if pending.AccountID != accountID {
		return nil, apperrors.Forbidden("registration belongs to a different account")
	}
	if !pending.PhoneVerified {
		return nil, apperrors.InvalidInput("phone must be verified before completing the profile")
	}

	var result *ProfileResult
	switch pending.Role {
	case domain.ProfileKindBuyer:
		result, err = s.completeBuyer(ctx, accountID, pending.PhoneID, input)
	case domain.ProfileKindSeller:
		result, err = s.completeSeller(ctx, accountID, pending.PhoneID, input)
	default:
		return nil, apperrors.Internal(fmt.Errorf("pending registration has unknown role %q", pending.Role))
	}
	if err != nil {
		return nil, err
	}

	if err := s.sessions.DeletePending(ctx, input.RegistrationID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear pending registration",
			slog.String("registration_id", input.RegistrationID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishProfileCompleted(ctx, accountID, result.ProfileID, result.Role); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish profile.completed event",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "registration completed",
		slog.String("account_id", accountID),
		slog.String("profile_id", result.ProfileID),
		slog.String("role", result.Role),
	)

	return result, nil
}

// materializedProfile returns the account's already-created profile, if any.
func (s *RegistrationService) materializedProfile(ctx context.Context, accountID string) *ProfileResult {
	if buyer, err := s.profileRepo.GetBuyerByAccountID(ctx, accountID); err == nil {
		return &ProfileResult{ProfileID: buyer.ID, Role: string(domain.ProfileKindBuyer), NextStep: domain.StepDone}
	}
	if seller, err := s.profileRepo.GetSellerByAccountID(ctx, accountID); err == nil {
		return &ProfileResult{ProfileID: seller.ID, Role: string(domain.ProfileKindSeller), NextStep: domain.StepDone}
	}
	return nil
}

func (s *RegistrationService) completeBuyer(ctx context.Context, accountID, phoneID string, input CompleteProfileInput) (*ProfileResult, error) {
	existing, err := s.profileRepo.GetBuyerByAccountID(ctx, accountID)
	if err == nil {
		return &ProfileResult{ProfileID: existing.ID, Role: string(domain.ProfileKindBuyer), NextStep: domain.StepDone}, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check buyer profile: %w", err)
	}

	if input.DeliveryAddress == "" {
		return nil, apperrors.InvalidInput("delivery address is required")
	}

	now := time.Now().UTC()
	profile := &domain.BuyerProfile{
		ID:              uuid.New().String(),
		AccountID:       accountID,
		DeliveryAddress: input.DeliveryAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.profileRepo.CreateBuyer(ctx, profile, phoneID); err != nil {
		return nil, fmt.Errorf("create buyer profile: %w", err)
	}

	return &ProfileResult{ProfileID: profile.ID, Role: string(domain.ProfileKindBuyer), NextStep: domain.StepDone}, nil
}

func (s *RegistrationService) completeSeller(ctx context.Context, accountID, phoneID string, input CompleteProfileInput) (*ProfileResult, error) {
	existing, err := s.profileRepo.GetSellerByAccountID(ctx, accountID)
	if err == nil {
		return &ProfileResult{ProfileID: existing.ID, Role: string(domain.ProfileKindSeller), NextStep: domain.StepDone}, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check seller profile: %w", err)
	}

	if input.BusinessName == "" {
		return nil, apperrors.InvalidInput("business name is required")
	}
	if input.BusinessAddress == "" {
		return nil, apperrors.InvalidInput("business address is required")
	}
	if input.Company == nil {
		return nil, apperrors.InvalidInput("company data is required")
	}
	if !domain.IsValidLegalForm(input.Company.LegalForm) {
		return nil, apperrors.InvalidInput("legal form must be sole_trader, private_limited, or joint_stock")
	}
	if input.Company.LegalName == "" {
		return nil, apperrors.InvalidInput("legal name is required")
	}

	now := time.Now().UTC()
	profile := &domain.SellerProfile{
		ID:              uuid.New().String(),
		AccountID:       accountID,
		BusinessName:    input.BusinessName,
		BusinessAddress: input.BusinessAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	company := &domain.Company{
		ID:                 uuid.New().String(),
		SellerProfileID:    profile.ID,
		LegalName:          input.Company.LegalName,
		LegalForm:          input.Company.LegalForm,
		AddressLine1:       input.Company.AddressLine1,
		AddressLine2:       input.Company.AddressLine2,
		City:               input.Company.City,
		PostalCode:         input.Company.PostalCode,
		CountryCode:        input.Company.CountryCode,
		NIP:                input.Company.NIP,
		REGON:              input.Company.REGON,
		KRS:                input.Company.KRS,
		VATPayer:           input.Company.VATPayer,
		IBAN:               input.Company.IBAN,
		SWIFT:              input.Company.SWIFT,
		InvoiceDisplayName: input.Company.InvoiceDisplayName,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := company.ValidateFiscalIDs(); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	if err := s.profileRepo.CreateSeller(ctx, profile, company, phoneID); err != nil {
		return nil, fmt.Errorf("create seller profile: %w", err)
	}

	return &ProfileResult{ProfileID: profile.ID, Role: string(domain.ProfileKindSeller), NextStep: domain.StepDone}, nil
}

// --- Shared helpers ---

// loadPending fetches the pending blob and enforces the explicit TTL check.
func (s *RegistrationService) loadPending(ctx context.Context, registrationID string) (*domain.PendingRegistration, error) {
	if registrationID == "" {
		return nil, apperrors.InvalidInput("registration id is required")
	}

	pending, err := s.sessions.GetPending(ctx, registrationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("registration", registrationID)
		}
		return nil, fmt.Errorf("load pending registration: %w", err)
	}

	if pending.Expired(time.Now().UTC()) {
		if err := s.sessions.DeletePending(ctx, registrationID); err != nil {
			s.logger.ErrorContext(ctx, "failed to clear expired registration",
				slog.String("registration_id", registrationID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperrors.NotFound("registration", registrationID)
	}

	return pending, nil
}

// generateTokenPair creates an access/refresh token pair and stores the refresh token hash.
func (s *RegistrationService) generateTokenPair(ctx context.Context, account *domain.Account) (*domain.TokenPair, error) {
	return generateTokenPair(ctx, s.jwtManager, s.refreshTokenRepo, account)
}

func generateTokenPair(
	ctx context.Context,
	jwtManager *auth.JWTManager,
	refreshTokenRepo repository.RefreshTokenRepository,
	account *domain.Account,
) (*domain.TokenPair, error) {
	accessToken, err := jwtManager.GenerateAccessToken(account.ID, account.Username, account.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := jwtManager.GenerateRefreshToken(account.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	tokenHash := hashToken(refreshToken)
	refreshClaims, err := jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("validate refresh token for expiry: %w", err)
	}

	if err := refreshTokenRepo.Create(ctx, account.ID, tokenHash, refreshClaims.ExpiresAt.Time); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// hashToken returns the SHA256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// usernameBase derives the username seed from the phone number, digits only.
func usernameBase(phone string) string {
	var b strings.Builder
	for _, ch := range phone {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// buildConsents assembles the consent rows for a step-1 submission.
func buildConsents(accountID string, input BeginInput, now time.Time) []domain.Consent {
	types := domain.RequiredConsents()
	if input.AcceptMarketing {
		types = append(types, domain.ConsentMarketing)
	}

	consents := make([]domain.Consent, 0, len(types))
	for _, typ := range types {
		consents = append(consents, domain.Consent{
			ID:        uuid.New().String(),
			AccountID: accountID,
			Type:      typ,
			SourceIP:  input.SourceIP,
			CreatedAt: now,
		})
	}
	return consents
}

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
