package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/santahate/czesci/internal/auth"
	"github.com/santahate/czesci/internal/domain"
	"github.com/santahate/czesci/internal/repository"
	apperrors "github.com/santahate/czesci/pkg/errors"
)

// invalidCredentialsMessage is uniform across all resolution stages so error
// text never reveals which stage failed.
const invalidCredentialsMessage = "invalid credentials"

// LoginService resolves a login identifier to an account and authenticates.
type LoginService struct {
	accountRepo      repository.AccountRepository
	phoneRepo        repository.PhoneRepository
	profileRepo      repository.ProfileRepository
	refreshTokenRepo repository.RefreshTokenRepository
	jwtManager       *auth.JWTManager
	logger           *slog.Logger
}

// NewLoginService creates a new login service.
func NewLoginService(
	accountRepo repository.AccountRepository,
	phoneRepo repository.PhoneRepository,
	profileRepo repository.ProfileRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	jwtManager *auth.JWTManager,
	logger *slog.Logger,
) *LoginService {
	return &LoginService{
		accountRepo:      accountRepo,
		phoneRepo:        phoneRepo,
		profileRepo:      profileRepo,
		refreshTokenRepo: refreshTokenRepo,
		jwtManager:       jwtManager,
		logger:           logger,
	}
}

// LoginInput holds the login submission.
type LoginInput struct {
	Identifier string
	Password   string
}

// AccountOverview is the authenticated account with its profile presence,
// used by clients to re-derive where they are in the onboarding flow.
type AccountOverview struct {
	Account       *domain.Account       `json:"account"`
	BuyerProfile  *domain.BuyerProfile  `json:"buyer_profile,omitempty"`
	SellerProfile *domain.SellerProfile `json:"seller_profile,omitempty"`
	Company       *domain.Company       `json:"company,omitempty"`
}

// Login resolves the identifier in order: case-insensitive email, active and
// verified phone number, raw username. The first strategy that yields an
// account with a matching password wins. Every failure mode returns the same
// uniform error.
func (s *LoginService) Login(ctx context.Context, input LoginInput) (*domain.Account, *domain.TokenPair, error) {
	if input.Identifier == "" || input.Password == "" {
		return nil, nil, apperrors.InvalidInput("identifier and password are required")
	}

	account := s.resolveAndAuthenticate(ctx, input.Identifier, input.Password)
	if account == nil {
		return nil, nil, apperrors.Unauthorized(invalidCredentialsMessage)
	}

	tokens, err := generateTokenPair(ctx, s.jwtManager, s.refreshTokenRepo, account)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "account logged in",
		slog.String("account_id", account.ID),
	)

	return account, tokens, nil
}

// resolveAndAuthenticate tries each resolution strategy in order and returns
// the first account whose password matches, or nil.
func (s *LoginService) resolveAndAuthenticate(ctx context.Context, identifier, password string) *domain.Account {
	if strings.Contains(identifier, "@") {
		if account, err := s.accountRepo.GetByEmail(ctx, identifier); err == nil {
			if s.authenticate(account, password) {
				return account
			}
		}
	}

	if account, err := s.phoneRepo.FindAccountByVerifiedNumber(ctx, identifier); err == nil {
		if s.authenticate(account, password) {
			return account
		}
	}

	if account, err := s.accountRepo.GetByUsername(ctx, identifier); err == nil {
		if s.authenticate(account, password) {
			return account
		}
	}

	return nil
}

func (s *LoginService) authenticate(account *domain.Account, password string) bool {
	if !account.IsActive {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) == nil
}

// Refresh validates a refresh token, revokes it, and issues a new pair.
func (s *LoginService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.InvalidInput("refresh token is required")
	}

	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	tokenHash := hashToken(refreshToken)
	storedToken, err := s.refreshTokenRepo.GetByHash(ctx, tokenHash)
	if err != nil {
		return nil, apperrors.Unauthorized("refresh token not found")
	}

	if storedToken.RevokedAt != nil {
		return nil, apperrors.Unauthorized("refresh token has been revoked")
	}

	if time.Now().UTC().After(storedToken.ExpiresAt) {
		return nil, apperrors.Unauthorized("refresh token has expired")
	}

	if err := s.refreshTokenRepo.Revoke(ctx, tokenHash); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke old refresh token",
			slog.String("account_id", claims.AccountID),
			slog.String("error", err.Error()),
		)
	}

	account, err := s.accountRepo.GetByID(ctx, claims.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get account for token refresh: %w", err)
	}

	tokens, err := generateTokenPair(ctx, s.jwtManager, s.refreshTokenRepo, account)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.String("account_id", account.ID),
	)

	return tokens, nil
}

// Me returns the account with whichever profiles exist for it.
func (s *LoginService) Me(ctx context.Context, accountID string) (*AccountOverview, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	overview := &AccountOverview{Account: account}

	buyer, err := s.profileRepo.GetBuyerByAccountID(ctx, accountID)
	if err == nil {
		overview.BuyerProfile = buyer
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get buyer profile: %w", err)
	}

	seller, err := s.profileRepo.GetSellerByAccountID(ctx, accountID)
	if err == nil {
		overview.SellerProfile = seller

		company, err := s.profileRepo.GetCompanyBySellerProfileID(ctx, seller.ID)
		if err == nil {
			overview.Company = company
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("get company: %w", err)
		}
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get seller profile: %w", err)
	}

	return overview, nil
}
