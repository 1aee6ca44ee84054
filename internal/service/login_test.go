package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/santahate/czesci/internal/domain"
	apperrors "github.com/santahate/czesci/pkg/errors"
)

type loginMocks struct {
	accountRepo *mockAccountRepository
	phoneRepo   *mockPhoneRepository
	profileRepo *mockProfileRepository
	refreshRepo *mockRefreshTokenRepository
}

func newLoginFixture() (*LoginService, *loginMocks) {
	m := &loginMocks{
		accountRepo: new(mockAccountRepository),
		phoneRepo:   new(mockPhoneRepository),
		profileRepo: new(mockProfileRepository),
		refreshRepo: new(mockRefreshTokenRepository),
	}
	svc := NewLoginService(
		m.accountRepo, m.phoneRepo, m.profileRepo, m.refreshRepo,
		newTestJWTManager(), newTestLogger(),
	)
	return svc, m
}

func activeAccount() *domain.Account {
	return &domain.Account{
		ID:           "acc-1",
		Username:     "48123123123",
		Email:        "ann@example.com",
		PasswordHash: hashForTest("Secret123"),
		IsActive:     true,
	}
}

// --- Login ---

func TestLogin_ByEmail(t *testing.T) {
	svc, m := newLoginFixture()
	ctx := context.Background()
	account := activeAccount()

	m.accountRepo.On("GetByEmail", ctx, "ann@example.com").Return(account, nil)
	m.refreshRepo.On("Create", ctx, "acc-1", mock.Anything, mock.Anything).Return(nil)

	got, tokens, err := svc.Login(ctx, LoginInput{Identifier: "ann@example.com", Password: "Secret123"})

	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	m.phoneRepo.AssertNotCalled(t, "FindAccountByVerifiedNumber", mock.Anything, mock.Anything)
}

func TestLogin_ByVerifiedPhone(t *testing.T) {
	svc, m := newLoginFixture()
	ctx := context.Background()
	account := activeAccount()

	m.phoneRepo.On("FindAccountByVerifiedNumber", ctx, "+48123123123").Return(account, nil)
	m.refreshRepo.On("Create", ctx, "acc-1", mock.Anything, mock.Anything).Return(nil)

	got, _, err := svc.Login(ctx, LoginInput{Identifier: "+48123123123", Password: "Secret123"})

	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
	m.accountRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestLogin_EmailAndPhoneResolveSameAccount(t *testing.T) {
	svc, m := newLoginFixture()
	ctx := context.Background()
	account := activeAccount()

	m.accountRepo.On("GetByEmail", ctx, "ann@example.com").Return(account, nil)
	m.phoneRepo.On("FindAccountByVerifiedNumber", ctx, "+48123123123").Return(account, nil)
	m.refreshRepo.On("Create", ctx, "acc-1", mock.Anything, mock.Anything).Return(nil)

	byEmail, _, err := svc.Login(ctx, LoginInput{Identifier: "ann@example.com", Password: "Secret123"})
	require.NoError(t, err)

	byPhone, _, err := svc.Login(ctx, LoginInput{Identifier: "+48123123123", Password: "Secret123"})
	require.NoError(t, err)

	assert.Equal(t, byEmail.ID, byPhone.ID)
}

func TestLogin_ByUsername(t *testing.T) {
	svc, m := newLoginFixture()
	ctx := context.Background()
	account := activeAccount()

	m.phoneRepo.On("FindAccountByVerifiedNumber", ctx, "48123123123").Return(nil, apperrors.ErrNotFound)
	m.accountRepo.On("GetByUsername", ctx, "48123123123").Return(account, nil)
	m.refreshRepo.On("Create", ctx, "acc-1", mock.Anything, mock.Anything).Return(nil)

	got, _, err := svc.Login(ctx, LoginInput{Identifier: "48123123123", Password: "Secret123"})

	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
}

func TestLogin_UnverifiedPhoneDoesNotResolve(t *testing.T) {
	svc, m := newLoginFixture()
	ctx := context.Background()

	// The number exists but is unverified, so phone resolution misses and
	// the raw identifier is not anyone's username either.
	m.phoneRepo.On("FindAccountByVerifiedNumber", ctx, "+48123123123").Return(nil, apperrors.ErrNotFound)
	m.accountRepo.On("GetByUsername", ctx, "+48123123123").Return(nil, apperrors.ErrNotFound)

	_, _, err := svc.Login(ctx, LoginInput{Identifier: "+48123123123", Password: "Secret123"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	assert.Contains(t, err.Error(), invalidCredentialsMessage)
}

func TestLogin_FallsThroughOnWrongPasswordStage(t *testing.T) {
	svc, m := newLoginFixture()
	ctx := context.Background()

	// Email resolves to one account whose password does not match; the same
	// identifier is another account's username with the matching password.
	emailAccount := activeAccount()
	usernameAccount := &domain.Account{
		ID:           "acc-2",
		Username:     "other@example.com",
		PasswordHash: hashForTest("Secret123"),
		IsActive:     true,
	}

	m.accountRepo.On("GetByEmail", ctx, "other@example.com").Return(emailAccount, nil)
	m.phoneRepo.On("FindAccountByVerifiedNumber", ctx, "other@example.com").Return(nil, apperrors.ErrNotFound)
	m.accountRepo.On("GetByUsername", ctx, "other@example.com").Return(usernameAccount, nil)
	m.refreshRepo.On("Create", ctx, "acc-2", mock.Anything, mock.Anything).Return(nil)

	got, _, err := svc.Login(ctx, LoginInput{Identifier: "other@example.com", Password: "Secret123"})

	require.NoError(t, err)
	assert.Equal(t, "acc-2", got.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, m := newLoginFixture()
	ctx := context.Background()

	m.accountRepo.On("GetByEmail", ctx, "ann@example.com").Return(activeAccount(), nil)
	m.phoneRepo.On("FindAccountByVerifiedNumber", ctx, "ann@example.com").Return(nil, apperrors.ErrNotFound)
	m.accountRepo.On("GetByUsername", ctx, "ann@example.com").Return(nil, apperrors.ErrNotFound)

	_, _, err := svc.Login(ctx, LoginInput{Identifier: "ann@example.com", Password: "WrongPass1"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	assert.Contains(t, err.Error(), invalidCredentialsMessage)
}

func TestLogin_InactiveAccount(t *testing.T) {
	svc, m := newLoginFixture()
	ctx := context.Background()

	account := activeAccount()
	account.IsActive = false

	m.accountRepo.On("GetByEmail", ctx, "ann@example.com").Return(account, nil)
	m.phoneRepo.On("FindAccountByVerifiedNumber", ctx, "ann@example.com").Return(nil, apperrors.ErrNotFound)
	m.accountRepo.On("GetByUsername", ctx, "ann@example.com").Return(nil, apperrors.ErrNotFound)

	_, _, err := svc.Login(ctx, LoginInput{Identifier: "ann@example.com", Password: "Secret123"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestLogin_MissingFields(t *testing.T) {
	svc, _ := newLoginFixture()

	_, _, err := svc.Login(context.Background(), LoginInput{Identifier: "", Password: "Secret123"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, _, err = svc.Login(context.Background(), LoginInput{Identifier: "ann@example.com", Password: ""})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

// --- Refresh ---

func TestRefresh_RotatesToken(t *testing.T) {
	svc, m := newLoginFixture()
	ctx := context.Background()
	account := activeAccount()

	jwtManager := newTestJWTManager()
	refreshToken, err := jwtManager.GenerateRefreshToken(account.ID)
	require.NoError(t, err)

	stored := &domain.RefreshToken{
		ID:        "rt-1",
		AccountID: account.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}

	m.refreshRepo.On("GetByHash", ctx, hashToken(refreshToken)).Return(stored, nil)
	m.refreshRepo.On("Revoke", ctx, hashToken(refreshToken)).Return(nil)
	m.accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)
	m.refreshRepo.On("Create", ctx, account.ID, mock.Anything, mock.Anything).Return(nil)

	tokens, err := svc.Refresh(ctx, refreshToken)

	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEqual(t, refreshToken, tokens.RefreshToken)
	m.refreshRepo.AssertCalled(t, "Revoke", ctx, hashToken(refreshToken))
}

func TestRefresh_RevokedToken(t *testing.T) {
	svc, m := newLoginFixture()
	ctx := context.Background()

	jwtManager := newTestJWTManager()
	refreshToken, err := jwtManager.GenerateRefreshToken("acc-1")
	require.NoError(t, err)

	revokedAt := time.Now().UTC().Add(-time.Hour)
	stored := &domain.RefreshToken{
		ID:        "rt-1",
		AccountID: "acc-1",
		TokenHash: hashToken(refreshToken),
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
		RevokedAt: &revokedAt,
	}

	m.refreshRepo.On("GetByHash", ctx, hashToken(refreshToken)).Return(stored, nil)

	_, err = svc.Refresh(ctx, refreshToken)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestRefresh_UnknownToken(t *testing.T) {
	svc, m := newLoginFixture()
	ctx := context.Background()

	jwtManager := newTestJWTManager()
	refreshToken, err := jwtManager.GenerateRefreshToken("acc-1")
	require.NoError(t, err)

	m.refreshRepo.On("GetByHash", ctx, hashToken(refreshToken)).Return(nil, apperrors.ErrNotFound)

	_, err = svc.Refresh(ctx, refreshToken)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestRefresh_GarbageToken(t *testing.T) {
	svc, _ := newLoginFixture()

	_, err := svc.Refresh(context.Background(), "not-a-jwt")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

// --- Me ---

func TestMe_BuyerOnly(t *testing.T) {
	svc, m := newLoginFixture()
	ctx := context.Background()
	account := activeAccount()
	buyer := &domain.BuyerProfile{ID: "bp-1", AccountID: account.ID}

	m.accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)
	m.profileRepo.On("GetBuyerByAccountID", ctx, account.ID).Return(buyer, nil)
	m.profileRepo.On("GetSellerByAccountID", ctx, account.ID).Return(nil, apperrors.ErrNotFound)

	overview, err := svc.Me(ctx, account.ID)

	require.NoError(t, err)
	assert.Equal(t, "bp-1", overview.BuyerProfile.ID)
	assert.Nil(t, overview.SellerProfile)
	assert.Nil(t, overview.Company)
}

func TestMe_SellerWithCompany(t *testing.T) {
	svc, m := newLoginFixture()
	ctx := context.Background()
	account := activeAccount()
	seller := &domain.SellerProfile{ID: "sp-1", AccountID: account.ID}
	company := &domain.Company{ID: "com-1", SellerProfileID: "sp-1", NIP: "1234567890"}

	m.accountRepo.On("GetByID", ctx, account.ID).Return(account, nil)
	m.profileRepo.On("GetBuyerByAccountID", ctx, account.ID).Return(nil, apperrors.ErrNotFound)
	m.profileRepo.On("GetSellerByAccountID", ctx, account.ID).Return(seller, nil)
	m.profileRepo.On("GetCompanyBySellerProfileID", ctx, "sp-1").Return(company, nil)

	overview, err := svc.Me(ctx, account.ID)

	require.NoError(t, err)
	assert.Nil(t, overview.BuyerProfile)
	assert.Equal(t, "sp-1", overview.SellerProfile.ID)
	assert.Equal(t, "1234567890", overview.Company.NIP)
}
