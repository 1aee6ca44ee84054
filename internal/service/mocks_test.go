package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/santahate/czesci/internal/auth"
	"github.com/santahate/czesci/internal/domain"
	"github.com/santahate/czesci/internal/event"
	"github.com/santahate/czesci/internal/session"
	pkgkafka "github.com/santahate/czesci/pkg/kafka"
)

// --- Mock Account Repository ---

type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) Create(ctx context.Context, account *domain.Account, consents []domain.Consent) error {
	args := m.Called(ctx, account, consents)
	return args.Error(0)
}

func (m *mockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// --- Mock Phone Repository ---

type mockPhoneRepository struct {
	mock.Mock
}

func (m *mockPhoneRepository) Create(ctx context.Context, phone *domain.PhoneNumber) error {
	args := m.Called(ctx, phone)
	return args.Error(0)
}

func (m *mockPhoneRepository) GetByID(ctx context.Context, id string) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *mockPhoneRepository) FindUnowned(ctx context.Context, number string, kind domain.ProfileKind) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, number, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *mockPhoneRepository) ExistsVerifiedOwned(ctx context.Context, number string) (bool, error) {
	args := m.Called(ctx, number)
	return args.Bool(0), args.Error(1)
}

func (m *mockPhoneRepository) ListByOwner(ctx context.Context, owner domain.ProfileRef) ([]domain.PhoneNumber, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PhoneNumber), args.Error(1)
}

func (m *mockPhoneRepository) MarkVerified(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPhoneRepository) UpdateOTPIssued(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPhoneRepository) Deactivate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPhoneRepository) FindAccountByVerifiedNumber(ctx context.Context, number string) (*domain.Account, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

// --- Mock Profile Repository ---

type mockProfileRepository struct {
	mock.Mock
}

func (m *mockProfileRepository) CreateBuyer(ctx context.Context, profile *domain.BuyerProfile, phoneID string) error {
	args := m.Called(ctx, profile, phoneID)
	return args.Error(0)
}

func (m *mockProfileRepository) GetBuyerByAccountID(ctx context.Context, accountID string) (*domain.BuyerProfile, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BuyerProfile), args.Error(1)
}

func (m *mockProfileRepository) CreateSeller(ctx context.Context, profile *domain.SellerProfile, company *domain.Company, phoneID string) error {
	args := m.Called(ctx, profile, company, phoneID)
	return args.Error(0)
}

func (m *mockProfileRepository) GetSellerByAccountID(ctx context.Context, accountID string) (*domain.SellerProfile, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SellerProfile), args.Error(1)
}

func (m *mockProfileRepository) GetCompanyBySellerProfileID(ctx context.Context, sellerProfileID string) (*domain.Company, error) {
	args := m.Called(ctx, sellerProfileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Company), args.Error(1)
}

// --- Mock Refresh Token Repository ---

type mockRefreshTokenRepository struct {
	mock.Mock
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, accountID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, accountID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepository) RevokeByAccountID(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

// --- Mock Session Store ---

type mockSessionStore struct {
	mock.Mock
}

func (m *mockSessionStore) SavePending(ctx context.Context, pending *domain.PendingRegistration, ttl time.Duration) error {
	args := m.Called(ctx, pending, ttl)
	return args.Error(0)
}

func (m *mockSessionStore) GetPending(ctx context.Context, registrationID string) (*domain.PendingRegistration, error) {
	args := m.Called(ctx, registrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingRegistration), args.Error(1)
}

func (m *mockSessionStore) DeletePending(ctx context.Context, registrationID string) error {
	args := m.Called(ctx, registrationID)
	return args.Error(0)
}

func (m *mockSessionStore) SavePhoneChallenge(ctx context.Context, challenge *session.PhoneChallenge, ttl time.Duration) error {
	args := m.Called(ctx, challenge, ttl)
	return args.Error(0)
}

func (m *mockSessionStore) GetPhoneChallenge(ctx context.Context, phoneID string) (*session.PhoneChallenge, error) {
	args := m.Called(ctx, phoneID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.PhoneChallenge), args.Error(1)
}

func (m *mockSessionStore) DeletePhoneChallenge(ctx context.Context, phoneID string) error {
	args := m.Called(ctx, phoneID)
	return args.Error(0)
}

// --- Mock SMS Gateway ---

type mockSMSGateway struct {
	mock.Mock
}

func (m *mockSMSGateway) Send(ctx context.Context, number, text string) error {
	args := m.Called(ctx, number, text)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-key-for-testing", 15*time.Minute, 7*24*time.Hour)
}

func newTestEventProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	return event.NewProducer(kafkaProducer, logger)
}

func testRegistrationConfig() RegistrationConfig {
	return RegistrationConfig{
		MaxOTPAttempts: 5,
		OTPTTL:         5 * time.Minute,
		PendingTTL:     30 * time.Minute,
	}
}

// hashForTest creates a bcrypt hash with cost 4 for fast tests.
func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		panic(err)
	}
	return string(h)
}
