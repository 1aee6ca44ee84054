package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/santahate/czesci/internal/auth"
	"github.com/santahate/czesci/internal/domain"
	"github.com/santahate/czesci/internal/event"
	"github.com/santahate/czesci/internal/service"
	"github.com/santahate/czesci/internal/session"
	"github.com/santahate/czesci/pkg/httputil"
	pkgkafka "github.com/santahate/czesci/pkg/kafka"
	"github.com/santahate/czesci/pkg/middleware"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) Create(ctx context.Context, account *domain.Account, consents []domain.Consent) error {
	args := m.Called(ctx, account, consents)
	return args.Error(0)
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccountRepo) Update(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

type mockPhoneRepo struct {
	mock.Mock
}

func (m *mockPhoneRepo) Create(ctx context.Context, phone *domain.PhoneNumber) error {
	args := m.Called(ctx, phone)
	return args.Error(0)
}

func (m *mockPhoneRepo) GetByID(ctx context.Context, id string) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *mockPhoneRepo) FindUnowned(ctx context.Context, number string, kind domain.ProfileKind) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, number, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *mockPhoneRepo) ExistsVerifiedOwned(ctx context.Context, number string) (bool, error) {
	args := m.Called(ctx, number)
	return args.Bool(0), args.Error(1)
}

func (m *mockPhoneRepo) ListByOwner(ctx context.Context, owner domain.ProfileRef) ([]domain.PhoneNumber, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PhoneNumber), args.Error(1)
}

func (m *mockPhoneRepo) MarkVerified(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPhoneRepo) UpdateOTPIssued(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPhoneRepo) Deactivate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPhoneRepo) FindAccountByVerifiedNumber(ctx context.Context, number string) (*domain.Account, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

type mockProfileRepo struct {
	mock.Mock
}

func (m *mockProfileRepo) CreateBuyer(ctx context.Context, profile *domain.BuyerProfile, phoneID string) error {
	args := m.Called(ctx, profile, phoneID)
	return args.Error(0)
}

func (m *mockProfileRepo) GetBuyerByAccountID(ctx context.Context, accountID string) (*domain.BuyerProfile, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BuyerProfile), args.Error(1)
}

func (m *mockProfileRepo) CreateSeller(ctx context.Context, profile *domain.SellerProfile, company *domain.Company, phoneID string) error {
	args := m.Called(ctx, profile, company, phoneID)
	return args.Error(0)
}

func (m *mockProfileRepo) GetSellerByAccountID(ctx context.Context, accountID string) (*domain.SellerProfile, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SellerProfile), args.Error(1)
}

func (m *mockProfileRepo) GetCompanyBySellerProfileID(ctx context.Context, sellerProfileID string) (*domain.Company, error) {
	args := m.Called(ctx, sellerProfileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Company), args.Error(1)
}

type mockRefreshTokenRepo struct {
	mock.Mock
}

func (m *mockRefreshTokenRepo) Create(ctx context.Context, accountID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, accountID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *mockRefreshTokenRepo) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepo) RevokeByAccountID(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *mockRefreshTokenRepo) Revoke(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

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

type mockSMSGateway struct {
	mock.Mock
}

func (m *mockSMSGateway) Send(ctx context.Context, number, text string) error {
	args := m.Called(ctx, number, text)
	return args.Error(0)
}

// ============================================================================
// Test Helpers
// ============================================================================

const testAccountID = "550e8400-e29b-41d4-a716-446655440001"
const testPhoneID = "550e8400-e29b-41d4-a716-446655440002"
const testRegistrationID = "550e8400-e29b-41d4-a716-446655440003"

type handlerMocks struct {
	accountRepo *mockAccountRepo
	phoneRepo   *mockPhoneRepo
	profileRepo *mockProfileRepo
	refreshRepo *mockRefreshTokenRepo
	sessions    *mockSessionStore
	gateway     *mockSMSGateway
}

func handlerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func handlerTestJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-key-for-testing", 15*time.Minute, 7*24*time.Hour)
}

func handlerTestEventProducer() *event.Producer {
	logger := handlerTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:19092"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	return event.NewProducer(kafkaProducer, logger)
}

func handlerTestConfig() service.RegistrationConfig {
	return service.RegistrationConfig{
		MaxOTPAttempts: 5,
		OTPTTL:         5 * time.Minute,
		PendingTTL:     30 * time.Minute,
	}
}

func newHandlerMocks() *handlerMocks {
	return &handlerMocks{
		accountRepo: new(mockAccountRepo),
		phoneRepo:   new(mockPhoneRepo),
		profileRepo: new(mockProfileRepo),
		refreshRepo: new(mockRefreshTokenRepo),
		sessions:    new(mockSessionStore),
		gateway:     new(mockSMSGateway),
	}
}

func newRegistrationService(m *handlerMocks) *service.RegistrationService {
	return service.NewRegistrationService(
		m.accountRepo, m.phoneRepo, m.profileRepo, m.refreshRepo,
		m.sessions, m.gateway, handlerTestJWTManager(), handlerTestEventProducer(),
		handlerTestLogger(), handlerTestConfig(),
	)
}

func newLoginService(m *handlerMocks) *service.LoginService {
	return service.NewLoginService(
		m.accountRepo, m.phoneRepo, m.profileRepo, m.refreshRepo,
		handlerTestJWTManager(), handlerTestLogger(),
	)
}

func newPhoneService(m *handlerMocks) *service.PhoneService {
	return service.NewPhoneService(
		m.phoneRepo, m.profileRepo, m.sessions, m.gateway,
		handlerTestEventProducer(), handlerTestLogger(), handlerTestConfig(),
	)
}

// fakeTokenValidator returns a middleware.TokenValidator that always succeeds
// and injects the given account id into the request context.
func fakeTokenValidator(accountID string) middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		return &middleware.Claims{UserID: accountID, Email: "test@example.com"}, nil
	}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

func authedRouter(accountID string, register func(r chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(fakeTokenValidator(accountID)))
		register(r)
	})
	return r
}

func jsonRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}
