package repository

import (
	"context"
	"time"

	"github.com/santahate/czesci/internal/domain"
)

// AccountRepository defines the interface for account persistence operations.
type AccountRepository interface {
	// Create inserts a new account together with its consent rows in one
	// transaction. A username collision surfaces as AlreadyExists so the
	// caller can retry with the next suffix.
	Create(ctx context.Context, account *domain.Account, consents []domain.Consent) error

	// GetByID retrieves an account by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Account, error)

	// GetByEmail retrieves an account by email, matched case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)

	// GetByUsername retrieves an account by its exact username.
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)

	// UsernameExists reports whether the given username is already taken.
	UsernameExists(ctx context.Context, username string) (bool, error)

	// Update modifies an existing account.
	Update(ctx context.Context, account *domain.Account) error
}

// PhoneRepository defines the interface for phone number persistence
// operations. Phone rows are never hard-deleted; deactivation flips
// is_active only.
type PhoneRepository interface {
	// Create inserts a new phone number record.
	Create(ctx context.Context, phone *domain.PhoneNumber) error

	// GetByID retrieves a phone number by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.PhoneNumber, error)

	// FindUnowned returns the active, unverified, ownerless record for the
	// given number and intended role, if one exists.
	FindUnowned(ctx context.Context, number string, kind domain.ProfileKind) (*domain.PhoneNumber, error)

	// ExistsVerifiedOwned reports whether an active, verified, owned record
	// exists for the given number.
	ExistsVerifiedOwned(ctx context.Context, number string) (bool, error)

	// ListByOwner returns all phone numbers belonging to the given profile.
	ListByOwner(ctx context.Context, owner domain.ProfileRef) ([]domain.PhoneNumber, error)

	// MarkVerified idempotently sets is_verified on the record.
	MarkVerified(ctx context.Context, id string) error

	// UpdateOTPIssued refreshes updated_at after a code redispatch.
	UpdateOTPIssued(ctx context.Context, id string) error

	// Deactivate soft-deletes the record by clearing is_active.
	Deactivate(ctx context.Context, id string) error

	// FindAccountByVerifiedNumber resolves an active, verified number
	// through its owning profile to the account, for login.
	FindAccountByVerifiedNumber(ctx context.Context, number string) (*domain.Account, error)
}

// ProfileRepository defines the interface for buyer/seller profile and
// company persistence. Creation claims the pre-existing unowned phone row in
// the same transaction as the profile insert.
type ProfileRepository interface {
	// CreateBuyer inserts a buyer profile and associates the given phone
	// record with it, in one transaction.
	CreateBuyer(ctx context.Context, profile *domain.BuyerProfile, phoneID string) error

	// GetBuyerByAccountID retrieves the buyer profile for an account.
	GetBuyerByAccountID(ctx context.Context, accountID string) (*domain.BuyerProfile, error)

	// CreateSeller inserts a seller profile with its company record and
	// associates the given phone record with it, in one transaction. A NIP
	// collision surfaces as AlreadyExists.
	CreateSeller(ctx context.Context, profile *domain.SellerProfile, company *domain.Company, phoneID string) error

	// GetSellerByAccountID retrieves the seller profile for an account.
	GetSellerByAccountID(ctx context.Context, accountID string) (*domain.SellerProfile, error)

	// GetCompanyBySellerProfileID retrieves the company record of a seller.
	GetCompanyBySellerProfileID(ctx context.Context, sellerProfileID string) (*domain.Company, error)
}

// RefreshTokenRepository defines the interface for refresh token persistence operations.
type RefreshTokenRepository interface {
	// Create stores a new refresh token hash.
	Create(ctx context.Context, accountID, tokenHash string, expiresAt time.Time) error

	// GetByHash retrieves a refresh token record by its hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// RevokeByAccountID revokes all refresh tokens for the given account.
	RevokeByAccountID(ctx context.Context, accountID string) error

	// Revoke revokes a specific refresh token by its hash.
	Revoke(ctx context.Context, tokenHash string) error
}
