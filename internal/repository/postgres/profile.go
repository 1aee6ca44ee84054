package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/santahate/czesci/internal/domain"
	apperrors "github.com/santahate/czesci/pkg/errors"
)

// ProfileRepository implements repository.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	db DB
}

// NewProfileRepository creates a new PostgreSQL-backed profile repository.
func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// CreateBuyer inserts a buyer profile and claims the given unowned phone row
// in one transaction.
func (r *ProfileRepository) CreateBuyer(ctx context.Context, p *domain.BuyerProfile, phoneID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO buyer_profiles (id, account_id, delivery_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = tx.Exec(ctx, query, p.ID, p.AccountID, p.DeliveryAddress, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("buyer profile", "account_id", p.AccountID)
		}
		return fmt.Errorf("insert buyer profile: %w", err)
	}

	if err := claimPhone(ctx, tx, phoneID, domain.BuyerRef(p.ID)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetBuyerByAccountID retrieves the buyer profile for an account.
func (r *ProfileRepository) GetBuyerByAccountID(ctx context.Context, accountID string) (*domain.BuyerProfile, error) {
	query := `
		SELECT id, account_id, delivery_address, created_at, updated_at
		FROM buyer_profiles
		WHERE account_id = $1`

	var p domain.BuyerProfile
	err := r.db.QueryRow(ctx, query, accountID).Scan(
		&p.ID,
		&p.AccountID,
		&p.DeliveryAddress,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan buyer profile: %w", err)
	}

	return &p, nil
}

// CreateSeller inserts a seller profile with its company record and claims
// the given unowned phone row, all in one transaction.
func (r *ProfileRepository) CreateSeller(ctx context.Context, p *domain.SellerProfile, c *domain.Company, phoneID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO seller_profiles (id, account_id, business_name, business_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = tx.Exec(ctx, query, p.ID, p.AccountID, p.BusinessName, p.BusinessAddress, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("seller profile", "account_id", p.AccountID)
		}
		return fmt.Errorf("insert seller profile: %w", err)
	}

	companyQuery := `
		INSERT INTO companies (id, seller_profile_id, legal_name, legal_form, address_line1, address_line2, city, postal_code, country_code,
		                       nip, regon, krs, vat_payer, iban, swift, invoice_display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err = tx.Exec(ctx, companyQuery,
		c.ID,
		c.SellerProfileID,
		c.LegalName,
		c.LegalForm,
		c.AddressLine1,
		c.AddressLine2,
		c.City,
		c.PostalCode,
		c.CountryCode,
		c.NIP,
		c.REGON,
		c.KRS,
		c.VATPayer,
		c.IBAN,
		c.SWIFT,
		c.InvoiceDisplayName,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("company", "nip", c.NIP)
		}
		return fmt.Errorf("insert company: %w", err)
	}

	if err := claimPhone(ctx, tx, phoneID, domain.SellerRef(p.ID)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetSellerByAccountID retrieves the seller profile for an account.
func (r *ProfileRepository) GetSellerByAccountID(ctx context.Context, accountID string) (*domain.SellerProfile, error) {
	query := `
		SELECT id, account_id, business_name, business_address, created_at, updated_at
		FROM seller_profiles
		WHERE account_id = $1`

	var p domain.SellerProfile
	err := r.db.QueryRow(ctx, query, accountID).Scan(
		&p.ID,
		&p.AccountID,
		&p.BusinessName,
		&p.BusinessAddress,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan seller profile: %w", err)
	}

	return &p, nil
}

// GetCompanyBySellerProfileID retrieves the company record of a seller.
func (r *ProfileRepository) GetCompanyBySellerProfileID(ctx context.Context, sellerProfileID string) (*domain.Company, error) {
	query := `
		SELECT id, seller_profile_id, legal_name, legal_form, address_line1, address_line2, city, postal_code, country_code,
		       nip, regon, krs, vat_payer, iban, swift, invoice_display_name, created_at, updated_at
		FROM companies
		WHERE seller_profile_id = $1`

	var c domain.Company
	err := r.db.QueryRow(ctx, query, sellerProfileID).Scan(
		&c.ID,
		&c.SellerProfileID,
		&c.LegalName,
		&c.LegalForm,
		&c.AddressLine1,
		&c.AddressLine2,
		&c.City,
		&c.PostalCode,
		&c.CountryCode,
		&c.NIP,
		&c.REGON,
		&c.KRS,
		&c.VATPayer,
		&c.IBAN,
		&c.SWIFT,
		&c.InvoiceDisplayName,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan company: %w", err)
	}

	return &c, nil
}

// claimPhone associates a still-unowned phone row with the newly created
// profile. Claiming an already-owned row affects zero rows and fails, which
// guards against two concurrent completions racing the same number.
func claimPhone(ctx context.Context, tx pgx.Tx, phoneID string, owner domain.ProfileRef) error {
	var query string
	switch owner.Kind {
	case domain.ProfileKindBuyer:
		query = `
			UPDATE phone_numbers SET buyer_profile_id = $1, updated_at = NOW()
			WHERE id = $2 AND buyer_profile_id IS NULL AND seller_profile_id IS NULL`
	case domain.ProfileKindSeller:
		query = `
			UPDATE phone_numbers SET seller_profile_id = $1, updated_at = NOW()
			WHERE id = $2 AND buyer_profile_id IS NULL AND seller_profile_id IS NULL`
	default:
		return fmt.Errorf("claim phone: unknown profile kind %q", owner.Kind)
	}

	ct, err := tx.Exec(ctx, query, owner.ID, phoneID)
	if err != nil {
		return fmt.Errorf("claim phone number: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("phone", phoneID)
	}

	return nil
}
