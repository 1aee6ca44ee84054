package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/santahate/czesci/internal/domain"
	apperrors "github.com/santahate/czesci/pkg/errors"
)

const phoneColumns = `id, number, profile_type, buyer_profile_id, seller_profile_id, is_active, is_verified, created_at, updated_at`

// PhoneRepository implements repository.PhoneRepository using PostgreSQL.
type PhoneRepository struct {
	db DB
}

// NewPhoneRepository creates a new PostgreSQL-backed phone repository.
func NewPhoneRepository(db DB) *PhoneRepository {
	return &PhoneRepository{db: db}
}

// Create inserts a new phone number record.
func (r *PhoneRepository) Create(ctx context.Context, p *domain.PhoneNumber) error {
	query := `
		INSERT INTO phone_numbers (id, number, profile_type, buyer_profile_id, seller_profile_id, is_active, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	buyerID, sellerID := ownerColumns(p.Owner)

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.Number,
		string(p.ProfileType),
		buyerID,
		sellerID,
		p.IsActive,
		p.IsVerified,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert phone number: %w", err)
	}

	return nil
}

// GetByID retrieves a phone number by its ID.
func (r *PhoneRepository) GetByID(ctx context.Context, id string) (*domain.PhoneNumber, error) {
	query := `SELECT ` + phoneColumns + ` FROM phone_numbers WHERE id = $1`

	return r.scanPhone(r.db.QueryRow(ctx, query, id))
}

// FindUnowned returns the active, unverified, ownerless record for the given
// number and intended role, if one exists.
func (r *PhoneRepository) FindUnowned(ctx context.Context, number string, kind domain.ProfileKind) (*domain.PhoneNumber, error) {
	query := `
		SELECT ` + phoneColumns + `
		FROM phone_numbers
		WHERE number = $1 AND profile_type = $2
		  AND buyer_profile_id IS NULL AND seller_profile_id IS NULL
		  AND is_active = true AND is_verified = false
		ORDER BY created_at DESC
		LIMIT 1`

	return r.scanPhone(r.db.QueryRow(ctx, query, number, string(kind)))
}

// ExistsVerifiedOwned reports whether an active, verified, owned record
// exists for the given number.
func (r *PhoneRepository) ExistsVerifiedOwned(ctx context.Context, number string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM phone_numbers
			WHERE number = $1 AND is_active = true AND is_verified = true
			  AND (buyer_profile_id IS NOT NULL OR seller_profile_id IS NOT NULL)
		)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, number).Scan(&exists); err != nil {
		return false, fmt.Errorf("check verified phone: %w", err)
	}

	return exists, nil
}

// ListByOwner returns all phone numbers belonging to the given profile.
func (r *PhoneRepository) ListByOwner(ctx context.Context, owner domain.ProfileRef) ([]domain.PhoneNumber, error) {
	var query string
	switch owner.Kind {
	case domain.ProfileKindBuyer:
		query = `SELECT ` + phoneColumns + ` FROM phone_numbers WHERE buyer_profile_id = $1 ORDER BY created_at DESC`
	case domain.ProfileKindSeller:
		query = `SELECT ` + phoneColumns + ` FROM phone_numbers WHERE seller_profile_id = $1 ORDER BY created_at DESC`
	default:
		return nil, fmt.Errorf("list phones: unknown profile kind %q", owner.Kind)
	}

	rows, err := r.db.Query(ctx, query, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list phone numbers: %w", err)
	}
	defer rows.Close()

	var phones []domain.PhoneNumber
	for rows.Next() {
		p, err := r.scanPhoneRow(rows)
		if err != nil {
			return nil, err
		}
		phones = append(phones, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phone rows: %w", err)
	}

	if phones == nil {
		phones = []domain.PhoneNumber{}
	}

	return phones, nil
}

// MarkVerified idempotently sets is_verified on the record.
func (r *PhoneRepository) MarkVerified(ctx context.Context, id string) error {
	query := `UPDATE phone_numbers SET is_verified = true, updated_at = $1 WHERE id = $2`

	ct, err := r.db.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark phone verified: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("phone", id)
	}

	return nil
}

// UpdateOTPIssued refreshes updated_at after a code redispatch.
func (r *PhoneRepository) UpdateOTPIssued(ctx context.Context, id string) error {
	query := `UPDATE phone_numbers SET updated_at = $1 WHERE id = $2`

	ct, err := r.db.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touch phone number: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("phone", id)
	}

	return nil
}

// Deactivate soft-deletes the record by clearing is_active.
func (r *PhoneRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE phone_numbers SET is_active = false, updated_at = $1 WHERE id = $2 AND is_active = true`

	ct, err := r.db.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate phone number: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("phone", id)
	}

	return nil
}

// FindAccountByVerifiedNumber resolves an active, verified number through
// its owning profile to the account.
func (r *PhoneRepository) FindAccountByVerifiedNumber(ctx context.Context, number string) (*domain.Account, error) {
	query := `
		SELECT a.id, a.username, a.email, a.password_hash, a.first_name, a.last_name, a.is_active, a.created_at, a.updated_at
		FROM phone_numbers p
		LEFT JOIN buyer_profiles bp ON bp.id = p.buyer_profile_id
		LEFT JOIN seller_profiles sp ON sp.id = p.seller_profile_id
		JOIN accounts a ON a.id = COALESCE(bp.account_id, sp.account_id)
		WHERE p.number = $1 AND p.is_active = true AND p.is_verified = true
		LIMIT 1`

	var a domain.Account
	err := r.db.QueryRow(ctx, query, number).Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&a.FirstName,
		&a.LastName,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("resolve account by phone: %w", err)
	}

	return &a, nil
}

// scanPhone reads a single phone row.
func (r *PhoneRepository) scanPhone(row pgx.Row) (*domain.PhoneNumber, error) {
	p, err := scanPhoneFrom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan phone number: %w", err)
	}
	return p, nil
}

// scanPhoneRow reads the current row of a result set.
func (r *PhoneRepository) scanPhoneRow(rows pgx.Rows) (*domain.PhoneNumber, error) {
	p, err := scanPhoneFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("scan phone row: %w", err)
	}
	return p, nil
}

func scanPhoneFrom(row pgx.Row) (*domain.PhoneNumber, error) {
	var (
		p           domain.PhoneNumber
		profileType string
		buyerID     *string
		sellerID    *string
	)

	err := row.Scan(
		&p.ID,
		&p.Number,
		&profileType,
		&buyerID,
		&sellerID,
		&p.IsActive,
		&p.IsVerified,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ProfileType = domain.ProfileKind(profileType)
	switch {
	case buyerID != nil:
		p.Owner = domain.BuyerRef(*buyerID)
	case sellerID != nil:
		p.Owner = domain.SellerRef(*sellerID)
	}

	return &p, nil
}

// ownerColumns splits a profile reference into the two nullable owner
// columns.
func ownerColumns(owner domain.ProfileRef) (buyerID, sellerID *string) {
	switch owner.Kind {
	case domain.ProfileKindBuyer:
		if owner.ID != "" {
			buyerID = &owner.ID
		}
	case domain.ProfileKindSeller:
		if owner.ID != "" {
			sellerID = &owner.ID
		}
	}
	return buyerID, sellerID
}
