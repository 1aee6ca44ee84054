package domain

import (
	"time"
)

// BuyerProfile is the buyer-side extension of an Account, one-to-one.
type BuyerProfile struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	DeliveryAddress string    `json:"delivery_address"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SellerProfile is the seller-side extension of an Account, one-to-one.
// Fiscal and legal data lives on the associated Company record, never here.
type SellerProfile struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	BusinessName    string    `json:"business_name"`
	BusinessAddress string    `json:"business_address"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Ref returns the tagged profile reference for this buyer profile.
func (b *BuyerProfile) Ref() ProfileRef {
	return BuyerRef(b.ID)
}

// Ref returns the tagged profile reference for this seller profile.
func (s *SellerProfile) Ref() ProfileRef {
	return SellerRef(s.ID)
}
