package domain

import (
	"time"
)

// LegalForm constants define the allowed company legal forms.
const (
	LegalFormSoleTrader     = "sole_trader"
	LegalFormPrivateLimited = "private_limited"
	LegalFormJointStock     = "joint_stock"
)

// ValidLegalForms returns the set of valid legal forms.
func ValidLegalForms() []string {
	return []string{LegalFormSoleTrader, LegalFormPrivateLimited, LegalFormJointStock}
}

// IsValidLegalForm checks whether the given string is a valid legal form.
func IsValidLegalForm(form string) bool {
	for _, f := range ValidLegalForms() {
		if f == form {
			return true
		}
	}
	return false
}

// IsLegalEntity reports whether the legal form denotes a registered legal
// entity, which must carry a KRS court registry number.
func IsLegalEntity(form string) bool {
	return form == LegalFormPrivateLimited || form == LegalFormJointStock
}

// Company is the normalized legal and invoicing record of a seller,
// one-to-one with SellerProfile. NIP is globally unique.
type Company struct {
	ID                 string    `json:"id"`
	SellerProfileID    string    `json:"seller_profile_id"`
	LegalName          string    `json:"legal_name"`
	LegalForm          string    `json:"legal_form"`
	AddressLine1       string    `json:"address_line1"`
	AddressLine2       string    `json:"address_line2,omitempty"`
	City               string    `json:"city"`
	PostalCode         string    `json:"postal_code"`
	CountryCode        string    `json:"country_code"`
	NIP                string    `json:"nip"`
	REGON              string    `json:"regon,omitempty"`
	KRS                string    `json:"krs,omitempty"`
	VATPayer           bool      `json:"vat_payer"`
	IBAN               string    `json:"iban,omitempty"`
	SWIFT              string    `json:"swift,omitempty"`
	InvoiceDisplayName string    `json:"invoice_display_name,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ValidateFiscalIDs checks the Polish fiscal identifier formats: NIP is 10
// digits, REGON is 9 digits, KRS is 10 digits. REGON and KRS are optional
// unless the legal form requires KRS.
func (c *Company) ValidateFiscalIDs() error {
	if !isDigits(c.NIP, 10) {
		return &FiscalIDError{Field: "nip", Message: "nip must be exactly 10 digits"}
	}
	if c.REGON != "" && !isDigits(c.REGON, 9) {
		return &FiscalIDError{Field: "regon", Message: "regon must be exactly 9 digits"}
	}
	if c.KRS != "" && !isDigits(c.KRS, 10) {
		return &FiscalIDError{Field: "krs", Message: "krs must be exactly 10 digits"}
	}
	if IsLegalEntity(c.LegalForm) && c.KRS == "" {
		return &FiscalIDError{Field: "krs", Message: "krs is required for legal entities"}
	}
	return nil
}

// FiscalIDError reports a malformed or missing fiscal identifier.
type FiscalIDError struct {
	Field   string
	Message string
}

func (e *FiscalIDError) Error() string {
	return e.Message
}

func isDigits(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
