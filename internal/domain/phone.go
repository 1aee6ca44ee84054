package domain

import (
	"time"
)

// ProfileKind identifies which side of the marketplace a profile belongs to.
type ProfileKind string

// Profile kind constants.
const (
	ProfileKindBuyer  ProfileKind = "buyer"
	ProfileKindSeller ProfileKind = "seller"
)

// IsValidProfileKind checks whether the given string is a valid profile kind.
func IsValidProfileKind(kind string) bool {
	return kind == string(ProfileKindBuyer) || kind == string(ProfileKindSeller)
}

// ProfileRef is a tagged reference to a buyer or seller profile. The zero
// value means "no owner yet", which is the state of a phone number created
// during registration before the role profile exists.
type ProfileRef struct {
	Kind ProfileKind `json:"kind,omitempty"`
	ID   string      `json:"id,omitempty"`
}

// IsZero reports whether the reference points at no profile.
func (r ProfileRef) IsZero() bool {
	return r.ID == ""
}

// BuyerRef builds a reference to a buyer profile.
func BuyerRef(id string) ProfileRef {
	return ProfileRef{Kind: ProfileKindBuyer, ID: id}
}

// SellerRef builds a reference to a seller profile.
func SellerRef(id string) ProfileRef {
	return ProfileRef{Kind: ProfileKindSeller, ID: id}
}

// PhoneNumber is a phone record in the registry. A number is created active
// but unverified; verification happens only after an OTP match. Deactivation
// is a soft delete, rows are never removed. The owner reference stays zero
// during the pre-profile window of registration, with ProfileType recording
// the intended role.
type PhoneNumber struct {
	ID          string      `json:"id"`
	Number      string      `json:"number"`
	ProfileType ProfileKind `json:"profile_type"`
	Owner       ProfileRef  `json:"owner,omitempty"`
	IsActive    bool        `json:"is_active"`
	IsVerified  bool        `json:"is_verified"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// OwnerConsistent reports whether the owner reference, when set, matches the
// recorded profile type. This mirrors the check constraint enforced by the
// store.
func (p *PhoneNumber) OwnerConsistent() bool {
	if p.Owner.IsZero() {
		return true
	}
	return p.Owner.Kind == p.ProfileType
}
