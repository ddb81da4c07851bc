package domain

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleWalker   Role = "walker"
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleWalker, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

// CanManageOrg reports whether the role may touch org-level config
// (payment config, providers, other users' bookings).
func (r Role) CanManageOrg() bool { return r == RoleAdmin || r == RoleOwner }

type User struct {
	ID           string
	Email        *string
	Phone        *string // E.164
	PasswordHash *string // nil for social/wallet-only accounts
	FullName     *string
	CreatedAt    time.Time
}

// HasPassword reports whether password login counts as a credential
// when deciding if an identity may be unlinked.
func (u User) HasPassword() bool { return u.PasswordHash != nil && *u.PasswordHash != "" }

type Membership struct {
	UserID string
	OrgID  int64
	Role   Role
}

type IdentityProvider string

const (
	ProviderGoogle IdentityProvider = "google"
	ProviderApple  IdentityProvider = "apple"
	ProviderPhone  IdentityProvider = "phone"
	ProviderWallet IdentityProvider = "wallet"
)

func (p IdentityProvider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderApple, ProviderPhone, ProviderWallet:
		return true
	}
	return false
}

type Identity struct {
	ID        int64
	UserID    string
	Provider  IdentityProvider
	Subject   string // provider-scoped stable id: sub claim, phone number, wallet pubkey
	CreatedAt time.Time
}
