package domain

import "time"

type CaptureMode string

const (
	CaptureAutomatic CaptureMode = "automatic"
	CaptureManual    CaptureMode = "manual"
)

type PaymentConfig struct {
	OrgID               int64
	Currency            string // ISO 4217
	CaptureMode         CaptureMode
	PlatformFeeBps      int
	StatementDescriptor *string
	UpdatedAt           time.Time
}

type ProviderKind string

const (
	ProviderStripe ProviderKind = "stripe"
	ProviderSquare ProviderKind = "square"
	ProviderManual ProviderKind = "manual"
)

func (k ProviderKind) Valid() bool {
	switch k {
	case ProviderStripe, ProviderSquare, ProviderManual:
		return true
	}
	return false
}

type PaymentProvider struct {
	ID          int64
	OrgID       int64
	Kind        ProviderKind
	DisplayName string
	ConfigJSON  []byte // provider credentials, stored as-is, masked on list
	Enabled     bool
	CreatedAt   time.Time
}
