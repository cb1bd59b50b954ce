package types

import "time"

type CredentialKind string

const (
	CredentialCard      CredentialKind = "CARD"
	CredentialBiometric CredentialKind = "BIOMETRIC"
	CredentialQR        CredentialKind = "QR"
	CredentialPIN       CredentialKind = "PIN"
)

type CredentialStatus string

const (
	StatusActive            CredentialStatus = "ACTIVE"
	StatusSuspended         CredentialStatus = "SUSPENDED"
	StatusLost              CredentialStatus = "LOST"
	StatusExpired           CredentialStatus = "EXPIRED"
	StatusRevoked           CredentialStatus = "REVOKED"
	StatusNeedsReenrollment CredentialStatus = "NEEDS_REENROLLMENT"
)

type CardType string

const (
	CardRFID   CardType = "RFID"
	CardNFC    CardType = "NFC"
	CardMifare CardType = "MIFARE"
	CardHID    CardType = "HID"
)

// Credential is the tagged-union view over the four credential kinds.
// Card-only fields (CardNumber, FacilityCode, CardType) are empty for
// other kinds; QR and PIN credentials carry a SHA-256 secret hash.
type Credential struct {
	ID           string           `json:"id"`
	MemberID     string           `json:"member_id"`
	Kind         CredentialKind   `json:"kind"`
	Status       CredentialStatus `json:"status"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
	CardNumber   string           `json:"card_number,omitempty"`
	FacilityCode string           `json:"facility_code,omitempty"`
	CardType     CardType         `json:"card_type,omitempty"`
	SecretHash   []byte           `json:"-"`
}

// Expired reports whether the credential has an expiry in the past.
// The expiry instant itself is still valid.
func (c Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// StatusTransitionAllowed enforces the credential lifecycle: REVOKED is
// terminal, and biometric enrollments use their own status set.
func (c Credential) StatusTransitionAllowed(to CredentialStatus) bool {
	if c.Status == StatusRevoked {
		return false
	}
	switch c.Kind {
	case CredentialBiometric:
		switch to {
		case StatusActive, StatusSuspended, StatusNeedsReenrollment:
			return true
		}
		return false
	default:
		switch to {
		case StatusActive, StatusSuspended, StatusLost, StatusExpired, StatusRevoked:
			return true
		}
		return false
	}
}
