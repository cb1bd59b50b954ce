package store

import (
	"context"
	"errors"
	"time"

	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

// ErrCredentialNotFound reports an UpdateStatus against a credential id
// that does not exist. Implementations wrap it so callers can branch
// with errors.Is.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialStore reads and mutates member credentials. Lookups are
// read-only reference queries; UpdateStatus is the only write and must
// refuse transitions out of REVOKED.
type CredentialStore interface {
	// FindByCard looks up a card credential by card number. When
	// facilityCode is non-empty it must also match the stored code.
	FindByCard(ctx context.Context, cardNumber, facilityCode string) (types.Credential, bool, error)

	// FindBySecret looks up a QR or PIN credential by the SHA-256 hash
	// of its presented secret.
	FindBySecret(ctx context.Context, kind types.CredentialKind, secretHash []byte) (types.Credential, bool, error)

	// BiometricFor returns the biometric enrollment owned by a member.
	BiometricFor(ctx context.Context, memberID string) (types.Credential, bool, error)

	UpdateStatus(ctx context.Context, credentialID string, status types.CredentialStatus, now time.Time) error
}

type MemberStore interface {
	GetMember(ctx context.Context, memberID string) (types.Member, bool, error)
}

type ZoneStore interface {
	GetZone(ctx context.Context, zoneID string) (types.Zone, bool, error)
	ListZones(ctx context.Context) ([]types.Zone, error)
}

// RuleStore returns active rules that could govern the given
// presentation: every populated scope field of a returned rule matches
// the corresponding argument. Window containment is the evaluator's job.
type RuleStore interface {
	Candidates(ctx context.Context, zoneID, planID, memberID string) ([]types.TimeRule, error)
}

type DeviceStore interface {
	GetDevice(ctx context.Context, deviceID string) (types.Device, bool, error)
	MarkSeen(ctx context.Context, deviceID string, t time.Time) error
}
