package service

import (
	"context"
	"errors"
	"time"

	"github.com/aditus-access/aditus/server/internal/aditus/store"
	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

var (
	ErrUnknownStatus = errors.New("unknown credential status")
)

// CredentialAdmin applies lifecycle transitions to stored credentials.
// Enrollment itself happens elsewhere; the engine only ever suspends,
// reactivates, revokes, or marks cards lost. Revoked is terminal — the
// store rejects any transition out of it.
type CredentialAdmin struct {
	credentials store.CredentialStore
}

func NewCredentialAdmin(cs store.CredentialStore) *CredentialAdmin {
	return &CredentialAdmin{credentials: cs}
}

func (a *CredentialAdmin) Suspend(ctx context.Context, credentialID string) error {
	return a.credentials.UpdateStatus(ctx, credentialID, types.StatusSuspended, time.Now().UTC())
}

func (a *CredentialAdmin) Reactivate(ctx context.Context, credentialID string) error {
	return a.credentials.UpdateStatus(ctx, credentialID, types.StatusActive, time.Now().UTC())
}

func (a *CredentialAdmin) Revoke(ctx context.Context, credentialID string) error {
	return a.credentials.UpdateStatus(ctx, credentialID, types.StatusRevoked, time.Now().UTC())
}

func (a *CredentialAdmin) ReportLost(ctx context.Context, credentialID string) error {
	return a.credentials.UpdateStatus(ctx, credentialID, types.StatusLost, time.Now().UTC())
}

// Apply maps a transition name from the admin API onto the matching
// operation.
func (a *CredentialAdmin) Apply(ctx context.Context, credentialID, transition string) error {
	switch transition {
	case "suspend":
		return a.Suspend(ctx, credentialID)
	case "reactivate":
		return a.Reactivate(ctx, credentialID)
	case "revoke":
		return a.Revoke(ctx, credentialID)
	case "report_lost":
		return a.ReportLost(ctx, credentialID)
	default:
		return ErrUnknownStatus
	}
}
