package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/aditus-access/aditus/server/internal/aditus/store"
	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

// BiometricMatcher is the external template matcher. Match returns the
// best candidate member and a confidence in [0,1]; ok is false when no
// candidate exists at all.
type BiometricMatcher interface {
	Match(ctx context.Context, template []byte) (memberID string, confidence float64, ok bool, err error)
}

// Resolution is the resolver's verdict on a single presentation. When
// Resolved is false, Reason carries the denial to surface. Confidence is
// set only for biometric matches.
type Resolution struct {
	Resolved     bool
	MemberID     string
	CredentialID string
	Confidence   *float64
	Reason       types.DenialReason
}

func unresolved(reason types.DenialReason) Resolution {
	return Resolution{Reason: reason}
}

// CredentialResolver maps a raw credential payload to a member identity.
// It performs no side effects and is idempotent for identical input.
type CredentialResolver struct {
	credentials   store.CredentialStore
	matcher       BiometricMatcher
	minConfidence float64
}

func NewCredentialResolver(cs store.CredentialStore, matcher BiometricMatcher, minConfidence float64) *CredentialResolver {
	return &CredentialResolver{credentials: cs, matcher: matcher, minConfidence: minConfidence}
}

// Resolve classifies one presentation. A non-nil error means the
// reference store itself failed; every credential problem comes back as
// an unresolved Resolution instead.
func (r *CredentialResolver) Resolve(ctx context.Context, payload string, facilityCode string, method types.AccessMethod, now time.Time) (Resolution, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return unresolved(types.ReasonUnknownCredential), nil
	}

	switch method {
	case types.MethodRFID, types.MethodManual:
		return r.resolveCard(ctx, payload, facilityCode, now)
	case types.MethodQRCode:
		return r.resolveSecret(ctx, types.CredentialQR, payload, now)
	case types.MethodPIN:
		return r.resolveSecret(ctx, types.CredentialPIN, payload, now)
	case types.MethodBiometric:
		return r.resolveBiometric(ctx, payload, now)
	default:
		return unresolved(types.ReasonUnknownCredential), nil
	}
}

func (r *CredentialResolver) resolveCard(ctx context.Context, cardNumber, facilityCode string, now time.Time) (Resolution, error) {
	cred, ok, err := r.credentials.FindByCard(ctx, cardNumber, facilityCode)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve card: %w", err)
	}
	if !ok {
		return unresolved(types.ReasonUnknownCredential), nil
	}
	return classify(cred, now), nil
}

func (r *CredentialResolver) resolveSecret(ctx context.Context, kind types.CredentialKind, secret string, now time.Time) (Resolution, error) {
	cred, ok, err := r.credentials.FindBySecret(ctx, kind, HashSecret(secret))
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve %s: %w", strings.ToLower(string(kind)), err)
	}
	if !ok {
		return unresolved(types.ReasonUnknownCredential), nil
	}
	return classify(cred, now), nil
}

func (r *CredentialResolver) resolveBiometric(ctx context.Context, template string, now time.Time) (Resolution, error) {
	memberID, confidence, ok, err := r.matcher.Match(ctx, []byte(template))
	if err != nil {
		return Resolution{}, fmt.Errorf("biometric match: %w", err)
	}
	if !ok || confidence < r.minConfidence {
		return unresolved(types.ReasonBiometricMismatch), nil
	}

	cred, found, err := r.credentials.BiometricFor(ctx, memberID)
	if err != nil {
		return Resolution{}, fmt.Errorf("biometric enrollment lookup: %w", err)
	}
	if !found {
		return unresolved(types.ReasonUnknownCredential), nil
	}
	if cred.Status != types.StatusActive {
		return unresolved(types.ReasonNeedsReenrollment), nil
	}

	c := confidence
	return Resolution{
		Resolved:     true,
		MemberID:     cred.MemberID,
		CredentialID: cred.ID,
		Confidence:   &c,
	}, nil
}

// classify turns a located card/QR/PIN credential into a Resolution
// based on its status and expiry.
func classify(cred types.Credential, now time.Time) Resolution {
	switch cred.Status {
	case types.StatusSuspended, types.StatusLost, types.StatusRevoked:
		return unresolved(types.ReasonSuspendedCard)
	case types.StatusExpired:
		return unresolved(types.ReasonInvalidCard)
	}
	if cred.Expired(now) {
		return unresolved(types.ReasonInvalidCard)
	}
	return Resolution{
		Resolved:     true,
		MemberID:     cred.MemberID,
		CredentialID: cred.ID,
	}
}

// HashSecret hashes a QR token or PIN before lookup so raw secrets never
// reach a store query or a log line.
func HashSecret(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}
