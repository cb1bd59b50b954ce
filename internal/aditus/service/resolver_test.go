package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aditus-access/aditus/server/internal/aditus/service"
	"github.com/aditus-access/aditus/server/internal/aditus/store/memory"
	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

// fakeMatcher returns a fixed candidate for every template.
type fakeMatcher struct {
	memberID   string
	confidence float64
	found      bool
}

func (f fakeMatcher) Match(context.Context, []byte) (string, float64, bool, error) {
	return f.memberID, f.confidence, f.found, nil
}

func newResolver(st *memory.ReferenceStore, matcher service.BiometricMatcher) *service.CredentialResolver {
	if matcher == nil {
		matcher = fakeMatcher{}
	}
	return service.NewCredentialResolver(st, matcher, 0.85)
}

func activeCard(id, memberID, number string) types.Credential {
	return types.Credential{
		ID: id, MemberID: memberID,
		Kind: types.CredentialCard, Status: types.StatusActive,
		CardNumber: number, CardType: types.CardMifare,
	}
}

func TestResolve_ActiveCard(t *testing.T) {
	st := memory.NewReferenceStore()
	st.PutCredential(activeCard("cred-1", "mem-1", "10001"))
	r := newResolver(st, nil)

	res, err := r.Resolve(context.Background(), "10001", "", types.MethodRFID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, res.Resolved)
	require.Equal(t, "mem-1", res.MemberID)
	require.Equal(t, "cred-1", res.CredentialID)
	require.Nil(t, res.Confidence)
}

func TestResolve_UnknownCard(t *testing.T) {
	r := newResolver(memory.NewReferenceStore(), nil)

	res, err := r.Resolve(context.Background(), "99999", "", types.MethodRFID, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, res.Resolved)
	require.Equal(t, types.ReasonUnknownCredential, res.Reason)
}

func TestResolve_CardStatuses(t *testing.T) {
	cases := []struct {
		status types.CredentialStatus
		reason types.DenialReason
	}{
		{types.StatusSuspended, types.ReasonSuspendedCard},
		{types.StatusLost, types.ReasonSuspendedCard},
		{types.StatusRevoked, types.ReasonSuspendedCard},
		{types.StatusExpired, types.ReasonInvalidCard},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			st := memory.NewReferenceStore()
			card := activeCard("cred-1", "mem-1", "10001")
			card.Status = tc.status
			st.PutCredential(card)
			r := newResolver(st, nil)

			res, err := r.Resolve(context.Background(), "10001", "", types.MethodRFID, time.Now().UTC())
			require.NoError(t, err)
			require.False(t, res.Resolved)
			require.Equal(t, tc.reason, res.Reason)
		})
	}
}

func TestResolve_ExpiredCard(t *testing.T) {
	st := memory.NewReferenceStore()
	card := activeCard("cred-1", "mem-1", "10001")
	expiry := time.Now().UTC().Add(-time.Hour)
	card.ExpiresAt = &expiry
	st.PutCredential(card)
	r := newResolver(st, nil)

	res, err := r.Resolve(context.Background(), "10001", "", types.MethodRFID, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, res.Resolved)
	require.Equal(t, types.ReasonInvalidCard, res.Reason)
}

func TestResolve_FacilityCodeMismatch(t *testing.T) {
	st := memory.NewReferenceStore()
	card := activeCard("cred-1", "mem-1", "10001")
	card.FacilityCode = "77"
	st.PutCredential(card)
	r := newResolver(st, nil)

	res, err := r.Resolve(context.Background(), "10001", "88", types.MethodRFID, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, res.Resolved)
	require.Equal(t, types.ReasonUnknownCredential, res.Reason)
}

func TestResolve_PINByHash(t *testing.T) {
	st := memory.NewReferenceStore()
	st.PutCredential(types.Credential{
		ID: "cred-pin", MemberID: "mem-1",
		Kind: types.CredentialPIN, Status: types.StatusActive,
		SecretHash: service.HashSecret("4242"),
	})
	r := newResolver(st, nil)

	res, err := r.Resolve(context.Background(), "4242", "", types.MethodPIN, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, res.Resolved)
	require.Equal(t, "mem-1", res.MemberID)

	res, err = r.Resolve(context.Background(), "0000", "", types.MethodPIN, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, res.Resolved)
	require.Equal(t, types.ReasonUnknownCredential, res.Reason)
}

func TestResolve_Biometric(t *testing.T) {
	enrollment := types.Credential{
		ID: "cred-bio", MemberID: "mem-1",
		Kind: types.CredentialBiometric, Status: types.StatusActive,
	}

	t.Run("above threshold", func(t *testing.T) {
		st := memory.NewReferenceStore()
		st.PutCredential(enrollment)
		r := newResolver(st, fakeMatcher{memberID: "mem-1", confidence: 0.93, found: true})

		res, err := r.Resolve(context.Background(), "template-bytes", "", types.MethodBiometric, time.Now().UTC())
		require.NoError(t, err)
		require.True(t, res.Resolved)
		require.Equal(t, "mem-1", res.MemberID)
		require.NotNil(t, res.Confidence)
		require.InDelta(t, 0.93, *res.Confidence, 1e-9)
	})

	t.Run("below threshold", func(t *testing.T) {
		st := memory.NewReferenceStore()
		st.PutCredential(enrollment)
		r := newResolver(st, fakeMatcher{memberID: "mem-1", confidence: 0.5, found: true})

		res, err := r.Resolve(context.Background(), "template-bytes", "", types.MethodBiometric, time.Now().UTC())
		require.NoError(t, err)
		require.False(t, res.Resolved)
		require.Equal(t, types.ReasonBiometricMismatch, res.Reason)
	})

	t.Run("no candidate", func(t *testing.T) {
		st := memory.NewReferenceStore()
		r := newResolver(st, fakeMatcher{})

		res, err := r.Resolve(context.Background(), "template-bytes", "", types.MethodBiometric, time.Now().UTC())
		require.NoError(t, err)
		require.False(t, res.Resolved)
		require.Equal(t, types.ReasonBiometricMismatch, res.Reason)
	})

	t.Run("enrollment not active", func(t *testing.T) {
		st := memory.NewReferenceStore()
		e := enrollment
		e.Status = types.StatusNeedsReenrollment
		st.PutCredential(e)
		r := newResolver(st, fakeMatcher{memberID: "mem-1", confidence: 0.99, found: true})

		res, err := r.Resolve(context.Background(), "template-bytes", "", types.MethodBiometric, time.Now().UTC())
		require.NoError(t, err)
		require.False(t, res.Resolved)
		require.Equal(t, types.ReasonNeedsReenrollment, res.Reason)
	})
}

func TestResolve_IsIdempotent(t *testing.T) {
	st := memory.NewReferenceStore()
	st.PutCredential(activeCard("cred-1", "mem-1", "10001"))
	r := newResolver(st, nil)
	now := time.Now().UTC()

	first, err := r.Resolve(context.Background(), "10001", "", types.MethodRFID, now)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "10001", "", types.MethodRFID, now)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
