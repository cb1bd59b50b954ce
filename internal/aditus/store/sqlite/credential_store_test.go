package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aditus-access/aditus/server/internal/aditus/service"
	"github.com/aditus-access/aditus/server/internal/aditus/store"
	"github.com/aditus-access/aditus/server/internal/aditus/store/sqlite"
	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

func insertCard(t *testing.T, conn *sql.DB, id, memberID, number, facility string) {
	t.Helper()
	now := time.Now().UTC().UnixMilli()
	_, err := conn.ExecContext(context.Background(), `
INSERT INTO credentials(credential_id, member_id, kind, status, card_number,
  facility_code, card_type, created_at_ms, updated_at_ms)
VALUES (?, ?, 'CARD', 'ACTIVE', ?, ?, 'MIFARE', ?, ?);`,
		id, memberID, number, facility, now, now)
	require.NoError(t, err)
}

func TestCredentialStore_FindByCard(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	st := sqlite.NewCredentialStore(conn, writer)
	ctx := context.Background()

	seedMember(t, conn, "mem-1")
	insertCard(t, conn, "cred-1", "mem-1", "10001", "77")

	cred, found, err := st.FindByCard(ctx, "10001", "77")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "mem-1", cred.MemberID)
	require.Equal(t, types.CredentialCard, cred.Kind)
	require.Equal(t, types.StatusActive, cred.Status)
	require.Equal(t, types.CardMifare, cred.CardType)

	// Readers that do not report a facility code still match.
	_, found, err = st.FindByCard(ctx, "10001", "")
	require.NoError(t, err)
	require.True(t, found)

	// A mismatched facility code does not.
	_, found, err = st.FindByCard(ctx, "10001", "88")
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = st.FindByCard(ctx, "99999", "")
	require.NoError(t, err)
	require.False(t, found)
}

func TestCredentialStore_FindBySecret(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	st := sqlite.NewCredentialStore(conn, writer)
	ctx := context.Background()

	seedMember(t, conn, "mem-1")
	now := time.Now().UTC().UnixMilli()
	_, err := conn.ExecContext(ctx, `
INSERT INTO credentials(credential_id, member_id, kind, status, secret_hash, created_at_ms, updated_at_ms)
VALUES ('cred-pin', 'mem-1', 'PIN', 'ACTIVE', ?, ?, ?);`,
		service.HashSecret("4242"), now, now)
	require.NoError(t, err)

	cred, found, err := st.FindBySecret(ctx, types.CredentialPIN, service.HashSecret("4242"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "cred-pin", cred.ID)

	_, found, err = st.FindBySecret(ctx, types.CredentialPIN, service.HashSecret("0000"))
	require.NoError(t, err)
	require.False(t, found)

	// Same hash under a different kind does not match.
	_, found, err = st.FindBySecret(ctx, types.CredentialQR, service.HashSecret("4242"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestCredentialStore_UpdateStatus_RevokedIsTerminal(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	st := sqlite.NewCredentialStore(conn, writer)
	ctx := context.Background()

	seedMember(t, conn, "mem-1")
	insertCard(t, conn, "cred-1", "mem-1", "10001", "")

	require.NoError(t, st.UpdateStatus(ctx, "cred-1", types.StatusSuspended, time.Now().UTC()))
	cred, _, err := st.FindByCard(ctx, "10001", "")
	require.NoError(t, err)
	require.Equal(t, types.StatusSuspended, cred.Status)

	require.NoError(t, st.UpdateStatus(ctx, "cred-1", types.StatusRevoked, time.Now().UTC()))

	err = st.UpdateStatus(ctx, "cred-1", types.StatusActive, time.Now().UTC())
	require.ErrorIs(t, err, sqlite.ErrCredentialRevoked)

	cred, _, err = st.FindByCard(ctx, "10001", "")
	require.NoError(t, err)
	require.Equal(t, types.StatusRevoked, cred.Status)
}

func TestCredentialStore_UpdateStatus_MissingCredential(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	st := sqlite.NewCredentialStore(conn, writer)

	err := st.UpdateStatus(context.Background(), "cred-ghost", types.StatusSuspended, time.Now().UTC())
	require.ErrorIs(t, err, store.ErrCredentialNotFound)
}
