package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/aditus-access/aditus/server/internal/db"

	"github.com/aditus-access/aditus/server/internal/aditus/store"
	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

var ErrCredentialRevoked = errors.New("credential is revoked")

type CredentialStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewCredentialStore(db *sql.DB, writer *dbpkg.Worker) *CredentialStore {
	return &CredentialStore{db: db, writer: writer}
}

const credentialColumns = `
credential_id, member_id, kind, status, expires_at_ms,
card_number, facility_code, card_type, secret_hash`

func (s *CredentialStore) FindByCard(ctx context.Context, cardNumber, facilityCode string) (types.Credential, bool, error) {
	// A stored facility code must match when the device reports one;
	// cards without a stored code match any reader.
	row := s.db.QueryRowContext(ctx, `
SELECT `+credentialColumns+`
FROM credentials
WHERE kind = 'CARD'
  AND card_number = ?
  AND (? = '' OR facility_code IS NULL OR facility_code = '' OR facility_code = ?);
`, cardNumber, facilityCode, facilityCode)

	return scanCredential(row)
}

func (s *CredentialStore) FindBySecret(ctx context.Context, kind types.CredentialKind, secretHash []byte) (types.Credential, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+credentialColumns+`
FROM credentials
WHERE kind = ? AND secret_hash = ?;
`, string(kind), secretHash)

	return scanCredential(row)
}

func (s *CredentialStore) BiometricFor(ctx context.Context, memberID string) (types.Credential, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+credentialColumns+`
FROM credentials
WHERE kind = 'BIOMETRIC' AND member_id = ?;
`, memberID)

	return scanCredential(row)
}

func (s *CredentialStore) UpdateStatus(ctx context.Context, credentialID string, status types.CredentialStatus, now time.Time) error {
	ms := now.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var current string
		var kind string
		err := tx.QueryRowContext(ctx,
			"SELECT status, kind FROM credentials WHERE credential_id = ?;",
			credentialID,
		).Scan(&current, &kind)
		if err == sql.ErrNoRows {
			return fmt.Errorf("UpdateStatus %s: %w", credentialID, store.ErrCredentialNotFound)
		}
		if err != nil {
			return fmt.Errorf("UpdateStatus read: %w", err)
		}

		cred := types.Credential{
			Kind:   types.CredentialKind(kind),
			Status: types.CredentialStatus(current),
		}
		if !cred.StatusTransitionAllowed(status) {
			return ErrCredentialRevoked
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE credentials SET status = ?, updated_at_ms = ? WHERE credential_id = ?;
`, string(status), ms, credentialID); err != nil {
			return fmt.Errorf("UpdateStatus write: %w", err)
		}
		return nil
	})
}

func scanCredential(row *sql.Row) (types.Credential, bool, error) {
	var (
		c          types.Credential
		kind       string
		status     string
		expiresMs  sql.NullInt64
		cardNumber sql.NullString
		facility   sql.NullString
		cardType   sql.NullString
	)

	err := row.Scan(&c.ID, &c.MemberID, &kind, &status, &expiresMs,
		&cardNumber, &facility, &cardType, &c.SecretHash)
	if err == sql.ErrNoRows {
		return types.Credential{}, false, nil
	}
	if err != nil {
		return types.Credential{}, false, fmt.Errorf("scan credential: %w", err)
	}

	c.Kind = types.CredentialKind(kind)
	c.Status = types.CredentialStatus(status)
	if expiresMs.Valid {
		t := time.UnixMilli(expiresMs.Int64).UTC()
		c.ExpiresAt = &t
	}
	c.CardNumber = cardNumber.String
	c.FacilityCode = facility.String
	c.CardType = types.CardType(cardType.String)
	return c, true, nil
}
