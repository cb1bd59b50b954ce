package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/aditus-access/aditus/server/internal/db"

	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

type AccessLogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessLogStore(db *sql.DB, writer *dbpkg.Worker) *AccessLogStore {
	return &AccessLogStore{db: db, writer: writer}
}

func (s *AccessLogStore) Append(ctx context.Context, e types.AccessLogEntry) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	var reason any
	if e.Reason != nil {
		reason = string(*e.Reason)
	}
	var memberID any
	if e.MemberID != nil {
		memberID = *e.MemberID
	}
	var credentialID any
	if e.CredentialID != nil {
		credentialID = *e.CredentialID
	}
	var confidence any
	if e.Confidence != nil {
		confidence = *e.Confidence
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_log(
  entry_id, tenant_id, device_id, zone_id, member_id, method,
  credential_id, direction, result, denial_reason, confidence, occurred_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			e.ID, e.TenantID, e.DeviceID, e.ZoneID, memberID, string(e.Method),
			credentialID, string(e.Direction), string(e.Result), reason,
			confidence, e.OccurredAt.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("Append access_log: %w", err)
		}
		return nil
	})
}

func (s *AccessLogStore) List(ctx context.Context, f types.AccessLogFilter) ([]types.AccessLogEntry, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		where = append(where, clause)
		args = append(args, arg)
	}
	if f.TenantID != "" {
		add("tenant_id = ?", f.TenantID)
	}
	if f.DeviceID != "" {
		add("device_id = ?", f.DeviceID)
	}
	if f.ZoneID != "" {
		add("zone_id = ?", f.ZoneID)
	}
	if f.MemberID != "" {
		add("member_id = ?", f.MemberID)
	}
	if f.Result != "" {
		add("result = ?", string(f.Result))
	}
	if f.From != nil {
		add("occurred_at_ms >= ?", f.From.UTC().UnixMilli())
	}
	if f.To != nil {
		add("occurred_at_ms <= ?", f.To.UTC().UnixMilli())
	}

	q := `
SELECT entry_id, tenant_id, device_id, zone_id, member_id, method,
       credential_id, direction, result, denial_reason, confidence, occurred_at_ms
FROM access_log`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY occurred_at_ms DESC, entry_id DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("List access_log: %w", err)
	}
	defer rows.Close()

	var out []types.AccessLogEntry
	for rows.Next() {
		var (
			e          types.AccessLogEntry
			memberID   sql.NullString
			method     string
			credential sql.NullString
			direction  string
			result     string
			reason     sql.NullString
			confidence sql.NullFloat64
			occurredMs int64
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.DeviceID, &e.ZoneID,
			&memberID, &method, &credential, &direction, &result, &reason,
			&confidence, &occurredMs); err != nil {
			return nil, fmt.Errorf("List scan: %w", err)
		}
		if memberID.Valid {
			v := memberID.String
			e.MemberID = &v
		}
		if credential.Valid {
			v := credential.String
			e.CredentialID = &v
		}
		if reason.Valid {
			r := types.DenialReason(reason.String)
			e.Reason = &r
		}
		if confidence.Valid {
			v := confidence.Float64
			e.Confidence = &v
		}
		e.Method = types.AccessMethod(method)
		e.Direction = types.Direction(direction)
		e.Result = types.Result(result)
		e.OccurredAt = time.UnixMilli(occurredMs).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *AccessLogStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM access_log WHERE occurred_at_ms < ?;",
			cutoff.UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}
