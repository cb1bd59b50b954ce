package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/aditus-access/aditus/server/internal/db"

	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

// OccupancyStore is the write-behind sink for the in-memory counters.
// Rows are upserted whole; the occupancy manager never reads them except
// at startup.
type OccupancyStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewOccupancyStore(db *sql.DB, writer *dbpkg.Worker) *OccupancyStore {
	return &OccupancyStore{db: db, writer: writer}
}

func (s *OccupancyStore) LoadSnapshots(ctx context.Context) ([]types.OccupancySnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT zone_id, count, peak_count, peak_at_ms, last_entry_at_ms, last_exit_at_ms
FROM zone_occupancy;
`)
	if err != nil {
		return nil, fmt.Errorf("LoadSnapshots: %w", err)
	}
	defer rows.Close()

	var out []types.OccupancySnapshot
	for rows.Next() {
		var (
			snap    types.OccupancySnapshot
			peakMs  sql.NullInt64
			entryMs sql.NullInt64
			exitMs  sql.NullInt64
		)
		if err := rows.Scan(&snap.ZoneID, &snap.Count, &snap.PeakCount,
			&peakMs, &entryMs, &exitMs); err != nil {
			return nil, fmt.Errorf("LoadSnapshots scan: %w", err)
		}
		if peakMs.Valid {
			t := time.UnixMilli(peakMs.Int64).UTC()
			snap.PeakAt = &t
		}
		if entryMs.Valid {
			t := time.UnixMilli(entryMs.Int64).UTC()
			snap.LastEntryAt = &t
		}
		if exitMs.Valid {
			t := time.UnixMilli(exitMs.Int64).UTC()
			snap.LastExitAt = &t
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *OccupancyStore) SaveSnapshot(ctx context.Context, snap types.OccupancySnapshot) error {
	var peakMs, entryMs, exitMs any
	if snap.PeakAt != nil {
		peakMs = snap.PeakAt.UTC().UnixMilli()
	}
	if snap.LastEntryAt != nil {
		entryMs = snap.LastEntryAt.UTC().UnixMilli()
	}
	if snap.LastExitAt != nil {
		exitMs = snap.LastExitAt.UTC().UnixMilli()
	}
	nowMs := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO zone_occupancy(zone_id, count, peak_count, peak_at_ms,
  last_entry_at_ms, last_exit_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(zone_id) DO UPDATE SET
  count = excluded.count,
  peak_count = excluded.peak_count,
  peak_at_ms = excluded.peak_at_ms,
  last_entry_at_ms = excluded.last_entry_at_ms,
  last_exit_at_ms = excluded.last_exit_at_ms,
  updated_at_ms = excluded.updated_at_ms;
`, snap.ZoneID, snap.Count, snap.PeakCount, peakMs, entryMs, exitMs, nowMs); err != nil {
			return fmt.Errorf("SaveSnapshot %s: %w", snap.ZoneID, err)
		}
		return nil
	})
}

func (s *OccupancyStore) LoadLocations(ctx context.Context) ([]types.MemberLocation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT member_id, zone_id, entered_at_ms FROM member_locations;")
	if err != nil {
		return nil, fmt.Errorf("LoadLocations: %w", err)
	}
	defer rows.Close()

	var out []types.MemberLocation
	for rows.Next() {
		var (
			loc types.MemberLocation
			ms  int64
		)
		if err := rows.Scan(&loc.MemberID, &loc.ZoneID, &ms); err != nil {
			return nil, fmt.Errorf("LoadLocations scan: %w", err)
		}
		loc.EnteredAt = time.UnixMilli(ms).UTC()
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (s *OccupancyStore) SaveLocation(ctx context.Context, loc types.MemberLocation) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO member_locations(member_id, zone_id, entered_at_ms)
VALUES (?, ?, ?)
ON CONFLICT(member_id) DO UPDATE SET
  zone_id = excluded.zone_id,
  entered_at_ms = excluded.entered_at_ms;
`, loc.MemberID, loc.ZoneID, loc.EnteredAt.UTC().UnixMilli()); err != nil {
			return fmt.Errorf("SaveLocation %s: %w", loc.MemberID, err)
		}
		return nil
	})
}

func (s *OccupancyStore) DeleteLocation(ctx context.Context, memberID string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM member_locations WHERE member_id = ?;", memberID); err != nil {
			return fmt.Errorf("DeleteLocation %s: %w", memberID, err)
		}
		return nil
	})
}
