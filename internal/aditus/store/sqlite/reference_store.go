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

// MemberStore, ZoneStore and DeviceStore are pure reference-data reads,
// plus the device last-seen touch which goes through the writer.

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

func (s *MemberStore) GetMember(ctx context.Context, memberID string) (types.Member, bool, error) {
	var (
		m      types.Member
		gender string
		active int
	)
	err := s.db.QueryRowContext(ctx, `
SELECT member_id, tenant_id, name, gender, plan_id, active
FROM members WHERE member_id = ?;
`, memberID).Scan(&m.ID, &m.TenantID, &m.Name, &gender, &m.PlanID, &active)
	if err == sql.ErrNoRows {
		return types.Member{}, false, nil
	}
	if err != nil {
		return types.Member{}, false, fmt.Errorf("GetMember: %w", err)
	}
	m.Gender = types.Gender(gender)
	m.Active = active == 1
	return m, true, nil
}

type ZoneStore struct {
	db *sql.DB
}

func NewZoneStore(db *sql.DB) *ZoneStore {
	return &ZoneStore{db: db}
}

const zoneColumns = `
zone_id, tenant_id, name, zone_type, max_occupancy, gender_restriction, required_plan_ids`

func (s *ZoneStore) GetZone(ctx context.Context, zoneID string) (types.Zone, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+zoneColumns+" FROM zones WHERE zone_id = ?;", zoneID)
	z, err := scanZone(row.Scan)
	if err == sql.ErrNoRows {
		return types.Zone{}, false, nil
	}
	if err != nil {
		return types.Zone{}, false, fmt.Errorf("GetZone: %w", err)
	}
	return z, true, nil
}

func (s *ZoneStore) ListZones(ctx context.Context) ([]types.Zone, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+zoneColumns+" FROM zones ORDER BY zone_id;")
	if err != nil {
		return nil, fmt.Errorf("ListZones: %w", err)
	}
	defer rows.Close()

	var out []types.Zone
	for rows.Next() {
		z, err := scanZone(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("ListZones scan: %w", err)
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

func scanZone(scan func(dest ...any) error) (types.Zone, error) {
	var (
		z        types.Zone
		ztype    string
		maxOcc   sql.NullInt64
		gender   sql.NullString
		required string
	)
	if err := scan(&z.ID, &z.TenantID, &z.Name, &ztype, &maxOcc, &gender, &required); err != nil {
		return types.Zone{}, err
	}
	z.Type = types.ZoneType(ztype)
	if maxOcc.Valid {
		n := int(maxOcc.Int64)
		z.MaxOccupancy = &n
	}
	if gender.Valid && gender.String != "" {
		g := types.Gender(gender.String)
		z.GenderRestriction = &g
	}
	for _, p := range strings.Split(required, ",") {
		if p = strings.TrimSpace(p); p != "" {
			z.RequiredPlanIDs = append(z.RequiredPlanIDs, p)
		}
	}
	return z, nil
}

type DeviceStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewDeviceStore(db *sql.DB, writer *dbpkg.Worker) *DeviceStore {
	return &DeviceStore{db: db, writer: writer}
}

func (s *DeviceStore) GetDevice(ctx context.Context, deviceID string) (types.Device, bool, error) {
	var (
		d      types.Device
		status string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT device_id, tenant_id, zone_id, name, status
FROM devices WHERE device_id = ?;
`, deviceID).Scan(&d.ID, &d.TenantID, &d.ZoneID, &d.Name, &status)
	if err == sql.ErrNoRows {
		return types.Device{}, false, nil
	}
	if err != nil {
		return types.Device{}, false, fmt.Errorf("GetDevice: %w", err)
	}
	d.Status = types.DeviceStatus(status)
	return d, true, nil
}

func (s *DeviceStore) MarkSeen(ctx context.Context, deviceID string, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := t.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
UPDATE devices SET last_seen_at_ms = ?, updated_at_ms = ? WHERE device_id = ?;
`, ms, ms, deviceID); err != nil {
			return fmt.Errorf("MarkSeen: %w", err)
		}
		return nil
	})
}
