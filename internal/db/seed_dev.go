package db

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev populates a local database with a small facility: a tenant,
// a handful of zones, members with one credential each, and a couple of
// time rules. Idempotent — safe to run on every dev startup.
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	zones := []struct {
		id, name, ztype string
		maxOccupancy    any
		gender          any
		requiredPlans   string
	}{
		{"lobby", "Lobby", "LOBBY", nil, nil, ""},
		{"gym-floor", "Gym Floor", "GYM_FLOOR", 120, nil, ""},
		{"pool", "Pool", "POOL", 40, nil, ""},
		{"spa", "Spa", "SPA", 12, "FEMALE", "plan-premium"},
		{"locker-m", "Locker Room (M)", "LOCKER_ROOM", nil, "MALE", ""},
		{"locker-f", "Locker Room (F)", "LOCKER_ROOM", nil, "FEMALE", ""},
	}
	for _, z := range zones {
		if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO zones(zone_id, tenant_id, name, zone_type, max_occupancy,
  gender_restriction, required_plan_ids, created_at_ms, updated_at_ms)
VALUES (?, 'tenant-dev', ?, ?, ?, ?, ?, ?, ?);`,
			z.id, z.name, z.ztype, z.maxOccupancy, z.gender, z.requiredPlans, now, now); err != nil {
			return fmt.Errorf("seed zone %s: %w", z.id, err)
		}
	}

	devices := []struct{ id, zone, name string }{
		{"turnstile-01", "lobby", "Main Turnstile"},
		{"turnstile-02", "lobby", "Side Turnstile"},
		{"gate-gym", "gym-floor", "Gym Gate"},
		{"gate-pool", "pool", "Pool Gate"},
		{"gate-spa", "spa", "Spa Door"},
	}
	for _, d := range devices {
		if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO devices(device_id, tenant_id, zone_id, name, status, created_at_ms, updated_at_ms)
VALUES (?, 'tenant-dev', ?, ?, 'ACTIVE', ?, ?);`,
			d.id, d.zone, d.name, now, now); err != nil {
			return fmt.Errorf("seed device %s: %w", d.id, err)
		}
	}

	members := []struct{ id, name, gender, plan string }{
		{"mem-alice", "Alice Doe", "FEMALE", "plan-premium"},
		{"mem-bob", "Bob Roe", "MALE", "plan-basic"},
	}
	for _, m := range members {
		if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO members(member_id, tenant_id, name, gender, plan_id, active, created_at_ms, updated_at_ms)
VALUES (?, 'tenant-dev', ?, ?, ?, 1, ?, ?);`,
			m.id, m.name, m.gender, m.plan, now, now); err != nil {
			return fmt.Errorf("seed member %s: %w", m.id, err)
		}
	}

	cards := []struct{ id, member, number string }{
		{"cred-alice-card", "mem-alice", "10001"},
		{"cred-bob-card", "mem-bob", "10002"},
	}
	for _, c := range cards {
		if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO credentials(credential_id, member_id, kind, status, card_number,
  facility_code, card_type, created_at_ms, updated_at_ms)
VALUES (?, ?, 'CARD', 'ACTIVE', ?, '77', 'MIFARE', ?, ?);`,
			c.id, c.member, c.number, now, now); err != nil {
			return fmt.Errorf("seed card %s: %w", c.id, err)
		}
	}

	pinHash := sha256.Sum256([]byte("4242"))
	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO credentials(credential_id, member_id, kind, status, secret_hash, created_at_ms, updated_at_ms)
VALUES ('cred-bob-pin', 'mem-bob', 'PIN', 'ACTIVE', ?, ?, ?);`,
		pinHash[:], now, now); err != nil {
		return fmt.Errorf("seed pin: %w", err)
	}

	// Pool closes overnight; Alice keeps spa access on Fridays.
	rules := []struct {
		id           string
		zone, member sql.NullString
		day          sql.NullInt64
		start, end   int
		access       string
		priority     int
	}{
		{"rule-pool-hours", nullStr("pool"), sql.NullString{}, sql.NullInt64{}, 0, 359, "DENY", 10},
		{"rule-spa-friday", nullStr("spa"), nullStr("mem-alice"), sql.NullInt64{Int64: 5, Valid: true}, 0, 1439, "ALLOW", 1},
	}
	for _, r := range rules {
		if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO time_rules(rule_id, tenant_id, zone_id, member_id, day_of_week,
  start_minute, end_minute, access_type, priority, active, created_at_ms, updated_at_ms)
VALUES (?, 'tenant-dev', ?, ?, ?, ?, ?, ?, ?, 1, ?, ?);`,
			r.id, r.zone, r.member, r.day, r.start, r.end, r.access, r.priority, now, now); err != nil {
			return fmt.Errorf("seed rule %s: %w", r.id, err)
		}
	}

	return nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}
