package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

type RuleStore struct {
	db *sql.DB
}

func NewRuleStore(db *sql.DB) *RuleStore {
	return &RuleStore{db: db}
}

// Candidates narrows by scope match in SQL; day/time/date window
// containment stays in the evaluator where it is testable against a
// fixed clock.
func (s *RuleStore) Candidates(ctx context.Context, zoneID, planID, memberID string) ([]types.TimeRule, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT rule_id, tenant_id, zone_id, plan_id, member_id, day_of_week,
       start_minute, end_minute, access_type, priority, active,
       valid_from_ms, valid_until_ms
FROM time_rules
WHERE active = 1
  AND (zone_id IS NULL OR zone_id = ?)
  AND (plan_id IS NULL OR plan_id = ?)
  AND (member_id IS NULL OR member_id = ?);
`, zoneID, planID, memberID)
	if err != nil {
		return nil, fmt.Errorf("Candidates: %w", err)
	}
	defer rows.Close()

	var out []types.TimeRule
	for rows.Next() {
		var (
			r          types.TimeRule
			zone       sql.NullString
			plan       sql.NullString
			member     sql.NullString
			day        sql.NullInt64
			accessType string
			active     int
			fromMs     sql.NullInt64
			untilMs    sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.TenantID, &zone, &plan, &member, &day,
			&r.StartMinute, &r.EndMinute, &accessType, &r.Priority, &active,
			&fromMs, &untilMs); err != nil {
			return nil, fmt.Errorf("Candidates scan: %w", err)
		}
		if zone.Valid {
			v := zone.String
			r.ZoneID = &v
		}
		if plan.Valid {
			v := plan.String
			r.PlanID = &v
		}
		if member.Valid {
			v := member.String
			r.MemberID = &v
		}
		if day.Valid {
			v := int(day.Int64)
			r.DayOfWeek = &v
		}
		if fromMs.Valid {
			t := time.UnixMilli(fromMs.Int64).UTC()
			r.ValidFrom = &t
		}
		if untilMs.Valid {
			t := time.UnixMilli(untilMs.Int64).UTC()
			r.ValidUntil = &t
		}
		r.Access = types.AccessType(accessType)
		r.Active = active == 1
		out = append(out, r)
	}
	return out, rows.Err()
}
