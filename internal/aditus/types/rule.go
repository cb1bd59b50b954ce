package types

import "time"

type AccessType string

const (
	AccessAllow AccessType = "ALLOW"
	AccessDeny  AccessType = "DENY"
)

// Rule specificity levels, most targeted first. A rule's specificity is
// the most targeted scope field it populates.
const (
	SpecificityNone = iota
	SpecificityZone
	SpecificityPlan
	SpecificityMember
)

// TimeRule is a scoped, time-windowed access policy. Nil scope fields
// mean "any"; a nil DayOfWeek means every day. StartMinute/EndMinute are
// minutes since midnight, inclusive on both bounds.
type TimeRule struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	ZoneID      *string    `json:"zone_id,omitempty"`
	PlanID      *string    `json:"plan_id,omitempty"`
	MemberID    *string    `json:"member_id,omitempty"`
	DayOfWeek   *int       `json:"day_of_week,omitempty"` // 0=Sunday … 6=Saturday
	StartMinute int        `json:"start_minute"`
	EndMinute   int        `json:"end_minute"`
	Access      AccessType `json:"access"`
	Priority    int        `json:"priority"`
	Active      bool       `json:"active"`
	ValidFrom   *time.Time `json:"valid_from,omitempty"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
}

// Specificity returns the rule's scope level: member-scoped rules outrank
// plan-scoped, which outrank zone-scoped, which outrank unscoped.
func (r TimeRule) Specificity() int {
	switch {
	case r.MemberID != nil:
		return SpecificityMember
	case r.PlanID != nil:
		return SpecificityPlan
	case r.ZoneID != nil:
		return SpecificityZone
	default:
		return SpecificityNone
	}
}

// AppliesTo reports whether the rule governs the given presentation:
// every populated scope field must match, and the instant must fall
// inside the validity window, day-of-week, and time-of-day window.
func (r TimeRule) AppliesTo(zoneID, planID, memberID string, at time.Time) bool {
	if !r.Active {
		return false
	}
	if r.ZoneID != nil && *r.ZoneID != zoneID {
		return false
	}
	if r.PlanID != nil && *r.PlanID != planID {
		return false
	}
	if r.MemberID != nil && *r.MemberID != memberID {
		return false
	}
	if r.ValidFrom != nil && at.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && at.After(*r.ValidUntil) {
		return false
	}
	if r.DayOfWeek != nil && int(at.Weekday()) != *r.DayOfWeek {
		return false
	}
	minute := at.Hour()*60 + at.Minute()
	return minute >= r.StartMinute && minute <= r.EndMinute
}
