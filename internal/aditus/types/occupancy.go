package types

import "time"

// OccupancySnapshot is a point-in-time view of a zone's live headcount.
// PeakCount/PeakAt reset once per business day.
type OccupancySnapshot struct {
	ZoneID      string     `json:"zone_id"`
	Count       int        `json:"count"`
	PeakCount   int        `json:"peak_count"`
	PeakAt      *time.Time `json:"peak_at,omitempty"`
	LastEntryAt *time.Time `json:"last_entry_at,omitempty"`
	LastExitAt  *time.Time `json:"last_exit_at,omitempty"`
}

// MemberLocation records the zone a member is currently in. It is
// overwritten on every granted entry; an exit from the recorded zone
// clears it, exits elsewhere leave it untouched.
type MemberLocation struct {
	MemberID  string    `json:"member_id"`
	ZoneID    string    `json:"zone_id"`
	EnteredAt time.Time `json:"entered_at"`
}
