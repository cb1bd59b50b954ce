package types

import "time"

// AccessLogEntry is one immutable audit fact. Exactly one entry is
// written per decision; entries are never mutated or deleted by the
// engine (retention runs as a separate pruner).
type AccessLogEntry struct {
	ID           string        `json:"id"`
	TenantID     string        `json:"tenant_id"`
	DeviceID     string        `json:"device_id"`
	ZoneID       string        `json:"zone_id"`
	MemberID     *string       `json:"member_id,omitempty"` // nil when the credential never resolved
	Method       AccessMethod  `json:"method"`
	CredentialID *string       `json:"credential_id,omitempty"`
	Direction    Direction     `json:"direction"`
	Result       Result        `json:"result"`
	Reason       *DenialReason `json:"reason,omitempty"`
	Confidence   *float64      `json:"confidence,omitempty"`
	OccurredAt   time.Time     `json:"occurred_at"`
}

// AccessLogFilter narrows audit queries. Zero-valued fields are ignored.
type AccessLogFilter struct {
	TenantID string
	DeviceID string
	ZoneID   string
	MemberID string
	Result   Result
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}
