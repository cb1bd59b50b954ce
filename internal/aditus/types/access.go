package types

type AccessMethod string

const (
	MethodRFID      AccessMethod = "RFID"
	MethodBiometric AccessMethod = "BIOMETRIC"
	MethodQRCode    AccessMethod = "QR_CODE"
	MethodPIN       AccessMethod = "PIN"
	MethodManual    AccessMethod = "MANUAL"
)

type Direction string

const (
	DirectionEntry Direction = "ENTRY"
	DirectionExit  Direction = "EXIT"
)

type Result string

const (
	ResultGranted Result = "GRANTED"
	ResultDenied  Result = "DENIED"
)

type DenialReason string

const (
	ReasonUnknownCredential DenialReason = "UNKNOWN_CREDENTIAL"
	ReasonSuspendedCard     DenialReason = "SUSPENDED_CARD"
	ReasonInvalidCard       DenialReason = "INVALID_CARD"
	ReasonExpiredMembership DenialReason = "EXPIRED_MEMBERSHIP"
	ReasonBiometricMismatch DenialReason = "BIOMETRIC_MISMATCH"
	ReasonNeedsReenrollment DenialReason = "NEEDS_REENROLLMENT"
	ReasonZoneRestricted    DenialReason = "ZONE_RESTRICTED"
	ReasonTimeRestricted    DenialReason = "TIME_RESTRICTED"
	ReasonCapacityFull      DenialReason = "CAPACITY_FULL"
	ReasonMaintenanceMode   DenialReason = "MAINTENANCE_MODE"
)

// AccessEvent is a single credential presentation reported by a device.
// EventID is assigned by the device and used for duplicate suppression;
// RequestedAt is the optional device clock reading (RFC3339).
type AccessEvent struct {
	EventID           string       `json:"event_id" validate:"required"`
	DeviceID          string       `json:"device_id" validate:"required"`
	CredentialPayload string       `json:"credential_payload" validate:"required"`
	FacilityCode      string       `json:"facility_code,omitempty"`
	Method            AccessMethod `json:"method" validate:"required,oneof=RFID BIOMETRIC QR_CODE PIN MANUAL"`
	Direction         Direction    `json:"direction" validate:"required,oneof=ENTRY EXIT"`
	RequestedAt       string       `json:"requested_at,omitempty"`
}

type Decision struct {
	EventID    string        `json:"event_id"`
	Result     Result        `json:"result"`
	Reason     *DenialReason `json:"reason,omitempty"`
	MemberID   string        `json:"member_id,omitempty"`
	ZoneID     string        `json:"zone_id,omitempty"`
	ServerTime string        `json:"server_time"`
}
