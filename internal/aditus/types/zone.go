package types

type ZoneType string

const (
	ZoneGymFloor   ZoneType = "GYM_FLOOR"
	ZoneLockerRoom ZoneType = "LOCKER_ROOM"
	ZonePool       ZoneType = "POOL"
	ZoneStudio     ZoneType = "STUDIO"
	ZoneSpa        ZoneType = "SPA"
	ZoneRestricted ZoneType = "RESTRICTED"
	ZoneLobby      ZoneType = "LOBBY"
	ZoneCafe       ZoneType = "CAFE"
	ZoneKidsArea   ZoneType = "KIDS_AREA"
)

type Gender string

const (
	GenderFemale Gender = "FEMALE"
	GenderMale   Gender = "MALE"
	GenderOther  Gender = "OTHER"
)

type Zone struct {
	ID                string   `json:"id"`
	TenantID          string   `json:"tenant_id"`
	Name              string   `json:"name"`
	Type              ZoneType `json:"type"`
	MaxOccupancy      *int     `json:"max_occupancy,omitempty"`
	GenderRestriction *Gender  `json:"gender_restriction,omitempty"`
	RequiredPlanIDs   []string `json:"required_plan_ids,omitempty"`
}

// RequiresPlan reports whether the zone limits entry to specific plans.
func (z Zone) RequiresPlan() bool { return len(z.RequiredPlanIDs) > 0 }

// PlanAllowed reports whether planID satisfies the zone's plan
// restriction. Zones without a restriction admit every plan.
func (z Zone) PlanAllowed(planID string) bool {
	if !z.RequiresPlan() {
		return true
	}
	for _, p := range z.RequiredPlanIDs {
		if p == planID {
			return true
		}
	}
	return false
}

type DeviceStatus string

const (
	DeviceActive      DeviceStatus = "ACTIVE"
	DeviceMaintenance DeviceStatus = "MAINTENANCE"
	DeviceOffline     DeviceStatus = "OFFLINE"
)

type Device struct {
	ID       string       `json:"id"`
	TenantID string       `json:"tenant_id"`
	ZoneID   string       `json:"zone_id"`
	Name     string       `json:"name,omitempty"`
	Status   DeviceStatus `json:"status"`
}

type Member struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Gender   Gender `json:"gender"`
	PlanID   string `json:"plan_id"`
	Active   bool   `json:"active"`
}
