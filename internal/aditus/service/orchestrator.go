package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aditus-access/aditus/server/internal/aditus/store"
	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

var (
	ErrInvalidEventID    = errors.New("event_id is required")
	ErrInvalidDeviceID   = errors.New("device_id is required")
	ErrInvalidCredential = errors.New("credential_payload is required")
)

// Orchestrator sequences one access event through resolution, policy,
// and capacity, and guarantees exactly one audit entry per decision.
// Denials are values, not errors; an error out of Decide means the
// request itself was malformed.
type Orchestrator struct {
	registry   *DeviceRegistry
	zones      store.ZoneStore
	resolver   *CredentialResolver
	membership MembershipService
	rules      *RuleEvaluator
	occupancy  *OccupancyManager
	audit      store.AccessLogStore
	dedup      *Deduper
	logger     zerolog.Logger
}

type OrchestratorDeps struct {
	Registry   *DeviceRegistry
	Zones      store.ZoneStore
	Resolver   *CredentialResolver
	Membership MembershipService
	Occupancy  *OccupancyManager
	Rules      *RuleEvaluator
	Audit      store.AccessLogStore
	Dedup      *Deduper
	Logger     zerolog.Logger
}

func NewOrchestrator(d OrchestratorDeps) *Orchestrator {
	return &Orchestrator{
		registry:   d.Registry,
		zones:      d.Zones,
		resolver:   d.Resolver,
		membership: d.Membership,
		rules:      d.Rules,
		occupancy:  d.Occupancy,
		audit:      d.Audit,
		dedup:      d.Dedup,
		logger:     d.Logger,
	}
}

// outcome carries everything the audit entry and the device response
// need for one decided event.
type outcome struct {
	event      types.AccessEvent
	device     types.Device
	resolution Resolution
	result     types.Result
	reason     types.DenialReason
	decidedAt  time.Time
}

// Decide runs one access event to a terminal GRANTED or DENIED. Every
// path writes exactly one audit entry before returning; duplicate event
// ids replay the original decision without re-running anything.
func (o *Orchestrator) Decide(ctx context.Context, event types.AccessEvent) (types.Decision, error) {
	now := time.Now().UTC()

	event.EventID = strings.TrimSpace(event.EventID)
	event.DeviceID = strings.TrimSpace(event.DeviceID)
	if event.EventID == "" {
		return types.Decision{}, ErrInvalidEventID
	}
	if event.DeviceID == "" {
		return types.Decision{}, ErrInvalidDeviceID
	}
	if strings.TrimSpace(event.CredentialPayload) == "" {
		return types.Decision{}, ErrInvalidCredential
	}

	// Claim the event id before any side effect. A concurrent duplicate
	// blocks here and replays the original decision.
	if prior, replayed := o.dedup.Begin(event.EventID, now); replayed {
		return prior, nil
	}

	// The presentation instant drives rule windows; a parseable device
	// clock wins, the server clock is the fallback.
	at := now
	if t := parseOptionalTimestamp(event.RequestedAt); t != nil {
		at = *t
	}

	oc := outcome{event: event, result: types.ResultDenied, decidedAt: now}

	device, found, err := o.registry.Get(ctx, event.DeviceID)
	if err != nil {
		o.escalate(ctx, "device lookup failed", err)
	}
	if err != nil || !found || device.Status != types.DeviceActive {
		oc.reason = types.ReasonMaintenanceMode
		oc.device = device
		return o.finish(ctx, oc), nil
	}
	oc.device = device
	_ = o.registry.NoteSeen(ctx, event.DeviceID)

	res, err := o.resolver.Resolve(ctx, event.CredentialPayload, event.FacilityCode, event.Method, at)
	if err != nil {
		// Fail closed: an unreachable credential store cannot vouch for
		// anyone.
		o.escalate(ctx, "credential resolution failed", err)
		res = unresolved(types.ReasonUnknownCredential)
	}
	oc.resolution = res
	if !res.Resolved {
		oc.reason = res.Reason
		return o.finish(ctx, oc), nil
	}

	active, err := o.membership.MembershipActive(ctx, res.MemberID)
	if err != nil && !errors.Is(err, ErrMemberNotFound) {
		o.escalate(ctx, "membership lookup failed", err)
	}
	if err != nil || !active {
		oc.reason = types.ReasonExpiredMembership
		return o.finish(ctx, oc), nil
	}

	zone, found, err := o.zones.GetZone(ctx, device.ZoneID)
	if err != nil {
		o.escalate(ctx, "zone lookup failed", err)
	}
	if err != nil || !found {
		oc.reason = types.ReasonMaintenanceMode
		return o.finish(ctx, oc), nil
	}

	if zone.GenderRestriction != nil {
		gender, err := o.membership.MemberGender(ctx, res.MemberID)
		if err != nil {
			o.escalate(ctx, "gender lookup failed", err)
		}
		if err != nil || gender != *zone.GenderRestriction {
			oc.reason = types.ReasonZoneRestricted
			return o.finish(ctx, oc), nil
		}
	}

	planID, err := o.membership.MemberPlan(ctx, res.MemberID)
	if err != nil {
		o.escalate(ctx, "plan lookup failed", err)
	}
	if err != nil || !zone.PlanAllowed(planID) {
		oc.reason = types.ReasonZoneRestricted
		return o.finish(ctx, oc), nil
	}

	verdict, err := o.rules.Evaluate(ctx, zone.ID, planID, res.MemberID, at)
	if err != nil {
		// Fail closed on an unreadable rule set.
		o.escalate(ctx, "rule evaluation failed", err)
		verdict = VerdictDeny
	}
	if verdict == VerdictDeny {
		oc.reason = types.ReasonTimeRestricted
		return o.finish(ctx, oc), nil
	}

	// Capacity is the last check: once admitted, nothing downstream can
	// fail the decision, so the atomic check-and-increment is also the
	// commit.
	if event.Direction == types.DirectionEntry {
		if !o.occupancy.TryEnter(zone, res.MemberID, now) {
			oc.reason = types.ReasonCapacityFull
			return o.finish(ctx, oc), nil
		}
	} else {
		o.occupancy.Exit(zone.ID, res.MemberID, now)
	}

	oc.result = types.ResultGranted
	return o.finish(ctx, oc), nil
}

// finish writes the single audit entry, caches the decision for
// duplicate suppression, and shapes the device response. An audit write
// failure never changes the decision already made; it is escalated
// out-of-band instead.
func (o *Orchestrator) finish(ctx context.Context, oc outcome) types.Decision {
	entry := types.AccessLogEntry{
		ID:         uuid.NewString(),
		TenantID:   oc.device.TenantID,
		DeviceID:   oc.event.DeviceID,
		ZoneID:     oc.device.ZoneID,
		Method:     oc.event.Method,
		Direction:  oc.event.Direction,
		Result:     oc.result,
		Confidence: oc.resolution.Confidence,
		OccurredAt: oc.decidedAt,
	}
	if oc.resolution.MemberID != "" {
		id := oc.resolution.MemberID
		entry.MemberID = &id
	}
	if oc.resolution.CredentialID != "" {
		id := oc.resolution.CredentialID
		entry.CredentialID = &id
	}

	decision := types.Decision{
		EventID:    oc.event.EventID,
		Result:     oc.result,
		MemberID:   oc.resolution.MemberID,
		ZoneID:     oc.device.ZoneID,
		ServerTime: oc.decidedAt.Format(time.RFC3339Nano),
	}
	if oc.result == types.ResultDenied {
		r := oc.reason
		entry.Reason = &r
		decision.Reason = &r
	}

	if err := o.audit.Append(ctx, entry); err != nil {
		o.escalate(ctx, "audit append failed", err)
	}

	o.dedup.Complete(oc.event.EventID, decision, oc.decidedAt)

	evt := o.logger.Info()
	if oc.result == types.ResultDenied {
		evt = evt.Str("reason", string(oc.reason))
	}
	evt.Str("event_id", oc.event.EventID).
		Str("device_id", oc.event.DeviceID).
		Str("zone_id", oc.device.ZoneID).
		Str("result", string(oc.result)).
		Msg("access decision")

	return decision
}

// escalate is the out-of-band alerting path for infrastructure
// failures: never retried inline, never allowed to block the turnstile.
func (o *Orchestrator) escalate(_ context.Context, msg string, err error) {
	o.logger.Error().Err(err).Str("alert", "access-engine").Msg(msg)
}

// parseOptionalTimestamp parses a device-reported RFC3339 timestamp,
// with or without fractional seconds. Returns nil if the string is
// empty or unparseable.
func parseOptionalTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	u := t.UTC()
	return &u
}
