package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aditus-access/aditus/server/internal/aditus/store"
	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

// Verdict is the rule evaluator's output. NO_RULE means no active rule
// governs the presentation, which leaves the zone accessible by default.
type Verdict string

const (
	VerdictAllow  Verdict = "ALLOW"
	VerdictDeny   Verdict = "DENY"
	VerdictNoRule Verdict = "NO_RULE"
)

// RuleEvaluator resolves conflicts between simultaneously applicable
// time rules. Specificity wins over priority so a member-specific
// exception never requires renumbering zone-wide rules, and a residual
// conflict resolves to DENY.
type RuleEvaluator struct {
	rules store.RuleStore
}

func NewRuleEvaluator(rs store.RuleStore) *RuleEvaluator {
	return &RuleEvaluator{rules: rs}
}

func (e *RuleEvaluator) Evaluate(ctx context.Context, zoneID, planID, memberID string, at time.Time) (Verdict, error) {
	candidates, err := e.rules.Candidates(ctx, zoneID, planID, memberID)
	if err != nil {
		return VerdictNoRule, fmt.Errorf("rule candidates: %w", err)
	}

	var applicable []types.TimeRule
	for _, r := range candidates {
		if r.AppliesTo(zoneID, planID, memberID, at) {
			applicable = append(applicable, r)
		}
	}
	if len(applicable) == 0 {
		return VerdictNoRule, nil
	}

	// Only the most specific level present participates.
	top := types.SpecificityNone
	for _, r := range applicable {
		if s := r.Specificity(); s > top {
			top = s
		}
	}

	// Among those, only the highest priority value participates.
	first := true
	maxPriority := 0
	for _, r := range applicable {
		if r.Specificity() != top {
			continue
		}
		if first || r.Priority > maxPriority {
			maxPriority = r.Priority
			first = false
		}
	}

	// A DENY among the surviving rules wins every tie.
	verdict := VerdictAllow
	for _, r := range applicable {
		if r.Specificity() != top || r.Priority != maxPriority {
			continue
		}
		if r.Access == types.AccessDeny {
			verdict = VerdictDeny
		}
	}
	return verdict, nil
}
