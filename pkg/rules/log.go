package rules

import (
	"time"

	"github.com/google/uuid"

	"github.com/scan-io-git/triage/pkg/observation"
)

// newLog records the current values that differ from prior. Unchanged values stay empty.
func newLog(r *Rule, o, prior *observation.Observation, user string, now time.Time) *observation.Log {
	l := &observation.Log{
		ID:               uuid.NewString(),
		ObservationID:    o.ID,
		ProductID:        o.ProductID,
		Rule:             r.Reference(),
		Comment:          r.comment(),
		AssessmentStatus: observation.AssessmentStatusAutoApproved,
		User:             user,
		CreatedAt:        now,
	}
	if prior.CurrentSeverity != o.CurrentSeverity {
		l.Severity = o.CurrentSeverity
	}
	if prior.CurrentStatus != o.CurrentStatus {
		l.Status = o.CurrentStatus
	}
	if prior.CurrentVEXJustification != o.CurrentVEXJustification {
		l.VEXJustification = o.CurrentVEXJustification
	}
	if !sameTime(prior.RiskAcceptanceExpiryDate, o.RiskAcceptanceExpiryDate) && o.RiskAcceptanceExpiryDate != nil {
		date := *o.RiskAcceptanceExpiryDate
		l.RiskAcceptanceExpiryDate = &date
	}
	return l
}

// stateChanged reports whether a rule changed anything that is logged or pushed.
func stateChanged(prior, o *observation.Observation) bool {
	return !samePtr(prior.RulePriority, o.RulePriority) ||
		!samePtr(prior.RuleRegoPriority, o.RuleRegoPriority) ||
		!samePtr(prior.CurrentPriority, o.CurrentPriority) ||
		prior.RuleStatus != o.RuleStatus ||
		prior.RuleRegoStatus != o.RuleRegoStatus ||
		prior.CurrentStatus != o.CurrentStatus ||
		prior.RuleSeverity != o.RuleSeverity ||
		prior.RuleRegoSeverity != o.RuleRegoSeverity ||
		prior.CurrentSeverity != o.CurrentSeverity ||
		prior.RuleVEXJustification != o.RuleVEXJustification ||
		prior.RuleRegoVEXJustification != o.RuleRegoVEXJustification ||
		prior.CurrentVEXJustification != o.CurrentVEXJustification ||
		!sameTime(prior.RiskAcceptanceExpiryDate, o.RiskAcceptanceExpiryDate) ||
		!prior.FieldsRule.Equal(o.FieldsRule) ||
		!prior.PolicyRule.Equal(o.PolicyRule)
}

func samePtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
