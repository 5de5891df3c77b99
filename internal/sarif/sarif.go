// Package sarif exports observations as SARIF 2.1.0 reports.
package sarif

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/scan-io-git/triage/pkg/observation"
)

const (
	toolName = "triage"
	toolURI  = "https://github.com/scan-io-git/triage"
)

// WriteReport writes the current state of observations as a SARIF 2.1.0 report with one
// run. Observations sharing parser and title share a rule.
func WriteReport(w io.Writer, observations []*observation.Observation) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(toolName, toolURI)
	for _, o := range observations {
		rule := run.AddRule(ruleID(o)).
			WithShortDescription(sarif.NewMultiformatMessageString(o.Title)).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{
				Level: toSarifLevel(o.ParserSeverity),
			})

		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(message(o))).
			WithLevel(toSarifLevel(o.CurrentSeverity))
		if o.OriginSourceFile != "" {
			region := sarif.NewRegion()
			if o.OriginSourceLineStart != nil {
				region.WithStartLine(*o.OriginSourceLineStart)
			}
			if o.OriginSourceLineEnd != nil {
				region.WithEndLine(*o.OriginSourceLineEnd)
			}
			result.WithLocations([]*sarif.Location{
				sarif.NewLocation().WithPhysicalLocation(
					sarif.NewPhysicalLocation().
						WithArtifactLocation(sarif.NewArtifactLocation().WithUri(o.OriginSourceFile)).
						WithRegion(region),
				),
			})
		}
		result.Properties = properties(o)
		run.AddResult(result)
	}
	report.AddRun(run)

	return report.PrettyWrite(w)
}

func ruleID(o *observation.Observation) string {
	if o.VulnerabilityID != "" {
		return o.VulnerabilityID
	}
	return o.Parser + "/" + o.Title
}

func message(o *observation.Observation) string {
	if o.Description != "" {
		return o.Description
	}
	return o.Title
}

func properties(o *observation.Observation) sarif.Properties {
	props := sarif.Properties{
		"product_id":    o.ProductID,
		"severity":      o.CurrentSeverity,
		"status":        o.CurrentStatus,
		"identity_hash": o.IdentityHash,
	}
	if o.CurrentPriority != nil {
		props["priority"] = *o.CurrentPriority
	}
	if o.CurrentVEXJustification != "" {
		props["vex_justification"] = o.CurrentVEXJustification
	}
	if o.RiskAcceptanceExpiryDate != nil {
		props["risk_acceptance_expiry_date"] = o.RiskAcceptanceExpiryDate.Format("2006-01-02")
	}
	if o.FieldsRule != nil {
		props["rule"] = o.FieldsRule.Name
	}
	if o.PolicyRule != nil {
		props["policy_rule"] = o.PolicyRule.Name
	}
	return props
}

func toSarifLevel(severity string) string {
	switch severity {
	case observation.SeverityCritical, observation.SeverityHigh:
		return "error"
	case observation.SeverityMedium:
		return "warning"
	case observation.SeverityLow, observation.SeverityUnknown:
		return "note"
	default:
		return "none"
	}
}
