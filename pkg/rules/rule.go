// Package rules applies field-match and policy-module rules to observations and
// previews candidate rules without side effects.
package rules

import (
	"context"
	"fmt"
	"slices"

	"github.com/scan-io-git/triage/pkg/observation"
	"github.com/scan-io-git/triage/pkg/policy"
)

// Type selects how a rule matches.
type Type string

const (
	TypeFields Type = "Fields"
	TypeRego   Type = "Rego"
)

// Approval states of a rule. Only approved rules of a product and general rules are
// applied; product group rules only need to be enabled.
const (
	ApprovalNeedsApproval = "Needs approval"
	ApprovalApproved      = "Approved"
	ApprovalAutoApproved  = "Auto approved"
	ApprovalRejected      = "Rejected"
)

// Rule is a policy unit owned by a product, a product group or nobody (a general rule).
type Rule struct {
	ID             int    `yaml:"id"`
	Name           string `yaml:"name"`
	Description    string `yaml:"description"`
	ProductID      *int   `yaml:"product_id,omitempty"`
	Type           Type   `yaml:"type"`
	Enabled        bool   `yaml:"enabled"`
	ApprovalStatus string `yaml:"approval_status"`

	Parser        string `yaml:"parser"`
	ScannerPrefix string `yaml:"scanner_prefix"`

	Title                             string `yaml:"title"`
	DescriptionObservation            string `yaml:"description_observation"`
	OriginComponentNameVersion        string `yaml:"origin_component_name_version"`
	OriginComponentPURL               string `yaml:"origin_component_purl"`
	OriginDockerImageNameTag          string `yaml:"origin_docker_image_name_tag"`
	OriginEndpointURL                 string `yaml:"origin_endpoint_url"`
	OriginServiceName                 string `yaml:"origin_service_name"`
	OriginSourceFile                  string `yaml:"origin_source_file"`
	OriginCloudQualifiedResource      string `yaml:"origin_cloud_qualified_resource"`
	OriginKubernetesQualifiedResource string `yaml:"origin_kubernetes_qualified_resource"`

	NewSeverity         string `yaml:"new_severity"`
	NewStatus           string `yaml:"new_status"`
	NewVEXJustification string `yaml:"new_vex_justification"`

	RegoModule string `yaml:"rego_module"`
}

// Scope returns ScopeProduct for rules owned by a product or product group.
func (r *Rule) Scope() observation.RuleScope {
	if r.ProductID != nil {
		return observation.ScopeProduct
	}
	return observation.ScopeGeneral
}

// Reference identifies the rule on an observation it changed.
func (r *Rule) Reference() *observation.RuleReference {
	return &observation.RuleReference{ID: r.ID, Name: r.Name, Scope: r.Scope()}
}

// Approved reports whether the rule passed the approval workflow.
func (r *Rule) Approved() bool {
	return r.ApprovalStatus == ApprovalApproved || r.ApprovalStatus == ApprovalAutoApproved
}

func (r *Rule) comment() string {
	if r.Description != "" {
		return r.Description
	}
	return fmt.Sprintf("Updated by %s rule %s", r.Scope(), r.Name)
}

var (
	validSeverities = []string{
		observation.SeverityCritical, observation.SeverityHigh, observation.SeverityMedium,
		observation.SeverityLow, observation.SeverityNone, observation.SeverityUnknown,
	}
	validStatuses = []string{
		observation.StatusOpen, observation.StatusResolved, observation.StatusDuplicate,
		observation.StatusFalsePositive, observation.StatusInReview, observation.StatusNotAffected,
		observation.StatusNotSecurity, observation.StatusRiskAccepted,
	}
	validVEXJustifications = []string{
		observation.VEXComponentNotPresent, observation.VEXVulnerableCodeNotPresent,
		observation.VEXVulnerableCodeNotInExecutePath, observation.VEXVulnerableCodeCannotBeControlledByAdversary,
		observation.VEXInlineMitigationsAlreadyExist,
	}
)

// ValidateRule checks a rule before it is saved, so a broken rule never reaches an
// Engine. Compile failures are returned wrapped in a *RuleValidationError.
func ValidateRule(ctx context.Context, r *Rule) error {
	if r == nil {
		return &RuleValidationError{Err: fmt.Errorf("rule is nil")}
	}
	invalid := func(err error) error {
		return &RuleValidationError{Rule: r.Name, Err: err}
	}

	if r.Name == "" {
		return invalid(fmt.Errorf("name is required"))
	}

	switch r.Type {
	case TypeFields:
		if r.RegoModule != "" {
			return invalid(fmt.Errorf("a fields rule cannot have a rego module"))
		}
		if r.NewSeverity == "" && r.NewStatus == "" && r.NewVEXJustification == "" {
			return invalid(fmt.Errorf("a fields rule needs a new severity, status or VEX justification"))
		}
		if err := oneOf("new severity", r.NewSeverity, validSeverities); err != nil {
			return invalid(err)
		}
		if err := oneOf("new status", r.NewStatus, validStatuses); err != nil {
			return invalid(err)
		}
		if err := oneOf("new VEX justification", r.NewVEXJustification, validVEXJustifications); err != nil {
			return invalid(err)
		}
		if _, err := compilePatterns(r); err != nil {
			return invalid(err)
		}
	case TypeRego:
		if r.RegoModule == "" {
			return invalid(fmt.Errorf("a rego rule needs a rego module"))
		}
		if hasFieldsBody(r) {
			return invalid(fmt.Errorf("a rego rule cannot have field patterns or new values"))
		}
		if _, err := policy.Compile(ctx, r.RegoModule); err != nil {
			return invalid(err)
		}
	default:
		return invalid(fmt.Errorf("unknown rule type %q", r.Type))
	}
	return nil
}

func hasFieldsBody(r *Rule) bool {
	if r.NewSeverity != "" || r.NewStatus != "" || r.NewVEXJustification != "" {
		return true
	}
	for _, f := range patternFields {
		if f.pattern(r) != "" {
			return true
		}
	}
	return false
}

func oneOf(name, value string, allowed []string) error {
	if value == "" || slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%s %q is not one of %v", name, value, allowed)
}
