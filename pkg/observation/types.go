package observation

import "time"

// Severities as stored in every severity layer.
const (
	SeverityCritical = "Critical"
	SeverityHigh     = "High"
	SeverityMedium   = "Medium"
	SeverityLow      = "Low"
	SeverityNone     = "None"
	SeverityUnknown  = "Unknown"
)

// NumericalSeverities orders severities for sorting, most severe first.
var NumericalSeverities = map[string]int{
	SeverityCritical: 1,
	SeverityHigh:     2,
	SeverityMedium:   3,
	SeverityLow:      4,
	SeverityNone:     5,
	SeverityUnknown:  6,
}

// Statuses as stored in every status layer.
const (
	StatusOpen          = "Open"
	StatusResolved      = "Resolved"
	StatusDuplicate     = "Duplicate"
	StatusFalsePositive = "False positive"
	StatusInReview      = "In review"
	StatusNotAffected   = "Not affected"
	StatusNotSecurity   = "Not security"
	StatusRiskAccepted  = "Risk accepted"
)

// VEX justifications, see https://www.cisa.gov/resources-tools/resources/minimum-requirements-vulnerability-exploitability-exchange-vex
const (
	VEXComponentNotPresent                         = "component_not_present"
	VEXVulnerableCodeNotPresent                    = "vulnerable_code_not_present"
	VEXVulnerableCodeNotInExecutePath              = "vulnerable_code_not_in_execute_path"
	VEXVulnerableCodeCannotBeControlledByAdversary = "vulnerable_code_cannot_be_controlled_by_adversary"
	VEXInlineMitigationsAlreadyExist               = "inline_mitigations_already_exist"
)

// RuleScope tells whether an applied rule is owned by a product (or product group) or is a general rule.
type RuleScope string

const (
	ScopeGeneral RuleScope = "general"
	ScopeProduct RuleScope = "product"
)

// RuleReference points at the rule that last set the rule_* or rule_rego_* layer of an observation.
type RuleReference struct {
	ID    int       `json:"id" yaml:"id"`
	Name  string    `json:"name" yaml:"name"`
	Scope RuleScope `json:"scope" yaml:"scope"`
}

// Equal reports whether both references point at the same rule. Two nil references are equal.
func (r *RuleReference) Equal(other *RuleReference) bool {
	if r == nil || other == nil {
		return r == nil && other == nil
	}
	return r.ID == other.ID && r.Scope == other.Scope
}

// Observation is a single security finding of a product.
//
// Severity, status, VEX justification and priority are layered: parser_*, rule_*,
// rule_rego_*, vex_* and assessment_* hold the inputs, current_* the resolved value.
// The json tags define the document handed to policy modules.
type Observation struct {
	ID        int    `json:"id" yaml:"id"`
	ProductID int    `json:"product_id" yaml:"product_id"`
	BranchID  *int   `json:"branch_id,omitempty" yaml:"branch_id,omitempty"`
	ServiceID *int   `json:"service_id,omitempty" yaml:"service_id,omitempty"`
	Parser    string `json:"parser" yaml:"parser"`
	Scanner   string `json:"scanner" yaml:"scanner"`

	Title          string `json:"title" yaml:"title"`
	Description    string `json:"description" yaml:"description"`
	Recommendation string `json:"recommendation" yaml:"recommendation"`

	CurrentSeverity    string `json:"current_severity" yaml:"current_severity"`
	NumericalSeverity  int    `json:"numerical_severity" yaml:"numerical_severity"`
	ParserSeverity     string `json:"parser_severity" yaml:"parser_severity"`
	RuleSeverity       string `json:"rule_severity" yaml:"rule_severity"`
	RuleRegoSeverity   string `json:"rule_rego_severity" yaml:"rule_rego_severity"`
	AssessmentSeverity string `json:"assessment_severity" yaml:"assessment_severity"`

	CurrentStatus    string `json:"current_status" yaml:"current_status"`
	ParserStatus     string `json:"parser_status" yaml:"parser_status"`
	VEXStatus        string `json:"vex_status" yaml:"vex_status"`
	RuleStatus       string `json:"rule_status" yaml:"rule_status"`
	RuleRegoStatus   string `json:"rule_rego_status" yaml:"rule_rego_status"`
	AssessmentStatus string `json:"assessment_status" yaml:"assessment_status"`

	CurrentVEXJustification    string `json:"current_vex_justification" yaml:"current_vex_justification"`
	ParserVEXJustification     string `json:"parser_vex_justification" yaml:"parser_vex_justification"`
	VEXVEXJustification        string `json:"vex_vex_justification" yaml:"vex_vex_justification"`
	RuleVEXJustification       string `json:"rule_vex_justification" yaml:"rule_vex_justification"`
	RuleRegoVEXJustification   string `json:"rule_rego_vex_justification" yaml:"rule_rego_vex_justification"`
	AssessmentVEXJustification string `json:"assessment_vex_justification" yaml:"assessment_vex_justification"`

	CurrentPriority    *int `json:"current_priority,omitempty" yaml:"current_priority,omitempty"`
	RulePriority       *int `json:"rule_priority,omitempty" yaml:"rule_priority,omitempty"`
	RuleRegoPriority   *int `json:"rule_rego_priority,omitempty" yaml:"rule_rego_priority,omitempty"`
	AssessmentPriority *int `json:"assessment_priority,omitempty" yaml:"assessment_priority,omitempty"`

	RiskAcceptanceExpiryDate *time.Time `json:"risk_acceptance_expiry_date,omitempty" yaml:"risk_acceptance_expiry_date,omitempty"`

	VulnerabilityID        string   `json:"vulnerability_id" yaml:"vulnerability_id"`
	VulnerabilityIDAliases string   `json:"vulnerability_id_aliases" yaml:"vulnerability_id_aliases"`
	CVSS3Vector            string   `json:"cvss3_vector" yaml:"cvss3_vector"`
	CVSS3Score             *float64 `json:"cvss3_score,omitempty" yaml:"cvss3_score,omitempty"`
	CVSS4Vector            string   `json:"cvss4_vector" yaml:"cvss4_vector"`
	CVSS4Score             *float64 `json:"cvss4_score,omitempty" yaml:"cvss4_score,omitempty"`
	CVEFoundIn             string   `json:"cve_found_in" yaml:"cve_found_in"`

	OriginComponentName             string `json:"origin_component_name" yaml:"origin_component_name"`
	OriginComponentVersion          string `json:"origin_component_version" yaml:"origin_component_version"`
	OriginComponentNameVersion      string `json:"origin_component_name_version" yaml:"origin_component_name_version"`
	OriginComponentPURL             string `json:"origin_component_purl" yaml:"origin_component_purl"`
	OriginComponentPURLType         string `json:"origin_component_purl_type" yaml:"origin_component_purl_type"`
	OriginComponentCPE              string `json:"origin_component_cpe" yaml:"origin_component_cpe"`
	OriginComponentCycloneDXBOMLink string `json:"origin_component_cyclonedx_bom_link" yaml:"origin_component_cyclonedx_bom_link"`
	OriginComponentDependencies     string `json:"origin_component_dependencies" yaml:"origin_component_dependencies"`

	OriginDockerImageName         string `json:"origin_docker_image_name" yaml:"origin_docker_image_name"`
	OriginDockerImageTag          string `json:"origin_docker_image_tag" yaml:"origin_docker_image_tag"`
	OriginDockerImageNameTag      string `json:"origin_docker_image_name_tag" yaml:"origin_docker_image_name_tag"`
	OriginDockerImageNameTagShort string `json:"origin_docker_image_name_tag_short" yaml:"origin_docker_image_name_tag_short"`
	OriginDockerImageDigest       string `json:"origin_docker_image_digest" yaml:"origin_docker_image_digest"`

	OriginEndpointURL      string `json:"origin_endpoint_url" yaml:"origin_endpoint_url"`
	OriginEndpointScheme   string `json:"origin_endpoint_scheme" yaml:"origin_endpoint_scheme"`
	OriginEndpointHostname string `json:"origin_endpoint_hostname" yaml:"origin_endpoint_hostname"`
	OriginEndpointPort     *int   `json:"origin_endpoint_port,omitempty" yaml:"origin_endpoint_port,omitempty"`
	OriginEndpointPath     string `json:"origin_endpoint_path" yaml:"origin_endpoint_path"`
	OriginEndpointParams   string `json:"origin_endpoint_params" yaml:"origin_endpoint_params"`
	OriginEndpointQuery    string `json:"origin_endpoint_query" yaml:"origin_endpoint_query"`
	OriginEndpointFragment string `json:"origin_endpoint_fragment" yaml:"origin_endpoint_fragment"`

	OriginServiceName string `json:"origin_service_name" yaml:"origin_service_name"`

	OriginSourceFile      string `json:"origin_source_file" yaml:"origin_source_file"`
	OriginSourceLineStart *int   `json:"origin_source_line_start,omitempty" yaml:"origin_source_line_start,omitempty"`
	OriginSourceLineEnd   *int   `json:"origin_source_line_end,omitempty" yaml:"origin_source_line_end,omitempty"`
	OriginSourceFileLink  string `json:"origin_source_file_link" yaml:"origin_source_file_link"`

	OriginCloudProvider                   string `json:"origin_cloud_provider" yaml:"origin_cloud_provider"`
	OriginCloudAccountSubscriptionProject string `json:"origin_cloud_account_subscription_project" yaml:"origin_cloud_account_subscription_project"`
	OriginCloudResource                   string `json:"origin_cloud_resource" yaml:"origin_cloud_resource"`
	OriginCloudResourceType               string `json:"origin_cloud_resource_type" yaml:"origin_cloud_resource_type"`
	OriginCloudQualifiedResource          string `json:"origin_cloud_qualified_resource" yaml:"origin_cloud_qualified_resource"`

	OriginKubernetesCluster           string `json:"origin_kubernetes_cluster" yaml:"origin_kubernetes_cluster"`
	OriginKubernetesNamespace         string `json:"origin_kubernetes_namespace" yaml:"origin_kubernetes_namespace"`
	OriginKubernetesResourceType      string `json:"origin_kubernetes_resource_type" yaml:"origin_kubernetes_resource_type"`
	OriginKubernetesResourceName      string `json:"origin_kubernetes_resource_name" yaml:"origin_kubernetes_resource_name"`
	OriginKubernetesQualifiedResource string `json:"origin_kubernetes_qualified_resource" yaml:"origin_kubernetes_qualified_resource"`

	ScannerObservationID          string `json:"scanner_observation_id" yaml:"scanner_observation_id"`
	APIConfigurationName          string `json:"api_configuration_name" yaml:"api_configuration_name"`
	UploadFilename                string `json:"upload_filename" yaml:"upload_filename"`
	IssueTrackerIssueID           string `json:"issue_tracker_issue_id" yaml:"issue_tracker_issue_id"`
	IssueTrackerJiraInitialStatus string `json:"issue_tracker_jira_initial_status" yaml:"issue_tracker_jira_initial_status"`

	IdentityHash      string `json:"identity_hash" yaml:"identity_hash"`
	FixAvailable      *bool  `json:"fix_available,omitempty" yaml:"fix_available,omitempty"`
	UpdateImpactScore *int   `json:"update_impact_score,omitempty" yaml:"update_impact_score,omitempty"`

	FieldsRule *RuleReference `json:"-" yaml:"fields_rule,omitempty"`
	PolicyRule *RuleReference `json:"-" yaml:"policy_rule,omitempty"`
}

// Clone returns a copy that shares no pointers with o.
func (o *Observation) Clone() *Observation {
	c := *o
	c.BranchID = clonePtr(o.BranchID)
	c.ServiceID = clonePtr(o.ServiceID)
	c.CurrentPriority = clonePtr(o.CurrentPriority)
	c.RulePriority = clonePtr(o.RulePriority)
	c.RuleRegoPriority = clonePtr(o.RuleRegoPriority)
	c.AssessmentPriority = clonePtr(o.AssessmentPriority)
	c.RiskAcceptanceExpiryDate = clonePtr(o.RiskAcceptanceExpiryDate)
	c.CVSS3Score = clonePtr(o.CVSS3Score)
	c.CVSS4Score = clonePtr(o.CVSS4Score)
	c.OriginEndpointPort = clonePtr(o.OriginEndpointPort)
	c.OriginSourceLineStart = clonePtr(o.OriginSourceLineStart)
	c.OriginSourceLineEnd = clonePtr(o.OriginSourceLineEnd)
	c.FixAvailable = clonePtr(o.FixAvailable)
	c.UpdateImpactScore = clonePtr(o.UpdateImpactScore)
	c.FieldsRule = clonePtr(o.FieldsRule)
	c.PolicyRule = clonePtr(o.PolicyRule)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Log is an immutable audit entry. Empty strings and nil mean "unchanged".
type Log struct {
	ID                       string
	ObservationID            int
	ProductID                int
	Rule                     *RuleReference
	Severity                 string
	Status                   string
	VEXJustification         string
	RiskAcceptanceExpiryDate *time.Time
	Comment                  string
	AssessmentStatus         string
	User                     string
	CreatedAt                time.Time
}

// Assessment statuses of a Log entry.
const (
	AssessmentStatusNeedsApproval = "Needs approval"
	AssessmentStatusApproved      = "Approved"
	AssessmentStatusRejected      = "Rejected"
	AssessmentStatusAutoApproved  = "Auto approved"
)
