// Package product holds the product, product group and branch records the triage
// pipeline reads. Products are owned by an external data store.
package product

import "github.com/scan-io-git/triage/pkg/observation"

// Product is either a product or a product group (IsProductGroup). A product is a member
// of at most one group.
type Product struct {
	ID             int    `yaml:"id"`
	Name           string `yaml:"name"`
	IsProductGroup bool   `yaml:"is_product_group"`
	ProductGroupID *int   `yaml:"product_group_id,omitempty"`

	ApplyGeneralRules bool `yaml:"apply_general_rules"`

	RepositoryDefaultBranchID *int `yaml:"repository_default_branch_id,omitempty"`

	// SecurityGateActive nil means the global default gate applies.
	SecurityGateActive *bool          `yaml:"security_gate_active,omitempty"`
	SecurityGate       GateThresholds `yaml:"security_gate"`
	SecurityGatePassed *bool          `yaml:"security_gate_passed,omitempty"`

	RiskAcceptanceExpiryDays *int `yaml:"risk_acceptance_expiry_days,omitempty"`

	HasComponent          bool `yaml:"has_component"`
	HasDockerImage        bool `yaml:"has_docker_image"`
	HasEndpoint           bool `yaml:"has_endpoint"`
	HasSource             bool `yaml:"has_source"`
	HasCloudResource      bool `yaml:"has_cloud_resource"`
	HasKubernetesResource bool `yaml:"has_kubernetes_resource"`
}

// GateThresholds are the maximum numbers of open observations per severity before the
// security gate fails. A nil threshold is not checked.
type GateThresholds struct {
	Critical *int `yaml:"critical,omitempty"`
	High     *int `yaml:"high,omitempty"`
	Medium   *int `yaml:"medium,omitempty"`
	Low      *int `yaml:"low,omitempty"`
	None     *int `yaml:"none,omitempty"`
	Unknown  *int `yaml:"unknown,omitempty"`
}

// SeverityCounts are the numbers of open observations per current severity.
type SeverityCounts struct {
	Critical int
	High     int
	Medium   int
	Low      int
	None     int
	Unknown  int
}

// Add counts one open observation of the given severity.
func (c *SeverityCounts) Add(severity string) {
	switch severity {
	case observation.SeverityCritical:
		c.Critical++
	case observation.SeverityHigh:
		c.High++
	case observation.SeverityMedium:
		c.Medium++
	case observation.SeverityLow:
		c.Low++
	case observation.SeverityNone:
		c.None++
	default:
		c.Unknown++
	}
}

// Branch is a repository branch or version of a product.
type Branch struct {
	ID              int    `yaml:"id"`
	ProductID       int    `yaml:"product_id"`
	Name            string `yaml:"name"`
	IsDefaultBranch bool   `yaml:"is_default_branch"`
}

// SetFlags marks which kinds of origin the product has observations for. It returns true
// if any flag flipped and the product needs saving.
func SetFlags(p *Product, o *observation.Observation) bool {
	changed := false
	set := func(flag *bool, present bool) {
		if present && !*flag {
			*flag = true
			changed = true
		}
	}

	set(&p.HasCloudResource, o.OriginCloudQualifiedResource != "")
	set(&p.HasComponent, o.OriginComponentNameVersion != "")
	set(&p.HasDockerImage, o.OriginDockerImageNameTag != "")
	set(&p.HasEndpoint, o.OriginEndpointURL != "")
	set(&p.HasKubernetesResource, o.OriginKubernetesQualifiedResource != "")
	set(&p.HasSource, o.OriginSourceFile != "")

	return changed
}
