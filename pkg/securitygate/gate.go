// Package securitygate decides whether a product passes its security gate: the maximum
// number of open observations per severity on its default branch.
package securitygate

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/scan-io-git/triage/pkg/observation"
	"github.com/scan-io-git/triage/pkg/product"
)

// ProductStore is the product data the gate reads and writes.
type ProductStore interface {
	GetProduct(ctx context.Context, id int) (*product.Product, error)
	GroupMembers(ctx context.Context, groupID int) ([]*product.Product, error)
	SaveProduct(ctx context.Context, p *product.Product) error
	// OpenSeverityCounts counts the open observations of a product on its default branch,
	// or without a branch if the product has no default branch.
	OpenSeverityCounts(ctx context.Context, productID int) (product.SeverityCounts, error)
}

// Notifier is told about every change of a gate result.
type Notifier interface {
	SecurityGateChanged(ctx context.Context, p *product.Product) error
}

// Recorder counts gate transitions.
type Recorder interface {
	GateChanged(passed *bool)
}

// Defaults is the gate of products that do not configure their own.
type Defaults struct {
	Active     bool
	Thresholds product.GateThresholds
}

// Gate recomputes and stores security gate results.
type Gate struct {
	products ProductStore
	notifier Notifier
	defaults Defaults
	metrics  Recorder
	logger   hclog.Logger
}

// New creates a Gate. notifier and metrics may be nil.
func New(products ProductStore, notifier Notifier, defaults Defaults, metrics Recorder, logger hclog.Logger) *Gate {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Gate{
		products: products,
		notifier: notifier,
		defaults: defaults,
		metrics:  metrics,
		logger:   logger.Named("security-gate"),
	}
}

// Check recomputes the gate of p, or of every member product when p is a product group.
// p.SecurityGatePassed is updated to the result. The product is saved and the notifier
// called only when the result changed; a failed notification is logged, not returned.
func (g *Gate) Check(ctx context.Context, p *product.Product) error {
	if !p.IsProductGroup {
		return g.checkProduct(ctx, p)
	}

	members, err := g.products.GroupMembers(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("listing members of product group %q: %w", p.Name, err)
	}
	var errs []error
	for _, member := range members {
		if err := g.checkProduct(ctx, member); err != nil {
			g.logger.Error("security gate check failed", "product", member.Name, "error", err)
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}

// CheckObservation recomputes the gate of the observation's product if the observation
// counts for it: it has no branch or is on the product's default branch.
func (g *Gate) CheckObservation(ctx context.Context, o *observation.Observation) error {
	p, err := g.products.GetProduct(ctx, o.ProductID)
	if err != nil {
		return fmt.Errorf("loading product %d: %w", o.ProductID, err)
	}
	if o.BranchID != nil && (p.RepositoryDefaultBranchID == nil || *o.BranchID != *p.RepositoryDefaultBranchID) {
		return nil
	}
	return g.Check(ctx, p)
}

func (g *Gate) checkProduct(ctx context.Context, p *product.Product) error {
	current, err := g.products.GetProduct(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("loading product %d: %w", p.ID, err)
	}

	active, thresholds, err := g.settings(ctx, current)
	if err != nil {
		return err
	}

	var passed *bool
	if active {
		counts, err := g.products.OpenSeverityCounts(ctx, current.ID)
		if err != nil {
			return fmt.Errorf("counting open observations of product %q: %w", current.Name, err)
		}
		result := Evaluate(counts, thresholds)
		passed = &result
	}

	if samePassed(current.SecurityGatePassed, passed) {
		p.SecurityGatePassed = passed
		return nil
	}

	current.SecurityGatePassed = passed
	if err := g.products.SaveProduct(ctx, current); err != nil {
		return fmt.Errorf("saving product %q: %w", current.Name, err)
	}
	p.SecurityGatePassed = passed
	g.logger.Info("security gate changed", "product", current.Name, "passed", describe(passed))

	if g.metrics != nil {
		g.metrics.GateChanged(passed)
	}
	if g.notifier != nil {
		if err := g.notifier.SecurityGateChanged(ctx, current); err != nil {
			g.logger.Warn("security gate notification failed", "product", current.Name, "error", err)
		}
	}
	return nil
}

// settings returns the gate configuration of p. A product group that sets
// SecurityGateActive decides for its members; nil means the global defaults.
func (g *Gate) settings(ctx context.Context, p *product.Product) (bool, product.GateThresholds, error) {
	source := p
	if p.ProductGroupID != nil {
		group, err := g.products.GetProduct(ctx, *p.ProductGroupID)
		if err != nil {
			return false, product.GateThresholds{}, fmt.Errorf("loading product group %d: %w", *p.ProductGroupID, err)
		}
		if group.SecurityGateActive != nil {
			source = group
		}
	}

	if source.SecurityGateActive == nil {
		return g.defaults.Active, g.defaults.Thresholds, nil
	}
	return *source.SecurityGateActive, source.SecurityGate, nil
}

// Evaluate checks the counts against the thresholds from critical down to unknown. The
// gate fails at the first severity whose count exceeds its threshold.
func Evaluate(counts product.SeverityCounts, thresholds product.GateThresholds) bool {
	checks := []struct {
		count     int
		threshold *int
	}{
		{counts.Critical, thresholds.Critical},
		{counts.High, thresholds.High},
		{counts.Medium, thresholds.Medium},
		{counts.Low, thresholds.Low},
		{counts.None, thresholds.None},
		{counts.Unknown, thresholds.Unknown},
	}
	for _, c := range checks {
		if c.threshold != nil && c.count > 0 && c.count > *c.threshold {
			return false
		}
	}
	return true
}

func samePassed(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func describe(passed *bool) string {
	switch {
	case passed == nil:
		return "disabled"
	case *passed:
		return "passed"
	default:
		return "failed"
	}
}
