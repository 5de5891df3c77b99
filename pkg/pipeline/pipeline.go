// Package pipeline runs the steps that follow a change of an observation, a branch or
// the gate settings of a product, in order.
package pipeline

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/triage/pkg/observation"
	"github.com/scan-io-git/triage/pkg/product"
	"github.com/scan-io-git/triage/pkg/rules"
)

// Store is the data the pipeline reads and writes.
type Store interface {
	GetProduct(ctx context.Context, id int) (*product.Product, error)
	SaveProduct(ctx context.Context, p *product.Product) error
	SaveObservation(ctx context.Context, o *observation.Observation) error
	DeleteObservation(ctx context.Context, id int) (*observation.Observation, error)
	SaveBranch(ctx context.Context, b *product.Branch) error
	ProductBranches(ctx context.Context, productID int) ([]*product.Branch, error)
}

// Gate recomputes security gates.
type Gate interface {
	Check(ctx context.Context, p *product.Product) error
	CheckObservation(ctx context.Context, o *observation.Observation) error
}

// DeletionNotifier is told about deleted observations that had an issue.
type DeletionNotifier interface {
	PushDeleted(ctx context.Context, productID int, issueID string, user string) error
}

// Pipeline wires the store, the rule engine and the security gate.
type Pipeline struct {
	store    Store
	rules    rules.Collaborators
	gate     Gate
	notifier DeletionNotifier
	logger   hclog.Logger
}

// New creates a Pipeline. gate and notifier may be nil. c is used to build rule engines.
func New(store Store, c rules.Collaborators, gate Gate, notifier DeletionNotifier, logger hclog.Logger) *Pipeline {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Pipeline{
		store:    store,
		rules:    c,
		gate:     gate,
		notifier: notifier,
		logger:   logger.Named("pipeline"),
	}
}

// SaveObservation normalizes o, computes its identity hash, marks the origin kinds of
// its product and persists it.
func (p *Pipeline) SaveObservation(ctx context.Context, o *observation.Observation) error {
	observation.Normalize(o)
	o.IdentityHash = observation.IdentityHash(o)

	prod, err := p.store.GetProduct(ctx, o.ProductID)
	if err != nil {
		return fmt.Errorf("loading product %d: %w", o.ProductID, err)
	}
	if product.SetFlags(prod, o) {
		if err := p.store.SaveProduct(ctx, prod); err != nil {
			return fmt.Errorf("saving product %q: %w", prod.Name, err)
		}
	}

	if err := p.store.SaveObservation(ctx, o); err != nil {
		return fmt.Errorf("saving observation %q: %w", o.Title, err)
	}
	return nil
}

// ImportObservations saves a batch of observations of one product, applies the rules of
// the product to each and recomputes the security gate once. An observation that fails
// is logged and skipped; the returned error aggregates all failures.
func (p *Pipeline) ImportObservations(ctx context.Context, productID int, observations []*observation.Observation) (rules.ApplySummary, error) {
	var summary rules.ApplySummary

	prod, err := p.store.GetProduct(ctx, productID)
	if err != nil {
		return summary, fmt.Errorf("loading product %d: %w", productID, err)
	}
	engine, err := rules.NewEngine(ctx, prod, p.rules, p.logger)
	if err != nil {
		return summary, err
	}

	summary.Products = 1
	var gateCandidate *observation.Observation
	for _, o := range observations {
		if err := ctx.Err(); err != nil {
			summary.Errors = append(summary.Errors, err)
			break
		}
		o.ProductID = productID
		summary.Observations++
		changed, err := p.importOne(ctx, engine, o)
		if err != nil {
			p.logger.Error("importing observation failed", "product", prod.Name, "title", o.Title, "error", err)
			summary.Errors = append(summary.Errors, err)
			continue
		}
		if changed {
			summary.Changed++
		}
		if gateCandidate == nil && countsForGate(prod, o) {
			gateCandidate = o
		}
	}

	if p.gate != nil && gateCandidate != nil {
		if err := p.gate.CheckObservation(ctx, gateCandidate); err != nil {
			summary.Errors = append(summary.Errors, fmt.Errorf("security gate of product %q: %w", prod.Name, err))
		}
	}
	return summary, summary.Err()
}

// ImportObservation saves o, applies the rules of its product and recomputes the
// security gate.
func (p *Pipeline) ImportObservation(ctx context.Context, o *observation.Observation) (bool, error) {
	summary, err := p.ImportObservations(ctx, o.ProductID, []*observation.Observation{o})
	return summary.Changed > 0, err
}

func (p *Pipeline) importOne(ctx context.Context, engine *rules.Engine, o *observation.Observation) (bool, error) {
	if err := p.SaveObservation(ctx, o); err != nil {
		return false, err
	}
	changed, err := engine.ApplyToObservation(ctx, o)
	if err != nil {
		return false, fmt.Errorf("applying rules to observation %d: %w", o.ID, err)
	}
	return changed, nil
}

// DeleteObservation removes an observation, tells the issue tracker and recomputes the
// security gate of the product.
func (p *Pipeline) DeleteObservation(ctx context.Context, id int) error {
	o, err := p.store.DeleteObservation(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting observation %d: %w", id, err)
	}

	if p.notifier != nil && o.IssueTrackerIssueID != "" {
		if err := p.notifier.PushDeleted(ctx, o.ProductID, o.IssueTrackerIssueID, p.rules.User); err != nil {
			p.logger.Warn("issue tracker delete push failed", "observation", id, "issue", o.IssueTrackerIssueID, "error", err)
		}
	}

	if p.gate != nil {
		return p.gate.CheckObservation(ctx, o)
	}
	return nil
}

// ProductGateSettingsChanged recomputes the gate after the gate settings of a product
// changed. For a product group every member is recomputed.
func (p *Pipeline) ProductGateSettingsChanged(ctx context.Context, productID int) error {
	if p.gate == nil {
		return nil
	}
	prod, err := p.store.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("loading product %d: %w", productID, err)
	}
	return p.gate.Check(ctx, prod)
}

// SaveBranch persists b and keeps the default branch of its product consistent: a
// default branch demotes all other branches of the product, and a branch that stops
// being the default clears the product's default branch.
func (p *Pipeline) SaveBranch(ctx context.Context, b *product.Branch) error {
	if err := p.store.SaveBranch(ctx, b); err != nil {
		return fmt.Errorf("saving branch %q: %w", b.Name, err)
	}

	prod, err := p.store.GetProduct(ctx, b.ProductID)
	if err != nil {
		return fmt.Errorf("loading product %d: %w", b.ProductID, err)
	}

	if !b.IsDefaultBranch {
		if prod.RepositoryDefaultBranchID == nil || *prod.RepositoryDefaultBranchID != b.ID {
			return nil
		}
		prod.RepositoryDefaultBranchID = nil
		return p.store.SaveProduct(ctx, prod)
	}

	branches, err := p.store.ProductBranches(ctx, b.ProductID)
	if err != nil {
		return fmt.Errorf("listing branches of product %q: %w", prod.Name, err)
	}
	for _, other := range branches {
		if other.ID == b.ID || !other.IsDefaultBranch {
			continue
		}
		other.IsDefaultBranch = false
		if err := p.store.SaveBranch(ctx, other); err != nil {
			return fmt.Errorf("saving branch %q: %w", other.Name, err)
		}
	}

	id := b.ID
	prod.RepositoryDefaultBranchID = &id
	return p.store.SaveProduct(ctx, prod)
}

func countsForGate(p *product.Product, o *observation.Observation) bool {
	if o.BranchID == nil {
		return true
	}
	return p.RepositoryDefaultBranchID != nil && *o.BranchID == *p.RepositoryDefaultBranchID
}
