// Package tasks runs bulk re-evaluations over all products in the background.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/scan-io-git/triage/pkg/product"
	"github.com/scan-io-git/triage/pkg/rules"
)

// Lock keys of the bulk tasks.
const (
	LockGeneralRulesChanged = "general_rules_changed"
	LockSettingsChanged     = "settings_changed"
)

// ErrAlreadyRunning is returned when a task is triggered while the same task still runs.
// The trigger is dropped, not queued.
var ErrAlreadyRunning = errors.New("task already running")

// ProductLister lists every product and product group.
type ProductLister interface {
	ListProducts(ctx context.Context) ([]*product.Product, error)
}

// GateChecker recomputes the security gate of a product.
type GateChecker interface {
	Check(ctx context.Context, p *product.Product) error
}

// Runner fans bulk work out over products with a bounded number of workers.
type Runner struct {
	products ProductLister
	rules    rules.Collaborators
	gate     GateChecker
	workers  int
	logger   hclog.Logger

	mu      sync.Mutex
	running map[string]bool
}

// New creates a Runner. workers below 1 means 1.
func New(products ProductLister, c rules.Collaborators, gate GateChecker, workers int, logger hclog.Logger) *Runner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		products: products,
		rules:    c,
		gate:     gate,
		workers:  workers,
		logger:   logger.Named("tasks"),
		running:  map[string]bool{},
	}
}

// tryLock marks key as running. It returns false if key already runs.
func (r *Runner) tryLock(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running[key] {
		return false
	}
	r.running[key] = true
	return true
}

func (r *Runner) unlock(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, key)
}

// ApplyRulesForAllProducts applies the rules of every product to all its observations,
// e.g. after a general rule changed. Product groups are covered through their members.
// A failing product does not stop the others; the summary collects all failures.
func (r *Runner) ApplyRulesForAllProducts(ctx context.Context) (rules.ApplySummary, error) {
	var summary rules.ApplySummary
	if !r.tryLock(LockGeneralRulesChanged) {
		r.logger.Info("apply rules for all products already running, skipping")
		return summary, ErrAlreadyRunning
	}
	defer r.unlock(LockGeneralRulesChanged)

	r.logger.Info("apply rules for all products - start")
	var mu sync.Mutex
	err := r.forEachProduct(ctx, func(ctx context.Context, p *product.Product) {
		engine, err := rules.NewEngine(ctx, p, r.rules, r.logger)
		var result rules.ApplySummary
		if err != nil {
			r.logger.Error("building rule engine failed", "product", p.Name, "error", err)
			result.Errors = []error{fmt.Errorf("product %q: %w", p.Name, err)}
		} else {
			result, _ = engine.ApplyToProduct(ctx)
		}

		mu.Lock()
		defer mu.Unlock()
		summary.Products += result.Products
		summary.Observations += result.Observations
		summary.Changed += result.Changed
		summary.Errors = append(summary.Errors, result.Errors...)
	})
	if err != nil {
		return summary, err
	}

	r.logger.Info("apply rules for all products - finished",
		"products", summary.Products, "observations", summary.Observations,
		"changed", summary.Changed, "errors", len(summary.Errors))
	return summary, summary.Err()
}

// CheckAllSecurityGates recomputes the gate of every product, e.g. after the global gate
// settings changed.
func (r *Runner) CheckAllSecurityGates(ctx context.Context) error {
	if r.gate == nil {
		return nil
	}
	if !r.tryLock(LockSettingsChanged) {
		r.logger.Info("security gate check for all products already running, skipping")
		return ErrAlreadyRunning
	}
	defer r.unlock(LockSettingsChanged)

	r.logger.Info("security gate check for all products - start")
	var (
		mu   sync.Mutex
		errs []error
	)
	err := r.forEachProduct(ctx, func(ctx context.Context, p *product.Product) {
		if err := r.gate.Check(ctx, p); err != nil {
			r.logger.Error("security gate check failed", "product", p.Name, "error", err)
			mu.Lock()
			errs = append(errs, fmt.Errorf("product %q: %w", p.Name, err))
			mu.Unlock()
		}
	})
	if err != nil {
		return err
	}
	r.logger.Info("security gate check for all products - finished", "errors", len(errs))
	return utilerrors.NewAggregate(errs)
}

// forEachProduct calls fn for every product that is not a product group, at most
// r.workers at a time. It only fails if the products cannot be listed or ctx ends.
func (r *Runner) forEachProduct(ctx context.Context, fn func(context.Context, *product.Product)) error {
	products, err := r.products.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("listing products: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, p := range products {
		if p.IsProductGroup {
			continue
		}
		p := p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(ctx, p)
			return nil
		})
	}
	return g.Wait()
}
