package rules

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/triage/pkg/observation"
	"github.com/scan-io-git/triage/pkg/product"
)

// DefaultMaxObservations caps the sample a simulation returns.
const DefaultMaxObservations = 100

// Simulator previews which observations a candidate rule would change. It never saves
// observations, writes logs or notifies anybody.
type Simulator struct {
	c               Collaborators
	maxObservations int
	logger          hclog.Logger
}

// NewSimulator creates a Simulator returning at most maxObservations sample observations.
// A non-positive maxObservations means DefaultMaxObservations.
func NewSimulator(c Collaborators, maxObservations int, logger hclog.Logger) *Simulator {
	if maxObservations <= 0 {
		maxObservations = DefaultMaxObservations
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	readOnly := c.withDefaults()
	readOnly.Logs = nil
	readOnly.IssueTracker = nil
	readOnly.Gate = nil
	readOnly.Metrics = nil

	return &Simulator{
		c:               readOnly,
		maxObservations: maxObservations,
		logger:          logger.Named("rule-simulator"),
	}
}

// Simulate evaluates r against the observations it would apply to. It returns the total
// number of matches and the first matches, ordered by product name and title. Every
// failure is a *SimulationError.
func (s *Simulator) Simulate(ctx context.Context, r *Rule) (int, []*observation.Observation, error) {
	count, sample, err := s.simulate(ctx, r)
	if err != nil {
		return 0, nil, &SimulationError{Rule: r.Name, Err: err}
	}
	s.logger.Debug("simulation finished", "rule", r.Name, "matches", count)
	return count, sample, nil
}

func (s *Simulator) simulate(ctx context.Context, r *Rule) (int, []*observation.Observation, error) {
	candidate, err := compileRule(ctx, r, s.c.Compile)
	if err != nil {
		return 0, nil, err
	}

	filter, err := s.observationFilter(ctx, r)
	if err != nil {
		return 0, nil, err
	}
	if len(filter.ProductIDs) == 0 {
		return 0, nil, nil
	}
	observations, err := s.c.Observations.ListObservations(ctx, filter)
	if err != nil {
		return 0, nil, fmt.Errorf("listing observations: %w", err)
	}

	engines := make(map[int]*Engine)
	count := 0
	var sample []*observation.Observation

	for _, stored := range observations {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}

		engine, ok := engines[stored.ProductID]
		if !ok {
			p, err := s.c.Products.GetProduct(ctx, stored.ProductID)
			if err != nil {
				return 0, nil, fmt.Errorf("loading product %d: %w", stored.ProductID, err)
			}
			engine, err = NewEngine(ctx, p, s.c, s.logger)
			if err != nil {
				return 0, nil, err
			}
			engines[stored.ProductID] = engine
		}

		live := stored.Clone()
		before := withoutRuleValues(live)
		observation.Normalize(live)

		matched, _, err := engine.checkRule(ctx, candidate, live, before, true)
		if err != nil {
			return 0, nil, fmt.Errorf("observation %d: %w", stored.ID, err)
		}
		if !matched {
			continue
		}
		count++
		if len(sample) < s.maxObservations {
			sample = append(sample, live)
		}
	}
	return count, sample, nil
}

// observationFilter selects the observations of the rule's product, of the members of
// its product group, or of every product applying general rules.
func (s *Simulator) observationFilter(ctx context.Context, r *Rule) (observation.Filter, error) {
	var filter observation.Filter

	var products []*product.Product
	if r.ProductID != nil {
		p, err := s.c.Products.GetProduct(ctx, *r.ProductID)
		if err != nil {
			return filter, fmt.Errorf("loading product %d: %w", *r.ProductID, err)
		}
		if p.IsProductGroup {
			products, err = s.c.Products.GroupMembers(ctx, p.ID)
			if err != nil {
				return filter, fmt.Errorf("listing members of product group %q: %w", p.Name, err)
			}
		} else {
			products = []*product.Product{p}
		}
	} else {
		var err error
		products, err = s.c.Products.ProductsWithGeneralRules(ctx)
		if err != nil {
			return filter, fmt.Errorf("listing products applying general rules: %w", err)
		}
	}
	for _, p := range products {
		filter.ProductIDs = append(filter.ProductIDs, p.ID)
	}

	if r.Type == TypeFields {
		filter.Parser = r.Parser
		filter.ScannerPrefix = r.ScannerPrefix
	}
	return filter, nil
}

// withoutRuleValues copies o with every value a rule sets blanked out.
func withoutRuleValues(o *observation.Observation) *observation.Observation {
	before := o.Clone()
	before.RuleSeverity = ""
	before.RuleRegoSeverity = ""
	before.RuleStatus = ""
	before.RuleRegoStatus = ""
	before.RuleVEXJustification = ""
	before.RuleRegoVEXJustification = ""
	before.RulePriority = nil
	before.RuleRegoPriority = nil
	before.FieldsRule = nil
	before.PolicyRule = nil
	return before
}
