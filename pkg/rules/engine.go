package rules

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/scan-io-git/triage/pkg/observation"
	"github.com/scan-io-git/triage/pkg/policy"
	"github.com/scan-io-git/triage/pkg/product"
)

type compiledRule struct {
	rule      *Rule
	patterns  []compiledPattern
	evaluator policy.Evaluator
}

func compileRule(ctx context.Context, r *Rule, compile CompileFunc) (*compiledRule, error) {
	c := &compiledRule{rule: r}
	switch r.Type {
	case TypeFields:
		patterns, err := compilePatterns(r)
		if err != nil {
			return nil, err
		}
		c.patterns = patterns
	case TypeRego:
		evaluator, err := compile(ctx, r.RegoModule)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		c.evaluator = evaluator
	default:
		return nil, &RuleValidationError{Rule: r.Name, Err: fmt.Errorf("unknown rule type %q", r.Type)}
	}
	return c, nil
}

// Engine applies the rules of one product. The rule set and the compiled policy modules
// are fixed when the Engine is built; build a new Engine to see rule changes.
type Engine struct {
	product *product.Product
	fields  []*compiledRule
	rego    []*compiledRule

	c          Collaborators
	baseLogger hclog.Logger
	logger     hclog.Logger
}

// NewEngine loads, in this order, the enabled and approved rules of p, the enabled rules
// of its product group and, if p applies general rules, the enabled and approved general
// rules. A rule that does not compile fails the construction.
func NewEngine(ctx context.Context, p *product.Product, c Collaborators, logger hclog.Logger) (*Engine, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	e := &Engine{
		product:    p,
		c:          c.withDefaults(),
		baseLogger: logger,
		logger:     logger.Named("rule-engine").With("product", p.Name),
	}

	loaded, err := loadRules(ctx, p, e.c.Rules)
	if err != nil {
		return nil, err
	}
	for _, r := range loaded {
		compiled, err := compileRule(ctx, r, e.c.Compile)
		if err != nil {
			return nil, err
		}
		if r.Type == TypeFields {
			e.fields = append(e.fields, compiled)
		} else {
			e.rego = append(e.rego, compiled)
		}
	}

	e.logger.Debug("rules loaded", "fields", len(e.fields), "rego", len(e.rego))
	return e, nil
}

func loadRules(ctx context.Context, p *product.Product, store RuleStore) ([]*Rule, error) {
	var loaded []*Rule

	own, err := store.ProductRules(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("loading rules of product %q: %w", p.Name, err)
	}
	for _, r := range own {
		if r.Enabled && r.Approved() {
			loaded = append(loaded, r)
		}
	}

	if p.ProductGroupID != nil {
		group, err := store.ProductRules(ctx, *p.ProductGroupID)
		if err != nil {
			return nil, fmt.Errorf("loading rules of product group %d: %w", *p.ProductGroupID, err)
		}
		for _, r := range group {
			if r.Enabled {
				loaded = append(loaded, r)
			}
		}
	}

	if p.ApplyGeneralRules {
		general, err := store.GeneralRules(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading general rules: %w", err)
		}
		for _, r := range general {
			if r.Enabled && r.Approved() {
				loaded = append(loaded, r)
			}
		}
	}

	return loaded, nil
}

// ApplyToObservation runs the fields rules and then, independently, the rego rules
// against o. Each pass stops at its first matching rule. It returns true if o changed;
// a changed observation has been saved, logged and pushed to the issue tracker.
func (e *Engine) ApplyToObservation(ctx context.Context, o *observation.Observation) (bool, error) {
	initial := o.Clone()

	changedByFields, err := e.runPass(ctx, e.fields, o, initial)
	if err != nil {
		return changedByFields, err
	}
	changedByRego, err := e.runPass(ctx, e.rego, o, initial)
	return changedByFields || changedByRego, err
}

func (e *Engine) runPass(ctx context.Context, rules []*compiledRule, o, initial *observation.Observation) (bool, error) {
	for _, r := range rules {
		matched, changed, err := e.checkRule(ctx, r, o, initial, false)
		if err != nil {
			return false, err
		}
		if matched {
			return changed, nil
		}
	}
	return false, nil
}

// checkRule tests one rule against o. In simulation it returns right after the match
// test, without touching o.
func (e *Engine) checkRule(ctx context.Context, r *compiledRule, o, initial *observation.Observation, simulation bool) (matched bool, changed bool, err error) {
	prior := o.Clone()

	switch r.rule.Type {
	case TypeFields:
		if !matchFields(r.rule, r.patterns, o) {
			return false, false, nil
		}
		if simulation {
			return true, false, nil
		}
		if err := e.applyFields(ctx, r.rule, o, initial); err != nil {
			return true, false, err
		}

	case TypeRego:
		document, err := policy.Flatten(o)
		if err != nil {
			return false, false, fmt.Errorf("rule %q: %w", r.rule.Name, err)
		}
		result, err := r.evaluator.Query(ctx, document)
		if err != nil {
			if e.c.Metrics != nil {
				e.c.Metrics.RuleFailed(string(r.rule.Type))
			}
			return false, false, fmt.Errorf("rule %q: %w", r.rule.Name, err)
		}
		if !result.Matched() {
			return false, false, nil
		}
		if simulation {
			return true, false, nil
		}
		if err := e.applyRego(ctx, r.rule, result, o, initial); err != nil {
			return true, false, err
		}
	}

	if !stateChanged(prior, o) {
		return true, false, nil
	}
	if err := e.commit(ctx, r.rule, o, prior); err != nil {
		return true, true, err
	}
	return true, true, nil
}

func (e *Engine) applyFields(ctx context.Context, r *Rule, o, initial *observation.Observation) error {
	if r.NewSeverity != "" {
		o.RuleSeverity = r.NewSeverity
		setSeverity(o)
	}
	if r.NewStatus != "" {
		o.RuleStatus = r.NewStatus
		o.CurrentStatus = observation.CurrentStatus(o)
	}
	if r.NewVEXJustification != "" {
		o.RuleVEXJustification = r.NewVEXJustification
		o.CurrentVEXJustification = observation.CurrentVEXJustification(o)
	}
	if err := e.updateExpiry(ctx, o, initial); err != nil {
		return err
	}
	o.FieldsRule = r.Reference()
	return nil
}

func (e *Engine) applyRego(ctx context.Context, r *Rule, result policy.Result, o, initial *observation.Observation) error {
	if result.Priority != nil && *result.Priority != 0 {
		priority := *result.Priority
		o.RuleRegoPriority = &priority
		o.CurrentPriority = observation.CurrentPriority(o)
	}
	if result.Severity != "" {
		o.RuleRegoSeverity = result.Severity
		setSeverity(o)
	}
	if result.Status != "" {
		o.RuleRegoStatus = result.Status
		o.CurrentStatus = observation.CurrentStatus(o)
		if err := e.updateExpiry(ctx, o, initial); err != nil {
			return err
		}
	}
	if result.VEXJustification != "" {
		o.RuleRegoVEXJustification = result.VEXJustification
		o.CurrentVEXJustification = observation.CurrentVEXJustification(o)
	}
	o.PolicyRule = r.Reference()
	return nil
}

func setSeverity(o *observation.Observation) {
	o.CurrentSeverity = observation.CurrentSeverity(o)
	o.NumericalSeverity = observation.NumericalSeverity(o.CurrentSeverity)
}

// updateExpiry sets the expiry date when o became risk accepted in this evaluation and
// clears it when o is not risk accepted.
func (e *Engine) updateExpiry(ctx context.Context, o, initial *observation.Observation) error {
	if o.CurrentStatus != observation.StatusRiskAccepted {
		o.RiskAcceptanceExpiryDate = nil
		return nil
	}
	if initial.CurrentStatus == observation.StatusRiskAccepted || e.c.Expiry == nil {
		return nil
	}
	date, err := e.c.Expiry.ExpiryDate(ctx, o.ProductID)
	if err != nil {
		return fmt.Errorf("risk acceptance expiry for observation %d: %w", o.ID, err)
	}
	o.RiskAcceptanceExpiryDate = date
	return nil
}

func (e *Engine) commit(ctx context.Context, r *Rule, o, prior *observation.Observation) error {
	if e.c.Observations != nil {
		if err := e.c.Observations.UpdateObservation(ctx, o); err != nil {
			return fmt.Errorf("saving observation %d: %w", o.ID, err)
		}
	}
	if e.c.Logs != nil {
		if err := e.c.Logs.WriteLog(ctx, newLog(r, o, prior, e.c.User, e.c.Now())); err != nil {
			return fmt.Errorf("writing log for observation %d: %w", o.ID, err)
		}
	}
	if e.c.IssueTracker != nil {
		if err := e.c.IssueTracker.PushObservation(ctx, o, e.c.User); err != nil {
			e.logger.Warn("issue tracker push failed", "observation", o.ID, "error", err)
		}
	}
	if e.c.Metrics != nil {
		e.c.Metrics.RuleMatched(string(r.Type), string(r.Scope()))
	}

	e.logger.Debug("rule applied", "observation", o.ID, "rule", r.Name)
	return nil
}

// ApplySummary reports a bulk run. Errors holds one entry per failed product or observation.
type ApplySummary struct {
	Products     int
	Observations int
	Changed      int
	Errors       []error
}

// Err aggregates Errors, nil if there were none.
func (s ApplySummary) Err() error {
	return utilerrors.NewAggregate(s.Errors)
}

// ApplyToProduct applies the rules to every observation of the product and recomputes its
// security gate. For a product group each member product is processed on its own, with
// its own rule set; a failing member does not stop the others. The returned error is the
// aggregate of all failures.
func (e *Engine) ApplyToProduct(ctx context.Context) (ApplySummary, error) {
	var summary ApplySummary

	if !e.product.IsProductGroup {
		e.applyOwnObservations(ctx, &summary)
		return summary, summary.Err()
	}

	members, err := e.c.Products.GroupMembers(ctx, e.product.ID)
	if err != nil {
		return summary, fmt.Errorf("listing members of product group %q: %w", e.product.Name, err)
	}
	for _, member := range members {
		engine, err := NewEngine(ctx, member, e.c, e.baseLogger)
		if err != nil {
			e.logger.Error("building rule engine failed", "member", member.Name, "error", err)
			summary.Errors = append(summary.Errors, fmt.Errorf("product %q: %w", member.Name, err))
			continue
		}
		engine.applyOwnObservations(ctx, &summary)
	}
	return summary, summary.Err()
}

func (e *Engine) applyOwnObservations(ctx context.Context, summary *ApplySummary) {
	summary.Products++

	observations, err := e.c.Observations.ListObservations(ctx, observation.Filter{ProductIDs: []int{e.product.ID}})
	if err != nil {
		e.logger.Error("listing observations failed", "error", err)
		summary.Errors = append(summary.Errors, fmt.Errorf("product %q: %w", e.product.Name, err))
		return
	}

	for _, o := range observations {
		if err := ctx.Err(); err != nil {
			summary.Errors = append(summary.Errors, fmt.Errorf("product %q: %w", e.product.Name, err))
			return
		}
		summary.Observations++
		changed, err := e.ApplyToObservation(ctx, o)
		if err != nil {
			e.logger.Error("applying rules failed", "observation", o.ID, "error", err)
			summary.Errors = append(summary.Errors, fmt.Errorf("observation %d: %w", o.ID, err))
			continue
		}
		if changed {
			summary.Changed++
		}
	}

	if e.c.Gate != nil {
		if err := e.c.Gate.Check(ctx, e.product); err != nil {
			e.logger.Error("security gate check failed", "error", err)
			summary.Errors = append(summary.Errors, fmt.Errorf("security gate of product %q: %w", e.product.Name, err))
		}
	}
}
