package rules

import (
	"context"
	"time"

	"github.com/scan-io-git/triage/pkg/observation"
	"github.com/scan-io-git/triage/pkg/policy"
	"github.com/scan-io-git/triage/pkg/product"
)

// RuleStore loads rules in their stored order.
type RuleStore interface {
	// ProductRules returns the rules owned by a product or product group.
	ProductRules(ctx context.Context, productID int) ([]*Rule, error)
	// GeneralRules returns the rules without an owning product.
	GeneralRules(ctx context.Context) ([]*Rule, error)
}

// ProductStore looks up products and group membership.
type ProductStore interface {
	GetProduct(ctx context.Context, id int) (*product.Product, error)
	GroupMembers(ctx context.Context, groupID int) ([]*product.Product, error)
	// ProductsWithGeneralRules returns all products that opted in to general rules.
	ProductsWithGeneralRules(ctx context.Context) ([]*product.Product, error)
}

// ObservationStore reads observations, ordered by product name then title, and writes
// back changed ones.
type ObservationStore interface {
	ListObservations(ctx context.Context, filter observation.Filter) ([]*observation.Observation, error)
	UpdateObservation(ctx context.Context, o *observation.Observation) error
}

// LogWriter appends audit entries.
type LogWriter interface {
	WriteLog(ctx context.Context, l *observation.Log) error
}

// IssueTracker is told about every observation a rule changed.
type IssueTracker interface {
	PushObservation(ctx context.Context, o *observation.Observation, user string) error
}

// ExpiryCalculator returns the risk acceptance expiry date for a product, nil if
// acceptance does not expire.
type ExpiryCalculator interface {
	ExpiryDate(ctx context.Context, productID int) (*time.Time, error)
}

// GateChecker recomputes the security gate of a product.
type GateChecker interface {
	Check(ctx context.Context, p *product.Product) error
}

// Recorder counts rule engine events.
type Recorder interface {
	RuleMatched(ruleType string, scope string)
	RuleFailed(ruleType string)
}

// CompileFunc builds an evaluator for a policy module.
type CompileFunc func(ctx context.Context, source string) (policy.Evaluator, error)

// Collaborators are the services an Engine or Simulator works with. Only Rules and
// Products are required; nil writers and notifiers are skipped.
type Collaborators struct {
	Rules        RuleStore
	Products     ProductStore
	Observations ObservationStore
	Logs         LogWriter
	IssueTracker IssueTracker
	Expiry       ExpiryCalculator
	Gate         GateChecker
	Metrics      Recorder

	// Compile defaults to policy.Compile.
	Compile CompileFunc
	// Now defaults to time.Now.
	Now func() time.Time
	// User is recorded on audit entries and issue tracker pushes.
	User string
}

func (c Collaborators) withDefaults() Collaborators {
	if c.Compile == nil {
		c.Compile = func(ctx context.Context, source string) (policy.Evaluator, error) {
			interpreter, err := policy.Compile(ctx, source)
			if err != nil {
				return nil, err
			}
			return interpreter, nil
		}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
