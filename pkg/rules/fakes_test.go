package rules

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/scan-io-git/triage/pkg/observation"
	"github.com/scan-io-git/triage/pkg/policy"
	"github.com/scan-io-git/triage/pkg/product"
)

var errNotFound = errors.New("not found")

// fakeStore implements every collaborator of the engine and records what it was asked to do.
type fakeStore struct {
	products     map[int]*product.Product
	rules        []*Rule
	observations []*observation.Observation

	updated     []*observation.Observation
	logs        []*observation.Log
	pushed      []int
	pushErr     error
	gateChecked []int
	expiry      *time.Time
}

func newFakeStore(products ...*product.Product) *fakeStore {
	s := &fakeStore{products: map[int]*product.Product{}}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeStore) collaborators() Collaborators {
	return Collaborators{
		Rules:        s,
		Products:     s,
		Observations: s,
		Logs:         s,
		IssueTracker: s,
		Expiry:       s,
		Gate:         s,
		Now:          func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) },
		User:         "tester",
	}
}

func (s *fakeStore) ProductRules(_ context.Context, productID int) ([]*Rule, error) {
	var result []*Rule
	for _, r := range s.rules {
		if r.ProductID != nil && *r.ProductID == productID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *fakeStore) GeneralRules(context.Context) ([]*Rule, error) {
	var result []*Rule
	for _, r := range s.rules {
		if r.ProductID == nil {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *fakeStore) GetProduct(_ context.Context, id int) (*product.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, errNotFound
	}
	return p, nil
}

func (s *fakeStore) GroupMembers(_ context.Context, groupID int) ([]*product.Product, error) {
	var result []*product.Product
	for _, p := range s.products {
		if p.ProductGroupID != nil && *p.ProductGroupID == groupID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *fakeStore) ProductsWithGeneralRules(context.Context) ([]*product.Product, error) {
	var result []*product.Product
	for _, p := range s.products {
		if p.ApplyGeneralRules && !p.IsProductGroup {
			result = append(result, p)
		}
	}
	return result, nil
}

func (s *fakeStore) ListObservations(_ context.Context, filter observation.Filter) ([]*observation.Observation, error) {
	var result []*observation.Observation
	for _, o := range s.observations {
		if filter.Matches(o) {
			result = append(result, o.Clone())
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		pi, pj := s.products[result[i].ProductID].Name, s.products[result[j].ProductID].Name
		if pi != pj {
			return pi < pj
		}
		return result[i].Title < result[j].Title
	})
	return result, nil
}

func (s *fakeStore) UpdateObservation(_ context.Context, o *observation.Observation) error {
	for i, stored := range s.observations {
		if stored.ID == o.ID {
			s.observations[i] = o.Clone()
			s.updated = append(s.updated, o.Clone())
			return nil
		}
	}
	return errNotFound
}

func (s *fakeStore) WriteLog(_ context.Context, l *observation.Log) error {
	s.logs = append(s.logs, l)
	return nil
}

func (s *fakeStore) PushObservation(_ context.Context, o *observation.Observation, _ string) error {
	s.pushed = append(s.pushed, o.ID)
	return s.pushErr
}

func (s *fakeStore) ExpiryDate(context.Context, int) (*time.Time, error) {
	return s.expiry, nil
}

func (s *fakeStore) Check(_ context.Context, p *product.Product) error {
	s.gateChecked = append(s.gateChecked, p.ID)
	return nil
}

// failingEvaluator always returns a query error.
type failingEvaluator struct{}

func (failingEvaluator) Query(context.Context, map[string]interface{}) (policy.Result, error) {
	return policy.Result{}, &policy.QueryError{Err: policy.ErrNoResults}
}

func intPtr(i int) *int { return &i }
