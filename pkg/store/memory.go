// Package store keeps products, branches, observations, rules and audit logs in memory.
// Every read returns copies, so callers may modify what they get.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/scan-io-git/triage/pkg/observation"
	"github.com/scan-io-git/triage/pkg/product"
	"github.com/scan-io-git/triage/pkg/rules"
)

// ErrNotFound is returned for unknown ids.
var ErrNotFound = errors.New("not found")

// Memory is a concurrency safe in-memory store.
type Memory struct {
	mu           sync.RWMutex
	products     map[int]*product.Product
	branches     map[int]*product.Branch
	observations map[int]*observation.Observation
	rules        []*rules.Rule
	logs         []*observation.Log
	nextID       int
}

func NewMemory() *Memory {
	return &Memory{
		products:     map[int]*product.Product{},
		branches:     map[int]*product.Branch{},
		observations: map[int]*observation.Observation{},
	}
}

// id returns a fresh id when id is 0. Must be called with mu held.
func (m *Memory) id(id int) int {
	if id > m.nextID {
		m.nextID = id
	}
	if id != 0 {
		return id
	}
	m.nextID++
	return m.nextID
}

func (m *Memory) GetProduct(_ context.Context, id int) (*product.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return cloneProduct(p), nil
}

// SaveProduct stores p, assigning an id if p has none.
func (m *Memory) SaveProduct(_ context.Context, p *product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id(p.ID)
	m.products[p.ID] = cloneProduct(p)
	return nil
}

// ListProducts returns all products and product groups ordered by name.
func (m *Memory) ListProducts(_ context.Context) ([]*product.Product, error) {
	return m.selectProducts(func(*product.Product) bool { return true }), nil
}

func (m *Memory) GroupMembers(_ context.Context, groupID int) ([]*product.Product, error) {
	return m.selectProducts(func(p *product.Product) bool {
		return p.ProductGroupID != nil && *p.ProductGroupID == groupID
	}), nil
}

func (m *Memory) ProductsWithGeneralRules(_ context.Context) ([]*product.Product, error) {
	return m.selectProducts(func(p *product.Product) bool {
		return !p.IsProductGroup && p.ApplyGeneralRules
	}), nil
}

func (m *Memory) selectProducts(keep func(*product.Product) bool) []*product.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*product.Product
	for _, p := range m.products {
		if keep(p) {
			out = append(out, cloneProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) GetBranch(_ context.Context, id int) (*product.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.branches[id]
	if !ok {
		return nil, fmt.Errorf("branch %d: %w", id, ErrNotFound)
	}
	c := *b
	return &c, nil
}

// SaveBranch stores b, assigning an id if b has none.
func (m *Memory) SaveBranch(_ context.Context, b *product.Branch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[b.ProductID]; !ok {
		return fmt.Errorf("product %d: %w", b.ProductID, ErrNotFound)
	}
	b.ID = m.id(b.ID)
	c := *b
	m.branches[b.ID] = &c
	return nil
}

// ProductBranches returns the branches of a product ordered by id.
func (m *Memory) ProductBranches(_ context.Context, productID int) ([]*product.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*product.Branch
	for _, b := range m.branches {
		if b.ProductID == productID {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetObservation(_ context.Context, id int) (*observation.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.observations[id]
	if !ok {
		return nil, fmt.Errorf("observation %d: %w", id, ErrNotFound)
	}
	return o.Clone(), nil
}

// SaveObservation inserts or replaces o, assigning an id if o has none.
func (m *Memory) SaveObservation(_ context.Context, o *observation.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[o.ProductID]; !ok {
		return fmt.Errorf("product %d: %w", o.ProductID, ErrNotFound)
	}
	o.ID = m.id(o.ID)
	m.observations[o.ID] = o.Clone()
	return nil
}

// UpdateObservation replaces an existing observation.
func (m *Memory) UpdateObservation(_ context.Context, o *observation.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.observations[o.ID]; !ok {
		return fmt.Errorf("observation %d: %w", o.ID, ErrNotFound)
	}
	m.observations[o.ID] = o.Clone()
	return nil
}

// DeleteObservation removes an observation and returns what was stored.
func (m *Memory) DeleteObservation(_ context.Context, id int) (*observation.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.observations[id]
	if !ok {
		return nil, fmt.Errorf("observation %d: %w", id, ErrNotFound)
	}
	delete(m.observations, id)
	return o, nil
}

// ListObservations returns the observations passing filter, ordered by product name,
// then title, then id.
func (m *Memory) ListObservations(_ context.Context, filter observation.Filter) ([]*observation.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*observation.Observation
	for _, o := range m.observations {
		if filter.Matches(o) {
			out = append(out, o.Clone())
		}
	}
	name := func(o *observation.Observation) string {
		if p, ok := m.products[o.ProductID]; ok {
			return p.Name
		}
		return ""
	}
	sort.Slice(out, func(i, j int) bool {
		if a, b := name(out[i]), name(out[j]); a != b {
			return a < b
		}
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// OpenSeverityCounts counts open observations on the default branch of a product. A
// product without default branch counts the observations without branch.
func (m *Memory) OpenSeverityCounts(_ context.Context, productID int) (product.SeverityCounts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var counts product.SeverityCounts
	p, ok := m.products[productID]
	if !ok {
		return counts, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	for _, o := range m.observations {
		if o.ProductID != productID || o.CurrentStatus != observation.StatusOpen {
			continue
		}
		if !sameBranch(o.BranchID, p.RepositoryDefaultBranchID) {
			continue
		}
		counts.Add(o.CurrentSeverity)
	}
	return counts, nil
}

func sameBranch(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// SaveRule inserts or replaces r, assigning an id if r has none. Rules keep their
// insertion order.
func (m *Memory) SaveRule(_ context.Context, r *rules.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := cloneRule(r)
	for i, existing := range m.rules {
		if r.ID != 0 && existing.ID == r.ID {
			m.rules[i] = c
			return nil
		}
	}
	r.ID = m.id(r.ID)
	c.ID = r.ID
	m.rules = append(m.rules, c)
	return nil
}

func (m *Memory) ProductRules(_ context.Context, productID int) ([]*rules.Rule, error) {
	return m.selectRules(func(r *rules.Rule) bool {
		return r.ProductID != nil && *r.ProductID == productID
	}), nil
}

func (m *Memory) GeneralRules(_ context.Context) ([]*rules.Rule, error) {
	return m.selectRules(func(r *rules.Rule) bool { return r.ProductID == nil }), nil
}

func (m *Memory) selectRules(keep func(*rules.Rule) bool) []*rules.Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*rules.Rule
	for _, r := range m.rules {
		if keep(r) {
			out = append(out, cloneRule(r))
		}
	}
	return out
}

func (m *Memory) WriteLog(_ context.Context, l *observation.Log) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *l
	c.Rule = clone(l.Rule)
	c.RiskAcceptanceExpiryDate = clone(l.RiskAcceptanceExpiryDate)
	m.logs = append(m.logs, &c)
	return nil
}

// Logs returns the audit entries of an observation in write order.
func (m *Memory) Logs(_ context.Context, observationID int) ([]*observation.Log, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*observation.Log
	for _, l := range m.logs {
		if l.ObservationID == observationID {
			c := *l
			out = append(out, &c)
		}
	}
	return out, nil
}

func cloneProduct(p *product.Product) *product.Product {
	c := *p
	c.ProductGroupID = clone(p.ProductGroupID)
	c.RepositoryDefaultBranchID = clone(p.RepositoryDefaultBranchID)
	c.SecurityGateActive = clone(p.SecurityGateActive)
	c.SecurityGatePassed = clone(p.SecurityGatePassed)
	c.RiskAcceptanceExpiryDays = clone(p.RiskAcceptanceExpiryDays)
	c.SecurityGate = product.GateThresholds{
		Critical: clone(p.SecurityGate.Critical),
		High:     clone(p.SecurityGate.High),
		Medium:   clone(p.SecurityGate.Medium),
		Low:      clone(p.SecurityGate.Low),
		None:     clone(p.SecurityGate.None),
		Unknown:  clone(p.SecurityGate.Unknown),
	}
	return &c
}

func cloneRule(r *rules.Rule) *rules.Rule {
	c := *r
	c.ProductID = clone(r.ProductID)
	return &c
}

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
