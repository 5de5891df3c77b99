package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/triage/pkg/observation"
	"github.com/scan-io-git/triage/pkg/product"
	"github.com/scan-io-git/triage/pkg/rules"
	"github.com/scan-io-git/triage/pkg/store"
)

func intPtr(i int) *int { return &i }

func seededStore(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	for _, p := range []*product.Product{
		{ID: 1, Name: "shop", ApplyGeneralRules: true},
		{ID: 2, Name: "api", ApplyGeneralRules: true, ProductGroupID: intPtr(10)},
		{ID: 3, Name: "legacy"},
		{ID: 10, Name: "group", IsProductGroup: true},
	} {
		require.NoError(t, mem.SaveProduct(ctx, p))
	}
	for i, productID := range []int{1, 2, 3, 1} {
		o := &observation.Observation{ProductID: productID, Title: "Test finding", ParserSeverity: observation.SeverityHigh}
		observation.Normalize(o)
		o.ID = 100 + i
		require.NoError(t, mem.SaveObservation(ctx, o))
	}
	require.NoError(t, mem.SaveRule(ctx, &rules.Rule{
		Name:           "tests are low",
		Type:           rules.TypeFields,
		Enabled:        true,
		ApprovalStatus: rules.ApprovalApproved,
		Title:          "Test",
		NewSeverity:    observation.SeverityLow,
	}))
	return mem
}

func collaborators(mem *store.Memory) rules.Collaborators {
	return rules.Collaborators{Rules: mem, Products: mem, Observations: mem, Logs: mem}
}

func TestApplyRulesForAllProducts(t *testing.T) {
	ctx := context.Background()
	mem := seededStore(t)
	runner := New(mem, collaborators(mem), nil, 3, nil)

	summary, err := runner.ApplyRulesForAllProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Products)
	assert.Equal(t, 4, summary.Observations)
	assert.Equal(t, 3, summary.Changed)

	legacy, err := mem.GetObservation(ctx, 102)
	require.NoError(t, err)
	assert.Equal(t, observation.SeverityHigh, legacy.CurrentSeverity)

	api, err := mem.GetObservation(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, observation.SeverityLow, api.CurrentSeverity)

	summary, err = runner.ApplyRulesForAllProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Changed)
}

type blockingLister struct {
	*store.Memory
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingLister) ListProducts(ctx context.Context) ([]*product.Product, error) {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return b.Memory.ListProducts(ctx)
}

func TestApplyRulesForAllProducts_SkipsConcurrentTrigger(t *testing.T) {
	ctx := context.Background()
	mem := seededStore(t)
	lister := &blockingLister{Memory: mem, entered: make(chan struct{}), release: make(chan struct{})}
	runner := New(lister, collaborators(mem), nil, 1, nil)

	done := make(chan error)
	go func() {
		_, err := runner.ApplyRulesForAllProducts(ctx)
		done <- err
	}()
	<-lister.entered

	_, err := runner.ApplyRulesForAllProducts(ctx)
	assert.True(t, errors.Is(err, ErrAlreadyRunning))

	close(lister.release)
	require.NoError(t, <-done)

	_, err = runner.ApplyRulesForAllProducts(ctx)
	assert.NoError(t, err)
}

type fakeGate struct {
	mu      sync.Mutex
	checked []int
	failOn  int
}

func (g *fakeGate) Check(_ context.Context, p *product.Product) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checked = append(g.checked, p.ID)
	if p.ID == g.failOn {
		return errors.New("boom")
	}
	return nil
}

func TestCheckAllSecurityGates(t *testing.T) {
	mem := seededStore(t)
	gate := &fakeGate{failOn: 3}
	runner := New(mem, collaborators(mem), gate, 2, nil)

	err := runner.CheckAllSecurityGates(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "legacy")
	assert.ElementsMatch(t, []int{1, 2, 3}, gate.checked)
}

func TestCheckAllSecurityGates_NoGate(t *testing.T) {
	mem := seededStore(t)
	assert.NoError(t, New(mem, collaborators(mem), nil, 1, nil).CheckAllSecurityGates(context.Background()))
}

func TestForEachProduct_Canceled(t *testing.T) {
	mem := seededStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	err := New(mem, collaborators(mem), nil, 1, nil).forEachProduct(ctx, func(context.Context, *product.Product) { calls++ })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
