package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/triage/pkg/observation"
	"github.com/scan-io-git/triage/pkg/product"
	"github.com/scan-io-git/triage/pkg/riskacceptance"
	"github.com/scan-io-git/triage/pkg/rules"
	"github.com/scan-io-git/triage/pkg/securitygate"
)

var (
	_ rules.RuleStore             = (*Memory)(nil)
	_ rules.ProductStore          = (*Memory)(nil)
	_ rules.ObservationStore      = (*Memory)(nil)
	_ rules.LogWriter             = (*Memory)(nil)
	_ securitygate.ProductStore   = (*Memory)(nil)
	_ riskacceptance.ProductStore = (*Memory)(nil)
)

func intPtr(i int) *int { return &i }

func seeded(t *testing.T) *Memory {
	t.Helper()
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.SaveProduct(ctx, &product.Product{ID: 1, Name: "zeta", ApplyGeneralRules: true}))
	require.NoError(t, m.SaveProduct(ctx, &product.Product{ID: 2, Name: "alpha", ProductGroupID: intPtr(10)}))
	require.NoError(t, m.SaveProduct(ctx, &product.Product{ID: 10, Name: "group", IsProductGroup: true, ApplyGeneralRules: true}))
	return m
}

func TestMemory_Products(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)

	all, err := m.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Name)

	members, err := m.GroupMembers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, 2, members[0].ID)

	general, err := m.ProductsWithGeneralRules(ctx)
	require.NoError(t, err)
	require.Len(t, general, 1)
	assert.Equal(t, 1, general[0].ID)

	_, err = m.GetProduct(ctx, 99)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)

	p, err := m.GetProduct(ctx, 2)
	require.NoError(t, err)
	*p.ProductGroupID = 99
	p.Name = "changed"

	again, err := m.GetProduct(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "alpha", again.Name)
	assert.Equal(t, 10, *again.ProductGroupID)

	o := &observation.Observation{ProductID: 1, Title: "t", CurrentPriority: intPtr(1)}
	require.NoError(t, m.SaveObservation(ctx, o))
	*o.CurrentPriority = 5
	stored, err := m.GetObservation(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, *stored.CurrentPriority)
}

func TestMemory_Observations(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)

	for _, o := range []*observation.Observation{
		{ProductID: 1, Title: "b", Parser: "Trivy", Scanner: "trivy / 1.0"},
		{ProductID: 1, Title: "a", Parser: "Trivy", Scanner: "trivy / 1.0"},
		{ProductID: 2, Title: "z", Parser: "Semgrep", Scanner: "semgrep"},
	} {
		require.NoError(t, m.SaveObservation(ctx, o))
		assert.NotZero(t, o.ID)
	}

	all, err := m.ListObservations(ctx, observation.Filter{})
	require.NoError(t, err)
	var titles []string
	for _, o := range all {
		titles = append(titles, o.Title)
	}
	assert.Equal(t, []string{"z", "a", "b"}, titles)

	trivy, err := m.ListObservations(ctx, observation.Filter{ProductIDs: []int{1, 2}, ScannerPrefix: "trivy"})
	require.NoError(t, err)
	assert.Len(t, trivy, 2)

	err = m.SaveObservation(ctx, &observation.Observation{ProductID: 42})
	assert.True(t, errors.Is(err, ErrNotFound))

	err = m.UpdateObservation(ctx, &observation.Observation{ID: 999, ProductID: 1})
	assert.True(t, errors.Is(err, ErrNotFound))

	deleted, err := m.DeleteObservation(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "z", deleted.Title)
	_, err = m.GetObservation(ctx, deleted.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemory_OpenSeverityCounts(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)
	require.NoError(t, m.SaveBranch(ctx, &product.Branch{ID: 7, ProductID: 1, Name: "main"}))
	require.NoError(t, m.SaveBranch(ctx, &product.Branch{ID: 8, ProductID: 1, Name: "dev"}))

	for _, o := range []*observation.Observation{
		{ProductID: 1, CurrentSeverity: "High", CurrentStatus: observation.StatusOpen},
		{ProductID: 1, CurrentSeverity: "Critical", CurrentStatus: observation.StatusOpen},
		{ProductID: 1, CurrentSeverity: "High", CurrentStatus: observation.StatusResolved},
		{ProductID: 1, BranchID: intPtr(7), CurrentSeverity: "Low", CurrentStatus: observation.StatusOpen},
		{ProductID: 1, BranchID: intPtr(8), CurrentSeverity: "Low", CurrentStatus: observation.StatusOpen},
		{ProductID: 2, CurrentSeverity: "High", CurrentStatus: observation.StatusOpen},
	} {
		require.NoError(t, m.SaveObservation(ctx, o))
	}

	counts, err := m.OpenSeverityCounts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, product.SeverityCounts{Critical: 1, High: 1}, counts)

	p, err := m.GetProduct(ctx, 1)
	require.NoError(t, err)
	p.RepositoryDefaultBranchID = intPtr(7)
	require.NoError(t, m.SaveProduct(ctx, p))

	counts, err = m.OpenSeverityCounts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, product.SeverityCounts{Low: 1}, counts)
}

func TestMemory_Rules(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)

	first := &rules.Rule{Name: "first", ProductID: intPtr(1)}
	general := &rules.Rule{Name: "general"}
	second := &rules.Rule{Name: "second", ProductID: intPtr(1)}
	for _, r := range []*rules.Rule{first, general, second} {
		require.NoError(t, m.SaveRule(ctx, r))
	}

	first.Enabled = true
	require.NoError(t, m.SaveRule(ctx, first))

	own, err := m.ProductRules(ctx, 1)
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, "first", own[0].Name)
	assert.True(t, own[0].Enabled)
	assert.Equal(t, "second", own[1].Name)

	generals, err := m.GeneralRules(ctx)
	require.NoError(t, err)
	require.Len(t, generals, 1)
	assert.Equal(t, general.ID, generals[0].ID)
}

func TestMemory_Logs(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.WriteLog(ctx, &observation.Log{ID: "a", ObservationID: 1, Severity: "High", CreatedAt: now}))
	require.NoError(t, m.WriteLog(ctx, &observation.Log{ID: "b", ObservationID: 2}))
	require.NoError(t, m.WriteLog(ctx, &observation.Log{ID: "c", ObservationID: 1, Status: "Open"}))

	logs, err := m.Logs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "a", logs[0].ID)
	assert.Equal(t, "c", logs[1].ID)
}
