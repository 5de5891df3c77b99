package triager

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/triage/internal/config"
	"github.com/scan-io-git/triage/internal/dataset"
	"github.com/scan-io-git/triage/pkg/notify"
	"github.com/scan-io-git/triage/pkg/observation"
	"github.com/scan-io-git/triage/pkg/product"
	"github.com/scan-io-git/triage/pkg/rules"
)

const datasetYAML = `
products:
  - id: 1
    name: api
    apply_general_rules: true
  - id: 2
    name: web
rules:
  - id: 10
    name: test code is low
    type: Fields
    enabled: true
    approval_status: Approved
    title: "^Test"
    new_severity: Low
observations:
  - id: 100
    product_id: 1
    parser: Semgrep
    scanner: semgrep
    title: Test credentials
    parser_severity: High
  - id: 101
    product_id: 2
    parser: Semgrep
    scanner: semgrep
    title: Test credentials
    parser_severity: High
`

const importYAML = `
observations:
  - parser: Gosec
    scanner: gosec / 2.18
    title: Test secret
    parser_severity: Critical
    origin_source_file: internal/db.go
    origin_source_line_start: 12
  - parser: Gosec
    scanner: gosec / 2.18
    title: Weak random
    parser_severity: Medium
`

type recordingNotifier struct {
	mu       sync.Mutex
	pushed   []int
	deleted  []string
	gates    map[string]*bool
	gateRuns int
}

func (n *recordingNotifier) PushObservation(_ context.Context, o *observation.Observation, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushed = append(n.pushed, o.ID)
	return nil
}

func (n *recordingNotifier) PushDeleted(_ context.Context, _ int, issueID string, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, issueID)
	return nil
}

func (n *recordingNotifier) SecurityGateChanged(_ context.Context, p *product.Product) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.gates == nil {
		n.gates = map[string]*bool{}
	}
	n.gates[p.Name] = p.SecurityGatePassed
	n.gateRuns++
	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTriager(t *testing.T) (*Triager, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	now := func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	tr := New(&config.Config{}, nil, Options{User: "ci", Notifier: n, Now: now})
	require.NoError(t, tr.LoadDataset(context.Background(), writeFile(t, "dataset.yml", datasetYAML)))
	return tr, n
}

func TestApplyRules_Product(t *testing.T) {
	ctx := context.Background()
	tr, n := newTriager(t)

	summary, err := tr.ApplyRules(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Products)
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, []int{100}, n.pushed)

	o, err := tr.Store.GetObservation(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, observation.SeverityLow, o.CurrentSeverity)
	require.NotNil(t, o.FieldsRule)
	assert.Equal(t, "test code is low", o.FieldsRule.Name)

	untouched, err := tr.Store.GetObservation(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, observation.SeverityHigh, untouched.CurrentSeverity)

	require.Contains(t, n.gates, "api")
	assert.True(t, *n.gates["api"])

	logs, err := tr.Store.Logs(ctx, 100)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "ci", logs[0].User)
}

func TestApplyRules_AllProducts(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTriager(t)

	summary, err := tr.ApplyRules(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Products)
	assert.Equal(t, 2, summary.Observations)
	assert.Equal(t, 1, summary.Changed)
}

func TestCheckGates(t *testing.T) {
	ctx := context.Background()
	tr, n := newTriager(t)

	checked, err := tr.CheckGates(ctx, 0)
	require.NoError(t, err)
	require.Len(t, checked, 2)
	for _, p := range checked {
		require.NotNil(t, p.SecurityGatePassed, p.Name)
		assert.False(t, *p.SecurityGatePassed, p.Name)
	}
	assert.Equal(t, 2, n.gateRuns)

	checked, err = tr.CheckGates(ctx, 2)
	require.NoError(t, err)
	require.Len(t, checked, 1)
	assert.Equal(t, "web", checked[0].Name)
	assert.Equal(t, 2, n.gateRuns, "unchanged result is not notified again")
}

func TestSimulate(t *testing.T) {
	ctx := context.Background()
	tr, n := newTriager(t)

	candidate := &rules.Rule{
		Name:           "credentials are false positives",
		Type:           rules.TypeFields,
		Enabled:        true,
		ApprovalStatus: rules.ApprovalApproved,
		Title:          ".*credentials",
		NewStatus:      observation.StatusFalsePositive,
	}
	count, sample, err := tr.Simulate(ctx, candidate, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, sample, 1)
	assert.Equal(t, 100, sample[0].ID)
	assert.Equal(t, observation.StatusOpen, sample[0].CurrentStatus)

	stored, err := tr.Store.GetObservation(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, observation.StatusOpen, stored.CurrentStatus)
	assert.Empty(t, n.pushed)
}

func TestImportObservations(t *testing.T) {
	ctx := context.Background()
	tr, n := newTriager(t)

	summary, err := tr.ImportObservations(ctx, 1, writeFile(t, "gosec.yml", importYAML))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Observations)
	assert.Equal(t, 1, summary.Changed)

	imported, err := tr.Store.ListObservations(ctx, observation.Filter{ProductIDs: []int{1}, Parser: "Gosec"})
	require.NoError(t, err)
	require.Len(t, imported, 2)
	assert.Equal(t, "Test secret", imported[0].Title)
	assert.Equal(t, observation.SeverityLow, imported[0].CurrentSeverity)
	assert.NotEmpty(t, imported[0].IdentityHash)
	assert.Equal(t, observation.SeverityMedium, imported[1].CurrentSeverity)

	p, err := tr.Store.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.True(t, p.HasSource)
	require.Contains(t, n.gates, "api")
	assert.False(t, *n.gates["api"])
}

func TestWriteDataset(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTriager(t)
	_, err := tr.ApplyRules(ctx, 1)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.yml")
	require.NoError(t, tr.WriteDataset(ctx, path))

	d, err := dataset.Load(path)
	require.NoError(t, err)
	require.Len(t, d.Observations, 2)
	assert.Equal(t, observation.SeverityLow, d.Observations[0].CurrentSeverity)
}

func TestNewNotifier(t *testing.T) {
	assert.IsType(t, &notify.Log{}, newNotifier(&config.Config{}, nil))

	cfg := &config.Config{Notifications: config.Notifications{SecurityGateWebhook: "https://hooks.example.com/gate"}}
	assert.IsType(t, &notify.Webhook{}, newNotifier(cfg, nil))
}
