// Package triager builds the triage services from the configuration and runs the
// operations of the CLI on a dataset.
package triager

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/triage/internal/config"
	"github.com/scan-io-git/triage/internal/dataset"
	"github.com/scan-io-git/triage/internal/httpclient"
	"github.com/scan-io-git/triage/internal/metrics"
	"github.com/scan-io-git/triage/internal/tasks"
	"github.com/scan-io-git/triage/pkg/notify"
	"github.com/scan-io-git/triage/pkg/observation"
	"github.com/scan-io-git/triage/pkg/pipeline"
	"github.com/scan-io-git/triage/pkg/product"
	"github.com/scan-io-git/triage/pkg/riskacceptance"
	"github.com/scan-io-git/triage/pkg/rules"
	"github.com/scan-io-git/triage/pkg/securitygate"
	"github.com/scan-io-git/triage/pkg/store"
)

// Notifier receives every outbound event.
type Notifier interface {
	rules.IssueTracker
	securitygate.Notifier
	pipeline.DeletionNotifier
}

type Options struct {
	// User is recorded on audit entries and notifications.
	User string
	// Notifier overrides the notifier built from the configuration.
	Notifier Notifier
	// Now defaults to time.Now.
	Now func() time.Time
}

// Triager holds the services working on one in-memory dataset.
type Triager struct {
	Store    *store.Memory
	Metrics  *metrics.Metrics
	Gate     *securitygate.Gate
	Pipeline *pipeline.Pipeline
	Tasks    *tasks.Runner
	Rules    rules.Collaborators

	cfg    *config.Config
	logger hclog.Logger
}

// New wires the services. Without a configured webhook, notifications are logged.
func New(cfg *config.Config, logger hclog.Logger, opts Options) *Triager {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = newNotifier(cfg, logger)
	}

	mem := store.NewMemory()
	m := metrics.New()
	gate := securitygate.New(mem, notifier, securitygate.Defaults{
		Active:     cfg.GateActive(),
		Thresholds: cfg.GateThresholds(),
	}, m, logger)

	c := rules.Collaborators{
		Rules:        mem,
		Products:     mem,
		Observations: mem,
		Logs:         mem,
		IssueTracker: notifier,
		Expiry:       riskacceptance.New(mem, cfg.ExpiryDays(), opts.Now),
		Gate:         gate,
		Metrics:      m,
		Now:          opts.Now,
		User:         opts.User,
	}

	return &Triager{
		Store:    mem,
		Metrics:  m,
		Gate:     gate,
		Pipeline: pipeline.New(mem, c, gate, notifier, logger),
		Tasks:    tasks.New(mem, c, gate, cfg.Workers(), logger),
		Rules:    c,
		cfg:      cfg,
		logger:   logger,
	}
}

func newNotifier(cfg *config.Config, logger hclog.Logger) Notifier {
	n := cfg.Notifications
	if n.IssueTrackerWebhook == "" && n.SecurityGateWebhook == "" {
		return notify.NewLog(logger)
	}
	httpc := httpclient.InitializeRestyClient(logger, cfg)
	return notify.NewWebhook(httpc, n.IssueTrackerWebhook, n.SecurityGateWebhook, logger)
}

// LoadDataset reads the dataset at path into the store.
func (t *Triager) LoadDataset(ctx context.Context, path string) error {
	d, err := dataset.Load(path)
	if err != nil {
		return err
	}
	if err := d.Populate(ctx, t.Store, t.Pipeline); err != nil {
		return fmt.Errorf("populating dataset %q: %w", path, err)
	}
	t.logger.Debug("dataset loaded", "path", path,
		"products", len(d.Products), "rules", len(d.Rules), "observations", len(d.Observations))
	return nil
}

// WriteDataset stores the current content of the store at path.
func (t *Triager) WriteDataset(ctx context.Context, path string) error {
	d, err := dataset.Snapshot(ctx, t.Store)
	if err != nil {
		return err
	}
	return d.Write(path)
}

// ApplyRules applies the rules of one product, or of all products when productID is 0.
func (t *Triager) ApplyRules(ctx context.Context, productID int) (rules.ApplySummary, error) {
	if productID == 0 {
		return t.Tasks.ApplyRulesForAllProducts(ctx)
	}
	p, err := t.Store.GetProduct(ctx, productID)
	if err != nil {
		return rules.ApplySummary{}, err
	}
	engine, err := rules.NewEngine(ctx, p, t.Rules, t.logger)
	if err != nil {
		return rules.ApplySummary{}, err
	}
	return engine.ApplyToProduct(ctx)
}

// Simulate previews r without changing anything.
func (t *Triager) Simulate(ctx context.Context, r *rules.Rule, maxObservations int) (int, []*observation.Observation, error) {
	if maxObservations <= 0 {
		maxObservations = t.cfg.MaxSimulationObservations()
	}
	return rules.NewSimulator(t.Rules, maxObservations, t.logger).Simulate(ctx, r)
}

// CheckGates recomputes the gate of one product, or of all products when productID is 0,
// and returns the products that are not groups with their results.
func (t *Triager) CheckGates(ctx context.Context, productID int) ([]*product.Product, error) {
	if productID == 0 {
		if err := t.Tasks.CheckAllSecurityGates(ctx); err != nil {
			return nil, err
		}
	} else if err := t.Pipeline.ProductGateSettingsChanged(ctx, productID); err != nil {
		return nil, err
	}

	all, err := t.Store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	var checked []*product.Product
	for _, p := range all {
		if p.IsProductGroup {
			continue
		}
		if productID == 0 || p.ID == productID || (p.ProductGroupID != nil && *p.ProductGroupID == productID) {
			checked = append(checked, p)
		}
	}
	return checked, nil
}

// ImportObservations imports the observations listed in the file at path into productID.
// Each is saved, gets the rules of the product applied and the gate is recomputed once.
func (t *Triager) ImportObservations(ctx context.Context, productID int, path string) (rules.ApplySummary, error) {
	observations, err := dataset.LoadObservations(path)
	if err != nil {
		return rules.ApplySummary{}, err
	}
	return t.Pipeline.ImportObservations(ctx, productID, observations)
}
