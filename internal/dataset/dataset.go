// Package dataset reads and writes the YAML files the CLI works on: products, branches,
// rules and observations.
package dataset

import (
	"context"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/scan-io-git/triage/internal/config"
	"github.com/scan-io-git/triage/pkg/observation"
	"github.com/scan-io-git/triage/pkg/pipeline"
	"github.com/scan-io-git/triage/pkg/product"
	"github.com/scan-io-git/triage/pkg/rules"
	"github.com/scan-io-git/triage/pkg/store"
)

type Dataset struct {
	Products     []*product.Product         `yaml:"products"`
	Branches     []*product.Branch          `yaml:"branches,omitempty"`
	Rules        []*rules.Rule              `yaml:"rules,omitempty"`
	Observations []*observation.Observation `yaml:"observations,omitempty"`
}

// Load reads a dataset file.
func Load(path string) (*Dataset, error) {
	d := &Dataset{}
	if err := config.LoadYAML(path, d); err != nil {
		return nil, fmt.Errorf("loading dataset %q: %w", path, err)
	}
	return d, nil
}

// LoadObservations reads the observations of a dataset file, ignoring everything else.
func LoadObservations(path string) ([]*observation.Observation, error) {
	d, err := Load(path)
	if err != nil {
		return nil, err
	}
	return d.Observations, nil
}

// ValidateRules checks every rule and returns the aggregate of all invalid ones.
func (d *Dataset) ValidateRules(ctx context.Context) error {
	var errs []error
	for _, r := range d.Rules {
		if err := rules.ValidateRule(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}

// Populate stores the dataset. Products and rules go straight into mem, branches and
// observations through the pipeline so default branches, normalization and identity
// hashes are kept consistent. Rules must be valid.
func (d *Dataset) Populate(ctx context.Context, mem *store.Memory, p *pipeline.Pipeline) error {
	if err := d.ValidateRules(ctx); err != nil {
		return err
	}
	for _, prod := range d.Products {
		if err := mem.SaveProduct(ctx, prod); err != nil {
			return err
		}
	}
	for _, b := range d.Branches {
		if err := p.SaveBranch(ctx, b); err != nil {
			return err
		}
	}
	for _, r := range d.Rules {
		if err := mem.SaveRule(ctx, r); err != nil {
			return err
		}
	}
	for _, o := range d.Observations {
		if err := p.SaveObservation(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot collects the current content of mem.
func Snapshot(ctx context.Context, mem *store.Memory) (*Dataset, error) {
	d := &Dataset{}

	products, err := mem.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	d.Products = products

	general, err := mem.GeneralRules(ctx)
	if err != nil {
		return nil, err
	}
	d.Rules = append(d.Rules, general...)

	for _, prod := range products {
		branches, err := mem.ProductBranches(ctx, prod.ID)
		if err != nil {
			return nil, err
		}
		d.Branches = append(d.Branches, branches...)

		own, err := mem.ProductRules(ctx, prod.ID)
		if err != nil {
			return nil, err
		}
		d.Rules = append(d.Rules, own...)
	}

	d.Observations, err = mem.ListObservations(ctx, observation.Filter{})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Write stores d as YAML at path.
func (d *Dataset) Write(path string) error {
	content, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("writing dataset %q: %w", path, err)
	}
	return nil
}
