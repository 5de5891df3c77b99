// Package riskacceptance computes when the acceptance of a risk runs out.
package riskacceptance

import (
	"context"
	"fmt"
	"time"

	"github.com/scan-io-git/triage/pkg/product"
)

// ProductStore looks up products and their groups.
type ProductStore interface {
	GetProduct(ctx context.Context, id int) (*product.Product, error)
}

// Policy takes the expiry period from the product, else from its product group, else
// the global default. A period of 0 days means accepted risks do not expire.
type Policy struct {
	products    ProductStore
	defaultDays int
	now         func() time.Time
}

// New creates a Policy. now defaults to time.Now.
func New(products ProductStore, defaultDays int, now func() time.Time) *Policy {
	if now == nil {
		now = time.Now
	}
	return &Policy{products: products, defaultDays: defaultDays, now: now}
}

// ExpiryDate returns the expiry date, at midnight UTC, for a risk accepted today in the
// given product. It returns nil if accepted risks of the product do not expire.
func (p *Policy) ExpiryDate(ctx context.Context, productID int) (*time.Time, error) {
	days, err := p.days(ctx, productID)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, nil
	}

	now := p.now().UTC()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	return &date, nil
}

func (p *Policy) days(ctx context.Context, productID int) (int, error) {
	prod, err := p.products.GetProduct(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("loading product %d: %w", productID, err)
	}
	if prod.RiskAcceptanceExpiryDays != nil {
		return *prod.RiskAcceptanceExpiryDays, nil
	}

	if prod.ProductGroupID != nil {
		group, err := p.products.GetProduct(ctx, *prod.ProductGroupID)
		if err != nil {
			return 0, fmt.Errorf("loading product group %d: %w", *prod.ProductGroupID, err)
		}
		if group.RiskAcceptanceExpiryDays != nil {
			return *group.RiskAcceptanceExpiryDays, nil
		}
	}
	return p.defaultDays, nil
}
