// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"errors"
)

// ErrBillingDisabled is returned by the no-op provider. Handlers map it to
// a response telling the client billing is not configured.
var ErrBillingDisabled = errors.New("billing is not configured")

// Product describes one purchasable plan.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  int    `json:"price_cents"`
	Currency    string `json:"currency"`
	Interval    string `json:"interval,omitempty"` // "month", "year", or empty for one-time
}

// BillingProvider produces payment links for a hosted deployment. The
// self-hosted build uses NopBillingProvider, which reports billing as
// disabled; a hosted deployment can back this with Stripe or similar.
type BillingProvider interface {
	// CheckoutLink returns a URL where the user can purchase productID.
	CheckoutLink(ctx context.Context, userID, productID string) (string, error)

	// PortalLink returns a URL where the user can manage an existing
	// subscription.
	PortalLink(ctx context.Context, userID string) (string, error)

	// Products lists the purchasable plans.
	Products(ctx context.Context) ([]Product, error)
}

// NopBillingProvider is the default for self-hosted deployments.
type NopBillingProvider struct{}

func (p *NopBillingProvider) CheckoutLink(_ context.Context, _, _ string) (string, error) {
	return "", ErrBillingDisabled
}

func (p *NopBillingProvider) PortalLink(_ context.Context, _ string) (string, error) {
	return "", ErrBillingDisabled
}

// Products returns an empty list; the self-hosted build has nothing to sell.
func (p *NopBillingProvider) Products(_ context.Context) ([]Product, error) {
	return nil, nil
}

var _ BillingProvider = (*NopBillingProvider)(nil)
