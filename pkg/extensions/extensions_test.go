// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.NotNil(t, opts.AuthProvider)
	require.NotNil(t, opts.AuthzProvider)
	require.NotNil(t, opts.BillingProvider)
	require.NotNil(t, opts.AuditLogger)
}

func TestNopAuthProvider(t *testing.T) {
	provider := &NopAuthProvider{}
	info, err := provider.Validate(context.Background(), "any-token")
	require.NoError(t, err)
	assert.Equal(t, "local-user", info.UserID)
	assert.True(t, info.HasRole("owner"))
	assert.False(t, info.HasRole("admin"))
}

func TestNopAuthzProvider(t *testing.T) {
	provider := &NopAuthzProvider{}
	err := provider.Authorize(context.Background(), AuthzRequest{
		User:         &AuthInfo{UserID: "anyone"},
		Action:       "delete",
		ResourceType: "project",
	})
	assert.NoError(t, err)
}

func TestNopBillingProvider(t *testing.T) {
	provider := &NopBillingProvider{}

	_, err := provider.CheckoutLink(context.Background(), "u1", "pro-monthly")
	assert.ErrorIs(t, err, ErrBillingDisabled)

	_, err = provider.PortalLink(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrBillingDisabled)

	products, err := provider.Products(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestWithBuilders(t *testing.T) {
	base := DefaultOptions()
	custom := base.WithAuth(nil).WithBilling(nil)
	assert.Nil(t, custom.AuthProvider)
	assert.Nil(t, custom.BillingProvider)
	// The original is unchanged.
	assert.NotNil(t, base.AuthProvider)
}
