// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extensions defines the injection points for hosted deployments.
//
// The self-hosted build runs fully offline with no-op defaults: every
// request acts as a single local user, all actions are allowed, billing
// links are absent, and audit events are discarded. A hosted deployment
// provides concrete implementations of these interfaces and injects them
// via ServiceOptions without modifying the core service.
//
// All implementations must be safe for concurrent use.
package extensions

// ServiceOptions groups the extension points handed to the service
// constructor. Nil fields behave like their no-op defaults.
type ServiceOptions struct {
	// AuthProvider validates bearer tokens.
	// Default: NopAuthProvider (always a valid local user).
	AuthProvider AuthProvider

	// AuthzProvider checks per-resource permissions.
	// Default: NopAuthzProvider (always allows).
	AuthzProvider AuthzProvider

	// BillingProvider produces checkout and portal links.
	// Default: NopBillingProvider (billing disabled).
	BillingProvider BillingProvider

	// AuditLogger records security-relevant events.
	// Default: NopAuditLogger (discards all events).
	AuditLogger AuditLogger
}

// DefaultOptions returns ServiceOptions with no-op defaults, the
// configuration used by the self-hosted version.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider:    &NopAuthProvider{},
		AuthzProvider:   &NopAuthzProvider{},
		BillingProvider: &NopBillingProvider{},
		AuditLogger:     &NopAuditLogger{},
	}
}

// WithAuth returns a copy of opts with the given AuthProvider.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}

// WithAuthz returns a copy of opts with the given AuthzProvider.
func (opts ServiceOptions) WithAuthz(provider AuthzProvider) ServiceOptions {
	opts.AuthzProvider = provider
	return opts
}

// WithBilling returns a copy of opts with the given BillingProvider.
func (opts ServiceOptions) WithBilling(provider BillingProvider) ServiceOptions {
	opts.BillingProvider = provider
	return opts
}

// WithAudit returns a copy of opts with the given AuditLogger.
func (opts ServiceOptions) WithAudit(logger AuditLogger) ServiceOptions {
	opts.AuditLogger = logger
	return opts
}
