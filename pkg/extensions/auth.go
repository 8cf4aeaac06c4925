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

// ErrUnauthorized is returned when authentication or authorization fails.
// Implementations should wrap this error with additional context:
//
//	return nil, fmt.Errorf("token expired: %w", extensions.ErrUnauthorized)
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo contains identity information returned after successful
// authentication. UserID is the only required field.
type AuthInfo struct {
	// UserID is the unique identifier for the authenticated user.
	UserID string

	// Email is the user's email address, if the provider knows it.
	Email string

	// Roles contains role memberships for authorization decisions.
	// Common roles: "owner", "editor", "viewer".
	Roles []string

	// Metadata holds additional provider-specific claims, so hosted
	// deployments can attach data without changing this struct.
	Metadata map[string]any
}

// HasRole checks if the user has a specific role.
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates bearer tokens and returns user identity.
//
// The open-source default is the session-token store wired in by the
// service; NopAuthProvider exists for offline single-user use. A hosted
// deployment can validate against an external identity provider instead.
type AuthProvider interface {
	// Validate checks the token and returns the user's identity.
	// Returns ErrUnauthorized (possibly wrapped) for invalid tokens.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// AuthzRequest describes one (subject, action, resource) permission check.
type AuthzRequest struct {
	// User is the authenticated user making the request.
	User *AuthInfo

	// Action is the operation being attempted:
	// "create", "read", "update", "delete".
	Action string

	// ResourceType is the record category: "project", "document",
	// "entity", "fact", "alert", "note".
	ResourceType string

	// ResourceID is the specific record, or empty for type-level checks.
	ResourceID string
}

// AuthzProvider checks if a user is authorized to perform an action.
type AuthzProvider interface {
	// Authorize returns nil when permitted and ErrUnauthorized
	// (possibly wrapped) when denied.
	Authorize(ctx context.Context, req AuthzRequest) error
}

// NopAuthProvider always returns a valid local user. It lets the
// self-hosted build run with no authentication infrastructure at all.
type NopAuthProvider struct{}

// Validate ignores the token and returns the local user.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID: "local-user",
		Roles:  []string{"owner"},
	}, nil
}

// NopAuthzProvider allows every action.
type NopAuthzProvider struct{}

// Authorize always returns nil.
func (p *NopAuthzProvider) Authorize(_ context.Context, _ AuthzRequest) error {
	return nil
}

var (
	_ AuthProvider  = (*NopAuthProvider)(nil)
	_ AuthzProvider = (*NopAuthzProvider)(nil)
)
