// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm holds the language-model collaborator: continuity checking,
// entity extraction, and streaming chat over a project's canon.
package llm

import (
	"context"

	"github.com/realmsync/realmsync/services/realmd/datatypes"
)

// StreamCallback receives one generated token at a time. Returning an
// error aborts the stream.
type StreamCallback func(token string) error

// CheckRequest asks for a continuity review of one document against the
// project's established canon.
type CheckRequest struct {
	DocumentTitle   string
	DocumentContent string
	CanonContext    string
}

// ExtractRequest asks for the entities and facts stated by one document.
type ExtractRequest struct {
	DocumentTitle   string
	DocumentContent string
	CanonContext    string
}

// ChatStreamRequest drives one turn of the project chat assistant.
type ChatStreamRequest struct {
	Messages     []datatypes.ChatMessage
	CanonContext string
}

// Client defines the model backend used by the check, extraction, and
// chat pipelines.
type Client interface {
	// Model identifies the configured model, used in cache keys.
	Model() string

	CheckContinuity(ctx context.Context, req CheckRequest) (datatypes.CheckResult, error)
	Extract(ctx context.Context, req ExtractRequest) (datatypes.ExtractionResult, error)
	ChatStream(ctx context.Context, req ChatStreamRequest, cb StreamCallback) error
}

// StaticClient is a Client returning canned results, for tests and for
// running the service without a model backend.
type StaticClient struct {
	ModelName    string
	CheckResult  datatypes.CheckResult
	Extraction   datatypes.ExtractionResult
	ChatTokens   []string
	Err          error
	CheckCalls   int
	ExtractCalls int
}

var _ Client = (*StaticClient)(nil)

func (s *StaticClient) Model() string {
	if s.ModelName == "" {
		return "static"
	}
	return s.ModelName
}

func (s *StaticClient) CheckContinuity(_ context.Context, _ CheckRequest) (datatypes.CheckResult, error) {
	s.CheckCalls++
	return s.CheckResult, s.Err
}

func (s *StaticClient) Extract(_ context.Context, _ ExtractRequest) (datatypes.ExtractionResult, error) {
	s.ExtractCalls++
	return s.Extraction, s.Err
}

func (s *StaticClient) ChatStream(_ context.Context, _ ChatStreamRequest, cb StreamCallback) error {
	if s.Err != nil {
		return s.Err
	}
	for _, token := range s.ChatTokens {
		if err := cb(token); err != nil {
			return err
		}
	}
	return nil
}
