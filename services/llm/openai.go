// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/realmsync/realmsync/services/realmd/datatypes"
	"github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client over the OpenAI chat completion API.
// Check and extraction calls run in JSON mode; chat runs as a token stream.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient reads OPENAI_API_KEY (falling back to the container
// secret file) and REALMSYNC_MODEL from the environment.
func NewOpenAIClient() (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API key from container secrets")
		} else {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}
	model := os.Getenv("REALMSYNC_MODEL")
	if model == "" {
		model = openai.GPT4oMini
		slog.Warn("REALMSYNC_MODEL not set, defaulting", "model", model)
	}
	slog.Info("Initializing OpenAI client", "model", model)
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

func (o *OpenAIClient) Model() string {
	return o.model
}

// CheckContinuity implements the Client interface. Documents beyond one
// chunk are checked chunk by chunk and the verdicts merged.
func (o *OpenAIClient) CheckContinuity(ctx context.Context, req CheckRequest) (datatypes.CheckResult, error) {
	var merged datatypes.CheckResult

	chunks, err := SplitDocument(req.DocumentContent)
	if err != nil {
		return merged, fmt.Errorf("split document: %w", err)
	}

	for i, chunk := range chunks {
		part := req
		part.DocumentContent = chunk

		var result datatypes.CheckResult
		raw, err := o.completeJSON(ctx, checkSystemPrompt, buildCheckPrompt(part))
		if err != nil {
			return merged, err
		}
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			slog.Error("Check response was not valid JSON", "chunk", i, "error", err)
			return merged, fmt.Errorf("decode check response: %w", err)
		}
		merged.Alerts = append(merged.Alerts, result.Alerts...)
		if merged.Summary == "" {
			merged.Summary = result.Summary
		}
	}
	return merged, nil
}

// Extract implements the Client interface. Long documents are split the
// same way as checks; entities repeated across chunks are deduplicated by
// name.
func (o *OpenAIClient) Extract(ctx context.Context, req ExtractRequest) (datatypes.ExtractionResult, error) {
	var merged datatypes.ExtractionResult

	chunks, err := SplitDocument(req.DocumentContent)
	if err != nil {
		return merged, fmt.Errorf("split document: %w", err)
	}

	seen := map[string]bool{}
	for i, chunk := range chunks {
		part := req
		part.DocumentContent = chunk

		var result datatypes.ExtractionResult
		raw, err := o.completeJSON(ctx, extractSystemPrompt, buildExtractPrompt(part))
		if err != nil {
			return merged, err
		}
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			slog.Error("Extraction response was not valid JSON", "chunk", i, "error", err)
			return merged, fmt.Errorf("decode extraction response: %w", err)
		}
		for _, e := range result.Entities {
			key := strings.ToLower(e.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged.Entities = append(merged.Entities, e)
		}
		merged.Facts = append(merged.Facts, result.Facts...)
	}
	return merged, nil
}

// ChatStream implements the Client interface.
func (o *OpenAIClient) ChatStream(ctx context.Context, req ChatStreamRequest, cb StreamCallback) error {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: buildChatSystemPrompt(req.CanonContext),
	})
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		slog.Error("OpenAI stream creation failed", "error", err)
		return fmt.Errorf("OpenAI stream creation failed: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("OpenAI stream receive failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		token := resp.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		if err := cb(token); err != nil {
			return err
		}
	}
}

// completeJSON runs one JSON-mode chat completion and returns the raw body
// of the first choice.
func (o *OpenAIClient) completeJSON(ctx context.Context, system, user string) (string, error) {
	slog.Debug("Generating JSON completion via OpenAI", "model", o.model)
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices")
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	slog.Debug("Received response from OpenAI", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
