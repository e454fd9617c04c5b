// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"
)

// Compile-time interface implementation check.
var _ Compiler = (*OpenAICompiler)(nil)

const compilerSystemPrompt = "You are an optimization modeling assistant. " +
	"Given a business goal, supporting context and modeling guidance, emit a " +
	"single JSON object with exactly these top-level keys: objective, " +
	"decision_variables, parameters, constraints, kpis. Emit JSON only, no " +
	"prose."

// OpenAICompiler compiles goals through an OpenAI-compatible chat endpoint.
// Any server speaking the API works since base URL and model come from the
// environment.
type OpenAICompiler struct {
	client *openai.Client
	model  string
}

// NewOpenAICompiler reads OPENAI_API_KEY, OPENAI_BASE_URL and OPENAI_MODEL
// from the environment. The key may also be mounted as a container secret
// at /run/secrets/openai_api_key.
func NewOpenAICompiler() (*OpenAICompiler, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		raw, err := os.ReadFile(secretPath)
		if err != nil {
			slog.Error("OPENAI_API_KEY not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		apiKey = strings.TrimSpace(string(raw))
		slog.Info("Read the OpenAI API key from container secrets")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	slog.Info("Initializing OpenAI compiler backend", "model", model)
	return &OpenAICompiler{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// ModelName implements the Compiler interface.
func (o *OpenAICompiler) ModelName() string {
	return o.model
}

// CompileOPS implements the Compiler interface: one chat completion in JSON
// mode, parsed into an open document. No retries; the pipeline degrades to
// a stub on failure.
func (o *OpenAICompiler) CompileOPS(ctx context.Context, req CompileRequest) (datatypes.OPSDocument, error) {
	prompt, err := buildCompilePrompt(req)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: compilerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI returned no choices")
	}

	var ops datatypes.OPSDocument
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &ops); err != nil {
		return nil, fmt.Errorf("compiler output is not valid JSON: %w", err)
	}
	return ops, nil
}

// buildCompilePrompt assembles the user message: goal, base metadata, data
// inputs, numbered context snippets, then playbook guidance last so it
// reads as instructions.
func buildCompilePrompt(req CompileRequest) (string, error) {
	var sb strings.Builder

	sb.WriteString("Business goal:\n")
	sb.WriteString(req.Goal)
	sb.WriteString("\n")

	if len(req.BaseOPS) > 0 {
		baseJSON, err := json.Marshal(req.BaseOPS)
		if err != nil {
			return "", fmt.Errorf("marshal base ops: %w", err)
		}
		sb.WriteString("\nBase document (extend, do not discard):\n")
		sb.Write(baseJSON)
		sb.WriteString("\n")
	}

	if len(req.DataInputs) > 0 {
		inputsJSON, err := json.Marshal(req.DataInputs)
		if err != nil {
			return "", fmt.Errorf("marshal data inputs: %w", err)
		}
		sb.WriteString("\nStructured data inputs:\n")
		sb.Write(inputsJSON)
		sb.WriteString("\n")
	}

	if len(req.Snippets) > 0 {
		sb.WriteString("\nRetrieved context:\n")
		for i, snippet := range req.Snippets {
			sb.WriteString(fmt.Sprintf("[%d] (%s) %s\n", i+1, snippet.DocumentID, snippet.Text))
		}
	}

	if req.PlaybookGuidelines != "" {
		sb.WriteString("\nModeling guidance:\n")
		sb.WriteString(req.PlaybookGuidelines)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}
