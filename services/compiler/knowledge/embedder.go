// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package knowledge

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Embedder turns text into a fixed-dimension vector for the vector-backed
// store. Implementations must be deterministic per input for the dimension
// probe at store construction to be meaningful.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// =============================================================================
// Hashing Embedder
// =============================================================================

// defaultHashingDimensions is the vector width of the fallback embedder.
const defaultHashingDimensions = 256

// HashingEmbedder is the deterministic fallback used when no remote
// embedding backend is configured: a hashed bag-of-words vector normalized
// to unit length. It needs no network and always succeeds, which keeps the
// vector store usable in air-gapped deployments, at the cost of purely
// lexical similarity.
type HashingEmbedder struct {
	dimensions int
}

// NewHashingEmbedder creates a hashing embedder. Non-positive dimensions
// fall back to the default width.
func NewHashingEmbedder(dimensions int) *HashingEmbedder {
	if dimensions <= 0 {
		dimensions = defaultHashingDimensions
	}
	return &HashingEmbedder{dimensions: dimensions}
}

// Embed hashes each lower-cased whitespace token into a bucket, counts
// occurrences, and L2-normalizes the result. Empty text yields the zero
// vector.
func (e *HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[int(h.Sum32())%e.dimensions]++
	}

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return vec, nil
	}
	norm := float32(math.Sqrt(sumSquares))
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

// =============================================================================
// OpenAI Embedder
// =============================================================================

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. Any server
// speaking the API works (OpenAI, vLLM, LocalAI) since base URL and model
// are caller-supplied.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates an embedder against an OpenAI-compatible
// endpoint. baseURL may be empty for the public API; model is required.
func NewOpenAIEmbedder(apiKey, baseURL, model string) (*OpenAIEmbedder, error) {
	if model == "" {
		return nil, errors.New("embedding model is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.EmbeddingModel(model),
	}, nil
}

// Embed requests a single embedding. Transport and API failures propagate
// to the caller; the store degrades retrieval to empty results upstream.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response contained no vectors")
	}
	return resp.Data[0].Embedding, nil
}
