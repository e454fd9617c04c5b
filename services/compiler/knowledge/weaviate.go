// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"
)

// Compile-time interface implementation check.
var _ Store = (*WeaviateStore)(nil)

// KnowledgeClassName is the Weaviate class holding knowledge documents.
const KnowledgeClassName = "KnowledgeDocument"

// dimensionProbeText is embedded once at construction to fix the collection
// dimensionality. The collection width is immutable afterward.
const dimensionProbeText = "dimension probe"

// WeaviateStore is the vector-backed knowledge index. Documents are embedded
// (remote embedding endpoint if configured, else the deterministic hashing
// fallback) and stored under a UUID derived from tenant_id:document_id, so
// re-ingestion of the same document replaces the previous object.
//
// # Thread Safety
//
// Safe for concurrent use; all mutable state lives in Weaviate and the
// underlying client is concurrency-safe.
type WeaviateStore struct {
	client     *weaviate.Client
	embedder   Embedder
	dimensions int
	logger     *slog.Logger
}

// NewWeaviateStore creates a vector-backed store and probes the embedder
// once to fix the vector dimensionality.
//
// # Inputs
//
//   - client: Weaviate client. Must not be nil.
//   - embedder: vector source. Must not be nil.
//
// # Outputs
//
//   - *WeaviateStore: ready-to-use store.
//   - error: non-nil if a dependency is nil or the dimension probe fails.
func NewWeaviateStore(ctx context.Context, client *weaviate.Client, embedder Embedder) (*WeaviateStore, error) {
	if client == nil {
		return nil, errors.New("weaviate client must not be nil")
	}
	if embedder == nil {
		return nil, errors.New("embedder must not be nil")
	}

	probe, err := embedder.Embed(ctx, dimensionProbeText)
	if err != nil {
		return nil, fmt.Errorf("dimension probe failed: %w", err)
	}
	if len(probe) == 0 {
		return nil, errors.New("embedder produced an empty probe vector")
	}

	return &WeaviateStore{
		client:     client,
		embedder:   embedder,
		dimensions: len(probe),
		logger:     slog.Default().With(slog.String("component", "weaviate_store")),
	}, nil
}

// Dimensions reports the probed vector width.
func (s *WeaviateStore) Dimensions() int {
	return s.dimensions
}

// EnsureSchema creates the knowledge class if it does not exist yet.
// Existing classes are left untouched.
func (s *WeaviateStore) EnsureSchema(ctx context.Context) error {
	_, err := s.client.Schema().ClassGetter().WithClassName(KnowledgeClassName).Do(ctx)
	if err == nil {
		s.logger.Info("schema already exists", "class", KnowledgeClassName)
		return nil
	}

	s.logger.Info("schema not found, creating it", "class", KnowledgeClassName)
	if err := s.client.Schema().ClassCreator().WithClass(knowledgeClass()).Do(ctx); err != nil {
		return fmt.Errorf("create schema for class %s: %w", KnowledgeClassName, err)
	}
	return nil
}

// Upsert embeds and stores a document. The object id is deterministic per
// (tenant_id, document_id), so storing twice replaces.
func (s *WeaviateStore) Upsert(ctx context.Context, doc datatypes.KnowledgeDocument) error {
	if doc.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if doc.DocumentID == "" {
		return errors.New("document_id is required")
	}

	vector, err := s.embedder.Embed(ctx, doc.Text)
	if err != nil {
		return fmt.Errorf("embed document %q: %w", doc.DocumentID, err)
	}
	if len(vector) != s.dimensions {
		return fmt.Errorf("embedder returned %d dimensions, collection is fixed at %d", len(vector), s.dimensions)
	}

	object, err := s.toObject(doc, vector)
	if err != nil {
		return err
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(object).Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate batch upsert: %w", err)
	}
	for _, item := range resp {
		if item.Result != nil && item.Result.Errors != nil && len(item.Result.Errors.Error) > 0 {
			return fmt.Errorf("weaviate rejected document %q: %s", doc.DocumentID, item.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// BatchUpsert upserts sequentially and stops at the first failure.
func (s *WeaviateStore) BatchUpsert(ctx context.Context, docs []datatypes.KnowledgeDocument) error {
	for i, doc := range docs {
		if err := s.Upsert(ctx, doc); err != nil {
			return fmt.Errorf("batch upsert failed at index %d (document %q): %w", i, doc.DocumentID, err)
		}
	}
	return nil
}

// Retrieve issues a filtered nearest-neighbor query and maps hits back into
// snippets. The tenant filter is always applied; project and collection
// filters are added when present.
func (s *WeaviateStore) Retrieve(ctx context.Context, req datatypes.RetrievalRequest) (*datatypes.RetrievalResponse, error) {
	if req.TenantID == "" {
		return nil, errors.New("tenant_id is required")
	}
	limit := datatypes.ClampLimit(req.Limit)

	queryVector, err := s.embedder.Embed(ctx, req.Goal)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	operands := []*filters.WhereBuilder{
		filters.Where().
			WithPath([]string{"tenant_id"}).
			WithOperator(filters.Equal).
			WithValueString(req.TenantID),
	}
	if req.ProjectID != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"project_id"}).
			WithOperator(filters.Equal).
			WithValueString(req.ProjectID))
	}
	if collection, ok := filterString(req.Filters, datatypes.FilterCollection); ok {
		operands = append(operands, filters.Where().
			WithPath([]string{"collection"}).
			WithOperator(filters.Equal).
			WithValueString(collection))
	}
	where := filters.Where().WithOperator(filters.And).WithOperands(operands)

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(queryVector)

	fields := []graphql.Field{
		{Name: "document_id"},
		{Name: "text"},
		{Name: "metadata_json"},
		{Name: "_additional { certainty distance }"},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(KnowledgeClassName).
		WithFields(fields...).
		WithWhere(where).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate retrieval: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate retrieval: %s", result.Errors[0].Message)
	}

	return &datatypes.RetrievalResponse{
		Goal:     req.Goal,
		Snippets: parseSnippets(result),
	}, nil
}

// toObject builds the Weaviate object for a document. Metadata is carried
// as a JSON string property since Weaviate properties are flat.
func (s *WeaviateStore) toObject(doc datatypes.KnowledgeDocument, vector []float32) (*models.Object, error) {
	metadataJSON := "{}"
	if doc.Metadata != nil {
		raw, err := json.Marshal(doc.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata for document %q: %w", doc.DocumentID, err)
		}
		metadataJSON = string(raw)
	}

	return &models.Object{
		Class:  KnowledgeClassName,
		ID:     documentObjectID(doc.TenantID, doc.DocumentID),
		Vector: vector,
		Properties: map[string]interface{}{
			"tenant_id":     doc.TenantID,
			"project_id":    doc.ProjectID,
			"collection":    doc.Collection,
			"document_id":   doc.DocumentID,
			"text":          doc.Text,
			"metadata_json": metadataJSON,
		},
	}, nil
}

// documentObjectID derives a stable UUID from tenant_id:document_id so that
// upserts replace rather than duplicate.
func documentObjectID(tenantID, documentID string) strfmt.UUID {
	hash := sha256.Sum256([]byte(tenantID + ":" + documentID))
	id, _ := uuid.FromBytes(hash[:16])
	return strfmt.UUID(id.String())
}

// parseSnippets walks the GraphQL response shape; malformed
// entries are skipped rather than failing the whole retrieval.
func parseSnippets(result *models.GraphQLResponse) []datatypes.KnowledgeSnippet {
	snippets := []datatypes.KnowledgeSnippet{}

	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return snippets
	}
	objects, ok := data[KnowledgeClassName].([]interface{})
	if !ok {
		return snippets
	}

	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}

		snippet := datatypes.KnowledgeSnippet{
			DocumentID: getString(m, "document_id"),
			Text:       getString(m, "text"),
		}

		if metadataJSON := getString(m, "metadata_json"); metadataJSON != "" {
			var metadata map[string]interface{}
			if err := json.Unmarshal([]byte(metadataJSON), &metadata); err == nil && len(metadata) > 0 {
				snippet.Metadata = metadata
			}
		}

		if additional, ok := m["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				snippet.Score = certainty
			} else if distance, ok := additional["distance"].(float64); ok {
				snippet.Score = 1 - distance
			}
		}
		if snippet.Score < 0 {
			snippet.Score = 0
		}

		snippets = append(snippets, snippet)
	}
	return snippets
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// knowledgeClass is the schema definition for the knowledge collection.
// Vectorizer is "none": vectors are always supplied by the embedder.
func knowledgeClass() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       KnowledgeClassName,
		Description: "A tenant-scoped knowledge document used for goal compilation context.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:            "tenant_id",
				DataType:        []string{"text"},
				Description:     "Owning tenant. Every retrieval filters on this.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "project_id",
				DataType:        []string{"text"},
				Description:     "Optional owning project.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "collection",
				DataType:        []string{"text"},
				Description:     "Logical namespace for the document.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "document_id",
				DataType:        []string{"text"},
				Description:     "Stable caller-assigned document id.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "text",
				DataType:     []string{"text"},
				Description:  "The document body.",
				Tokenization: "word",
			},
			{
				Name:        "metadata_json",
				DataType:    []string{"text"},
				Description: "Open metadata map, JSON-encoded.",
			},
		},
	}
}
