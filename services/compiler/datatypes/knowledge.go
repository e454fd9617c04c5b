// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// KnowledgeDocument is a unit of tenant-scoped reference text. Documents are
// immutable once stored except by full replace: upsert is last-write-wins
// per (tenant_id, document_id).
type KnowledgeDocument struct {
	TenantID   string                 `json:"tenant_id" binding:"required"`
	ProjectID  string                 `json:"project_id,omitempty"`
	Collection string                 `json:"collection,omitempty"`
	DocumentID string                 `json:"document_id" binding:"required"`
	Text       string                 `json:"text"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// KnowledgeSnippet is a scored retrieval result. Snippets are produced only
// by retrieval and are never persisted independently; Metadata is copied
// from the source document.
type KnowledgeSnippet struct {
	DocumentID string                 `json:"document_id"`
	Text       string                 `json:"text"`
	Score      float64                `json:"score"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// RetrievalRequest scopes a ranked-snippet query. TenantID is mandatory;
// ProjectID and recognized Filters keys ("collection", "schema_version")
// narrow the candidate set with AND semantics.
type RetrievalRequest struct {
	TenantID  string                 `json:"tenant_id" binding:"required"`
	ProjectID string                 `json:"project_id,omitempty"`
	Goal      string                 `json:"goal"`
	Limit     int                    `json:"limit,omitempty"`
	Filters   map[string]interface{} `json:"filters,omitempty"`
}

// RetrievalResponse echoes the query goal alongside its ranked snippets.
// An empty Snippets slice is a normal outcome, not an error.
type RetrievalResponse struct {
	Goal     string             `json:"goal"`
	Snippets []KnowledgeSnippet `json:"snippets"`
}

// SnippetDocumentIDs extracts the document id of each snippet, preserving
// rank order. Used to stamp provenance into compiled documents.
func SnippetDocumentIDs(snippets []KnowledgeSnippet) []string {
	ids := make([]string, 0, len(snippets))
	for _, s := range snippets {
		ids = append(ids, s.DocumentID)
	}
	return ids
}

const (
	// FilterCollection restricts retrieval to one logical namespace.
	FilterCollection = "collection"

	// FilterSchemaVersion restricts retrieval to documents whose metadata
	// carries a matching schema_version.
	FilterSchemaVersion = "schema_version"

	// MinRetrievalLimit and MaxRetrievalLimit bound RetrievalRequest.Limit.
	MinRetrievalLimit = 1
	MaxRetrievalLimit = 20
)

// ClampLimit normalizes a requested snippet limit into [1, 20].
func ClampLimit(limit int) int {
	if limit < MinRetrievalLimit {
		return MinRetrievalLimit
	}
	if limit > MaxRetrievalLimit {
		return MaxRetrievalLimit
	}
	return limit
}
