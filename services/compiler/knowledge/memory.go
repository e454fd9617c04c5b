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
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"
)

// Compile-time interface implementation check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is the in-process knowledge index: a token-frequency ranker
// over whole documents, intended for single-process deployments with
// moderate document counts.
//
// # Scoring
//
// Query and document are tokenized by lower-casing and splitting on
// whitespace (no stemming, no stopwording). Each candidate is scored by
// cosine similarity between raw term-frequency vectors:
//
//	dot(q, d) / (|q| * |d|)
//
// with L2 norms over raw counts and a 1.0 floor substituted for any
// zero-vector norm. Scores <= 0 are discarded. Ties keep insertion order.
//
// # Thread Safety
//
// All reads and writes serialize through a single mutex. Retrieval under
// lock is acceptable at the intended scale; nothing inside the critical
// section performs I/O.
type MemoryStore struct {
	mu sync.Mutex

	// docs maps tenant id -> document id -> document.
	docs map[string]map[string]datatypes.KnowledgeDocument

	// order maps tenant id -> document ids in first-insertion order. A
	// replaced document keeps its original position so tie-breaking stays
	// stable across upserts.
	order map[string][]string
}

// NewMemoryStore creates an empty in-memory knowledge store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string]map[string]datatypes.KnowledgeDocument),
		order: make(map[string][]string),
	}
}

// Upsert stores or fully replaces a document, last-write-wins per
// (tenant_id, document_id). Tenant and document ids are required.
func (s *MemoryStore) Upsert(_ context.Context, doc datatypes.KnowledgeDocument) error {
	if doc.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if doc.DocumentID == "" {
		return errors.New("document_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tenantDocs, ok := s.docs[doc.TenantID]
	if !ok {
		tenantDocs = make(map[string]datatypes.KnowledgeDocument)
		s.docs[doc.TenantID] = tenantDocs
	}
	if _, exists := tenantDocs[doc.DocumentID]; !exists {
		s.order[doc.TenantID] = append(s.order[doc.TenantID], doc.DocumentID)
	}
	tenantDocs[doc.DocumentID] = doc
	return nil
}

// BatchUpsert upserts sequentially and stops at the first failure.
func (s *MemoryStore) BatchUpsert(ctx context.Context, docs []datatypes.KnowledgeDocument) error {
	for i, doc := range docs {
		if err := s.Upsert(ctx, doc); err != nil {
			return fmt.Errorf("batch upsert failed at index %d (document %q): %w", i, doc.DocumentID, err)
		}
	}
	return nil
}

// Retrieve ranks the requesting tenant's documents against the goal text.
//
// Candidates are restricted to the tenant, then narrowed by project_id and
// the recognized filter keys "collection" and "schema_version" with AND
// semantics. No documents, or no positive-score documents, yields an empty
// response rather than an error.
func (s *MemoryStore) Retrieve(_ context.Context, req datatypes.RetrievalRequest) (*datatypes.RetrievalResponse, error) {
	if req.TenantID == "" {
		return nil, errors.New("tenant_id is required")
	}
	limit := datatypes.ClampLimit(req.Limit)
	queryVec := termFrequencies(req.Goal)

	s.mu.Lock()
	defer s.mu.Unlock()

	resp := &datatypes.RetrievalResponse{Goal: req.Goal, Snippets: []datatypes.KnowledgeSnippet{}}
	tenantDocs, ok := s.docs[req.TenantID]
	if !ok {
		return resp, nil
	}

	// Iterate in insertion order so the stable sort below breaks score
	// ties deterministically.
	for _, docID := range s.order[req.TenantID] {
		doc := tenantDocs[docID]
		if !matchesFilters(doc, req) {
			continue
		}
		score := cosineSimilarity(queryVec, termFrequencies(doc.Text))
		if score <= 0 {
			continue
		}
		resp.Snippets = append(resp.Snippets, datatypes.KnowledgeSnippet{
			DocumentID: doc.DocumentID,
			Text:       doc.Text,
			Score:      score,
			Metadata:   doc.Metadata,
		})
	}

	sort.SliceStable(resp.Snippets, func(i, j int) bool {
		return resp.Snippets[i].Score > resp.Snippets[j].Score
	})
	if len(resp.Snippets) > limit {
		resp.Snippets = resp.Snippets[:limit]
	}
	return resp, nil
}

// Len reports the number of documents stored for a tenant.
func (s *MemoryStore) Len(tenantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs[tenantID])
}

// matchesFilters applies project and recognized filter keys, all of which
// must match when present.
func matchesFilters(doc datatypes.KnowledgeDocument, req datatypes.RetrievalRequest) bool {
	if req.ProjectID != "" && doc.ProjectID != req.ProjectID {
		return false
	}
	if collection, ok := filterString(req.Filters, datatypes.FilterCollection); ok && doc.Collection != collection {
		return false
	}
	if schemaVersion, ok := filterString(req.Filters, datatypes.FilterSchemaVersion); ok {
		docVersion, _ := doc.Metadata[datatypes.FilterSchemaVersion]
		if fmt.Sprint(docVersion) != schemaVersion {
			return false
		}
	}
	return true
}

// filterString reads a filter value as its string form. Missing or empty
// values report absent.
func filterString(filters map[string]interface{}, key string) (string, bool) {
	raw, ok := filters[key]
	if !ok || raw == nil {
		return "", false
	}
	value := fmt.Sprint(raw)
	if value == "" {
		return "", false
	}
	return value, true
}

// termFrequencies tokenizes text into a raw term-count vector.
func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		freq[token]++
	}
	return freq
}

// cosineSimilarity computes dot(q,d) / (|q| * |d|) over raw counts. A
// zero-vector norm is floored to 1.0 so empty inputs score 0 instead of
// dividing by zero.
func cosineSimilarity(q, d map[string]int) float64 {
	var dot float64
	for term, qCount := range q {
		if dCount, ok := d[term]; ok {
			dot += float64(qCount) * float64(dCount)
		}
	}
	return dot / (vectorNorm(q) * vectorNorm(d))
}

func vectorNorm(v map[string]int) float64 {
	var sumSquares float64
	for _, count := range v {
		sumSquares += float64(count) * float64(count)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return 1.0
	}
	return norm
}
