// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"
)

func mustUpsert(t *testing.T, store *MemoryStore, docs ...datatypes.KnowledgeDocument) {
	t.Helper()
	require.NoError(t, store.BatchUpsert(context.Background(), docs))
}

// =============================================================================
// Upsert Tests
// =============================================================================

func TestMemoryStore_Upsert_RequiresIDs(t *testing.T) {
	store := NewMemoryStore()
	assert.Error(t, store.Upsert(context.Background(), datatypes.KnowledgeDocument{DocumentID: "d1"}))
	assert.Error(t, store.Upsert(context.Background(), datatypes.KnowledgeDocument{TenantID: "t1"}))
}

func TestMemoryStore_Upsert_LastWriteWins(t *testing.T) {
	store := NewMemoryStore()
	mustUpsert(t, store,
		datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "d1", Text: "old inventory notes"},
		datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "d1", Text: "new inventory notes"},
	)
	assert.Equal(t, 1, store.Len("t1"))

	resp, err := store.Retrieve(context.Background(), datatypes.RetrievalRequest{
		TenantID: "t1", Goal: "inventory notes",
	})
	require.NoError(t, err)
	require.Len(t, resp.Snippets, 1)
	assert.Equal(t, "new inventory notes", resp.Snippets[0].Text)
}

// =============================================================================
// Retrieval Ranking Tests
// =============================================================================

func TestMemoryStore_Retrieve_RanksByOverlap(t *testing.T) {
	store := NewMemoryStore()
	mustUpsert(t, store,
		datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "exact", Text: "seasonal demand forecast"},
		datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "partial", Text: "demand planning workshop agenda"},
		datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "unrelated", Text: "office seating chart"},
	)

	resp, err := store.Retrieve(context.Background(), datatypes.RetrievalRequest{
		TenantID: "t1", Goal: "seasonal demand forecast",
	})
	require.NoError(t, err)

	// Zero-overlap documents are dropped entirely
	require.Len(t, resp.Snippets, 2)
	assert.Equal(t, "exact", resp.Snippets[0].DocumentID)
	assert.Equal(t, "partial", resp.Snippets[1].DocumentID)
	assert.Greater(t, resp.Snippets[0].Score, resp.Snippets[1].Score)
	assert.InDelta(t, 1.0, resp.Snippets[0].Score, 1e-9)
}

func TestMemoryStore_Retrieve_ScoresMonotoneNonIncreasing(t *testing.T) {
	store := NewMemoryStore()
	mustUpsert(t, store,
		datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "a", Text: "pricing strategy for promotions"},
		datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "b", Text: "pricing notes"},
		datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "c", Text: "promotions calendar pricing strategy review"},
	)

	resp, err := store.Retrieve(context.Background(), datatypes.RetrievalRequest{
		TenantID: "t1", Goal: "pricing strategy promotions",
	})
	require.NoError(t, err)
	for i := 1; i < len(resp.Snippets); i++ {
		assert.GreaterOrEqual(t, resp.Snippets[i-1].Score, resp.Snippets[i].Score)
	}
}

func TestMemoryStore_Retrieve_TiesKeepInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	// Identical text scores identically; first inserted must rank first.
	mustUpsert(t, store,
		datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "first", Text: "fleet routing costs"},
		datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "second", Text: "fleet routing costs"},
	)

	resp, err := store.Retrieve(context.Background(), datatypes.RetrievalRequest{
		TenantID: "t1", Goal: "fleet routing",
	})
	require.NoError(t, err)
	require.Len(t, resp.Snippets, 2)
	assert.Equal(t, "first", resp.Snippets[0].DocumentID)
	assert.Equal(t, "second", resp.Snippets[1].DocumentID)
}

func TestMemoryStore_Retrieve_TieOrderSurvivesReplacement(t *testing.T) {
	store := NewMemoryStore()
	mustUpsert(t, store,
		datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "first", Text: "fleet routing costs"},
		datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "second", Text: "fleet routing costs"},
		// Replacing the first document must not demote it behind the second.
		datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "first", Text: "fleet routing costs"},
	)

	resp, err := store.Retrieve(context.Background(), datatypes.RetrievalRequest{
		TenantID: "t1", Goal: "fleet routing",
	})
	require.NoError(t, err)
	require.Len(t, resp.Snippets, 2)
	assert.Equal(t, "first", resp.Snippets[0].DocumentID)
}

func TestMemoryStore_Retrieve_CaseInsensitive(t *testing.T) {
	store := NewMemoryStore()
	mustUpsert(t, store,
		datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "d1", Text: "Reorder POINT Policy"},
	)

	resp, err := store.Retrieve(context.Background(), datatypes.RetrievalRequest{
		TenantID: "t1", Goal: "reorder point policy",
	})
	require.NoError(t, err)
	require.Len(t, resp.Snippets, 1)
	assert.InDelta(t, 1.0, resp.Snippets[0].Score, 1e-9)
}

func TestMemoryStore_Retrieve_EmptyGoalScoresZero(t *testing.T) {
	store := NewMemoryStore()
	mustUpsert(t, store,
		datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "d1", Text: "anything"},
	)

	resp, err := store.Retrieve(context.Background(), datatypes.RetrievalRequest{
		TenantID: "t1", Goal: "",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Snippets)
}

// =============================================================================
// Tenant and Filter Tests
// =============================================================================

func TestMemoryStore_Retrieve_TenantIsolation(t *testing.T) {
	store := NewMemoryStore()
	mustUpsert(t, store,
		datatypes.KnowledgeDocument{TenantID: "acme", DocumentID: "d1", Text: "acme warehouse capacity"},
		datatypes.KnowledgeDocument{TenantID: "globex", DocumentID: "d2", Text: "globex warehouse capacity"},
	)

	resp, err := store.Retrieve(context.Background(), datatypes.RetrievalRequest{
		TenantID: "acme", Goal: "warehouse capacity",
	})
	require.NoError(t, err)
	require.Len(t, resp.Snippets, 1)
	assert.Equal(t, "d1", resp.Snippets[0].DocumentID)
}

func TestMemoryStore_Retrieve_RequiresTenant(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Retrieve(context.Background(), datatypes.RetrievalRequest{Goal: "anything"})
	assert.Error(t, err)
}

func TestMemoryStore_Retrieve_FiltersAreConjunctive(t *testing.T) {
	store := NewMemoryStore()
	mustUpsert(t, store,
		datatypes.KnowledgeDocument{
			TenantID: "t1", ProjectID: "p1", DocumentID: "match",
			Collection: "inventory", Text: "demand history",
			Metadata: map[string]interface{}{"schema_version": "v2"},
		},
		datatypes.KnowledgeDocument{
			TenantID: "t1", ProjectID: "p1", DocumentID: "wrong-collection",
			Collection: "pricing", Text: "demand history",
			Metadata: map[string]interface{}{"schema_version": "v2"},
		},
		datatypes.KnowledgeDocument{
			TenantID: "t1", ProjectID: "p1", DocumentID: "wrong-version",
			Collection: "inventory", Text: "demand history",
			Metadata: map[string]interface{}{"schema_version": "v1"},
		},
		datatypes.KnowledgeDocument{
			TenantID: "t1", ProjectID: "p2", DocumentID: "wrong-project",
			Collection: "inventory", Text: "demand history",
			Metadata: map[string]interface{}{"schema_version": "v2"},
		},
	)

	resp, err := store.Retrieve(context.Background(), datatypes.RetrievalRequest{
		TenantID:  "t1",
		ProjectID: "p1",
		Goal:      "demand history",
		Filters: map[string]interface{}{
			datatypes.FilterCollection:    "inventory",
			datatypes.FilterSchemaVersion: "v2",
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Snippets, 1)
	assert.Equal(t, "match", resp.Snippets[0].DocumentID)
}

func TestMemoryStore_Retrieve_UnknownFilterKeysIgnored(t *testing.T) {
	store := NewMemoryStore()
	mustUpsert(t, store,
		datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "d1", Text: "demand history"},
	)

	resp, err := store.Retrieve(context.Background(), datatypes.RetrievalRequest{
		TenantID: "t1", Goal: "demand history",
		Filters: map[string]interface{}{"made_up_key": "whatever"},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Snippets, 1)
}

// =============================================================================
// Limit Clamp Tests
// =============================================================================

func TestMemoryStore_Retrieve_LimitClamped(t *testing.T) {
	store := NewMemoryStore()
	var docs []datatypes.KnowledgeDocument
	for i := 0; i < 30; i++ {
		docs = append(docs, datatypes.KnowledgeDocument{
			TenantID:   "t1",
			DocumentID: string(rune('a' + i)),
			Text:       "shift scheduling coverage",
		})
	}
	mustUpsert(t, store, docs...)

	tests := []struct {
		name      string
		limit     int
		wantCount int
	}{
		{"zero clamps to minimum", 0, 1},
		{"negative clamps to minimum", -5, 1},
		{"within range honored", 7, 7},
		{"above maximum clamps to 20", 100, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := store.Retrieve(context.Background(), datatypes.RetrievalRequest{
				TenantID: "t1", Goal: "shift scheduling coverage", Limit: tt.limit,
			})
			require.NoError(t, err)
			assert.Len(t, resp.Snippets, tt.wantCount)
		})
	}
}
