// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"
)

// =============================================================================
// Constructor Tests
// =============================================================================

func TestNewLocalClient_RequiresStore(t *testing.T) {
	_, err := NewLocalClient(nil)
	assert.Error(t, err)
}

func TestNewRemoteClient_RequiresURL(t *testing.T) {
	_, err := NewRemoteClient("", 0)
	assert.Error(t, err)
}

func TestNewRemoteClient_TrimsTrailingSlash(t *testing.T) {
	client, err := NewRemoteClient("http://knowledge:8080/", 0)
	require.NoError(t, err)
	assert.True(t, client.Remote())
	assert.Equal(t, "http://knowledge:8080", client.baseURL)
}

// =============================================================================
// Local Mode Tests
// =============================================================================

func TestClient_LocalDispatch(t *testing.T) {
	store := NewMemoryStore()
	client, err := NewLocalClient(store)
	require.NoError(t, err)
	assert.False(t, client.Remote())

	doc := datatypes.KnowledgeDocument{TenantID: "t1", DocumentID: "d1", Text: "reorder policy"}
	require.NoError(t, client.Ingest(context.Background(), doc))

	resp, err := client.Retrieve(context.Background(), datatypes.RetrievalRequest{
		TenantID: "t1", Goal: "reorder policy",
	})
	require.NoError(t, err)
	require.Len(t, resp.Snippets, 1)
	assert.Equal(t, "d1", resp.Snippets[0].DocumentID)
}

// =============================================================================
// Remote Mode Tests
// =============================================================================

func TestClient_RemoteIngestAndRetrieve(t *testing.T) {
	var ingested []datatypes.KnowledgeDocument
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		switch r.URL.Path {
		case "/v1/datasets/documents":
			var doc datatypes.KnowledgeDocument
			require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
			ingested = append(ingested, doc)
			w.WriteHeader(http.StatusCreated)
		case "/v1/retrieve":
			var req datatypes.RetrievalRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "t1", req.TenantID)
			json.NewEncoder(w).Encode(datatypes.RetrievalResponse{
				Goal: req.Goal,
				Snippets: []datatypes.KnowledgeSnippet{
					{DocumentID: "remote-doc", Text: "remote text", Score: 0.9},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := NewRemoteClient(server.URL, 0)
	require.NoError(t, err)

	docs := []datatypes.KnowledgeDocument{
		{TenantID: "t1", DocumentID: "d1", Text: "one"},
		{TenantID: "t1", DocumentID: "d2", Text: "two"},
	}
	require.NoError(t, client.BatchIngest(context.Background(), docs))
	assert.Len(t, ingested, 2)

	resp, err := client.Retrieve(context.Background(), datatypes.RetrievalRequest{
		TenantID: "t1", Goal: "anything",
	})
	require.NoError(t, err)
	require.Len(t, resp.Snippets, 1)
	assert.Equal(t, "remote-doc", resp.Snippets[0].DocumentID)
}

func TestClient_RemoteNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewRemoteClient(server.URL, 0)
	require.NoError(t, err)

	_, err = client.Retrieve(context.Background(), datatypes.RetrievalRequest{
		TenantID: "t1", Goal: "anything",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "backend exploded")
}

func TestClient_RemoteNullSnippetsNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"goal":"g","snippets":null}`))
	}))
	defer server.Close()

	client, err := NewRemoteClient(server.URL, 0)
	require.NoError(t, err)

	resp, err := client.Retrieve(context.Background(), datatypes.RetrievalRequest{
		TenantID: "t1", Goal: "g",
	})
	require.NoError(t, err)
	assert.NotNil(t, resp.Snippets)
	assert.Empty(t, resp.Snippets)
}

func TestClient_RemoteBatchIngestStopsAtFirstFailure(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client, err := NewRemoteClient(server.URL, 0)
	require.NoError(t, err)

	docs := []datatypes.KnowledgeDocument{
		{TenantID: "t1", DocumentID: "d1"},
		{TenantID: "t1", DocumentID: "d2"},
		{TenantID: "t1", DocumentID: "d3"},
	}
	err = client.BatchIngest(context.Background(), docs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 1")
	assert.Equal(t, 2, calls)
}
