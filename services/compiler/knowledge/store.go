// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package knowledge provides the tenant-scoped text index behind goal
// compilation: a pluggable Store (in-memory token-frequency ranker or a
// Weaviate-backed vector index) and a dual-mode Client that dispatches to a
// local store or a remote knowledge service.
package knowledge

import (
	"context"

	"github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"
)

// Store is the contract every knowledge backend satisfies.
//
// # Description
//
// Upsert is last-write-wins per (tenant_id, document_id). Retrieve returns
// ranked snippets scoped to the requesting tenant; an empty response is a
// normal outcome; retrieval is never a hard failure for lack of matches.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the compile pipeline
// calls Retrieve from multiple request-handling goroutines.
type Store interface {
	// Upsert stores or fully replaces a document.
	Upsert(ctx context.Context, doc datatypes.KnowledgeDocument) error

	// BatchUpsert stores documents sequentially, stopping at the first
	// failure.
	BatchUpsert(ctx context.Context, docs []datatypes.KnowledgeDocument) error

	// Retrieve returns snippets ranked by descending score, truncated to
	// the request limit (clamped to [1, 20]).
	Retrieve(ctx context.Context, req datatypes.RetrievalRequest) (*datatypes.RetrievalResponse, error)
}
