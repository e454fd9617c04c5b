// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"
	"github.com/balureddy003/dyocense-sub002/services/compiler/knowledge"
	"github.com/balureddy003/dyocense-sub002/services/compiler/observability"
)

// IngestDocument stores one knowledge document in the backing store.
//
// This is the server side of the remote knowledge client: the request body
// is one datatypes.KnowledgeDocument, the same shape the client posts, so
// one deployment can serve as another's remote knowledge backend.
func IngestDocument(store knowledge.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var doc datatypes.KnowledgeDocument
		if err := c.BindJSON(&doc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}
		if doc.TenantID == "" || doc.DocumentID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id and document_id are required"})
			return
		}

		if err := store.Upsert(c.Request.Context(), doc); err != nil {
			slog.Error("Document ingestion failed",
				"tenant_id", doc.TenantID, "document_id", doc.DocumentID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		slog.Info("Document ingested", "tenant_id", doc.TenantID, "document_id", doc.DocumentID)
		c.JSON(http.StatusCreated, gin.H{
			"status":      "success",
			"document_id": doc.DocumentID,
		})
	}
}

// RetrieveSnippets ranks stored documents against a goal.
//
// Limits outside [1, 20] are clamped inside the store, not rejected here.
func RetrieveSnippets(store knowledge.Store, metrics *observability.CompilerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.RetrievalRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}
		if req.TenantID == "" || req.Goal == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id and goal are required"})
			return
		}

		resp, err := store.Retrieve(c.Request.Context(), req)
		if err != nil {
			if metrics != nil {
				metrics.RecordRetrievalFailure("local")
			}
			slog.Error("Snippet retrieval failed", "tenant_id", req.TenantID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
