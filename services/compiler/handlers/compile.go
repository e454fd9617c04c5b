// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers exposes the goal compiler over HTTP.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/balureddy003/dyocense-sub002/services/compiler/observability"
	"github.com/balureddy003/dyocense-sub002/services/compiler/pipeline"
	"github.com/balureddy003/dyocense-sub002/services/compiler/services"
)

// CompileGoalRequest is the payload for POST /v1/goals/compile.
type CompileGoalRequest struct {
	Goal        string                 `json:"goal" binding:"required"`
	TenantID    string                 `json:"tenant_id" binding:"required"`
	ProjectID   string                 `json:"project_id"`
	DataInputs  map[string]interface{} `json:"data_inputs,omitempty"`
	UseLLM      bool                   `json:"use_llm"`
	ProblemType string                 `json:"problem_type,omitempty"`
	OPSVersion  string                 `json:"ops_version,omitempty"`
}

// CompileGoalResponse is the result of a compile request.
type CompileGoalResponse struct {
	VersionID         string                 `json:"version_id"`
	OPS               map[string]interface{} `json:"ops"`
	PlaybookID        string                 `json:"playbook_id,omitempty"`
	KnowledgeSnippets []string               `json:"knowledge_snippets"`
	Source            string                 `json:"source"`
	CreatedAt         time.Time              `json:"created_at"`
}

// HandleCompileGoal compiles a free-text goal into a recorded OPS version.
//
// # Description
//
// Runs the full pipeline (retrieval, playbook match, optional LLM compile),
// falls back to the deterministic stub when the compiler is disabled or
// produces a malformed document, and always records exactly one version.
// Degraded dependencies never surface as HTTP errors; only invalid input
// does.
func HandleCompileGoal(compile *services.CompileService, metrics *observability.CompilerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CompileGoalRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		if metrics != nil {
			metrics.CompileStarted()
			defer metrics.CompileEnded()
		}

		baseMeta := map[string]interface{}{}
		if req.ProblemType != "" {
			baseMeta["problem_type"] = req.ProblemType
		}
		if req.OPSVersion != "" {
			baseMeta["ops_version"] = req.OPSVersion
		}

		start := time.Now()
		version, err := compile.CompileAndRecord(c.Request.Context(), pipeline.CompileContext{
			Goal:       req.Goal,
			TenantID:   req.TenantID,
			ProjectID:  req.ProjectID,
			DataInputs: req.DataInputs,
			UseLLM:     req.UseLLM,
		}, baseMeta)
		if err != nil {
			slog.Error("Compile failed", "tenant_id", req.TenantID, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		source, _ := version.OPS["metadata"].(map[string]interface{})["source"].(string)
		if metrics != nil {
			metrics.RecordCompile(source, version.PlaybookID, time.Since(start).Seconds())
		}

		slog.Info("Goal compiled",
			"tenant_id", req.TenantID,
			"version_id", version.VersionID,
			"playbook_id", version.PlaybookID,
			"source", source)
		c.JSON(http.StatusCreated, CompileGoalResponse{
			VersionID:         version.VersionID,
			OPS:               version.OPS,
			PlaybookID:        version.PlaybookID,
			KnowledgeSnippets: version.KnowledgeSnippets,
			Source:            source,
			CreatedAt:         version.CreatedAt,
		})
	}
}
