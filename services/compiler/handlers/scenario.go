// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/balureddy003/dyocense-sub002/services/compiler/observability"
	"github.com/balureddy003/dyocense-sub002/services/compiler/scenario"
)

// HandleCreateScenario derives a scenario version from a recorded baseline.
//
// # Description
//
// Maps engine failures onto HTTP semantics: an unknown baseline is 404, a
// cross-tenant baseline is 403 (deliberately distinct so a tenant cannot
// probe another tenant's version ids into existence), and bad overrides
// are 400.
func HandleCreateScenario(engine *scenario.Engine, metrics *observability.CompilerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req scenario.Request
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		mode := "clone"
		if req.Recompute {
			mode = "recompute"
		}

		result, err := engine.CreateScenario(c.Request.Context(), req)
		if err != nil {
			if metrics != nil {
				metrics.RecordScenario(mode, false)
			}
			switch {
			case errors.Is(err, scenario.ErrVersionNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, scenario.ErrAccessDenied):
				c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			case scenario.IsOverrideError(err):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				slog.Error("Scenario creation failed", "base_version_id", req.BaseVersionID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		if metrics != nil {
			metrics.RecordScenario(mode, true)
		}
		slog.Info("Scenario created",
			"tenant_id", req.TenantID,
			"base_version_id", result.BaseVersionID,
			"version_id", result.VersionID,
			"mode", mode,
			"diff_entries", len(result.Diff))
		c.JSON(http.StatusCreated, result)
	}
}
