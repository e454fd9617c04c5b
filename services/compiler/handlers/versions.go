// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/balureddy003/dyocense-sub002/services/compiler/ledger"
)

// GetGoalVersion serves one recorded version by id.
//
// The tenant_id query parameter is mandatory and must match the version's
// owner; a mismatch reads as 404, not 403, so ids cannot be probed across
// tenants on the read path.
func GetGoalVersion(versions *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Query("tenant_id")
		if tenantID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id query parameter is required"})
			return
		}

		version := versions.Get(c.Param("versionId"))
		if version == nil || version.TenantID != tenantID {
			c.JSON(http.StatusNotFound, gin.H{"error": "version not found"})
			return
		}
		c.JSON(http.StatusOK, version)
	}
}

// ListGoalVersions lists a tenant's versions, optionally scoped to one
// project via the project_id query parameter. Insertion order.
func ListGoalVersions(versions *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Query("tenant_id")
		if tenantID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id query parameter is required"})
			return
		}

		projectID := c.Query("project_id")
		var list interface{}
		if projectID != "" {
			list = versions.ListForProject(tenantID, projectID)
		} else {
			list = versions.ListForTenant(tenantID)
		}
		c.JSON(http.StatusOK, gin.H{"versions": list})
	}
}
