// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/balureddy003/dyocense-sub002/services/compiler/handlers"
	"github.com/balureddy003/dyocense-sub002/services/compiler/knowledge"
	"github.com/balureddy003/dyocense-sub002/services/compiler/observability"
	"github.com/balureddy003/dyocense-sub002/services/compiler/scenario"
	"github.com/balureddy003/dyocense-sub002/services/compiler/services"
)

// SetupRoutes wires every HTTP endpoint onto the router.
//
// The knowledge store may be nil when this deployment delegates to a remote
// knowledge service; the local ingestion and retrieval routes are then not
// registered.
func SetupRoutes(router *gin.Engine, compile *services.CompileService,
	engine *scenario.Engine, store knowledge.Store, metrics *observability.CompilerMetrics) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		goals := v1.Group("/goals")
		{
			goals.POST("/compile", handlers.HandleCompileGoal(compile, metrics))
			goals.GET("/versions", handlers.ListGoalVersions(compile.Ledger()))
			goals.GET("/versions/:versionId", handlers.GetGoalVersion(compile.Ledger()))
		}

		v1.POST("/scenarios", handlers.HandleCreateScenario(engine, metrics))

		if store != nil {
			v1.POST("/datasets/documents", handlers.IngestDocument(store))
			v1.POST("/retrieve", handlers.RetrieveSnippets(store, metrics))
		}
	}
}
