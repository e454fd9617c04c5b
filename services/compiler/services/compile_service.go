// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package services provides the business logic between HTTP handlers and
// the compile pipeline: shape validation, stub fallback, version minting,
// and ledger recording.
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"
	"github.com/balureddy003/dyocense-sub002/services/compiler/ledger"
	"github.com/balureddy003/dyocense-sub002/services/compiler/pipeline"
)

// compileTracer is the OpenTelemetry tracer for compile service spans.
var compileTracer = otel.Tracer("dyocense.compiler.services.compile")

// OPS document source tags recorded in ops.metadata.source.
const (
	SourceLLM   = "llm"
	SourceStub  = "stub"
	SourceClone = "clone"
)

// CompileService owns the caller side of the compile contract: it runs the
// pipeline, guarantees the recorded document satisfies the OPS shape (stub
// fallback), stamps identity metadata, and records the resulting version.
//
// # Thread Safety
//
// Stateless apart from injected dependencies; safe for concurrent use.
type CompileService struct {
	orchestrator *pipeline.Orchestrator
	versions     *ledger.Ledger
}

// NewCompileService wires the service. Both dependencies are required.
func NewCompileService(orchestrator *pipeline.Orchestrator, versions *ledger.Ledger) (*CompileService, error) {
	if orchestrator == nil {
		return nil, errors.New("orchestrator must not be nil")
	}
	if versions == nil {
		return nil, errors.New("ledger must not be nil")
	}
	return &CompileService{orchestrator: orchestrator, versions: versions}, nil
}

// Ledger exposes the backing version ledger for read endpoints.
func (s *CompileService) Ledger() *ledger.Ledger {
	return s.versions
}

// Telemetry exposes the pipeline's event log.
func (s *CompileService) Telemetry() *pipeline.EventLog {
	return s.orchestrator.Telemetry()
}

// CompileAndRecord runs one full compile and records the version.
//
// # Description
//
// Builds the base-OPS skeleton from baseMeta (problem_type, ops_version and
// similar retrieval hints), runs the pipeline, and post-processes the
// artifacts per the degrade-to-stub contract: a missing or malformed
// document is replaced by the deterministic stub carrying whatever
// provenance the pipeline collected. The final document always satisfies
// the five-section shape, carries ops.metadata.version_id equal to the
// recorded version id, and is recorded exactly once.
//
// # Outputs
//
//   - *datatypes.GoalVersion: the recorded version (copy).
//   - error: invalid invocation only; degraded dependencies and compiler
//     failures produce a stub-backed version instead of an error.
func (s *CompileService) CompileAndRecord(ctx context.Context, compileCtx pipeline.CompileContext, baseMeta map[string]interface{}) (*datatypes.GoalVersion, error) {
	ctx, span := compileTracer.Start(ctx, "CompileService.CompileAndRecord")
	defer span.End()

	baseOPS := datatypes.OPSDocument{}
	meta := datatypes.OPSMetadata(baseOPS)
	for k, v := range baseMeta {
		meta[k] = v
	}
	meta["tenant_id"] = compileCtx.TenantID
	meta["project_id"] = compileCtx.ProjectID

	artifacts, err := s.orchestrator.GenerateOPS(ctx, compileCtx, baseOPS)
	if err != nil {
		return nil, err
	}

	ops := artifacts.OPS
	source := SourceLLM
	if validationErr := datatypes.ValidateOPS(ops); validationErr != nil {
		if ops != nil {
			slog.Warn("Compiled document failed shape validation, substituting stub",
				"tenant_id", compileCtx.TenantID, "error", validationErr)
		}
		ops = datatypes.StubOPS(compileCtx.Goal, artifacts.Snippets, artifacts.Playbook)
		source = SourceStub
	}

	// Carry the pipeline's provenance stamps (and the caller's retrieval
	// hints) into the final document, whatever its source.
	finalMeta := datatypes.OPSMetadata(ops)
	for k, v := range meta {
		finalMeta[k] = v
	}
	finalMeta["source"] = source

	versionID := uuid.NewString()
	finalMeta["version_id"] = versionID
	span.SetAttributes(
		attribute.String("version.id", versionID),
		attribute.String("ops.source", source),
	)

	version := &datatypes.GoalVersion{
		VersionID:         versionID,
		TenantID:          compileCtx.TenantID,
		ProjectID:         compileCtx.ProjectID,
		Goal:              compileCtx.Goal,
		OPS:               ops,
		DataInputs:        compileCtx.DataInputs,
		KnowledgeSnippets: datatypes.SnippetDocumentIDs(artifacts.Snippets),
		CreatedAt:         time.Now().UTC(),
	}
	if artifacts.Playbook != nil {
		version.PlaybookID = artifacts.Playbook.ID
	}

	if err := s.versions.Record(ctx, version); err != nil {
		return nil, err
	}
	return version, nil
}
