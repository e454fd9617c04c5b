// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline implements the compile orchestrator: retrieve context,
// select a playbook, invoke the external compiler, and emit telemetry.
//
// The pipeline degrades rather than fails. Knowledge retrieval failure
// downgrades to an empty snippet list; compiler failure or disabled LLM
// leaves the artifacts without a document, and the caller substitutes the
// deterministic stub. Nothing in here retries, and nothing in here is
// fatal to compilation.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"
	"github.com/balureddy003/dyocense-sub002/services/compiler/knowledge"
	"github.com/balureddy003/dyocense-sub002/services/compiler/playbook"
	"github.com/balureddy003/dyocense-sub002/services/llm"
)

// pipelineTracer is the OpenTelemetry tracer for compile pipeline spans.
var pipelineTracer = otel.Tracer("dyocense.compiler.pipeline")

// defaultSnippetLimit is how many ranked snippets a compile retrieves when
// the caller does not say otherwise.
const defaultSnippetLimit = 5

// CompileContext carries the caller's compile inputs.
type CompileContext struct {
	Goal       string
	TenantID   string
	ProjectID  string
	DataInputs map[string]interface{}
	UseLLM     bool
}

// CompileArtifacts is everything a compile run produced. OPS is nil when
// the LLM was disabled or failed; Snippets and Playbook hold whatever
// provenance was collected either way, so the caller's stub fallback can
// still carry it.
type CompileArtifacts struct {
	OPS      datatypes.OPSDocument
	Snippets []datatypes.KnowledgeSnippet
	Playbook *datatypes.DecisionPlaybook
	Duration time.Duration
}

// Orchestrator runs the compile pipeline. All dependencies are injected;
// construct one per process and share it across request handlers.
type Orchestrator struct {
	knowledgeClient *knowledge.Client
	registry        *playbook.Registry
	compiler        llm.Compiler
	telemetry       *EventLog
}

// NewOrchestrator wires the pipeline. knowledgeClient and registry are
// required; compiler may be nil when the deployment runs stub-only, and
// telemetry may be nil to disable event capture.
func NewOrchestrator(
	knowledgeClient *knowledge.Client,
	registry *playbook.Registry,
	compiler llm.Compiler,
	telemetry *EventLog,
) (*Orchestrator, error) {
	if knowledgeClient == nil {
		return nil, errors.New("knowledge client must not be nil")
	}
	if registry == nil {
		return nil, errors.New("playbook registry must not be nil")
	}
	return &Orchestrator{
		knowledgeClient: knowledgeClient,
		registry:        registry,
		compiler:        compiler,
		telemetry:       telemetry,
	}, nil
}

// Telemetry exposes the pipeline's event log for audit endpoints and tests.
func (o *Orchestrator) Telemetry() *EventLog {
	return o.telemetry
}

// GenerateOPS runs one compile.
//
// # Description
//
// The pipeline:
//  1. Retrieves ranked snippets scoped to the tenant/project. Filters come
//     from baseOPS metadata: problem_type narrows the collection,
//     ops_version the schema version. Any retrieval error is downgraded to
//     an empty snippet list with a knowledge_retrieval_failed event.
//  2. Matches a playbook against the goal (playbook_selected or
//     playbook_not_found).
//  3. Stamps provenance into baseOPS metadata: snippet document ids, and
//     playbook id/version when matched. baseOPS is mutated in place.
//  4. If UseLLM is false, records llm_disabled and returns without a
//     document.
//  5. Otherwise invokes the external compiler once, timed. An
//     llm_compile_attempt event is recorded regardless of outcome; failure
//     or an empty result records llm_compile_failed and returns without a
//     document.
//
// # Outputs
//
//   - *CompileArtifacts: never nil. OPS is nil when no usable document was
//     produced; the caller owns shape validation and the stub fallback.
//   - error: reserved for invalid invocations (empty goal/tenant). Degraded
//     dependencies never surface here.
func (o *Orchestrator) GenerateOPS(ctx context.Context, compileCtx CompileContext, baseOPS datatypes.OPSDocument) (*CompileArtifacts, error) {
	ctx, span := pipelineTracer.Start(ctx, "Orchestrator.GenerateOPS")
	defer span.End()

	if compileCtx.Goal == "" {
		return nil, errors.New("goal must not be empty")
	}
	if compileCtx.TenantID == "" {
		return nil, errors.New("tenant_id must not be empty")
	}
	span.SetAttributes(
		attribute.String("tenant.id", compileCtx.TenantID),
		attribute.String("project.id", compileCtx.ProjectID),
		attribute.Bool("llm.enabled", compileCtx.UseLLM),
	)

	artifacts := &CompileArtifacts{
		Snippets: []datatypes.KnowledgeSnippet{},
	}

	// Step 1: retrieval, degrading to empty on any failure.
	retrievalReq := o.buildRetrievalRequest(compileCtx, baseOPS)
	resp, err := o.knowledgeClient.Retrieve(ctx, retrievalReq)
	if err != nil {
		slog.Warn("Knowledge retrieval failed, compiling without context",
			"tenant_id", compileCtx.TenantID, "error", err)
		o.telemetry.Record(EventKnowledgeRetrievalFailed, map[string]interface{}{
			"tenant_id": compileCtx.TenantID,
			"error":     err.Error(),
		})
		span.AddEvent("knowledge_retrieval_failed")
	} else {
		artifacts.Snippets = resp.Snippets
	}
	span.SetAttributes(attribute.Int("snippets.count", len(artifacts.Snippets)))

	// Step 2: playbook selection.
	if pb, ok := o.registry.Match(compileCtx.Goal); ok {
		artifacts.Playbook = pb
		o.telemetry.Record(EventPlaybookSelected, map[string]interface{}{
			"playbook_id":      pb.ID,
			"playbook_version": pb.Version,
		})
		span.SetAttributes(attribute.String("playbook.id", pb.ID))
	} else {
		o.telemetry.Record(EventPlaybookNotFound, map[string]interface{}{
			"goal": compileCtx.Goal,
		})
	}

	// Step 3: stamp provenance into the caller's skeleton.
	meta := datatypes.OPSMetadata(baseOPS)
	if len(artifacts.Snippets) > 0 {
		meta["knowledge_snippets"] = datatypes.SnippetDocumentIDs(artifacts.Snippets)
	}
	if artifacts.Playbook != nil {
		meta["playbook_id"] = artifacts.Playbook.ID
		meta["playbook_version"] = artifacts.Playbook.Version
	}

	// Step 4: honor the LLM switch.
	if !compileCtx.UseLLM || o.compiler == nil {
		o.telemetry.Record(EventLLMDisabled, map[string]interface{}{
			"goal": compileCtx.Goal,
		})
		return artifacts, nil
	}

	// Step 5: one compiler invocation, timed.
	guidelines := ""
	playbookID := ""
	if artifacts.Playbook != nil {
		guidelines = artifacts.Playbook.PromptGuidelines
		playbookID = artifacts.Playbook.ID
	}

	started := time.Now()
	ops, compileErr := o.compiler.CompileOPS(ctx, llm.CompileRequest{
		Goal:               compileCtx.Goal,
		BaseOPS:            baseOPS,
		DataInputs:         compileCtx.DataInputs,
		Snippets:           artifacts.Snippets,
		PlaybookGuidelines: guidelines,
	})
	artifacts.Duration = time.Since(started)

	o.telemetry.Record(EventLLMCompileAttempt, map[string]interface{}{
		"goal":          compileCtx.Goal,
		"playbook_id":   playbookID,
		"snippet_count": len(artifacts.Snippets),
		"duration_ms":   artifacts.Duration.Milliseconds(),
		"model":         o.compiler.ModelName(),
	})

	if compileErr != nil || len(ops) == 0 {
		if compileErr != nil {
			slog.Warn("OPS compilation failed, caller will fall back to stub",
				"tenant_id", compileCtx.TenantID, "error", compileErr)
			span.RecordError(compileErr)
		}
		span.SetStatus(codes.Error, "compiler produced no document")
		o.telemetry.Record(EventLLMCompileFailed, map[string]interface{}{
			"goal":  compileCtx.Goal,
			"error": errString(compileErr),
		})
		return artifacts, nil
	}

	artifacts.OPS = ops
	return artifacts, nil
}

// buildRetrievalRequest maps compile inputs onto the knowledge contract.
// Collection and schema-version filters come from the base metadata when
// present.
func (o *Orchestrator) buildRetrievalRequest(compileCtx CompileContext, baseOPS datatypes.OPSDocument) datatypes.RetrievalRequest {
	req := datatypes.RetrievalRequest{
		TenantID:  compileCtx.TenantID,
		ProjectID: compileCtx.ProjectID,
		Goal:      compileCtx.Goal,
		Limit:     defaultSnippetLimit,
	}

	meta, _ := baseOPS["metadata"].(map[string]interface{})
	filters := map[string]interface{}{}
	if problemType, ok := meta["problem_type"].(string); ok && problemType != "" {
		filters[datatypes.FilterCollection] = problemType
	}
	if opsVersion, ok := meta["ops_version"].(string); ok && opsVersion != "" {
		filters[datatypes.FilterSchemaVersion] = opsVersion
	}
	if len(filters) > 0 {
		req.Filters = filters
	}
	return req
}

func errString(err error) string {
	if err == nil {
		return "empty compiler output"
	}
	return err.Error()
}
