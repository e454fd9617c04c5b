// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package scenario derives new goal versions from a recorded baseline,
// either by recompiling with overridden inputs or by cloning and patching
// parameters, and reports a structural diff against the baseline.
package scenario

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"
	"github.com/balureddy003/dyocense-sub002/services/compiler/ledger"
	"github.com/balureddy003/dyocense-sub002/services/compiler/pipeline"
	"github.com/balureddy003/dyocense-sub002/services/compiler/services"
)

// scenarioTracer is the OpenTelemetry tracer for scenario spans.
var scenarioTracer = otel.Tracer("dyocense.compiler.scenario")

// Request describes one scenario derivation.
type Request struct {
	TenantID           string                 `json:"tenant_id" binding:"required"`
	BaseVersionID      string                 `json:"base_version_id" binding:"required"`
	Label              string                 `json:"label,omitempty"`
	GoalOverride       string                 `json:"goal_override,omitempty"`
	DataOverrides      map[string]interface{} `json:"data_overrides,omitempty"`
	ParameterOverrides map[string]interface{} `json:"parameter_overrides,omitempty"`
	Recompute          bool                   `json:"recompute"`
	UseLLM             bool                   `json:"use_llm"`
}

// Result is the scenario outcome returned to callers.
type Result struct {
	VersionID     string                `json:"version_id"`
	BaseVersionID string                `json:"base_version_id"`
	Label         string                `json:"label,omitempty"`
	Diff          []ParameterDiff       `json:"diff"`
	OPS           datatypes.OPSDocument `json:"ops"`
}

// Engine derives scenarios on top of the ledger and compile service.
//
// # Thread Safety
//
// Stateless apart from injected dependencies; safe for concurrent use.
type Engine struct {
	versions *ledger.Ledger
	compile  *services.CompileService
}

// NewEngine wires the engine. Both dependencies are required.
func NewEngine(versions *ledger.Ledger, compile *services.CompileService) (*Engine, error) {
	if versions == nil {
		return nil, errors.New("ledger must not be nil")
	}
	if compile == nil {
		return nil, errors.New("compile service must not be nil")
	}
	return &Engine{versions: versions, compile: compile}, nil
}

// CreateScenario derives a child version from a baseline.
//
// # Description
//
// Looks up the baseline (not-found and cross-tenant access are distinct,
// typed failures), computes the effective goal and data inputs (overrides
// merged one level deep), then either recompiles through the full pipeline
// or clones the baseline document. Parameter overrides are patched into
// the resulting document's parameters section, and the returned diff
// compares parameters only, baseline keys first.
//
// # Errors
//
//   - ErrVersionNotFound: unknown baseline id.
//   - ErrAccessDenied: baseline owned by a different tenant.
//   - *OverrideError: invalid key inside the override maps.
func (e *Engine) CreateScenario(ctx context.Context, req Request) (*Result, error) {
	ctx, span := scenarioTracer.Start(ctx, "Engine.CreateScenario")
	defer span.End()
	span.SetAttributes(
		attribute.String("scenario.base_version_id", req.BaseVersionID),
		attribute.Bool("scenario.recompute", req.Recompute),
	)

	baseline := e.versions.Get(req.BaseVersionID)
	if baseline == nil {
		return nil, ErrVersionNotFound
	}
	if baseline.TenantID != req.TenantID {
		return nil, ErrAccessDenied
	}

	if err := validateOverrideKeys(req.DataOverrides); err != nil {
		return nil, err
	}
	if err := validateOverrideKeys(req.ParameterOverrides); err != nil {
		return nil, err
	}

	effectiveGoal := baseline.Goal
	if req.GoalOverride != "" {
		effectiveGoal = req.GoalOverride
	}
	effectiveInputs := mergeDataInputs(baseline.DataInputs, req.DataOverrides)
	baselineParams := datatypes.OPSParameters(baseline.OPS)

	var scenarioVersion *datatypes.GoalVersion
	var err error
	if req.Recompute {
		scenarioVersion, err = e.recompute(ctx, req, baseline, effectiveGoal, effectiveInputs)
	} else {
		scenarioVersion, err = e.clone(ctx, req, baseline, effectiveGoal, effectiveInputs)
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("scenario.version_id", scenarioVersion.VersionID))
	return &Result{
		VersionID:     scenarioVersion.VersionID,
		BaseVersionID: baseline.VersionID,
		Label:         scenarioVersion.Label,
		Diff:          diffParameters(baselineParams, datatypes.OPSParameters(scenarioVersion.OPS)),
		OPS:           scenarioVersion.OPS,
	}, nil
}

// recompute runs the full compile pipeline against the effective inputs,
// then annotates lineage, label, and any patched parameters onto the
// freshly recorded version.
func (e *Engine) recompute(ctx context.Context, req Request, baseline *datatypes.GoalVersion, goal string, inputs map[string]interface{}) (*datatypes.GoalVersion, error) {
	compiled, err := e.compile.CompileAndRecord(ctx, pipeline.CompileContext{
		Goal:       goal,
		TenantID:   baseline.TenantID,
		ProjectID:  baseline.ProjectID,
		DataInputs: inputs,
		UseLLM:     req.UseLLM,
	}, retrievalHints(baseline.OPS))
	if err != nil {
		return nil, err
	}

	annotation := datatypes.VersionAnnotation{
		ParentVersionID: &baseline.VersionID,
	}
	if req.Label != "" {
		annotation.Label = &req.Label
	}
	if len(req.ParameterOverrides) > 0 {
		patched := datatypes.DeepCopyMap(compiled.OPS)
		applyParameterOverrides(datatypes.OPSParameters(patched), req.ParameterOverrides)
		annotation.OPS = patched
	}

	annotated := e.versions.Annotate(ctx, compiled.VersionID, annotation)
	if annotated == nil {
		// The version was recorded moments ago; a vanished id means the
		// ledger is broken, not the request.
		return nil, errors.New("recompiled version disappeared from ledger")
	}
	return annotated, nil
}

// clone deep-copies the baseline document, patches parameters, and records
// a new version without invoking the compiler.
func (e *Engine) clone(ctx context.Context, req Request, baseline *datatypes.GoalVersion, goal string, inputs map[string]interface{}) (*datatypes.GoalVersion, error) {
	ops := datatypes.DeepCopyMap(baseline.OPS)
	applyParameterOverrides(datatypes.OPSParameters(ops), req.ParameterOverrides)

	versionID := uuid.NewString()
	meta := datatypes.OPSMetadata(ops)
	meta["version_id"] = versionID
	meta["source"] = services.SourceClone

	version := &datatypes.GoalVersion{
		VersionID:         versionID,
		TenantID:          baseline.TenantID,
		ProjectID:         baseline.ProjectID,
		Goal:              goal,
		OPS:               ops,
		DataInputs:        inputs,
		PlaybookID:        baseline.PlaybookID,
		KnowledgeSnippets: append([]string(nil), baseline.KnowledgeSnippets...),
		ParentVersionID:   baseline.VersionID,
		Label:             req.Label,
		CreatedAt:         time.Now().UTC(),
	}
	if err := e.versions.Record(ctx, version); err != nil {
		return nil, err
	}
	return version, nil
}

// mergeDataInputs merges overrides onto the baseline inputs one level
// deep: a top-level key replaces unless both sides are maps, in which case
// they merge key-by-key. Nested maps beyond depth one replace wholesale.
func mergeDataInputs(baseline, overrides map[string]interface{}) map[string]interface{} {
	merged := datatypes.DeepCopyMap(baseline)
	if merged == nil {
		merged = map[string]interface{}{}
	}
	for key, override := range overrides {
		existingMap, existingIsMap := merged[key].(map[string]interface{})
		overrideMap, overrideIsMap := override.(map[string]interface{})
		if existingIsMap && overrideIsMap {
			for k, v := range overrideMap {
				existingMap[k] = deepCopyOverride(v)
			}
			continue
		}
		merged[key] = deepCopyOverride(override)
	}
	return merged
}

// applyParameterOverrides patches the parameters section in place: map
// values merge into existing maps, everything else replaces wholesale.
func applyParameterOverrides(params map[string]interface{}, overrides map[string]interface{}) {
	for key, override := range overrides {
		existingMap, existingIsMap := params[key].(map[string]interface{})
		overrideMap, overrideIsMap := override.(map[string]interface{})
		if existingIsMap && overrideIsMap {
			for k, v := range overrideMap {
				existingMap[k] = deepCopyOverride(v)
			}
			continue
		}
		params[key] = deepCopyOverride(override)
	}
}

// validateOverrideKeys rejects keys that can never address anything.
func validateOverrideKeys(overrides map[string]interface{}) error {
	for key := range overrides {
		if key == "" {
			return &OverrideError{Key: key, Message: "override keys must not be empty"}
		}
	}
	return nil
}

// retrievalHints extracts the baseline's retrieval-shaping metadata so a
// recompute retrieves against the same collection and schema version.
func retrievalHints(ops datatypes.OPSDocument) map[string]interface{} {
	hints := map[string]interface{}{}
	meta, _ := ops["metadata"].(map[string]interface{})
	for _, key := range []string{"problem_type", "ops_version"} {
		if v, ok := meta[key]; ok {
			hints[key] = v
		}
	}
	return hints
}

func deepCopyOverride(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		return datatypes.DeepCopyMap(typed)
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, item := range typed {
			out[i] = deepCopyOverride(item)
		}
		return out
	default:
		return v
	}
}
