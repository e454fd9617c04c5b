// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ValidateOPS Tests
// =============================================================================

func TestValidateOPS_WellFormed(t *testing.T) {
	ops := StubOPS("reduce inventory cost", nil, nil)
	assert.NoError(t, ValidateOPS(ops))
}

func TestValidateOPS_Nil(t *testing.T) {
	assert.Error(t, ValidateOPS(nil))
}

func TestValidateOPS_NamesEveryMissingSection(t *testing.T) {
	ops := OPSDocument{
		"objective":  map[string]interface{}{},
		"parameters": map[string]interface{}{},
	}
	err := ValidateOPS(ops)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decision_variables")
	assert.Contains(t, err.Error(), "constraints")
	assert.Contains(t, err.Error(), "kpis")
	assert.NotContains(t, err.Error(), "objective")
}

func TestValidateOPS_ExtraSectionsAllowed(t *testing.T) {
	ops := StubOPS("goal", nil, nil)
	ops["solver_hints"] = map[string]interface{}{"time_limit_s": 30}
	assert.NoError(t, ValidateOPS(ops))
}

// =============================================================================
// StubOPS Tests
// =============================================================================

func TestStubOPS_CarriesGoalAndProvenance(t *testing.T) {
	snippets := []KnowledgeSnippet{
		{DocumentID: "doc-1", Text: "lead times", Score: 0.8},
		{DocumentID: "doc-2", Text: "warehouse limits", Score: 0.4},
	}
	pb := &DecisionPlaybook{ID: "inventory_baseline", Version: "1.0"}

	ops := StubOPS("keep stock lean", snippets, pb)
	require.NoError(t, ValidateOPS(ops))

	objective, ok := ops["objective"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "minimize", objective["sense"])
	assert.Equal(t, "keep stock lean", objective["description"])

	meta, ok := ops["metadata"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "stub", meta["source"])
	assert.Equal(t, []string{"doc-1", "doc-2"}, meta["knowledge_snippets"])
	assert.Equal(t, "inventory_baseline", meta["playbook_id"])
	assert.Equal(t, "1.0", meta["playbook_version"])
}

func TestStubOPS_NoProvenance(t *testing.T) {
	ops := StubOPS("goal", nil, nil)
	meta := ops["metadata"].(map[string]interface{})
	assert.NotContains(t, meta, "knowledge_snippets")
	assert.NotContains(t, meta, "playbook_id")
}

// =============================================================================
// Section Accessor Tests
// =============================================================================

func TestOPSMetadata_CreatesAndAliases(t *testing.T) {
	ops := OPSDocument{}
	meta := OPSMetadata(ops)
	meta["tenant_id"] = "acme"

	again := OPSMetadata(ops)
	assert.Equal(t, "acme", again["tenant_id"])
}

func TestOPSParameters_ReplacesWrongShape(t *testing.T) {
	ops := OPSDocument{"parameters": "not a map"}
	params := OPSParameters(ops)
	params["budget"] = 100.0

	stored, ok := ops["parameters"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 100.0, stored["budget"])
}

// =============================================================================
// DeepCopyMap Tests
// =============================================================================

func TestDeepCopyMap_Independence(t *testing.T) {
	src := map[string]interface{}{
		"nested": map[string]interface{}{"key": "original"},
		"list":   []interface{}{map[string]interface{}{"item": 1}},
		"scalar": 42,
	}

	dst := DeepCopyMap(src)
	dst["nested"].(map[string]interface{})["key"] = "changed"
	dst["list"].([]interface{})[0].(map[string]interface{})["item"] = 2

	assert.Equal(t, "original", src["nested"].(map[string]interface{})["key"])
	assert.Equal(t, 1, src["list"].([]interface{})[0].(map[string]interface{})["item"])
}

func TestDeepCopyMap_Nil(t *testing.T) {
	assert.Nil(t, DeepCopyMap(nil))
}
