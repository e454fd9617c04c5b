// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"fmt"
	"strings"
)

// RequiredOPSSections are the top-level keys every compiled Optimization
// Problem Spec must carry. A document missing any of them is malformed and
// must be replaced by a stub before it is recorded.
var RequiredOPSSections = []string{
	"objective",
	"decision_variables",
	"parameters",
	"constraints",
	"kpis",
}

// OPSDocument is an open map: the compiler is free to add sections beyond
// the required five, and scenario patching operates on it generically.
type OPSDocument = map[string]interface{}

// ValidateOPS checks that ops carries all required top-level sections.
// Returns an error naming every missing section, or nil for a well-formed
// document. A nil document is always invalid.
func ValidateOPS(ops OPSDocument) error {
	if ops == nil {
		return fmt.Errorf("ops document is nil")
	}
	var missing []string
	for _, section := range RequiredOPSSections {
		if _, ok := ops[section]; !ok {
			missing = append(missing, section)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("ops document missing required sections: %s", strings.Join(missing, ", "))
	}
	return nil
}

// StubOPS builds the deterministic fallback document used when the external
// compiler produced nothing usable. The stub always satisfies ValidateOPS
// and carries whatever provenance (snippets, playbook) the pipeline managed
// to collect before the failure.
func StubOPS(goal string, snippets []KnowledgeSnippet, playbook *DecisionPlaybook) OPSDocument {
	meta := map[string]interface{}{
		"source": "stub",
	}
	if len(snippets) > 0 {
		meta["knowledge_snippets"] = SnippetDocumentIDs(snippets)
	}
	if playbook != nil {
		meta["playbook_id"] = playbook.ID
		meta["playbook_version"] = playbook.Version
	}
	return OPSDocument{
		"objective": map[string]interface{}{
			"sense":       "minimize",
			"expression":  "total_cost",
			"description": goal,
		},
		"decision_variables": []interface{}{},
		"parameters":         map[string]interface{}{},
		"constraints":        []interface{}{},
		"kpis":               []interface{}{},
		"metadata":           meta,
	}
}

// OPSMetadata returns the metadata submap of ops, creating it when absent.
// The returned map aliases the document, so writes stick.
func OPSMetadata(ops OPSDocument) map[string]interface{} {
	if ops == nil {
		return nil
	}
	if meta, ok := ops["metadata"].(map[string]interface{}); ok {
		return meta
	}
	meta := map[string]interface{}{}
	ops["metadata"] = meta
	return meta
}

// OPSParameters returns the parameters section as a map, creating it when
// absent or of the wrong shape.
func OPSParameters(ops OPSDocument) map[string]interface{} {
	if ops == nil {
		return nil
	}
	if params, ok := ops["parameters"].(map[string]interface{}); ok {
		return params
	}
	params := map[string]interface{}{}
	ops["parameters"] = params
	return params
}

// DeepCopyMap produces an independent copy of a JSON-shaped map. Nested
// map[string]interface{} and []interface{} values are copied recursively;
// scalars are shared (they are immutable).
func DeepCopyMap(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}
	return dst
}

func deepCopyValue(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		return DeepCopyMap(typed)
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, item := range typed {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
