// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scenario

import (
	"reflect"
	"sort"
)

// ParameterDiff is one changed entry in a scenario's parameters, addressed
// by a "parameters.<key>" path. Before is nil for keys absent from the
// baseline.
type ParameterDiff struct {
	Path   string      `json:"path"`
	Before interface{} `json:"before"`
	After  interface{} `json:"after"`
}

// diffParameters compares only the parameters sections, by equality.
//
// Ordering is deterministic: baseline keys first, then keys new to the
// scenario, each group in sorted key order (the backing maps carry no
// insertion order to preserve).
func diffParameters(baseline, updated map[string]interface{}) []ParameterDiff {
	diff := []ParameterDiff{}

	baselineKeys := sortedKeys(baseline)
	for _, key := range baselineKeys {
		before := baseline[key]
		after, ok := updated[key]
		if ok && reflect.DeepEqual(before, after) {
			continue
		}
		diff = append(diff, ParameterDiff{
			Path:   "parameters." + key,
			Before: before,
			After:  after,
		})
	}

	for _, key := range sortedKeys(updated) {
		if _, inBaseline := baseline[key]; inBaseline {
			continue
		}
		diff = append(diff, ParameterDiff{
			Path:   "parameters." + key,
			Before: nil,
			After:  updated[key],
		})
	}

	return diff
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
