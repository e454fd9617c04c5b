// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package playbook holds the keyword-matched catalogue of reusable decision
// templates injected into goal compilation.
package playbook

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"
)

// Registry matches goals against a static, ordered playbook catalogue.
//
// Matching iterates playbooks in registration order: a playbook matches if
// any of its keywords appears as a case-insensitive whole word in the goal,
// and the first match wins. Order is therefore significant, which is why
// the registry is backed by a slice and never a map.
//
// # Thread Safety
//
// The catalogue is immutable after construction, so all methods are safe
// for concurrent use without locking.
type Registry struct {
	playbooks []datatypes.DecisionPlaybook
}

// NewRegistry creates a registry over the given playbooks, preserving their
// order. Duplicate ids and keyword-less playbooks are rejected: a playbook
// that can never match is a catalogue bug, not a runtime condition.
func NewRegistry(playbooks []datatypes.DecisionPlaybook) (*Registry, error) {
	seen := make(map[string]struct{}, len(playbooks))
	for _, pb := range playbooks {
		if pb.ID == "" {
			return nil, fmt.Errorf("playbook %q has an empty id", pb.Name)
		}
		if _, dup := seen[pb.ID]; dup {
			return nil, fmt.Errorf("duplicate playbook id %q", pb.ID)
		}
		seen[pb.ID] = struct{}{}
		if len(pb.Keywords) == 0 {
			return nil, fmt.Errorf("playbook %q has no keywords", pb.ID)
		}
	}
	return &Registry{playbooks: append([]datatypes.DecisionPlaybook(nil), playbooks...)}, nil
}

// LoadCatalogue reads a YAML playbook catalogue from disk and appends it
// after the built-in defaults, keeping file order.
//
// File shape:
//
//	playbooks:
//	  - id: inventory_baseline
//	    name: Inventory Baseline
//	    version: "1.0.0"
//	    keywords: [inventory, stock]
//	    prompt_guidelines: |
//	      ...
func LoadCatalogue(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playbook catalogue: %w", err)
	}

	var file struct {
		Playbooks []datatypes.DecisionPlaybook `yaml:"playbooks"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse playbook catalogue: %w", err)
	}

	return NewRegistry(append(Defaults(), file.Playbooks...))
}

// Match returns the first playbook whose keywords match the goal, or
// (nil, false) when nothing matches. No match is a normal outcome, not an
// error: goals outside every template compile without guidance.
func (r *Registry) Match(goal string) (*datatypes.DecisionPlaybook, bool) {
	loweredGoal := strings.ToLower(goal)
	for i := range r.playbooks {
		for _, keyword := range r.playbooks[i].Keywords {
			if containsWholeWord(loweredGoal, strings.ToLower(keyword)) {
				pb := r.playbooks[i]
				return &pb, true
			}
		}
	}
	return nil, false
}

// All returns the catalogue in registration order. The slice is a copy;
// callers cannot mutate the registry through it.
func (r *Registry) All() []datatypes.DecisionPlaybook {
	return append([]datatypes.DecisionPlaybook(nil), r.playbooks...)
}

// containsWholeWord reports whether keyword occurs in text bounded by
// non-alphanumeric runes on both sides. "rotation" does not match the
// keyword "rota"; "rota schedule" does. Both inputs must already be
// lower-cased.
func containsWholeWord(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	for start := 0; ; {
		idx := strings.Index(text[start:], keyword)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(keyword)

		leftBounded := idx == 0 || !isWordRune(rune(text[idx-1]))
		rightBounded := end == len(text) || !isWordRune(rune(text[end]))
		if leftBounded && rightBounded {
			return true
		}
		start = idx + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
