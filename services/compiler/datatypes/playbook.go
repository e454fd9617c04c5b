// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// DecisionPlaybook is a reusable, keyword-triggered template of domain
// guidance injected into compilation. Playbooks are static: loaded at
// startup, never mutated at runtime.
type DecisionPlaybook struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	Version          string   `json:"version" yaml:"version"`
	PromptGuidelines string   `json:"prompt_guidelines,omitempty" yaml:"prompt_guidelines,omitempty"`
	Keywords         []string `json:"keywords" yaml:"keywords"`
	Tags             []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}
