// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// GoalVersion is one recorded compilation of a business goal. Versions are
// an audit trail: created exactly once, mutated only through annotation of
// non-identity fields, never deleted.
//
// A non-empty ParentVersionID marks the version as a scenario derived from
// a baseline. KnowledgeSnippets is a provenance snapshot of document ids,
// not live references.
type GoalVersion struct {
	VersionID         string                 `json:"version_id" bson:"version_id"`
	TenantID          string                 `json:"tenant_id" bson:"tenant_id"`
	ProjectID         string                 `json:"project_id" bson:"project_id"`
	Goal              string                 `json:"goal" bson:"goal"`
	OPS               OPSDocument            `json:"ops" bson:"ops"`
	DataInputs        map[string]interface{} `json:"data_inputs,omitempty" bson:"data_inputs,omitempty"`
	PlaybookID        string                 `json:"playbook_id,omitempty" bson:"playbook_id,omitempty"`
	KnowledgeSnippets []string               `json:"knowledge_snippets,omitempty" bson:"knowledge_snippets,omitempty"`
	ParentVersionID   string                 `json:"parent_version_id,omitempty" bson:"parent_version_id,omitempty"`
	Label             string                 `json:"label,omitempty" bson:"label,omitempty"`
	CreatedAt         time.Time              `json:"created_at" bson:"created_at"`
}

// Clone returns an independent copy of the version. OPS and DataInputs are
// deep-copied so callers can patch the clone without touching ledger state.
func (v *GoalVersion) Clone() *GoalVersion {
	if v == nil {
		return nil
	}
	out := *v
	out.OPS = DeepCopyMap(v.OPS)
	out.DataInputs = DeepCopyMap(v.DataInputs)
	out.KnowledgeSnippets = append([]string(nil), v.KnowledgeSnippets...)
	return &out
}

// VersionAnnotation carries the non-identity fields an annotate call may
// change. Nil pointers mean "leave as is"; tenant, project and version id
// are immutable by construction since they are not representable here.
type VersionAnnotation struct {
	Label           *string
	ParentVersionID *string
	OPS             OPSDocument
	DataInputs      map[string]interface{}
}
