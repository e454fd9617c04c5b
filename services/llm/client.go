// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm hosts the external compiler collaborators: functions that
// turn a goal plus retrieved context into a structured Optimization Problem
// Spec. The compile pipeline treats implementations as opaque: one
// invocation per compile, no retries, failure degrades to a stub.
package llm

import (
	"context"

	"github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"
)

// CompileRequest is everything a compiler backend receives: the goal text,
// the caller-supplied base metadata skeleton, the structured data inputs,
// the ranked knowledge snippets, and the matched playbook's guidance (empty
// when no playbook matched).
type CompileRequest struct {
	Goal               string
	BaseOPS            datatypes.OPSDocument
	DataInputs         map[string]interface{}
	Snippets           []datatypes.KnowledgeSnippet
	PlaybookGuidelines string
}

// Compiler is the standard interface for any OPS compiler backend.
//
// CompileOPS returns the compiled document, or a nil map / error on
// failure. Callers must treat nil-without-error and error identically: no
// usable output.
type Compiler interface {
	CompileOPS(ctx context.Context, req CompileRequest) (datatypes.OPSDocument, error)

	// ModelName identifies the backing model for telemetry.
	ModelName() string
}
