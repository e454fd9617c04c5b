// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scenario

import (
	"errors"
	"fmt"
)

var (
	// ErrVersionNotFound is returned when the baseline version id is
	// unknown to the ledger.
	ErrVersionNotFound = errors.New("baseline version not found")

	// ErrAccessDenied is returned when the baseline version belongs to a
	// different tenant than the caller. Deliberately distinct from
	// not-found so callers can map it to 403 rather than 404.
	ErrAccessDenied = errors.New("baseline version belongs to a different tenant")
)

// OverrideError reports an invalid key inside data or parameter overrides.
// Surfaced synchronously to the caller with the offending key.
type OverrideError struct {
	Key     string
	Message string
}

// Error implements the error interface.
func (e *OverrideError) Error() string {
	return fmt.Sprintf("invalid override %q: %s", e.Key, e.Message)
}

// IsOverrideError checks if an error is an *OverrideError.
func IsOverrideError(err error) bool {
	var oe *OverrideError
	return errors.As(err, &oe)
}
