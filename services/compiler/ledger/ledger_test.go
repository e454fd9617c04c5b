// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"
)

// =============================================================================
// Test Fixtures
// =============================================================================

// fakeStore records saves and serves canned versions for hydration.
type fakeStore struct {
	mu       sync.Mutex
	existing []datatypes.GoalVersion
	saved    []datatypes.GoalVersion
	loadErr  error
	saveErr  error
}

func (f *fakeStore) LoadAll(context.Context) ([]datatypes.GoalVersion, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.existing, nil
}

func (f *fakeStore) Save(_ context.Context, version *datatypes.GoalVersion) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, *version)
	return nil
}

func (f *fakeStore) FindOne(_ context.Context, versionID string) (*datatypes.GoalVersion, error) {
	for i := range f.existing {
		if f.existing[i].VersionID == versionID {
			return &f.existing[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func testVersion(id, tenant, project string) *datatypes.GoalVersion {
	return &datatypes.GoalVersion{
		VersionID: id,
		TenantID:  tenant,
		ProjectID: project,
		Goal:      "reduce inventory cost",
		OPS: datatypes.OPSDocument{
			"objective":          map[string]interface{}{"sense": "minimize"},
			"decision_variables": []interface{}{},
			"parameters":         map[string]interface{}{"budget": 100.0},
			"constraints":        []interface{}{},
			"kpis":               []interface{}{},
		},
		CreatedAt: time.Now().UTC(),
	}
}

// =============================================================================
// Record / Get Tests
// =============================================================================

func TestLedger_RecordAndGet(t *testing.T) {
	l := New(context.Background(), nil)
	require.NoError(t, l.Record(context.Background(), testVersion("v1", "t1", "p1")))

	got := l.Get("v1")
	require.NotNil(t, got)
	assert.Equal(t, "t1", got.TenantID)
	assert.Nil(t, l.Get("unknown"))
}

func TestLedger_RecordValidation(t *testing.T) {
	l := New(context.Background(), nil)
	assert.Error(t, l.Record(context.Background(), nil))
	assert.Error(t, l.Record(context.Background(), &datatypes.GoalVersion{TenantID: "t1"}))
	assert.Error(t, l.Record(context.Background(), &datatypes.GoalVersion{VersionID: "v1"}))
}

func TestLedger_GetReturnsIsolatedCopy(t *testing.T) {
	l := New(context.Background(), nil)
	require.NoError(t, l.Record(context.Background(), testVersion("v1", "t1", "p1")))

	first := l.Get("v1")
	first.OPS["parameters"].(map[string]interface{})["budget"] = 999.0
	first.Label = "mutated"

	second := l.Get("v1")
	assert.Equal(t, 100.0, second.OPS["parameters"].(map[string]interface{})["budget"])
	assert.Empty(t, second.Label)
}

func TestLedger_RecordClonesInput(t *testing.T) {
	l := New(context.Background(), nil)
	version := testVersion("v1", "t1", "p1")
	require.NoError(t, l.Record(context.Background(), version))

	// Mutating the caller's struct after recording must not reach the ledger
	version.OPS["parameters"].(map[string]interface{})["budget"] = 0.0

	got := l.Get("v1")
	assert.Equal(t, 100.0, got.OPS["parameters"].(map[string]interface{})["budget"])
}

// =============================================================================
// Index Tests
// =============================================================================

func TestLedger_ListsInRecordingOrder(t *testing.T) {
	l := New(context.Background(), nil)
	require.NoError(t, l.Record(context.Background(), testVersion("v1", "t1", "p1")))
	require.NoError(t, l.Record(context.Background(), testVersion("v2", "t1", "p2")))
	require.NoError(t, l.Record(context.Background(), testVersion("v3", "t1", "p1")))
	require.NoError(t, l.Record(context.Background(), testVersion("x1", "t2", "p1")))

	tenant := l.ListForTenant("t1")
	require.Len(t, tenant, 3)
	assert.Equal(t, "v1", tenant[0].VersionID)
	assert.Equal(t, "v2", tenant[1].VersionID)
	assert.Equal(t, "v3", tenant[2].VersionID)

	project := l.ListForProject("t1", "p1")
	require.Len(t, project, 2)
	assert.Equal(t, "v1", project[0].VersionID)
	assert.Equal(t, "v3", project[1].VersionID)

	assert.Empty(t, l.ListForTenant("unknown"))
}

func TestLedger_ReRecordDoesNotDuplicateIndexes(t *testing.T) {
	l := New(context.Background(), nil)
	require.NoError(t, l.Record(context.Background(), testVersion("v1", "t1", "p1")))

	updated := testVersion("v1", "t1", "p1")
	updated.Label = "second write"
	require.NoError(t, l.Record(context.Background(), updated))

	assert.Len(t, l.ListForTenant("t1"), 1)
	assert.Len(t, l.ListForProject("t1", "p1"), 1)
	assert.Equal(t, "second write", l.Get("v1").Label)
}

// =============================================================================
// Annotate Tests
// =============================================================================

func TestLedger_Annotate(t *testing.T) {
	l := New(context.Background(), nil)
	require.NoError(t, l.Record(context.Background(), testVersion("v1", "t1", "p1")))

	label := "peak season"
	parent := "v0"
	updated := l.Annotate(context.Background(), "v1", datatypes.VersionAnnotation{
		Label:           &label,
		ParentVersionID: &parent,
	})
	require.NotNil(t, updated)
	assert.Equal(t, "peak season", updated.Label)
	assert.Equal(t, "v0", updated.ParentVersionID)

	// Identity fields and untouched data survive
	stored := l.Get("v1")
	assert.Equal(t, "t1", stored.TenantID)
	assert.Equal(t, "peak season", stored.Label)
	assert.Equal(t, 100.0, stored.OPS["parameters"].(map[string]interface{})["budget"])
}

func TestLedger_AnnotateUnknownIsNil(t *testing.T) {
	l := New(context.Background(), nil)
	label := "x"
	assert.Nil(t, l.Annotate(context.Background(), "nope", datatypes.VersionAnnotation{Label: &label}))
}

func TestLedger_AnnotateReplacesOPSByCopy(t *testing.T) {
	l := New(context.Background(), nil)
	require.NoError(t, l.Record(context.Background(), testVersion("v1", "t1", "p1")))

	patched := datatypes.OPSDocument{"parameters": map[string]interface{}{"budget": 50.0}}
	l.Annotate(context.Background(), "v1", datatypes.VersionAnnotation{OPS: patched})

	// The caller's map is not aliased by ledger state
	patched["parameters"].(map[string]interface{})["budget"] = -1.0
	assert.Equal(t, 50.0, l.Get("v1").OPS["parameters"].(map[string]interface{})["budget"])
}

// =============================================================================
// Persistence Tests
// =============================================================================

func TestLedger_HydratesFromStore(t *testing.T) {
	store := &fakeStore{existing: []datatypes.GoalVersion{
		*testVersion("v1", "t1", "p1"),
		*testVersion("v2", "t1", "p1"),
	}}
	l := New(context.Background(), store)

	assert.NotNil(t, l.Get("v1"))
	assert.Len(t, l.ListForProject("t1", "p1"), 2)
}

func TestLedger_HydrationFailureStartsEmpty(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("mongo down")}
	l := New(context.Background(), store)

	assert.Empty(t, l.ListForTenant("t1"))
	// The ledger still serves writes
	require.NoError(t, l.Record(context.Background(), testVersion("v1", "t1", "p1")))
	assert.NotNil(t, l.Get("v1"))
}

func TestLedger_RecordMirrorsToStore(t *testing.T) {
	store := &fakeStore{}
	l := New(context.Background(), store)
	require.NoError(t, l.Record(context.Background(), testVersion("v1", "t1", "p1")))
	assert.Equal(t, 1, store.savedCount())

	label := "annotated"
	l.Annotate(context.Background(), "v1", datatypes.VersionAnnotation{Label: &label})
	assert.Equal(t, 2, store.savedCount())
}

func TestLedger_PersistenceFailureIsSwallowed(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("write concern timeout")}
	l := New(context.Background(), store)

	require.NoError(t, l.Record(context.Background(), testVersion("v1", "t1", "p1")))
	assert.NotNil(t, l.Get("v1"))
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func TestLedger_ConcurrentRecordAndRead(t *testing.T) {
	l := New(context.Background(), nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		id := string(rune('a' + i))
		go func() {
			defer wg.Done()
			_ = l.Record(context.Background(), testVersion(id, "t1", "p1"))
		}()
		go func() {
			defer wg.Done()
			_ = l.ListForTenant("t1")
			_ = l.Get(id)
		}()
	}
	wg.Wait()
	assert.Len(t, l.ListForTenant("t1"), 20)
}
