// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ledger is the append-only store of compiled goal versions. The
// in-memory ledger is the source of truth for the process lifetime;
// persistence, when configured, is a best-effort side channel that hydrates
// on construction and mirrors every write.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"
)

// persistTimeout bounds each best-effort persistence call so a dead backend
// cannot stall request handling.
const persistTimeout = 5 * time.Second

// Ledger indexes goal versions by id, tenant, and (tenant, project).
//
// # Thread Safety
//
// All public methods are safe for concurrent use. The primary map and both
// indexes are guarded by one RWMutex; every method acquires it around its
// critical section, and persistence calls happen outside the lock.
type Ledger struct {
	mu        sync.RWMutex
	versions  map[string]*datatypes.GoalVersion
	byTenant  map[string][]string
	byProject map[string][]string

	store  DocumentStore
	logger *slog.Logger
}

// New creates a ledger. store may be nil for memory-only operation; when
// set, existing versions are hydrated from it, and hydration failure only
// logs; an unreachable backend must not stop the process from serving.
func New(ctx context.Context, store DocumentStore) *Ledger {
	l := &Ledger{
		versions:  make(map[string]*datatypes.GoalVersion),
		byTenant:  make(map[string][]string),
		byProject: make(map[string][]string),
		store:     store,
		logger:    slog.Default().With(slog.String("component", "goal_ledger")),
	}

	if store != nil {
		versions, err := store.LoadAll(ctx)
		if err != nil {
			l.logger.Warn("ledger hydration failed, starting empty", "error", err)
			return l
		}
		for i := range versions {
			l.insertLocked(&versions[i])
		}
		l.logger.Info("ledger hydrated from storage", "versions", len(versions))
	}
	return l
}

// Record inserts or overwrites a version by id. Index growth is idempotent:
// recording the same id twice never duplicates index entries.
func (l *Ledger) Record(ctx context.Context, version *datatypes.GoalVersion) error {
	if version == nil {
		return errors.New("version must not be nil")
	}
	if version.VersionID == "" {
		return errors.New("version_id is required")
	}
	if version.TenantID == "" {
		return errors.New("tenant_id is required")
	}

	stored := version.Clone()

	l.mu.Lock()
	l.insertLocked(stored)
	l.mu.Unlock()

	l.persist(ctx, stored)
	return nil
}

// Get returns a copy of the version, or nil when unknown.
func (l *Ledger) Get(versionID string) *datatypes.GoalVersion {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.versions[versionID].Clone()
}

// ListForTenant returns copies of every version owned by the tenant, in
// recording order.
func (l *Ledger) ListForTenant(tenantID string) []*datatypes.GoalVersion {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*datatypes.GoalVersion, 0, len(l.byTenant[tenantID]))
	for _, id := range l.byTenant[tenantID] {
		out = append(out, l.versions[id].Clone())
	}
	return out
}

// ListForProject returns copies of every version in the tenant's project,
// in recording order.
func (l *Ledger) ListForProject(tenantID, projectID string) []*datatypes.GoalVersion {
	l.mu.RLock()
	defer l.mu.RUnlock()

	key := projectKey(tenantID, projectID)
	out := make([]*datatypes.GoalVersion, 0, len(l.byProject[key]))
	for _, id := range l.byProject[key] {
		out = append(out, l.versions[id].Clone())
	}
	return out
}

// Annotate applies a copy-with-update of non-identity fields and returns
// the updated version, or nil when the id is unknown. Annotate never
// creates: unknown ids are a not-found outcome, not an insert.
func (l *Ledger) Annotate(ctx context.Context, versionID string, annotation datatypes.VersionAnnotation) *datatypes.GoalVersion {
	l.mu.Lock()
	existing, ok := l.versions[versionID]
	if !ok {
		l.mu.Unlock()
		return nil
	}

	updated := existing.Clone()
	if annotation.Label != nil {
		updated.Label = *annotation.Label
	}
	if annotation.ParentVersionID != nil {
		updated.ParentVersionID = *annotation.ParentVersionID
	}
	if annotation.OPS != nil {
		updated.OPS = datatypes.DeepCopyMap(annotation.OPS)
	}
	if annotation.DataInputs != nil {
		updated.DataInputs = datatypes.DeepCopyMap(annotation.DataInputs)
	}

	l.versions[versionID] = updated
	l.mu.Unlock()

	l.persist(ctx, updated)
	return updated.Clone()
}

// insertLocked stores a version and grows the indexes if the id is new.
// Callers hold the write lock.
func (l *Ledger) insertLocked(version *datatypes.GoalVersion) {
	_, existed := l.versions[version.VersionID]
	l.versions[version.VersionID] = version
	if existed {
		return
	}
	l.byTenant[version.TenantID] = append(l.byTenant[version.TenantID], version.VersionID)
	key := projectKey(version.TenantID, version.ProjectID)
	l.byProject[key] = append(l.byProject[key], version.VersionID)
}

// persist mirrors a write to the backing store. Failures are logged and
// swallowed: the in-memory ledger stays authoritative.
func (l *Ledger) persist(ctx context.Context, version *datatypes.GoalVersion) {
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := l.store.Save(ctx, version); err != nil {
		l.logger.Warn("ledger persistence failed, keeping in-memory copy",
			"version_id", version.VersionID, "error", err)
	}
}

func projectKey(tenantID, projectID string) string {
	return tenantID + "/" + projectID
}
