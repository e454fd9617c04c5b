// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import "sync"

// Telemetry event names emitted by the compile pipeline.
const (
	EventKnowledgeRetrievalFailed = "knowledge_retrieval_failed"
	EventPlaybookSelected         = "playbook_selected"
	EventPlaybookNotFound         = "playbook_not_found"
	EventLLMDisabled              = "llm_disabled"
	EventLLMCompileAttempt        = "llm_compile_attempt"
	EventLLMCompileFailed         = "llm_compile_failed"
)

// TelemetryEvent is one recorded pipeline event: a name plus an open
// payload.
type TelemetryEvent struct {
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// EventLog is the append-only, in-memory telemetry sink used for audit and
// testing. Recording never fails and never blocks compilation: the critical
// section is a slice append under a mutex.
//
// Construct one per process and inject it (no package-level singleton), so
// parallel tests get isolated logs.
type EventLog struct {
	mu     sync.Mutex
	events []TelemetryEvent
}

// NewEventLog creates an empty event log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Record appends an event. A nil receiver is a no-op so components can run
// without telemetry wired.
func (l *EventLog) Record(event string, payload map[string]interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, TelemetryEvent{Event: event, Payload: payload})
}

// Events returns a snapshot of everything recorded so far, in order.
func (l *EventLog) Events() []TelemetryEvent {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]TelemetryEvent(nil), l.events...)
}

// EventsNamed returns the recorded events with the given name, in order.
func (l *EventLog) EventsNamed(name string) []TelemetryEvent {
	var matched []TelemetryEvent
	for _, e := range l.Events() {
		if e.Event == name {
			matched = append(matched, e)
		}
	}
	return matched
}
