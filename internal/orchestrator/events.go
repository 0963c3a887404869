package orchestrator

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/loomworks/loom/pkg/models"
)

// EventType identifies the kind of orchestrator event.
type EventType string

const (
	// EventRequirementAccepted fires when a requirement is submitted.
	EventRequirementAccepted EventType = "requirement_accepted"
	// EventTaskStarted fires when a task transitions to running.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted fires when a task completes.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed fires when a task fails.
	EventTaskFailed EventType = "task_failed"
	// EventTaskSkipped fires when a task is skipped.
	EventTaskSkipped EventType = "task_skipped"
	// EventSignalCreated fires when a signal is published.
	EventSignalCreated EventType = "signal_created"
	// EventArtifactWritten fires when an artifact lands in the workspace.
	EventArtifactWritten EventType = "artifact_written"
	// EventChainCompleted fires when a requirement's chain settles.
	EventChainCompleted EventType = "chain_completed"
)

// Event is one orchestrator notification. Delivery is at-most-once and
// non-durable; a consumer that is not listening misses the event.
type Event struct {
	// Type is the kind of event.
	Type EventType `json:"type"`
	// GroupID is the requirement chain the event belongs to, if any.
	GroupID string `json:"group_id,omitempty"`
	// TaskID is the related task, if any.
	TaskID string `json:"task_id,omitempty"`
	// Capability is the related capability, if any.
	Capability models.Capability `json:"capability,omitempty"`
	// Message provides additional context about the event.
	Message string `json:"message,omitempty"`
	// Error contains the failure reason for failure events.
	Error string `json:"error,omitempty"`
	// Artifact is the workspace-relative artifact name, for artifact events.
	Artifact string `json:"artifact,omitempty"`
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}

// emitGrace bounds how long Emit blocks on a full channel before the event
// is dropped.
const emitGrace = 100 * time.Millisecond

// EventEmitter fans orchestrator events into a single buffered channel.
// Emission never blocks chain execution beyond emitGrace.
type EventEmitter struct {
	ch      chan Event
	dropped atomic.Uint64
}

// NewEventEmitter creates an emitter with the given channel buffer.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{ch: make(chan Event, bufferSize)}
}

// Emit delivers the event to the consumer, waiting up to emitGrace when the
// buffer is full. Undeliverable events are counted and dropped.
func (e *EventEmitter) Emit(event Event) {
	select {
	case e.ch <- event:
	case <-time.After(emitGrace):
		n := e.dropped.Add(1)
		// Every 10th drop is logged to keep a stuck consumer visible
		// without flooding.
		if n%10 == 1 {
			log.Printf("[orchestrator] event buffer full, dropped %s (%d total)", event.Type, n)
		}
	}
}

// DroppedCount returns how many events have been dropped so far.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.dropped.Load()
}

// Events returns the consumer side of the event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the event channel. No Emit may run after Close.
func (e *EventEmitter) Close() {
	close(e.ch)
}
