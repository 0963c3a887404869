// Package connector adapts external AI services to a uniform per-capability
// execution contract. Each connector translates a requirement plus the
// current task context into a capability-specific prompt, invokes its
// service, and parses the response into the structured result the
// orchestrator merges into the task context.
package connector

import (
	"context"
	"errors"
	"fmt"

	"github.com/loomworks/loom/pkg/models"
)

// Connector executes one capability's work against an external AI service.
// Implementations are pure leaves: they know nothing about task ordering or
// orchestration.
type Connector interface {
	// Capability returns the capability this connector serves.
	Capability() models.Capability
	// Execute runs the capability against the requirement and the read-only
	// context snapshot, returning the capability's structured result.
	Execute(ctx context.Context, requirement string, snapshot models.TaskContext) (models.Result, error)
}

// TransportError indicates the external service was unreachable or timed out.
type TransportError struct {
	Capability models.Capability
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: service unavailable: %v", e.Capability, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError indicates a missing or rejected credential.
type AuthError struct {
	Capability models.Capability
	Err        error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Capability, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ParseError indicates the service responded but the output could not be
// mapped to the expected structured schema, even after the loose fallback
// parse.
type ParseError struct {
	Capability models.Capability
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: unparseable response: %v", e.Capability, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsAuth returns true if the error chain contains an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsTransport returns true if the error chain contains a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// LogEvent is one observability record emitted by a connector.
type LogEvent struct {
	// Capability is the connector that produced the event.
	Capability models.Capability
	// Level is "info", "warning", "error", or "success".
	Level string
	// Message is the human-readable log line.
	Message string
}

// Observer receives connector log events. Delivery is fire-and-forget:
// observers must not block, and observer behavior never affects control flow.
type Observer interface {
	Observe(event LogEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(event LogEvent)

// Observe calls f(event).
func (f ObserverFunc) Observe(event LogEvent) { f(event) }

// nopObserver discards all events.
type nopObserver struct{}

func (nopObserver) Observe(LogEvent) {}

// NopObserver returns an observer that discards all events.
func NopObserver() Observer { return nopObserver{} }

// logf formats and forwards a log event to the observer, if one is set.
func logf(obs Observer, cap models.Capability, level, format string, args ...any) {
	if obs == nil {
		return
	}
	obs.Observe(LogEvent{
		Capability: cap,
		Level:      level,
		Message:    fmt.Sprintf(format, args...),
	})
}
