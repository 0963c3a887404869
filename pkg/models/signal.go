package models

import "time"

// SignalType classifies a signal raised during orchestration.
type SignalType string

const (
	// SignalRequirement records that a new requirement was accepted.
	SignalRequirement SignalType = "requirement"
	// SignalDecisionNeeded indicates a human decision is required.
	SignalDecisionNeeded SignalType = "decision_needed"
	// SignalInnovationDetected indicates an agent surfaced a novel approach.
	SignalInnovationDetected SignalType = "innovation_detected"
	// SignalQualityIssue indicates validation flagged a quality problem.
	SignalQualityIssue SignalType = "quality_issue"
	// SignalIntegrationReady indicates an artifact is ready to deploy.
	SignalIntegrationReady SignalType = "integration_ready"
)

// Valid returns true if the signal type is a known value.
func (s SignalType) Valid() bool {
	switch s {
	case SignalRequirement, SignalDecisionNeeded, SignalInnovationDetected,
		SignalQualityIssue, SignalIntegrationReady:
		return true
	default:
		return false
	}
}

// Signal is an asynchronous event indicating something needs external
// attention. Signals are append-only; resolution marks them resolved but
// never mutates the payload or the originating task.
type Signal struct {
	// ID is the unique identifier for this signal.
	ID string `json:"id"`
	// Type classifies the signal.
	Type SignalType `json:"type"`
	// Source is the originating task or component ID.
	Source string `json:"source"`
	// Data is the free-form payload (e.g. candidate decision options).
	Data map[string]any `json:"data,omitempty"`
	// CreatedAt is when the signal was published.
	CreatedAt time.Time `json:"created_at"`
	// Resolved is true once a human has acted on the signal.
	Resolved bool `json:"resolved"`
	// ChosenOption records the decision made, for decision signals.
	ChosenOption string `json:"chosen_option,omitempty"`
	// ResolvedAt is when the signal was resolved, if it has been.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}
