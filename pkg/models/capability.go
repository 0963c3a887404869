package models

import "time"

// Capability is a named kind of AI-assisted work.
type Capability string

const (
	// CapabilityAnalyst produces architecture summaries and risk lists.
	CapabilityAnalyst Capability = "analyst"
	// CapabilityImplementer generates code artifacts.
	CapabilityImplementer Capability = "implementer"
	// CapabilityValidator assesses quality and runnability.
	CapabilityValidator Capability = "validator"
	// CapabilityReasoner performs deep algorithmic and architectural analysis.
	CapabilityReasoner Capability = "reasoner"
	// CapabilityIntegrator handles deployment integration.
	CapabilityIntegrator Capability = "integrator"
)

// Valid returns true if the capability is a known value.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityAnalyst, CapabilityImplementer, CapabilityValidator,
		CapabilityReasoner, CapabilityIntegrator:
		return true
	default:
		return false
	}
}

// ContextField returns the Task Context field this capability populates.
func (c Capability) ContextField() string {
	switch c {
	case CapabilityAnalyst:
		return "analysis"
	case CapabilityImplementer:
		return "implementation"
	case CapabilityValidator:
		return "validation"
	case CapabilityReasoner:
		return "reasoning"
	case CapabilityIntegrator:
		return "integration"
	default:
		return ""
	}
}

// AgentState represents an agent's availability.
type AgentState string

const (
	// AgentStateReady indicates the agent is idle and available.
	AgentStateReady AgentState = "ready"
	// AgentStateWorking indicates the agent is executing a task.
	AgentStateWorking AgentState = "working"
	// AgentStateError indicates the agent's last invocation failed.
	AgentStateError AgentState = "error"
)

// AgentDescriptor is the status/metrics bookkeeping for one capability's
// agent. Agents are stateless between invocations aside from this record.
type AgentDescriptor struct {
	// Name is the agent's identifier (e.g. "claude_analyst").
	Name string `json:"name"`
	// Capability is the kind of work this agent performs.
	Capability Capability `json:"capability"`
	// Specialization is a human-readable description of the agent's focus.
	Specialization string `json:"specialization"`
	// State is the agent's current availability.
	State AgentState `json:"state"`
	// CurrentTask is the ID of the task being executed, if any.
	CurrentTask string `json:"current_task,omitempty"`
	// LastActivity is when the agent last started or finished work.
	LastActivity time.Time `json:"last_activity"`
	// Invocations counts completed connector calls.
	Invocations int `json:"invocations"`
	// Failures counts failed connector calls.
	Failures int `json:"failures"`
}
