package models

import "fmt"

// TaskContext accumulates every capability's structured result for one
// requirement. Fields are write-once: a capability's slot is set exactly once
// per pipeline run, so concurrent readers always see a consistent snapshot.
// The orchestrator owns the context; connectors only ever receive snapshots.
type TaskContext struct {
	// GroupID is the requirement chain this context belongs to.
	GroupID string `json:"group_id"`
	// Requirement is the (possibly enhanced) requirement text.
	Requirement string `json:"requirement"`
	// Analysis holds the analyst's result, once set.
	Analysis Result `json:"analysis,omitempty"`
	// Implementation holds the implementer's result, once set.
	Implementation Result `json:"implementation,omitempty"`
	// Validation holds the validator's result, once set.
	Validation Result `json:"validation,omitempty"`
	// Reasoning holds the reasoner's result, once set.
	Reasoning Result `json:"reasoning,omitempty"`
	// Integration holds the integrator's result, once set.
	Integration Result `json:"integration,omitempty"`
}

// Field returns the result stored for the named context field.
func (c *TaskContext) Field(name string) Result {
	switch name {
	case "analysis":
		return c.Analysis
	case "implementation":
		return c.Implementation
	case "validation":
		return c.Validation
	case "reasoning":
		return c.Reasoning
	case "integration":
		return c.Integration
	default:
		return nil
	}
}

// SetField stores a result in the named context field. It returns an error
// if the field is already populated; replace-on-rerun happens at the chain
// level, never by partial merge.
func (c *TaskContext) SetField(name string, result Result) error {
	if c.Field(name) != nil {
		return fmt.Errorf("context field %q already set", name)
	}
	switch name {
	case "analysis":
		c.Analysis = result
	case "implementation":
		c.Implementation = result
	case "validation":
		c.Validation = result
	case "reasoning":
		c.Reasoning = result
	case "integration":
		c.Integration = result
	default:
		return fmt.Errorf("unknown context field %q", name)
	}
	return nil
}

// ReplaceField overwrites the named context field wholesale. This is the
// rerun path: a capability that legitimately runs twice in one chain (the
// reasoner's optimization pass) replaces its earlier result rather than
// merging into it.
func (c *TaskContext) ReplaceField(name string, result Result) error {
	switch name {
	case "analysis":
		c.Analysis = result
	case "implementation":
		c.Implementation = result
	case "validation":
		c.Validation = result
	case "reasoning":
		c.Reasoning = result
	case "integration":
		c.Integration = result
	default:
		return fmt.Errorf("unknown context field %q", name)
	}
	return nil
}

// Snapshot returns a copy of the context safe to hand to a connector.
// Result maps are shallow-copied; connectors treat them as read-only.
func (c *TaskContext) Snapshot() TaskContext {
	cp := TaskContext{GroupID: c.GroupID, Requirement: c.Requirement}
	copyResult := func(r Result) Result {
		if r == nil {
			return nil
		}
		out := make(Result, len(r))
		for k, v := range r {
			out[k] = v
		}
		return out
	}
	cp.Analysis = copyResult(c.Analysis)
	cp.Implementation = copyResult(c.Implementation)
	cp.Validation = copyResult(c.Validation)
	cp.Reasoning = copyResult(c.Reasoning)
	cp.Integration = copyResult(c.Integration)
	return cp
}
