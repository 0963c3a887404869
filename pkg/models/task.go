package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusRunning indicates the task is being executed by an agent.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusSkipped indicates the task was cancelled because an upstream
	// dependency failed or was skipped, or a gate decided it should not run.
	TaskStatusSkipped TaskStatus = "skipped"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusSkipped:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a terminal state.
// Tasks never leave a terminal state.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusSkipped:
		return true
	default:
		return false
	}
}

// Result is the structured output of a completed task. Each capability
// defines its own schema; the orchestrator only depends on a small set of
// well-known keys (runnable, decisions, content, filename).
type Result map[string]any

// Task represents one bound unit of work executed by a single capability.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// GroupID identifies the requirement chain this task belongs to.
	GroupID string `json:"group_id"`
	// Description is the requirement text this task operates on.
	Description string `json:"description"`
	// Capability is the agent capability that performs this task.
	Capability Capability `json:"capability"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Priority orders tasks within a chain; higher runs earlier.
	Priority int `json:"priority"`
	// DependsOn lists task IDs that must complete before this task starts.
	DependsOn []string `json:"depends_on,omitempty"`
	// Progress is an advisory completion percentage (0-100).
	Progress int `json:"progress"`
	// Result holds the structured output once the task completes.
	Result Result `json:"result,omitempty"`
	// Error contains the failure reason if the task failed.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the task was created by the planner.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the task reached a terminal state, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a copy of the task safe to hand to readers.
// The result map is copied so callers cannot mutate orchestrator state.
func (t *Task) Clone() *Task {
	cp := *t
	cp.DependsOn = append([]string(nil), t.DependsOn...)
	if t.Result != nil {
		cp.Result = make(Result, len(t.Result))
		for k, v := range t.Result {
			cp.Result[k] = v
		}
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}
