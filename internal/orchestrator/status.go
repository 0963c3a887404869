package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/loomworks/loom/pkg/models"
)

func newGroupID() string {
	return uuid.NewString()
}

// GroupSnapshot is a point-in-time view of one requirement chain.
type GroupSnapshot struct {
	GroupID     string         `json:"group_id"`
	Requirement string         `json:"requirement"`
	Priority    int            `json:"priority"`
	SubmittedAt time.Time      `json:"submitted_at"`
	Done        bool           `json:"done"`
	Abandoned   bool           `json:"abandoned"`
	Tasks       []*models.Task `json:"tasks"`
}

// ProjectStatus summarizes the whole project: task counts, overall progress,
// agent activity, and a bounded health score.
type ProjectStatus struct {
	Requirements     int `json:"requirements"`
	TotalTasks       int `json:"total_tasks"`
	Pending          int `json:"pending"`
	Running          int `json:"running"`
	Completed        int `json:"completed"`
	Failed           int `json:"failed"`
	Skipped          int `json:"skipped"`
	Progress         int `json:"progress"`
	ActiveAgents     int `json:"active_agents"`
	PendingDecisions int `json:"pending_decisions"`
	HealthScore      int `json:"health_score"`
}

// Metrics reports aggregate execution metrics.
type Metrics struct {
	CompletionRate       float64 `json:"completion_rate"`
	AvgCompletionSeconds float64 `json:"avg_completion_seconds"`
	DroppedEvents        uint64  `json:"dropped_events"`
}

// Group returns a snapshot of one chain's tasks in execution order.
func (o *Orchestrator) Group(groupID string) (GroupSnapshot, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	g, ok := o.groups[groupID]
	if !ok {
		return GroupSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	return o.snapshotLocked(g), nil
}

// Tasks returns task snapshots for one group, or for every group (in
// submission order) when groupID is empty.
func (o *Orchestrator) Tasks(groupID string) ([]*models.Task, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if groupID != "" {
		g, ok := o.groups[groupID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
		}
		return o.snapshotLocked(g).Tasks, nil
	}

	var out []*models.Task
	for _, id := range o.groupOrder {
		out = append(out, o.snapshotLocked(o.groups[id]).Tasks...)
	}
	return out, nil
}

// snapshotLocked clones a group's tasks in execution order. Caller holds the
// lock.
func (o *Orchestrator) snapshotLocked(g *group) GroupSnapshot {
	tasks := make([]*models.Task, 0, len(g.order))
	for _, id := range g.order {
		tasks = append(tasks, g.tasks[id].Clone())
	}
	return GroupSnapshot{
		GroupID:     g.id,
		Requirement: g.requirement,
		Priority:    g.priority,
		SubmittedAt: g.submittedAt,
		Done:        g.done,
		Abandoned:   g.abandoned,
		Tasks:       tasks,
	}
}

// Agents returns the per-capability agent descriptors.
func (o *Orchestrator) Agents() []models.AgentDescriptor {
	return o.agents.snapshot()
}

// Status summarizes the current project state.
func (o *Orchestrator) Status() ProjectStatus {
	o.mu.RLock()

	st := ProjectStatus{Requirements: len(o.groups)}
	for _, g := range o.groups {
		for _, t := range g.tasks {
			st.TotalTasks++
			switch t.Status {
			case models.TaskStatusPending:
				st.Pending++
			case models.TaskStatusRunning:
				st.Running++
			case models.TaskStatusCompleted:
				st.Completed++
			case models.TaskStatusFailed:
				st.Failed++
			case models.TaskStatusSkipped:
				st.Skipped++
			}
		}
	}
	o.mu.RUnlock()

	if st.TotalTasks > 0 {
		st.Progress = (st.Completed + st.Skipped) * 100 / st.TotalTasks
	}
	st.ActiveAgents = o.agents.working()
	for _, sig := range o.bus.Pending() {
		if sig.Type == models.SignalDecisionNeeded {
			st.PendingDecisions++
		}
	}
	st.HealthScore = healthScore(st.TotalTasks, st.Failed)
	return st
}

// healthScore is a bounded project health indicator: a healthy baseline of
// 85, reduced by up to 20 points as the failed-task ratio grows, clamped to
// 0..100.
func healthScore(total, failed int) int {
	score := 85
	if total > 0 {
		score -= failed * 20 / total
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ComputeMetrics aggregates completion metrics across all chains.
func (o *Orchestrator) ComputeMetrics() Metrics {
	o.mu.RLock()

	var total, completed int
	var totalSeconds float64
	for _, g := range o.groups {
		for _, t := range g.tasks {
			total++
			if t.Status != models.TaskStatusCompleted {
				continue
			}
			completed++
			if t.CompletedAt != nil {
				totalSeconds += t.CompletedAt.Sub(t.CreatedAt).Seconds()
			}
		}
	}
	o.mu.RUnlock()

	m := Metrics{DroppedEvents: o.emitter.DroppedCount()}
	if total > 0 {
		m.CompletionRate = float64(completed) / float64(total)
	}
	if completed > 0 {
		m.AvgCompletionSeconds = totalSeconds / float64(completed)
	}
	return m
}
