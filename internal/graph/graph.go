// Package graph provides the task dependency graph used to order chain
// execution.
package graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/loomworks/loom/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// DependencyGraph is a directed acyclic graph of task dependencies.
// Tasks are nodes; edges point at the tasks a node is blocked by.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// edges maps task ID to the IDs of tasks it depends on.
	edges map[string][]string
	// settled tracks tasks that reached a terminal state.
	settled map[string]models.TaskStatus
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:   make(map[string]*models.Task),
		edges:   make(map[string][]string),
		settled: make(map[string]models.TaskStatus),
	}
}

// Build constructs the graph from a slice of tasks. It returns an error if a
// dependency references an unknown task or the graph contains a cycle.
func (g *DependencyGraph) Build(tasks []*models.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, task := range tasks {
		g.nodes[task.ID] = task
		g.edges[task.ID] = nil
	}
	for _, task := range tasks {
		for _, depID := range task.DependsOn {
			if _, exists := g.nodes[depID]; !exists {
				return fmt.Errorf("task %s depends on unknown task %s", task.ID, depID)
			}
			g.edges[task.ID] = append(g.edges[task.ID], depID)
		}
	}

	if g.hasCycleLocked() {
		return ErrCycleDetected
	}
	return nil
}

// HasCycle returns true if the graph contains a circular dependency.
func (g *DependencyGraph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasCycleLocked()
}

// hasCycleLocked runs a depth-first search with coloring to find back edges.
// Caller must hold the lock.
func (g *DependencyGraph) hasCycleLocked() bool {
	// 0 = unvisited, 1 = in progress, 2 = done.
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1
		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case 1:
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}
		colors[id] = 2
		return false
	}

	for id := range g.nodes {
		if colors[id] == 0 && visit(id) {
			return true
		}
	}
	return false
}

// TopologicalSort returns task IDs ordered so every task's dependencies come
// before it. Returns ErrCycleDetected if the graph contains a cycle.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.hasCycleLocked() {
		return nil, ErrCycleDetected
	}

	visited := make(map[string]bool, len(g.nodes))
	var result []string

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, depID := range g.edges[id] {
			visit(depID)
		}
		result = append(result, id)
	}

	// Visit in priority order so independent tasks keep a stable ordering.
	for _, task := range g.tasksByPriorityLocked() {
		visit(task.ID)
	}
	return result, nil
}

// tasksByPriorityLocked returns nodes sorted by descending priority, then ID.
// Caller must hold the lock.
func (g *DependencyGraph) tasksByPriorityLocked() []*models.Task {
	tasks := make([]*models.Task, 0, len(g.nodes))
	for _, t := range g.nodes {
		tasks = append(tasks, t)
	}
	for i := 1; i < len(tasks); i++ {
		for j := i; j > 0; j-- {
			a, b := tasks[j-1], tasks[j]
			if b.Priority > a.Priority || (b.Priority == a.Priority && b.ID < a.ID) {
				tasks[j-1], tasks[j] = b, a
			} else {
				break
			}
		}
	}
	return tasks
}

// Ready returns task IDs whose dependencies have all completed and which have
// not yet settled.
func (g *DependencyGraph) Ready() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []string
	for id := range g.nodes {
		if _, done := g.settled[id]; done {
			continue
		}
		ok := true
		for _, depID := range g.edges[id] {
			if g.settled[depID] != models.TaskStatusCompleted {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, id)
		}
	}
	return ready
}

// Settle records a task's terminal status. This affects subsequent calls to
// Ready and Blocked.
func (g *DependencyGraph) Settle(taskID string, status models.TaskStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settled[taskID] = status
}

// Blocked returns the IDs of unsettled tasks that can never run because a
// dependency settled as failed or skipped.
func (g *DependencyGraph) Blocked() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var blocked []string
	for id := range g.nodes {
		if _, done := g.settled[id]; done {
			continue
		}
		for _, depID := range g.edges[id] {
			st, done := g.settled[depID]
			if done && st != models.TaskStatusCompleted {
				blocked = append(blocked, id)
				break
			}
		}
	}
	return blocked
}

// Task returns the task for a given ID, or nil if not found.
func (g *DependencyGraph) Task(taskID string) *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[taskID]
}

// Dependencies returns the IDs of tasks the given task depends on.
func (g *DependencyGraph) Dependencies(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.edges[taskID]...)
}

// Dependents returns the IDs of tasks that depend on the given task.
func (g *DependencyGraph) Dependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for id, deps := range g.edges {
		for _, depID := range deps {
			if depID == taskID {
				dependents = append(dependents, id)
				break
			}
		}
	}
	return dependents
}

// Size returns the number of tasks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}
