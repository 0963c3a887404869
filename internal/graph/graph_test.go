package graph

import (
	"errors"
	"testing"

	"github.com/loomworks/loom/pkg/models"
)

func task(id string, priority int, deps ...string) *models.Task {
	return &models.Task{ID: id, Priority: priority, DependsOn: deps}
}

func TestBuildRejectsUnknownDependency(t *testing.T) {
	g := New()
	err := g.Build([]*models.Task{task("a", 10, "missing")})
	if err == nil {
		t.Fatal("Build accepted a dependency on an unknown task")
	}
}

func TestBuildRejectsCycle(t *testing.T) {
	g := New()
	err := g.Build([]*models.Task{
		task("a", 10, "b"),
		task("b", 9, "a"),
	})
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("Build = %v, want ErrCycleDetected", err)
	}
}

func TestTopologicalSortRespectsDependencies(t *testing.T) {
	g := New()
	tasks := []*models.Task{
		task("analyze", 10),
		task("implement", 7, "analyze"),
		task("validate", 6, "implement"),
		task("integrate", 4, "validate"),
	}
	if err := g.Build(tasks); err != nil {
		t.Fatalf("Build: %v", err)
	}

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort: %v", err)
	}
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, tk := range tasks {
		for _, dep := range tk.DependsOn {
			if pos[dep] > pos[tk.ID] {
				t.Errorf("%s ordered before its dependency %s: %v", tk.ID, dep, order)
			}
		}
	}
}

func TestTopologicalSortPriorityStable(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{
		task("low", 2),
		task("high", 9),
		task("mid", 5),
	}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort: %v", err)
	}
	want := []string{"high", "mid", "low"}
	for i, id := range want {
		if order[i] != id {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestReadyAndSettle(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{
		task("a", 10),
		task("b", 7, "a"),
		task("c", 6, "b"),
	}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	ready := g.Ready()
	if len(ready) != 1 || ready[0] != "a" {
		t.Fatalf("Ready = %v, want [a]", ready)
	}

	g.Settle("a", models.TaskStatusCompleted)
	ready = g.Ready()
	if len(ready) != 1 || ready[0] != "b" {
		t.Fatalf("Ready after settling a = %v, want [b]", ready)
	}
}

func TestBlockedAfterFailure(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{
		task("a", 10),
		task("b", 7, "a"),
		task("c", 6, "b"),
	}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	g.Settle("a", models.TaskStatusFailed)
	blocked := g.Blocked()
	if len(blocked) != 1 || blocked[0] != "b" {
		t.Fatalf("Blocked = %v, want [b]", blocked)
	}

	// Once b is skipped, c becomes blocked in turn.
	g.Settle("b", models.TaskStatusSkipped)
	blocked = g.Blocked()
	if len(blocked) != 1 || blocked[0] != "c" {
		t.Fatalf("Blocked after skipping b = %v, want [c]", blocked)
	}
}

func TestDependentsAndSize(t *testing.T) {
	g := New()
	if err := g.Build([]*models.Task{
		task("a", 10),
		task("b", 7, "a"),
		task("c", 6, "a"),
	}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	deps := g.Dependents("a")
	if len(deps) != 2 {
		t.Errorf("Dependents(a) = %v, want two entries", deps)
	}
	if g.Size() != 3 {
		t.Errorf("Size = %d, want 3", g.Size())
	}
	if g.Task("b") == nil || g.Task("nope") != nil {
		t.Error("Task lookup mismatch")
	}
}
