package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/loomworks/loom/internal/connector"
	"github.com/loomworks/loom/internal/signalbus"
	"github.com/loomworks/loom/internal/workspace"
	"github.com/loomworks/loom/pkg/models"
)

// stubConnector is a scriptable connector test double with a call counter.
type stubConnector struct {
	cap models.Capability
	fn  func(call int, requirement string, snapshot models.TaskContext) (models.Result, error)

	mu    sync.Mutex
	calls int
}

func (s *stubConnector) Capability() models.Capability { return s.cap }

func (s *stubConnector) Execute(_ context.Context, requirement string, snapshot models.TaskContext) (models.Result, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	return s.fn(n, requirement, snapshot)
}

func (s *stubConnector) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubFn func(call int, requirement string, snapshot models.TaskContext) (models.Result, error)

// newTestOrchestrator builds an orchestrator over happy-path stubs, with
// per-capability overrides.
func newTestOrchestrator(t *testing.T, overrides map[models.Capability]stubFn) (*Orchestrator, map[models.Capability]*stubConnector) {
	t.Helper()

	defaults := map[models.Capability]stubFn{
		models.CapabilityAnalyst: func(int, string, models.TaskContext) (models.Result, error) {
			return models.Result{"architecture": "single binary", "risks": []any{}}, nil
		},
		models.CapabilityReasoner: func(call int, _ string, _ models.TaskContext) (models.Result, error) {
			return models.Result{"recommendations": []any{"use a heap"}, "pass": call}, nil
		},
		models.CapabilityImplementer: func(int, string, models.TaskContext) (models.Result, error) {
			return models.Result{"content": "print('hi')", "filename": "server.py"}, nil
		},
		models.CapabilityValidator: func(int, string, models.TaskContext) (models.Result, error) {
			return models.Result{"runnable": true, "quality_score": 90}, nil
		},
		models.CapabilityIntegrator: func(int, string, models.TaskContext) (models.Result, error) {
			return models.Result{"summary": "ready"}, nil
		},
	}
	for cap, fn := range overrides {
		defaults[cap] = fn
	}

	stubs := make(map[models.Capability]*stubConnector)
	conns := make(map[models.Capability]connector.Connector)
	for cap, fn := range defaults {
		s := &stubConnector{cap: cap, fn: fn}
		stubs[cap] = s
		conns[cap] = s
	}

	ws, err := workspace.New(filepath.Join(t.TempDir(), "workspace"))
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}

	o, err := New(Config{
		Connectors: conns,
		Bus:        signalbus.New(),
		Workspace:  ws,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(o.Close)

	// Drain the event stream so emitters never hit the drop path.
	go func() {
		for range o.Events() {
		}
	}()

	return o, stubs
}

func statusByCapability(t *testing.T, o *Orchestrator, groupID string) map[models.Capability][]models.TaskStatus {
	t.Helper()
	tasks, err := o.Tasks(groupID)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	out := make(map[models.Capability][]models.TaskStatus)
	for _, task := range tasks {
		out[task.Capability] = append(out[task.Capability], task.Status)
	}
	return out
}

func TestSubmitEmptyRequirement(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	for _, text := range []string{"", "   "} {
		if _, err := o.Submit(text, 5); !errors.Is(err, ErrEmptyRequirement) {
			t.Errorf("Submit(%q) = %v, want ErrEmptyRequirement", text, err)
		}
	}
	if st := o.Status(); st.Requirements != 0 {
		t.Errorf("rejected submission created a group: %+v", st)
	}
}

func TestHelloWorldChain(t *testing.T) {
	o, stubs := newTestOrchestrator(t, nil)

	groupID, err := o.Submit("Create a simple Hello World web server", 5)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o.Wait()

	statuses := statusByCapability(t, o, groupID)
	for _, cap := range []models.Capability{
		models.CapabilityAnalyst, models.CapabilityImplementer,
		models.CapabilityValidator, models.CapabilityIntegrator,
	} {
		if len(statuses[cap]) != 1 || statuses[cap][0] != models.TaskStatusCompleted {
			t.Errorf("%s statuses = %v, want one completed", cap, statuses[cap])
		}
	}
	if len(statuses[models.CapabilityReasoner]) != 0 {
		t.Errorf("reasoning planned without a complexity keyword: %v", statuses[models.CapabilityReasoner])
	}
	if stubs[models.CapabilityReasoner].callCount() != 0 {
		t.Error("reasoner connector invoked")
	}

	artifacts, err := o.Artifacts()
	if err != nil {
		t.Fatalf("Artifacts: %v", err)
	}
	if len(artifacts) != 1 || artifacts[0].Name != "server.py" {
		t.Fatalf("artifacts = %+v", artifacts)
	}
	if !artifacts[0].Runnable {
		t.Error("artifact not flagged runnable despite validation verdict")
	}

	ready := o.Bus().List(models.SignalIntegrationReady)
	if len(ready) != 1 {
		t.Errorf("integration_ready signals = %d, want 1", len(ready))
	}
}

func TestDeepReasoningChain(t *testing.T) {
	o, stubs := newTestOrchestrator(t, nil)

	groupID, err := o.Submit("Optimize an algorithm to find k most frequent elements, analyze performance", 5)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o.Wait()

	tasks, err := o.Tasks(groupID)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 6 {
		t.Fatalf("planned %d tasks, want 6", len(tasks))
	}
	want := []models.Capability{
		models.CapabilityAnalyst, models.CapabilityReasoner,
		models.CapabilityImplementer, models.CapabilityValidator,
		models.CapabilityReasoner, models.CapabilityIntegrator,
	}
	for i, cap := range want {
		if tasks[i].Capability != cap {
			t.Errorf("tasks[%d] = %s, want %s", i, tasks[i].Capability, cap)
		}
		if tasks[i].Status != models.TaskStatusCompleted {
			t.Errorf("tasks[%d] status = %s", i, tasks[i].Status)
		}
	}
	if got := stubs[models.CapabilityReasoner].callCount(); got != 2 {
		t.Errorf("reasoner invoked %d times, want 2", got)
	}

	// The optimization pass replaced the first reasoning result wholesale.
	group, err := o.Group(groupID)
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if pass, _ := group.Tasks[4].Result["pass"].(int); pass != 2 {
		t.Errorf("final reasoning task result pass = %v", group.Tasks[4].Result["pass"])
	}
}

func TestImplementationFailureCascades(t *testing.T) {
	o, stubs := newTestOrchestrator(t, map[models.Capability]stubFn{
		models.CapabilityImplementer: func(int, string, models.TaskContext) (models.Result, error) {
			return nil, &connector.TransportError{
				Capability: models.CapabilityImplementer,
				Err:        errors.New("deadline exceeded"),
			}
		},
	})

	groupID, err := o.Submit("Create a simple Hello World web server", 5)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o.Wait()

	statuses := statusByCapability(t, o, groupID)
	if statuses[models.CapabilityImplementer][0] != models.TaskStatusFailed {
		t.Errorf("implementer = %v, want failed", statuses[models.CapabilityImplementer])
	}
	if statuses[models.CapabilityValidator][0] != models.TaskStatusSkipped {
		t.Errorf("validator = %v, want skipped", statuses[models.CapabilityValidator])
	}
	if statuses[models.CapabilityIntegrator][0] != models.TaskStatusSkipped {
		t.Errorf("integrator = %v, want skipped", statuses[models.CapabilityIntegrator])
	}
	if stubs[models.CapabilityValidator].callCount() != 0 {
		t.Error("validator connector invoked after implementation failure")
	}

	artifacts, err := o.Artifacts()
	if err != nil {
		t.Fatalf("Artifacts: %v", err)
	}
	if len(artifacts) != 0 {
		t.Errorf("artifacts written despite implementation failure: %+v", artifacts)
	}

	// Failed task carries a human-readable reason.
	tasks, _ := o.Tasks(groupID)
	for _, task := range tasks {
		if task.Capability == models.CapabilityImplementer && task.Error == "" {
			t.Error("failed task has no error string")
		}
	}
}

func TestValidationFailureDegrades(t *testing.T) {
	o, stubs := newTestOrchestrator(t, map[models.Capability]stubFn{
		models.CapabilityValidator: func(int, string, models.TaskContext) (models.Result, error) {
			return nil, &connector.AuthError{
				Capability: models.CapabilityValidator,
				Err:        errors.New("invalid api key"),
			}
		},
	})

	groupID, err := o.Submit("Create a simple Hello World web server", 5)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o.Wait()

	statuses := statusByCapability(t, o, groupID)
	if statuses[models.CapabilityValidator][0] != models.TaskStatusCompleted {
		t.Errorf("validator = %v, want completed with fallback", statuses[models.CapabilityValidator])
	}
	if statuses[models.CapabilityIntegrator][0] != models.TaskStatusSkipped {
		t.Errorf("integrator = %v, want skipped", statuses[models.CapabilityIntegrator])
	}
	if stubs[models.CapabilityIntegrator].callCount() != 0 {
		t.Error("integrator connector invoked despite fallback verdict")
	}

	tasks, _ := o.Tasks(groupID)
	for _, task := range tasks {
		if task.Capability != models.CapabilityValidator {
			continue
		}
		if task.Result["fallback"] != true || task.Result["runnable"] != false {
			t.Errorf("validator result = %v, want fallback runnable=false", task.Result)
		}
	}

	// Implementation output survives the quality-gate failure.
	artifacts, err := o.Artifacts()
	if err != nil {
		t.Fatalf("Artifacts: %v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("artifacts = %+v, want the implementation artifact", artifacts)
	}
	if artifacts[0].Runnable {
		t.Error("unvalidated artifact flagged runnable")
	}
}

func TestNotRunnableSkipsIntegration(t *testing.T) {
	o, stubs := newTestOrchestrator(t, map[models.Capability]stubFn{
		models.CapabilityValidator: func(int, string, models.TaskContext) (models.Result, error) {
			return models.Result{"runnable": false, "issues": []any{"syntax error"}}, nil
		},
	})

	groupID, err := o.Submit("Create a simple Hello World web server", 5)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o.Wait()

	statuses := statusByCapability(t, o, groupID)
	if statuses[models.CapabilityIntegrator][0] != models.TaskStatusSkipped {
		t.Errorf("integrator = %v, want skipped, never failed", statuses[models.CapabilityIntegrator])
	}
	if stubs[models.CapabilityIntegrator].callCount() != 0 {
		t.Error("integrator connector invoked")
	}

	// Validation issues surface as a quality_issue signal.
	if got := o.Bus().List(models.SignalQualityIssue); len(got) != 1 {
		t.Errorf("quality_issue signals = %d, want 1", len(got))
	}
}

func TestEnhancedRequirementPropagates(t *testing.T) {
	o, _ := newTestOrchestrator(t, map[models.Capability]stubFn{
		models.CapabilityAnalyst: func(_ int, _ string, _ models.TaskContext) (models.Result, error) {
			return models.Result{"architecture": "page", "requirement": "Create a modern, responsive webpage"}, nil
		},
		models.CapabilityImplementer: func(_ int, requirement string, _ models.TaskContext) (models.Result, error) {
			if requirement != "Create a modern, responsive webpage" {
				return nil, &connector.ParseError{
					Capability: models.CapabilityImplementer,
					Err:        errors.New("did not receive enhanced requirement"),
				}
			}
			return models.Result{"content": "<html></html>", "filename": "webpage.html"}, nil
		},
	})

	groupID, err := o.Submit("make a webpage", 5)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o.Wait()

	statuses := statusByCapability(t, o, groupID)
	if statuses[models.CapabilityImplementer][0] != models.TaskStatusCompleted {
		t.Errorf("implementer = %v; enhanced requirement did not propagate", statuses[models.CapabilityImplementer])
	}
}

func TestDecisionSignalOnFinalize(t *testing.T) {
	o, _ := newTestOrchestrator(t, map[models.Capability]stubFn{
		models.CapabilityValidator: func(int, string, models.TaskContext) (models.Result, error) {
			return models.Result{"runnable": true, "decisions": []any{"postgres", "sqlite"}}, nil
		},
	})

	if _, err := o.Submit("Create a simple Hello World web server", 5); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o.Wait()

	decisions := o.Bus().List(models.SignalDecisionNeeded)
	if len(decisions) != 1 {
		t.Fatalf("decision_needed signals = %d, want 1", len(decisions))
	}
	options, _ := decisions[0].Data["options"].([]any)
	if len(options) != 2 {
		t.Errorf("options = %v", options)
	}

	resolved, err := o.ResolveDecision(decisions[0].ID, "sqlite")
	if err != nil {
		t.Fatalf("ResolveDecision: %v", err)
	}
	if !resolved.Resolved || resolved.ChosenOption != "sqlite" {
		t.Errorf("resolved = %+v", resolved)
	}

	// Resolution never reopens the chain.
	st := o.Status()
	if st.Running != 0 || st.Pending != 0 {
		t.Errorf("resolution reopened tasks: %+v", st)
	}

	if _, err := o.ResolveDecision("missing", "x"); !errors.Is(err, signalbus.ErrUnknownSignal) {
		t.Errorf("ResolveDecision unknown = %v", err)
	}
}

func TestConcurrentChains(t *testing.T) {
	o, _ := newTestOrchestrator(t, map[models.Capability]stubFn{
		models.CapabilityImplementer: func(call int, requirement string, _ models.TaskContext) (models.Result, error) {
			name := "app.py"
			if len(requirement) > 30 {
				name = "server.py"
			}
			return models.Result{"content": "print('hi')", "filename": name}, nil
		},
	})

	g1, err := o.Submit("Create a simple Hello World web server", 5)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	g2, err := o.Submit("make a calculator", 3)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o.Wait()

	for _, gid := range []string{g1, g2} {
		snap, err := o.Group(gid)
		if err != nil {
			t.Fatalf("Group(%s): %v", gid, err)
		}
		if !snap.Done {
			t.Errorf("group %s not done", gid)
		}
		for _, task := range snap.Tasks {
			if !task.Status.Terminal() {
				t.Errorf("group %s task %s non-terminal: %s", gid, task.ID, task.Status)
			}
		}
	}

	st := o.Status()
	if st.Requirements != 2 {
		t.Errorf("Requirements = %d, want 2", st.Requirements)
	}
	if st.Progress != 100 {
		t.Errorf("Progress = %d, want 100", st.Progress)
	}
}

func TestAbandonIsInformational(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	groupID, err := o.Submit("Create a simple Hello World web server", 5)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := o.Abandon(groupID); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	o.Wait()

	// The chain still ran to completion.
	snap, err := o.Group(groupID)
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if !snap.Abandoned {
		t.Error("group not marked abandoned")
	}
	if !snap.Done {
		t.Error("abandon interrupted the chain")
	}

	if err := o.Abandon("missing"); !errors.Is(err, ErrUnknownGroup) {
		t.Errorf("Abandon unknown = %v", err)
	}
}

func TestResetFlushesState(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	if _, err := o.Submit("Create a simple Hello World web server", 5); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o.Wait()

	archivedTo, err := o.Reset()
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if archivedTo == "" {
		t.Error("non-empty workspace produced no archive path")
	}

	if st := o.Status(); st.Requirements != 0 || st.TotalTasks != 0 {
		t.Errorf("task state survived reset: %+v", st)
	}
	if got := o.Bus().List(""); len(got) != 0 {
		t.Errorf("signals survived reset: %d", len(got))
	}
	artifacts, err := o.Artifacts()
	if err != nil {
		t.Fatalf("Artifacts: %v", err)
	}
	if len(artifacts) != 0 {
		t.Errorf("workspace not empty after reset: %+v", artifacts)
	}

	archives, err := o.Workspace().Archives()
	if err != nil {
		t.Fatalf("Archives: %v", err)
	}
	if len(archives) != 1 {
		t.Errorf("archives = %+v, want 1 entry", archives)
	}
}

func TestAgentBookkeeping(t *testing.T) {
	o, _ := newTestOrchestrator(t, map[models.Capability]stubFn{
		models.CapabilityImplementer: func(int, string, models.TaskContext) (models.Result, error) {
			return nil, &connector.TransportError{
				Capability: models.CapabilityImplementer,
				Err:        errors.New("unreachable"),
			}
		},
	})

	if _, err := o.Submit("Create a simple Hello World web server", 5); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o.Wait()

	for _, a := range o.Agents() {
		switch a.Capability {
		case models.CapabilityAnalyst:
			if a.State != models.AgentStateReady || a.Invocations != 1 {
				t.Errorf("analyst descriptor = %+v", a)
			}
		case models.CapabilityImplementer:
			if a.State != models.AgentStateError || a.Failures != 1 {
				t.Errorf("implementer descriptor = %+v", a)
			}
		case models.CapabilityValidator:
			if a.Invocations != 0 {
				t.Errorf("validator invoked: %+v", a)
			}
		}
	}
}

func TestHealthScore(t *testing.T) {
	tests := []struct {
		total, failed, want int
	}{
		{0, 0, 85},
		{10, 0, 85},
		{10, 5, 75},
		{10, 10, 65},
		{1, 1, 65},
	}
	for _, tt := range tests {
		if got := healthScore(tt.total, tt.failed); got != tt.want {
			t.Errorf("healthScore(%d, %d) = %d, want %d", tt.total, tt.failed, got, tt.want)
		}
	}
}
