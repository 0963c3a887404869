// Package orchestrator drives requirement chains: it plans tasks, executes
// them through the agent connectors in dependency order, propagates the task
// context, emits signals and events, and persists artifacts to the workspace.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/loomworks/loom/internal/connector"
	"github.com/loomworks/loom/internal/graph"
	"github.com/loomworks/loom/internal/planner"
	"github.com/loomworks/loom/internal/signalbus"
	"github.com/loomworks/loom/internal/state"
	"github.com/loomworks/loom/internal/workspace"
	"github.com/loomworks/loom/pkg/models"
)

// ErrEmptyRequirement rejects a submission with no requirement text.
var ErrEmptyRequirement = errors.New("requirement text is empty")

// ErrUnknownGroup is returned for operations on a task group the
// orchestrator has never seen.
var ErrUnknownGroup = errors.New("unknown task group")

// Config wires the orchestrator's collaborators.
type Config struct {
	// Connectors maps each capability to its agent connector. All five
	// capabilities must be present.
	Connectors map[models.Capability]connector.Connector
	// Bus is the signal bus shared with the human-facing layer.
	Bus *signalbus.Bus
	// Workspace persists generated artifacts.
	Workspace *workspace.Manager
	// Audit is the optional sqlite audit log.
	Audit *state.DB
	// Logger is the optional debug logger.
	Logger *DebugLogger
	// EventBuffer sizes the event channel; 0 means a sensible default.
	EventBuffer int
}

// group is one requirement's chain: its tasks, execution order, and shared
// context.
type group struct {
	id          string
	requirement string
	priority    int
	tasks       map[string]*models.Task
	order       []string
	graph       *graph.DependencyGraph
	context     *models.TaskContext
	submittedAt time.Time
	done        bool
	abandoned   bool
}

// Orchestrator owns the task registry and executes requirement chains.
// Independent chains run concurrently; within one chain execution is strictly
// sequential in dependency order.
type Orchestrator struct {
	mu sync.RWMutex

	connectors map[models.Capability]connector.Connector
	bus        *signalbus.Bus
	ws         *workspace.Manager
	audit      *state.DB
	logger     *DebugLogger
	emitter    *EventEmitter
	agents     *agentRegistry

	groups     map[string]*group
	groupOrder []string
	// artifacts maps workspace artifact name to the group that produced it.
	artifacts map[string]string

	baseCtx context.Context
	chains  *errgroup.Group
}

// New creates an orchestrator from the given configuration.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Bus == nil {
		return nil, fmt.Errorf("orchestrator requires a signal bus")
	}
	if cfg.Workspace == nil {
		return nil, fmt.Errorf("orchestrator requires a workspace")
	}
	caps := []models.Capability{
		models.CapabilityAnalyst, models.CapabilityImplementer,
		models.CapabilityValidator, models.CapabilityReasoner,
		models.CapabilityIntegrator,
	}
	for _, c := range caps {
		if cfg.Connectors[c] == nil {
			return nil, fmt.Errorf("no connector for capability %s", c)
		}
	}

	bufferSize := cfg.EventBuffer
	if bufferSize <= 0 {
		bufferSize = 256
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger()
	}

	o := &Orchestrator{
		connectors: cfg.Connectors,
		bus:        cfg.Bus,
		ws:         cfg.Workspace,
		audit:      cfg.Audit,
		logger:     logger,
		emitter:    NewEventEmitter(bufferSize),
		agents:     newAgentRegistry(caps),
		groups:     make(map[string]*group),
		artifacts:  make(map[string]string),
		baseCtx:    context.Background(),
		chains:     new(errgroup.Group),
	}

	// Every published signal becomes an event on the stream.
	o.bus.Subscribe(func(sig models.Signal) {
		o.emitter.Emit(Event{
			Type:      EventSignalCreated,
			TaskID:    sig.Source,
			Message:   string(sig.Type),
			Timestamp: time.Now(),
		})
	})

	return o, nil
}

// Events returns the orchestrator's event stream. There is a single
// consumer; fan-out is the consumer's concern.
func (o *Orchestrator) Events() <-chan Event {
	return o.emitter.Events()
}

// Bus returns the signal bus.
func (o *Orchestrator) Bus() *signalbus.Bus { return o.bus }

// Workspace returns the workspace manager.
func (o *Orchestrator) Workspace() *workspace.Manager { return o.ws }

// Submit accepts a new requirement, plans its chain, and starts executing it
// in the background. It returns the task group ID.
func (o *Orchestrator) Submit(text string, priority int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyRequirement
	}

	g, err := o.admit(text, priority)
	if err != nil {
		return "", err
	}

	o.chains.Go(func() error {
		o.runChain(g)
		return nil
	})
	return g.id, nil
}

// admit plans and registers a requirement chain without starting it.
func (o *Orchestrator) admit(text string, priority int) (*group, error) {
	groupID := newGroupID()
	tasks := planner.Plan(text, groupID)

	dg := graph.New()
	if err := dg.Build(tasks); err != nil {
		return nil, fmt.Errorf("building task graph: %w", err)
	}
	order, err := dg.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("ordering tasks: %w", err)
	}

	g := &group{
		id:          groupID,
		requirement: text,
		priority:    priority,
		tasks:       make(map[string]*models.Task, len(tasks)),
		order:       order,
		graph:       dg,
		context:     &models.TaskContext{GroupID: groupID, Requirement: text},
		submittedAt: time.Now(),
	}
	for _, t := range tasks {
		g.tasks[t.ID] = t
	}

	o.mu.Lock()
	o.groups[groupID] = g
	o.groupOrder = append(o.groupOrder, groupID)
	o.mu.Unlock()

	if o.audit != nil {
		if err := o.audit.RecordRequirement(groupID, text, priority, g.submittedAt); err != nil {
			o.logger.Log("audit: %v", err)
		}
	}
	o.bus.Publish(models.SignalRequirement, groupID, map[string]any{
		"text":     text,
		"priority": priority,
	})
	o.emitter.Emit(Event{
		Type:      EventRequirementAccepted,
		GroupID:   groupID,
		Message:   text,
		Timestamp: time.Now(),
	})
	o.logger.Log("accepted requirement %s: %q (%d tasks)", groupID, text, len(tasks))

	return g, nil
}

// runChain executes one group's tasks in dependency order.
func (o *Orchestrator) runChain(g *group) {
	for _, id := range g.order {
		task := g.tasks[id]

		if reason, skip := o.shouldSkip(g, task); skip {
			o.settle(g, task, models.TaskStatusSkipped, reason)
			continue
		}

		o.setRunning(g, task)
		result, err := o.invoke(g, task)
		if err != nil {
			// Validation is advisory: its failure degrades to a conservative
			// synthesized verdict so implementation output still reaches the
			// user. Every other failure fails the remaining chain.
			if task.Capability == models.CapabilityValidator {
				o.logger.Log("task %s: validation degraded: %v", task.ID, err)
				result = connector.FallbackValidation(err.Error())
			} else {
				o.mu.Lock()
				task.Error = err.Error()
				o.mu.Unlock()
				o.settle(g, task, models.TaskStatusFailed, err.Error())
				continue
			}
		}

		o.merge(g, task, result)
		o.settle(g, task, models.TaskStatusCompleted, "")
		o.afterCompletion(g, task, result)
	}

	o.finalize(g)
}

// shouldSkip decides whether a task is skipped without invoking its
// connector: cascade from a failed or skipped dependency, or the integration
// runnable gate.
func (o *Orchestrator) shouldSkip(g *group, task *models.Task) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, depID := range task.DependsOn {
		dep := g.tasks[depID]
		if dep.Status != models.TaskStatusCompleted {
			return fmt.Sprintf("dependency %s %s", dep.Capability, dep.Status), true
		}
	}
	if task.Capability == models.CapabilityIntegrator {
		if runnable, _ := g.context.Validation["runnable"].(bool); !runnable {
			return "artifact not runnable", true
		}
	}
	return "", false
}

// setRunning transitions a task to running and marks its agent working.
func (o *Orchestrator) setRunning(g *group, task *models.Task) {
	o.mu.Lock()
	prev := task.Status
	task.Status = models.TaskStatusRunning
	task.Progress = 10
	o.mu.Unlock()

	o.agents.markWorking(task.Capability, task.ID)
	o.recordTransition(g, task, prev, models.TaskStatusRunning, "")
	o.emitter.Emit(Event{
		Type:       EventTaskStarted,
		GroupID:    g.id,
		TaskID:     task.ID,
		Capability: task.Capability,
		Timestamp:  time.Now(),
	})
	o.logger.Log("task %s (%s): running", task.ID, task.Capability)
}

// invoke calls the task's connector with the current requirement text and a
// context snapshot. No lock is held across the call.
func (o *Orchestrator) invoke(g *group, task *models.Task) (models.Result, error) {
	o.mu.RLock()
	requirement := g.context.Requirement
	snapshot := g.context.Snapshot()
	o.mu.RUnlock()

	result, err := o.connectors[task.Capability].Execute(o.baseCtx, requirement, snapshot)
	o.agents.markDone(task.Capability, err == nil)
	return result, err
}

// merge stores a completed task's result in its context field. A capability
// running a second time in the same chain replaces its earlier result
// wholesale.
func (o *Orchestrator) merge(g *group, task *models.Task, result models.Result) {
	field := task.Capability.ContextField()

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := g.context.SetField(field, result); err != nil {
		g.context.ReplaceField(field, result)
	}
	task.Result = result

	// The analyst may have rewritten a weak requirement; downstream
	// capabilities and the persisted artifact reference the rewrite.
	if task.Capability == models.CapabilityAnalyst {
		if enhanced, ok := result["requirement"].(string); ok && enhanced != "" {
			g.context.Requirement = enhanced
		}
	}
}

// settle records a task's terminal status.
func (o *Orchestrator) settle(g *group, task *models.Task, status models.TaskStatus, detail string) {
	o.mu.Lock()
	prev := task.Status
	task.Status = status
	if status == models.TaskStatusCompleted {
		task.Progress = 100
	}
	if status == models.TaskStatusSkipped && detail != "" {
		task.Error = detail
	}
	now := time.Now()
	task.CompletedAt = &now
	o.mu.Unlock()

	g.graph.Settle(task.ID, status)
	o.recordTransition(g, task, prev, status, detail)

	eventType := EventTaskCompleted
	switch status {
	case models.TaskStatusFailed:
		eventType = EventTaskFailed
	case models.TaskStatusSkipped:
		eventType = EventTaskSkipped
	}
	o.emitter.Emit(Event{
		Type:       eventType,
		GroupID:    g.id,
		TaskID:     task.ID,
		Capability: task.Capability,
		Error:      detail,
		Timestamp:  now,
	})
	o.logger.Log("task %s (%s): %s %s", task.ID, task.Capability, status, detail)
}

// afterCompletion applies a completed task's side effects: immediate
// artifact persistence and result-driven signals.
func (o *Orchestrator) afterCompletion(g *group, task *models.Task, result models.Result) {
	switch task.Capability {
	case models.CapabilityImplementer:
		o.writeArtifact(g, task, result)

	case models.CapabilityValidator:
		if issues, ok := result["issues"].([]any); ok && len(issues) > 0 {
			o.bus.Publish(models.SignalQualityIssue, task.ID, map[string]any{
				"group_id": g.id,
				"issues":   issues,
			})
		}

	case models.CapabilityReasoner:
		if innovations, ok := result["innovations"].([]any); ok && len(innovations) > 0 {
			o.bus.Publish(models.SignalInnovationDetected, task.ID, map[string]any{
				"group_id":    g.id,
				"innovations": innovations,
			})
		}

	case models.CapabilityIntegrator:
		o.bus.Publish(models.SignalIntegrationReady, task.ID, map[string]any{
			"group_id": g.id,
			"summary":  result["summary"],
		})
	}
}

// writeArtifact persists the implementation artifact immediately, so partial
// progress is never lost to a later failure.
func (o *Orchestrator) writeArtifact(g *group, task *models.Task, result models.Result) {
	name, _ := result["filename"].(string)
	content, _ := result["content"].(string)
	if name == "" || content == "" {
		o.logger.Log("task %s: implementation result has no artifact", task.ID)
		return
	}

	artifact, err := o.ws.WriteArtifact(name, content)
	if err != nil {
		o.logger.Log("task %s: writing artifact %s: %v", task.ID, name, err)
		return
	}

	o.mu.Lock()
	o.artifacts[artifact.Name] = g.id
	o.mu.Unlock()

	o.emitter.Emit(Event{
		Type:      EventArtifactWritten,
		GroupID:   g.id,
		TaskID:    task.ID,
		Artifact:  artifact.Name,
		Timestamp: time.Now(),
	})
	o.logger.Log("task %s: wrote %s (%d bytes)", task.ID, artifact.Name, artifact.Size)
}

// finalize runs once every task in the chain has settled. If any result
// carried a decisions list, a single decision_needed signal is published with
// the collected options.
func (o *Orchestrator) finalize(g *group) {
	o.mu.Lock()
	g.done = true
	var options []any
	for _, id := range g.order {
		if decisions, ok := g.tasks[id].Result["decisions"].([]any); ok {
			options = append(options, decisions...)
		}
	}
	o.mu.Unlock()

	if len(options) > 0 {
		o.bus.Publish(models.SignalDecisionNeeded, g.id, map[string]any{
			"group_id": g.id,
			"options":  options,
		})
	}
	o.emitter.Emit(Event{
		Type:      EventChainCompleted,
		GroupID:   g.id,
		Timestamp: time.Now(),
	})
	o.logger.Log("chain %s: finalized", g.id)
}

// recordTransition writes one status change to the audit log, when present.
func (o *Orchestrator) recordTransition(g *group, task *models.Task, from, to models.TaskStatus, detail string) {
	if o.audit == nil {
		return
	}
	err := o.audit.RecordTransition(state.Transition{
		TaskID:     task.ID,
		GroupID:    g.id,
		Capability: task.Capability,
		From:       from,
		To:         to,
		Detail:     detail,
		At:         time.Now(),
	})
	if err != nil {
		o.logger.Log("audit: %v", err)
	}
}

// ResolveDecision records the operator's choice for a decision signal.
// Resolution is advisory metadata; it never reopens completed tasks.
func (o *Orchestrator) ResolveDecision(signalID, chosenOption string) (models.Signal, error) {
	sig, err := o.bus.Resolve(signalID, chosenOption)
	if err != nil {
		return models.Signal{}, err
	}
	if o.audit != nil {
		if err := o.audit.RecordDecision(signalID, chosenOption, time.Now()); err != nil {
			o.logger.Log("audit: %v", err)
		}
	}
	o.logger.Log("decision %s resolved: %s", signalID, chosenOption)
	return sig, nil
}

// Abandon marks a task group abandoned. Informational only: an in-flight
// connector call is never interrupted.
func (o *Orchestrator) Abandon(groupID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	g, ok := o.groups[groupID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	g.abandoned = true
	return nil
}

// ArtifactRunnable reports the validation verdict for a workspace artifact.
func (o *Orchestrator) ArtifactRunnable(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	groupID, ok := o.artifacts[name]
	if !ok {
		return false
	}
	g, ok := o.groups[groupID]
	if !ok {
		return false
	}
	runnable, _ := g.context.Validation["runnable"].(bool)
	return runnable
}

// Artifacts lists workspace artifacts with their runnable flags.
func (o *Orchestrator) Artifacts() ([]workspace.Artifact, error) {
	return o.ws.List(o.ArtifactRunnable)
}

// Reset flushes all in-memory task, context, and signal state, then archives
// the workspace. It returns the archive path ("" when the workspace was
// empty).
func (o *Orchestrator) Reset() (string, error) {
	o.mu.Lock()
	o.groups = make(map[string]*group)
	o.groupOrder = nil
	o.artifacts = make(map[string]string)
	o.mu.Unlock()

	o.bus.Reset()

	archivedTo, err := o.ws.Reset()
	if err != nil {
		return "", fmt.Errorf("resetting workspace: %w", err)
	}
	o.logger.Log("project reset, archived to %q", archivedTo)
	return archivedTo, nil
}

// Wait blocks until every chain started so far has settled.
func (o *Orchestrator) Wait() {
	o.chains.Wait()
}

// Close waits for running chains and closes the event stream.
func (o *Orchestrator) Close() {
	o.chains.Wait()
	o.emitter.Close()
}
