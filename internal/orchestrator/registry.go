package orchestrator

import (
	"sort"
	"sync"
	"time"

	"github.com/loomworks/loom/pkg/models"
)

// agentRegistry tracks per-capability agent descriptors. Agents are stateless
// between invocations; this is pure status/metrics bookkeeping.
type agentRegistry struct {
	mu     sync.RWMutex
	agents map[models.Capability]*models.AgentDescriptor
}

// agentSpecializations are the human-readable descriptions surfaced per
// capability.
var agentSpecializations = map[models.Capability]string{
	models.CapabilityAnalyst:     "Requirements analysis and architecture",
	models.CapabilityImplementer: "Code generation",
	models.CapabilityValidator:   "Quality assurance and runnability checks",
	models.CapabilityReasoner:    "Deep algorithmic and architectural reasoning",
	models.CapabilityIntegrator:  "Deployment integration",
}

func newAgentRegistry(caps []models.Capability) *agentRegistry {
	r := &agentRegistry{agents: make(map[models.Capability]*models.AgentDescriptor)}
	for _, c := range caps {
		r.agents[c] = &models.AgentDescriptor{
			Name:           string(c),
			Capability:     c,
			Specialization: agentSpecializations[c],
			State:          models.AgentStateReady,
		}
	}
	return r
}

// markWorking records that the capability's agent started a task.
func (r *agentRegistry) markWorking(c models.Capability, taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[c]
	if !ok {
		return
	}
	a.State = models.AgentStateWorking
	a.CurrentTask = taskID
	a.LastActivity = time.Now()
}

// markDone records the outcome of the capability's last invocation.
func (r *agentRegistry) markDone(c models.Capability, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[c]
	if !ok {
		return
	}
	a.CurrentTask = ""
	a.LastActivity = time.Now()
	a.Invocations++
	if success {
		a.State = models.AgentStateReady
	} else {
		a.State = models.AgentStateError
		a.Failures++
	}
}

// snapshot returns descriptor copies sorted by name.
func (r *agentRegistry) snapshot() []models.AgentDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.AgentDescriptor, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// working counts agents currently executing a task.
func (r *agentRegistry) working() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, a := range r.agents {
		if a.State == models.AgentStateWorking {
			n++
		}
	}
	return n
}
