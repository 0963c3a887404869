package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/loomworks/loom/pkg/models"
)

// Integrator prepares a validated artifact for deployment. Unlike the other
// capabilities it does not call an external model: deployment metadata is
// derived from the validation verdict, and the connector exists so the
// orchestrator drives every stage through the same contract.
type Integrator struct {
	obs Observer
}

// NewIntegrator creates an integrator connector.
func NewIntegrator(obs Observer) *Integrator {
	if obs == nil {
		obs = NopObserver()
	}
	return &Integrator{obs: obs}
}

// Capability returns CapabilityIntegrator.
func (g *Integrator) Capability() models.Capability { return models.CapabilityIntegrator }

// Execute produces a deployment summary for the validated artifact.
// The orchestrator only invokes it when validation reported runnable=true.
func (g *Integrator) Execute(_ context.Context, _ string, snapshot models.TaskContext) (models.Result, error) {
	filename, _ := snapshot.Implementation["filename"].(string)
	if filename == "" {
		return nil, &ParseError{Capability: g.Capability(), Err: fmt.Errorf("no artifact filename in context")}
	}

	execType, _ := snapshot.Validation["execution_type"].(string)
	command, _ := snapshot.Validation["command"].(string)

	logf(g.obs, g.Capability(), "info", "preparing %s for deployment", filename)

	summary := fmt.Sprintf("artifact %s ready", filename)
	if execType != "" {
		summary = fmt.Sprintf("artifact %s ready (%s)", filename, execType)
	}

	return models.Result{
		"summary":        summary,
		"artifact":       filename,
		"execution_type": execType,
		"command":        command,
		"prepared_at":    time.Now().Format(time.RFC3339),
	}, nil
}
