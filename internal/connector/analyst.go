package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/loomworks/loom/pkg/models"
)

// completer abstracts the model clients so connectors can be tested against
// doubles.
type completer interface {
	Complete(ctx context.Context, cap models.Capability, system, prompt string, maxTokens int64) (string, error)
}

const analystSystem = `You are an AI architect analyzing requirements for implementation.
Respond ONLY with a JSON object of this shape:
{
  "architecture": "one-line architecture summary",
  "components": ["component", ...],
  "technology": "recommended stack",
  "risks": ["risk", ...],
  "decisions": ["open decision needing human input", ...]
}
Omit "decisions" when no human decision is needed.
For visual/graphic requests, recommend HTML/CSS/SVG solutions unless other formats are requested.`

// Analyst maps a requirement to an architecture summary and risk list.
// Weak requirements are rewritten before analysis; the rewritten text is
// returned in the result so the rest of the chain references it.
type Analyst struct {
	client  completer
	obs     Observer
	timeout *AdaptiveTimeout
}

// NewAnalyst creates an analyst connector backed by the given client.
func NewAnalyst(client completer, obs Observer) *Analyst {
	if obs == nil {
		obs = NopObserver()
	}
	return &Analyst{
		client:  client,
		obs:     obs,
		timeout: NewAdaptiveTimeout(30*time.Second, 3*time.Minute, 3.0),
	}
}

// Capability returns CapabilityAnalyst.
func (a *Analyst) Capability() models.Capability { return models.CapabilityAnalyst }

// Execute analyzes the requirement and returns the structured analysis.
func (a *Analyst) Execute(ctx context.Context, requirement string, _ models.TaskContext) (models.Result, error) {
	enhanced := EnhanceRequirement(requirement)
	if enhanced != requirement {
		logf(a.obs, a.Capability(), "info", "rewrote weak requirement: %q", enhanced)
	}
	logf(a.obs, a.Capability(), "info", "starting analysis")

	callCtx, cancel := context.WithTimeout(ctx, a.timeout.Next())
	defer cancel()

	start := time.Now()
	text, err := a.client.Complete(callCtx, a.Capability(), analystSystem,
		fmt.Sprintf("User requirement: %s", enhanced), 1024)
	if err != nil {
		logf(a.obs, a.Capability(), "error", "analysis failed: %v", err)
		return nil, err
	}
	a.timeout.Observe(time.Since(start))

	result, err := parseStructured(a.Capability(), text)
	if err != nil {
		logf(a.obs, a.Capability(), "error", "analysis response unparseable")
		return nil, err
	}
	if _, ok := result["architecture"]; !ok {
		return nil, &ParseError{Capability: a.Capability(), Err: fmt.Errorf("missing architecture field")}
	}
	result["requirement"] = enhanced

	logf(a.obs, a.Capability(), "success", "analysis complete (%d chars)", len(text))
	return result, nil
}
