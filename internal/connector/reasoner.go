package connector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/loomworks/loom/pkg/models"
)

const reasonerSystem = `You are an advanced reasoning system specialized in algorithmic
problem solving, performance optimization, and architecture trade-offs.
Respond ONLY with a JSON object of this shape:
{
  "recommendations": ["concrete recommendation", ...],
  "complexity": "time/space complexity estimate",
  "bottlenecks": ["suspected bottleneck", ...],
  "innovations": ["novel approach worth flagging", ...]
}
Omit "innovations" unless something genuinely unusual applies.`

// Reasoner performs the deep analysis pass inserted for complex
// requirements. It runs twice in a deep-reasoning chain: once after analysis
// and once after validation as an optimization pass.
type Reasoner struct {
	client  completer
	obs     Observer
	timeout *AdaptiveTimeout
}

// NewReasoner creates a reasoner connector backed by the given client.
func NewReasoner(client completer, obs Observer) *Reasoner {
	if obs == nil {
		obs = NopObserver()
	}
	return &Reasoner{
		client:  client,
		obs:     obs,
		timeout: NewAdaptiveTimeout(30*time.Second, 4*time.Minute, 3.0),
	}
}

// Capability returns CapabilityReasoner.
func (r *Reasoner) Capability() models.Capability { return models.CapabilityReasoner }

// Execute runs the deep-reasoning analysis over the accumulated context.
func (r *Reasoner) Execute(ctx context.Context, requirement string, snapshot models.TaskContext) (models.Result, error) {
	logf(r.obs, r.Capability(), "info", "starting deep reasoning")

	callCtx, cancel := context.WithTimeout(ctx, r.timeout.Next())
	defer cancel()

	start := time.Now()
	text, err := r.client.Complete(callCtx, r.Capability(), reasonerSystem, r.prompt(requirement, snapshot), 2048)
	if err != nil {
		logf(r.obs, r.Capability(), "error", "reasoning failed: %v", err)
		return nil, err
	}
	r.timeout.Observe(time.Since(start))

	result, err := parseStructured(r.Capability(), text)
	if err != nil {
		logf(r.obs, r.Capability(), "error", "reasoning response unparseable")
		return nil, err
	}
	if _, ok := result["recommendations"]; !ok {
		return nil, &ParseError{Capability: r.Capability(), Err: fmt.Errorf("missing recommendations field")}
	}

	logf(r.obs, r.Capability(), "success", "reasoning complete")
	return result, nil
}

// prompt includes whatever earlier stages have produced. On the
// post-validation pass the implementation and validation slots are populated
// and the reasoner critiques the actual artifact instead of the plan.
func (r *Reasoner) prompt(requirement string, snapshot models.TaskContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze this requirement with deep technical insight:\n\n%s\n", requirement)

	if arch, ok := snapshot.Analysis["architecture"].(string); ok {
		fmt.Fprintf(&sb, "\nPrior analysis: %s\n", arch)
	}
	if content, ok := snapshot.Implementation["content"].(string); ok {
		fmt.Fprintf(&sb, "\nImplementation under review:\n%s\n", truncate(content, 2000))
	}
	if issues, ok := snapshot.Validation["issues"]; ok {
		fmt.Fprintf(&sb, "\nValidation issues: %v\n", issues)
	}
	return sb.String()
}
