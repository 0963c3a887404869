package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/loomworks/loom/pkg/models"
)

const validatorSystem = `You are a quality assurance specialist reviewing generated code.
Respond ONLY with a JSON object of this shape:
{
  "runnable": true,
  "quality_score": 85,
  "dependencies": ["package", ...],
  "execution_type": "web_server|cli_tool|script|static_page",
  "command": "command to run it, if runnable",
  "issues": ["issue", ...],
  "decisions": ["decision needing human input", ...]
}
Omit "decisions" when no human decision is needed.`

// Validator reviews the implementation artifact and judges whether it is
// runnable. Its verdict gates the integration stage.
type Validator struct {
	client  completer
	obs     Observer
	timeout *AdaptiveTimeout
}

// NewValidator creates a validator connector backed by the given client.
func NewValidator(client completer, obs Observer) *Validator {
	if obs == nil {
		obs = NopObserver()
	}
	return &Validator{
		client:  client,
		obs:     obs,
		timeout: NewAdaptiveTimeout(30*time.Second, 3*time.Minute, 3.0),
	}
}

// Capability returns CapabilityValidator.
func (v *Validator) Capability() models.Capability { return models.CapabilityValidator }

// Execute validates the artifact in the context snapshot.
func (v *Validator) Execute(ctx context.Context, requirement string, snapshot models.TaskContext) (models.Result, error) {
	content, _ := snapshot.Implementation["content"].(string)
	if content == "" {
		logf(v.obs, v.Capability(), "warning", "no implementation content to validate")
	}
	logf(v.obs, v.Capability(), "info", "starting validation (%d chars of code)", len(content))

	prompt := fmt.Sprintf("Requirement: %s\n\nGenerated code:\n%s\n", requirement, content)

	callCtx, cancel := context.WithTimeout(ctx, v.timeout.Next())
	defer cancel()

	start := time.Now()
	text, err := v.client.Complete(callCtx, v.Capability(), validatorSystem, prompt, 2048)
	if err != nil {
		logf(v.obs, v.Capability(), "error", "validation failed: %v", err)
		return nil, err
	}
	v.timeout.Observe(time.Since(start))

	result, err := parseStructured(v.Capability(), text)
	if err != nil {
		logf(v.obs, v.Capability(), "error", "validation response unparseable")
		return nil, err
	}
	if _, ok := result["runnable"]; !ok {
		return nil, &ParseError{Capability: v.Capability(), Err: fmt.Errorf("missing runnable field")}
	}

	logf(v.obs, v.Capability(), "success", "validation complete")
	return result, nil
}

// FallbackValidation is the conservative result the orchestrator substitutes
// when the validator itself fails: the artifact is treated as not runnable
// and its quality as unknown, so the chain can continue without pretending
// the code was reviewed.
func FallbackValidation(reason string) models.Result {
	return models.Result{
		"runnable":      false,
		"quality_score": nil,
		"dependencies":  []any{},
		"issues":        []any{"validation unavailable: " + reason},
		"fallback":      true,
	}
}
