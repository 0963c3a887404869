package connector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/loomworks/loom/pkg/models"
)

const implementerGraphicsSystem = `Generate a web-based solution using HTML/CSS/JavaScript or SVG.
Do not use server-side graphics libraries. Create a single self-contained HTML
file with inline styles and scripts. Respond with the complete file content
only, no explanations.`

const implementerCodeSystem = `Generate production-ready code with proper error handling and
documentation. Respond with the complete file content only, no explanations.`

// Implementer generates the code artifact for a requirement, informed by the
// analysis (and reasoning, when present) already accumulated in the context.
type Implementer struct {
	client  completer
	obs     Observer
	timeout *AdaptiveTimeout
}

// NewImplementer creates an implementer connector backed by the given client.
func NewImplementer(client completer, obs Observer) *Implementer {
	if obs == nil {
		obs = NopObserver()
	}
	return &Implementer{
		client:  client,
		obs:     obs,
		timeout: NewAdaptiveTimeout(30*time.Second, 4*time.Minute, 3.0),
	}
}

// Capability returns CapabilityImplementer.
func (i *Implementer) Capability() models.Capability { return models.CapabilityImplementer }

// Execute generates the artifact and returns content plus chosen filename.
func (i *Implementer) Execute(ctx context.Context, requirement string, snapshot models.TaskContext) (models.Result, error) {
	graphics := IsGraphicsRequirement(requirement)
	system := implementerCodeSystem
	if graphics {
		system = implementerGraphicsSystem
	}
	logf(i.obs, i.Capability(), "info", "starting code generation (graphics=%v)", graphics)

	callCtx, cancel := context.WithTimeout(ctx, i.timeout.Next())
	defer cancel()

	start := time.Now()
	text, err := i.client.Complete(callCtx, i.Capability(), system, i.prompt(requirement, snapshot), 4096)
	if err != nil {
		logf(i.obs, i.Capability(), "error", "code generation failed: %v", err)
		return nil, err
	}
	i.timeout.Observe(time.Since(start))

	content := stripCodeFence(text)
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Capability: i.Capability(), Err: fmt.Errorf("empty artifact content")}
	}

	filename := ArtifactFilename(requirement, content)
	logf(i.obs, i.Capability(), "success", "generated %s (%d chars)", filename, len(content))

	return models.Result{
		"content":  content,
		"filename": filename,
		"graphics": graphics,
	}, nil
}

// prompt builds the generation prompt from the requirement and prior stages.
func (i *Implementer) prompt(requirement string, snapshot models.TaskContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s\n", requirement)

	if arch, ok := snapshot.Analysis["architecture"].(string); ok {
		fmt.Fprintf(&sb, "\nArchitecture: %s\n", arch)
	}
	if tech, ok := snapshot.Analysis["technology"].(string); ok {
		fmt.Fprintf(&sb, "Technology: %s\n", tech)
	}
	if recs, ok := snapshot.Reasoning["recommendations"]; ok {
		fmt.Fprintf(&sb, "\nAlgorithmic guidance: %v\n", recs)
	}

	sb.WriteString("\nGenerate the complete implementation:\n")
	return sb.String()
}

// stripCodeFence removes a single wrapping markdown fence, if present.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	if body := extractFence(trimmed); body != "" {
		return body
	}
	return trimmed
}
