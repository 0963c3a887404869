package connector

import (
	"errors"
	"testing"

	"github.com/loomworks/loom/pkg/models"
)

func TestLooseParseJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantKey string
		wantErr bool
	}{
		{
			name:    "plain object",
			raw:     `{"architecture": "single binary"}`,
			wantKey: "architecture",
		},
		{
			name:    "json fence",
			raw:     "Here is my analysis:\n```json\n{\"architecture\": \"layered\"}\n```\nDone.",
			wantKey: "architecture",
		},
		{
			name:    "bare fence",
			raw:     "```\n{\"runnable\": true}\n```",
			wantKey: "runnable",
		},
		{
			name:    "prose around braces",
			raw:     `Sure! {"recommendations": ["memoize"]} Hope that helps.`,
			wantKey: "recommendations",
		},
		{
			name:    "no json at all",
			raw:     "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "empty string",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LooseParseJSON(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("LooseParseJSON(%q) succeeded, want error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("LooseParseJSON(%q): %v", tt.raw, err)
			}
			if _, ok := got[tt.wantKey]; !ok {
				t.Errorf("parsed result missing key %q: %v", tt.wantKey, got)
			}
		})
	}
}

func TestParseStructuredWrapsParseError(t *testing.T) {
	_, err := parseStructured(models.CapabilityAnalyst, "no json here")
	if err == nil {
		t.Fatal("expected error for unparseable response")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error is %T, want *ParseError", err)
	}
	if perr.Capability != models.CapabilityAnalyst {
		t.Errorf("ParseError capability = %q, want %q", perr.Capability, models.CapabilityAnalyst)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", "print('hi')", "print('hi')"},
		{"python fence", "```python\nprint('hi')\n```", "print('hi')"},
		{"bare fence", "```\nprint('hi')\n```", "print('hi')"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFence(tt.in); got != tt.want {
				t.Errorf("stripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
