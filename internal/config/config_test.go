package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
providers:
  anthropic:
    api_key: sk-ant-test-key
    use_bedrock: true
    aws_region: us-west-2
  openai:
    model: gpt-4o-mini
server:
  addr: 0.0.0.0:9000
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Providers.Anthropic.APIKey != "sk-ant-test-key" {
		t.Errorf("api key = %q", cfg.Providers.Anthropic.APIKey)
	}
	if !cfg.Providers.Anthropic.UseBedrock || cfg.Providers.Anthropic.AWSRegion != "us-west-2" {
		t.Errorf("bedrock settings = %+v", cfg.Providers.Anthropic)
	}
	if cfg.Providers.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("openai model = %q", cfg.Providers.OpenAI.Model)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	// Unset values keep defaults.
	if cfg.Providers.DeepSeek.BaseURL != "https://api.deepseek.com/v1" {
		t.Errorf("deepseek base url = %q", cfg.Providers.DeepSeek.BaseURL)
	}
	if cfg.Workspace.Dir != "workspace" {
		t.Errorf("workspace dir = %q", cfg.Workspace.Dir)
	}
}

func TestLoadExpandsEnvReferences(t *testing.T) {
	t.Setenv("LOOM_TEST_SECRET", "sk-ant-from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("providers:\n  anthropic:\n    api_key: ${LOOM_TEST_SECRET}\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Providers.Anthropic.APIKey != "sk-ant-from-env" {
		t.Errorf("api key = %q, want env expansion", cfg.Providers.Anthropic.APIKey)
	}
}

func TestKeyLookupPrecedence(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-wins")

	cfg := Default()
	cfg.Providers.Anthropic.APIKey = "sk-ant-from-config"

	key, err := GetAnthropicKey(cfg)
	if err != nil {
		t.Fatalf("GetAnthropicKey: %v", err)
	}
	if key != "sk-ant-env-wins" {
		t.Errorf("key = %q, want env to win", key)
	}

	t.Setenv("ANTHROPIC_API_KEY", "")
	key, err = GetAnthropicKey(cfg)
	if err != nil {
		t.Fatalf("GetAnthropicKey from config: %v", err)
	}
	if key != "sk-ant-from-config" {
		t.Errorf("key = %q, want config fallback", key)
	}
}

func TestKeyLookupMissing(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := GetOpenAIKey(Default()); err == nil {
		t.Error("expected ErrNoAPIKey with no key configured")
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "(not set)"},
		{"short", "***"},
		{"sk-ant-REDACTED", "sk-ant-...1234"},
	}
	for _, tt := range tests {
		if got := MaskAPIKey(tt.key); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
