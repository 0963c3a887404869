// Package config provides API key management utilities.
package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured for a provider.
var ErrNoAPIKey = errors.New("no API key configured")

// GetAnthropicKey returns the Anthropic API key.
// It checks in order: environment variable, config file.
func GetAnthropicKey(cfg *Config) (string, error) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, nil
	}
	return keyFromConfig(cfg, func(c *Config) string { return c.Providers.Anthropic.APIKey })
}

// GetOpenAIKey returns the OpenAI API key.
func GetOpenAIKey(cfg *Config) (string, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key, nil
	}
	return keyFromConfig(cfg, func(c *Config) string { return c.Providers.OpenAI.APIKey })
}

// GetDeepSeekKey returns the DeepSeek API key.
func GetDeepSeekKey(cfg *Config) (string, error) {
	if key := os.Getenv("DEEPSEEK_API_KEY"); key != "" {
		return key, nil
	}
	return keyFromConfig(cfg, func(c *Config) string { return c.Providers.DeepSeek.APIKey })
}

func keyFromConfig(cfg *Config, get func(*Config) string) (string, error) {
	if cfg == nil {
		return "", ErrNoAPIKey
	}
	// Expand any remaining env var references
	key := os.ExpandEnv(get(cfg))
	if key != "" && !strings.HasPrefix(key, "${") {
		return key, nil
	}
	return "", ErrNoAPIKey
}

// MaskAPIKey returns a masked version of an API key for display.
// Shows the first 7 and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 15 {
		return "***"
	}

	return key[:7] + "..." + key[len(key)-4:]
}
