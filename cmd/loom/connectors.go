package main

import (
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"

	"github.com/loomworks/loom/internal/config"
	"github.com/loomworks/loom/internal/connector"
	"github.com/loomworks/loom/pkg/models"
)

// buildConnectors wires one connector per capability from the provider
// configuration. Analysis and validation run on Claude. Implementation uses
// the OpenAI-compatible endpoint and reasoning uses DeepSeek when their keys
// are configured; either falls back to Claude when the key is absent.
func buildConnectors(cfg *config.Config, obs connector.Observer) (map[models.Capability]connector.Connector, error) {
	anthropicKey, err := config.GetAnthropicKey(cfg)
	if err != nil && !cfg.Providers.Anthropic.UseBedrock {
		return nil, fmt.Errorf("anthropic provider: %w", err)
	}

	claude, err := connector.NewClaudeClient(connector.ClaudeConfig{
		Model:         anthropic.Model(cfg.Providers.Anthropic.Model),
		APIKey:        anthropicKey,
		UseAWSBedrock: cfg.Providers.Anthropic.UseBedrock,
		AWSRegion:     cfg.Providers.Anthropic.AWSRegion,
		AWSProfile:    cfg.Providers.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic client: %w", err)
	}

	conns := map[models.Capability]connector.Connector{
		models.CapabilityAnalyst:    connector.NewAnalyst(claude, obs),
		models.CapabilityValidator:  connector.NewValidator(claude, obs),
		models.CapabilityIntegrator: connector.NewIntegrator(obs),
	}

	if key, err := config.GetOpenAIKey(cfg); err == nil {
		chat := connector.NewChatClient(connector.ChatConfig{
			BaseURL: cfg.Providers.OpenAI.BaseURL,
			APIKey:  key,
			Model:   cfg.Providers.OpenAI.Model,
			Timeout: 180 * time.Second,
		})
		conns[models.CapabilityImplementer] = connector.NewImplementer(chat, obs)
	} else {
		printStatus("!", "OPENAI_API_KEY not set, implementation falls back to Claude", color.FgYellow)
		conns[models.CapabilityImplementer] = connector.NewImplementer(claude, obs)
	}

	if key, err := config.GetDeepSeekKey(cfg); err == nil {
		chat := connector.NewChatClient(connector.ChatConfig{
			BaseURL: cfg.Providers.DeepSeek.BaseURL,
			APIKey:  key,
			Model:   cfg.Providers.DeepSeek.Model,
			Timeout: 300 * time.Second,
		})
		conns[models.CapabilityReasoner] = connector.NewReasoner(chat, obs)
	} else {
		printStatus("!", "DEEPSEEK_API_KEY not set, reasoning falls back to Claude", color.FgYellow)
		conns[models.CapabilityReasoner] = connector.NewReasoner(claude, obs)
	}

	return conns, nil
}

func printStatus(symbol, msg string, c color.Attribute) {
	color.New(c).Printf("%s ", symbol)
	fmt.Println(msg)
}
