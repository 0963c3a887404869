package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify loom configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ` + config.GetUserConfigPath() + `
Project-specific overrides can be placed in .loom.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values with API keys masked.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("providers.anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Providers.Anthropic.APIKey))
	fmt.Printf("providers.anthropic.model: %s\n", cfg.Providers.Anthropic.Model)
	fmt.Printf("providers.anthropic.use_bedrock: %t\n", cfg.Providers.Anthropic.UseBedrock)
	fmt.Printf("providers.anthropic.aws_region: %s\n", cfg.Providers.Anthropic.AWSRegion)
	fmt.Printf("providers.anthropic.aws_profile: %s\n", cfg.Providers.Anthropic.AWSProfile)
	fmt.Printf("providers.openai.api_key: %s\n", config.MaskAPIKey(cfg.Providers.OpenAI.APIKey))
	fmt.Printf("providers.openai.base_url: %s\n", cfg.Providers.OpenAI.BaseURL)
	fmt.Printf("providers.openai.model: %s\n", cfg.Providers.OpenAI.Model)
	fmt.Printf("providers.deepseek.api_key: %s\n", config.MaskAPIKey(cfg.Providers.DeepSeek.APIKey))
	fmt.Printf("providers.deepseek.base_url: %s\n", cfg.Providers.DeepSeek.BaseURL)
	fmt.Printf("providers.deepseek.model: %s\n", cfg.Providers.DeepSeek.Model)
	fmt.Printf("server.addr: %s\n", cfg.Server.Addr)
	fmt.Printf("workspace.dir: %s\n", cfg.Workspace.Dir)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	display := value
	if strings.HasSuffix(key, "api_key") {
		display = config.MaskAPIKey(value)
	}
	fmt.Printf("Set %s = %s\n", key, display)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "providers.anthropic.api_key":
		return config.MaskAPIKey(cfg.Providers.Anthropic.APIKey), nil
	case "providers.anthropic.model":
		return cfg.Providers.Anthropic.Model, nil
	case "providers.anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Providers.Anthropic.UseBedrock), nil
	case "providers.anthropic.aws_region":
		return cfg.Providers.Anthropic.AWSRegion, nil
	case "providers.anthropic.aws_profile":
		return cfg.Providers.Anthropic.AWSProfile, nil
	case "providers.openai.api_key":
		return config.MaskAPIKey(cfg.Providers.OpenAI.APIKey), nil
	case "providers.openai.base_url":
		return cfg.Providers.OpenAI.BaseURL, nil
	case "providers.openai.model":
		return cfg.Providers.OpenAI.Model, nil
	case "providers.deepseek.api_key":
		return config.MaskAPIKey(cfg.Providers.DeepSeek.APIKey), nil
	case "providers.deepseek.base_url":
		return cfg.Providers.DeepSeek.BaseURL, nil
	case "providers.deepseek.model":
		return cfg.Providers.DeepSeek.Model, nil
	case "server.addr":
		return cfg.Server.Addr, nil
	case "workspace.dir":
		return cfg.Workspace.Dir, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "providers.anthropic.api_key":
		cfg.Providers.Anthropic.APIKey = value
	case "providers.anthropic.model":
		cfg.Providers.Anthropic.Model = value
	case "providers.anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.Providers.Anthropic.UseBedrock = b
	case "providers.anthropic.aws_region":
		cfg.Providers.Anthropic.AWSRegion = value
	case "providers.anthropic.aws_profile":
		cfg.Providers.Anthropic.AWSProfile = value
	case "providers.openai.api_key":
		cfg.Providers.OpenAI.APIKey = value
	case "providers.openai.base_url":
		cfg.Providers.OpenAI.BaseURL = value
	case "providers.openai.model":
		cfg.Providers.OpenAI.Model = value
	case "providers.deepseek.api_key":
		cfg.Providers.DeepSeek.APIKey = value
	case "providers.deepseek.base_url":
		cfg.Providers.DeepSeek.BaseURL = value
	case "providers.deepseek.model":
		cfg.Providers.DeepSeek.Model = value
	case "server.addr":
		cfg.Server.Addr = value
	case "workspace.dir":
		cfg.Workspace.Dir = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
