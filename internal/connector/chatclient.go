package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/loomworks/loom/pkg/models"
)

// ChatClient is a minimal client for OpenAI-compatible chat completion
// endpoints. The implementer connector points it at the OpenAI API; the
// reasoner connector points it at DeepSeek's compatible endpoint.
type ChatClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// ChatConfig contains configuration for creating a ChatClient.
type ChatConfig struct {
	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string
	// APIKey is the bearer token for the endpoint.
	APIKey string
	// Model is the model name to request.
	Model string
	// Timeout bounds each request; zero means 120s.
	Timeout time.Duration
}

// NewChatClient creates a client for an OpenAI-compatible endpoint.
func NewChatClient(cfg ChatConfig) *ChatClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &ChatClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model name.
func (c *ChatClient) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends a system+user prompt pair and returns the assistant text.
// Errors are classified into the connector taxonomy.
func (c *ChatClient) Complete(ctx context.Context, cap models.Capability, system, prompt string, maxTokens int64) (string, error) {
	if c.apiKey == "" {
		return "", &AuthError{Capability: cap, Err: fmt.Errorf("no API key configured for %s", c.baseURL)}
	}

	var messages []chatMessage
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   int(maxTokens),
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Capability: cap, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &TransportError{Capability: cap, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &AuthError{Capability: cap, Err: fmt.Errorf("endpoint returned %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return "", &TransportError{Capability: cap, Err: fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, truncate(string(raw), 200))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &ParseError{Capability: cap, Err: err}
	}
	if parsed.Error != nil {
		return "", &TransportError{Capability: cap, Err: fmt.Errorf("%s: %s", parsed.Error.Type, parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &ParseError{Capability: cap, Err: fmt.Errorf("response contained no choices")}
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
