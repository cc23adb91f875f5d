package instructagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ──────────────────────────────────────────────
// Chat Client — OpenAI-compatible completions
// ──────────────────────────────────────────────
//
// Works against any server exposing the OpenAI chat completions API. The
// default target is a local LM Studio instance, which accepts any API key.

// LLMMessage is the assistant message returned by the endpoint.
type LLMMessage struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	ToolCalls []ToolCallInput `json:"tool_calls,omitempty"`
}

// LLMFunc is the injection point between the runtime and the model: message
// history plus an optional tools schema in, one assistant message out. Tests
// drive the reasoning loop with fakes of this.
type LLMFunc func(ctx context.Context, messages []map[string]interface{}, tools []map[string]interface{}) (*LLMMessage, error)

// ChatClient calls the configured chat completions endpoint.
type ChatClient struct {
	apiBase     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
}

// NewChatClient creates a client from the harness configuration.
func NewChatClient(cfg *Config) *ChatClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatClient{
		apiBase:     strings.TrimRight(cfg.APIBase, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// WithTemperature returns a copy of the client using a different sampling
// temperature, for per-agent overrides from the definition file.
func (c *ChatClient) WithTemperature(t float64) *ChatClient {
	clone := *c
	clone.temperature = t
	return &clone
}

// Model returns the configured model identifier.
func (c *ChatClient) Model() string { return c.model }

type chatCompletionRequest struct {
	Model       string                   `json:"model"`
	Messages    []map[string]interface{} `json:"messages"`
	Temperature float64                  `json:"temperature"`
	Tools       []map[string]interface{} `json:"tools,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message LLMMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one chat completion request and returns the assistant
// message. It blocks until the endpoint answers or the request timeout hits.
func (c *ChatClient) Complete(ctx context.Context, messages []map[string]interface{}, tools []map[string]interface{}) (*LLMMessage, error) {
	payload, err := json.Marshal(chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		Tools:       tools,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", c.apiBase, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, truncate(string(body), 500))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}
	return &parsed.Choices[0].Message, nil
}

// LLMFunc adapts the client to the runtime's injection point.
func (c *ChatClient) LLMFunc() LLMFunc {
	return func(ctx context.Context, messages []map[string]interface{}, tools []map[string]interface{}) (*LLMMessage, error) {
		return c.Complete(ctx, messages, tools)
	}
}

// Models returns the model identifiers the endpoint advertises.
func (c *ChatClient) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", c.apiBase, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, truncate(string(body), 500))
	}

	var parsed struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	models := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		models = append(models, m.ID)
	}
	return models, nil
}

// CheckConnection probes the models endpoint and logs the outcome.
func (c *ChatClient) CheckConnection(ctx context.Context) error {
	models, err := c.Models(ctx)
	if err != nil {
		return fmt.Errorf("endpoint %s unreachable: %w", c.apiBase, err)
	}
	log.Printf("[ChatClient] Connected to %s (%d models available)", c.apiBase, len(models))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
