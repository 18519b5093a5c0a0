// Package llm is a minimal chat client for the study-plan LLM extraction
// path. Every supported provider is reached through the OpenAI
// chat-completions protocol; they differ only in endpoint and default
// model.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Provider is the interface for LLM chat interactions.
type Provider interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	// JSON asks the model for a single JSON object.
	JSON bool `json:"json,omitempty"`
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the response from a chat completion.
type ChatResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	FinishReason     string `json:"finish_reason"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// Truncated reports whether the model stopped at its output token limit,
// which leaves a JSON answer cut off.
func (r *ChatResponse) Truncated() bool {
	return r.FinishReason == "length"
}

// Config configures an LLM provider.
type Config struct {
	Provider string `json:"provider"` // ollama, openai, gemini, custom
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`

	// Timeout bounds a single HTTP attempt. Zero means DefaultTimeout.
	Timeout time.Duration `json:"timeout"`
	// MaxRetries is how many times a transient failure is retried.
	// Negative disables retries; zero means DefaultMaxRetries.
	MaxRetries int `json:"max_retries"`
}

// Defaults for Config. A whole study plan in one prompt takes a while to
// answer, and local providers may load the model on the first request.
const (
	DefaultTimeout    = 120 * time.Second
	DefaultMaxRetries = 3
)

// endpoint is the per-provider part of a client.
type endpoint struct {
	baseURL string
	// prefix goes between the base URL and /chat/completions.
	prefix string
	model  string
}

// Gemini serves its OpenAI-compatible API without the /v1 prefix.
// Suitable chat models for study-plan extraction:
//
//	gemini-2.5-flash   fast, cost-effective (default)
//	gemini-2.5-pro     highest capability
var endpoints = map[string]endpoint{
	"ollama": {baseURL: "http://localhost:11434", prefix: "/v1"},
	"openai": {baseURL: "https://api.openai.com", prefix: "/v1", model: "gpt-4o-mini"},
	"gemini": {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai", model: "gemini-2.5-flash"},
	"custom": {prefix: "/v1"},
}

// NewProvider creates an LLM provider from configuration. Empty BaseURL
// and Model fall back to the provider's defaults.
func NewProvider(cfg Config) (Provider, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("llm provider not specified")
	}
	ep, ok := endpoints[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = ep.baseURL
	}
	if cfg.Model == "" {
		cfg.Model = ep.model
	}
	return newClient(cfg, ep.prefix), nil
}
