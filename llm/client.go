package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// APIError is a non-200 answer from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("LLM API error %d: %s", e.StatusCode, body)
}

// Temporary reports whether the request may succeed when retried.
func (e *APIError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryPolicy spaces retries exponentially from base. Rate-limited
// attempts start from rateLimit instead and honor Retry-After.
type retryPolicy struct {
	retries   int
	base      time.Duration
	rateLimit time.Duration
}

func newRetryPolicy(maxRetries int) retryPolicy {
	switch {
	case maxRetries < 0:
		maxRetries = 0
	case maxRetries == 0:
		maxRetries = DefaultMaxRetries
	}
	return retryPolicy{retries: maxRetries, base: 2 * time.Second, rateLimit: 5 * time.Second}
}

// wait returns the pause before retry n (1-based) after err.
func (p retryPolicy) wait(n int, err *APIError, retryAfter string) time.Duration {
	d := p.base << (n - 1)
	if err == nil || err.StatusCode != http.StatusTooManyRequests {
		return d
	}
	d = p.rateLimit << (n - 1)
	if secs, convErr := strconv.Atoi(retryAfter); convErr == nil {
		if h := time.Duration(secs) * time.Second; h > d {
			d = h
		}
	}
	return d
}

// client talks to one OpenAI-compatible chat endpoint.
type client struct {
	cfg    Config
	prefix string
	http   *http.Client
	retry  retryPolicy
}

func newClient(cfg Config, prefix string) *client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &client{
		cfg:    cfg,
		prefix: prefix,
		http:   &http.Client{Timeout: timeout},
		retry:  newRetryPolicy(cfg.MaxRetries),
	}
}

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat sends req, retrying transient failures.
func (c *client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body := completionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if body.Model == "" {
		body.Model = c.cfg.Model
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	raw, err := c.post(ctx, payload)
	if err != nil {
		return nil, err
	}

	var resp completionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in chat response")
	}

	return &ChatResponse{
		Content:          resp.Choices[0].Message.Content,
		Model:            resp.Model,
		FinishReason:     resp.Choices[0].FinishReason,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

func (c *client) post(ctx context.Context, payload []byte) ([]byte, error) {
	url := c.cfg.BaseURL + c.prefix + "/chat/completions"

	var (
		lastErr    error
		retryAfter string
	)
	for attempt := 0; attempt <= c.retry.retries; attempt++ {
		if attempt > 0 {
			var apiErr *APIError
			errors.As(lastErr, &apiErr)
			delay := c.retry.wait(attempt, apiErr, retryAfter)
			slog.Warn("llm: retrying request", "url", url, "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request to %s failed: %w", url, err)
			continue
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response body: %w", err)
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return data, nil
		}

		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		if !apiErr.Temporary() {
			return nil, apiErr
		}
		lastErr = apiErr
		retryAfter = resp.Header.Get("Retry-After")
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
