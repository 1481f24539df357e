// Package llm provides a minimal client for OpenAI-compatible chat
// completion endpoints, with a fallback model for transient failures.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/asianviking/takopi-discord/internal/config"
)

var (
	ErrPermanent = errors.New("permanent error")
	ErrTransient = errors.New("transient error")
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Client struct {
	baseURL       string
	apiKey        string
	model         string
	fallbackModel string
	maxTokens     int
	temperature   float64
	http          *http.Client
}

// NewClient builds a chat client from config.
func NewClient(cfg config.LLMConfig) *Client {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		fallbackModel: cfg.FallbackModel,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		http:          &http.Client{Timeout: timeout},
	}
}

// Chat sends messages to the configured model and returns the first
// choice's content. Transient failures (network errors, 429, 5xx) are
// retried once against the fallback model when one is configured.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	model := c.model
	if model == "" {
		model = "local"
	}

	content, err := c.call(ctx, model, messages)
	if err == nil {
		return content, nil
	}
	if errors.Is(err, ErrTransient) && c.fallbackModel != "" && c.fallbackModel != model {
		time.Sleep(250 * time.Millisecond)
		return c.call(ctx, c.fallbackModel, messages)
	}
	return "", err
}

func (c *Client) call(ctx context.Context, model string, messages []Message) (string, error) {
	maxTokens := c.maxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	payload := map[string]interface{}{
		"model":       model,
		"messages":    messages,
		"max_tokens":  maxTokens,
		"temperature": c.temperature,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("%w: decode error: %v", ErrTransient, err)
		}
		if len(out.Choices) == 0 {
			return "", nil
		}
		return out.Choices[0].Message.Content, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	default:
		return "", fmt.Errorf("%w: status %d", ErrPermanent, resp.StatusCode)
	}
}
