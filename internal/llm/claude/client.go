// Package claude implements the reasoning adapter on the Anthropic API.
package claude

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"
)

const (
	responseTokens = 2048
	callTimeout    = 60 * time.Second
)

// Client sends single-turn prompts to Claude and returns the raw text
// response. Output is untrusted and must be sanitized by the caller.
type Client struct {
	client  anthropic.Client
	model   string
	limiter *rate.Limiter
}

// New creates a Client for the given API key and model. rps bounds the
// request rate; zero or negative disables limiting.
func New(apiKey, model string, rps float64) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Generate sends the prompt and returns the concatenated text blocks of the
// response. The call is bounded by an internal timeout so a stalled
// provider degrades into a stage fallback instead of blocking the case.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: responseTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
