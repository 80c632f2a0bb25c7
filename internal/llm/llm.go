// Package llm wraps the completion providers behind one interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qepting91/reddit-commenter/internal/config"
)

// ErrEmptyResponse is returned when a provider answers without text
var ErrEmptyResponse = errors.New("no content in completion response")

// Completer turns a single prompt into a single completion
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Settings bound every request
type Settings struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// Timeout bounds a single completion; zero leaves only ctx in charge.
	Timeout time.Duration
}

// New selects a provider from cfg. Each completion is bounded by timeout.
func New(ctx context.Context, cfg config.LLM, timeout time.Duration) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key required for %s provider: set llm.api_key or LLM_API_KEY", cfg.Provider)
	}
	settings := Settings{Model: cfg.Model, MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature, Timeout: timeout}

	switch cfg.Provider {
	case "anthropic":
		return NewAnthropic(cfg.APIKey, settings), nil
	case "gemini":
		return NewGemini(ctx, cfg.APIKey, settings)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (use 'anthropic' or 'gemini')", cfg.Provider)
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
