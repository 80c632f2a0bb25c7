package llm

import (
	"context"
	"fmt"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

const systemPrompt = "You write short, friendly, on-topic Reddit comments. Reply with the comment text only."

// Anthropic completes prompts with the Messages API
type Anthropic struct {
	apiKey   string
	settings Settings
	// prompt is swappable in tests
	prompt func(system, user, schema, apiKey string, settings types.RequestSettings) (string, error)
}

func NewAnthropic(apiKey string, settings Settings) *Anthropic {
	return &Anthropic{apiKey: apiKey, settings: settings, prompt: promptAnthropic}
}

func promptAnthropic(system, user, schema, apiKey string, settings types.RequestSettings) (string, error) {
	response, err := anthropic.PromptWithSettings(system, user, schema, apiKey, settings)
	if err != nil {
		return "", err
	}
	if len(response.Content) == 0 {
		return "", ErrEmptyResponse
	}
	return response.Content[0].Text, nil
}

type completion struct {
	text string
	err  error
}

// Complete stops waiting once ctx is done or the configured timeout passes.
// The llmkit client takes no context, so an abandoned request finishes in
// the background and its reply is dropped.
func (a *Anthropic) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ctx, cancel := withTimeout(ctx, a.settings.Timeout)
	defer cancel()

	settings := types.RequestSettings{
		Model:       a.settings.Model,
		MaxTokens:   a.settings.MaxTokens,
		Temperature: a.settings.Temperature,
	}

	done := make(chan completion, 1)
	go func() {
		text, err := a.prompt(systemPrompt, prompt, "", a.apiKey, settings)
		done <- completion{text: text, err: err}
	}()

	var res completion
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("anthropic completion abandoned: %w", ctx.Err())
	case res = <-done:
	}

	if res.err != nil {
		return "", fmt.Errorf("anthropic completion failed: %w", res.err)
	}
	if res.text == "" {
		return "", ErrEmptyResponse
	}
	return res.text, nil
}
