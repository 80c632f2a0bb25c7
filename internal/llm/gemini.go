package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini completes prompts with Google's GenerateContent API
type Gemini struct {
	client   *genai.Client
	settings Settings
}

func NewGemini(ctx context.Context, apiKey string, settings Settings) (*Gemini, error) {
	return newGemini(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, settings)
}

func newGemini(ctx context.Context, cc *genai.ClientConfig, settings Settings) (*Gemini, error) {
	if settings.Model == "" {
		settings.Model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client, settings: settings}, nil
}

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, g.settings.Timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(g.settings.Temperature)),
		MaxOutputTokens:   int32(g.settings.MaxTokens),
		// Thinking tokens count against MaxOutputTokens; a short comment
		// budget would otherwise come back empty.
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
	}
	result, err := g.client.Models.GenerateContent(ctx, g.settings.Model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
