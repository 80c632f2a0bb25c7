// Package generator builds the prompt for a post, asks the completion
// provider for a comment and validates the answer.
package generator

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/qepting91/reddit-commenter/internal/domain"
	"github.com/qepting91/reddit-commenter/internal/llm"
)

//go:embed prompt.tmpl
var defaultPrompt string

const noBodyPlaceholder = "(no text, image only)"

var (
	ErrEmpty       = errors.New("generated comment is empty")
	ErrTooShort    = errors.New("generated comment is too short")
	ErrBlacklisted = errors.New("generated comment contains a blacklisted keyword")
)

// Options control prompt size and output validation
type Options struct {
	PromptComments     int
	PromptCommentChars int
	MinLength          int
	MaxLength          int
	Blacklist          []string
}

// Generator produces one comment per post
type Generator struct {
	completer llm.Completer
	tmpl      *template.Template
	opts      Options
	logger    *slog.Logger
}

// New parses the prompt template at promptPath, or the embedded default
// when promptPath is empty.
func New(completer llm.Completer, promptPath string, opts Options, logger *slog.Logger) (*Generator, error) {
	text := defaultPrompt
	if promptPath != "" {
		content, err := os.ReadFile(promptPath)
		if err != nil {
			return nil, fmt.Errorf("read prompt template: %w", err)
		}
		text = string(content)
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}

	blacklist := make([]string, 0, len(opts.Blacklist))
	for _, kw := range opts.Blacklist {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			blacklist = append(blacklist, kw)
		}
	}
	opts.Blacklist = blacklist

	return &Generator{completer: completer, tmpl: tmpl, opts: opts, logger: logger}, nil
}

type promptData struct {
	Subreddit    string
	Title        string
	Author       string
	Body         string
	CommentCount int
	Comments     string
}

// Prompt renders the template for post
func (g *Generator) Prompt(post domain.Post, comments []domain.Comment) (string, error) {
	body := strings.TrimSpace(post.Body)
	if body == "" {
		body = noBodyPlaceholder
	}
	data := promptData{
		Subreddit:    strings.TrimPrefix(post.Subreddit, "r/"),
		Title:        post.Title,
		Author:       post.Author,
		Body:         body,
		CommentCount: post.CommentCount,
		Comments:     g.formatComments(comments),
	}

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

func (g *Generator) formatComments(comments []domain.Comment) string {
	n := len(comments)
	if g.opts.PromptComments > 0 && n > g.opts.PromptComments {
		n = g.opts.PromptComments
	}
	if n == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for i, c := range comments[:n] {
		body := strings.Join(strings.Fields(c.Body), " ")
		if g.opts.PromptCommentChars > 0 {
			body = truncate(body, g.opts.PromptCommentChars, "...")
		}
		fmt.Fprintf(&sb, "%d. u/%s: %s\n", i+1, c.Author, body)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Generate returns a validated comment for post. Any error means the post
// should be skipped.
func (g *Generator) Generate(ctx context.Context, post domain.Post, comments []domain.Comment) (string, error) {
	prompt, err := g.Prompt(post, comments)
	if err != nil {
		return "", err
	}

	raw, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("completion for %s: %w", post.ID, err)
	}

	text, err := g.Validate(raw)
	if err != nil {
		g.logger.Info("Generated comment rejected", "post_id", post.ID, "reason", err)
		return "", err
	}
	return text, nil
}

// Validate cleans raw model output and applies the length and keyword rules.
// Over-long text is cut to exactly MaxLength runes rather than dropped.
func (g *Generator) Validate(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimSpace(strings.Trim(text, "\"“”"))
	if text == "" {
		return "", ErrEmpty
	}
	if utf8.RuneCountInString(text) < g.opts.MinLength {
		return "", fmt.Errorf("%w: %d < %d", ErrTooShort, utf8.RuneCountInString(text), g.opts.MinLength)
	}
	if g.opts.MaxLength > 0 {
		text = truncate(text, g.opts.MaxLength, "")
	}
	lower := strings.ToLower(text)
	for _, kw := range g.opts.Blacklist {
		if strings.Contains(lower, kw) {
			return "", fmt.Errorf("%w: %q", ErrBlacklisted, kw)
		}
	}
	return text, nil
}

// truncate cuts s to at most max runes, suffix included
func truncate(s string, max int, suffix string) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	keep := max - utf8.RuneCountInString(suffix)
	if keep < 0 {
		keep = 0
	}
	runes := []rune(s)
	return string(runes[:keep]) + suffix
}
