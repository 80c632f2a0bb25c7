// Package filter narrows a fetched listing down to the posts worth
// commenting on.
package filter

import (
	"context"
	"log/slog"
	"time"

	"github.com/qepting91/reddit-commenter/internal/domain"
	"github.com/qepting91/reddit-commenter/internal/imageres"
)

// Checker reports whether the bot already commented on a post
type Checker interface {
	CommentExists(ctx context.Context, redditID string) bool
}

// Options are the thresholds applied by Select
type Options struct {
	MinComments int
	MaxAge      time.Duration
	BatchSize   int
}

// Filter applies the candidate stages in a fixed order. The storage lookup
// runs last because it costs one round trip per post.
type Filter struct {
	checker Checker
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

func New(checker Checker, opts Options, logger *slog.Logger) *Filter {
	return &Filter{checker: checker, opts: opts, logger: logger, now: time.Now}
}

// Select returns at most BatchSize candidates from posts
func (f *Filter) Select(ctx context.Context, posts []domain.Post) []domain.Post {
	fetchedAt := f.now()
	f.logger.Info("Filtering candidates", "fetched", len(posts))

	out := keep(posts, func(p domain.Post) bool { return p.CommentCount >= f.opts.MinComments })
	f.logger.Info("After comment count filter", "remaining", len(out), "min_comments", f.opts.MinComments)

	out = keep(out, func(p domain.Post) bool { return fetchedAt.Sub(p.Created) <= f.opts.MaxAge })
	f.logger.Info("After age filter", "remaining", len(out), "max_age", f.opts.MaxAge.String())

	out = keep(out, func(p domain.Post) bool {
		if p.IsVideo {
			return false
		}
		kind := imageres.Classify(p)
		return kind == imageres.KindDirect || kind == imageres.KindGallery
	})
	f.logger.Info("After media filter", "remaining", len(out))

	out = keep(out, func(p domain.Post) bool { return !f.checker.CommentExists(ctx, p.ID) })
	f.logger.Info("After already-commented filter", "remaining", len(out))

	if f.opts.BatchSize > 0 && len(out) > f.opts.BatchSize {
		out = out[:f.opts.BatchSize]
	}
	f.logger.Info("Candidates selected", "count", len(out), "batch_size", f.opts.BatchSize)
	return out
}

func keep(posts []domain.Post, pred func(domain.Post) bool) []domain.Post {
	var out []domain.Post
	for _, p := range posts {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}
