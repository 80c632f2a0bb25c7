// Package bot runs one commenting pass over the community.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/qepting91/reddit-commenter/internal/domain"
	"github.com/qepting91/reddit-commenter/internal/reddit"
	"github.com/qepting91/reddit-commenter/internal/storage"
)

var errSkipped = errors.New("skipped")

// Selector narrows fetched posts to candidates
type Selector interface {
	Select(ctx context.Context, posts []domain.Post) []domain.Post
}

// Generator writes a comment for a post; any error means skip
type Generator interface {
	Generate(ctx context.Context, post domain.Post, comments []domain.Comment) (string, error)
}

// Recorder persists comment markers
type Recorder interface {
	InsertComment(ctx context.Context, rec domain.CommentRecord) error
}

// Journal receives what a dry run would have posted
type Journal interface {
	Write(entry storage.JournalEntry) error
}

// Options for a single run
type Options struct {
	ListingSort       string
	ListingLimit      int
	MaxComments       int
	CommentDelay      time.Duration
	TopComments       int
	MinUsableComments int
	MinUsableLength   int
	DryRun            bool
}

// Summary holds the run counters reported at the end
type Summary struct {
	Fetched    int
	Candidates int
	Processed  int
	Committed  int
	Skipped    int
	Errors     int
}

// Runner sequences fetch, filter and the per-candidate comment steps
type Runner struct {
	lister    domain.Lister
	commenter domain.Commenter
	selector  Selector
	generator Generator
	recorder  Recorder
	journal   Journal
	opts      Options
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

func New(lister domain.Lister, commenter domain.Commenter, selector Selector, generator Generator,
	recorder Recorder, journal Journal, opts Options, logger *slog.Logger) *Runner {
	return &Runner{
		lister:    lister,
		commenter: commenter,
		selector:  selector,
		generator: generator,
		recorder:  recorder,
		journal:   journal,
		opts:      opts,
		logger:    logger,
		sleep:     sleepContext,
	}
}

// Run processes one listing. It only returns an error when the run had to
// stop early: the listing could not be fetched, authentication failed or ctx
// was cancelled. Per-post failures are counted in the summary instead.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	r.logger.Info("Starting run", "dry_run", r.opts.DryRun, "max_comments", r.opts.MaxComments)

	page, err := r.lister.Listing(ctx, domain.ListOptions{Sort: r.opts.ListingSort, Limit: r.opts.ListingLimit})
	if err != nil {
		return sum, fmt.Errorf("fetch %s posts: %w", r.opts.ListingSort, err)
	}
	sum.Fetched = len(page.Posts)

	candidates := r.selector.Select(ctx, page.Posts)
	sum.Candidates = len(candidates)

	for i, post := range candidates {
		if sum.Committed >= r.opts.MaxComments {
			r.logger.Info("Comment cap reached", "committed", sum.Committed)
			break
		}
		if err := ctx.Err(); err != nil {
			r.summarize(sum)
			return sum, err
		}

		sum.Processed++
		posted, err := r.process(ctx, post)
		switch {
		case errors.Is(err, reddit.ErrAuth):
			sum.Errors++
			r.summarize(sum)
			return sum, fmt.Errorf("post %s: %w", post.ID, err)
		case errors.Is(err, errSkipped):
			sum.Skipped++
			r.logger.Info("Post skipped", "post_id", post.ID, "reason", err)
		case err != nil:
			sum.Errors++
			r.logger.Error("Post failed", "post_id", post.ID, "error", err)
		}

		if !posted {
			continue
		}
		sum.Committed++
		if sum.Committed < r.opts.MaxComments && i < len(candidates)-1 && r.opts.CommentDelay > 0 {
			r.logger.Debug("Waiting before next comment", "delay", r.opts.CommentDelay.String())
			if err := r.sleep(ctx, r.opts.CommentDelay); err != nil {
				r.summarize(sum)
				return sum, err
			}
		}
	}

	r.summarize(sum)
	return sum, nil
}

// process reports whether a comment was posted (or simulated).
func (r *Runner) process(ctx context.Context, post domain.Post) (bool, error) {
	comments, err := r.lister.TopComments(ctx, post.ID, r.opts.TopComments)
	if err != nil {
		return false, err
	}
	usable := UsableComments(comments, r.opts.MinUsableLength)
	if len(usable) < r.opts.MinUsableComments {
		return false, fmt.Errorf("%w: %d usable comments, need %d", errSkipped, len(usable), r.opts.MinUsableComments)
	}

	text, err := r.generator.Generate(ctx, post, usable)
	if err != nil {
		return false, fmt.Errorf("%w: %w", errSkipped, err)
	}

	if r.opts.DryRun {
		r.logger.Info("Dry run, not posting", "post_id", post.ID, "title", post.Title, "comment", text)
		if r.journal != nil {
			if err := r.journal.Write(storage.JournalEntry{RedditID: post.ID, Title: post.Title, Comment: text}); err != nil {
				r.logger.Warn("Failed to write dry run journal", "error", err)
			}
		}
		return true, nil
	}

	commentID, err := r.commenter.SubmitComment(ctx, post.FullName, text)
	if err != nil {
		return false, err
	}
	r.logger.Info("Comment posted", "post_id", post.ID, "comment_id", commentID)

	rec := domain.CommentRecord{RedditID: post.ID, CommentID: commentID, Text: text, CreatedAt: time.Now().UTC()}
	if err := r.recorder.InsertComment(ctx, rec); err != nil {
		// The comment is live but unrecorded; a later run may comment again.
		r.logger.Error("Comment posted but not recorded", "post_id", post.ID, "comment_id", commentID, "error", err)
	}
	return true, nil
}

func (r *Runner) summarize(sum Summary) {
	r.logger.Info("Run summary",
		"fetched", sum.Fetched,
		"candidates", sum.Candidates,
		"processed", sum.Processed,
		"committed", sum.Committed,
		"skipped", sum.Skipped,
		"errors", sum.Errors,
		"dry_run", r.opts.DryRun)
}

// UsableComments drops empty, deleted and too-short comments
func UsableComments(comments []domain.Comment, minLen int) []domain.Comment {
	var out []domain.Comment
	for _, c := range comments {
		body := strings.TrimSpace(c.Body)
		if body == "" || body == "[deleted]" || body == "[removed]" {
			continue
		}
		if len([]rune(body)) < minLen {
			continue
		}
		out = append(out, c)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
