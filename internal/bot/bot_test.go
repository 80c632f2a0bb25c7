package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/qepting91/reddit-commenter/internal/domain"
	"github.com/qepting91/reddit-commenter/internal/filter"
	"github.com/qepting91/reddit-commenter/internal/generator"
	"github.com/qepting91/reddit-commenter/internal/reddit"
	"github.com/qepting91/reddit-commenter/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeReddit struct {
	posts       []domain.Post
	listErr     error
	comments    map[string][]domain.Comment
	commentErr  map[string]error
	submitErr   error
	submitted   []string
	submitTexts []string
}

func (f *fakeReddit) Listing(ctx context.Context, opts domain.ListOptions) (domain.Page, error) {
	if f.listErr != nil {
		return domain.Page{}, f.listErr
	}
	return domain.Page{Posts: f.posts}, nil
}

func (f *fakeReddit) TopComments(ctx context.Context, postID string, limit int) ([]domain.Comment, error) {
	if err := f.commentErr[postID]; err != nil {
		return nil, err
	}
	return f.comments[postID], nil
}

func (f *fakeReddit) SubmitComment(ctx context.Context, fullName, text string) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, fullName)
	f.submitTexts = append(f.submitTexts, text)
	return fmt.Sprintf("t1_c%d", len(f.submitted)), nil
}

type stubCompleter struct{ calls int }

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return "That fog rolling over the water is unreal.", nil
}

type passSelector struct{}

func (passSelector) Select(ctx context.Context, posts []domain.Post) []domain.Post { return posts }

type fixedGenerator struct {
	text  string
	err   error
	calls int
}

func (g *fixedGenerator) Generate(ctx context.Context, post domain.Post, comments []domain.Comment) (string, error) {
	g.calls++
	return g.text, g.err
}

type memRecorder struct {
	records []domain.CommentRecord
	err     error
}

func (m *memRecorder) InsertComment(ctx context.Context, rec domain.CommentRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

type memJournal struct{ entries []storage.JournalEntry }

func (m *memJournal) Write(e storage.JournalEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func usable(n int) []domain.Comment {
	var out []domain.Comment
	for i := 0; i < n; i++ {
		out = append(out, domain.Comment{ID: fmt.Sprintf("c%d", i), Author: "u", Body: "a genuinely long enough comment"})
	}
	return out
}

func imagePost(id string) domain.Post {
	return domain.Post{
		ID:           id,
		FullName:     "t3_" + id,
		Title:        "Fog over the lake",
		Author:       "alice",
		URL:          "https://i.redd.it/" + id + ".jpg",
		CommentCount: 10,
		Created:      time.Now().Add(-2 * time.Hour),
	}
}

var baseOpts = Options{
	ListingSort:       "hot",
	ListingLimit:      25,
	MaxComments:       5,
	CommentDelay:      time.Minute,
	TopComments:       10,
	MinUsableComments: 3,
	MinUsableLength:   10,
}

// pipeline wires the real filter, generator and sqlite store around fakes
// for Reddit and the completion provider.
func pipeline(t *testing.T, rd *fakeReddit, opts Options) (*Runner, *storage.Store, *stubCompleter, *memJournal) {
	t.Helper()
	logger := quietLogger()

	store, err := storage.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "bot.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	completer := &stubCompleter{}
	gen, err := generator.New(completer, "", generator.Options{MinLength: 10, MaxLength: 200, PromptComments: 5}, logger)
	require.NoError(t, err)

	sel := filter.New(store, filter.Options{MinComments: 5, MaxAge: 24 * time.Hour, BatchSize: 10}, logger)
	journal := &memJournal{}

	r := New(rd, rd, sel, gen, store, journal, opts, logger)
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r, store, completer, journal
}

func TestRunEndToEnd(t *testing.T) {
	rd := &fakeReddit{
		posts:    []domain.Post{imagePost("abc")},
		comments: map[string][]domain.Comment{"abc": usable(3)},
	}
	r, store, completer, journal := pipeline(t, rd, baseOpts)

	sum, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, completer.calls)
	assert.Equal(t, []string{"t3_abc"}, rd.submitted)
	assert.Equal(t, []string{"That fog rolling over the water is unreal."}, rd.submitTexts)
	assert.True(t, store.CommentExists(context.Background(), "abc"))
	assert.Empty(t, journal.entries)
	assert.Equal(t, Summary{Fetched: 1, Candidates: 1, Processed: 1, Committed: 1}, sum)

	// a second run sees the marker and leaves the post alone
	sum, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Candidates)
	assert.Len(t, rd.submitted, 1)
}

func TestRunDryRunDoesNotPostOrRecord(t *testing.T) {
	rd := &fakeReddit{
		posts:    []domain.Post{imagePost("abc")},
		comments: map[string][]domain.Comment{"abc": usable(3)},
	}
	opts := baseOpts
	opts.DryRun = true
	r, store, completer, journal := pipeline(t, rd, opts)

	sum, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, completer.calls)
	assert.Empty(t, rd.submitted)
	assert.False(t, store.CommentExists(context.Background(), "abc"))
	require.Len(t, journal.entries, 1)
	assert.Equal(t, "abc", journal.entries[0].RedditID)
	assert.Equal(t, 1, sum.Committed)
}

func TestRunFetchFailureAborts(t *testing.T) {
	rd := &fakeReddit{listErr: errors.New("HTTP 503")}
	r := New(rd, rd, passSelector{}, &fixedGenerator{}, &memRecorder{}, nil, baseOpts, quietLogger())

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
}

func TestRunContinuesAfterPostFailure(t *testing.T) {
	rd := &fakeReddit{
		posts:      []domain.Post{imagePost("broken"), imagePost("ok")},
		comments:   map[string][]domain.Comment{"ok": usable(3)},
		commentErr: map[string]error{"broken": errors.New("HTTP 500")},
	}
	rec := &memRecorder{}
	r := New(rd, rd, passSelector{}, &fixedGenerator{text: "lovely"}, rec, nil, baseOpts, quietLogger())

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Fetched: 2, Candidates: 2, Processed: 2, Committed: 1, Errors: 1}, sum)
	require.Len(t, rec.records, 1)
	assert.Equal(t, "ok", rec.records[0].RedditID)
	assert.Equal(t, "t1_c1", rec.records[0].CommentID)
}

func TestRunAuthFailureAborts(t *testing.T) {
	rd := &fakeReddit{
		posts:     []domain.Post{imagePost("a"), imagePost("b")},
		comments:  map[string][]domain.Comment{"a": usable(3), "b": usable(3)},
		submitErr: fmt.Errorf("%w: HTTP 401", reddit.ErrAuth),
	}
	gen := &fixedGenerator{text: "lovely"}
	r := New(rd, rd, passSelector{}, gen, &memRecorder{}, nil, baseOpts, quietLogger())

	sum, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, reddit.ErrAuth)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, sum.Errors)
}

func TestRunSkipsThinThreads(t *testing.T) {
	comments := []domain.Comment{
		{Body: "a genuinely long enough comment"},
		{Body: "[deleted]"},
		{Body: "[removed]"},
		{Body: "   "},
		{Body: "short"},
		{Body: "another comment that is long"},
	}
	rd := &fakeReddit{
		posts:    []domain.Post{imagePost("thin")},
		comments: map[string][]domain.Comment{"thin": comments},
	}
	gen := &fixedGenerator{text: "lovely"}
	r := New(rd, rd, passSelector{}, gen, &memRecorder{}, nil, baseOpts, quietLogger())

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, gen.calls)
	assert.Equal(t, 1, sum.Skipped)
	assert.Zero(t, sum.Errors)
}

func TestRunGeneratorRejectionIsSkip(t *testing.T) {
	rd := &fakeReddit{
		posts:    []domain.Post{imagePost("a")},
		comments: map[string][]domain.Comment{"a": usable(3)},
	}
	gen := &fixedGenerator{err: generator.ErrTooShort}
	r := New(rd, rd, passSelector{}, gen, &memRecorder{}, nil, baseOpts, quietLogger())

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Empty(t, rd.submitted)
}

func TestRunCapAndDelay(t *testing.T) {
	rd := &fakeReddit{
		posts:    []domain.Post{imagePost("a"), imagePost("b"), imagePost("c")},
		comments: map[string][]domain.Comment{"a": usable(3), "b": usable(3), "c": usable(3)},
	}
	opts := baseOpts
	opts.MaxComments = 2
	r := New(rd, rd, passSelector{}, &fixedGenerator{text: "lovely"}, &memRecorder{}, nil, opts, quietLogger())
	var sleeps []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"t3_a", "t3_b"}, rd.submitted)
	assert.Equal(t, 2, sum.Committed)
	assert.Equal(t, 2, sum.Processed)
	assert.Equal(t, []time.Duration{time.Minute}, sleeps)
}

func TestRunRecordFailureStillCommitted(t *testing.T) {
	rd := &fakeReddit{
		posts:    []domain.Post{imagePost("a")},
		comments: map[string][]domain.Comment{"a": usable(3)},
	}
	rec := &memRecorder{err: errors.New("connection reset")}
	r := New(rd, rd, passSelector{}, &fixedGenerator{text: "lovely"}, rec, nil, baseOpts, quietLogger())

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Committed)
	assert.Zero(t, sum.Errors)
	assert.Len(t, rd.submitted, 1)
}

func TestRunStopsOnCancelledDelay(t *testing.T) {
	rd := &fakeReddit{
		posts:    []domain.Post{imagePost("a"), imagePost("b")},
		comments: map[string][]domain.Comment{"a": usable(3), "b": usable(3)},
	}
	r := New(rd, rd, passSelector{}, &fixedGenerator{text: "lovely"}, &memRecorder{}, nil, baseOpts, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	r.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	sum, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sum.Committed)
}

func TestUsableComments(t *testing.T) {
	got := UsableComments([]domain.Comment{
		{Body: "[deleted]"},
		{Body: ""},
		{Body: "ok but short"},
		{Body: "  long enough to count  "},
	}, 13)
	require.Len(t, got, 1)
	assert.Equal(t, "  long enough to count  ", got[0].Body)
}
