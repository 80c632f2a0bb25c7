package crawl

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/qepting91/reddit-commenter/internal/domain"
	"github.com/qepting91/reddit-commenter/internal/imageres"
	"github.com/qepting91/reddit-commenter/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pagedLister struct {
	pages  []domain.Page
	errAt  int
	cursor []string
}

func (l *pagedLister) Listing(ctx context.Context, opts domain.ListOptions) (domain.Page, error) {
	l.cursor = append(l.cursor, opts.After)
	i := len(l.cursor) - 1
	if l.errAt > 0 && i == l.errAt-1 {
		return domain.Page{}, errors.New("HTTP 502")
	}
	if i >= len(l.pages) {
		return domain.Page{}, nil
	}
	return l.pages[i], nil
}

func (l *pagedLister) TopComments(ctx context.Context, postID string, limit int) ([]domain.Comment, error) {
	return nil, nil
}

func img(id string) domain.Post {
	return domain.Post{ID: id, Title: "t " + id, Author: "a", URL: "https://i.redd.it/" + id + ".jpg", Created: time.Now()}
}

func setup(t *testing.T, l *pagedLister) (*Crawler, *storage.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "crawl.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c := New(l, imageres.New(nil, false, logger), store, Options{Sort: "new", PageSize: 3, Pages: 5}, logger)
	return c, store
}

func TestRunInsertsDuplicatesOnce(t *testing.T) {
	video := img("vid")
	video.IsVideo = true
	l := &pagedLister{pages: []domain.Page{
		{Posts: []domain.Post{img("a"), img("dup"), video}, After: "t3_vid"},
		{Posts: []domain.Post{img("dup"), img("b")}, After: ""},
	}}
	c, store := setup(t, l)

	stats, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Stats{Pages: 2, Fetched: 5, Rejected: 1, Duplicates: 1, Inserted: 3}, stats)
	assert.Equal(t, []string{"", "t3_vid"}, l.cursor)

	posts, _, err := store.Counts(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, posts)
	assert.True(t, store.PostExists(context.Background(), "dup"))
}

func TestRunFirstPageFailure(t *testing.T) {
	c, _ := setup(t, &pagedLister{errAt: 1})

	_, err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestRunLaterPageFailureKeepsProgress(t *testing.T) {
	l := &pagedLister{
		pages: []domain.Page{{Posts: []domain.Post{img("a")}, After: "t3_a"}},
		errAt: 2,
	}
	c, _ := setup(t, l)

	stats, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pages)
	assert.Equal(t, 1, stats.Inserted)
}

func TestRunStopsAtPageLimit(t *testing.T) {
	l := &pagedLister{pages: []domain.Page{
		{Posts: []domain.Post{img("a")}, After: "x1"},
		{Posts: []domain.Post{img("b")}, After: "x2"},
		{Posts: []domain.Post{img("c")}, After: "x3"},
	}}
	c, _ := setup(t, l)
	c.opts.Pages = 2

	stats, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pages)
	assert.Len(t, l.cursor, 2)
}
