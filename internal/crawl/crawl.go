// Package crawl pages through the community listing and stores every new
// post that resolves to an image.
package crawl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qepting91/reddit-commenter/internal/domain"
)

// Resolver validates a post's image
type Resolver interface {
	Resolve(ctx context.Context, p domain.Post) domain.ImageValidation
}

// Store persists crawled posts
type Store interface {
	PostExists(ctx context.Context, redditID string) bool
	InsertPost(ctx context.Context, p domain.StoredPost) (bool, error)
}

// Options select the listing to walk
type Options struct {
	Sort       string
	TimeWindow string
	PageSize   int
	Pages      int
}

// Stats counts what one crawl saw
type Stats struct {
	Pages      int
	Fetched    int
	Rejected   int
	Duplicates int
	Inserted   int
	Errors     int
}

type Crawler struct {
	lister   domain.Lister
	resolver Resolver
	store    Store
	opts     Options
	logger   *slog.Logger
}

func New(lister domain.Lister, resolver Resolver, store Store, opts Options, logger *slog.Logger) *Crawler {
	return &Crawler{lister: lister, resolver: resolver, store: store, opts: opts, logger: logger}
}

// Run walks up to Pages pages. A failure on the first page is returned; a
// later page failure ends the crawl with the stats gathered so far.
func (c *Crawler) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	after := ""

	for page := 0; page < c.opts.Pages; page++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		listing, err := c.lister.Listing(ctx, domain.ListOptions{
			Sort:       c.opts.Sort,
			TimeWindow: c.opts.TimeWindow,
			Limit:      c.opts.PageSize,
			After:      after,
		})
		if err != nil {
			if page == 0 {
				return stats, fmt.Errorf("fetch first page: %w", err)
			}
			c.logger.Warn("Listing page failed, stopping crawl", "page", page+1, "error", err)
			break
		}
		stats.Pages++
		stats.Fetched += len(listing.Posts)

		for _, p := range listing.Posts {
			c.save(ctx, p, &stats)
		}

		c.logger.Info("Crawled page",
			"page", page+1,
			"posts", len(listing.Posts),
			"inserted_total", stats.Inserted)

		if listing.After == "" {
			break
		}
		after = listing.After
	}

	c.logger.Info("Crawl complete",
		"pages", stats.Pages,
		"fetched", stats.Fetched,
		"inserted", stats.Inserted,
		"duplicates", stats.Duplicates,
		"rejected", stats.Rejected,
		"errors", stats.Errors)
	return stats, nil
}

func (c *Crawler) save(ctx context.Context, p domain.Post, stats *Stats) {
	if c.store.PostExists(ctx, p.ID) {
		stats.Duplicates++
		return
	}

	result := c.resolver.Resolve(ctx, p)
	if !result.Valid {
		stats.Rejected++
		c.logger.Debug("Post rejected", "post_id", p.ID, "reason", result.Reason)
		return
	}

	inserted, err := c.store.InsertPost(ctx, domain.StoredPost{
		RedditID: p.ID,
		ImageURL: result.URL,
		Title:    p.Title,
		Author:   p.Author,
		Created:  p.Created,
		Score:    p.Score,
	})
	switch {
	case err != nil:
		stats.Errors++
		c.logger.Error("Failed to store post", "post_id", p.ID, "error", err)
	case inserted:
		stats.Inserted++
	default:
		stats.Duplicates++
	}
}
