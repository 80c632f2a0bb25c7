package domain

import (
	"context"
	"time"
)

// MediaItem is one entry of a gallery post's media metadata
type MediaItem struct {
	Status string `json:"status"`
	URL    string `json:"url"`
}

// Post is a snapshot of a listing entry, fetched fresh every run
type Post struct {
	ID            string               `json:"id"`
	FullName      string               `json:"name"`
	Title         string               `json:"title"`
	Subreddit     string               `json:"subreddit"`
	Author        string               `json:"author"`
	Body          string               `json:"body,omitempty"`
	URL           string               `json:"url"`
	IsVideo       bool                 `json:"is_video"`
	IsGallery     bool                 `json:"is_gallery"`
	GalleryOrder  []string             `json:"gallery_order,omitempty"`
	MediaMetadata map[string]MediaItem `json:"media_metadata,omitempty"`
	Score         int                  `json:"score"`
	CommentCount  int                  `json:"comment_count"`
	Created       time.Time            `json:"created"`
}

// Comment is an existing reply under a post
type Comment struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Body   string `json:"body"`
	Score  int    `json:"score"`
}

// StoredPost is the persisted form of a crawled image post.
// Rating, Wins and Losses belong to the ranking feature and are only
// initialised here.
type StoredPost struct {
	RedditID string
	ImageURL string
	Title    string
	Author   string
	Created  time.Time
	Score    int
	Rating   float64
	Wins     int
	Losses   int
}

// CommentRecord marks a post as already commented on
type CommentRecord struct {
	RedditID  string
	CommentID string
	Text      string
	CreatedAt time.Time
}

// ImageValidation is the outcome of resolving a post's image
type ImageValidation struct {
	Valid  bool
	URL    string
	Reason string
}

// Page is one slice of a listing plus the cursor for the next one
type Page struct {
	Posts []Post
	After string
}

// ListOptions selects a listing
type ListOptions struct {
	Sort       string
	TimeWindow string
	Limit      int
	After      string
}

// Lister fetches posts and comments from the community
type Lister interface {
	Listing(ctx context.Context, opts ListOptions) (Page, error)
	TopComments(ctx context.Context, postID string, limit int) ([]Comment, error)
}

// Commenter submits a reply to a post identified by its fullname
type Commenter interface {
	SubmitComment(ctx context.Context, fullName, text string) (string, error)
}
