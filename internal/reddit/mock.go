package reddit

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/qepting91/reddit-commenter/internal/domain"
)

// MockClient serves generated image posts and accepts every comment.
// It lets the whole pipeline run offline.
type MockClient struct {
	subreddit string
	submitted int
}

func NewMockClient(subreddit string) *MockClient {
	return &MockClient{subreddit: subreddit}
}

func (mc *MockClient) Listing(ctx context.Context, opts domain.ListOptions) (domain.Page, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 25
	}
	offset := 0
	if opts.After != "" {
		if _, err := fmt.Sscanf(opts.After, "t3_mock_%d", &offset); err != nil {
			return domain.Page{}, fmt.Errorf("bad mock cursor %q: %w", opts.After, err)
		}
		offset++
	}

	now := time.Now()
	var posts []domain.Post
	for i := offset; i < offset+limit; i++ {
		id := fmt.Sprintf("mock_%d", i)
		posts = append(posts, domain.Post{
			ID:           id,
			FullName:     "t3_" + id,
			Title:        fmt.Sprintf("Simulated photo #%d from r/%s", i, mc.subreddit),
			Subreddit:    "r/" + mc.subreddit,
			Author:       "simulated_user",
			URL:          fmt.Sprintf("https://i.redd.it/%s.jpg", id),
			Score:        rand.Intn(500),
			CommentCount: 3 + rand.Intn(50),
			Created:      now.Add(-time.Duration(rand.Intn(48)) * time.Hour),
		})
	}
	return domain.Page{Posts: posts, After: posts[len(posts)-1].FullName}, nil
}

func (mc *MockClient) TopComments(ctx context.Context, postID string, limit int) ([]domain.Comment, error) {
	var comments []domain.Comment
	for i := 0; i < limit; i++ {
		comments = append(comments, domain.Comment{
			ID:     fmt.Sprintf("%s_c%d", postID, i),
			Author: fmt.Sprintf("commenter_%d", i),
			Body:   fmt.Sprintf("Simulated comment %d, the light in this one is great.", i),
			Score:  limit - i,
		})
	}
	return comments, nil
}

func (mc *MockClient) SubmitComment(ctx context.Context, fullName, text string) (string, error) {
	mc.submitted++
	return fmt.Sprintf("t1_mock_%d", mc.submitted), nil
}
