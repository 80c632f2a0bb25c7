package reddit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/qepting91/reddit-commenter/internal/config"
	"github.com/qepting91/reddit-commenter/internal/domain"
)

// New selects the lister and commenter for cfg.Mode and cfg.AuthMode
func New(ctx context.Context, cfg config.Reddit, timeout time.Duration, logger *slog.Logger) (domain.Lister, domain.Commenter, error) {
	switch cfg.Mode {
	case "api":
		if cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, nil, fmt.Errorf("%w: REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET are required for api mode", ErrAuth)
		}
		if cfg.UserAgent == "" {
			return nil, nil, fmt.Errorf("REDDIT_USER_AGENT is required for api mode")
		}
		client := NewClient(ctx, cfg, timeout, logger)
		if cfg.AuthMode == "password" {
			commenter, err := NewScriptCommenter(cfg.ClientID, cfg.ClientSecret, cfg.Username, cfg.Password, cfg.UserAgent, client.limiter)
			if err != nil {
				return nil, nil, err
			}
			return client, commenter, nil
		}
		return client, client, nil
	case "mock":
		mc := NewMockClient(cfg.Subreddit)
		return mc, mc, nil
	default:
		return nil, nil, fmt.Errorf("unknown reddit mode: %s (use 'api' or 'mock')", cfg.Mode)
	}
}
