package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	path := writeSettings(t, `
reddit:
  subreddit: earthporn
bot:
  max_comments_per_run: 7
  comment_delay: 30s
  dry_run: true
generator:
  blacklisted_keywords: ["upvote", "karma"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "earthporn", cfg.Reddit.Subreddit)
	assert.Equal(t, 7, cfg.Bot.MaxCommentsPerRun)
	assert.Equal(t, 30*time.Second, cfg.Bot.CommentDelay)
	assert.True(t, cfg.Bot.DryRun)
	assert.Equal(t, []string{"upvote", "karma"}, cfg.Generator.BlacklistedKeywords)
	// untouched defaults survive
	assert.Equal(t, 500, cfg.Generator.MaxCommentLength)
	assert.Equal(t, 24*time.Hour, cfg.Bot.MaxPostAge())
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	t.Setenv("REDDIT_SUBREDDIT", "pics")
	t.Setenv("REDDIT_CLIENT_ID", "id-from-env")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("DRY_RUN", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "pics", cfg.Reddit.Subreddit)
	assert.Equal(t, "id-from-env", cfg.Reddit.ClientID)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.True(t, cfg.Bot.DryRun)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(c *Config) {}, ""},
		{"missing subreddit", func(c *Config) { c.Reddit.Subreddit = "" }, "reddit.subreddit is required"},
		{"bad mode", func(c *Config) { c.Reddit.Mode = "public" }, "unknown reddit.mode"},
		{"bad sort", func(c *Config) { c.Bot.ListingSort = "rising" }, "unknown bot.listing_sort"},
		{"min above max", func(c *Config) { c.Generator.MinCommentLength = 900 }, "exceeds max_comment_length"},
		{"zero post age", func(c *Config) { c.Bot.MaxPostAgeHours = 0 }, "max_post_age_hours must be positive"},
		{"zero top comments", func(c *Config) { c.Bot.TopCommentsToFetch = 0 }, "top_comments_to_fetch must be positive"},
		{"negative post comments", func(c *Config) { c.Bot.MinPostComments = -1 }, "min_post_comments"},
		{"negative usable comments", func(c *Config) { c.Bot.MinUsableComments = -2 }, "min_usable_comments"},
		{"negative delay", func(c *Config) { c.Bot.CommentDelay = -time.Second }, "comment_delay must not be negative"},
		{"negative retry", func(c *Config) { c.Bot.RetryCount = -1 }, "retry_count"},
		{"bad driver", func(c *Config) { c.Storage.Driver = "mysql" }, "unknown storage.driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Reddit.Subreddit = "pics"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
