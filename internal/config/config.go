package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Reddit holds API credentials and the target community
type Reddit struct {
	Mode             string        `yaml:"mode"`
	AuthMode         string        `yaml:"auth_mode"`
	Subreddit        string        `yaml:"subreddit"`
	UserAgent        string        `yaml:"user_agent"`
	ClientID         string        `yaml:"client_id"`
	ClientSecret     string        `yaml:"client_secret"`
	RefreshToken     string        `yaml:"refresh_token"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	BaseURL          string        `yaml:"base_url"`
	TokenURL         string        `yaml:"token_url"`
	RefreshThreshold time.Duration `yaml:"refresh_threshold"`
	RequestsPerMin   int           `yaml:"requests_per_minute"`
}

// Bot holds the commenting pipeline options
type Bot struct {
	MaxCommentsPerRun      int           `yaml:"max_comments_per_run"`
	CommentDelay           time.Duration `yaml:"comment_delay"`
	ListingSort            string        `yaml:"listing_sort"`
	ListingLimit           int           `yaml:"listing_limit"`
	MinPostComments        int           `yaml:"min_post_comments"`
	MaxPostAgeHours        int           `yaml:"max_post_age_hours"`
	CandidateBatchSize     int           `yaml:"candidate_batch_size"`
	TopCommentsToFetch     int           `yaml:"top_comments_to_fetch"`
	MinUsableComments      int           `yaml:"min_usable_comments"`
	MinUsableCommentLength int           `yaml:"min_usable_comment_length"`
	DryRun                 bool          `yaml:"dry_run"`
	DryRunJournal          string        `yaml:"dry_run_journal"`
	RequestTimeout         time.Duration `yaml:"request_timeout"`
	// RetryCount is accepted for compatibility; nothing retries on it.
	RetryCount int `yaml:"retry_count"`
}

// Generator holds prompt and validation options
type Generator struct {
	PromptPath          string   `yaml:"prompt_path"`
	PromptComments      int      `yaml:"prompt_comments"`
	PromptCommentChars  int      `yaml:"prompt_comment_chars"`
	MinCommentLength    int      `yaml:"min_comment_length"`
	MaxCommentLength    int      `yaml:"max_comment_length"`
	BlacklistedKeywords []string `yaml:"blacklisted_keywords"`
	BlacklistFile       string   `yaml:"blacklist_file"`
}

// LLM selects the completion provider
type LLM struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// Crawl holds the image crawler options
type Crawl struct {
	Sort         string `yaml:"sort"`
	TimeWindow   string `yaml:"time_window"`
	PageSize     int    `yaml:"page_size"`
	Pages        int    `yaml:"pages"`
	VerifyImages bool   `yaml:"verify_images"`
}

// Storage selects the database
type Storage struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Dashboard holds the chart server options
type Dashboard struct {
	Port  string `yaml:"port"`
	Limit int    `yaml:"limit"`
}

// Config is the full settings tree
type Config struct {
	Reddit    Reddit    `yaml:"reddit"`
	Bot       Bot       `yaml:"bot"`
	Generator Generator `yaml:"generator"`
	LLM       LLM       `yaml:"llm"`
	Crawl     Crawl     `yaml:"crawl"`
	Storage   Storage   `yaml:"storage"`
	Dashboard Dashboard `yaml:"dashboard"`
}

// Default returns the settings used when no file overrides them
func Default() *Config {
	return &Config{
		Reddit: Reddit{
			Mode:             "api",
			AuthMode:         "refresh",
			UserAgent:        "reddit-commenter/1.0",
			BaseURL:          "https://oauth.reddit.com",
			TokenURL:         "https://www.reddit.com/api/v1/access_token",
			RefreshThreshold: 5 * time.Minute,
			RequestsPerMin:   60,
		},
		Bot: Bot{
			MaxCommentsPerRun:      3,
			CommentDelay:           60 * time.Second,
			ListingSort:            "hot",
			ListingLimit:           50,
			MinPostComments:        5,
			MaxPostAgeHours:        24,
			CandidateBatchSize:     10,
			TopCommentsToFetch:     10,
			MinUsableComments:      3,
			MinUsableCommentLength: 10,
			DryRunJournal:          "data/dry_run.ndjson",
			RequestTimeout:         10 * time.Second,
			RetryCount:             3,
		},
		Generator: Generator{
			PromptComments:     5,
			PromptCommentChars: 200,
			MinCommentLength:   20,
			MaxCommentLength:   500,
		},
		LLM: LLM{
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   150,
			Temperature: 0.8,
		},
		Crawl: Crawl{
			Sort:     "hot",
			PageSize: 100,
			Pages:    3,
		},
		Storage: Storage{
			Driver: "sqlite",
			DSN:    "data/commenter.db",
		},
		Dashboard: Dashboard{
			Port:  "8080",
			Limit: 20,
		},
	}
}

// Load reads .env (if present), the YAML file at path (if non-empty) and
// environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse settings YAML: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Reddit.Mode, "BOT_MODE")
	setString(&c.Reddit.AuthMode, "REDDIT_AUTH_MODE")
	setString(&c.Reddit.Subreddit, "REDDIT_SUBREDDIT")
	setString(&c.Reddit.UserAgent, "REDDIT_USER_AGENT")
	setString(&c.Reddit.ClientID, "REDDIT_CLIENT_ID")
	setString(&c.Reddit.ClientSecret, "REDDIT_CLIENT_SECRET")
	setString(&c.Reddit.RefreshToken, "REDDIT_REFRESH_TOKEN")
	setString(&c.Reddit.Username, "REDDIT_USERNAME")
	setString(&c.Reddit.Password, "REDDIT_PASSWORD")
	setString(&c.Storage.DSN, "DATABASE_URL")
	setString(&c.Storage.Driver, "DATABASE_DRIVER")
	setString(&c.Dashboard.Port, "PORT")

	setString(&c.LLM.APIKey, "LLM_API_KEY")
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "anthropic":
			setString(&c.LLM.APIKey, "ANTHROPIC_API_KEY")
		case "gemini":
			setString(&c.LLM.APIKey, "GEMINI_API_KEY")
		}
	}

	if v := os.Getenv("DRY_RUN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Bot.DryRun = b
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Reddit.Subreddit == "" {
		errs = append(errs, errors.New("reddit.subreddit is required"))
	}
	switch c.Reddit.Mode {
	case "api", "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown reddit.mode: %s (use 'api' or 'mock')", c.Reddit.Mode))
	}
	switch c.Reddit.AuthMode {
	case "refresh", "password":
	default:
		errs = append(errs, fmt.Errorf("unknown reddit.auth_mode: %s (use 'refresh' or 'password')", c.Reddit.AuthMode))
	}
	switch c.Bot.ListingSort {
	case "hot", "new", "top":
	default:
		errs = append(errs, fmt.Errorf("unknown bot.listing_sort: %s", c.Bot.ListingSort))
	}
	switch c.Crawl.Sort {
	case "hot", "new", "top":
	default:
		errs = append(errs, fmt.Errorf("unknown crawl.sort: %s", c.Crawl.Sort))
	}
	if c.Bot.MaxCommentsPerRun < 0 {
		errs = append(errs, errors.New("bot.max_comments_per_run must not be negative"))
	}
	if c.Bot.CandidateBatchSize <= 0 {
		errs = append(errs, errors.New("bot.candidate_batch_size must be positive"))
	}
	if c.Bot.MaxPostAgeHours <= 0 {
		errs = append(errs, errors.New("bot.max_post_age_hours must be positive"))
	}
	if c.Bot.TopCommentsToFetch <= 0 {
		errs = append(errs, errors.New("bot.top_comments_to_fetch must be positive"))
	}
	if c.Bot.MinPostComments < 0 {
		errs = append(errs, errors.New("bot.min_post_comments must not be negative"))
	}
	if c.Bot.MinUsableComments < 0 || c.Bot.MinUsableCommentLength < 0 {
		errs = append(errs, errors.New("bot.min_usable_comments and min_usable_comment_length must not be negative"))
	}
	if c.Bot.CommentDelay < 0 {
		errs = append(errs, errors.New("bot.comment_delay must not be negative"))
	}
	if c.Bot.RetryCount < 0 {
		errs = append(errs, errors.New("bot.retry_count must not be negative"))
	}
	if c.Generator.MinCommentLength < 0 || c.Generator.MaxCommentLength <= 0 {
		errs = append(errs, errors.New("generator comment length bounds must be positive"))
	} else if c.Generator.MinCommentLength > c.Generator.MaxCommentLength {
		errs = append(errs, fmt.Errorf("generator.min_comment_length %d exceeds max_comment_length %d",
			c.Generator.MinCommentLength, c.Generator.MaxCommentLength))
	}
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver: %s (use 'sqlite' or 'postgres')", c.Storage.Driver))
	}

	return errors.Join(errs...)
}

// MaxPostAge converts the configured hour window to a duration
func (b Bot) MaxPostAge() time.Duration {
	return time.Duration(b.MaxPostAgeHours) * time.Hour
}
