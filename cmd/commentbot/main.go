package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/qepting91/reddit-commenter/internal/bot"
	"github.com/qepting91/reddit-commenter/internal/config"
	"github.com/qepting91/reddit-commenter/internal/crawl"
	"github.com/qepting91/reddit-commenter/internal/dashboard"
	"github.com/qepting91/reddit-commenter/internal/filter"
	"github.com/qepting91/reddit-commenter/internal/generator"
	"github.com/qepting91/reddit-commenter/internal/imageres"
	"github.com/qepting91/reddit-commenter/internal/ingest"
	"github.com/qepting91/reddit-commenter/internal/llm"
	"github.com/qepting91/reddit-commenter/internal/reddit"
	"github.com/qepting91/reddit-commenter/internal/storage"
	"github.com/spf13/cobra"
)

var (
	configFile string
	dryRun     bool
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:           "commentbot",
	Short:         "Crawl a subreddit for image posts and comment on them",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one commenting pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		lister, commenter, err := reddit.New(ctx, cfg.Reddit, cfg.Bot.RequestTimeout, logger)
		if err != nil {
			return err
		}

		completer, err := llm.New(ctx, cfg.LLM, cfg.Bot.RequestTimeout)
		if err != nil {
			return err
		}

		blacklist := cfg.Generator.BlacklistedKeywords
		if cfg.Generator.BlacklistFile != "" {
			extra, err := ingest.LoadKeywords(cfg.Generator.BlacklistFile)
			if err != nil {
				return err
			}
			blacklist = ingest.MergeKeywords(blacklist, extra)
		}

		gen, err := generator.New(completer, cfg.Generator.PromptPath, generator.Options{
			PromptComments:     cfg.Generator.PromptComments,
			PromptCommentChars: cfg.Generator.PromptCommentChars,
			MinLength:          cfg.Generator.MinCommentLength,
			MaxLength:          cfg.Generator.MaxCommentLength,
			Blacklist:          blacklist,
		}, logger)
		if err != nil {
			return err
		}

		sel := filter.New(store, filter.Options{
			MinComments: cfg.Bot.MinPostComments,
			MaxAge:      cfg.Bot.MaxPostAge(),
			BatchSize:   cfg.Bot.CandidateBatchSize,
		}, logger)

		journal := &storage.Journal{FilePath: cfg.Bot.DryRunJournal}
		defer journal.Close()

		runner := bot.New(lister, commenter, sel, gen, store, journal, bot.Options{
			ListingSort:       cfg.Bot.ListingSort,
			ListingLimit:      cfg.Bot.ListingLimit,
			MaxComments:       cfg.Bot.MaxCommentsPerRun,
			CommentDelay:      cfg.Bot.CommentDelay,
			TopComments:       cfg.Bot.TopCommentsToFetch,
			MinUsableComments: cfg.Bot.MinUsableComments,
			MinUsableLength:   cfg.Bot.MinUsableCommentLength,
			DryRun:            cfg.Bot.DryRun,
		}, logger)

		if _, err := runner.Run(ctx); err != nil {
			return fmt.Errorf("run aborted: %w", err)
		}
		return nil
	},
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Store new image posts from the subreddit listing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		lister, _, err := reddit.New(ctx, cfg.Reddit, cfg.Bot.RequestTimeout, logger)
		if err != nil {
			return err
		}

		resolver := imageres.New(&http.Client{Timeout: cfg.Bot.RequestTimeout}, cfg.Crawl.VerifyImages, logger)
		crawler := crawl.New(lister, resolver, store, crawl.Options{
			Sort:       cfg.Crawl.Sort,
			TimeWindow: cfg.Crawl.TimeWindow,
			PageSize:   cfg.Crawl.PageSize,
			Pages:      cfg.Crawl.Pages,
		}, logger)

		if _, err := crawler.Run(ctx); err != nil {
			return fmt.Errorf("crawl aborted: %w", err)
		}
		return nil
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve charts of stored posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		logger.Info("Starting Dashboard", "port", cfg.Dashboard.Port)
		return dashboard.StartServer(ctx, cfg.Dashboard.Port, dashboard.Handler(store, cfg.Dashboard.Limit, logger))
	},
}

// setup loads configuration, installs the JSON logger and ties the command
// context to SIGINT/SIGTERM.
func setup(cmd *cobra.Command) (context.Context, *config.Config, *slog.Logger, error) {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.Bot.DryRun = dryRun
	}
	if cfg.Bot.RetryCount > 0 {
		logger.Debug("retry_count is set but no step retries", "retry_count", cfg.Bot.RetryCount)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	cobra.OnFinalize(stop)

	logger.Info("Configuration loaded",
		"subreddit", cfg.Reddit.Subreddit,
		"mode", cfg.Reddit.Mode,
		"auth_mode", cfg.Reddit.AuthMode,
		"storage", cfg.Storage.Driver,
		"llm", cfg.LLM.Provider,
		"dry_run", cfg.Bot.DryRun)
	return ctx, cfg, logger, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to settings YAML (defaults plus environment when empty)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Generate comments without posting or recording them")

	rootCmd.AddCommand(runCmd, crawlCmd, dashboardCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
