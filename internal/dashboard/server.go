package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/qepting91/reddit-commenter/internal/domain"
)

// Source is the read side of the datastore the charts are drawn from
type Source interface {
	TopRated(ctx context.Context, limit int) ([]domain.StoredPost, error)
	Counts(ctx context.Context) (posts, comments int64, err error)
}

// Handler renders the ranking and coverage charts on every request
func Handler(src Source, limit int, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		top, err := src.TopRated(ctx, limit)
		if err != nil {
			logger.Error("Dashboard query failed", "error", err)
			http.Error(w, "failed to load posts", http.StatusInternalServerError)
			return
		}
		posts, comments, err := src.Counts(ctx)
		if err != nil {
			logger.Error("Dashboard query failed", "error", err)
			http.Error(w, "failed to load counts", http.StatusInternalServerError)
			return
		}

		// 1. Ranking
		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: "Top Rated Posts"}),
			charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		)
		var barX []string
		var ratings, wins []opts.BarData
		for _, p := range top {
			barX = append(barX, label(p))
			ratings = append(ratings, opts.BarData{Value: p.Rating})
			wins = append(wins, opts.BarData{Value: p.Wins})
		}
		bar.SetXAxis(barX).
			AddSeries("Rating", ratings).
			AddSeries("Wins", wins)

		// 2. Comment coverage
		pie := charts.NewPie()
		pie.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Comment Coverage"}))
		uncommented := posts - comments
		if uncommented < 0 {
			uncommented = 0
		}
		pie.AddSeries("Posts", []opts.PieData{
			{Name: "Commented", Value: comments},
			{Name: "Not commented", Value: uncommented},
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := bar.Render(w); err != nil {
			logger.Warn("Render failed", "chart", "bar", "error", err)
			return
		}
		if err := pie.Render(w); err != nil {
			logger.Warn("Render failed", "chart", "pie", "error", err)
		}
	})
}

func label(p domain.StoredPost) string {
	title := []rune(p.Title)
	if len(title) > 24 {
		title = append(title[:21], []rune("...")...)
	}
	return fmt.Sprintf("%s (%s)", string(title), p.RedditID)
}

// StartServer serves h on port until ctx is cancelled
func StartServer(ctx context.Context, port string, h http.Handler) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
