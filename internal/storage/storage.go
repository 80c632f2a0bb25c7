// Package storage persists crawled posts and comment markers.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/glebarez/sqlite"
	"github.com/qepting91/reddit-commenter/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultRating seeds the ranking score of a new post
const DefaultRating = 1500

type postRow struct {
	ID        uint      `gorm:"primaryKey"`
	RedditID  string    `gorm:"uniqueIndex;not null"`
	ImageURL  string    `gorm:"not null"`
	Title     string    `gorm:"not null"`
	Author    string    `gorm:"not null"`
	PostedAt  time.Time `gorm:"not null"`
	Score     int       `gorm:"not null"`
	Rating    float64   `gorm:"not null"`
	Wins      int       `gorm:"not null"`
	Losses    int       `gorm:"not null"`
	CreatedAt time.Time
}

func (postRow) TableName() string { return "posts" }

type commentRow struct {
	ID        uint   `gorm:"primaryKey"`
	RedditID  string `gorm:"uniqueIndex;not null"`
	CommentID string
	Text      string
	CreatedAt time.Time
}

func (commentRow) TableName() string { return "comments" }

// Store is the gorm-backed datastore
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects with driver ("postgres" or "sqlite"), pings the database and
// migrates the schema. The ping is retried since the database may still be
// starting when a scheduled run fires.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql handle: %w", err)
	}

	err = retry.Do(
		func() error { return sqlDB.PingContext(ctx) },
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("Database ping failed, retrying", "attempt", n, "error", err)
		}),
	)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&postRow{}, &commentRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.Contains(path, ":memory:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// PostExists reports whether a post with redditID is stored. Lookup errors
// are logged and reported as absent so a flaky database never hides a
// candidate.
func (s *Store) PostExists(ctx context.Context, redditID string) bool {
	return s.exists(ctx, &postRow{}, redditID)
}

// CommentExists reports whether the bot already commented on redditID, with
// the same error policy as PostExists.
func (s *Store) CommentExists(ctx context.Context, redditID string) bool {
	return s.exists(ctx, &commentRow{}, redditID)
}

func (s *Store) exists(ctx context.Context, model any, redditID string) bool {
	err := s.db.WithContext(ctx).Model(model).Select("id").Where("reddit_id = ?", redditID).Take(model).Error
	switch {
	case err == nil:
		return true
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false
	default:
		s.logger.Warn("Existence check failed, treating as absent", "reddit_id", redditID, "error", err)
		return false
	}
}

// InsertPost stores p once. It returns false when the post was already
// present.
func (s *Store) InsertPost(ctx context.Context, p domain.StoredPost) (bool, error) {
	if s.PostExists(ctx, p.RedditID) {
		return false, nil
	}
	rating := p.Rating
	if rating == 0 {
		rating = DefaultRating
	}
	row := postRow{
		RedditID: p.RedditID,
		ImageURL: p.ImageURL,
		Title:    p.Title,
		Author:   p.Author,
		PostedAt: p.Created,
		Score:    p.Score,
		Rating:   rating,
		Wins:     p.Wins,
		Losses:   p.Losses,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("insert post %s: %w", p.RedditID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// InsertComment records that the bot commented on rec.RedditID
func (s *Store) InsertComment(ctx context.Context, rec domain.CommentRecord) error {
	row := commentRow{
		RedditID:  rec.RedditID,
		CommentID: rec.CommentID,
		Text:      rec.Text,
	}
	if !rec.CreatedAt.IsZero() {
		row.CreatedAt = rec.CreatedAt
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert comment marker %s: %w", rec.RedditID, err)
	}
	return nil
}

// TopRated returns up to limit stored posts ordered by rating
func (s *Store) TopRated(ctx context.Context, limit int) ([]domain.StoredPost, error) {
	var rows []postRow
	err := s.db.WithContext(ctx).Order("rating desc").Order("score desc").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list top rated posts: %w", err)
	}
	posts := make([]domain.StoredPost, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, domain.StoredPost{
			RedditID: r.RedditID,
			ImageURL: r.ImageURL,
			Title:    r.Title,
			Author:   r.Author,
			Created:  r.PostedAt,
			Score:    r.Score,
			Rating:   r.Rating,
			Wins:     r.Wins,
			Losses:   r.Losses,
		})
	}
	return posts, nil
}

// Counts returns how many posts are stored and how many were commented on
func (s *Store) Counts(ctx context.Context) (posts, comments int64, err error) {
	if err = s.db.WithContext(ctx).Model(&postRow{}).Count(&posts).Error; err != nil {
		return 0, 0, fmt.Errorf("count posts: %w", err)
	}
	if err = s.db.WithContext(ctx).Model(&commentRow{}).Count(&comments).Error; err != nil {
		return 0, 0, fmt.Errorf("count comments: %w", err)
	}
	return posts, comments, nil
}
