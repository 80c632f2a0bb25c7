package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// JournalEntry is one dry-run comment that would have been posted
type JournalEntry struct {
	RedditID string    `json:"reddit_id"`
	Title    string    `json:"title"`
	Comment  string    `json:"comment"`
	At       time.Time `json:"at"`
}

// Journal appends dry-run output as NDJSON so it can be reviewed before a
// real run.
type Journal struct {
	FilePath string
	f        *os.File
	enc      *json.Encoder
}

func (j *Journal) Write(entry JournalEntry) error {
	if j.enc == nil {
		if dir := filepath.Dir(j.FilePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create journal directory: %w", err)
			}
		}
		f, err := os.OpenFile(j.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		j.f = f
		j.enc = json.NewEncoder(f)
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	return j.enc.Encode(entry)
}

func (j *Journal) Close() error {
	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f, j.enc = nil, nil
	return err
}
