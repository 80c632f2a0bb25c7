package reddit

import (
	"fmt"
	"strings"
	"time"

	"github.com/qepting91/reddit-commenter/internal/domain"
)

type listingResponse struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string   `json:"kind"`
			Data postData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type postData struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Subreddit   string  `json:"subreddit_name_prefixed"`
	Author      string  `json:"author"`
	Selftext    string  `json:"selftext"`
	URL         string  `json:"url"`
	IsVideo     bool    `json:"is_video"`
	IsGallery   bool    `json:"is_gallery"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	GalleryData *struct {
		Items []struct {
			MediaID string `json:"media_id"`
		} `json:"items"`
	} `json:"gallery_data"`
	MediaMetadata map[string]struct {
		Status string `json:"status"`
		S      struct {
			U   string `json:"u"`
			GIF string `json:"gif"`
		} `json:"s"`
	} `json:"media_metadata"`
}

func (d postData) toDomain() domain.Post {
	p := domain.Post{
		ID:           d.ID,
		FullName:     d.Name,
		Title:        d.Title,
		Subreddit:    d.Subreddit,
		Author:       d.Author,
		Body:         d.Selftext,
		URL:          d.URL,
		IsVideo:      d.IsVideo,
		IsGallery:    d.IsGallery,
		Score:        d.Score,
		CommentCount: d.NumComments,
		Created:      time.Unix(int64(d.CreatedUTC), 0).UTC(),
	}
	if p.FullName == "" && p.ID != "" {
		p.FullName = "t3_" + p.ID
	}
	if d.GalleryData != nil {
		for _, item := range d.GalleryData.Items {
			p.GalleryOrder = append(p.GalleryOrder, item.MediaID)
		}
	}
	if len(d.MediaMetadata) > 0 {
		p.MediaMetadata = make(map[string]domain.MediaItem, len(d.MediaMetadata))
		for id, m := range d.MediaMetadata {
			u := m.S.U
			if u == "" {
				u = m.S.GIF
			}
			p.MediaMetadata[id] = domain.MediaItem{Status: m.Status, URL: u}
		}
	}
	return p
}

type commentListing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				ID     string `json:"id"`
				Author string `json:"author"`
				Body   string `json:"body"`
				Score  int    `json:"score"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type submitResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			Things []struct {
				Kind string `json:"kind"`
				Data struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"data"`
			} `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

// formatAPIErrors renders Reddit's [code, message, field] triples
func formatAPIErrors(errs [][]any) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		fields := make([]string, 0, len(e))
		for _, f := range e {
			if f == nil {
				continue
			}
			fields = append(fields, fmt.Sprint(f))
		}
		parts = append(parts, strings.Join(fields, ": "))
	}
	return strings.Join(parts, "; ")
}
