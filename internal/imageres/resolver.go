// Package imageres decides whether a post points at a usable image and
// normalizes the URL to the image itself.
package imageres

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/qepting91/reddit-commenter/internal/domain"
)

// Kind is the URL classification of a post
type Kind int

const (
	KindUnknown Kind = iota
	KindDirect
	KindGallery
	KindAlbum
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindGallery:
		return "gallery"
	case KindAlbum:
		return "album"
	default:
		return "unknown"
	}
}

const (
	albumProbeTimeout = 2 * time.Second
	finalProbeTimeout = 5 * time.Second
)

var (
	imageExtRegex = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|webp)(\?.*)?$`)
	galleryRegex  = regexp.MustCompile(`(?i)reddit\.com/gallery/[A-Za-z0-9]+`)
	albumRegex    = regexp.MustCompile(`(?i)imgur\.com/(?:a|gallery)/([A-Za-z0-9]+)`)

	imageHosts = map[string]bool{
		"i.redd.it":       true,
		"i.imgur.com":     true,
		"preview.redd.it": true,
	}

	// order matters: first reachable candidate wins
	albumExtensions = []string{".jpg", ".png", ".gif"}
)

// Classify inspects the post URL without touching the network
func Classify(p domain.Post) Kind {
	raw := strings.TrimSpace(p.URL)
	if raw == "" {
		return KindUnknown
	}
	if imageExtRegex.MatchString(raw) {
		return KindDirect
	}
	if u, err := url.Parse(raw); err == nil && imageHosts[strings.ToLower(u.Hostname())] {
		return KindDirect
	}
	if p.IsGallery || galleryRegex.MatchString(raw) {
		return KindGallery
	}
	if albumRegex.MatchString(raw) {
		return KindAlbum
	}
	return KindUnknown
}

// Resolver turns a post into an ImageValidation
type Resolver struct {
	client *http.Client
	logger *slog.Logger
	// Verify adds a final reachability probe before accepting a URL.
	Verify bool
	// AlbumHost is the direct-image host album ids are appended to.
	AlbumHost string
}

func New(client *http.Client, verify bool, logger *slog.Logger) *Resolver {
	if client == nil {
		client = &http.Client{}
	}
	return &Resolver{
		client:    client,
		logger:    logger,
		Verify:    verify,
		AlbumHost: "https://i.imgur.com",
	}
}

// Resolve never returns an error: every failure becomes an invalid result
// with a reason.
func (r *Resolver) Resolve(ctx context.Context, p domain.Post) domain.ImageValidation {
	if strings.TrimSpace(p.URL) == "" {
		return reject("no url")
	}
	if p.IsVideo {
		return reject("video post")
	}

	var resolved string
	switch kind := Classify(p); kind {
	case KindDirect:
		resolved = p.URL
	case KindGallery:
		u, ok := firstGalleryImage(p)
		if !ok {
			return reject("gallery has no usable media")
		}
		resolved = u
	case KindAlbum:
		u, ok := r.guessAlbumImage(ctx, p.URL)
		if !ok {
			return reject("no album image candidate responded")
		}
		resolved = u
	default:
		return reject(fmt.Sprintf("unrecognized url: %s", p.URL))
	}

	if r.Verify && !r.probe(ctx, resolved, finalProbeTimeout, false) {
		return reject("image unavailable")
	}

	return domain.ImageValidation{Valid: true, URL: resolved}
}

func reject(reason string) domain.ImageValidation {
	return domain.ImageValidation{Reason: reason}
}

// firstGalleryImage follows the gallery's item order when present. Without
// it the media map is walked in Go map order, so which image wins is
// arbitrary for multi-image galleries.
func firstGalleryImage(p domain.Post) (string, bool) {
	if len(p.MediaMetadata) == 0 {
		return "", false
	}
	if len(p.GalleryOrder) > 0 {
		for _, id := range p.GalleryOrder {
			if u, ok := usableMedia(p.MediaMetadata[id]); ok {
				return u, true
			}
		}
		return "", false
	}
	for _, item := range p.MediaMetadata {
		if u, ok := usableMedia(item); ok {
			return u, true
		}
	}
	return "", false
}

func usableMedia(item domain.MediaItem) (string, bool) {
	if item.URL == "" || (item.Status != "" && item.Status != "valid") {
		return "", false
	}
	return strings.ReplaceAll(item.URL, "&amp;", "&"), true
}

func (r *Resolver) guessAlbumImage(ctx context.Context, raw string) (string, bool) {
	m := albumRegex.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	base := strings.TrimRight(r.AlbumHost, "/")
	for _, ext := range albumExtensions {
		candidate := base + "/" + m[1] + ext
		if r.probe(ctx, candidate, albumProbeTimeout, true) {
			return candidate, true
		}
	}
	return "", false
}

// probe issues a HEAD request. requireImage additionally demands an image/*
// content type.
func (r *Resolver) probe(ctx context.Context, target string, timeout time.Duration, requireImage bool) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, http.NoBody)
	if err != nil {
		r.logger.Debug("Image probe request invalid", "url", target, "error", err)
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("Image probe failed", "url", target, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.logger.Debug("Image probe non-OK", "url", target, "status_code", resp.StatusCode)
		return false
	}
	if requireImage && !strings.HasPrefix(resp.Header.Get("Content-Type"), "image/") {
		r.logger.Debug("Image probe wrong content type", "url", target, "content_type", resp.Header.Get("Content-Type"))
		return false
	}
	return true
}
