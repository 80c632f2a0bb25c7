package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/qepting91/reddit-commenter/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrAuth marks failures no later Reddit call can recover from
var ErrAuth = errors.New("reddit authentication failed")

// Credentials owns the two token sources the bot uses: an app-only token for
// reading listings and a user token (refresh-token grant) for commenting.
// Each source caches its token and refreshes once it is within the
// configured threshold of expiry.
type Credentials struct {
	app  oauth2.TokenSource
	user oauth2.TokenSource
}

// NewCredentials builds token sources that talk to cfg.TokenURL through hc
func NewCredentials(ctx context.Context, cfg config.Reddit, hc *http.Client) *Credentials {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
	endpoint := oauth2.Endpoint{TokenURL: cfg.TokenURL, AuthStyle: oauth2.AuthStyleInHeader}

	app := &appSource{
		ctx: ctx,
		cfg: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
	}

	creds := &Credentials{
		app: oauth2.ReuseTokenSourceWithExpiry(nil, app, cfg.RefreshThreshold),
	}

	if cfg.RefreshToken != "" {
		user := &refreshSource{
			ctx: ctx,
			cfg: &oauth2.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				Endpoint:     endpoint,
			},
			refreshToken: cfg.RefreshToken,
		}
		creds.user = oauth2.ReuseTokenSourceWithExpiry(nil, user, cfg.RefreshThreshold)
	}

	return creds
}

// AppToken returns a bearer token for read-only calls
func (c *Credentials) AppToken() (string, error) {
	return token(c.app, "app")
}

// UserToken returns a bearer token for the commenting identity
func (c *Credentials) UserToken() (string, error) {
	if c.user == nil {
		return "", fmt.Errorf("%w: no refresh token configured", ErrAuth)
	}
	return token(c.user, "user")
}

func token(src oauth2.TokenSource, kind string) (string, error) {
	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %s token: %v", ErrAuth, kind, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: %s token: empty access token", ErrAuth, kind)
	}
	return tok.AccessToken, nil
}

// appSource performs one client-credentials exchange per call.
type appSource struct {
	ctx context.Context
	cfg *clientcredentials.Config
}

func (s *appSource) Token() (*oauth2.Token, error) {
	return s.cfg.Token(s.ctx)
}

// refreshSource performs one refresh-token exchange per call and keeps the
// newest refresh token Reddit hands back. Calls are serialized by the
// wrapping ReuseTokenSource.
type refreshSource struct {
	ctx          context.Context
	cfg          *oauth2.Config
	refreshToken string
}

func (s *refreshSource) Token() (*oauth2.Token, error) {
	expired := &oauth2.Token{RefreshToken: s.refreshToken, Expiry: time.Unix(1, 0)}
	tok, err := s.cfg.TokenSource(s.ctx, expired).Token()
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken != "" {
		s.refreshToken = tok.RefreshToken
	}
	return tok, nil
}
