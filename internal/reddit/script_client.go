package reddit

import (
	"context"
	"fmt"

	goreddit "github.com/loganintech/go-reddit/v2/reddit"
	"golang.org/x/time/rate"
)

// ScriptCommenter posts as a script-app account using the password grant.
// Used when no refresh token has been issued for the commenting identity.
type ScriptCommenter struct {
	client  *goreddit.Client
	limiter *rate.Limiter
}

func NewScriptCommenter(id, secret, user, pass, userAgent string, limiter *rate.Limiter) (*ScriptCommenter, error) {
	creds := goreddit.Credentials{ID: id, Secret: secret, Username: user, Password: pass}

	client, err := goreddit.NewClient(creds, goreddit.WithUserAgent(userAgent))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	return &ScriptCommenter{client: client, limiter: limiter}, nil
}

func (sc *ScriptCommenter) SubmitComment(ctx context.Context, fullName, text string) (string, error) {
	if err := sc.limiter.Wait(ctx); err != nil {
		return "", err
	}

	comment, _, err := sc.client.Comment.Submit(ctx, fullName, text)
	if err != nil {
		return "", fmt.Errorf("submit comment on %s: %w", fullName, err)
	}
	if comment == nil || comment.FullID == "" {
		return "", fmt.Errorf("submit comment on %s: response contained no created comment", fullName)
	}
	return comment.FullID, nil
}
