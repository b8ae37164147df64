// Package logout tears down the authenticated session and reloads the page.
package logout

import (
	"context"
	"net/url"
	"time"

	"github.com/bplmmv/google-drive-toda-live/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// MarkerParam is the query parameter carrying the cache-busting logout marker.
const MarkerParam = "logout"

// Guard holds the one-shot logging-out flag.
type Guard interface {
	MarkLoggingOut()
}

// Credentials is the persisted token record. MarkLoggingOut leaves a flag the
// next page load consumes once.
type Credentials interface {
	Clear()
	MarkLoggingOut()
}

// Tokens is the token applied to outgoing calls.
type Tokens interface {
	Current() *oauth2.Token
	SetToken(tok *oauth2.Token) error
}

// Revoker revokes a token without blocking the caller.
type Revoker interface {
	RevokeAsync(accessToken string, timeout time.Duration) <-chan struct{}
}

// View shows the transitional view and reloads the page.
type View interface {
	ShowLoggingOut()
	Reload(target string)
}

// Options configures a Coordinator.
type Options struct {
	// Delay is the pause between the logging-out view and the reload.
	Delay time.Duration

	// RevokeTimeout bounds the background revocation.
	RevokeTimeout time.Duration

	// BaseURL is the page URL without query or fragment.
	BaseURL string
}

// Coordinator runs the logout sequence.
type Coordinator struct {
	guard   Guard
	store   Credentials
	tokens  Tokens
	revoker Revoker
	view    View
	opts    Options
	log     *logging.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Coordinator.
func New(guard Guard, store Credentials, tokens Tokens, revoker Revoker, view View, opts Options, log *logging.Logger) *Coordinator {
	if log == nil {
		log = logging.Nop()
	}
	if opts.RevokeTimeout <= 0 {
		opts.RevokeTimeout = 10 * time.Second
	}
	return &Coordinator{
		guard:   guard,
		store:   store,
		tokens:  tokens,
		revoker: revoker,
		view:    view,
		opts:    opts,
		log:     log.Component("logout"),
		sleep:   sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Logout clears every trace of the credential and reloads the page. Only a
// cancelled ctx stops the reload; remote failures are logged.
func (c *Coordinator) Logout(ctx context.Context) error {
	c.log.Info().Msg("Logging out")
	c.guard.MarkLoggingOut()
	c.store.Clear()
	c.store.MarkLoggingOut()

	tok := c.tokens.Current()
	if err := c.tokens.SetToken(nil); err != nil {
		c.log.Warn().Err(err).Msg("Could not clear client token")
	}
	if tok != nil && tok.AccessToken != "" && c.revoker != nil {
		c.revoker.RevokeAsync(tok.AccessToken, c.opts.RevokeTimeout)
	}

	c.view.ShowLoggingOut()

	if err := c.sleep(ctx, c.opts.Delay); err != nil {
		return err
	}
	target := ReloadURL(c.opts.BaseURL, uuid.NewString())
	c.log.Debug().Str("url", target).Msg("Reloading")
	c.view.Reload(target)
	return nil
}

// ReloadURL returns base with the logout marker set, dropping any query and fragment.
func ReloadURL(base, marker string) string {
	u, err := url.Parse(base)
	if err != nil {
		return "?" + url.Values{MarkerParam: {marker}}.Encode()
	}
	u.RawQuery = url.Values{MarkerParam: {marker}}.Encode()
	u.Fragment = ""
	return u.String()
}

// StripMarker returns pageURL without the logout marker, keeping the rest of the query.
func StripMarker(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	q := u.Query()
	if !q.Has(MarkerParam) {
		return pageURL
	}
	q.Del(MarkerParam)
	u.RawQuery = q.Encode()
	return u.String()
}

// IsReturning reports whether a page URL carries the logout marker.
func IsReturning(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	return u.Query().Has(MarkerParam)
}
