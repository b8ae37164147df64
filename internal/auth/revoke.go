package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bplmmv/google-drive-toda-live/internal/logging"
	"github.com/hashicorp/go-retryablehttp"
)

// Revoker revokes access tokens at the identity provider.
type Revoker struct {
	url    string
	client *http.Client
	log    *logging.Logger
}

// NewRevoker creates a Revoker posting to revokeURL. Revocation is attempted once.
func NewRevoker(revokeURL string, base *http.Client, log *logging.Logger) *Revoker {
	if log == nil {
		log = logging.Nop()
	}
	retryClient := retryablehttp.NewClient()
	if base != nil {
		retryClient.HTTPClient = base
	}
	retryClient.RetryMax = 0
	retryClient.Logger = logging.RetryLogger{L: log}

	return &Revoker{
		url:    revokeURL,
		client: retryClient.StandardClient(),
		log:    log,
	}
}

// Revoke posts the token to the revocation endpoint.
func (r *Revoker) Revoke(ctx context.Context, accessToken string) error {
	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke returned status %d", resp.StatusCode)
	}
	return nil
}

// RevokeAsync revokes in the background and only logs the outcome.
// The returned channel is closed when the attempt finishes.
func (r *Revoker) RevokeAsync(accessToken string, timeout time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := r.Revoke(ctx, accessToken); err != nil {
			r.log.Warn().Err(err).Msg("Token revocation failed")
			return
		}
		r.log.Debug().Msg("Token revoked")
	}()
	return done
}
