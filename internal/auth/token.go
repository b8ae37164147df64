package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Prompt values for RequestAccessToken.
const (
	PromptConsent = "consent"
	PromptNone    = ""
)

var (
	// ErrNoToken is returned by Holder when no token is set.
	ErrNoToken = errors.New("no access token")

	// ErrTokenResponse is returned when the identity service reports an error instead of a token.
	ErrTokenResponse = errors.New("token request failed")
)

// TokenClient requests access tokens from the identity service.
// The outcome arrives later through the login completion callback.
type TokenClient interface {
	RequestAccessToken(prompt string)
}

// TokenResponse is the payload the identity service passes to its callback.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Token converts the response into a bearer token.
func (r TokenResponse) Token(now time.Time) (*oauth2.Token, error) {
	if r.Error != "" {
		if r.ErrorDescription != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrTokenResponse, r.Error, r.ErrorDescription)
		}
		return nil, fmt.Errorf("%w: %s", ErrTokenResponse, r.Error)
	}
	if r.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrTokenResponse)
	}

	tok := &oauth2.Token{
		AccessToken: r.AccessToken,
		TokenType:   r.TokenType,
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	if r.ExpiresIn > 0 {
		tok.Expiry = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	if r.Scope != "" {
		tok = tok.WithExtra(map[string]interface{}{"scope": r.Scope})
	}
	return tok, nil
}

// Holder is the token currently applied to outgoing API calls.
// It is an oauth2.TokenSource, so every request reads the latest token.
type Holder struct {
	mu  sync.RWMutex
	tok *oauth2.Token
}

// NewHolder creates an empty Holder.
func NewHolder() *Holder {
	return &Holder{}
}

// SetToken replaces the current token. A nil token clears it.
func (h *Holder) SetToken(tok *oauth2.Token) error {
	if tok != nil && tok.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrNoToken)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tok = tok
	return nil
}

// Current returns the current token or nil.
func (h *Holder) Current() *oauth2.Token {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tok
}

// Token implements oauth2.TokenSource.
func (h *Holder) Token() (*oauth2.Token, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.tok == nil {
		return nil, ErrNoToken
	}
	return h.tok, nil
}

// HTTPClient returns a client that authorizes each request with the holder's current token.
// The token is not cached, so SetToken takes effect on the next request.
func (h *Holder) HTTPClient(base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{Transport: &oauth2.Transport{Source: h, Base: base}}
}

// ScopeString joins scopes the way the identity service expects them.
func ScopeString(scopes []string) string {
	return strings.Join(scopes, " ")
}
