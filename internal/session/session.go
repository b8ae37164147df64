// Package session drives the page from startup to either the login view or a
// running application.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bplmmv/google-drive-toda-live/internal/auth"
	"github.com/bplmmv/google-drive-toda-live/internal/config"
	"github.com/bplmmv/google-drive-toda-live/internal/logging"
	"github.com/bplmmv/google-drive-toda-live/internal/model"
	"github.com/bplmmv/google-drive-toda-live/internal/tokenstore"
	"golang.org/x/oauth2"
)

// State is a bootstrap state.
type State int

const (
	StateBooting State = iota
	StateAwaitingLibraries
	StateAuthenticated
	StateUnauthenticated
	StateAppRunning
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateBooting:
		return "booting"
	case StateAwaitingLibraries:
		return "awaiting-libraries"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAppRunning:
		return "app-running"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Libraries resolves once the client libraries have loaded.
type Libraries interface {
	Ready(ctx context.Context) error
}

// IdentityProbe reports whether the identity service script has loaded.
type IdentityProbe interface {
	Available() bool
}

// TokenClientFactory builds the identity token client.
type TokenClientFactory interface {
	NewTokenClient() (auth.TokenClient, error)
}

// TokenSetter applies a token to the client libraries. A nil token clears it.
type TokenSetter interface {
	SetToken(tok *oauth2.Token) error
}

// View switches between the top-level page views.
type View interface {
	ShowLogin(login func())
	ShowApp()
	ShowFatal(err error)
}

// Starter wires the application handlers and performs the first load.
type Starter interface {
	Start(ctx context.Context) error
}

// StarterFunc adapts a function to Starter.
type StarterFunc func(ctx context.Context) error

func (f StarterFunc) Start(ctx context.Context) error { return f(ctx) }

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Deps are the collaborators of a Bootstrapper.
type Deps struct {
	Store     *tokenstore.Store
	Libraries Libraries
	Identity  IdentityProbe
	Factory   TokenClientFactory
	Tokens    TokenSetter
	View      View
	Starter   Starter

	// Sleep defaults to Sleep.
	Sleep Sleeper

	// OnTransition observes every state change.
	OnTransition func(from, to State)
}

// Bootstrapper is the session state machine.
type Bootstrapper struct {
	cfg  config.Config
	deps Deps
	log  *logging.Logger

	once     sync.Once
	pollOnce sync.Once

	mu           sync.Mutex
	state        State
	session      model.SessionState
	client       auth.TokenClient
	clientErr    error
	identityErr  error
	showingLogin bool
	identityDone chan struct{}
}

// New creates a Bootstrapper in StateBooting.
func New(cfg config.Config, deps Deps, log *logging.Logger) *Bootstrapper {
	if log == nil {
		log = logging.Nop()
	}
	if deps.Sleep == nil {
		deps.Sleep = Sleep
	}
	return &Bootstrapper{
		cfg:          cfg,
		deps:         deps,
		log:          log.Component("session"),
		identityDone: make(chan struct{}),
	}
}

// State returns the current bootstrap state.
func (b *Bootstrapper) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsAuthenticated reports whether a token is currently applied.
func (b *Bootstrapper) IsAuthenticated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session.IsAuthenticated
}

// MarkLoggingOut sets the one-shot guard consumed by the next Boot.
func (b *Bootstrapper) MarkLoggingOut() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session.IsLoggingOut = true
}

// IdentityDone is closed once the identity poll has finished, successfully or not.
func (b *Bootstrapper) IdentityDone() <-chan struct{} {
	return b.identityDone
}

func (b *Bootstrapper) transition(to State) {
	b.mu.Lock()
	from := b.state
	b.state = to
	b.mu.Unlock()

	b.log.Debug().Str("from", from.String()).Str("state", to.String()).Msg("Session transition")
	if b.deps.OnTransition != nil {
		b.deps.OnTransition(from, to)
	}
}

func (b *Bootstrapper) fail(err error) error {
	b.log.Error().Err(err).Msg("Fatal startup error")
	b.transition(StateFailed)
	b.mu.Lock()
	b.showingLogin = false
	b.mu.Unlock()
	b.deps.View.ShowFatal(err)
	return err
}

// Boot runs startup. It returns once the login view or the running application is shown.
func (b *Bootstrapper) Boot(ctx context.Context) error {
	b.transition(StateBooting)

	if err := b.cfg.Validate(); err != nil {
		return b.fail(err)
	}

	b.pollOnce.Do(func() { go b.pollIdentity(ctx) })

	b.mu.Lock()
	loggingOut := b.session.ConsumeLoggingOut()
	b.mu.Unlock()

	var held *oauth2.Token
	if loggingOut {
		b.log.Info().Msg("Returning from logout, skipping stored token")
		b.deps.Store.Clear()
	} else if tok, ok := b.deps.Store.Read(); ok {
		held = tok
		if left, ok := b.deps.Store.Remaining(); ok {
			b.log.Debug().Dur("remaining", left).Msg("Stored token found")
		}
	}

	b.transition(StateAwaitingLibraries)
	if err := b.deps.Libraries.Ready(ctx); err != nil {
		return b.fail(fmt.Errorf("%w: %v", ErrLibraryLoad, err))
	}

	if held != nil {
		if err := b.deps.Tokens.SetToken(held); err != nil {
			b.log.Warn().Err(err).Msg("Could not apply stored token")
			b.deps.Store.Clear()
			held = nil
		}
	}

	if held == nil {
		b.showLogin()
		return nil
	}
	return b.runApp(ctx)
}

func (b *Bootstrapper) runApp(ctx context.Context) error {
	b.mu.Lock()
	b.session.IsAuthenticated = true
	b.showingLogin = false
	b.mu.Unlock()

	b.transition(StateAuthenticated)
	b.deps.View.ShowApp()

	if err := b.deps.Sleep(ctx, b.cfg.SettleDelay); err != nil {
		return err
	}
	if err := b.deps.Starter.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}

	// The first load may have rejected the token and returned to the login view.
	if b.State() == StateAuthenticated {
		b.transition(StateAppRunning)
	}
	return nil
}

func (b *Bootstrapper) showLogin() {
	b.mu.Lock()
	b.session.IsAuthenticated = false
	identityErr := b.identityErr
	if identityErr == nil {
		b.showingLogin = true
	}
	b.mu.Unlock()

	b.transition(StateUnauthenticated)
	if identityErr != nil {
		_ = b.fail(identityErr)
		return
	}
	b.deps.View.ShowLogin(func() {
		if err := b.Login(); err != nil {
			b.log.Warn().Err(err).Msg("Login unavailable")
		}
	})
}

// pollIdentity waits for the identity service with bounded attempts and builds
// the token client once it is available.
func (b *Bootstrapper) pollIdentity(ctx context.Context) {
	defer close(b.identityDone)

	for attempt := 1; attempt <= b.cfg.IdentityPollMax; attempt++ {
		if b.deps.Identity.Available() {
			_, err := b.tokenClient()
			if err != nil {
				b.mu.Lock()
				b.identityErr = err
				b.mu.Unlock()
				b.log.Error().Err(err).Msg("Could not create token client")
			} else {
				b.log.Debug().Int("attempt", attempt).Msg("Token client ready")
			}
			return
		}
		if err := b.deps.Sleep(ctx, b.cfg.IdentityPollInterval); err != nil {
			return
		}
	}

	b.mu.Lock()
	b.identityErr = ErrIdentityTimeout
	onLogin := b.showingLogin
	b.mu.Unlock()

	b.log.Error().Int("attempt", b.cfg.IdentityPollMax).Msg("Identity service never became available")
	if onLogin {
		_ = b.fail(ErrIdentityTimeout)
	}
}

func (b *Bootstrapper) tokenClient() (auth.TokenClient, error) {
	b.once.Do(func() {
		client, err := b.deps.Factory.NewTokenClient()
		b.mu.Lock()
		b.client, b.clientErr = client, err
		b.mu.Unlock()
	})
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client, b.clientErr
}

// Login asks the identity service for a token with an explicit consent prompt.
// The result arrives through CompleteLogin.
func (b *Bootstrapper) Login() error {
	b.mu.Lock()
	client, identityErr := b.client, b.identityErr
	b.mu.Unlock()

	if identityErr != nil {
		return identityErr
	}
	if client == nil {
		return ErrIdentityNotReady
	}
	b.log.Info().Msg("Requesting access token")
	client.RequestAccessToken(auth.PromptConsent)
	return nil
}

// CompleteLogin handles the identity callback. An error response keeps the login view.
func (b *Bootstrapper) CompleteLogin(ctx context.Context, resp auth.TokenResponse) error {
	tok, err := resp.Token(time.Now())
	if err != nil {
		b.log.Error().Err(err).Msg("Token error")
		return err
	}
	if err := b.deps.Store.Save(tok); err != nil {
		b.log.Warn().Err(err).Msg("Could not persist token")
	}
	if err := b.deps.Tokens.SetToken(tok); err != nil {
		b.log.Error().Err(err).Msg("Could not apply token")
		return err
	}
	return b.runApp(ctx)
}

// Unauthenticate drops the current token and returns to the login view.
func (b *Bootstrapper) Unauthenticate() {
	b.log.Info().Msg("Token rejected, returning to login")
	b.deps.Store.Clear()
	if err := b.deps.Tokens.SetToken(nil); err != nil {
		b.log.Warn().Err(err).Msg("Could not clear token")
	}
	b.showLogin()
}
