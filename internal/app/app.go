// Package app wires the page runtime together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/text/language"
	"google.golang.org/api/option"

	"github.com/bplmmv/google-drive-toda-live/internal/adapter"
	"github.com/bplmmv/google-drive-toda-live/internal/adapter/googledrive"
	"github.com/bplmmv/google-drive-toda-live/internal/adapter/rest"
	"github.com/bplmmv/google-drive-toda-live/internal/auth"
	"github.com/bplmmv/google-drive-toda-live/internal/config"
	"github.com/bplmmv/google-drive-toda-live/internal/editor"
	"github.com/bplmmv/google-drive-toda-live/internal/listing"
	"github.com/bplmmv/google-drive-toda-live/internal/logging"
	"github.com/bplmmv/google-drive-toda-live/internal/logout"
	"github.com/bplmmv/google-drive-toda-live/internal/navigator"
	"github.com/bplmmv/google-drive-toda-live/internal/session"
	"github.com/bplmmv/google-drive-toda-live/internal/tokenstore"
)

// View is the set of top-level page views.
type View interface {
	session.View
	logout.View

	// SetRefreshEnabled toggles the refresh control.
	SetRefreshEnabled(enabled bool)
}

// Page holds what the page bridge supplies.
type Page struct {
	Storage   tokenstore.Storage
	Libraries session.Libraries
	Identity  session.IdentityProbe
	Factory   session.TokenClientFactory
	View      View
	Listing   listing.Surface
	Editor    editor.Surface

	// URL is the address of the page, used to build the logout reload target.
	URL string

	// Transport carries every outgoing request. Defaults to http.DefaultTransport.
	Transport http.RoundTripper

	// Provider overrides the Google adapters.
	Provider *adapter.Provider

	// Tokens overrides the token holder applied to outgoing calls.
	Tokens *auth.Holder
}

// App holds the wired components.
type App struct {
	cfg  config.Config
	log  *logging.Logger
	view View

	Tokens    *auth.Holder
	Store     *tokenstore.Store
	Session   *session.Bootstrapper
	Navigator *navigator.Navigator
	Listing   *listing.Renderer
	Editor    *editor.Bridge
	Logout    *logout.Coordinator

	refreshMu sync.Mutex
	refresh   bool
}

// NewGoogleProvider builds the adapters for the Google APIs. Every request is
// authorized with the holder's current token.
func NewGoogleProvider(ctx context.Context, tokens *auth.Holder, transport http.RoundTripper, log *logging.Logger) (*adapter.Provider, error) {
	client := tokens.HTTPClient(transport)
	opts := []option.ClientOption{option.WithUserAgent("toda-drive-editor")}

	drive, err := googledrive.NewDriveAdapter(ctx, client, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive client: %w", err)
	}

	direct := rest.NewClient(tokens, rest.Options{
		RetryMax:   2,
		HTTPClient: &http.Client{Transport: transport},
	}, log.Component("rest"))

	return &adapter.Provider{
		Drive:   drive,
		Direct:  direct,
		Library: googledrive.NewSheetsLoader(client, opts...),
	}, nil
}

// New wires every component.
func New(ctx context.Context, cfg config.Config, page Page, log *logging.Logger) (*App, error) {
	if log == nil {
		log = logging.Nop()
	}
	if page.Transport == nil {
		page.Transport = http.DefaultTransport
	}

	a := &App{cfg: cfg, log: log.Component("app"), view: page.View}

	a.Tokens = page.Tokens
	if a.Tokens == nil {
		a.Tokens = auth.NewHolder()
	}
	a.Store = tokenstore.New(page.Storage, cfg.StorageKey, cfg.TokenLifetime, log.Component("tokenstore"))

	provider := page.Provider
	if provider == nil {
		var err error
		provider, err = NewGoogleProvider(ctx, a.Tokens, page.Transport, log)
		if err != nil {
			return nil, err
		}
	}

	a.Listing = listing.NewRenderer(page.Listing, listing.NewSorter(language.Und), log)

	a.Navigator = navigator.New(provider.Drive, provider.Drive, a.Listing, navigator.Options{
		PageSize:            cfg.ListPageSize,
		SharedDrivePageSize: cfg.SharedDrivePageSize,
		OnUnauthorized:      func() { a.Session.Unauthenticate() },
	}, log)

	a.Editor = editor.New(provider.Drive, provider.Direct, provider.Library, page.Editor, a.Listing, editor.Options{
		GridLibraryTimeout: cfg.GridLibraryTimeout,
		NormalizeRedoDelay: cfg.NormalizeRedoDelay,
		MinGridRows:        cfg.MinGridRows,
		MinGridCols:        cfg.MinGridCols,
	}, log)

	a.Session = session.New(cfg, session.Deps{
		Store:     a.Store,
		Libraries: page.Libraries,
		Identity:  page.Identity,
		Factory:   page.Factory,
		Tokens:    a.Tokens,
		View:      page.View,
		Starter:   session.StarterFunc(a.start),
	}, log)

	revoker := auth.NewRevoker(cfg.RevokeURL, &http.Client{Transport: page.Transport}, log.Component("auth"))
	a.Logout = logout.New(a.Session, a.Store, a.Tokens, revoker, page.View, logout.Options{
		Delay:   cfg.LogoutDelay,
		BaseURL: page.URL,
	}, log)

	if a.Store.ConsumeLoggingOut() {
		a.Session.MarkLoggingOut()
	}
	return a, nil
}

// start resets the editor and loads the root listing. Listing failures are
// shown inline by the navigator and do not stop the application.
func (a *App) start(ctx context.Context) error {
	a.Editor.Close()
	if err := a.Navigator.Home(ctx); err != nil && !errors.Is(err, navigator.ErrStaleResponse) {
		a.log.Warn().Err(err).Str("class", Classify(err).String()).Msg("Initial listing failed")
	}
	a.log.Info().Msg("Application started")
	return nil
}

// Run boots the session. Any error or panic that escapes is shown as a fatal panel.
func (a *App) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error: %v", r)
			a.log.Error().Err(err).Msg("Recovered from panic")
			a.view.ShowFatal(err)
		}
	}()

	err = a.Session.Boot(ctx)
	if err != nil && a.Session.State() != session.StateFailed {
		a.log.Error().Err(err).Str("class", Classify(err).String()).Msg("Startup failed")
		a.view.ShowFatal(err)
	}
	return err
}

// Refresh reloads the current folder with the refresh control disabled while in flight.
// A second call while one is running is ignored.
func (a *App) Refresh(ctx context.Context) error {
	a.refreshMu.Lock()
	if a.refresh {
		a.refreshMu.Unlock()
		return nil
	}
	a.refresh = true
	a.refreshMu.Unlock()

	a.view.SetRefreshEnabled(false)
	defer func() {
		a.refreshMu.Lock()
		a.refresh = false
		a.refreshMu.Unlock()
		a.view.SetRefreshEnabled(true)
	}()

	err := a.Navigator.Refresh(ctx)
	if errors.Is(err, navigator.ErrStaleResponse) {
		return nil
	}
	return err
}

// OpenEntry performs the action of a listing entry.
func (a *App) OpenEntry(ctx context.Context, e listing.Entry) error {
	switch e.Action {
	case listing.ActionDescend:
		return a.Navigator.Descend(ctx, e.ID, e.Name)
	case listing.ActionAscend:
		return a.Navigator.Ascend(ctx)
	case listing.ActionEnterDrive:
		return a.Navigator.EnterSharedDrive(ctx, e.ID, e.Name)
	case listing.ActionOpen:
		return a.Editor.Open(ctx, e.ID)
	default:
		return fmt.Errorf("unknown action %d", e.Action)
	}
}
