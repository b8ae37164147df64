//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"syscall/js"

	"github.com/bplmmv/google-drive-toda-live/internal/app"
	"github.com/bplmmv/google-drive-toda-live/internal/auth"
	"github.com/bplmmv/google-drive-toda-live/internal/config"
	"github.com/bplmmv/google-drive-toda-live/internal/handler"
	"github.com/bplmmv/google-drive-toda-live/internal/logging"
	"github.com/bplmmv/google-drive-toda-live/internal/logout"
	"github.com/bplmmv/google-drive-toda-live/internal/web"
)

// Names shared with the page script.
const (
	pageObject    = "todaPage"
	appObject     = "todaApp"
	readyPromise  = "todaLibrariesReady"
	envPathGlobal = "todaEnvPath"
)

func fetchEnv(ctx context.Context) (map[string]string, error) {
	path := handler.EnvPath
	if p := js.Global().Get(envPathGlobal); p.Type() == js.TypeString {
		path = p.String()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", path, resp.StatusCode)
	}
	values := map[string]string{}
	if err := json.NewDecoder(resp.Body).Decode(&values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return values, nil
}

func main() {
	ctx := context.Background()
	bootLog := logging.NewDefault(false)
	views := web.Views{Page: web.NewPage(pageObject, bootLog)}

	// A missing environment leaves the keys empty and the session reports it.
	values, err := fetchEnv(ctx)
	if err != nil {
		values = map[string]string{}
		bootLog.Error().Err(err).Msg("Could not load configuration")
	}
	cfg, err := config.Load(ctx, config.NewMapResolver(values))
	if err != nil {
		views.ShowFatal(err)
		select {}
	}

	log := logging.NewDefault(cfg.Debug)
	page := web.NewPage(pageObject, log)
	views = web.Views{Page: page}

	storage, err := web.NewLocalStorage()
	if err != nil {
		views.ShowFatal(err)
		select {}
	}

	pageURL := page.URL()
	if logout.IsReturning(pageURL) {
		pageURL = logout.StripMarker(pageURL)
		page.ReplaceURL(pageURL)
	}

	gis := &web.GIS{ClientID: cfg.ClientID, Scope: cfg.ScopeString()}
	a, err := app.New(ctx, cfg, app.Page{
		Storage:   storage,
		Libraries: web.Libraries{Promise: readyPromise},
		Identity:  gis,
		Factory:   gis,
		View:      views,
		Listing:   web.ListingSurface{Page: page},
		Editor:    web.EditorSurface{Page: page},
		URL:       pageURL,
	}, log)
	if err != nil {
		views.ShowFatal(err)
		select {}
	}
	gis.OnToken = func(resp auth.TokenResponse) {
		if err := a.Session.CompleteLogin(ctx, resp); err != nil {
			log.Warn().Err(err).Str("class", app.Classify(err).String()).Msg("Login did not complete")
		}
	}

	web.Expose(appObject, a, log)
	log.Info().Msg("Drive editor initialized")

	go a.Run(ctx)

	// Returning would exit the module and drop every callback.
	select {}
}
