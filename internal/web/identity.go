//go:build js && wasm

package web

import (
	"context"
	"errors"
	"fmt"
	"syscall/js"

	"github.com/bplmmv/google-drive-toda-live/internal/auth"
)

// Libraries awaits the promise the page resolves once the Google scripts have loaded.
type Libraries struct {
	// Promise is the global name of the readiness promise.
	Promise string
}

func (l Libraries) Ready(ctx context.Context) error {
	p := js.Global().Get(l.Promise)
	if p.IsUndefined() || p.IsNull() {
		return fmt.Errorf("%s is not defined", l.Promise)
	}
	return await(ctx, p)
}

// await blocks until a JS promise settles.
func await(ctx context.Context, promise js.Value) error {
	done := make(chan error, 1)
	onResolve := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		done <- nil
		return nil
	})
	onReject := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		msg := "promise rejected"
		if len(args) > 0 && !args[0].IsUndefined() {
			msg = args[0].Call("toString").String()
		}
		done <- errors.New(msg)
		return nil
	})
	defer onResolve.Release()
	defer onReject.Release()

	promise.Call("then", onResolve, onReject)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GIS is the Google Identity Services token client.
type GIS struct {
	ClientID string
	Scope    string

	// OnToken receives every token callback.
	OnToken func(resp auth.TokenResponse)
}

func oauth2Namespace() js.Value {
	g := js.Global().Get("google")
	if g.IsUndefined() {
		return js.Undefined()
	}
	acc := g.Get("accounts")
	if acc.IsUndefined() {
		return js.Undefined()
	}
	return acc.Get("oauth2")
}

// Available implements session.IdentityProbe.
func (g *GIS) Available() bool {
	return !oauth2Namespace().IsUndefined()
}

// NewTokenClient implements session.TokenClientFactory.
func (g *GIS) NewTokenClient() (auth.TokenClient, error) {
	ns := oauth2Namespace()
	if ns.IsUndefined() {
		return nil, errors.New("google.accounts.oauth2 is not loaded")
	}

	callback := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) == 0 || g.OnToken == nil {
			return nil
		}
		resp := tokenResponse(args[0])
		go g.OnToken(resp)
		return nil
	})

	cfg := js.Global().Get("Object").New()
	cfg.Set("client_id", g.ClientID)
	cfg.Set("scope", g.Scope)
	cfg.Set("callback", callback)

	client := ns.Call("initTokenClient", cfg)
	return &tokenClient{client: client}, nil
}

func tokenResponse(v js.Value) auth.TokenResponse {
	str := func(name string) string {
		f := v.Get(name)
		if f.IsUndefined() || f.IsNull() {
			return ""
		}
		return f.String()
	}
	resp := auth.TokenResponse{
		AccessToken:      str("access_token"),
		TokenType:        str("token_type"),
		Scope:            str("scope"),
		Error:            str("error"),
		ErrorDescription: str("error_description"),
	}
	if e := v.Get("expires_in"); e.Type() == js.TypeNumber {
		resp.ExpiresIn = int64(e.Int())
	} else if e.Type() == js.TypeString {
		fmt.Sscan(e.String(), &resp.ExpiresIn)
	}
	return resp
}

type tokenClient struct {
	client js.Value
}

func (c *tokenClient) RequestAccessToken(prompt string) {
	opts := js.Global().Get("Object").New()
	opts.Set("prompt", prompt)
	c.client.Call("requestAccessToken", opts)
}
