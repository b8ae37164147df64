//go:build js && wasm

package web

import (
	"context"
	"encoding/json"
	"syscall/js"

	"github.com/bplmmv/google-drive-toda-live/internal/app"
	"github.com/bplmmv/google-drive-toda-live/internal/listing"
	"github.com/bplmmv/google-drive-toda-live/internal/logging"
)

// Expose publishes the user actions of a as methods of a global object named name.
func Expose(name string, a *app.App, log *logging.Logger) {
	log = log.Component("bridge")
	ctx := context.Background()

	// action runs f off the JS event loop so network calls cannot deadlock it.
	action := func(what string, f func(args []js.Value) error) js.Func {
		return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			go func() {
				if err := f(args); err != nil {
					log.Debug().Err(err).Str("action", what).Str("class", app.Classify(err).String()).Msg("Action ended with error")
				}
			}()
			return nil
		})
	}
	// inline runs f on the event loop so edits keep their order.
	inline := func(f func(args []js.Value)) js.Func {
		return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			f(args)
			return nil
		})
	}
	str := func(args []js.Value, i int) string {
		if i >= len(args) || args[i].Type() != js.TypeString {
			return ""
		}
		return args[i].String()
	}
	num := func(args []js.Value, i int) int {
		if i >= len(args) || args[i].Type() != js.TypeNumber {
			return -1
		}
		return args[i].Int()
	}

	obj := js.Global().Get("Object").New()
	obj.Set("login", action("login", func([]js.Value) error {
		return a.Session.Login()
	}))
	obj.Set("logout", action("logout", func([]js.Value) error {
		return a.Logout.Logout(ctx)
	}))
	obj.Set("refresh", action("refresh", func([]js.Value) error {
		return a.Refresh(ctx)
	}))
	obj.Set("openEntry", action("openEntry", func(args []js.Value) error {
		var e struct {
			ID     string         `json:"id"`
			Name   string         `json:"name"`
			Action listing.Action `json:"action"`
		}
		if err := json.Unmarshal([]byte(str(args, 0)), &e); err != nil {
			return err
		}
		return a.OpenEntry(ctx, listing.Entry{ID: e.ID, Name: e.Name, Action: e.Action})
	}))
	obj.Set("jumpTo", action("jumpTo", func(args []js.Value) error {
		return a.Navigator.JumpTo(ctx, str(args, 0))
	}))
	obj.Set("openDropped", action("openDropped", func(args []js.Value) error {
		return a.Editor.OpenDropped(ctx, str(args, 0))
	}))
	obj.Set("save", action("save", func([]js.Value) error {
		return a.Editor.Save(ctx)
	}))
	obj.Set("closeFile", action("closeFile", func([]js.Value) error {
		a.Editor.Close()
		return nil
	}))
	obj.Set("editCell", inline(func(args []js.Value) {
		a.Editor.EditCell(str(args, 0), num(args, 1), num(args, 2), str(args, 3))
	}))
	obj.Set("markupLoaded", inline(func(args []js.Value) {
		a.Editor.MarkupLoaded(str(args, 0))
	}))
	obj.Set("mutated", inline(func(args []js.Value) {
		a.Editor.Mutated(str(args, 0), str(args, 1))
	}))

	js.Global().Set(name, obj)
}
