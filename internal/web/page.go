//go:build js && wasm

package web

import (
	"encoding/json"
	"syscall/js"

	"github.com/bplmmv/google-drive-toda-live/internal/editor"
	"github.com/bplmmv/google-drive-toda-live/internal/listing"
	"github.com/bplmmv/google-drive-toda-live/internal/logging"
	"github.com/bplmmv/google-drive-toda-live/internal/model"
)

// Page calls into the page script object that owns the DOM.
type Page struct {
	obj js.Value
	log *logging.Logger
}

// NewPage binds to the global page script object named name.
func NewPage(name string, log *logging.Logger) *Page {
	return &Page{obj: js.Global().Get(name), log: log.Component("web")}
}

func (p *Page) call(method string, args ...interface{}) js.Value {
	return p.obj.Call(method, args...)
}

// callJSON passes v as a parsed JSON object.
func (p *Page) callJSON(method string, v interface{}, args ...interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		p.log.Error().Err(err).Str("method", method).Msg("Failed to encode view model")
		return
	}
	parsed := js.Global().Get("JSON").Call("parse", string(raw))
	p.call(method, append([]interface{}{parsed}, args...)...)
}

// once wraps f in a JS function released after its first call.
func once(f func()) js.Func {
	var fn js.Func
	fn = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		fn.Release()
		go f()
		return nil
	})
	return fn
}

// Views implements app.View.
type Views struct{ *Page }

func (v Views) ShowLogin(login func()) { v.call("showLogin", once(login)) }
func (v Views) ShowApp()               { v.call("showApp") }
func (v Views) ShowFatal(err error)    { v.call("showFatal", err.Error()) }
func (v Views) ShowLoggingOut()        { v.call("showLoggingOut") }
func (v Views) Reload(target string)   { js.Global().Get("location").Call("replace", target) }
func (v Views) SetRefreshEnabled(enabled bool) {
	v.call("setRefreshEnabled", enabled)
}

// URL returns the current page address.
func (p *Page) URL() string {
	return js.Global().Get("location").Get("href").String()
}

// ReplaceURL rewrites the address bar without a reload or a history entry.
func (p *Page) ReplaceURL(target string) {
	js.Global().Get("history").Call("replaceState", js.Null(), "", target)
}

// ListingSurface implements listing.Surface.
type ListingSurface struct{ *Page }

type entryJSON struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Kind      string               `json:"kind"`
	Action    int                  `json:"action"`
	Draggable bool                 `json:"draggable"`
	Drag      *listing.DragPayload `json:"drag,omitempty"`
	Active    bool                 `json:"active"`
}

type groupJSON struct {
	Title   string      `json:"title"`
	Entries []entryJSON `json:"entries"`
}

type sectionJSON struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Back   *entryJSON  `json:"back,omitempty"`
	Groups []groupJSON `json:"groups"`
	Empty  string      `json:"empty,omitempty"`
}

func toEntryJSON(e listing.Entry) entryJSON {
	return entryJSON{
		ID:        e.ID,
		Name:      e.Name,
		Kind:      e.Kind.String(),
		Action:    int(e.Action),
		Draggable: e.Draggable,
		Drag:      e.Drag,
		Active:    e.Active,
	}
}

func toSectionJSON(sec listing.Section) sectionJSON {
	out := sectionJSON{ID: sec.ID, Title: sec.Title, Groups: []groupJSON{}}
	if sec.Back != nil {
		b := toEntryJSON(*sec.Back)
		out.Back = &b
	}
	for _, g := range sec.Groups {
		gj := groupJSON{Title: g.Title}
		for _, e := range g.Entries {
			gj.Entries = append(gj.Entries, toEntryJSON(e))
		}
		out.Groups = append(out.Groups, gj)
	}
	if sec.Empty {
		out.Empty = listing.EmptyMessage
	}
	return out
}

func (s ListingSurface) Clear()                     { s.call("clearListing") }
func (s ListingSurface) Append(sec listing.Section) { s.callJSON("appendSection", toSectionJSON(sec)) }
func (s ListingSurface) Replace(sec listing.Section) {
	s.callJSON("replaceSection", toSectionJSON(sec))
}
func (s ListingSurface) ShowBreadcrumbs(crumbs []model.Breadcrumb) {
	s.callJSON("showBreadcrumbs", crumbs)
}
func (s ListingSurface) ShowError(message string, retry func()) {
	s.call("showListingError", message, once(retry))
}
func (s ListingSurface) SetActive(id string) { s.call("setActive", id) }

// EditorSurface implements editor.Surface.
type EditorSurface struct{ *Page }

func (e EditorSurface) SetTitle(name string)         { e.call("setTitle", name) }
func (e EditorSurface) SetSaveEnabled(enabled bool)  { e.call("setSaveEnabled", enabled) }
func (e EditorSurface) SetCloseEnabled(enabled bool) { e.call("setCloseEnabled", enabled) }
func (e EditorSurface) SetSaving(saving bool)        { e.call("setSaving", saving) }
func (e EditorSurface) ShowPlaceholder()             { e.call("showPlaceholder") }
func (e EditorSurface) ShowLoading(message string)   { e.call("showLoading", message) }
func (e EditorSurface) ShowError(message string)     { e.call("showEditorError", message) }
func (e EditorSurface) LoadMarkup(ticket, markup string) {
	e.call("loadMarkup", ticket, markup)
}
func (e EditorSurface) CurrentMarkup() string    { return e.call("currentMarkup").String() }
func (e EditorSurface) Notify(message string)    { e.call("notify", message) }
func (e EditorSurface) Alert(message string)     { js.Global().Call("alert", message) }
func (e EditorSurface) ShowGrid(ticket string, view editor.GridView) {
	e.callJSON("showGrid", view, ticket)
}
