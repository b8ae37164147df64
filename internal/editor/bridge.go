// Package editor opens one remote document at a time into an editable
// surface and writes local edits back.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bplmmv/google-drive-toda-live/internal/adapter"
	"github.com/bplmmv/google-drive-toda-live/internal/listing"
	"github.com/bplmmv/google-drive-toda-live/internal/logging"
	"github.com/bplmmv/google-drive-toda-live/internal/model"
	"github.com/google/uuid"
)

// State is the lifecycle of the editor session.
type State int

const (
	StateClosed State = iota
	StateOpening
	StateOpen
	StateSaving
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateSaving:
		return "saving"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// User-facing messages.
const (
	NoFileTitle    = "No file selected"
	SavedMessage   = "File saved successfully!"
	LoadingMessage = "Loading document..."
)

var (
	// ErrStaleOpen is returned when a newer open or a close superseded this open.
	ErrStaleOpen = errors.New("open superseded by a newer request")

	// ErrNotLoaded is returned by Save when no document content is loaded.
	ErrNotLoaded = errors.New("no document loaded")

	// ErrSaveInProgress is returned when a save is already running.
	ErrSaveInProgress = errors.New("save already in progress")

	// ErrGridLibrary is returned when the tabular client library cannot be loaded in time.
	ErrGridLibrary = errors.New("could not load Sheets API")

	// ErrGridUnavailable is returned when every read strategy failed.
	ErrGridUnavailable = errors.New("could not access spreadsheet, verify you have permissions to edit this file")

	// ErrGridSave is returned when every write strategy failed.
	ErrGridSave = errors.New("could not save spreadsheet changes, verify your permissions or try again later")

	// ErrBadDropPayload is returned for a drop that carries no document id.
	ErrBadDropPayload = errors.New("invalid drop payload")
)

// Surface is the editor pane.
type Surface interface {
	SetTitle(name string)
	SetSaveEnabled(enabled bool)
	SetCloseEnabled(enabled bool)

	// SetSaving switches the save control into its in-flight look and disables it.
	SetSaving(saving bool)

	ShowPlaceholder()
	ShowLoading(message string)

	// ShowError shows an inline error in the content area.
	ShowError(message string)

	// LoadMarkup loads rich-text markup and calls Bridge.MarkupLoaded(ticket) when ready.
	LoadMarkup(ticket, markup string)

	// CurrentMarkup serializes the live rich-text surface.
	CurrentMarkup() string

	// ShowGrid renders an editable table whose cells report edits through Bridge.EditCell.
	ShowGrid(ticket string, view GridView)

	// Notify shows a transient success notice.
	Notify(message string)

	// Alert shows a blocking failure notice.
	Alert(message string)
}

// Highlighter marks the active document in the listing.
type Highlighter interface {
	SetActive(id string)
}

// Options configures a Bridge.
type Options struct {
	GridLibraryTimeout time.Duration
	NormalizeRedoDelay time.Duration
	MinGridRows        int
	MinGridCols        int
}

// Bridge is the single editor session.
type Bridge struct {
	docs      adapter.Documents
	direct    adapter.Sheets
	library   adapter.SheetsLoader
	surface   Surface
	highlight Highlighter
	opts      Options
	log       *logging.Logger

	// afterFunc schedules the delayed normalization pass.
	afterFunc func(d time.Duration, f func())

	mu      sync.Mutex
	state   State
	ticket  string
	file    *model.FileMeta
	loaded  bool
	redone  bool
	markup  string
	grid    *model.Grid
	pending *updateSet
}

// New creates a closed Bridge.
func New(docs adapter.Documents, direct adapter.Sheets, library adapter.SheetsLoader, surface Surface, highlight Highlighter, opts Options, log *logging.Logger) *Bridge {
	if log == nil {
		log = logging.Nop()
	}
	if opts.GridLibraryTimeout <= 0 {
		opts.GridLibraryTimeout = 5 * time.Second
	}
	if opts.MinGridRows <= 0 {
		opts.MinGridRows = 10
	}
	if opts.MinGridCols <= 0 {
		opts.MinGridCols = 10
	}
	return &Bridge{
		docs:      docs,
		direct:    direct,
		library:   library,
		surface:   surface,
		highlight: highlight,
		opts:      opts,
		log:       log.Component("editor"),
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// State returns the lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// File returns the open document, or nil.
func (b *Bridge) File() *model.FileMeta {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file == nil {
		return nil
	}
	f := *b.file
	return &f
}

// Active returns the id of the open document, or "".
func (b *Bridge) Active() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file == nil {
		return ""
	}
	return b.file.ID
}

// PendingCells returns the number of unsaved grid cells.
func (b *Bridge) PendingCells() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return 0
	}
	return b.pending.len()
}

func (b *Bridge) current(ticket string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ticket == ticket
}

// Open loads a document by id. The kind always comes from fresh metadata.
func (b *Bridge) Open(ctx context.Context, id string) error {
	ticket := uuid.NewString()

	b.mu.Lock()
	prevTicket := b.ticket
	b.ticket = ticket
	b.state = StateOpening
	b.mu.Unlock()

	b.log.Info().Str("fileId", id).Str("ticket", ticket).Msg("Opening file")

	meta, err := b.docs.GetMetadata(ctx, id)
	if !b.current(ticket) {
		return ErrStaleOpen
	}
	if err != nil {
		// The previously open document stays usable.
		b.mu.Lock()
		b.ticket = prevTicket
		b.state = StateClosed
		if b.file != nil {
			b.state = StateOpen
		}
		b.mu.Unlock()
		b.log.Error().Err(err).Str("fileId", id).Msg("Error opening file")
		b.surface.Alert("Error opening file: " + err.Error())
		return err
	}

	b.mu.Lock()
	b.file = meta
	b.loaded = false
	b.redone = false
	b.markup = ""
	b.grid = nil
	b.pending = nil
	b.mu.Unlock()

	b.surface.SetTitle(meta.Name)
	b.surface.SetSaveEnabled(false)
	b.surface.SetCloseEnabled(true)
	b.surface.ShowLoading(LoadingMessage)

	switch meta.Kind {
	case model.KindRichText:
		err = b.openRichText(ctx, ticket, meta)
	case model.KindGrid:
		err = b.openGrid(ctx, ticket, meta)
	default:
		err = fmt.Errorf("%w: %s", adapter.ErrUnsupportedKind, meta.MIMEType)
	}

	if errors.Is(err, ErrStaleOpen) {
		return err
	}

	b.mu.Lock()
	if b.ticket != ticket {
		b.mu.Unlock()
		return ErrStaleOpen
	}
	b.state = StateOpen
	b.mu.Unlock()

	if err != nil {
		b.log.Error().Err(err).Str("fileId", id).Msg("Error loading file content")
		b.surface.ShowError("Error loading content. Details: " + err.Error())
		return err
	}

	if b.highlight != nil {
		b.highlight.SetActive(meta.ID)
	}
	return nil
}

func (b *Bridge) openRichText(ctx context.Context, ticket string, meta *model.FileMeta) error {
	raw, err := b.docs.ExportMarkup(ctx, meta.ID)
	if !b.current(ticket) {
		return ErrStaleOpen
	}
	if err != nil {
		return err
	}

	markup, err := Normalize(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", adapter.ErrMalformedPayload, err)
	}

	b.mu.Lock()
	b.markup = markup
	b.mu.Unlock()

	b.surface.LoadMarkup(ticket, markup)
	return nil
}

// MarkupLoaded is called by the surface once the rich-text markup is live.
// It enables saving and schedules the second normalization pass.
func (b *Bridge) MarkupLoaded(ticket string) {
	b.mu.Lock()
	if b.ticket != ticket || b.file == nil || b.file.Kind != model.KindRichText {
		b.mu.Unlock()
		return
	}
	b.loaded = true
	schedule := !b.redone
	b.redone = true
	b.mu.Unlock()

	b.surface.SetSaveEnabled(true)
	if schedule {
		b.afterFunc(b.opts.NormalizeRedoDelay, func() { b.renormalize(ticket) })
	}
}

func (b *Bridge) renormalize(ticket string) {
	if !b.current(ticket) {
		return
	}
	live := b.surface.CurrentMarkup()
	markup, err := Normalize(live)
	if err != nil {
		b.log.Warn().Err(err).Msg("Second normalization pass failed")
		return
	}
	if markup == live {
		return
	}

	b.mu.Lock()
	if b.ticket != ticket {
		b.mu.Unlock()
		return
	}
	b.markup = markup
	b.mu.Unlock()
	b.surface.LoadMarkup(ticket, markup)
}

// Mutated records a new full snapshot of the rich-text surface.
func (b *Bridge) Mutated(ticket, snapshot string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ticket != ticket || b.file == nil || b.file.Kind != model.KindRichText {
		return
	}
	b.markup = snapshot
}

// gridStrategies loads the client library and returns the strategies in order:
// direct REST first, then the client library.
func (b *Bridge) gridStrategies(ctx context.Context) ([]adapter.Strategy, error) {
	var strategies []adapter.Strategy
	if b.direct != nil {
		strategies = append(strategies, adapter.Strategy{Name: "direct", Sheets: b.direct})
	}
	if b.library != nil {
		lctx, cancel := context.WithTimeout(ctx, b.opts.GridLibraryTimeout)
		defer cancel()
		lib, err := b.library.Ensure(lctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGridLibrary, err)
		}
		strategies = append(strategies, adapter.Strategy{Name: "library", Sheets: lib})
	}
	return strategies, nil
}

func (b *Bridge) openGrid(ctx context.Context, ticket string, meta *model.FileMeta) error {
	strategies, err := b.gridStrategies(ctx)
	if err != nil {
		return err
	}

	var grid *model.Grid
	var lastErr error
	for _, s := range strategies {
		grid, lastErr = s.GetGrid(ctx, meta.ID)
		if lastErr == nil {
			break
		}
		b.log.Warn().Err(lastErr).Str("strategy", s.Name).Msg("Spreadsheet fetch failed")
		if !b.current(ticket) {
			return ErrStaleOpen
		}
	}
	if !b.current(ticket) {
		return ErrStaleOpen
	}
	if grid == nil {
		if errors.Is(lastErr, adapter.ErrMalformedPayload) {
			return lastErr
		}
		return fmt.Errorf("%w: %v", ErrGridUnavailable, lastErr)
	}
	if grid.SpreadsheetID == "" {
		grid.SpreadsheetID = meta.ID
	}

	b.mu.Lock()
	b.grid = grid
	b.pending = newUpdateSet()
	b.loaded = true
	b.mu.Unlock()

	b.surface.ShowGrid(ticket, BuildGridView(grid, b.opts.MinGridRows, b.opts.MinGridCols))
	b.surface.SetSaveEnabled(true)
	return nil
}

// EditCell records the latest text of a grid cell.
func (b *Bridge) EditCell(ticket string, row, col int, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ticket != ticket || b.pending == nil || row < 0 || col < 0 {
		return
	}
	b.pending.upsert(model.Cell{Row: row, Col: col}, text)
}

// Save writes local edits back. Failures leave the surface and pending edits intact.
func (b *Bridge) Save(ctx context.Context) error {
	b.mu.Lock()
	if b.file == nil || !b.loaded {
		b.mu.Unlock()
		return ErrNotLoaded
	}
	if b.state == StateSaving {
		b.mu.Unlock()
		return ErrSaveInProgress
	}
	b.state = StateSaving
	ticket := b.ticket
	file := *b.file
	markup := b.markup
	grid := b.grid
	var snap map[model.Cell]pendingEdit
	if b.pending != nil {
		snap = b.pending.snapshot()
	}
	b.mu.Unlock()

	b.surface.SetSaving(true)

	var err error
	switch file.Kind {
	case model.KindRichText:
		err = b.docs.ReplaceContent(ctx, file.ID, file.Name, []byte(markup))
	case model.KindGrid:
		err = b.saveGrid(ctx, grid, snap)
	default:
		err = fmt.Errorf("%w: %s", adapter.ErrUnsupportedKind, file.MIMEType)
	}

	b.mu.Lock()
	stillOpen := b.ticket == ticket
	if stillOpen {
		b.state = StateOpen
		if err == nil && b.pending != nil {
			b.pending.clearSent(snap)
		}
	}
	b.mu.Unlock()

	if stillOpen {
		b.surface.SetSaving(false)
	}

	if err != nil {
		b.log.Error().Err(err).Str("fileId", file.ID).Msg("Error saving file")
		b.surface.Alert("Error saving file: " + err.Error())
		return err
	}
	b.log.Info().Str("fileId", file.ID).Msg("File saved")
	b.surface.Notify(SavedMessage)
	return nil
}

func (b *Bridge) saveGrid(ctx context.Context, grid *model.Grid, snap map[model.Cell]pendingEdit) error {
	if len(snap) == 0 {
		b.log.Debug().Msg("No changes to save")
		return nil
	}

	strategies, err := b.gridStrategies(ctx)
	if err != nil {
		return err
	}

	batch := writes(snap)
	b.log.Info().
		Int("cells", len(batch)).
		Str("spreadsheetId", grid.SpreadsheetID).
		Msg("Saving cell updates")

	var lastErr error
	for _, s := range strategies {
		lastErr = s.BatchUpdateCells(ctx, grid.SpreadsheetID, grid.SheetID, batch)
		if lastErr == nil {
			return nil
		}
		b.log.Warn().Err(lastErr).Str("strategy", s.Name).Msg("Spreadsheet save failed")
	}
	return fmt.Errorf("%w: %v", ErrGridSave, lastErr)
}

// Close discards the session and restores the drop placeholder.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.state = StateClosing
	b.ticket = ""
	b.file = nil
	b.loaded = false
	b.markup = ""
	b.grid = nil
	b.pending = nil
	b.mu.Unlock()

	b.surface.SetTitle(NoFileTitle)
	b.surface.SetSaveEnabled(false)
	b.surface.SetCloseEnabled(false)
	b.surface.ShowPlaceholder()
	if b.highlight != nil {
		b.highlight.SetActive("")
	}

	b.mu.Lock()
	b.state = StateClosed
	b.mu.Unlock()
}

// OpenDropped opens the document carried by a drag-and-drop payload.
func (b *Bridge) OpenDropped(ctx context.Context, payload string) error {
	var p listing.DragPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil || p.ID == "" {
		return ErrBadDropPayload
	}
	return b.Open(ctx, p.ID)
}
