// Package memory is an in-process Drive and Sheets backend used by tests and the offline demo.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/bplmmv/google-drive-toda-live/internal/adapter"
	"github.com/bplmmv/google-drive-toda-live/internal/model"
	"github.com/google/uuid"
)

// Operation names accepted by SetError.
const (
	OpProbe       = "probe"
	OpList        = "list"
	OpSharedDrive = "drives"
	OpMetadata    = "metadata"
	OpExport      = "export"
	OpReplace     = "replace"
	OpGetGrid     = "getGrid"
	OpBatchUpdate = "batchUpdate"
)

type entry struct {
	item   model.Item
	markup string
	grid   [][]string
}

// Batch is one recorded BatchUpdateCells call.
type Batch struct {
	SpreadsheetID string
	SheetID       int64
	Writes        []model.CellWrite
}

// Adapter implements adapter.Drive and adapter.Sheets over maps.
type Adapter struct {
	mu      sync.RWMutex
	files   map[string]*entry
	order   []string
	drives  []model.SharedDrive
	errs    map[string]error
	batches []Batch
	calls   map[string]int
}

// New creates an empty Adapter.
func New() *Adapter {
	return &Adapter{
		files: make(map[string]*entry),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

// AddItem stores an item with an explicit id.
func (m *Adapter) AddItem(item model.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.Kind == model.KindUnsupported {
		item.Kind = model.KindFromMIME(item.MIMEType)
	}
	if _, ok := m.files[item.ID]; !ok {
		m.order = append(m.order, item.ID)
	}
	m.files[item.ID] = &entry{item: item}
}

func (m *Adapter) add(name, mimeType, parent string) string {
	if parent == "" {
		parent = model.RootID
	}
	id := uuid.New().String()
	m.AddItem(model.Item{ID: id, Name: name, MIMEType: mimeType, Parents: []string{parent}})
	return id
}

// AddFolder creates a folder and returns its id.
func (m *Adapter) AddFolder(name, parent string) string {
	return m.add(name, model.MIMEFolder, parent)
}

// AddDocument creates a rich-text document and returns its id.
func (m *Adapter) AddDocument(name, parent, markup string) string {
	id := m.add(name, model.MIMEDocument, parent)
	m.SetMarkup(id, markup)
	return id
}

// AddGrid creates a tabular document and returns its id.
func (m *Adapter) AddGrid(name, parent string, rows [][]string) string {
	id := m.add(name, model.MIMEGrid, parent)
	m.SetRows(id, rows)
	return id
}

// AddSharedDrive registers a shared drive and returns its id.
func (m *Adapter) AddSharedDrive(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.drives = append(m.drives, model.SharedDrive{ID: id, Name: name})
	return id
}

// SetMarkup sets the exported markup of a document.
func (m *Adapter) SetMarkup(id, markup string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.files[id]; ok {
		e.markup = markup
	}
}

// SetRows sets the cell data of a tabular document.
func (m *Adapter) SetRows(id string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.files[id]; ok {
		e.grid = rows
	}
}

// SetError makes every call of op fail with err until cleared with a nil err.
func (m *Adapter) SetError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
		return
	}
	m.errs[op] = err
}

// Calls returns how many times op was invoked.
func (m *Adapter) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// Markup returns the current markup of a document.
func (m *Adapter) Markup(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.files[id]; ok {
		return e.markup
	}
	return ""
}

// Batches returns the recorded batch updates.
func (m *Adapter) Batches() []Batch {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Batch(nil), m.batches...)
}

// begin counts the call and returns the injected error for op. Callers hold no lock.
func (m *Adapter) begin(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	return m.errs[op]
}

func (m *Adapter) Probe(ctx context.Context) error {
	if err := m.begin(OpProbe); err != nil {
		return fmt.Errorf("token validation failed: %w", err)
	}
	return ctx.Err()
}

func (m *Adapter) ListChildren(ctx context.Context, folderID string, pageSize int64) ([]model.Item, error) {
	if err := m.begin(OpList); err != nil {
		return nil, fmt.Errorf("unable to list files: %w", err)
	}
	if folderID == "" {
		folderID = model.RootID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []model.Item
	for _, id := range m.order {
		e := m.files[id]
		for _, p := range e.item.Parents {
			if p == folderID {
				items = append(items, e.item)
				break
			}
		}
		if pageSize > 0 && int64(len(items)) >= pageSize {
			break
		}
	}
	return items, nil
}

func (m *Adapter) ListSharedDrives(ctx context.Context, pageSize int64) ([]model.SharedDrive, error) {
	if err := m.begin(OpSharedDrive); err != nil {
		return nil, fmt.Errorf("unable to list shared drives: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	drives := append([]model.SharedDrive(nil), m.drives...)
	if pageSize > 0 && int64(len(drives)) > pageSize {
		drives = drives[:pageSize]
	}
	return drives, nil
}

func (m *Adapter) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.files[id]
	if !ok {
		return nil, adapter.ErrNotFound
	}
	return e, nil
}

func (m *Adapter) GetMetadata(ctx context.Context, fileID string) (*model.FileMeta, error) {
	if err := m.begin(OpMetadata); err != nil {
		return nil, fmt.Errorf("unable to get file metadata: %w", err)
	}
	e, err := m.lookup(fileID)
	if err != nil {
		return nil, err
	}
	return &model.FileMeta{
		ID:       e.item.ID,
		Name:     e.item.Name,
		MIMEType: e.item.MIMEType,
		Kind:     e.item.Kind,
	}, nil
}

func (m *Adapter) ExportMarkup(ctx context.Context, fileID string) (string, error) {
	if err := m.begin(OpExport); err != nil {
		return "", fmt.Errorf("unable to export document: %w", err)
	}
	if _, err := m.lookup(fileID); err != nil {
		return "", err
	}
	return m.Markup(fileID), nil
}

func (m *Adapter) ReplaceContent(ctx context.Context, fileID, name string, markup []byte) error {
	if err := m.begin(OpReplace); err != nil {
		return fmt.Errorf("unable to update document: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.files[fileID]
	if !ok {
		return adapter.ErrNotFound
	}
	e.markup = string(markup)
	if name != "" {
		e.item.Name = name
	}
	return nil
}

func (m *Adapter) GetGrid(ctx context.Context, spreadsheetID string) (*model.Grid, error) {
	if err := m.begin(OpGetGrid); err != nil {
		return nil, fmt.Errorf("unable to get spreadsheet: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.files[spreadsheetID]
	if !ok {
		return nil, adapter.ErrNotFound
	}
	if e.item.Kind != model.KindGrid {
		return nil, adapter.ErrUnsupportedKind
	}
	rows := make([][]string, len(e.grid))
	for i, r := range e.grid {
		rows[i] = append([]string(nil), r...)
	}
	return &model.Grid{SpreadsheetID: spreadsheetID, Title: "Sheet1", Rows: rows}, nil
}

func (m *Adapter) BatchUpdateCells(ctx context.Context, spreadsheetID string, sheetID int64, writes []model.CellWrite) error {
	if err := m.begin(OpBatchUpdate); err != nil {
		return fmt.Errorf("unable to update spreadsheet: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.files[spreadsheetID]
	if !ok {
		return adapter.ErrNotFound
	}
	m.batches = append(m.batches, Batch{
		SpreadsheetID: spreadsheetID,
		SheetID:       sheetID,
		Writes:        append([]model.CellWrite(nil), writes...),
	})
	for _, w := range writes {
		for len(e.grid) <= w.Row {
			e.grid = append(e.grid, nil)
		}
		for len(e.grid[w.Row]) <= w.Col {
			e.grid[w.Row] = append(e.grid[w.Row], "")
		}
		e.grid[w.Row][w.Col] = formatValue(w.Value)
	}
	return nil
}

func formatValue(v model.TypedValue) string {
	switch {
	case v.Number != nil:
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	case v.Bool != nil:
		if *v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case v.String != nil:
		return *v.String
	}
	return ""
}
