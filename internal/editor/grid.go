package editor

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/bplmmv/google-drive-toda-live/internal/model"
)

// GridView is the editable table shown for a tabular document.
type GridView struct {
	Title        string
	Rows         int
	Cols         int
	ColumnLabels []string
	Cells        [][]string
}

// BuildGridView sizes the display grid to the used range, with a minimum size
// so an empty sheet is still editable.
func BuildGridView(g *model.Grid, minRows, minCols int) GridView {
	rows := g.UsedRows()
	if rows < minRows {
		rows = minRows
	}
	cols := g.UsedCols()
	if cols < minCols {
		cols = minCols
	}

	v := GridView{
		Title:        g.Title,
		Rows:         rows,
		Cols:         cols,
		ColumnLabels: make([]string, cols),
		Cells:        make([][]string, rows),
	}
	if v.Title == "" {
		v.Title = "Sheet1"
	}
	for c := 0; c < cols; c++ {
		v.ColumnLabels[c] = ColumnLabel(c)
	}
	for r := 0; r < rows; r++ {
		v.Cells[r] = make([]string, cols)
		for c := 0; c < cols; c++ {
			v.Cells[r][c] = g.Value(r, c)
		}
	}
	return v
}

// ColumnLabel returns the spreadsheet letter for a zero-based column: A, B, ..., Z, AA, AB, ...
func ColumnLabel(col int) string {
	var b []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// ParseTypedValue infers the type of a cell edit: number, then boolean, then string.
func ParseTypedValue(text string) model.TypedValue {
	v := strings.TrimSpace(text)
	if v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return model.NumberValue(f)
		}
	}
	if strings.EqualFold(v, "true") {
		return model.BoolValue(true)
	}
	if strings.EqualFold(v, "false") {
		return model.BoolValue(false)
	}
	return model.StringValue(v)
}

type pendingEdit struct {
	text string
	seq  uint64
}

// updateSet is the sparse, per-cell last-write-wins set of unsaved edits.
type updateSet struct {
	edits map[model.Cell]pendingEdit
	seq   uint64
}

func newUpdateSet() *updateSet {
	return &updateSet{edits: make(map[model.Cell]pendingEdit)}
}

func (u *updateSet) upsert(c model.Cell, text string) {
	u.seq++
	u.edits[c] = pendingEdit{text: text, seq: u.seq}
}

func (u *updateSet) len() int {
	return len(u.edits)
}

// snapshot copies the pending edits.
func (u *updateSet) snapshot() map[model.Cell]pendingEdit {
	out := make(map[model.Cell]pendingEdit, len(u.edits))
	for c, e := range u.edits {
		out[c] = e
	}
	return out
}

// clearSent removes sent edits that were not changed since the snapshot.
func (u *updateSet) clearSent(sent map[model.Cell]pendingEdit) {
	for c, e := range sent {
		if cur, ok := u.edits[c]; ok && cur.seq == e.seq {
			delete(u.edits, c)
		}
	}
}

// writes converts a snapshot into typed cell writes, ordered by row then column.
func writes(snap map[model.Cell]pendingEdit) []model.CellWrite {
	out := make([]model.CellWrite, 0, len(snap))
	for c, e := range snap {
		out = append(out, model.CellWrite{Cell: c, Value: ParseTypedValue(e.text)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}
