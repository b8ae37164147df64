package model

// Cell is a zero-based grid coordinate.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// TypedValue is a cell value after type inference. Exactly one field is set.
type TypedValue struct {
	Number *float64 `json:"numberValue,omitempty"`
	Bool   *bool    `json:"boolValue,omitempty"`
	String *string  `json:"stringValue,omitempty"`
}

// NumberValue returns a numeric TypedValue.
func NumberValue(f float64) TypedValue { return TypedValue{Number: &f} }

// BoolValue returns a boolean TypedValue.
func BoolValue(b bool) TypedValue { return TypedValue{Bool: &b} }

// StringValue returns a string TypedValue.
func StringValue(s string) TypedValue { return TypedValue{String: &s} }

// CellWrite is one typed cell write of a batch update.
type CellWrite struct {
	Cell
	Value TypedValue
}

// Grid is the first sheet of a tabular document, as formatted strings.
type Grid struct {
	SpreadsheetID string
	SheetID       int64
	Title         string
	Rows          [][]string
}

// UsedRows returns the number of rows carrying data.
func (g *Grid) UsedRows() int {
	return len(g.Rows)
}

// UsedCols returns the widest row length.
func (g *Grid) UsedCols() int {
	n := 0
	for _, r := range g.Rows {
		if len(r) > n {
			n = len(r)
		}
	}
	return n
}

// Value returns the formatted value at a coordinate, or "" outside the used range.
func (g *Grid) Value(row, col int) string {
	if row < 0 || row >= len(g.Rows) {
		return ""
	}
	r := g.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}
