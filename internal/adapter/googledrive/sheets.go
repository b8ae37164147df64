package googledrive

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/bplmmv/google-drive-toda-live/internal/adapter"
	"github.com/bplmmv/google-drive-toda-live/internal/model"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsAdapter implements adapter.Sheets with the Sheets client library.
type SheetsAdapter struct {
	service *sheets.Service
}

// NewSheetsAdapter creates a new SheetsAdapter.
func NewSheetsAdapter(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*SheetsAdapter, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Sheets client: %w", err)
	}
	return &SheetsAdapter{service: srv}, nil
}

// GetGrid fetches the spreadsheet with grid data and returns its first sheet.
func (s *SheetsAdapter) GetGrid(ctx context.Context, spreadsheetID string) (*model.Grid, error) {
	ss, err := s.service.Spreadsheets.Get(spreadsheetID).
		IncludeGridData(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to get spreadsheet: %w", classify(err))
	}
	return GridFromSpreadsheet(ss)
}

// BatchUpdateCells writes every cell with its own updateCells request.
func (s *SheetsAdapter) BatchUpdateCells(ctx context.Context, spreadsheetID string, sheetID int64, writes []model.CellWrite) error {
	req := BuildBatchUpdate(sheetID, writes)
	if _, err := s.service.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to update spreadsheet: %w", classify(err))
	}
	return nil
}

// GridFromSpreadsheet converts the first sheet of ss into a Grid of formatted values.
func GridFromSpreadsheet(ss *sheets.Spreadsheet) (*model.Grid, error) {
	if ss == nil || len(ss.Sheets) == 0 || ss.Sheets[0] == nil {
		return nil, fmt.Errorf("%w: spreadsheet has no sheets", adapter.ErrMalformedPayload)
	}
	sheet := ss.Sheets[0]
	if len(sheet.Data) == 0 || sheet.Data[0] == nil {
		return nil, fmt.Errorf("%w: spreadsheet data is incomplete", adapter.ErrMalformedPayload)
	}

	g := &model.Grid{SpreadsheetID: ss.SpreadsheetId, Title: "Sheet1"}
	if sheet.Properties != nil {
		g.SheetID = sheet.Properties.SheetId
		if sheet.Properties.Title != "" {
			g.Title = sheet.Properties.Title
		}
	}

	for _, rd := range sheet.Data[0].RowData {
		var row []string
		if rd != nil {
			row = make([]string, len(rd.Values))
			for i, cell := range rd.Values {
				if cell != nil {
					row[i] = cell.FormattedValue
				}
			}
		}
		g.Rows = append(g.Rows, row)
	}
	return g, nil
}

// BuildBatchUpdate turns cell writes into one updateCells request per cell.
func BuildBatchUpdate(sheetID int64, writes []model.CellWrite) *sheets.BatchUpdateSpreadsheetRequest {
	reqs := make([]*sheets.Request, 0, len(writes))
	for _, w := range writes {
		reqs = append(reqs, &sheets.Request{
			UpdateCells: &sheets.UpdateCellsRequest{
				Rows: []*sheets.RowData{{
					Values: []*sheets.CellData{{
						UserEnteredValue: extendedValue(w.Value),
					}},
				}},
				Fields: "userEnteredValue",
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    int64(w.Row),
					EndRowIndex:      int64(w.Row + 1),
					StartColumnIndex: int64(w.Col),
					EndColumnIndex:   int64(w.Col + 1),
					// Zero indexes are meaningful here and must not be dropped as empty.
					ForceSendFields: []string{"SheetId", "StartRowIndex", "EndRowIndex", "StartColumnIndex", "EndColumnIndex"},
				},
			},
		})
	}
	return &sheets.BatchUpdateSpreadsheetRequest{Requests: reqs}
}

func extendedValue(v model.TypedValue) *sheets.ExtendedValue {
	ev := &sheets.ExtendedValue{}
	switch {
	case v.Number != nil:
		n := *v.Number
		ev.NumberValue = &n
	case v.Bool != nil:
		b := *v.Bool
		ev.BoolValue = &b
	case v.String != nil:
		s := *v.String
		ev.StringValue = &s
	default:
		empty := ""
		ev.StringValue = &empty
	}
	return ev
}

// SheetsLoader builds the Sheets client library on first use and caches it.
// A failed load is not cached, so the next Ensure tries again.
type SheetsLoader struct {
	mu     sync.Mutex
	loaded *SheetsAdapter
	newFn  func(ctx context.Context) (*SheetsAdapter, error)
}

// NewSheetsLoader creates a loader for the tabular client library.
func NewSheetsLoader(client *http.Client, opts ...option.ClientOption) *SheetsLoader {
	return &SheetsLoader{
		newFn: func(ctx context.Context) (*SheetsAdapter, error) {
			return NewSheetsAdapter(ctx, client, opts...)
		},
	}
}

// Ensure implements adapter.SheetsLoader.
func (l *SheetsLoader) Ensure(ctx context.Context) (adapter.Sheets, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded != nil {
		return l.loaded, nil
	}

	type result struct {
		s   *SheetsAdapter
		err error
	}
	done := make(chan result, 1)
	go func() {
		s, err := l.newFn(ctx)
		done <- result{s, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("could not load Sheets API: %w", r.err)
		}
		l.loaded = r.s
		return r.s, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("could not load Sheets API: %w", ctx.Err())
	}
}
