package googledrive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bplmmv/google-drive-toda-live/internal/adapter"
	"github.com/bplmmv/google-drive-toda-live/internal/model"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func TestListQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"root", "root", "'root' in parents and trashed = false"},
		{"folder id", "F1", "'F1' in parents and trashed = false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := listQuery(tt.in)
			if got != tt.want {
				t.Errorf("listQuery(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		code int
		want error
	}{
		{"unauthorized", http.StatusUnauthorized, adapter.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, adapter.ErrForbidden},
		{"not found", http.StatusNotFound, adapter.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(&googleapi.Error{Code: tt.code, Message: "boom"})
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	plain := errors.New("network down")
	if got := classify(plain); got != plain {
		t.Errorf("Expected unchanged error, got %v", got)
	}
}

func TestGridFromSpreadsheet(t *testing.T) {
	ss := &sheets.Spreadsheet{
		SpreadsheetId: "S1",
		Sheets: []*sheets.Sheet{{
			Properties: &sheets.SheetProperties{SheetId: 7, Title: "Budget"},
			Data: []*sheets.GridData{{
				RowData: []*sheets.RowData{
					{Values: []*sheets.CellData{{FormattedValue: "a"}, {FormattedValue: "b"}}},
					nil,
					{Values: []*sheets.CellData{nil, {FormattedValue: "c"}}},
				},
			}},
		}},
	}

	g, err := GridFromSpreadsheet(ss)
	if err != nil {
		t.Fatalf("GridFromSpreadsheet failed: %v", err)
	}
	if g.SpreadsheetID != "S1" || g.SheetID != 7 || g.Title != "Budget" {
		t.Errorf("Unexpected grid header: %+v", g)
	}
	if g.UsedRows() != 3 || g.UsedCols() != 2 {
		t.Errorf("Expected used 3x2, got %dx%d", g.UsedRows(), g.UsedCols())
	}
	if got := g.Value(2, 1); got != "c" {
		t.Errorf("Expected c at (2,1), got %q", got)
	}
	if got := g.Value(1, 0); got != "" {
		t.Errorf("Expected empty at (1,0), got %q", got)
	}
}

func TestGridFromSpreadsheet_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   *sheets.Spreadsheet
	}{
		{"nil", nil},
		{"no sheets", &sheets.Spreadsheet{}},
		{"no data", &sheets.Spreadsheet{Sheets: []*sheets.Sheet{{}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GridFromSpreadsheet(tt.in)
			if !errors.Is(err, adapter.ErrMalformedPayload) {
				t.Errorf("Expected ErrMalformedPayload, got %v", err)
			}
		})
	}
}

func TestBuildBatchUpdate(t *testing.T) {
	writes := []model.CellWrite{
		{Cell: model.Cell{Row: 0, Col: 0}, Value: model.NumberValue(6)},
		{Cell: model.Cell{Row: 2, Col: 1}, Value: model.StringValue("hi")},
	}
	req := BuildBatchUpdate(0, writes)
	if len(req.Requests) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(req.Requests))
	}

	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	body := string(raw)
	for _, want := range []string{`"sheetId":0`, `"startRowIndex":0`, `"endRowIndex":1`, `"numberValue":6`, `"stringValue":"hi"`, `"fields":"userEnteredValue"`} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected body to contain %s, got %s", want, body)
		}
	}
}

func newTestDrive(t *testing.T, h http.Handler) *DriveAdapter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	d, err := NewDriveAdapter(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/drive/v3/"))
	if err != nil {
		t.Fatalf("NewDriveAdapter failed: %v", err)
	}
	return d
}

func TestDriveAdapter_ListChildren(t *testing.T) {
	var gotQuery string
	d := newTestDrive(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		if r.URL.Query().Get("supportsAllDrives") != "true" {
			t.Errorf("Expected supportsAllDrives=true, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"files":[{"id":"F1","name":"Reports","mimeType":"application/vnd.google-apps.folder"},{"id":"D1","name":"Notes","mimeType":"application/vnd.google-apps.document"}]}`))
	}))

	items, err := d.ListChildren(context.Background(), "root", 100)
	if err != nil {
		t.Fatalf("ListChildren failed: %v", err)
	}
	if gotQuery != "'root' in parents and trashed = false" {
		t.Errorf("Unexpected query: %q", gotQuery)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].Kind != model.KindFolder || items[1].Kind != model.KindRichText {
		t.Errorf("Unexpected kinds: %v, %v", items[0].Kind, items[1].Kind)
	}
}

func TestDriveAdapter_ProbeUnauthorized(t *testing.T) {
	d := newTestDrive(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	}))

	err := d.Probe(context.Background())
	if !errors.Is(err, adapter.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestSheetsLoader_CachesSuccess(t *testing.T) {
	calls := 0
	l := &SheetsLoader{newFn: func(ctx context.Context) (*SheetsAdapter, error) {
		calls++
		return &SheetsAdapter{}, nil
	}}

	for i := 0; i < 3; i++ {
		if _, err := l.Ensure(context.Background()); err != nil {
			t.Fatalf("Ensure failed: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("Expected 1 load, got %d", calls)
	}
}

func TestSheetsLoader_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	l := &SheetsLoader{newFn: func(ctx context.Context) (*SheetsAdapter, error) {
		<-release
		return &SheetsAdapter{}, nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := l.Ensure(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
