package rest

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bplmmv/google-drive-toda-live/internal/adapter"
	"github.com/bplmmv/google-drive-toda-live/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok", TokenType: "Bearer"})
	return NewClient(ts, Options{
		DriveURL:   srv.URL + "/drive/v3",
		UploadURL:  srv.URL + "/upload/drive/v3",
		SheetsURL:  srv.URL + "/v4",
		HTTPClient: srv.Client(),
	}, nil)
}

func TestListChildren(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drive/v3/files", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "'F1' in parents and trashed = false", r.URL.Query().Get("q"))
		assert.Equal(t, "100", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "true", r.URL.Query().Get("includeItemsFromAllDrives"))
		_, _ = w.Write([]byte(`{"files":[{"id":"S1","name":"Budget","mimeType":"application/vnd.google-apps.spreadsheet","parents":["F1"]}]}`))
	})

	items, err := c.ListChildren(context.Background(), "F1", 100)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.KindGrid, items[0].Kind)
	assert.Equal(t, []string{"F1"}, items[0].Parents)
}

func TestProbe_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drive/v3/about", r.URL.Path)
		assert.Equal(t, "user", r.URL.Query().Get("fields"))
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := c.Probe(context.Background())
	assert.ErrorIs(t, err, adapter.ErrUnauthorized)
}

func TestListSharedDrives(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drive/v3/drives", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("pageSize"))
		_, _ = w.Write([]byte(`{"drives":[{"id":"SD1","name":"Team"}]}`))
	})

	drives, err := c.ListSharedDrives(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, []model.SharedDrive{{ID: "SD1", Name: "Team"}}, drives)
}

func TestExportMarkup(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drive/v3/files/D1/export", r.URL.Path)
		assert.Equal(t, "text/html", r.URL.Query().Get("mimeType"))
		_, _ = w.Write([]byte("<p>hi</p>"))
	})

	markup, err := c.ExportMarkup(context.Background(), "D1")
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", markup)
}

func TestReplaceContent_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/upload/drive/v3/files/D1", r.URL.Path)
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))
		assert.Equal(t, "true", r.URL.Query().Get("supportsAllDrives"))

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/related", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])
		meta, err := mr.NextPart()
		require.NoError(t, err)
		var m map[string]string
		require.NoError(t, json.NewDecoder(meta).Decode(&m))
		assert.Equal(t, "Notes", m["name"])
		assert.Equal(t, model.MIMEDocument, m["mimeType"])

		media, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "text/html", media.Header.Get("Content-Type"))
		content, _ := io.ReadAll(media)
		assert.Equal(t, "<p>new</p>", string(content))

		_, _ = w.Write([]byte(`{"id":"D1"}`))
	})

	err := c.ReplaceContent(context.Background(), "D1", "Notes", []byte("<p>new</p>"))
	require.NoError(t, err)
}

func TestGetGrid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/spreadsheets/S1", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("includeGridData"))
		_, _ = w.Write([]byte(`{"spreadsheetId":"S1","sheets":[{"properties":{"sheetId":0,"title":"Sheet1"},"data":[{"rowData":[{"values":[{"formattedValue":"x"}]}]}]}]}`))
	})

	g, err := c.GetGrid(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, "x", g.Value(0, 0))
	assert.Equal(t, "Sheet1", g.Title)
}

func TestGetGrid_Malformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"spreadsheetId":"S1","sheets":[]}`))
	})

	_, err := c.GetGrid(context.Background(), "S1")
	assert.ErrorIs(t, err, adapter.ErrMalformedPayload)
}

func TestBatchUpdateCells(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v4/spreadsheets/S1:batchUpdate", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, 1, strings.Count(string(body), `"updateCells"`))
		assert.Contains(t, string(body), `"numberValue":6`)
		_, _ = w.Write([]byte(`{}`))
	})

	err := c.BatchUpdateCells(context.Background(), "S1", 0, []model.CellWrite{
		{Cell: model.Cell{Row: 0, Col: 0}, Value: model.NumberValue(6)},
	})
	require.NoError(t, err)
}

func TestServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad request"))
	})

	_, err := c.GetMetadata(context.Background(), "X")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
