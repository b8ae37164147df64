// Package rest talks to the Drive and Sheets REST endpoints directly with the
// bearer token, without the generated client libraries.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/bplmmv/google-drive-toda-live/internal/adapter"
	"github.com/bplmmv/google-drive-toda-live/internal/adapter/googledrive"
	"github.com/bplmmv/google-drive-toda-live/internal/logging"
	"github.com/bplmmv/google-drive-toda-live/internal/model"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"
)

// Default endpoints.
const (
	DefaultDriveURL  = "https://www.googleapis.com/drive/v3"
	DefaultUploadURL = "https://www.googleapis.com/upload/drive/v3"
	DefaultSheetsURL = "https://sheets.googleapis.com/v4"
)

// Options configures a Client.
type Options struct {
	DriveURL  string
	UploadURL string
	SheetsURL string

	// RetryMax is the number of retries for 5xx and 429 responses.
	RetryMax int

	// HTTPClient is the underlying transport. Defaults to http.DefaultClient's transport.
	HTTPClient *http.Client
}

// Client implements adapter.Drive and adapter.Sheets with direct requests.
type Client struct {
	httpClient *http.Client
	tokens     oauth2.TokenSource
	driveURL   string
	uploadURL  string
	sheetsURL  string
	log        *logging.Logger
}

// NewClient creates a REST client that authorizes every request with a token from ts.
func NewClient(ts oauth2.TokenSource, opts Options, log *logging.Logger) *Client {
	if log == nil {
		log = logging.Nop()
	}

	retryClient := retryablehttp.NewClient()
	if opts.HTTPClient != nil {
		retryClient.HTTPClient = opts.HTTPClient
	}
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = logging.RetryLogger{L: log}

	return &Client{
		httpClient: retryClient.StandardClient(),
		tokens:     ts,
		driveURL:   strings.TrimSuffix(orDefault(opts.DriveURL, DefaultDriveURL), "/"),
		uploadURL:  strings.TrimSuffix(orDefault(opts.UploadURL, DefaultUploadURL), "/"),
		sheetsURL:  strings.TrimSuffix(orDefault(opts.SheetsURL, DefaultSheetsURL), "/"),
		log:        log,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// do sends an authorized request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, rawURL, contentType string, body []byte) ([]byte, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", adapter.ErrUnauthorized, err)
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	tok.SetAuthHeader(req)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if sentinel := adapter.ErrorForStatus(resp.StatusCode); sentinel != nil {
			return nil, fmt.Errorf("%w: %s %s returned %d", sentinel, method, req.URL.Path, resp.StatusCode)
		}
		return nil, fmt.Errorf("%s %s returned %d: %s", method, req.URL.Path, resp.StatusCode, truncate(respBody, 200))
	}
	return respBody, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	body, err := c.do(ctx, http.MethodGet, rawURL, "", nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", adapter.ErrMalformedPayload, err)
	}
	return nil
}

// Probe checks the token against the about endpoint.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, c.driveURL+"/about?fields=user", "", nil)
	if err != nil {
		return fmt.Errorf("token validation failed: %w", err)
	}
	return nil
}

// ListChildren lists non-trashed items in a folder, including shared drive items.
func (c *Client) ListChildren(ctx context.Context, folderID string, pageSize int64) ([]model.Item, error) {
	if folderID == "" {
		folderID = model.RootID
	}
	q := url.Values{}
	q.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", folderID))
	q.Set("pageSize", fmt.Sprint(pageSize))
	q.Set("fields", "files(id, name, mimeType, parents)")
	q.Set("includeItemsFromAllDrives", "true")
	q.Set("supportsAllDrives", "true")

	var list drive.FileList
	if err := c.getJSON(ctx, c.driveURL+"/files?"+q.Encode(), &list); err != nil {
		return nil, fmt.Errorf("unable to list files: %w", err)
	}

	items := make([]model.Item, 0, len(list.Files))
	for _, f := range list.Files {
		items = append(items, model.Item{
			ID:       f.Id,
			Name:     f.Name,
			MIMEType: f.MimeType,
			Kind:     model.KindFromMIME(f.MimeType),
			Parents:  f.Parents,
		})
	}
	return items, nil
}

// ListSharedDrives lists shared drives.
func (c *Client) ListSharedDrives(ctx context.Context, pageSize int64) ([]model.SharedDrive, error) {
	q := url.Values{}
	q.Set("pageSize", fmt.Sprint(pageSize))
	q.Set("fields", "drives(id, name)")

	var list drive.DriveList
	if err := c.getJSON(ctx, c.driveURL+"/drives?"+q.Encode(), &list); err != nil {
		return nil, fmt.Errorf("unable to list shared drives: %w", err)
	}

	drives := make([]model.SharedDrive, 0, len(list.Drives))
	for _, d := range list.Drives {
		drives = append(drives, model.SharedDrive{ID: d.Id, Name: d.Name})
	}
	return drives, nil
}

// GetMetadata retrieves canonical id, name and MIME type.
func (c *Client) GetMetadata(ctx context.Context, fileID string) (*model.FileMeta, error) {
	q := url.Values{}
	q.Set("fields", "id, name, mimeType")
	q.Set("supportsAllDrives", "true")

	var f drive.File
	if err := c.getJSON(ctx, c.driveURL+"/files/"+url.PathEscape(fileID)+"?"+q.Encode(), &f); err != nil {
		return nil, fmt.Errorf("unable to get file metadata: %w", err)
	}
	return &model.FileMeta{
		ID:       f.Id,
		Name:     f.Name,
		MIMEType: f.MimeType,
		Kind:     model.KindFromMIME(f.MimeType),
	}, nil
}

// ExportMarkup exports a rich-text document as HTML.
func (c *Client) ExportMarkup(ctx context.Context, fileID string) (string, error) {
	u := c.driveURL + "/files/" + url.PathEscape(fileID) + "/export?mimeType=" + url.QueryEscape("text/html")
	body, err := c.do(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return "", fmt.Errorf("unable to export document: %w", err)
	}
	return string(body), nil
}

// ReplaceContent overwrites the document with a multipart upload of metadata and markup.
func (c *Client) ReplaceContent(ctx context.Context, fileID, name string, markup []byte) error {
	body, contentType, err := multipartBody(name, markup)
	if err != nil {
		return fmt.Errorf("unable to build upload body: %w", err)
	}

	u := c.uploadURL + "/files/" + url.PathEscape(fileID) + "?uploadType=multipart&supportsAllDrives=true"
	if _, err := c.do(ctx, http.MethodPatch, u, contentType, body); err != nil {
		return fmt.Errorf("unable to update document: %w", err)
	}
	return nil
}

// multipartBody builds a multipart/related body with a JSON metadata part and an HTML media part.
func multipartBody(name string, markup []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	meta, err := json.Marshal(map[string]string{
		"name":     name,
		"mimeType": model.MIMEDocument,
	})
	if err != nil {
		return nil, "", err
	}

	metaPart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return nil, "", err
	}
	if _, err := metaPart.Write(meta); err != nil {
		return nil, "", err
	}

	mediaPart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html"}})
	if err != nil {
		return nil, "", err
	}
	if _, err := mediaPart.Write(markup); err != nil {
		return nil, "", err
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "multipart/related; boundary=" + mw.Boundary(), nil
}

// GetGrid fetches the spreadsheet with grid data and returns its first sheet.
func (c *Client) GetGrid(ctx context.Context, spreadsheetID string) (*model.Grid, error) {
	var ss sheets.Spreadsheet
	u := c.sheetsURL + "/spreadsheets/" + url.PathEscape(spreadsheetID) + "?includeGridData=true"
	if err := c.getJSON(ctx, u, &ss); err != nil {
		return nil, fmt.Errorf("unable to get spreadsheet: %w", err)
	}
	return googledrive.GridFromSpreadsheet(&ss)
}

// BatchUpdateCells writes every cell with its own updateCells request.
func (c *Client) BatchUpdateCells(ctx context.Context, spreadsheetID string, sheetID int64, writes []model.CellWrite) error {
	body, err := json.Marshal(googledrive.BuildBatchUpdate(sheetID, writes))
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	u := c.sheetsURL + "/spreadsheets/" + url.PathEscape(spreadsheetID) + ":batchUpdate"
	if _, err := c.do(ctx, http.MethodPost, u, "application/json", body); err != nil {
		return fmt.Errorf("unable to update spreadsheet: %w", err)
	}
	return nil
}
