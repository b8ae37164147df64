package googledrive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bplmmv/google-drive-toda-live/internal/adapter"
	"github.com/bplmmv/google-drive-toda-live/internal/model"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	listFields     = "files(id, name, mimeType, parents)"
	drivesFields   = "drives(id, name)"
	metadataFields = "id, name, mimeType"
)

// DriveAdapter implements adapter.Drive with the Drive client library.
type DriveAdapter struct {
	service *drive.Service
}

// NewDriveAdapter creates a new DriveAdapter.
// client should be an authenticated http.Client that reads the current token on every request.
func NewDriveAdapter(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*DriveAdapter, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}
	return &DriveAdapter{service: srv}, nil
}

// listQuery builds the children query for a folder.
func listQuery(folderID string) string {
	return fmt.Sprintf("'%s' in parents and trashed = false", folderID)
}

// Probe checks the token with a minimal request.
func (d *DriveAdapter) Probe(ctx context.Context) error {
	if _, err := d.service.About.Get().Fields("user").Context(ctx).Do(); err != nil {
		return fmt.Errorf("token validation failed: %w", classify(err))
	}
	return nil
}

// ListChildren lists non-trashed items in a folder, including shared drive items.
func (d *DriveAdapter) ListChildren(ctx context.Context, folderID string, pageSize int64) ([]model.Item, error) {
	if folderID == "" {
		folderID = model.RootID
	}
	r, err := d.service.Files.List().
		Q(listQuery(folderID)).
		PageSize(pageSize).
		Fields(googleapi.Field(listFields)).
		IncludeItemsFromAllDrives(true).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list files: %w", classify(err))
	}

	items := make([]model.Item, 0, len(r.Files))
	for _, f := range r.Files {
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
func (d *DriveAdapter) ListSharedDrives(ctx context.Context, pageSize int64) ([]model.SharedDrive, error) {
	r, err := d.service.Drives.List().
		PageSize(pageSize).
		Fields(googleapi.Field(drivesFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list shared drives: %w", classify(err))
	}

	drives := make([]model.SharedDrive, 0, len(r.Drives))
	for _, dr := range r.Drives {
		drives = append(drives, model.SharedDrive{ID: dr.Id, Name: dr.Name})
	}
	return drives, nil
}

// GetMetadata retrieves canonical id, name and MIME type.
func (d *DriveAdapter) GetMetadata(ctx context.Context, fileID string) (*model.FileMeta, error) {
	f, err := d.service.Files.Get(fileID).
		SupportsAllDrives(true).
		Fields(metadataFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to get file metadata: %w", classify(err))
	}
	return &model.FileMeta{
		ID:       f.Id,
		Name:     f.Name,
		MIMEType: f.MimeType,
		Kind:     model.KindFromMIME(f.MimeType),
	}, nil
}

// ExportMarkup exports a rich-text document as HTML.
func (d *DriveAdapter) ExportMarkup(ctx context.Context, fileID string) (string, error) {
	resp, err := d.service.Files.Export(fileID, "text/html").Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("unable to export document: %w", classify(err))
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("unable to read exported document: %w", err)
	}
	return string(content), nil
}

// ReplaceContent uploads markup as the full new content of the document.
func (d *DriveAdapter) ReplaceContent(ctx context.Context, fileID, name string, markup []byte) error {
	f := &drive.File{Name: name}
	_, err := d.service.Files.Update(fileID, f).
		Media(bytes.NewReader(markup), googleapi.ContentType("text/html")).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to update document: %w", classify(err))
	}
	return nil
}

// classify attaches the adapter sentinel matching a googleapi.Error status.
func classify(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		if sentinel := adapter.ErrorForStatus(gErr.Code); sentinel != nil {
			return fmt.Errorf("%w: %v", sentinel, err)
		}
	}
	return err
}
