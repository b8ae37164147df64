package adapter

import (
	"context"

	"github.com/bplmmv/google-drive-toda-live/internal/model"
)

// Prober checks that the current token is accepted by the remote service.
type Prober interface {
	// Probe returns ErrUnauthorized when the token is rejected.
	Probe(ctx context.Context) error
}

// Lister lists folder contents.
type Lister interface {
	// ListChildren lists non-trashed items whose parent is folderID.
	ListChildren(ctx context.Context, folderID string, pageSize int64) ([]model.Item, error)

	// ListSharedDrives lists the shared drives visible to the user.
	ListSharedDrives(ctx context.Context, pageSize int64) ([]model.SharedDrive, error)
}

// Documents reads and writes rich-text documents and canonical metadata.
type Documents interface {
	// GetMetadata returns id, name and kind as the remote service reports them.
	GetMetadata(ctx context.Context, fileID string) (*model.FileMeta, error)

	// ExportMarkup returns the HTML export of a rich-text document.
	ExportMarkup(ctx context.Context, fileID string) (string, error)

	// ReplaceContent overwrites the document with markup. There is no merge.
	ReplaceContent(ctx context.Context, fileID, name string, markup []byte) error
}

// Drive is the storage listing and document content service.
type Drive interface {
	Prober
	Lister
	Documents
}

// Sheets is the tabular content service.
type Sheets interface {
	// GetGrid returns the first sheet of the spreadsheet with cell data.
	GetGrid(ctx context.Context, spreadsheetID string) (*model.Grid, error)

	// BatchUpdateCells writes each cell with one request in a single batch.
	BatchUpdateCells(ctx context.Context, spreadsheetID string, sheetID int64, writes []model.CellWrite) error
}

// Strategy is a named Sheets implementation; strategies are tried in order.
type Strategy struct {
	Name string
	Sheets
}
