package adapter

import (
	"context"
)

// SheetsLoader provides the tabular client library, loading it on first use.
type SheetsLoader interface {
	// Ensure returns the loaded library, loading it first if needed.
	Ensure(ctx context.Context) (Sheets, error)
}

// LoadedSheets is a SheetsLoader over an already available implementation.
type LoadedSheets struct {
	Sheets Sheets
}

func (l LoadedSheets) Ensure(context.Context) (Sheets, error) {
	return l.Sheets, nil
}

// Provider groups the adapters bound to the current session token.
type Provider struct {
	Drive Drive

	// Direct is the direct REST implementation of the tabular API.
	Direct Sheets

	// Library is the client library, loaded on first use.
	Library SheetsLoader
}
