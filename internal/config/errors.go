package config

import "errors"

var (
	// ErrNotSet is returned by a Resolver when a value is absent.
	ErrNotSet = errors.New("config value not set")

	// ErrMissingAPIKey is a fatal configuration error.
	ErrMissingAPIKey = errors.New("API key is missing")

	// ErrMissingClientID is a fatal configuration error.
	ErrMissingClientID = errors.New("OAuth client ID is missing")
)
