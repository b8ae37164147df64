// Package config loads the structured configuration injected into the page.
package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Names of the injected configuration values.
const (
	KeyAPIKey      = "google-api-key"
	KeyClientID    = "google-client-id"
	KeyScopes      = "google-scopes"
	KeyStorageKey  = "token-storage-key"
	KeyRevokeURL   = "revoke-url"
	KeyDebug       = "debug"
	KeySettleDelay = "settle-delay"
)

// DefaultScopes are the scopes requested at login.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/drive",
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/drive.metadata.readonly",
	"https://www.googleapis.com/auth/drive.appdata",
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/spreadsheets.readonly",
}

const (
	DefaultStorageKey = "toda_google_auth_token"
	DefaultRevokeURL  = "https://oauth2.googleapis.com/revoke"
)

// Config holds everything the page runtime needs.
type Config struct {
	APIKey     string
	ClientID   string
	Scopes     []string
	StorageKey string
	RevokeURL  string

	// TokenLifetime is the client-side validity of a persisted token,
	// independent of the identity provider's own expiry.
	TokenLifetime time.Duration

	SettleDelay          time.Duration
	IdentityPollInterval time.Duration
	IdentityPollMax      int
	GridLibraryTimeout   time.Duration
	NormalizeRedoDelay   time.Duration
	LogoutDelay          time.Duration

	ListPageSize        int64
	SharedDrivePageSize int64
	MinGridRows         int
	MinGridCols         int

	Debug bool
}

// Default returns a Config with every non-secret field set.
func Default() Config {
	return Config{
		Scopes:               append([]string(nil), DefaultScopes...),
		StorageKey:           DefaultStorageKey,
		RevokeURL:            DefaultRevokeURL,
		TokenLifetime:        12 * time.Hour,
		SettleDelay:          500 * time.Millisecond,
		IdentityPollInterval: 100 * time.Millisecond,
		IdentityPollMax:      300,
		GridLibraryTimeout:   5 * time.Second,
		NormalizeRedoDelay:   100 * time.Millisecond,
		LogoutDelay:          time.Second,
		ListPageSize:         100,
		SharedDrivePageSize:  50,
		MinGridRows:          10,
		MinGridCols:          10,
	}
}

// Load builds a Config from the resolver on top of the defaults.
// Absent values keep their defaults; Load does not validate.
func Load(ctx context.Context, r Resolver) (Config, error) {
	cfg := Default()

	str := func(name string, dst *string) error {
		v, err := r.Lookup(ctx, name)
		if errors.Is(err, ErrNotSet) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup %s: %w", name, err)
		}
		*dst = v
		return nil
	}

	for name, dst := range map[string]*string{
		KeyAPIKey:     &cfg.APIKey,
		KeyClientID:   &cfg.ClientID,
		KeyStorageKey: &cfg.StorageKey,
		KeyRevokeURL:  &cfg.RevokeURL,
	} {
		if err := str(name, dst); err != nil {
			return cfg, err
		}
	}

	var scopes, debug, settle string
	if err := str(KeyScopes, &scopes); err != nil {
		return cfg, err
	}
	if scopes != "" {
		cfg.Scopes = strings.Fields(strings.ReplaceAll(scopes, ",", " "))
	}

	if err := str(KeyDebug, &debug); err != nil {
		return cfg, err
	}
	if debug != "" {
		b, err := strconv.ParseBool(debug)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s value %q: %w", KeyDebug, debug, err)
		}
		cfg.Debug = b
	}

	if err := str(KeySettleDelay, &settle); err != nil {
		return cfg, err
	}
	if settle != "" {
		d, err := time.ParseDuration(settle)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s value %q: %w", KeySettleDelay, settle, err)
		}
		cfg.SettleDelay = d
	}

	return cfg, nil
}

// Validate reports fatal configuration errors.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.ClientID == "" {
		return ErrMissingClientID
	}
	return nil
}

// ScopeString returns the scopes joined the way the identity service expects.
func (c Config) ScopeString() string {
	return strings.Join(c.Scopes, " ")
}
