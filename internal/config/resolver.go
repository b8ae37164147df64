package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Resolver retrieves configuration values by name.
type Resolver interface {
	Lookup(ctx context.Context, name string) (string, error)
}

// EnvResolver reads values from environment variables.
// The name is converted to the variable name by uppercasing it and replacing
// hyphens and dots with underscores ("api-key" -> "API_KEY").
type EnvResolver struct {
	Prefix string
}

// NewEnvResolver returns a Resolver that reads from the process environment.
func NewEnvResolver(prefix string) *EnvResolver {
	return &EnvResolver{Prefix: prefix}
}

// Lookup reads the environment variable derived from name.
func (r *EnvResolver) Lookup(_ context.Context, name string) (string, error) {
	envName := r.Prefix + nameToEnvVar(name)
	val, ok := os.LookupEnv(envName)
	if !ok || val == "" {
		return "", fmt.Errorf("environment variable %q (from %q) is not set: %w", envName, name, ErrNotSet)
	}
	return val, nil
}

// MapResolver reads values from an injected key/value object, such as the
// environment object served to the page.
type MapResolver struct {
	values map[string]string
}

// NewMapResolver returns a Resolver over values. Keys are matched case-insensitively
// in either "api-key" or "API_KEY" form.
func NewMapResolver(values map[string]string) *MapResolver {
	norm := make(map[string]string, len(values))
	for k, v := range values {
		norm[nameToEnvVar(k)] = v
	}
	return &MapResolver{values: norm}
}

// Lookup returns the injected value for name.
func (r *MapResolver) Lookup(_ context.Context, name string) (string, error) {
	val, ok := r.values[nameToEnvVar(name)]
	if !ok || val == "" {
		return "", fmt.Errorf("value %q is not set: %w", name, ErrNotSet)
	}
	return val, nil
}

// nameToEnvVar converts a config name to an environment variable name.
// "google-api-key" -> "GOOGLE_API_KEY"
func nameToEnvVar(name string) string {
	r := strings.NewReplacer("-", "_", ".", "_")
	return strings.ToUpper(r.Replace(name))
}

// Chain tries each Resolver in order and returns the first value found.
type Chain []Resolver

// Lookup returns the first value set in the chain.
func (c Chain) Lookup(ctx context.Context, name string) (string, error) {
	for _, r := range c {
		v, err := r.Lookup(ctx, name)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrNotSet) {
			return "", err
		}
	}
	return "", fmt.Errorf("value %q is not set: %w", name, ErrNotSet)
}
