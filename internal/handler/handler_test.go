package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bplmmv/google-drive-toda-live/internal/config"
	"github.com/bplmmv/google-drive-toda-live/internal/handler"
	"github.com/bplmmv/google-drive-toda-live/internal/logging"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.APIKey = "api-key"
	cfg.ClientID = "client-id"
	cfg.RevokeURL = "https://internal.example/revoke"
	return cfg
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>page</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.wasm"), []byte("\x00asm"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SECRET=1"), 0o644); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(handler.NewRouter(testConfig(), dir, logging.Nop()))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnvHandler(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + handler.EnvPath)
	if err != nil {
		t.Fatalf("GET env failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Cache-Control"); got != "no-store" {
		t.Errorf("Expected Cache-Control no-store, got %q", got)
	}

	var values map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&values); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if values[config.KeyAPIKey] != "api-key" {
		t.Errorf("Expected api key 'api-key', got '%s'", values[config.KeyAPIKey])
	}
	if values[config.KeyClientID] != "client-id" {
		t.Errorf("Expected client id 'client-id', got '%s'", values[config.KeyClientID])
	}
	if _, ok := values[config.KeyRevokeURL]; ok {
		t.Error("Expected non-public values to be omitted")
	}

	// The served values load back into the same configuration.
	cfg, err := config.Load(context.Background(), config.NewMapResolver(values))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected served config to validate, got %v", err)
	}
}

func TestEnvHandler_MethodNotAllowed(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Post(srv.URL+handler.EnvPath, "application/json", nil)
	if err != nil {
		t.Fatalf("POST env failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}

func TestStatic(t *testing.T) {
	srv := newServer(t)

	tests := []struct {
		name        string
		path        string
		status      int
		contentType string
		body        string
	}{
		{"index", "/", http.StatusOK, "text/html; charset=utf-8", "<html>page</html>"},
		{"wasm", "/main.wasm", http.StatusOK, "application/wasm", "\x00asm"},
		{"dotfile hidden", "/.env", http.StatusNotFound, "", ""},
		{"missing", "/nope.js", http.StatusNotFound, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("GET failed: %v", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, resp.StatusCode)
			}
			if tt.contentType != "" && resp.Header.Get("Content-Type") != tt.contentType {
				t.Errorf("Expected content type %q, got %q", tt.contentType, resp.Header.Get("Content-Type"))
			}
			if tt.body != "" && string(body) != tt.body {
				t.Errorf("Expected body %q, got %q", tt.body, body)
			}
		})
	}
}
