// Package handler serves the page and its injected configuration during local development.
package handler

import (
	"encoding/json"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/bplmmv/google-drive-toda-live/internal/config"
	"github.com/bplmmv/google-drive-toda-live/internal/logging"
)

// EnvPath is where the page fetches its configuration.
const EnvPath = "/env.json"

func init() {
	// Browsers refuse to stream-compile wasm served with another type.
	_ = mime.AddExtensionType(".wasm", "application/wasm")
}

// EnvHandler serves the public configuration subset as JSON.
type EnvHandler struct {
	values map[string]string
	log    *logging.Logger
}

// NewEnvHandler creates an EnvHandler for cfg. Only config.Public values are served.
func NewEnvHandler(cfg config.Config, log *logging.Logger) *EnvHandler {
	if log == nil {
		log = logging.Nop()
	}
	return &EnvHandler{values: config.Public(cfg), log: log.Component("handler")}
}

func (h *EnvHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := json.Marshal(h.values)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal env")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		w.Write(body)
	}
}

// NewRouter serves env.json and the static page directory.
func NewRouter(cfg config.Config, staticDir string, log *logging.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(EnvPath, NewEnvHandler(cfg, log))
	mux.Handle("/", Static(staticDir))
	return logRequests(mux, log)
}

// Static serves files from dir. Dotfiles are hidden and the page itself is never cached.
func Static(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		for _, part := range strings.Split(clean, "/") {
			if strings.HasPrefix(part, ".") {
				http.NotFound(w, r)
				return
			}
		}
		if clean == "/" || strings.HasSuffix(clean, ".html") {
			w.Header().Set("Cache-Control", "no-cache")
		}
		files.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler, log *logging.Logger) http.Handler {
	if log == nil {
		log = logging.Nop()
	}
	log = log.Component("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Int("status", rec.status).Msg("Request")
	})
}
