// Package tokenstore persists the bearer credential across page reloads and is
// the only authority on whether a stored token may be used.
package tokenstore

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bplmmv/google-drive-toda-live/internal/logging"
	"github.com/bplmmv/google-drive-toda-live/internal/model"
	"golang.org/x/oauth2"
)

// Storage is durable client-side key/value storage.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// Store reads and writes the credential record under a single key.
type Store struct {
	storage  Storage
	key      string
	lifetime time.Duration
	now      func() time.Time
	log      *logging.Logger

	mu sync.Mutex
}

// New creates a Store. lifetime is the client-enforced validity applied on Save.
func New(storage Storage, key string, lifetime time.Duration, log *logging.Logger) *Store {
	return &Store{
		storage:  storage,
		key:      key,
		lifetime: lifetime,
		now:      time.Now,
		log:      log,
	}
}

// WithClock replaces the time source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Save persists token with an expiry of now + lifetime, ignoring token.Expiry.
func (s *Store) Save(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("no token to save")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := model.Credential{
		Token:     token,
		ExpiresAt: s.now().Add(s.lifetime).UnixMilli(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	if err := s.storage.Set(s.key, string(data)); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}
	s.log.Info().Time("expires", time.UnixMilli(rec.ExpiresAt)).Msg("token saved")
	return nil
}

// Read returns the stored token if it is still valid. An expired, malformed or
// empty record is deleted and reported as absent.
func (s *Store) Read() (*oauth2.Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.load()
	if !ok {
		return nil, false
	}
	if rec.ExpiresAt <= s.now().UnixMilli() {
		s.log.Info().Msg("stored token expired, removing")
		s.remove()
		return nil, false
	}
	return rec.Token, true
}

// Remaining reports how long the stored token stays valid. It does not delete anything.
func (s *Store) Remaining() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.storage.Get(s.key)
	if err != nil || !ok {
		return 0, false
	}
	var rec model.Credential
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return 0, false
	}
	return time.UnixMilli(rec.ExpiresAt).Sub(s.now()), true
}

// Clear deletes the record unconditionally.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove()
}

func (s *Store) load() (model.Credential, bool) {
	var rec model.Credential

	raw, ok, err := s.storage.Get(s.key)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read stored token")
		return rec, false
	}
	if !ok || raw == "" {
		return rec, false
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		s.log.Error().Err(err).Msg("stored token is malformed, removing")
		s.remove()
		return rec, false
	}
	if rec.Token == nil || rec.Token.AccessToken == "" {
		s.log.Warn().Msg("stored token has no access token, removing")
		s.remove()
		return rec, false
	}
	return rec, true
}

func (s *Store) remove() {
	if err := s.storage.Remove(s.key); err != nil {
		s.log.Error().Err(err).Msg("failed to remove stored token")
	}
}

// loggingOutSuffix names the flag stored next to the credential while a
// logout reload is in progress.
const loggingOutSuffix = ".logging_out"

// MarkLoggingOut records that the next page load follows a logout.
func (s *Store) MarkLoggingOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Set(s.key+loggingOutSuffix, "1"); err != nil {
		s.log.Error().Err(err).Msg("failed to record logout")
	}
}

// ConsumeLoggingOut reports whether a logout was recorded and deletes the flag,
// so it is seen by exactly one page load.
func (s *Store) ConsumeLoggingOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok, err := s.storage.Get(s.key + loggingOutSuffix)
	if err != nil || !ok {
		return false
	}
	if err := s.storage.Remove(s.key + loggingOutSuffix); err != nil {
		s.log.Error().Err(err).Msg("failed to remove logout flag")
	}
	return true
}
