package tokenstore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bplmmv/google-drive-toda-live/internal/logging"
	"golang.org/x/oauth2"
)

const testKey = "toda_google_auth_token"

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func testStore() (*Store, *MemoryStorage, *fakeClock) {
	storage := NewMemoryStorage()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := New(storage, testKey, 12*time.Hour, logging.Nop()).WithClock(clock.Now)
	return s, storage, clock
}

func TestStore_SaveAndRead(t *testing.T) {
	s, storage, clock := testStore()

	token := &oauth2.Token{AccessToken: "access-123", Expiry: clock.t.Add(time.Hour)}
	if err := s.Save(token); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, ok, _ := storage.Get(testKey)
	if !ok {
		t.Fatal("expected a stored record")
	}
	var rec struct {
		Token     map[string]interface{} `json:"token"`
		ExpiresAt int64                  `json:"expiresAt"`
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("stored record is not JSON: %v", err)
	}
	// The provider's one hour expiry is overridden by the twelve hour policy.
	if want := clock.t.Add(12 * time.Hour).UnixMilli(); rec.ExpiresAt != want {
		t.Errorf("expiresAt = %d, want %d", rec.ExpiresAt, want)
	}

	got, ok := s.Read()
	if !ok {
		t.Fatal("expected valid token")
	}
	if got.AccessToken != "access-123" {
		t.Errorf("AccessToken = %q, want access-123", got.AccessToken)
	}
}

func TestStore_ReadFreshness(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		wantOK  bool
	}{
		{"well before expiry", time.Hour, true},
		{"one millisecond before expiry", 12*time.Hour - time.Millisecond, true},
		{"exactly at expiry", 12 * time.Hour, false},
		{"after expiry", 13 * time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, storage, clock := testStore()
			start := clock.t
			if err := s.Save(&oauth2.Token{AccessToken: "a"}); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			clock.t = start.Add(tt.advance)
			_, ok := s.Read()
			if ok != tt.wantOK {
				t.Fatalf("Read() ok = %v, want %v", ok, tt.wantOK)
			}
			_, stored, _ := storage.Get(testKey)
			if stored != tt.wantOK {
				t.Errorf("record present = %v, want %v", stored, tt.wantOK)
			}
		})
	}
}

func TestStore_ReadMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{not-json"},
		{"missing token", `{"expiresAt": 99999999999999}`},
		{"empty access token", `{"token": {"access_token": ""}, "expiresAt": 99999999999999}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, storage, _ := testStore()
			storage.Set(testKey, tt.raw)

			if _, ok := s.Read(); ok {
				t.Fatal("expected malformed record to read as absent")
			}
			if _, stored, _ := storage.Get(testKey); stored {
				t.Error("expected malformed record to be deleted")
			}
		})
	}
}

func TestStore_ReadAbsent(t *testing.T) {
	s, _, _ := testStore()
	if tok, ok := s.Read(); ok || tok != nil {
		t.Errorf("Read() = %v, %v; want nil, false", tok, ok)
	}
}

func TestStore_Clear(t *testing.T) {
	s, storage, _ := testStore()
	s.Save(&oauth2.Token{AccessToken: "a"})

	s.Clear()

	if _, stored, _ := storage.Get(testKey); stored {
		t.Error("expected record to be removed")
	}
	// Clearing twice is harmless.
	s.Clear()
}

func TestStore_SaveNil(t *testing.T) {
	s, _, _ := testStore()
	if err := s.Save(nil); err == nil {
		t.Error("expected error saving nil token")
	}
}

func TestStore_Remaining(t *testing.T) {
	s, _, clock := testStore()
	s.Save(&oauth2.Token{AccessToken: "a"})
	clock.t = clock.t.Add(2 * time.Hour)

	left, ok := s.Remaining()
	if !ok {
		t.Fatal("expected remaining lifetime")
	}
	if left != 10*time.Hour {
		t.Errorf("Remaining() = %v, want 10h", left)
	}
}

func TestStore_LoggingOutFlagIsOneShot(t *testing.T) {
	s, storage, _ := testStore()
	if s.ConsumeLoggingOut() {
		t.Fatal("Expected no logout flag before logout")
	}

	s.MarkLoggingOut()
	if _, stored, _ := storage.Get(testKey + loggingOutSuffix); !stored {
		t.Fatal("Expected logout flag to be stored")
	}

	tests := []struct {
		name     string
		expected bool
	}{
		{"first load after logout", true},
		{"second load", false},
		{"third load", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ConsumeLoggingOut(); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
