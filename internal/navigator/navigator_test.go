package navigator

import (
	"context"
	"errors"
	"math/rand"
	"runtime"
	"sync"
	"testing"

	"github.com/bplmmv/google-drive-toda-live/internal/adapter"
	"github.com/bplmmv/google-drive-toda-live/internal/adapter/memory"
	"github.com/bplmmv/google-drive-toda-live/internal/model"
)

type recordingSink struct {
	mu       sync.Mutex
	listings []model.FolderContext
	drives   [][]model.SharedDrive
	errs     []string
	retry    func(ctx context.Context) error
}

func (s *recordingSink) ShowListing(fc model.FolderContext, items []model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = append(s.listings, fc)
}

func (s *recordingSink) ShowSharedDrives(drives []model.SharedDrive) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drives = append(s.drives, drives)
}

func (s *recordingSink) ShowListingError(folderID string, err error, retry func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, folderID)
	s.retry = retry
}

func (s *recordingSink) last() model.FolderContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listings[len(s.listings)-1]
}

func TestTransitions_Scenario(t *testing.T) {
	fc := model.RootContext()
	fc = Descend(fc, "F1", "Reports")
	fc = JumpTo(fc, model.RootID)

	if fc.CurrentFolderID != model.RootID {
		t.Errorf("Expected current folder root, got %s", fc.CurrentFolderID)
	}
	if len(fc.Breadcrumbs) != 1 || fc.Breadcrumbs[0] != (model.Breadcrumb{ID: "root", Name: "My Drive"}) {
		t.Errorf("Expected [{root My Drive}], got %v", fc.Breadcrumbs)
	}
}

func TestTransitions(t *testing.T) {
	base := Descend(Descend(model.RootContext(), "A", "a"), "B", "b")

	tests := []struct {
		name    string
		got     model.FolderContext
		current string
		depth   int
	}{
		{"ascend pops one", Ascend(base), "A", 2},
		{"ascend at root is a no-op", Ascend(model.RootContext()), "root", 1},
		{"jump to unknown id is a no-op", JumpTo(base, "Z"), "B", 3},
		{"jump to middle truncates", JumpTo(base, "A"), "A", 2},
		{"descend into trail member truncates", Descend(base, "A", "a"), "A", 2},
		{"shared drive resets trail", EnterSharedDrive("SD", "Team"), "SD", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.CurrentFolderID != tt.current {
				t.Errorf("Expected current %s, got %s", tt.current, tt.got.CurrentFolderID)
			}
			if len(tt.got.Breadcrumbs) != tt.depth {
				t.Errorf("Expected depth %d, got %d", tt.depth, len(tt.got.Breadcrumbs))
			}
			if err := tt.got.Validate(); err != nil {
				t.Errorf("Invalid context: %v", err)
			}
		})
	}

	if len(base.Breadcrumbs) != 3 {
		t.Errorf("Transitions must not mutate their input, got %v", base.Breadcrumbs)
	}
}

func TestTransitions_BreadcrumbInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	ids := []string{"root", "A", "B", "C", "D", "SD"}
	fc := model.RootContext()

	for i := 0; i < 2000; i++ {
		id := ids[r.Intn(len(ids))]
		switch r.Intn(4) {
		case 0:
			fc = Descend(fc, id, id)
		case 1:
			fc = Ascend(fc)
		case 2:
			fc = JumpTo(fc, id)
		case 3:
			fc = EnterSharedDrive(id, id)
		}
		if err := fc.Validate(); err != nil {
			t.Fatalf("Step %d broke the invariant: %v (%+v)", i, err, fc)
		}
	}
}

func TestNavigator_LoadsAndRendersSharedDrivesAtRoot(t *testing.T) {
	m := memory.New()
	f1 := m.AddFolder("Reports", "")
	m.AddSharedDrive("Team")
	sink := &recordingSink{}
	n := New(m, m, sink, Options{}, nil)
	ctx := context.Background()

	if err := n.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(sink.drives) != 1 {
		t.Fatalf("Expected shared drives at root, got %d renders", len(sink.drives))
	}

	if err := n.Descend(ctx, f1, "Reports"); err != nil {
		t.Fatalf("Descend failed: %v", err)
	}
	if len(sink.drives) != 1 {
		t.Errorf("Expected no shared drives fetch below root, got %d renders", len(sink.drives))
	}
	if got := sink.last().CurrentFolderID; got != f1 {
		t.Errorf("Expected listing for %s, got %s", f1, got)
	}
}

func TestNavigator_JumpToUnknownIsNoOp(t *testing.T) {
	m := memory.New()
	f1 := m.AddFolder("Reports", "")
	sink := &recordingSink{}
	n := New(m, m, sink, Options{}, nil)
	ctx := context.Background()

	if err := n.Descend(ctx, f1, "Reports"); err != nil {
		t.Fatalf("Descend failed: %v", err)
	}
	lists, renders := m.Calls(memory.OpList), len(sink.listings)

	if err := n.JumpTo(ctx, "not-on-trail"); err != nil {
		t.Fatalf("JumpTo failed: %v", err)
	}
	if got := m.Calls(memory.OpList); got != lists {
		t.Errorf("Expected %d listings, got %d", lists, got)
	}
	if got := len(sink.listings); got != renders {
		t.Errorf("Expected %d renders, got %d", renders, got)
	}
	if got := n.Context().CurrentFolderID; got != f1 {
		t.Errorf("Expected context to stay on %s, got %s", f1, got)
	}
}

func TestNavigator_SharedDriveErrorsAreSwallowed(t *testing.T) {
	m := memory.New()
	m.SetError(memory.OpSharedDrive, errors.New("boom"))
	sink := &recordingSink{}
	n := New(m, m, sink, Options{}, nil)

	if err := n.Refresh(context.Background()); err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	if len(sink.errs) != 0 || len(sink.drives) != 0 {
		t.Errorf("Expected silent failure, got errs=%v drives=%v", sink.errs, sink.drives)
	}
}

func TestNavigator_ListingErrorKeepsContextAndRetries(t *testing.T) {
	m := memory.New()
	f1 := m.AddFolder("Reports", "")
	sink := &recordingSink{}
	n := New(m, m, sink, Options{}, nil)
	ctx := context.Background()

	m.SetError(memory.OpList, errors.New("network down"))
	if err := n.Descend(ctx, f1, "Reports"); err == nil {
		t.Fatal("Expected listing error")
	}
	if n.Context().CurrentFolderID != f1 {
		t.Errorf("Expected context to stay on %s, got %s", f1, n.Context().CurrentFolderID)
	}
	if len(sink.errs) != 1 || sink.errs[0] != f1 {
		t.Fatalf("Expected one inline error for %s, got %v", f1, sink.errs)
	}

	m.SetError(memory.OpList, nil)
	if err := sink.retry(ctx); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if got := sink.last().CurrentFolderID; got != f1 {
		t.Errorf("Expected retry to list %s, got %s", f1, got)
	}
}

func TestNavigator_Unauthorized(t *testing.T) {
	m := memory.New()
	m.SetError(memory.OpProbe, adapter.ErrUnauthorized)
	expired := false
	sink := &recordingSink{}
	n := New(m, m, sink, Options{OnUnauthorized: func() { expired = true }}, nil)

	err := n.Refresh(context.Background())
	if !errors.Is(err, adapter.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
	if !expired {
		t.Error("Expected OnUnauthorized to be called")
	}
	if m.Calls(memory.OpList) != 0 {
		t.Errorf("Expected no listing after rejected token, got %d", m.Calls(memory.OpList))
	}
}

func TestNavigator_ProbeTransportErrorDoesNotBlock(t *testing.T) {
	m := memory.New()
	m.SetError(memory.OpProbe, errors.New("offline"))
	sink := &recordingSink{}
	n := New(m, m, sink, Options{}, nil)

	if err := n.Refresh(context.Background()); err != nil {
		t.Fatalf("Expected listing despite probe error, got %v", err)
	}
	if len(sink.listings) != 1 {
		t.Errorf("Expected one listing, got %d", len(sink.listings))
	}
}

// gatedLister blocks ListChildren for gated folders until released.
type gatedLister struct {
	*memory.Adapter
	gates map[string]chan struct{}
}

func (g *gatedLister) ListChildren(ctx context.Context, folderID string, pageSize int64) ([]model.Item, error) {
	if gate, ok := g.gates[folderID]; ok {
		<-gate
	}
	return g.Adapter.ListChildren(ctx, folderID, pageSize)
}

func TestNavigator_DiscardsStaleResponse(t *testing.T) {
	m := memory.New()
	f1 := m.AddFolder("Reports", "")
	gate := make(chan struct{})
	lister := &gatedLister{Adapter: m, gates: map[string]chan struct{}{f1: gate}}
	sink := &recordingSink{}
	n := New(m, lister, sink, Options{}, nil)
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() { slow <- n.Descend(ctx, f1, "Reports") }()

	// Wait until the slow request has committed its navigation.
	for n.Context().CurrentFolderID != f1 {
		runtime.Gosched()
	}

	if err := n.JumpTo(ctx, model.RootID); err != nil {
		t.Fatalf("JumpTo failed: %v", err)
	}
	close(gate)

	if err := <-slow; !errors.Is(err, ErrStaleResponse) {
		t.Errorf("Expected ErrStaleResponse, got %v", err)
	}
	for _, fc := range sink.listings {
		if fc.CurrentFolderID == f1 {
			t.Errorf("Stale listing for %s was rendered", f1)
		}
	}
	if got := sink.last().CurrentFolderID; got != model.RootID {
		t.Errorf("Expected root listing last, got %s", got)
	}
}
