// Package navigator keeps the current folder and breadcrumb trail and reloads
// the listing after every move.
package navigator

import (
	"context"
	"errors"
	"sync"

	"github.com/bplmmv/google-drive-toda-live/internal/adapter"
	"github.com/bplmmv/google-drive-toda-live/internal/logging"
	"github.com/bplmmv/google-drive-toda-live/internal/model"
	"github.com/google/uuid"
)

// ErrStaleResponse is returned when a listing completes after a newer navigation.
var ErrStaleResponse = errors.New("stale listing response")

// Sink receives listing results.
type Sink interface {
	// ShowListing renders items for fc.
	ShowListing(fc model.FolderContext, items []model.Item)

	// ShowSharedDrives renders the shared drives section at the root.
	ShowSharedDrives(drives []model.SharedDrive)

	// ShowListingError shows an inline failure with a retry control.
	ShowListingError(folderID string, err error, retry func(ctx context.Context) error)
}

// Options configures a Navigator.
type Options struct {
	PageSize            int64
	SharedDrivePageSize int64

	// OnUnauthorized is called when the remote service rejects the token.
	OnUnauthorized func()
}

// Navigator owns the FolderContext.
type Navigator struct {
	mu  sync.Mutex
	fc  model.FolderContext
	gen uint64

	// renderMu makes the staleness check and the render one step.
	renderMu sync.Mutex

	prober adapter.Prober
	lister adapter.Lister
	sink   Sink
	opts   Options
	log    *logging.Logger
}

// New creates a Navigator positioned at the personal root.
func New(prober adapter.Prober, lister adapter.Lister, sink Sink, opts Options, log *logging.Logger) *Navigator {
	if log == nil {
		log = logging.Nop()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.SharedDrivePageSize <= 0 {
		opts.SharedDrivePageSize = 50
	}
	return &Navigator{
		fc:     model.RootContext(),
		prober: prober,
		lister: lister,
		sink:   sink,
		opts:   opts,
		log:    log.Component("navigator"),
	}
}

// Context returns a copy of the current folder context.
func (n *Navigator) Context() model.FolderContext {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.fc.Clone()
}

// commit applies a transition and returns the new context and its generation.
func (n *Navigator) commit(transition func(model.FolderContext) model.FolderContext) (model.FolderContext, uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fc = transition(n.fc)
	n.gen++
	return n.fc.Clone(), n.gen
}

func (n *Navigator) isCurrent(gen uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.gen == gen
}

// Descend enters a child folder and loads it.
func (n *Navigator) Descend(ctx context.Context, id, name string) error {
	fc, gen := n.commit(func(fc model.FolderContext) model.FolderContext {
		return Descend(fc, id, name)
	})
	return n.load(ctx, fc, gen)
}

// Ascend moves to the parent folder and loads it.
func (n *Navigator) Ascend(ctx context.Context) error {
	fc, gen := n.commit(Ascend)
	return n.load(ctx, fc, gen)
}

// JumpTo moves to a breadcrumb and loads it. An id not on the trail changes
// nothing and fetches nothing.
func (n *Navigator) JumpTo(ctx context.Context, id string) error {
	n.mu.Lock()
	onTrail := indexOf(n.fc, id) >= 0
	n.mu.Unlock()
	if !onTrail {
		n.log.Debug().Str("folder", id).Msg("Breadcrumb not on trail, ignoring")
		return nil
	}

	fc, gen := n.commit(func(fc model.FolderContext) model.FolderContext {
		return JumpTo(fc, id)
	})
	return n.load(ctx, fc, gen)
}

// EnterSharedDrive switches to a shared drive root and loads it.
func (n *Navigator) EnterSharedDrive(ctx context.Context, id, name string) error {
	fc, gen := n.commit(func(model.FolderContext) model.FolderContext {
		return EnterSharedDrive(id, name)
	})
	return n.load(ctx, fc, gen)
}

// Home resets to the personal root and loads it.
func (n *Navigator) Home(ctx context.Context) error {
	fc, gen := n.commit(func(model.FolderContext) model.FolderContext {
		return model.RootContext()
	})
	return n.load(ctx, fc, gen)
}

// Refresh reloads the current folder.
func (n *Navigator) Refresh(ctx context.Context) error {
	fc, gen := n.commit(func(fc model.FolderContext) model.FolderContext { return fc })
	return n.load(ctx, fc, gen)
}

// load probes the token, lists fc and renders the result if it is still current.
func (n *Navigator) load(ctx context.Context, fc model.FolderContext, gen uint64) error {
	log := n.log.Debug().
		Str("folderId", fc.CurrentFolderID).
		Uint64("generation", gen).
		Str("requestId", uuid.NewString())
	log.Msg("Loading folder")

	if err := n.prober.Probe(ctx); err != nil {
		if errors.Is(err, adapter.ErrUnauthorized) {
			n.log.Warn().Err(err).Msg("Token rejected, signing out")
			if n.opts.OnUnauthorized != nil {
				n.opts.OnUnauthorized()
			}
			return err
		}
		n.log.Warn().Err(err).Msg("Token validation probe failed, listing anyway")
	}

	items, err := n.lister.ListChildren(ctx, fc.CurrentFolderID, n.opts.PageSize)

	n.renderMu.Lock()
	if !n.isCurrent(gen) {
		n.renderMu.Unlock()
		n.log.Debug().Str("folderId", fc.CurrentFolderID).Msg("Discarding stale listing")
		return ErrStaleResponse
	}
	if err != nil {
		n.renderMu.Unlock()
		if errors.Is(err, adapter.ErrUnauthorized) && n.opts.OnUnauthorized != nil {
			n.log.Warn().Err(err).Msg("Token rejected while listing, signing out")
			n.opts.OnUnauthorized()
			return err
		}
		n.log.Error().Err(err).Str("folderId", fc.CurrentFolderID).Msg("Listing failed")
		n.sink.ShowListingError(fc.CurrentFolderID, err, n.Refresh)
		return err
	}
	n.sink.ShowListing(fc, items)
	n.renderMu.Unlock()

	if fc.IsRoot() {
		n.loadSharedDrives(ctx, gen)
	}
	return nil
}

// loadSharedDrives renders shared drives; failures are only logged.
func (n *Navigator) loadSharedDrives(ctx context.Context, gen uint64) {
	drives, err := n.lister.ListSharedDrives(ctx, n.opts.SharedDrivePageSize)
	if err != nil {
		n.log.Warn().Err(err).Msg("Failed to load shared drives")
		return
	}

	n.renderMu.Lock()
	defer n.renderMu.Unlock()
	if !n.isCurrent(gen) {
		return
	}
	n.sink.ShowSharedDrives(drives)
}
