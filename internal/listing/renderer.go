package listing

import (
	"context"
	"sync"

	"github.com/bplmmv/google-drive-toda-live/internal/logging"
	"github.com/bplmmv/google-drive-toda-live/internal/model"
)

// Surface is the on-screen listing container.
type Surface interface {
	// Clear removes every section.
	Clear()

	// Append adds a section at the end.
	Append(sec Section)

	// Replace swaps the section with the same id, appending when absent.
	Replace(sec Section)

	// ShowBreadcrumbs updates the breadcrumb bar.
	ShowBreadcrumbs(crumbs []model.Breadcrumb)

	// ShowError replaces the listing with an error and a retry control.
	ShowError(message string, retry func())

	// SetActive highlights the entry with id and clears any other highlight.
	SetActive(id string)
}

// Renderer applies listings to a Surface.
type Renderer struct {
	surface Surface
	sorter  *Sorter
	log     *logging.Logger

	mu     sync.Mutex
	active string
}

// NewRenderer creates a Renderer.
func NewRenderer(surface Surface, sorter *Sorter, log *logging.Logger) *Renderer {
	if log == nil {
		log = logging.Nop()
	}
	return &Renderer{surface: surface, sorter: sorter, log: log.Component("listing")}
}

// Render partitions, sorts and shows items for fc. At the root the surface is
// rebuilt; elsewhere only the current-folder section is replaced.
func (r *Renderer) Render(fc model.FolderContext, items []model.Item) Section {
	groups := Partition(items)
	r.sorter.Sort(groups.Folders)
	r.sorter.Sort(groups.RichText)
	r.sorter.Sort(groups.Grids)

	sec := Build(fc, groups, r.Active())
	r.log.Debug().
		Str("folderId", fc.CurrentFolderID).
		Int("folders", len(groups.Folders)).
		Int("documents", len(groups.RichText)).
		Int("spreadsheets", len(groups.Grids)).
		Msg("Rendering listing")

	r.surface.ShowBreadcrumbs(fc.Clone().Breadcrumbs)
	if fc.IsRoot() {
		r.surface.Clear()
		r.surface.Append(sec)
	} else {
		r.surface.Replace(sec)
	}
	return sec
}

// RenderSharedDrives shows the shared drives section. An empty list renders nothing.
func (r *Renderer) RenderSharedDrives(drives []model.SharedDrive) {
	if len(drives) == 0 {
		r.log.Debug().Msg("No shared drives found")
		return
	}
	r.surface.Replace(BuildSharedDrives(drives))
}

// SetActive marks the open document. An empty id clears the highlight.
func (r *Renderer) SetActive(id string) {
	r.mu.Lock()
	r.active = id
	r.mu.Unlock()
	r.surface.SetActive(id)
}

// Active returns the highlighted document id.
func (r *Renderer) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// ShowListing implements navigator.Sink.
func (r *Renderer) ShowListing(fc model.FolderContext, items []model.Item) {
	r.Render(fc, items)
}

// ShowSharedDrives implements navigator.Sink.
func (r *Renderer) ShowSharedDrives(drives []model.SharedDrive) {
	r.RenderSharedDrives(drives)
}

// ShowListingError implements navigator.Sink.
func (r *Renderer) ShowListingError(folderID string, err error, retry func(ctx context.Context) error) {
	msg := "Error loading files."
	if err != nil {
		msg += " Details: " + err.Error()
	}
	r.surface.ShowError(msg, func() {
		if err := retry(context.Background()); err != nil {
			r.log.Debug().Err(err).Str("folderId", folderID).Msg("Retry did not complete")
		}
	})
}
