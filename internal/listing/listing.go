// Package listing turns a fetched folder listing into the sections shown on screen.
package listing

import (
	"sync"

	"github.com/bplmmv/google-drive-toda-live/internal/model"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Section ids on the listing surface.
const (
	CurrentFolderSection = "current-folder"
	SharedDrivesSection  = "shared-drives"
)

// EmptyMessage is shown when a folder has no supported items.
const EmptyMessage = "No files or folders in this location"

// Action is what activating an entry does.
type Action int

const (
	ActionDescend Action = iota
	ActionOpen
	ActionAscend
	ActionEnterDrive
)

// DragPayload travels with a dragged document to the drop zone.
type DragPayload struct {
	ID   string `json:"id"`
	Kind string `json:"type"`
}

// Entry is one clickable row.
type Entry struct {
	ID        string
	Name      string
	Kind      model.Kind
	Action    Action
	Draggable bool
	Drag      *DragPayload
	Active    bool
}

// Group is a titled run of entries of one kind.
type Group struct {
	Title   string
	Kind    model.Kind
	Entries []Entry
}

// Section is a block of the listing surface, replaced as a whole.
type Section struct {
	ID     string
	Title  string
	Back   *Entry
	Groups []Group
	Empty  bool
}

// Groups holds the supported items of a listing, split by kind.
type Groups struct {
	Folders  []model.Item
	RichText []model.Item
	Grids    []model.Item
}

// Len returns the number of supported items.
func (g Groups) Len() int {
	return len(g.Folders) + len(g.RichText) + len(g.Grids)
}

// Partition splits items by kind and drops unsupported ones.
func Partition(items []model.Item) Groups {
	var g Groups
	for _, it := range items {
		switch it.Kind {
		case model.KindFolder:
			g.Folders = append(g.Folders, it)
		case model.KindRichText:
			g.RichText = append(g.RichText, it)
		case model.KindGrid:
			g.Grids = append(g.Grids, it)
		}
	}
	return g
}

// Sorter orders items by name using locale-aware collation.
type Sorter struct {
	mu sync.Mutex
	c  *collate.Collator
}

// NewSorter creates a Sorter for a language tag.
func NewSorter(tag language.Tag) *Sorter {
	return &Sorter{c: collate.New(tag)}
}

// Sort orders items by name in place.
func (s *Sorter) Sort(items []model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Sort(byName(items))
}

type byName []model.Item

func (b byName) Len() int           { return len(b) }
func (b byName) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }
func (b byName) Bytes(i int) []byte { return []byte(b[i].Name) }

// Build creates the current-folder section for fc.
func Build(fc model.FolderContext, groups Groups, activeID string) Section {
	sec := Section{ID: CurrentFolderSection}
	if len(fc.Breadcrumbs) > 0 {
		sec.Title = fc.Breadcrumbs[len(fc.Breadcrumbs)-1].Name
	}

	if parent, ok := fc.Parent(); ok && !fc.IsRoot() {
		sec.Back = &Entry{
			ID:     parent.ID,
			Name:   "Back to " + parent.Name,
			Kind:   model.KindFolder,
			Action: ActionAscend,
		}
	}

	add := func(title string, kind model.Kind, items []model.Item) {
		if len(items) == 0 {
			return
		}
		grp := Group{Title: title, Kind: kind}
		for _, it := range items {
			grp.Entries = append(grp.Entries, entryFor(it, activeID))
		}
		sec.Groups = append(sec.Groups, grp)
	}
	add("Folders", model.KindFolder, groups.Folders)
	add("Documents", model.KindRichText, groups.RichText)
	add("Spreadsheets", model.KindGrid, groups.Grids)

	sec.Empty = groups.Len() == 0
	return sec
}

func entryFor(it model.Item, activeID string) Entry {
	e := Entry{ID: it.ID, Name: it.Name, Kind: it.Kind}
	if it.Kind == model.KindFolder {
		e.Action = ActionDescend
		return e
	}
	e.Action = ActionOpen
	e.Draggable = true
	e.Drag = &DragPayload{ID: it.ID, Kind: dragKind(it.Kind)}
	e.Active = it.ID == activeID
	return e
}

func dragKind(k model.Kind) string {
	if k == model.KindGrid {
		return "sheet"
	}
	return "doc"
}

// BuildSharedDrives creates the shared drives section.
func BuildSharedDrives(drives []model.SharedDrive) Section {
	sec := Section{ID: SharedDrivesSection, Title: "Shared Drives"}
	grp := Group{Title: "Shared Drives", Kind: model.KindFolder}
	for _, d := range drives {
		grp.Entries = append(grp.Entries, Entry{
			ID:     d.ID,
			Name:   d.Name,
			Kind:   model.KindFolder,
			Action: ActionEnterDrive,
		})
	}
	sec.Groups = []Group{grp}
	return sec
}
