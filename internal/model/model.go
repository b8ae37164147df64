package model

import (
	"fmt"

	"golang.org/x/oauth2"
)

const (
	// RootID is the identifier of the user's personal drive root.
	RootID = "root"
	// RootName is the display name of the personal drive root.
	RootName = "My Drive"

	MIMEFolder   = "application/vnd.google-apps.folder"
	MIMEDocument = "application/vnd.google-apps.document"
	MIMEGrid     = "application/vnd.google-apps.spreadsheet"
)

// Kind is the tagged variant of a listed item.
type Kind int

const (
	KindUnsupported Kind = iota
	KindFolder
	KindRichText
	KindGrid
)

// KindFromMIME derives the item kind from a remote MIME type.
func KindFromMIME(mimeType string) Kind {
	switch mimeType {
	case MIMEFolder:
		return KindFolder
	case MIMEDocument:
		return KindRichText
	case MIMEGrid:
		return KindGrid
	default:
		return KindUnsupported
	}
}

func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindRichText:
		return "richtext-doc"
	case KindGrid:
		return "grid-doc"
	default:
		return "unsupported"
	}
}

// IsDocument reports whether items of this kind can be opened in the editor.
func (k Kind) IsDocument() bool {
	return k == KindRichText || k == KindGrid
}

// Credential is the persisted bearer token plus its client-enforced expiry.
// ExpiresAt is a unix timestamp in milliseconds.
type Credential struct {
	Token     *oauth2.Token `json:"token"`
	ExpiresAt int64         `json:"expiresAt"`
}

// SessionState is the process-wide authentication state.
type SessionState struct {
	IsAuthenticated bool
	IsLoggingOut    bool
}

// ConsumeLoggingOut returns the logout guard and resets it.
func (s *SessionState) ConsumeLoggingOut() bool {
	was := s.IsLoggingOut
	s.IsLoggingOut = false
	return was
}

// Breadcrumb is one step of the folder trail.
type Breadcrumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FolderContext is the current folder plus its breadcrumb trail, ordered root to leaf.
type FolderContext struct {
	CurrentFolderID string       `json:"currentFolderId"`
	Breadcrumbs     []Breadcrumb `json:"breadcrumbs"`
}

// RootContext returns the context for the personal drive root.
func RootContext() FolderContext {
	return FolderContext{
		CurrentFolderID: RootID,
		Breadcrumbs:     []Breadcrumb{{ID: RootID, Name: RootName}},
	}
}

// IsRoot reports whether the current folder is the personal drive root.
func (c FolderContext) IsRoot() bool {
	return c.CurrentFolderID == RootID
}

// Parent returns the breadcrumb before the current one.
func (c FolderContext) Parent() (Breadcrumb, bool) {
	if len(c.Breadcrumbs) < 2 {
		return Breadcrumb{}, false
	}
	return c.Breadcrumbs[len(c.Breadcrumbs)-2], true
}

// Validate checks the breadcrumb invariant.
func (c FolderContext) Validate() error {
	if len(c.Breadcrumbs) == 0 {
		return fmt.Errorf("breadcrumbs are empty")
	}
	if last := c.Breadcrumbs[len(c.Breadcrumbs)-1]; last.ID != c.CurrentFolderID {
		return fmt.Errorf("last breadcrumb %q does not match current folder %q", last.ID, c.CurrentFolderID)
	}
	seen := make(map[string]struct{}, len(c.Breadcrumbs))
	for _, b := range c.Breadcrumbs {
		if _, ok := seen[b.ID]; ok {
			return fmt.Errorf("duplicate breadcrumb %q", b.ID)
		}
		seen[b.ID] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy.
func (c FolderContext) Clone() FolderContext {
	crumbs := make([]Breadcrumb, len(c.Breadcrumbs))
	copy(crumbs, c.Breadcrumbs)
	return FolderContext{CurrentFolderID: c.CurrentFolderID, Breadcrumbs: crumbs}
}

// Item is one entry of a folder listing.
type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	MIMEType string   `json:"mimeType"`
	Kind     Kind     `json:"kind"`
	Parents  []string `json:"parents,omitempty"`
}

// SharedDrive is an alternate storage root outside the personal hierarchy.
type SharedDrive struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FileMeta is the canonical metadata of a document.
type FileMeta struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Kind     Kind   `json:"kind"`
}
