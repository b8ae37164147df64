package navigator

import (
	"github.com/bplmmv/google-drive-toda-live/internal/model"
)

// Descend enters a child folder. Entering a folder already on the trail
// truncates to it instead, keeping breadcrumb ids unique.
func Descend(fc model.FolderContext, id, name string) model.FolderContext {
	if i := indexOf(fc, id); i >= 0 {
		return truncate(fc, i)
	}
	next := fc.Clone()
	next.Breadcrumbs = append(next.Breadcrumbs, model.Breadcrumb{ID: id, Name: name})
	next.CurrentFolderID = id
	return next
}

// Ascend moves to the parent folder. At the top of the trail it is a no-op.
func Ascend(fc model.FolderContext) model.FolderContext {
	if len(fc.Breadcrumbs) <= 1 {
		return fc.Clone()
	}
	return truncate(fc, len(fc.Breadcrumbs)-2)
}

// JumpTo truncates the trail at id. An id not on the trail is a no-op.
func JumpTo(fc model.FolderContext, id string) model.FolderContext {
	i := indexOf(fc, id)
	if i < 0 {
		return fc.Clone()
	}
	return truncate(fc, i)
}

// EnterSharedDrive resets the trail to the personal root followed by the drive.
func EnterSharedDrive(id, name string) model.FolderContext {
	fc := model.RootContext()
	if id == model.RootID {
		return fc
	}
	fc.Breadcrumbs = append(fc.Breadcrumbs, model.Breadcrumb{ID: id, Name: name})
	fc.CurrentFolderID = id
	return fc
}

func indexOf(fc model.FolderContext, id string) int {
	for i, b := range fc.Breadcrumbs {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func truncate(fc model.FolderContext, i int) model.FolderContext {
	crumbs := make([]model.Breadcrumb, i+1)
	copy(crumbs, fc.Breadcrumbs[:i+1])
	return model.FolderContext{CurrentFolderID: crumbs[i].ID, Breadcrumbs: crumbs}
}
