package grid

import (
	"strconv"

	"github.com/Akashdeep-Patra/crate/internal/library"
)

// Kind classifies a grid tile.
type Kind int

// Tile kinds.
const (
	KindProject Kind = iota
	KindFolder
	KindTrack
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindProject:
		return "project"
	case KindFolder:
		return "folder"
	case KindTrack:
		return "track"
	default:
		return "unknown"
	}
}

// Item is one tile of the grid. The set of implementations is closed:
// ProjectItem, FolderItem and TrackItem.
type Item interface {
	ItemID() string
	Kind() Kind
	Label() string
	isItem()
}

// ProjectItem is a project tile. Shared projects are organized through the
// shared-item calls; owned ones are moved.
type ProjectItem struct {
	ID       string
	Project  library.Project
	Shared   bool
	SharedBy string
}

// FolderItem is a folder tile. FolderID is 0 while the folder exists only
// locally; once persisted it equals the backend folder id.
type FolderItem struct {
	ID       string
	Name     string
	FolderID int64
	Items    []library.Project
}

// TrackItem is a shared track tile. Tracks are always shared with the user.
type TrackItem struct {
	ID       string
	Track    library.SharedTrack
	Shared   bool
	SharedBy string
	FolderID int64
}

func (p ProjectItem) ItemID() string { return p.ID }
func (p ProjectItem) Kind() Kind     { return KindProject }
func (p ProjectItem) Label() string  { return p.Project.Name }
func (ProjectItem) isItem()          {}

func (f FolderItem) ItemID() string { return f.ID }
func (f FolderItem) Kind() Kind     { return KindFolder }
func (f FolderItem) Label() string  { return f.Name }
func (FolderItem) isItem()          {}

// Persisted reports whether the folder exists on the backend.
func (f FolderItem) Persisted() bool { return f.FolderID != 0 }

// WithProject returns a copy of the folder holding p as well.
func (f FolderItem) WithProject(p library.Project) FolderItem {
	items := make([]library.Project, 0, len(f.Items)+1)
	items = append(items, f.Items...)
	f.Items = DedupeProjects(append(items, p))
	return f
}

func (t TrackItem) ItemID() string { return t.ID }
func (t TrackItem) Kind() Kind     { return KindTrack }
func (t TrackItem) Label() string  { return t.Track.Title }
func (TrackItem) isItem()          {}

// ── Conversions ─────────────────────────────────────────────────────────────

// ProjectItemID is the tile id of a project.
func ProjectItemID(id int64) string { return strconv.FormatInt(id, 10) }

// FolderItemID is the tile id of a persisted folder.
func FolderItemID(id int64) string { return "folder-" + strconv.FormatInt(id, 10) }

// TrackItemID is the tile id of a shared track.
func TrackItemID(publicID string) string { return "track-" + publicID }

// ProjectToItem wraps a project as a tile.
func ProjectToItem(p library.Project) ProjectItem {
	return ProjectItem{
		ID:       ProjectItemID(p.ID),
		Project:  p,
		Shared:   p.IsShared,
		SharedBy: p.SharedByUsername,
	}
}

// FolderToItem wraps a persisted folder as a tile with no cached contents.
func FolderToItem(f library.Folder) FolderItem {
	return FolderItem{ID: FolderItemID(f.ID), Name: f.Name, FolderID: f.ID}
}

// TrackToItem wraps a shared track as a tile.
func TrackToItem(t library.SharedTrack) TrackItem {
	return TrackItem{
		ID:       TrackItemID(t.PublicID),
		Track:    t,
		Shared:   true,
		SharedBy: t.SharedByUsername,
		FolderID: t.FolderID,
	}
}

// DedupeProjects keeps the first occurrence of each project id.
func DedupeProjects(ps []library.Project) []library.Project {
	seen := make(map[int64]struct{}, len(ps))
	out := make([]library.Project, 0, len(ps))
	for _, p := range ps {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// ── List helpers ────────────────────────────────────────────────────────────

func indexOf(items []Item, id string) int {
	for i, it := range items {
		if it.ItemID() == id {
			return i
		}
	}
	return -1
}

func find(items []Item, id string) (Item, bool) {
	if i := indexOf(items, id); i >= 0 {
		return items[i], true
	}
	return nil, false
}

// replaceSlot returns a copy of items with the tile id swapped for it.
func replaceSlot(items []Item, id string, it Item) []Item {
	out := append([]Item(nil), items...)
	if i := indexOf(out, id); i >= 0 {
		out[i] = it
	}
	return out
}

// removeSlot returns a copy of items without the tile id.
func removeSlot(items []Item, id string) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.ItemID() != id {
			out = append(out, it)
		}
	}
	return out
}

// dedupeItems keeps the first tile for each id.
func dedupeItems(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ItemID()]; ok {
			continue
		}
		seen[it.ItemID()] = struct{}{}
		out = append(out, it)
	}
	return out
}
