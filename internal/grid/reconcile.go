package grid

import (
	"github.com/Akashdeep-Patra/crate/internal/library"
)

// knownIDs is the id snapshot taken at each reconciliation.
type knownIDs struct {
	projects map[string]struct{}
	folders  map[int64]struct{}
}

// Result is the outcome of one reconciliation.
type Result struct {
	Items       []Item
	NewFolders  []string
	NewProjects []string
}

// Reconciler merges authoritative snapshots into a locally edited list.
// Items marked pending survive their absence from a snapshot until a later
// snapshot contains them. A Reconciler is not safe for concurrent use.
type Reconciler struct {
	scope           int64
	last            *knownIDs
	pendingProjects map[string]struct{}
	pendingFolders  map[int64]struct{}
}

// NewReconciler creates a reconciler for one folder scope (0 = root).
func NewReconciler(scope int64) *Reconciler {
	return &Reconciler{
		scope:           scope,
		pendingProjects: make(map[string]struct{}),
		pendingFolders:  make(map[int64]struct{}),
	}
}

// MarkPendingProject keeps a project tile alive until a snapshot shows it.
func (r *Reconciler) MarkPendingProject(itemID string) { r.pendingProjects[itemID] = struct{}{} }

// MarkPendingFolder keeps a folder tile alive until a snapshot shows it.
func (r *Reconciler) MarkPendingFolder(folderID int64) { r.pendingFolders[folderID] = struct{}{} }

// UnmarkPendingProject drops a pending mark.
func (r *Reconciler) UnmarkPendingProject(itemID string) { delete(r.pendingProjects, itemID) }

// UnmarkPendingFolder drops a pending mark.
func (r *Reconciler) UnmarkPendingFolder(folderID int64) { delete(r.pendingFolders, folderID) }

// PendingProject reports whether a project tile is pending.
func (r *Reconciler) PendingProject(itemID string) bool {
	_, ok := r.pendingProjects[itemID]
	return ok
}

// Bootstrapped reports whether a snapshot has been reconciled yet.
func (r *Reconciler) Bootstrapped() bool { return r.last != nil }

// Reconcile produces the next list from the current one and a snapshot.
// It never fails; anything it cannot match is dropped.
func (r *Reconciler) Reconcile(prev []Item, in library.Snapshot) Result {
	tracks := library.TracksInScope(in.SharedTracks, r.scope)
	incoming := knownIDs{
		projects: make(map[string]struct{}, len(in.Projects)),
		folders:  make(map[int64]struct{}, len(in.Folders)),
	}
	for _, p := range in.Projects {
		incoming.projects[ProjectItemID(p.ID)] = struct{}{}
	}
	for _, f := range in.Folders {
		incoming.folders[f.ID] = struct{}{}
	}

	if r.last == nil && (len(prev) == 0 || sameIDs(prev, incoming, tracks)) {
		r.last = &incoming
		return Result{Items: build(in.Folders, in.Projects, tracks)}
	}
	r.last = &incoming
	return r.merge(prev, in, tracks)
}

// build lays a snapshot out fresh: folders, then projects, then tracks.
func build(folders []library.Folder, projects []library.Project, tracks []library.SharedTrack) []Item {
	out := make([]Item, 0, len(folders)+len(projects)+len(tracks))
	for _, f := range folders {
		out = append(out, FolderToItem(f))
	}
	for _, p := range projects {
		out = append(out, ProjectToItem(p))
	}
	for _, t := range tracks {
		out = append(out, TrackToItem(t))
	}
	return dedupeItems(out)
}

// sameIDs reports whether the local list holds exactly the incoming
// projects, persisted folders and in-scope tracks.
func sameIDs(prev []Item, in knownIDs, tracks []library.SharedTrack) bool {
	projects := make(map[string]struct{})
	folders := make(map[int64]struct{})
	trackIDs := make(map[string]struct{})
	for _, it := range prev {
		switch it := it.(type) {
		case ProjectItem:
			projects[it.ID] = struct{}{}
		case TrackItem:
			trackIDs[it.Track.PublicID] = struct{}{}
		case FolderItem:
			if it.Persisted() {
				folders[it.FolderID] = struct{}{}
			}
		}
	}
	incomingTracks := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		incomingTracks[t.PublicID] = struct{}{}
	}
	return sameKeys(projects, in.projects) && sameKeys(folders, in.folders) && sameKeys(trackIDs, incomingTracks)
}

func sameKeys[K comparable](a, b map[K]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func (r *Reconciler) merge(prev []Item, in library.Snapshot, tracks []library.SharedTrack) Result {
	projectMap := make(map[string]library.Project, len(in.Projects))
	for _, p := range in.Projects {
		projectMap[ProjectItemID(p.ID)] = p
	}
	folderMap := make(map[int64]library.Folder, len(in.Folders))
	for _, f := range in.Folders {
		folderMap[f.ID] = f
	}
	trackMap := make(map[string]library.SharedTrack, len(tracks))
	for _, t := range tracks {
		trackMap[t.PublicID] = t
	}

	localFolders := make(map[int64]struct{})
	for _, it := range prev {
		if f, ok := it.(FolderItem); ok && f.Persisted() {
			localFolders[f.FolderID] = struct{}{}
		}
	}

	var updatedFolders, updatedOthers []Item
	for _, it := range prev {
		switch it := it.(type) {
		case ProjectItem:
			p, ok := projectMap[it.ID]
			if !ok {
				if r.PendingProject(it.ID) {
					updatedOthers = append(updatedOthers, it)
				}
				continue
			}
			delete(r.pendingProjects, it.ID)
			updatedOthers = append(updatedOthers, refreshProject(it, p))

		case TrackItem:
			t, ok := trackMap[it.Track.PublicID]
			if !ok {
				continue
			}
			it.Track = t
			it.SharedBy = t.SharedByUsername
			it.FolderID = t.FolderID
			updatedOthers = append(updatedOthers, it)

		case FolderItem:
			if it.Persisted() {
				f, ok := folderMap[it.FolderID]
				if !ok {
					if _, pending := r.pendingFolders[it.FolderID]; pending {
						updatedFolders = append(updatedFolders, it)
					}
					continue
				}
				delete(r.pendingFolders, it.FolderID)
				it.Name = f.Name
				updatedFolders = append(updatedFolders, it)
				continue
			}
			var kept []library.Project
			for _, p := range it.Items {
				if fresh, ok := projectMap[ProjectItemID(p.ID)]; ok {
					kept = append(kept, fresh)
				}
			}
			if len(kept) == 0 {
				continue
			}
			it.Items = kept
			updatedFolders = append(updatedFolders, it)
		}
	}

	var res Result
	var newFolders []Item
	for _, f := range in.Folders {
		if _, ok := localFolders[f.ID]; ok {
			continue
		}
		item := FolderToItem(f)
		newFolders = append(newFolders, item)
		res.NewFolders = append(res.NewFolders, item.ID)
	}

	represented := make(map[string]struct{})
	presentTracks := make(map[string]struct{})
	for _, group := range [][]Item{updatedFolders, updatedOthers} {
		for _, it := range group {
			switch it := it.(type) {
			case ProjectItem:
				represented[it.ID] = struct{}{}
			case FolderItem:
				for _, p := range it.Items {
					represented[ProjectItemID(p.ID)] = struct{}{}
				}
			case TrackItem:
				presentTracks[it.Track.PublicID] = struct{}{}
			}
		}
	}

	var newProjects []Item
	for _, p := range in.Projects {
		item := ProjectToItem(p)
		if _, ok := represented[item.ID]; ok {
			continue
		}
		newProjects = append(newProjects, item)
		res.NewProjects = append(res.NewProjects, item.ID)
	}

	var newTracks []Item
	for _, t := range tracks {
		if _, ok := presentTracks[t.PublicID]; ok {
			continue
		}
		newTracks = append(newTracks, TrackToItem(t))
	}

	out := make([]Item, 0, len(updatedFolders)+len(newFolders)+len(updatedOthers)+len(newProjects)+len(newTracks))
	out = append(out, updatedFolders...)
	out = append(out, newFolders...)
	out = append(out, updatedOthers...)
	out = append(out, newProjects...)
	out = append(out, newTracks...)
	res.Items = dedupeItems(out)
	return res
}

func refreshProject(it ProjectItem, p library.Project) ProjectItem {
	it.Project = p
	it.Shared = p.IsShared
	it.SharedBy = p.SharedByUsername
	return it
}
