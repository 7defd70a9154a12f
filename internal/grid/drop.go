package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Akashdeep-Patra/crate/internal/library"
)

// NewFolderName is the name given to folders created by a drop.
const NewFolderName = "New Folder"

// ErrUnsupportedDrop is returned when a commit is attempted for a
// (source, target) pair the policy table rejects.
var ErrUnsupportedDrop = errors.New("unsupported drop")

// Mutator persists drop results. A zero folder id from CreateFolder means
// no folder was created; the drop then leaves the list alone.
// order is library.NoOrder when the item carries no custom order.
type Mutator interface {
	CreateFolder(ctx context.Context, name string, projectIDs []string, folderIDs []int64) (int64, error)
	MoveProjectToFolder(ctx context.Context, publicID string, folderID int64, order int) error
	MoveFolderToFolder(ctx context.Context, folderID, targetID int64) error
	OrganizeSharedProject(ctx context.Context, projectID, folderID int64, order int) error
	OrganizeSharedTrack(ctx context.Context, trackID, folderID int64, order int) error
}

// CoverPreloader warms a project's cover so the folder tile that replaces
// it can show the art immediately. Failures are ignored.
type CoverPreloader interface {
	Preload(ctx context.Context, p library.Project)
}

// Edit transforms the item list after a commit.
type Edit func([]Item) []Item

type dropPair struct{ source, target Kind }

// dropPolicy lists every supported (source, target) pair. Anything missing,
// notably folder onto track, is rejected.
var dropPolicy = map[dropPair]bool{
	{KindProject, KindProject}: true,
	{KindProject, KindFolder}:  true,
	{KindProject, KindTrack}:   true,
	{KindFolder, KindProject}:  true,
	{KindFolder, KindFolder}:   true,
	{KindTrack, KindFolder}:    true,
	{KindTrack, KindProject}:   true,
	{KindTrack, KindTrack}:     true,
}

// Supported reports whether the policy table accepts source onto target.
func Supported(source, target Kind) bool {
	return dropPolicy[dropPair{source, target}]
}

// Resolver decides what dropping one tile on another means and performs it.
// With a nil Mutator the grid works offline: project merges create
// unpersisted folders and every persisted operation is a no-op.
type Resolver struct {
	mut       Mutator
	covers    CoverPreloader
	coverWait time.Duration
	log       *slog.Logger
}

// NewResolver creates a resolver. mut and covers may be nil.
func NewResolver(mut Mutator, covers CoverPreloader, coverWait time.Duration, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Resolver{mut: mut, covers: covers, coverWait: coverWait, log: log}
}

// Accepts is the preview phase: it reports whether the drop would do
// anything, without side effects.
func (r *Resolver) Accepts(source, target Item) bool {
	if source == nil || target == nil || source.ItemID() == target.ItemID() {
		return false
	}
	return Supported(source.Kind(), target.Kind())
}

// Commit is the commit phase. It performs the persisted steps in order and
// returns an edit reflecting the steps that succeeded. Steps are not
// transactional: when a later step fails, the earlier ones stay applied and
// the returned edit shows exactly that. A nil edit leaves the list alone.
func (r *Resolver) Commit(ctx context.Context, source, target Item) (Edit, error) {
	if !r.Accepts(source, target) {
		return nil, fmt.Errorf("%s onto %s: %w", kindOf(source), kindOf(target), ErrUnsupportedDrop)
	}
	switch src := source.(type) {
	case ProjectItem:
		switch tgt := target.(type) {
		case ProjectItem:
			return r.projectOntoProject(ctx, src, tgt)
		case FolderItem:
			return r.projectOntoFolder(ctx, src, tgt)
		case TrackItem:
			return r.projectOntoTrack(ctx, src, tgt)
		}
	case FolderItem:
		switch tgt := target.(type) {
		case ProjectItem:
			return r.folderOntoProject(ctx, src, tgt)
		case FolderItem:
			return r.folderOntoFolder(ctx, src, tgt)
		}
	case TrackItem:
		switch tgt := target.(type) {
		case FolderItem:
			return r.trackOntoFolder(ctx, src, tgt)
		case ProjectItem:
			return r.trackOntoProject(ctx, src, tgt)
		case TrackItem:
			return r.trackOntoTrack(ctx, src, tgt)
		}
	}
	return nil, fmt.Errorf("%s onto %s: %w", kindOf(source), kindOf(target), ErrUnsupportedDrop)
}

func kindOf(it Item) string {
	if it == nil {
		return "nothing"
	}
	return it.Kind().String()
}

// ── Rules ───────────────────────────────────────────────────────────────────

// project → project: both become a new folder in the target's slot.
func (r *Resolver) projectOntoProject(ctx context.Context, src, tgt ProjectItem) (Edit, error) {
	folder := FolderItem{
		ID:    tgt.ID,
		Name:  NewFolderName,
		Items: DedupeProjects([]library.Project{tgt.Project, src.Project}),
	}
	if r.mut == nil {
		return mergeInto(tgt.ID, src.ID, folder), nil
	}
	r.preload(ctx, tgt.Project)
	id, err := r.mut.CreateFolder(ctx, NewFolderName, []string{tgt.Project.PublicID, src.Project.PublicID}, nil)
	if err != nil {
		return nil, fmt.Errorf("creating folder: %w", err)
	}
	if id == 0 {
		return nil, nil
	}
	folder.FolderID = id
	return mergeInto(tgt.ID, src.ID, folder), nil
}

// project → folder: the project joins the folder.
func (r *Resolver) projectOntoFolder(ctx context.Context, src ProjectItem, tgt FolderItem) (Edit, error) {
	if r.mut != nil && tgt.Persisted() {
		var err error
		if src.Shared {
			err = r.mut.OrganizeSharedProject(ctx, src.Project.ID, tgt.FolderID, library.NoOrder)
		} else {
			err = r.mut.MoveProjectToFolder(ctx, src.Project.PublicID, tgt.FolderID, library.NoOrder)
		}
		if err != nil {
			return nil, fmt.Errorf("moving project into folder: %w", err)
		}
	}
	return mergeInto(tgt.ID, src.ID, tgt.WithProject(src.Project)), nil
}

// project → track: a new folder holds the track first and the project second.
func (r *Resolver) projectOntoTrack(ctx context.Context, src ProjectItem, tgt TrackItem) (Edit, error) {
	if r.mut == nil {
		return nil, nil
	}
	id, err := r.mut.CreateFolder(ctx, NewFolderName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating folder: %w", err)
	}
	if id == 0 {
		return nil, nil
	}
	empty := FolderItem{ID: tgt.ID, Name: NewFolderName, FolderID: id}
	if err := r.mut.OrganizeSharedTrack(ctx, tgt.Track.ID, id, 0); err != nil {
		// The folder exists but holds nothing yet; the next sync shows it.
		return nil, fmt.Errorf("filing track: %w", err)
	}
	if src.Shared {
		err = r.mut.OrganizeSharedProject(ctx, src.Project.ID, id, 1)
	} else {
		err = r.mut.MoveProjectToFolder(ctx, src.Project.PublicID, id, 1)
	}
	if err != nil {
		r.log.Warn("drop partially applied", "source", src.ID, "target", tgt.ID, "folder_id", id, "error", err)
		return replaceWith(tgt.ID, empty), fmt.Errorf("moving project into folder: %w", err)
	}
	return mergeInto(tgt.ID, src.ID, empty.WithProject(src.Project)), nil
}

// folder → project: a new folder holds the project and the dragged folder.
func (r *Resolver) folderOntoProject(ctx context.Context, src FolderItem, tgt ProjectItem) (Edit, error) {
	if r.mut == nil || !src.Persisted() {
		return nil, nil
	}
	r.preload(ctx, tgt.Project)
	id, err := r.mut.CreateFolder(ctx, NewFolderName, []string{tgt.Project.PublicID}, []int64{src.FolderID})
	if err != nil {
		return nil, fmt.Errorf("creating folder: %w", err)
	}
	if id == 0 {
		return nil, nil
	}
	folder := FolderItem{ID: tgt.ID, Name: NewFolderName, FolderID: id, Items: []library.Project{tgt.Project}}
	return mergeInto(tgt.ID, src.ID, folder), nil
}

// folder → folder: the dragged folder becomes a child of the target.
func (r *Resolver) folderOntoFolder(ctx context.Context, src, tgt FolderItem) (Edit, error) {
	if r.mut == nil || !src.Persisted() || !tgt.Persisted() {
		return nil, nil
	}
	if err := r.mut.MoveFolderToFolder(ctx, src.FolderID, tgt.FolderID); err != nil {
		return nil, fmt.Errorf("moving folder: %w", err)
	}
	return remove(src.ID), nil
}

// track → folder: the track is filed in the folder.
func (r *Resolver) trackOntoFolder(ctx context.Context, src TrackItem, tgt FolderItem) (Edit, error) {
	if r.mut == nil || !tgt.Persisted() {
		return nil, nil
	}
	if err := r.mut.OrganizeSharedTrack(ctx, src.Track.ID, tgt.FolderID, library.NoOrder); err != nil {
		return nil, fmt.Errorf("filing track: %w", err)
	}
	return remove(src.ID), nil
}

// track → project: a new folder holds the project first and the track second.
func (r *Resolver) trackOntoProject(ctx context.Context, src TrackItem, tgt ProjectItem) (Edit, error) {
	if r.mut == nil {
		return nil, nil
	}
	r.preload(ctx, tgt.Project)
	id, err := r.mut.CreateFolder(ctx, NewFolderName, []string{tgt.Project.PublicID}, nil)
	if err != nil {
		return nil, fmt.Errorf("creating folder: %w", err)
	}
	if id == 0 {
		return nil, nil
	}
	folder := FolderItem{ID: tgt.ID, Name: NewFolderName, FolderID: id, Items: []library.Project{tgt.Project}}
	if err := r.mut.OrganizeSharedTrack(ctx, src.Track.ID, id, 1); err != nil {
		r.log.Warn("drop partially applied", "source", src.ID, "target", tgt.ID, "folder_id", id, "error", err)
		return replaceWith(tgt.ID, folder), fmt.Errorf("filing track: %w", err)
	}
	return mergeInto(tgt.ID, src.ID, folder), nil
}

// track → track: a new folder holds the target track first and the dragged
// track second.
func (r *Resolver) trackOntoTrack(ctx context.Context, src, tgt TrackItem) (Edit, error) {
	if r.mut == nil {
		return nil, nil
	}
	id, err := r.mut.CreateFolder(ctx, NewFolderName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating folder: %w", err)
	}
	if id == 0 {
		return nil, nil
	}
	folder := FolderItem{ID: tgt.ID, Name: NewFolderName, FolderID: id}
	if err := r.mut.OrganizeSharedTrack(ctx, tgt.Track.ID, id, 0); err != nil {
		return nil, fmt.Errorf("filing track: %w", err)
	}
	if err := r.mut.OrganizeSharedTrack(ctx, src.Track.ID, id, 1); err != nil {
		r.log.Warn("drop partially applied", "source", src.ID, "target", tgt.ID, "folder_id", id, "error", err)
		return replaceWith(tgt.ID, folder), fmt.Errorf("filing track: %w", err)
	}
	return mergeInto(tgt.ID, src.ID, folder), nil
}

// preload waits a bounded time for the target's cover.
func (r *Resolver) preload(ctx context.Context, p library.Project) {
	if r.covers == nil || p.CoverURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, r.coverWait)
	defer cancel()
	r.covers.Preload(ctx, p)
}

// ── Edits ───────────────────────────────────────────────────────────────────

// mergeInto swaps the target slot for it and removes the source.
func mergeInto(targetID, sourceID string, it Item) Edit {
	return func(items []Item) []Item {
		return removeSlot(replaceSlot(items, targetID, it), sourceID)
	}
}

func replaceWith(targetID string, it Item) Edit {
	return func(items []Item) []Item { return replaceSlot(items, targetID, it) }
}

func remove(id string) Edit {
	return func(items []Item) []Item { return removeSlot(items, id) }
}
