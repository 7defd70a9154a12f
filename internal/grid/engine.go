package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Akashdeep-Patra/crate/internal/library"
)

// ErrUnknownItem is returned when an operation names a tile that is not in
// the grid or has the wrong kind.
var ErrUnknownItem = errors.New("unknown grid item")

// Backend is everything the engine persists through. Actions implements it
// over a library.Service.
type Backend interface {
	Mutator
	FolderContents(ctx context.Context, folderID int64) (*library.FolderContents, error)
	EmptyFolder(ctx context.Context, folderID int64) error
	RenameFolder(ctx context.Context, folderID int64, name string) error
	LeaveSharedProject(ctx context.Context, publicID string) error
	LeaveSharedTrack(ctx context.Context, trackID int64) error
}

// Options configures an Engine. Zero durations fall back to the defaults
// below.
type Options struct {
	// Scope is the folder the grid shows (0 = root).
	Scope int64
	// Backend persists operations. Nil runs the grid offline.
	Backend Backend
	// Guard is shared with Backend when Backend holds it too.
	Guard  *Guard
	Covers CoverPreloader
	Clock  Clock
	Logger *slog.Logger

	HoverSettle    time.Duration
	HighlightTTL   time.Duration
	ReconcileQuiet time.Duration
	DropSettle     time.Duration
	CoverWait      time.Duration

	// OnChange is called after any observable state change. It may run on
	// a timer goroutine and must not call back into the engine synchronously.
	OnChange func()
}

// Default timings.
const (
	DefaultHoverSettle    = 250 * time.Millisecond
	DefaultHighlightTTL   = 500 * time.Millisecond
	DefaultReconcileQuiet = 50 * time.Millisecond
	DefaultDropSettle     = 500 * time.Millisecond
	DefaultCoverWait      = time.Second
)

// Drop is an accepted drop waiting for its commit.
type Drop struct {
	Source Item
	Target Item
}

// Engine owns the item list of one scope and coordinates the drag machine,
// the resolver and the reconciler around it. It is safe for concurrent use.
type Engine struct {
	opts     Options
	log      *slog.Logger
	clock    Clock
	reg      *Registry
	drag     *DragMachine
	guard    *Guard
	resolver *Resolver

	mu          sync.Mutex
	items       []Item
	rec         *Reconciler
	latest      library.Snapshot
	hasLatest   bool
	deferred    bool
	syncTimer   Timer
	syncGen     uint64
	newFolders  map[string]struct{}
	newProjects map[string]struct{}
	restored    map[string]struct{}
	emptied     map[string]struct{}
}

// New creates an engine with an empty list. The first Sync builds it.
func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Guard == nil {
		opts.Guard = NewGuard(opts.Clock)
	}
	setDefault(&opts.HoverSettle, DefaultHoverSettle)
	setDefault(&opts.HighlightTTL, DefaultHighlightTTL)
	setDefault(&opts.ReconcileQuiet, DefaultReconcileQuiet)
	setDefault(&opts.DropSettle, DefaultDropSettle)
	setDefault(&opts.CoverWait, DefaultCoverWait)

	var mut Mutator
	if opts.Backend != nil {
		mut = opts.Backend
	}
	e := &Engine{
		opts:        opts,
		log:         opts.Logger.With("scope", opts.Scope),
		clock:       opts.Clock,
		reg:         NewRegistry(),
		guard:       opts.Guard,
		resolver:    NewResolver(mut, opts.Covers, opts.CoverWait, opts.Logger),
		rec:         NewReconciler(opts.Scope),
		newFolders:  make(map[string]struct{}),
		newProjects: make(map[string]struct{}),
		restored:    make(map[string]struct{}),
		emptied:     make(map[string]struct{}),
	}
	e.drag = NewDragMachine(e.reg, opts.Clock, opts.HoverSettle, e.changed)
	e.guard.OnIdle(e.replay)
	return e
}

func setDefault(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}

func (e *Engine) changed() {
	if e.opts.OnChange != nil {
		e.opts.OnChange()
	}
}

// ── Accessors ───────────────────────────────────────────────────────────────

// Scope returns the folder this engine shows.
func (e *Engine) Scope() int64 { return e.opts.Scope }

// Registry returns the hit-test registry tiles register their surfaces in.
func (e *Engine) Registry() *Registry { return e.reg }

// Guard returns the reentrancy guard.
func (e *Engine) Guard() *Guard { return e.guard }

// Session returns the current drag state.
func (e *Engine) Session() Session { return e.drag.Session() }

// Items returns a copy of the current list.
func (e *Engine) Items() []Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Item(nil), e.items...)
}

// Item returns one tile.
func (e *Engine) Item(id string) (Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return find(e.items, id)
}

// LookupProject finds a project tile by public id.
func (e *Engine) LookupProject(publicID string) (ProjectItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, it := range e.items {
		if p, ok := it.(ProjectItem); ok && p.Project.PublicID == publicID {
			return p, true
		}
	}
	return ProjectItem{}, false
}

// IsNew reports whether a tile arrived in a recent reconciliation.
func (e *Engine) IsNew(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, f := e.newFolders[id]
	_, p := e.newProjects[id]
	return f || p
}

// IsRestored reports whether a tile was just spilled out of an emptied folder.
func (e *Engine) IsRestored(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.restored[id]
	return ok
}

// IsEmptied reports whether a folder tile is being emptied.
func (e *Engine) IsEmptied(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.emptied[id]
	return ok
}

// ── Reconciliation ──────────────────────────────────────────────────────────

// Sync feeds an authoritative snapshot. Reconciliation runs after a quiet
// period; snapshots arriving within it replace each other. While a
// mutation holds the guard the snapshot is parked and reconciled once the
// guard goes idle.
func (e *Engine) Sync(snap library.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latest, e.hasLatest = snap, true
	if e.guard.InProgress() {
		e.deferred = true
		e.log.Debug("reconcile deferred", "reason", "mutation in progress")
		return
	}
	e.scheduleLocked()
}

func (e *Engine) scheduleLocked() {
	if e.syncTimer != nil {
		e.syncTimer.Stop()
	}
	e.syncGen++
	gen := e.syncGen
	e.syncTimer = e.clock.AfterFunc(e.opts.ReconcileQuiet, func() { e.flush(gen) })
}

func (e *Engine) flush(gen uint64) {
	e.mu.Lock()
	if gen != e.syncGen {
		e.mu.Unlock()
		return
	}
	e.syncTimer = nil
	if e.guard.InProgress() {
		e.deferred = true
		e.mu.Unlock()
		return
	}
	res := e.rec.Reconcile(e.items, e.latest)
	e.items = res.Items
	e.highlightLocked(e.newFolders, res.NewFolders)
	e.highlightLocked(e.newProjects, res.NewProjects)
	e.log.Debug("reconciled", "items", len(res.Items),
		"new_folders", len(res.NewFolders), "new_projects", len(res.NewProjects))
	e.mu.Unlock()
	e.changed()
}

// replay reconciles a snapshot that arrived while the guard was held.
func (e *Engine) replay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.deferred || !e.hasLatest {
		return
	}
	e.deferred = false
	e.scheduleLocked()
}

// highlightLocked adds ids to set and removes that batch after the TTL.
func (e *Engine) highlightLocked(set map[string]struct{}, ids []string) {
	if len(ids) == 0 {
		return
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	e.clock.AfterFunc(e.opts.HighlightTTL, func() {
		e.mu.Lock()
		for _, id := range ids {
			delete(set, id)
		}
		e.mu.Unlock()
		e.changed()
	})
}

// ── Drag ────────────────────────────────────────────────────────────────────

// DragStart begins dragging a tile. Unknown ids are ignored.
func (e *Engine) DragStart(id string) {
	if _, ok := e.Item(id); !ok {
		return
	}
	e.drag.Start(id)
}

// DragMove re-runs hit-testing for the dragged tile.
func (e *Engine) DragMove(id string) { e.drag.Move(id) }

// DragCancel abandons the gesture.
func (e *Engine) DragCancel() { e.drag.Cancel() }

// Release ends the gesture and previews the drop. It returns true when the
// hovered tile accepts the dragged one; the engine is then dropping and
// CommitDrop must follow. Otherwise the gesture is cancelled.
func (e *Engine) Release() (Drop, bool) {
	s := e.drag.Session()
	if s.Dragging == "" || s.DroppingInto != "" {
		return Drop{}, false
	}
	if s.Hover == "" || s.Hover == s.Dragging {
		e.drag.Cancel()
		return Drop{}, false
	}
	e.mu.Lock()
	src, okSrc := find(e.items, s.Dragging)
	tgt, okTgt := find(e.items, s.Hover)
	e.mu.Unlock()
	if !okSrc || !okTgt || !e.resolver.Accepts(src, tgt) {
		e.drag.Cancel()
		return Drop{}, false
	}
	e.drag.BeginDrop(tgt.ItemID())
	return Drop{Source: src, Target: tgt}, true
}

// CommitDrop performs an accepted drop. It runs to completion once
// started; ctx only reaches the backend calls. The list reflects every
// step that succeeded, even when a later one failed.
func (e *Engine) CommitDrop(ctx context.Context, d Drop) error {
	e.guard.Hold()
	edit, err := e.resolver.Commit(ctx, d.Source, d.Target)
	if edit != nil {
		e.mu.Lock()
		before := e.items
		e.items = dedupeItems(edit(e.items))
		e.markCreatedLocked(before, e.items)
		e.mu.Unlock()
	}
	e.drag.Finish()
	if err != nil {
		e.guard.Fail()
		e.log.Error("drop failed", "source", d.Source.ItemID(), "target", d.Target.ItemID(), "error", err)
		e.changed()
		return err
	}
	e.guard.Release(e.opts.DropSettle)
	e.log.Info("drop committed", "source", d.Source.ItemID(), "target", d.Target.ItemID())
	e.changed()
	return nil
}

// Drop releases and, if accepted, commits in one go. It reports whether a
// drop happened.
func (e *Engine) Drop(ctx context.Context) (bool, error) {
	d, ok := e.Release()
	if !ok {
		return false, nil
	}
	return true, e.CommitDrop(ctx, d)
}

// markCreatedLocked marks folders a drop just persisted as pending so a
// snapshot fetched before the drop cannot drop them.
func (e *Engine) markCreatedLocked(before, after []Item) {
	had := make(map[int64]struct{})
	for _, it := range before {
		if f, ok := it.(FolderItem); ok && f.Persisted() {
			had[f.FolderID] = struct{}{}
		}
	}
	for _, it := range after {
		if f, ok := it.(FolderItem); ok && f.Persisted() {
			if _, ok := had[f.FolderID]; !ok {
				e.rec.MarkPendingFolder(f.FolderID)
			}
		}
	}
}

// ── Folder and sharing operations ───────────────────────────────────────────

// EmptyFolder replaces a folder tile with its contents and deletes the
// folder. Restored tiles are pending until a snapshot shows them at this
// level; restored shared tracks are re-filed into the current scope.
func (e *Engine) EmptyFolder(ctx context.Context, itemID string) error {
	it, ok := e.Item(itemID)
	f, isFolder := it.(FolderItem)
	if !ok || !isFolder {
		return fmt.Errorf("empty %s: %w", itemID, ErrUnknownItem)
	}

	restore := make([]Item, 0, len(f.Items))
	for _, p := range f.Items {
		restore = append(restore, ProjectToItem(p))
	}
	if !f.Persisted() || e.opts.Backend == nil {
		e.mu.Lock()
		e.items = dedupeItems(append(removeSlot(e.items, itemID), restore...))
		e.markRestoredLocked(restore)
		e.mu.Unlock()
		e.changed()
		return nil
	}

	e.guard.Hold()
	if contents, err := e.opts.Backend.FolderContents(ctx, f.FolderID); err == nil {
		restore = restore[:0]
		for _, sub := range contents.Folders {
			restore = append(restore, FolderToItem(sub))
		}
		for _, p := range contents.Projects {
			restore = append(restore, ProjectToItem(p))
		}
		for _, t := range contents.SharedTracks {
			restore = append(restore, TrackToItem(t))
		}
	} else {
		e.log.Warn("folder contents unavailable, restoring cached items", "folder_id", f.FolderID, "error", err)
	}

	e.mu.Lock()
	e.setPendingLocked(restore, true)
	e.emptied[itemID] = struct{}{}
	e.items = dedupeItems(append(removeSlot(e.items, itemID), restore...))
	e.markRestoredLocked(restore)
	e.mu.Unlock()
	e.changed()

	err := e.opts.Backend.EmptyFolder(ctx, f.FolderID)
	if err == nil {
		g, gctx := errgroup.WithContext(ctx)
		for _, r := range restore {
			if t, ok := r.(TrackItem); ok {
				g.Go(func() error {
					return e.opts.Backend.OrganizeSharedTrack(gctx, t.Track.ID, e.opts.Scope, library.NoOrder)
				})
			}
		}
		err = g.Wait()
	}
	if err != nil {
		e.mu.Lock()
		e.setPendingLocked(restore, false)
		delete(e.emptied, itemID)
		e.mu.Unlock()
		e.guard.Fail()
		e.log.Error("empty folder failed", "folder_id", f.FolderID, "error", err)
		e.changed()
		return fmt.Errorf("emptying folder %q: %w", f.Name, err)
	}
	e.guard.Release(e.opts.DropSettle)
	e.clock.AfterFunc(e.opts.HighlightTTL, func() {
		e.mu.Lock()
		delete(e.emptied, itemID)
		e.mu.Unlock()
		e.changed()
	})
	return nil
}

func (e *Engine) setPendingLocked(items []Item, on bool) {
	for _, it := range items {
		switch it := it.(type) {
		case ProjectItem:
			if on {
				e.rec.MarkPendingProject(it.ID)
			} else {
				e.rec.UnmarkPendingProject(it.ID)
			}
		case FolderItem:
			if !it.Persisted() {
				continue
			}
			if on {
				e.rec.MarkPendingFolder(it.FolderID)
			} else {
				e.rec.UnmarkPendingFolder(it.FolderID)
			}
		}
	}
}

// markRestoredLocked replaces the restored set and clears it after the TTL.
func (e *Engine) markRestoredLocked(items []Item) {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it.ItemID()] = struct{}{}
	}
	e.restored = set
	e.clock.AfterFunc(e.opts.HighlightTTL, func() {
		e.mu.Lock()
		if len(e.restored) > 0 && sameKeys(e.restored, set) {
			e.restored = make(map[string]struct{})
		}
		e.mu.Unlock()
		e.changed()
	})
}

// MarkPending keeps a project or persisted folder tile alive across
// snapshots that do not show it yet.
func (e *Engine) MarkPending(itemID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	it, ok := find(e.items, itemID)
	if !ok {
		return fmt.Errorf("mark %s: %w", itemID, ErrUnknownItem)
	}
	e.setPendingLocked([]Item{it}, true)
	return nil
}

// RenameFolder renames a persisted folder tile.
func (e *Engine) RenameFolder(ctx context.Context, itemID, name string) error {
	it, ok := e.Item(itemID)
	f, isFolder := it.(FolderItem)
	if !ok || !isFolder {
		return fmt.Errorf("rename %s: %w", itemID, ErrUnknownItem)
	}
	if f.Persisted() && e.opts.Backend != nil {
		if err := e.opts.Backend.RenameFolder(ctx, f.FolderID, name); err != nil {
			e.log.Error("rename folder failed", "folder_id", f.FolderID, "error", err)
			return fmt.Errorf("renaming folder: %w", err)
		}
	}
	e.mu.Lock()
	if cur, ok := find(e.items, itemID); ok {
		if cf, ok := cur.(FolderItem); ok {
			cf.Name = name
			e.items = replaceSlot(e.items, itemID, cf)
		}
	}
	e.mu.Unlock()
	e.changed()
	return nil
}

// LeaveSharedProject leaves a shared project and removes its tile.
func (e *Engine) LeaveSharedProject(ctx context.Context, itemID string) error {
	it, ok := e.Item(itemID)
	p, isProject := it.(ProjectItem)
	if !ok || !isProject || !p.Shared {
		return fmt.Errorf("leave %s: %w", itemID, ErrUnknownItem)
	}
	if e.opts.Backend != nil {
		if err := e.opts.Backend.LeaveSharedProject(ctx, p.Project.PublicID); err != nil {
			e.log.Error("leave project failed", "source", itemID, "error", err)
			return fmt.Errorf("leaving project: %w", err)
		}
	}
	e.removeItem(itemID)
	return nil
}

// LeaveSharedTrack leaves a shared track and removes its tile.
func (e *Engine) LeaveSharedTrack(ctx context.Context, itemID string) error {
	it, ok := e.Item(itemID)
	t, isTrack := it.(TrackItem)
	if !ok || !isTrack {
		return fmt.Errorf("leave %s: %w", itemID, ErrUnknownItem)
	}
	if e.opts.Backend != nil {
		if err := e.opts.Backend.LeaveSharedTrack(ctx, t.Track.ID); err != nil {
			e.log.Error("leave track failed", "source", itemID, "error", err)
			return fmt.Errorf("leaving track: %w", err)
		}
	}
	e.removeItem(itemID)
	return nil
}

func (e *Engine) removeItem(id string) {
	e.mu.Lock()
	e.items = removeSlot(e.items, id)
	e.mu.Unlock()
	e.changed()
}
