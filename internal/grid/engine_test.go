package grid

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Akashdeep-Patra/crate/internal/library"
)

type engineFixture struct {
	e     *Engine
	clock *fakeClock
	be    *fakeBackend
	board *board
}

func newEngineFixture(t *testing.T, be *fakeBackend) *engineFixture {
	t.Helper()
	clock := &fakeClock{}
	opts := Options{Clock: clock}
	if be != nil {
		opts.Backend = be
	}
	return &engineFixture{e: New(opts), clock: clock, be: be, board: newBoard()}
}

// load syncs a snapshot and lets the quiet period elapse.
func (f *engineFixture) load(snap library.Snapshot) {
	f.e.Sync(snap)
	f.clock.Advance(DefaultReconcileQuiet)
}

// layout registers every tile in a row of 10x10 boxes with 10 cells between.
func (f *engineFixture) layout() {
	for i, it := range f.e.Items() {
		f.board.register(f.e.Registry(), it.ItemID(), RectAt(i*20, 0, 10, 10))
	}
}

// dragOnto moves the dragged tile so its center sits inside target.
func (f *engineFixture) dragOnto(dragged, target string) {
	f.e.DragStart(dragged)
	r := f.board.rects[target]
	f.board.place(dragged, Rect{Left: r.Left + 1, Top: r.Top + 1, Right: r.Right + 1, Bottom: r.Bottom + 1})
	f.e.DragMove(dragged)
}

func TestSyncIsDebounced(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.e.Sync(snapshot(nil, []library.Project{proj(1)}))
	f.clock.Advance(30 * time.Millisecond)
	f.e.Sync(snapshot(nil, []library.Project{proj(1), proj(2)}))
	f.clock.Advance(49 * time.Millisecond)
	assert.Empty(t, f.e.Items())

	f.clock.Advance(time.Millisecond)
	assert.Equal(t, []string{"1", "2"}, ids(f.e.Items()))
}

func TestNewItemHighlightsClearThemselves(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.load(snapshot(nil, []library.Project{proj(1)}))
	assert.False(t, f.e.IsNew("1"))

	f.load(snapshot([]library.Folder{folder(3, "Three")}, []library.Project{proj(1), proj(2)}))
	assert.True(t, f.e.IsNew("2"))
	assert.True(t, f.e.IsNew("folder-3"))

	f.clock.Advance(DefaultHighlightTTL)
	assert.False(t, f.e.IsNew("2"))
	assert.False(t, f.e.IsNew("folder-3"))
}

func TestSyncWaitsForGuardAndReplays(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.load(snapshot(nil, []library.Project{proj(1)}))

	f.e.Guard().Hold()
	f.load(snapshot(nil, []library.Project{proj(1), proj(2)}))
	f.clock.Advance(time.Second)
	assert.Equal(t, []string{"1"}, ids(f.e.Items()))

	f.e.Guard().Abort()
	f.clock.Advance(DefaultReconcileQuiet)
	assert.Equal(t, []string{"1", "2"}, ids(f.e.Items()))
}

func TestSyncScheduledBeforeDropIsSuppressed(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.load(snapshot(nil, []library.Project{proj(1)}))

	f.e.Sync(snapshot(nil, nil))
	f.e.Guard().Hold()
	f.clock.Advance(DefaultReconcileQuiet)
	assert.Equal(t, []string{"1"}, ids(f.e.Items()))

	f.e.Guard().Release(DefaultDropSettle)
	f.clock.Advance(DefaultDropSettle + DefaultReconcileQuiet)
	assert.Empty(t, f.e.Items())
}

func TestDropGestureEndToEnd(t *testing.T) {
	be := newFakeBackend(7)
	f := newEngineFixture(t, be)
	f.load(snapshot(nil, []library.Project{proj(1), proj(2)}))
	f.layout()

	f.dragOnto("1", "2")
	s := f.e.Session()
	assert.Equal(t, "1", s.Dragging)
	assert.Equal(t, "2", s.Hover)

	d, ok := f.e.Release()
	require.True(t, ok)
	assert.Equal(t, StateDropping, f.e.Session().State())
	assert.Equal(t, "2", f.e.Session().DroppingInto)
	assert.Empty(t, be.Calls(), "preview has no side effects")

	require.NoError(t, f.e.CommitDrop(context.Background(), d))
	assert.Equal(t, []string{`createFolder("New Folder",[p2 p1],[])`}, be.Calls())
	assert.Equal(t, []string{"2"}, ids(f.e.Items()))
	assert.Equal(t, StateIdle, f.e.Session().State())
	assert.True(t, f.e.Guard().InProgress())

	// A stale snapshot during the settle window must not undo the merge.
	f.load(snapshot(nil, []library.Project{proj(1), proj(2)}))
	assert.Equal(t, []string{"2"}, ids(f.e.Items()))

	f.clock.Advance(DefaultDropSettle)
	assert.False(t, f.e.Guard().InProgress())
}

func TestCreatedFolderIsPendingUntilSnapshotCatchesUp(t *testing.T) {
	be := newFakeBackend(7)
	f := newEngineFixture(t, be)
	f.load(snapshot(nil, []library.Project{proj(1), proj(2)}))
	f.layout()
	f.dragOnto("1", "2")
	ok, err := f.e.Drop(context.Background())
	require.True(t, ok)
	require.NoError(t, err)

	f.clock.Advance(DefaultDropSettle)
	f.load(snapshot(nil, nil))
	assert.Equal(t, []string{"2"}, ids(f.e.Items()))

	f.load(snapshot([]library.Folder{folder(7, NewFolderName)}, nil))
	assert.Equal(t, []string{"2"}, ids(f.e.Items()))
	f.load(snapshot(nil, nil))
	assert.Empty(t, f.e.Items())
}

func TestReleaseWithoutTargetCancels(t *testing.T) {
	be := newFakeBackend(7)
	f := newEngineFixture(t, be)
	f.load(snapshot(nil, []library.Project{proj(1), proj(2)}))
	f.layout()

	f.e.DragStart("1")
	f.board.place("1", RectAt(500, 500, 10, 10))
	f.e.DragMove("1")

	_, ok := f.e.Release()
	assert.False(t, ok)
	assert.Equal(t, StateIdle, f.e.Session().State())
	assert.Empty(t, be.Calls())

	_, ok = f.e.Release()
	assert.False(t, ok)
}

func TestReleaseOntoUnsupportedTargetCancels(t *testing.T) {
	be := newFakeBackend(7)
	f := newEngineFixture(t, be)
	f.load(snapshot([]library.Folder{folder(1, "One")}, nil, track(1)))
	f.layout()

	f.dragOnto("folder-1", "track-t1")
	assert.Equal(t, "track-t1", f.e.Session().Hover)
	_, ok := f.e.Release()
	assert.False(t, ok)
	assert.Equal(t, StateIdle, f.e.Session().State())
	assert.Empty(t, be.Calls())
}

func TestDragStartIgnoresUnknownTiles(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.e.DragStart("ghost")
	assert.Equal(t, StateIdle, f.e.Session().State())
}

func TestCommitFailureReleasesGuardAtOnce(t *testing.T) {
	be := newFakeBackend(7)
	be.fail["createFolder"] = errors.New("offline")
	f := newEngineFixture(t, be)
	f.load(snapshot(nil, []library.Project{proj(1), proj(2)}))
	f.layout()
	f.dragOnto("1", "2")

	ok, err := f.e.Drop(context.Background())
	assert.True(t, ok)
	require.Error(t, err)
	assert.False(t, f.e.Guard().InProgress())
	assert.Equal(t, []string{"1", "2"}, ids(f.e.Items()))
	assert.Equal(t, StateIdle, f.e.Session().State())
}

func TestEmptyFolderRestoresContents(t *testing.T) {
	be := newFakeBackend(0)
	moved := track(5)
	moved.FolderID = 3
	be.contents[3] = &library.FolderContents{
		Folder:       folder(3, "Three"),
		Folders:      []library.Folder{{ID: 4, Name: "Four", ParentID: 3}},
		Projects:     []library.Project{proj(10)},
		SharedTracks: []library.SharedTrack{moved},
	}
	f := newEngineFixture(t, be)
	f.load(snapshot([]library.Folder{folder(3, "Three")}, []library.Project{proj(1)}))

	require.NoError(t, f.e.EmptyFolder(context.Background(), "folder-3"))
	assert.Equal(t, []string{"folderContents(3)", "emptyFolder(3)", "organizeSharedTrack(5,0,-1)"}, be.Calls())
	assert.Equal(t, []string{"1", "folder-4", "10", "track-t5"}, ids(f.e.Items()))
	assert.True(t, f.e.IsRestored("10"))
	assert.True(t, f.e.IsEmptied("folder-3"))

	// Restored tiles survive a snapshot taken before the server moved them.
	f.clock.Advance(DefaultDropSettle)
	f.load(snapshot(nil, []library.Project{proj(1)}))
	assert.Equal(t, []string{"folder-4", "1", "10"}, ids(f.e.Items()))
	assert.False(t, f.e.IsRestored("10"))
	assert.False(t, f.e.IsEmptied("folder-3"))
}

func TestEmptyFolderFailureUnmarksPending(t *testing.T) {
	be := newFakeBackend(0)
	be.fail["emptyFolder"] = errors.New("denied")
	f := newEngineFixture(t, be)
	f.load(snapshot([]library.Folder{folder(3, "Three")}, []library.Project{proj(1)}))
	// Seed the folder's cached items.
	f.e.mu.Lock()
	f.e.items[0] = FolderItem{ID: "folder-3", Name: "Three", FolderID: 3, Items: []library.Project{proj(10)}}
	f.e.mu.Unlock()

	err := f.e.EmptyFolder(context.Background(), "folder-3")
	require.Error(t, err)
	assert.False(t, f.e.Guard().InProgress())
	assert.False(t, f.e.IsEmptied("folder-3"))

	f.load(snapshot([]library.Folder{folder(3, "Three")}, []library.Project{proj(1)}))
	assert.Equal(t, []string{"folder-3", "1"}, ids(f.e.Items()))
}

func TestEmptyUnknownOrWrongKind(t *testing.T) {
	f := newEngineFixture(t, newFakeBackend(0))
	f.load(snapshot(nil, []library.Project{proj(1)}))
	require.ErrorIs(t, f.e.EmptyFolder(context.Background(), "1"), ErrUnknownItem)
	require.ErrorIs(t, f.e.EmptyFolder(context.Background(), "nope"), ErrUnknownItem)
}

func TestLeaveAndRename(t *testing.T) {
	be := newFakeBackend(0)
	f := newEngineFixture(t, be)
	f.load(snapshot([]library.Folder{folder(3, "Three")}, []library.Project{proj(1), sharedProj(2)}, track(4)))
	ctx := context.Background()

	require.ErrorIs(t, f.e.LeaveSharedProject(ctx, "1"), ErrUnknownItem)
	require.NoError(t, f.e.LeaveSharedProject(ctx, "2"))
	require.NoError(t, f.e.LeaveSharedTrack(ctx, "track-t4"))
	require.NoError(t, f.e.RenameFolder(ctx, "folder-3", "Live"))

	assert.Equal(t, []string{"leaveSharedProject(p2)", "leaveSharedTrack(4)", `renameFolder(3,"Live")`}, be.Calls())
	assert.Equal(t, []string{"folder-3", "1"}, ids(f.e.Items()))
	it, _ := f.e.Item("folder-3")
	assert.Equal(t, "Live", it.Label())
}

func TestLookupProjectAndMarkPending(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.load(snapshot(nil, []library.Project{proj(1), sharedProj(2)}))

	p, ok := f.e.LookupProject("p2")
	require.True(t, ok)
	assert.True(t, p.Shared)
	_, ok = f.e.LookupProject("p9")
	assert.False(t, ok)

	require.NoError(t, f.e.MarkPending("2"))
	f.load(snapshot(nil, []library.Project{proj(1)}))
	assert.Equal(t, []string{"1", "2"}, ids(f.e.Items()))
}

func TestOnChangeIsCalled(t *testing.T) {
	clock := &fakeClock{}
	n := 0
	e := New(Options{Clock: clock, OnChange: func() { n++ }})
	e.Sync(snapshot(nil, []library.Project{proj(1)}))
	clock.Advance(DefaultReconcileQuiet)
	assert.Positive(t, n)
}
