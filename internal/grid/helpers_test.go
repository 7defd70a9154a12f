package grid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Akashdeep-Patra/crate/internal/library"
)

// ── fake clock ──────────────────────────────────────────────────────────────

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, firing due callbacks in order. Callbacks run
// without the clock's lock so they may schedule more timers.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
	}
}

// ── geometry ────────────────────────────────────────────────────────────────

// board holds tile boxes that tests move around.
type board struct {
	mu    sync.Mutex
	rects map[string]Rect
}

func newBoard() *board { return &board{rects: make(map[string]Rect)} }

func (b *board) place(id string, r Rect) {
	b.mu.Lock()
	b.rects[id] = r
	b.mu.Unlock()
}

func (b *board) unmount(id string) {
	b.mu.Lock()
	delete(b.rects, id)
	b.mu.Unlock()
}

func (b *board) surface(id string) Surface {
	return SurfaceFunc(func() (Rect, bool) {
		b.mu.Lock()
		defer b.mu.Unlock()
		r, ok := b.rects[id]
		return r, ok
	})
}

func (b *board) register(reg *Registry, id string, r Rect) {
	b.place(id, r)
	reg.Register(id, b.surface(id))
}

// ── fixtures ────────────────────────────────────────────────────────────────

func proj(id int64) library.Project {
	return library.Project{ID: id, PublicID: fmt.Sprintf("p%d", id), Name: fmt.Sprintf("Project %d", id)}
}

func sharedProj(id int64) library.Project {
	p := proj(id)
	p.IsShared = true
	p.SharedByUsername = "sam"
	return p
}

func track(id int64) library.SharedTrack {
	return library.SharedTrack{ID: id, PublicID: fmt.Sprintf("t%d", id), Title: fmt.Sprintf("Track %d", id), SharedByUsername: "kim"}
}

func folder(id int64, name string) library.Folder {
	return library.Folder{ID: id, Name: name}
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ItemID()
	}
	return out
}

// ── recording backend ───────────────────────────────────────────────────────

type fakeBackend struct {
	mu         sync.Mutex
	calls      []string
	nextFolder int64
	fail       map[string]error
	contents   map[int64]*library.FolderContents
}

func newFakeBackend(nextFolder int64) *fakeBackend {
	return &fakeBackend{
		nextFolder: nextFolder,
		fail:       make(map[string]error),
		contents:   make(map[int64]*library.FolderContents),
	}
}

func (b *fakeBackend) record(op, format string, args ...any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, op+"("+fmt.Sprintf(format, args...)+")")
	return b.fail[op]
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBackend) CreateFolder(_ context.Context, name string, projectIDs []string, folderIDs []int64) (int64, error) {
	if err := b.record("createFolder", "%q,%v,%v", name, projectIDs, folderIDs); err != nil {
		return 0, err
	}
	return b.nextFolder, nil
}

func (b *fakeBackend) MoveProjectToFolder(_ context.Context, publicID string, folderID int64, order int) error {
	return b.record("moveProjectToFolder", "%s,%d,%d", publicID, folderID, order)
}

func (b *fakeBackend) MoveFolderToFolder(_ context.Context, folderID, targetID int64) error {
	return b.record("moveFolderToFolder", "%d,%d", folderID, targetID)
}

func (b *fakeBackend) OrganizeSharedProject(_ context.Context, projectID, folderID int64, order int) error {
	return b.record("organizeSharedProject", "%d,%d,%d", projectID, folderID, order)
}

func (b *fakeBackend) OrganizeSharedTrack(_ context.Context, trackID, folderID int64, order int) error {
	return b.record("organizeSharedTrack", "%d,%d,%d", trackID, folderID, order)
}

func (b *fakeBackend) FolderContents(_ context.Context, folderID int64) (*library.FolderContents, error) {
	if err := b.record("folderContents", "%d", folderID); err != nil {
		return nil, err
	}
	c, ok := b.contents[folderID]
	if !ok {
		return nil, library.ErrNotFound
	}
	return c, nil
}

func (b *fakeBackend) EmptyFolder(_ context.Context, folderID int64) error {
	return b.record("emptyFolder", "%d", folderID)
}

func (b *fakeBackend) RenameFolder(_ context.Context, folderID int64, name string) error {
	return b.record("renameFolder", "%d,%q", folderID, name)
}

func (b *fakeBackend) LeaveSharedProject(_ context.Context, publicID string) error {
	return b.record("leaveSharedProject", "%s", publicID)
}

func (b *fakeBackend) LeaveSharedTrack(_ context.Context, trackID int64) error {
	return b.record("leaveSharedTrack", "%d", trackID)
}

var _ Backend = (*fakeBackend)(nil)
