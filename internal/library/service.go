package library

import "context"

// Service defines the contract for the authoritative library store.
// The grid engine never talks to SQLite or HTTP directly; everything goes
// through this interface so tests can swap the backing store.
//
// A folderID or parentID of 0 addresses the root.
type Service interface {
	// ── Info ─────────────────────────────────────────────────────────
	Location() string

	// ── Reads ────────────────────────────────────────────────────────
	Projects(ctx context.Context, folderID int64) ([]Project, error)
	Folders(ctx context.Context, parentID int64) ([]Folder, error)
	SharedTracks(ctx context.Context) ([]SharedTrack, error)
	Folder(ctx context.Context, id int64) (Folder, error)
	FolderContents(ctx context.Context, id int64) (*FolderContents, error)

	// ── Folders ──────────────────────────────────────────────────────
	CreateFolder(ctx context.Context, name string, parentID int64) (Folder, error)
	RenameFolder(ctx context.Context, id int64, name string) (Folder, error)
	MoveFolder(ctx context.Context, id, parentID int64) error
	EmptyFolder(ctx context.Context, id int64) error

	// ── Owned projects ───────────────────────────────────────────────
	MoveProject(ctx context.Context, publicID string, folderID int64) error
	MoveProjects(ctx context.Context, folderID int64, moves []ProjectMove) error

	// ── Shared items ─────────────────────────────────────────────────
	OrganizeSharedProject(ctx context.Context, projectID, folderID int64, order int) error
	OrganizeSharedTrack(ctx context.Context, trackID, folderID int64, order int) error
	LeaveSharedProject(ctx context.Context, publicID string) error
	LeaveSharedTrack(ctx context.Context, trackID int64) error
}
