package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteStore implements Service on a local SQLite database.
// Shared projects live in the projects table with a non-NULL shared_by.
type SQLiteStore struct {
	path string
	db   *sql.DB
}

// Compile-time check that SQLiteStore implements Service.
var _ Service = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS folders (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT    NOT NULL,
	parent_id    INTEGER,
	folder_order INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS folders_parent ON folders(parent_id);

CREATE TABLE IF NOT EXISTS projects (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	public_id      TEXT    NOT NULL UNIQUE,
	name           TEXT    NOT NULL,
	cover_url      TEXT    NOT NULL DEFAULT '',
	owner_username TEXT    NOT NULL DEFAULT '',
	shared_by      TEXT,
	folder_id      INTEGER,
	custom_order   INTEGER,
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS projects_folder ON projects(folder_id);

CREATE TABLE IF NOT EXISTS shared_tracks (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	public_id         TEXT    NOT NULL UNIQUE,
	title             TEXT    NOT NULL,
	artist            TEXT    NOT NULL DEFAULT '',
	cover_url         TEXT    NOT NULL DEFAULT '',
	project_name      TEXT    NOT NULL DEFAULT '',
	project_id        INTEGER NOT NULL DEFAULT 0,
	project_public_id TEXT    NOT NULL DEFAULT '',
	shared_by         TEXT    NOT NULL DEFAULT '',
	can_download      INTEGER NOT NULL DEFAULT 0,
	duration_seconds  INTEGER NOT NULL DEFAULT 0,
	folder_id         INTEGER,
	custom_order      INTEGER
);
`

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", abs)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", abs, err)
	}
	// Pragmas are per connection; a single connection keeps them in force
	// and serialises writers the way SQLite wants anyway.
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &SQLiteStore{path: abs, db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Location returns the absolute database path.
func (s *SQLiteStore) Location() string { return s.path }

// ── helpers ─────────────────────────────────────────────────────────────────

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func nowMs() int64 { return time.Now().UTC().UnixMilli() }

func fromMs(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// nullID maps the root id 0 onto SQL NULL.
func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullOrder(order int) any {
	if order == NoOrder {
		return nil
	}
	return order
}

func newPublicID() string { return strings.ToLower(ulid.Make().String()) }

// withTx runs fn inside a transaction, committing on success.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

const projectCols = `id, public_id, name, cover_url, owner_username, shared_by, folder_id, custom_order, created_at, updated_at`

func scanProject(sc interface{ Scan(...any) error }) (Project, error) {
	var (
		p        Project
		sharedBy sql.NullString
		folderID sql.NullInt64
		order    sql.NullInt64
		created  int64
		updated  int64
	)
	if err := sc.Scan(&p.ID, &p.PublicID, &p.Name, &p.CoverURL, &p.OwnerUsername,
		&sharedBy, &folderID, &order, &created, &updated); err != nil {
		return Project{}, err
	}
	p.IsShared = sharedBy.Valid
	p.SharedByUsername = sharedBy.String
	p.FolderID = folderID.Int64
	p.CustomOrder = int(order.Int64)
	p.CreatedAt = fromMs(created)
	p.UpdatedAt = fromMs(updated)
	return p, nil
}

const folderCols = `id, name, parent_id, folder_order, created_at, updated_at`

func scanFolder(sc interface{ Scan(...any) error }) (Folder, error) {
	var (
		f       Folder
		parent  sql.NullInt64
		created int64
		updated int64
	)
	if err := sc.Scan(&f.ID, &f.Name, &parent, &f.FolderOrder, &created, &updated); err != nil {
		return Folder{}, err
	}
	f.ParentID = parent.Int64
	f.CreatedAt = fromMs(created)
	f.UpdatedAt = fromMs(updated)
	return f, nil
}

const trackCols = `id, public_id, title, artist, cover_url, project_name, project_id, project_public_id, shared_by, can_download, duration_seconds, folder_id, custom_order`

func scanTrack(sc interface{ Scan(...any) error }) (SharedTrack, error) {
	var (
		t        SharedTrack
		folderID sql.NullInt64
		order    sql.NullInt64
	)
	if err := sc.Scan(&t.ID, &t.PublicID, &t.Title, &t.Artist, &t.CoverURL, &t.ProjectName,
		&t.ProjectID, &t.ProjectPublicID, &t.SharedByUsername, &t.CanDownload,
		&t.DurationSeconds, &folderID, &order); err != nil {
		return SharedTrack{}, err
	}
	t.FolderID = folderID.Int64
	t.CustomOrder = int(order.Int64)
	return t, nil
}

func collect[T any](rows *sql.Rows, scan func(interface{ Scan(...any) error }) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func getFolder(ctx context.Context, q queryer, id int64) (Folder, error) {
	f, err := scanFolder(q.QueryRowContext(ctx, `SELECT `+folderCols+` FROM folders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Folder{}, fmt.Errorf("folder %d: %w", id, ErrNotFound)
	}
	return f, err
}

// requireFolder succeeds for the root or an existing folder.
func requireFolder(ctx context.Context, q queryer, id int64) error {
	if id == 0 {
		return nil
	}
	_, err := getFolder(ctx, q, id)
	return err
}

func listProjects(ctx context.Context, q queryer, folderID int64) ([]Project, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+projectCols+` FROM projects
		WHERE COALESCE(folder_id, 0) = ?
		ORDER BY custom_order IS NULL, custom_order, created_at, id`, folderID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return collect(rows, scanProject)
}

func listFolders(ctx context.Context, q queryer, parentID int64) ([]Folder, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+folderCols+` FROM folders
		WHERE COALESCE(parent_id, 0) = ?
		ORDER BY folder_order, id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	return collect(rows, scanFolder)
}

func mustAffect(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// ── Reads ───────────────────────────────────────────────────────────────────

// Projects lists owned and shared projects placed directly in folderID.
func (s *SQLiteStore) Projects(ctx context.Context, folderID int64) ([]Project, error) {
	return listProjects(ctx, s.db, folderID)
}

// Folders lists the folders directly under parentID.
func (s *SQLiteStore) Folders(ctx context.Context, parentID int64) ([]Folder, error) {
	return listFolders(ctx, s.db, parentID)
}

// SharedTracks lists every track shared with the user, wherever it is filed.
func (s *SQLiteStore) SharedTracks(ctx context.Context) ([]SharedTrack, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+trackCols+` FROM shared_tracks
		ORDER BY custom_order IS NULL, custom_order, id`)
	if err != nil {
		return nil, fmt.Errorf("listing shared tracks: %w", err)
	}
	return collect(rows, scanTrack)
}

// Folder returns one folder.
func (s *SQLiteStore) Folder(ctx context.Context, id int64) (Folder, error) {
	return getFolder(ctx, s.db, id)
}

// FolderContents returns a folder together with everything directly inside it.
func (s *SQLiteStore) FolderContents(ctx context.Context, id int64) (*FolderContents, error) {
	f, err := getFolder(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	folders, err := listFolders(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	projects, err := listProjects(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+trackCols+` FROM shared_tracks
		WHERE folder_id = ? ORDER BY custom_order IS NULL, custom_order, id`, id)
	if err != nil {
		return nil, fmt.Errorf("listing folder tracks: %w", err)
	}
	tracks, err := collect(rows, scanTrack)
	if err != nil {
		return nil, err
	}
	return &FolderContents{Folder: f, Folders: folders, Projects: projects, SharedTracks: tracks}, nil
}

// ── Folders ─────────────────────────────────────────────────────────────────

// CreateFolder creates a folder at the end of its parent's folder order.
func (s *SQLiteStore) CreateFolder(ctx context.Context, name string, parentID int64) (Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Folder{}, fmt.Errorf("folder name is required: %w", ErrInvalid)
	}
	var out Folder
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireFolder(ctx, tx, parentID); err != nil {
			return err
		}
		var siblings int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM folders WHERE COALESCE(parent_id, 0) = ?`, parentID).Scan(&siblings); err != nil {
			return err
		}
		now := nowMs()
		res, err := tx.ExecContext(ctx, `INSERT INTO folders(name, parent_id, folder_order, created_at, updated_at)
			VALUES(?, ?, ?, ?, ?)`, name, nullID(parentID), siblings, now, now)
		if err != nil {
			return fmt.Errorf("creating folder: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		out, err = getFolder(ctx, tx, id)
		return err
	})
	return out, err
}

// RenameFolder changes a folder's name.
func (s *SQLiteStore) RenameFolder(ctx context.Context, id int64, name string) (Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Folder{}, fmt.Errorf("folder name is required: %w", ErrInvalid)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE folders SET name = ?, updated_at = ? WHERE id = ?`, name, nowMs(), id)
	if err != nil {
		return Folder{}, fmt.Errorf("renaming folder: %w", err)
	}
	if err := mustAffect(res, fmt.Sprintf("folder %d", id)); err != nil {
		return Folder{}, err
	}
	return getFolder(ctx, s.db, id)
}

// MoveFolder reparents a folder. Moving a folder into itself or one of its
// descendants is a conflict.
func (s *SQLiteStore) MoveFolder(ctx context.Context, id, parentID int64) error {
	if id == parentID {
		return fmt.Errorf("folder %d cannot contain itself: %w", id, ErrConflict)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getFolder(ctx, tx, id); err != nil {
			return err
		}
		for cur := parentID; cur != 0; {
			f, err := getFolder(ctx, tx, cur)
			if err != nil {
				return err
			}
			if f.ParentID == id {
				return fmt.Errorf("folder %d is inside folder %d: %w", parentID, id, ErrConflict)
			}
			cur = f.ParentID
		}
		var siblings int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM folders WHERE COALESCE(parent_id, 0) = ?`, parentID).Scan(&siblings); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE folders SET parent_id = ?, folder_order = ?, updated_at = ? WHERE id = ?`,
			nullID(parentID), siblings, nowMs(), id)
		return err
	})
}

// EmptyFolder moves everything inside a folder up to the folder's parent,
// detaches its shared tracks and deletes the folder.
func (s *SQLiteStore) EmptyFolder(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		f, err := getFolder(ctx, tx, id)
		if err != nil {
			return err
		}
		now := nowMs()
		parent := nullID(f.ParentID)
		if _, err := tx.ExecContext(ctx, `UPDATE projects SET folder_id = ?, custom_order = NULL, updated_at = ? WHERE folder_id = ?`,
			parent, now, id); err != nil {
			return fmt.Errorf("moving projects out: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE folders SET parent_id = ?, updated_at = ? WHERE parent_id = ?`,
			parent, now, id); err != nil {
			return fmt.Errorf("moving subfolders out: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE shared_tracks SET folder_id = NULL, custom_order = NULL WHERE folder_id = ?`, id); err != nil {
			return fmt.Errorf("detaching tracks: %w", err)
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
		return err
	})
}

// ── Owned projects ──────────────────────────────────────────────────────────

func requireOwned(ctx context.Context, q queryer, publicID string) error {
	var sharedBy sql.NullString
	err := q.QueryRowContext(ctx, `SELECT shared_by FROM projects WHERE public_id = ?`, publicID).Scan(&sharedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("project %s: %w", publicID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if sharedBy.Valid {
		return fmt.Errorf("project %s is shared, organize it instead: %w", publicID, ErrInvalid)
	}
	return nil
}

// MoveProject files an owned project into folderID without a custom order.
func (s *SQLiteStore) MoveProject(ctx context.Context, publicID string, folderID int64) error {
	return s.MoveProjects(ctx, folderID, []ProjectMove{{PublicID: publicID, CustomOrder: NoOrder}})
}

// MoveProjects files several owned projects into folderID in one transaction.
func (s *SQLiteStore) MoveProjects(ctx context.Context, folderID int64, moves []ProjectMove) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireFolder(ctx, tx, folderID); err != nil {
			return err
		}
		now := nowMs()
		for _, m := range moves {
			if err := requireOwned(ctx, tx, m.PublicID); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE projects SET folder_id = ?, custom_order = ?, updated_at = ? WHERE public_id = ?`,
				nullID(folderID), nullOrder(m.CustomOrder), now, m.PublicID); err != nil {
				return fmt.Errorf("moving project %s: %w", m.PublicID, err)
			}
		}
		return nil
	})
}

// ── Shared items ────────────────────────────────────────────────────────────

// OrganizeSharedProject files a project shared with the user.
func (s *SQLiteStore) OrganizeSharedProject(ctx context.Context, projectID, folderID int64, order int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireFolder(ctx, tx, folderID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE projects SET folder_id = ?, custom_order = ?, updated_at = ?
			WHERE id = ? AND shared_by IS NOT NULL`, nullID(folderID), nullOrder(order), nowMs(), projectID)
		if err != nil {
			return fmt.Errorf("organizing shared project: %w", err)
		}
		return mustAffect(res, fmt.Sprintf("shared project %d", projectID))
	})
}

// OrganizeSharedTrack files a track shared with the user.
func (s *SQLiteStore) OrganizeSharedTrack(ctx context.Context, trackID, folderID int64, order int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireFolder(ctx, tx, folderID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE shared_tracks SET folder_id = ?, custom_order = ? WHERE id = ?`,
			nullID(folderID), nullOrder(order), trackID)
		if err != nil {
			return fmt.Errorf("organizing shared track: %w", err)
		}
		return mustAffect(res, fmt.Sprintf("shared track %d", trackID))
	})
}

// LeaveSharedProject removes the user from a project shared with them.
func (s *SQLiteStore) LeaveSharedProject(ctx context.Context, publicID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE public_id = ? AND shared_by IS NOT NULL`, publicID)
	if err != nil {
		return fmt.Errorf("leaving project: %w", err)
	}
	return mustAffect(res, "shared project "+publicID)
}

// LeaveSharedTrack removes a shared track from the user's library.
func (s *SQLiteStore) LeaveSharedTrack(ctx context.Context, trackID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shared_tracks WHERE id = ?`, trackID)
	if err != nil {
		return fmt.Errorf("leaving track: %w", err)
	}
	return mustAffect(res, fmt.Sprintf("shared track %d", trackID))
}

// ── Seeding ─────────────────────────────────────────────────────────────────

// AddProject creates an owned project.
func (s *SQLiteStore) AddProject(ctx context.Context, name, owner, coverURL string, folderID int64) (Project, error) {
	return s.insertProject(ctx, name, owner, coverURL, nil, folderID)
}

// AddSharedProject records a project another user shared with this one.
func (s *SQLiteStore) AddSharedProject(ctx context.Context, name, sharedBy, coverURL string, folderID int64) (Project, error) {
	if sharedBy == "" {
		return Project{}, fmt.Errorf("shared project needs a sharer: %w", ErrInvalid)
	}
	return s.insertProject(ctx, name, sharedBy, coverURL, sharedBy, folderID)
}

func (s *SQLiteStore) insertProject(ctx context.Context, name, owner, coverURL string, sharedBy any, folderID int64) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, fmt.Errorf("project name is required: %w", ErrInvalid)
	}
	var out Project
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireFolder(ctx, tx, folderID); err != nil {
			return err
		}
		now := nowMs()
		res, err := tx.ExecContext(ctx, `INSERT INTO projects(public_id, name, cover_url, owner_username, shared_by, folder_id, created_at, updated_at)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?)`, newPublicID(), name, coverURL, owner, sharedBy, nullID(folderID), now, now)
		if err != nil {
			return fmt.Errorf("adding project: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		out, err = scanProject(tx.QueryRowContext(ctx, `SELECT `+projectCols+` FROM projects WHERE id = ?`, id))
		return err
	})
	return out, err
}

// AddSharedTrack records a track shared with the user. ID and PublicID are
// assigned by the store.
func (s *SQLiteStore) AddSharedTrack(ctx context.Context, t SharedTrack) (SharedTrack, error) {
	if strings.TrimSpace(t.Title) == "" {
		return SharedTrack{}, fmt.Errorf("track title is required: %w", ErrInvalid)
	}
	t.PublicID = newPublicID()
	if t.ProjectPublicID == "" {
		t.ProjectPublicID = newPublicID()
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO shared_tracks(public_id, title, artist, cover_url, project_name, project_id,
		project_public_id, shared_by, can_download, duration_seconds, folder_id)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.PublicID, t.Title, t.Artist, t.CoverURL, t.ProjectName, t.ProjectID, t.ProjectPublicID,
		t.SharedByUsername, t.CanDownload, t.DurationSeconds, nullID(t.FolderID))
	if err != nil {
		return SharedTrack{}, fmt.Errorf("adding shared track: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return SharedTrack{}, err
	}
	return t, nil
}
