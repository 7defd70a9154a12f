package grid

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Akashdeep-Patra/crate/internal/library"
)

// ProjectLookup finds a project tile in the live grid by public id.
type ProjectLookup func(publicID string) (ProjectItem, bool)

// ActionsConfig configures Actions.
type ActionsConfig struct {
	// Scope is the folder new folders are created in (0 = root).
	Scope int64
	// Settle keeps the guard held after a successful mutation.
	Settle time.Duration
	// Lookup decides whether a project is owned or shared. Projects it
	// cannot find are treated as owned.
	Lookup ProjectLookup
	// Refresh asks for an authoritative refetch after a mutation.
	Refresh func()
	Logger  *slog.Logger
}

// Actions persists grid operations through a library.Service. Every call
// holds the Guard while it runs and for the settle window afterwards.
type Actions struct {
	svc   library.Service
	guard *Guard
	cfg   ActionsConfig
	log   *slog.Logger
}

// Compile-time checks.
var (
	_ Mutator = (*Actions)(nil)
	_ Backend = (*Actions)(nil)
)

// NewActions creates Actions over svc sharing guard with the engine.
func NewActions(svc library.Service, guard *Guard, cfg ActionsConfig) *Actions {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Actions{svc: svc, guard: guard, cfg: cfg, log: log}
}

// run wraps one persisted operation in the guard. A failure ends the
// settle windows of the steps before it. The engine logs failures with
// the tiles involved, so run only traces them.
func (a *Actions) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	a.guard.Hold()
	if err := fn(ctx); err != nil {
		a.guard.Fail()
		a.log.DebugContext(ctx, "mutation failed", "op", op, "error", err)
		return err
	}
	a.guard.Release(a.cfg.Settle)
	a.log.DebugContext(ctx, "mutation applied", "op", op)
	if a.cfg.Refresh != nil {
		a.cfg.Refresh()
	}
	return nil
}

// CreateFolder creates a folder in the current scope and fills it: owned
// projects move in one batch with their position as custom order, shared
// projects are organized and listed folders reparented concurrently.
func (a *Actions) CreateFolder(ctx context.Context, name string, projectIDs []string, folderIDs []int64) (int64, error) {
	var id int64
	err := a.run(ctx, "create_folder", func(ctx context.Context) error {
		f, err := a.svc.CreateFolder(ctx, name, a.cfg.Scope)
		if err != nil {
			return fmt.Errorf("creating folder: %w", err)
		}

		var owned []library.ProjectMove
		type sharedMove struct {
			id    int64
			order int
		}
		var shared []sharedMove
		for i, pid := range projectIDs {
			if a.cfg.Lookup != nil {
				if item, ok := a.cfg.Lookup(pid); ok && item.Shared {
					shared = append(shared, sharedMove{id: item.Project.ID, order: i})
					continue
				}
			}
			owned = append(owned, library.ProjectMove{PublicID: pid, CustomOrder: i})
		}

		if len(owned) > 0 {
			if err := a.svc.MoveProjects(ctx, f.ID, owned); err != nil {
				return fmt.Errorf("moving projects into folder %d: %w", f.ID, err)
			}
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, s := range shared {
			g.Go(func() error {
				return a.svc.OrganizeSharedProject(gctx, s.id, f.ID, s.order)
			})
		}
		for _, child := range folderIDs {
			g.Go(func() error {
				return a.svc.MoveFolder(gctx, child, f.ID)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("filling folder %d: %w", f.ID, err)
		}
		id = f.ID
		return nil
	})
	return id, err
}

// MoveProjectToFolder moves an owned project. With a custom order it goes
// through the batch call so the order is recorded.
func (a *Actions) MoveProjectToFolder(ctx context.Context, publicID string, folderID int64, order int) error {
	return a.run(ctx, "move_project", func(ctx context.Context) error {
		if order != library.NoOrder {
			return a.svc.MoveProjects(ctx, folderID, []library.ProjectMove{{PublicID: publicID, CustomOrder: order}})
		}
		return a.svc.MoveProject(ctx, publicID, folderID)
	})
}

// MoveFolderToFolder reparents a folder; targetID 0 moves it to the root.
func (a *Actions) MoveFolderToFolder(ctx context.Context, folderID, targetID int64) error {
	return a.run(ctx, "move_folder", func(ctx context.Context) error {
		return a.svc.MoveFolder(ctx, folderID, targetID)
	})
}

// OrganizeSharedProject files a shared project.
func (a *Actions) OrganizeSharedProject(ctx context.Context, projectID, folderID int64, order int) error {
	return a.run(ctx, "organize_shared_project", func(ctx context.Context) error {
		return a.svc.OrganizeSharedProject(ctx, projectID, folderID, order)
	})
}

// OrganizeSharedTrack files a shared track.
func (a *Actions) OrganizeSharedTrack(ctx context.Context, trackID, folderID int64, order int) error {
	return a.run(ctx, "organize_shared_track", func(ctx context.Context) error {
		return a.svc.OrganizeSharedTrack(ctx, trackID, folderID, order)
	})
}

// FolderContents reads a folder's contents. Reads do not take the guard.
func (a *Actions) FolderContents(ctx context.Context, folderID int64) (*library.FolderContents, error) {
	return a.svc.FolderContents(ctx, folderID)
}

// EmptyFolder moves a folder's contents up a level and deletes it.
func (a *Actions) EmptyFolder(ctx context.Context, folderID int64) error {
	return a.run(ctx, "empty_folder", func(ctx context.Context) error {
		return a.svc.EmptyFolder(ctx, folderID)
	})
}

// RenameFolder renames a folder.
func (a *Actions) RenameFolder(ctx context.Context, folderID int64, name string) error {
	return a.run(ctx, "rename_folder", func(ctx context.Context) error {
		_, err := a.svc.RenameFolder(ctx, folderID, name)
		return err
	})
}

// LeaveSharedProject leaves a shared project.
func (a *Actions) LeaveSharedProject(ctx context.Context, publicID string) error {
	return a.run(ctx, "leave_project", func(ctx context.Context) error {
		return a.svc.LeaveSharedProject(ctx, publicID)
	})
}

// LeaveSharedTrack leaves a shared track.
func (a *Actions) LeaveSharedTrack(ctx context.Context, trackID int64) error {
	return a.run(ctx, "leave_track", func(ctx context.Context) error {
		return a.svc.LeaveSharedTrack(ctx, trackID)
	})
}
