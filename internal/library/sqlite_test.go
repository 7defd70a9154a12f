package library

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateFolderAssignsSiblingOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	a, err := s.CreateFolder(ctx, "Demos", 0)
	require.NoError(t, err)
	b, err := s.CreateFolder(ctx, "  Mixes  ", 0)
	require.NoError(t, err)

	assert.Equal(t, 0, a.FolderOrder)
	assert.Equal(t, 1, b.FolderOrder)
	assert.Equal(t, "Mixes", b.Name)

	_, err = s.CreateFolder(ctx, "   ", 0)
	require.ErrorIs(t, err, ErrInvalid)

	_, err = s.CreateFolder(ctx, "Orphan", 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMoveProjectsRejectsSharedProjects(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	f, err := s.CreateFolder(ctx, "Album", 0)
	require.NoError(t, err)
	own, err := s.AddProject(ctx, "Intro", "me", "", 0)
	require.NoError(t, err)
	shared, err := s.AddSharedProject(ctx, "Collab", "sam", "", 0)
	require.NoError(t, err)
	assert.True(t, shared.IsShared)
	assert.Equal(t, "sam", shared.SharedByUsername)

	require.NoError(t, s.MoveProjects(ctx, f.ID, []ProjectMove{{PublicID: own.PublicID, CustomOrder: 0}}))
	err = s.MoveProject(ctx, shared.PublicID, f.ID)
	require.ErrorIs(t, err, ErrInvalid)

	err = s.OrganizeSharedProject(ctx, own.ID, f.ID, NoOrder)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.OrganizeSharedProject(ctx, shared.ID, f.ID, 1))

	inside, err := s.Projects(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, inside, 2)
	assert.Equal(t, own.PublicID, inside[0].PublicID)
	assert.Equal(t, shared.PublicID, inside[1].PublicID)

	root, err := s.Projects(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, root)
}

func TestMoveFolderRejectsCycles(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	outer, err := s.CreateFolder(ctx, "Outer", 0)
	require.NoError(t, err)
	inner, err := s.CreateFolder(ctx, "Inner", outer.ID)
	require.NoError(t, err)

	require.ErrorIs(t, s.MoveFolder(ctx, outer.ID, outer.ID), ErrConflict)
	require.ErrorIs(t, s.MoveFolder(ctx, outer.ID, inner.ID), ErrConflict)
	require.ErrorIs(t, s.MoveFolder(ctx, inner.ID, 12345), ErrNotFound)

	require.NoError(t, s.MoveFolder(ctx, inner.ID, 0))
	got, err := s.Folder(ctx, inner.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ParentID)
}

func TestEmptyFolderMovesContentsToParent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	parent, err := s.CreateFolder(ctx, "Parent", 0)
	require.NoError(t, err)
	doomed, err := s.CreateFolder(ctx, "Doomed", parent.ID)
	require.NoError(t, err)
	child, err := s.CreateFolder(ctx, "Child", doomed.ID)
	require.NoError(t, err)
	p, err := s.AddProject(ctx, "Song", "me", "", doomed.ID)
	require.NoError(t, err)
	tr, err := s.AddSharedTrack(ctx, SharedTrack{Title: "Stem", SharedByUsername: "kim", FolderID: doomed.ID})
	require.NoError(t, err)

	contents, err := s.FolderContents(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Len(t, contents.Folders, 1)
	assert.Len(t, contents.Projects, 1)
	assert.Len(t, contents.SharedTracks, 1)

	require.NoError(t, s.EmptyFolder(ctx, doomed.ID))

	_, err = s.Folder(ctx, doomed.ID)
	require.ErrorIs(t, err, ErrNotFound)

	projects, err := s.Projects(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, p.PublicID, projects[0].PublicID)

	folders, err := s.Folders(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, child.ID, folders[0].ID)

	tracks, err := s.SharedTracks(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, tr.ID, tracks[0].ID)
	assert.Zero(t, tracks[0].FolderID)
}

func TestLeaveSharedItems(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	own, err := s.AddProject(ctx, "Mine", "me", "", 0)
	require.NoError(t, err)
	shared, err := s.AddSharedProject(ctx, "Theirs", "ana", "", 0)
	require.NoError(t, err)
	tr, err := s.AddSharedTrack(ctx, SharedTrack{Title: "Loop", SharedByUsername: "ana"})
	require.NoError(t, err)

	require.ErrorIs(t, s.LeaveSharedProject(ctx, own.PublicID), ErrNotFound)
	require.NoError(t, s.LeaveSharedProject(ctx, shared.PublicID))
	require.NoError(t, s.LeaveSharedTrack(ctx, tr.ID))
	require.ErrorIs(t, s.LeaveSharedTrack(ctx, tr.ID), ErrNotFound)

	left, err := s.Projects(ctx, 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, own.PublicID, left[0].PublicID)
}

func TestRenameFolder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	f, err := s.CreateFolder(ctx, "New Folder", 0)
	require.NoError(t, err)
	got, err := s.RenameFolder(ctx, f.ID, "Live Sets")
	require.NoError(t, err)
	assert.Equal(t, "Live Sets", got.Name)

	_, err = s.RenameFolder(ctx, f.ID+1, "Nope")
	require.ErrorIs(t, err, ErrNotFound)
}
