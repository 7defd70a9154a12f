package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Akashdeep-Patra/crate/internal/library"
)

func TestSeedThenList(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	db := filepath.Join(t.TempDir(), "crate.db")

	root := buildRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"seed", "--db", db})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), db)

	root = buildRootCmd()
	out.Reset()
	root.SetOut(&out)
	root.SetArgs([]string{"ls", "--db", db, "--json"})
	require.NoError(t, root.Execute())

	var entries []lsEntry
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	require.NotEmpty(t, entries)

	// Folders come first, tracks last.
	assert.Equal(t, "folder", entries[0].Kind)
	assert.Equal(t, "Sketches", entries[0].Name)
	assert.Equal(t, "track", entries[len(entries)-1].Kind)

	var shared []string
	for _, e := range entries {
		if e.Kind == "project" && e.SharedBy != "" {
			shared = append(shared, e.Name)
		}
	}
	assert.ElementsMatch(t, []string{"Remix Pack", "Live at Vault"}, shared)
}

func TestListInsideFolder(t *testing.T) {
	ctx := context.Background()
	store, err := library.OpenSQLite(ctx, filepath.Join(t.TempDir(), "crate.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	require.NoError(t, seed(ctx, store))

	folders, err := store.Folders(ctx, 0)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	snap, err := library.Load(ctx, store, folders[0].ID)
	require.NoError(t, err)
	assert.Len(t, snap.Projects, 2)
}

func TestWriteEntriesTable(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeEntries(&out, []lsEntry{
		{ID: "folder-1", Kind: "folder", Name: "Sketches", Items: 2},
		{ID: "7", Kind: "project", Name: "Remix Pack", SharedBy: "sam"},
	}, false))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "folder"))
	assert.Contains(t, lines[1], "from sam")
}

func TestVersionJSON(t *testing.T) {
	root := buildRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--json"})
	require.NoError(t, root.Execute())

	var info map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, version, info["version"])
}
