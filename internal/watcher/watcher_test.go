package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevant(t *testing.T) {
	ev := func(name string, op fsnotify.Op) fsnotify.Event {
		return fsnotify.Event{Name: filepath.Join("/tmp", name), Op: op}
	}
	assert.True(t, relevant("library.db", ev("library.db", fsnotify.Write)))
	assert.True(t, relevant("library.db", ev("library.db-wal", fsnotify.Write)))
	assert.True(t, relevant("library.db", ev("library.db-journal", fsnotify.Create)))
	assert.False(t, relevant("library.db", ev("library.db-shm", fsnotify.Write)))
	assert.False(t, relevant("library.db", ev("library.db", fsnotify.Chmod)))
	assert.False(t, relevant("library.db", ev("other.db-wal", fsnotify.Write)))
	assert.False(t, relevant("library.db", ev("library.dbx", fsnotify.Write)))
}

func TestWatchCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "library.db")
	require.NoError(t, os.WriteFile(db, nil, 0o600))

	ch, stop, err := Watch(db, 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer stop()

	for i := range 3 {
		require.NoError(t, os.WriteFile(db+"-wal", []byte{byte(i)}, 0o600))
	}

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no event after writing the wal")
	}

	// Let stragglers from the burst settle.
	time.Sleep(100 * time.Millisecond)
	select {
	case <-ch:
	default:
	}

	// Noise in the same directory stays quiet.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	select {
	case <-ch:
		t.Fatal("unexpected event for an unrelated file")
	case <-time.After(150 * time.Millisecond):
	}
}
