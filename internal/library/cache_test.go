package library

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingService counts reads reaching the wrapped store.
type countingService struct {
	Service
	projectReads int
}

func (c *countingService) Projects(ctx context.Context, folderID int64) ([]Project, error) {
	c.projectReads++
	return c.Service.Projects(ctx, folderID)
}

func TestCachedServiceServesReadsWithinTTL(t *testing.T) {
	ctx := context.Background()
	inner := &countingService{Service: openTestStore(t)}
	c := NewCachedService(inner, time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	_, err := c.Projects(ctx, 0)
	require.NoError(t, err)
	_, err = c.Projects(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.projectReads)

	now = now.Add(2 * time.Minute)
	_, err = c.Projects(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.projectReads)
}

func TestCachedServiceWritesInvalidate(t *testing.T) {
	ctx := context.Background()
	inner := &countingService{Service: openTestStore(t)}
	c := NewCachedService(inner, time.Minute)

	before, err := c.Folders(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, before)

	_, err = c.CreateFolder(ctx, "Fresh", 0)
	require.NoError(t, err)

	after, err := c.Folders(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, after, 1)
}

func TestCachedServiceKeepsFailedWritesCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingService{Service: openTestStore(t)}
	c := NewCachedService(inner, time.Minute)

	_, err := c.Projects(ctx, 0)
	require.NoError(t, err)
	require.Error(t, c.MoveFolder(ctx, 42, 0))
	_, err = c.Projects(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.projectReads)
}

// pausingService parks the first Projects call after it has read, until
// resume is closed.
type pausingService struct {
	Service
	pause  atomic.Bool
	read   chan struct{}
	resume chan struct{}
}

func (p *pausingService) Projects(ctx context.Context, folderID int64) ([]Project, error) {
	ps, err := p.Service.Projects(ctx, folderID)
	if p.pause.CompareAndSwap(true, false) {
		close(p.read)
		<-p.resume
	}
	return ps, err
}

func TestCachedServiceDropsReadsThatStraddleAWrite(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	p, err := store.AddProject(ctx, "Demo", "me", "", 0)
	require.NoError(t, err)
	f, err := store.CreateFolder(ctx, "Inbox", 0)
	require.NoError(t, err)

	inner := &pausingService{Service: store, read: make(chan struct{}), resume: make(chan struct{})}
	inner.pause.Store(true)
	c := NewCachedService(inner, time.Minute)

	done := make(chan []Project)
	go func() {
		ps, _ := c.Projects(ctx, 0)
		done <- ps
	}()
	<-inner.read
	require.NoError(t, c.MoveProject(ctx, p.PublicID, f.ID))
	close(inner.resume)
	assert.Len(t, <-done, 1, "the slow read saw the old state")

	ps, err := c.Projects(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, ps)
}
