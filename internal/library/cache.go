package library

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CachedService wraps a Service with a TTL cache for reads. Every write
// invalidates the whole cache so the next read is authoritative.
//
// A single refresh cycle reads the same scope several times (snapshot load,
// folder contents for an empty, status bar counts); the cache collapses
// those into one round trip per key.
type CachedService struct {
	inner Service
	ttl   time.Duration
	now   func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
	// gen counts invalidations. A load that straddles one is not stored.
	gen uint64
}

// maxCacheEntries caps the number of entries in the cache. When exceeded,
// expired entries are evicted and, failing that, the cache is flushed.
const maxCacheEntries = 64

type cacheEntry struct {
	val    any
	err    error
	expiry time.Time
}

// Compile-time check.
var _ Service = (*CachedService)(nil)

// NewCachedService wraps an existing Service with a TTL cache.
func NewCachedService(inner Service, ttl time.Duration) *CachedService {
	return &CachedService{
		inner: inner,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]cacheEntry, 16),
	}
}

// Invalidate clears all cached entries.
func (c *CachedService) Invalidate() {
	c.mu.Lock()
	c.cache = make(map[string]cacheEntry, 16)
	c.gen++
	c.mu.Unlock()
}

// get returns a live entry, or the current generation for a later set.
func (c *CachedService) get(key string) (e cacheEntry, ok bool, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.cache[key]
	if !found || c.now().After(e.expiry) {
		return cacheEntry{}, false, c.gen
	}
	return e, true, c.gen
}

// set stores a value loaded during generation gen. Values from before the
// latest invalidation are dropped.
func (c *CachedService) set(key string, gen uint64, val any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if len(c.cache) >= maxCacheEntries {
		now := c.now()
		for k, e := range c.cache {
			if now.After(e.expiry) {
				delete(c.cache, k)
			}
		}
		if len(c.cache) >= maxCacheEntries {
			c.cache = make(map[string]cacheEntry, 16)
		}
	}
	c.cache[key] = cacheEntry{val: val, err: err, expiry: c.now().Add(c.ttl)}
}

// cached serves key from the cache or loads and stores it. Context
// cancellations are not cached.
func cached[T any](ctx context.Context, c *CachedService, key string, load func(context.Context) (T, error)) (T, error) {
	e, ok, gen := c.get(key)
	if ok {
		return e.val.(T), e.err
	}
	loaded, err := load(ctx)
	if ctx.Err() == nil {
		c.set(key, gen, loaded, err)
	}
	return loaded, err
}

// invalidateAndReturn is a helper for write methods.
func (c *CachedService) invalidateAndReturn(err error) error {
	if err == nil {
		c.Invalidate()
	}
	return err
}

// ── Reads (cached) ──────────────────────────────────────────────────────────

// Location delegates to the inner service.
func (c *CachedService) Location() string { return c.inner.Location() }

// Projects returns the projects in folderID (cached).
func (c *CachedService) Projects(ctx context.Context, folderID int64) ([]Project, error) {
	return cached(ctx, c, fmt.Sprintf("projects:%d", folderID), func(ctx context.Context) ([]Project, error) {
		return c.inner.Projects(ctx, folderID)
	})
}

// Folders returns the folders under parentID (cached).
func (c *CachedService) Folders(ctx context.Context, parentID int64) ([]Folder, error) {
	return cached(ctx, c, fmt.Sprintf("folders:%d", parentID), func(ctx context.Context) ([]Folder, error) {
		return c.inner.Folders(ctx, parentID)
	})
}

// SharedTracks returns every shared track (cached).
func (c *CachedService) SharedTracks(ctx context.Context) ([]SharedTrack, error) {
	return cached(ctx, c, "tracks", c.inner.SharedTracks)
}

// Folder returns one folder (cached).
func (c *CachedService) Folder(ctx context.Context, id int64) (Folder, error) {
	return cached(ctx, c, fmt.Sprintf("folder:%d", id), func(ctx context.Context) (Folder, error) {
		return c.inner.Folder(ctx, id)
	})
}

// FolderContents returns a folder's contents (cached).
func (c *CachedService) FolderContents(ctx context.Context, id int64) (*FolderContents, error) {
	return cached(ctx, c, fmt.Sprintf("contents:%d", id), func(ctx context.Context) (*FolderContents, error) {
		return c.inner.FolderContents(ctx, id)
	})
}

// ── Writes (invalidate cache) ───────────────────────────────────────────────

// CreateFolder creates a folder and invalidates the cache.
func (c *CachedService) CreateFolder(ctx context.Context, name string, parentID int64) (Folder, error) {
	f, err := c.inner.CreateFolder(ctx, name, parentID)
	return f, c.invalidateAndReturn(err)
}

// RenameFolder renames a folder and invalidates the cache.
func (c *CachedService) RenameFolder(ctx context.Context, id int64, name string) (Folder, error) {
	f, err := c.inner.RenameFolder(ctx, id, name)
	return f, c.invalidateAndReturn(err)
}

// MoveFolder reparents a folder and invalidates the cache.
func (c *CachedService) MoveFolder(ctx context.Context, id, parentID int64) error {
	return c.invalidateAndReturn(c.inner.MoveFolder(ctx, id, parentID))
}

// EmptyFolder empties a folder and invalidates the cache.
func (c *CachedService) EmptyFolder(ctx context.Context, id int64) error {
	return c.invalidateAndReturn(c.inner.EmptyFolder(ctx, id))
}

// MoveProject moves an owned project and invalidates the cache.
func (c *CachedService) MoveProject(ctx context.Context, publicID string, folderID int64) error {
	return c.invalidateAndReturn(c.inner.MoveProject(ctx, publicID, folderID))
}

// MoveProjects moves owned projects and invalidates the cache.
func (c *CachedService) MoveProjects(ctx context.Context, folderID int64, moves []ProjectMove) error {
	return c.invalidateAndReturn(c.inner.MoveProjects(ctx, folderID, moves))
}

// OrganizeSharedProject files a shared project and invalidates the cache.
func (c *CachedService) OrganizeSharedProject(ctx context.Context, projectID, folderID int64, order int) error {
	return c.invalidateAndReturn(c.inner.OrganizeSharedProject(ctx, projectID, folderID, order))
}

// OrganizeSharedTrack files a shared track and invalidates the cache.
func (c *CachedService) OrganizeSharedTrack(ctx context.Context, trackID, folderID int64, order int) error {
	return c.invalidateAndReturn(c.inner.OrganizeSharedTrack(ctx, trackID, folderID, order))
}

// LeaveSharedProject leaves a shared project and invalidates the cache.
func (c *CachedService) LeaveSharedProject(ctx context.Context, publicID string) error {
	return c.invalidateAndReturn(c.inner.LeaveSharedProject(ctx, publicID))
}

// LeaveSharedTrack leaves a shared track and invalidates the cache.
func (c *CachedService) LeaveSharedTrack(ctx context.Context, trackID int64) error {
	return c.invalidateAndReturn(c.inner.LeaveSharedTrack(ctx, trackID))
}
