package library

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Load fetches the authoritative snapshot of one scope. The three
// collections are independent, so they are fetched concurrently.
func Load(ctx context.Context, svc Service, scope int64) (Snapshot, error) {
	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Projects, err = svc.Projects(ctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Folders, err = svc.Folders(ctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		snap.SharedTracks, err = svc.SharedTracks(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// TracksInScope filters shared tracks to those filed directly in scope.
// Tracks with no folder belong to the root.
func TracksInScope(tracks []SharedTrack, scope int64) []SharedTrack {
	var out []SharedTrack
	for _, t := range tracks {
		if t.FolderID == scope {
			out = append(out, t)
		}
	}
	return out
}
