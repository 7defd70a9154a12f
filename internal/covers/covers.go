// Package covers loads project cover art and shrinks it to thumbnails the
// grid paints with half-block characters. Loading is best effort: a cover
// that cannot be fetched or decoded simply leaves the tile without art.
package covers

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/Akashdeep-Patra/crate/internal/library"
)

// maxCoverBytes caps how much of a cover is read.
const maxCoverBytes = 8 << 20

// fetchTimeout bounds one shared fetch, independent of the callers waiting
// on it.
const fetchTimeout = 10 * time.Second

// Thumb is a scaled cover: W×H pixels in row-major order.
type Thumb struct {
	W, H    int
	Pix     []color.RGBA
	Average color.RGBA
}

// At returns the pixel at (x, y).
func (t Thumb) At(x, y int) color.RGBA {
	return t.Pix[y*t.W+x]
}

// Loader fetches covers from files or http(s) URLs and caches thumbnails
// by source. It is safe for concurrent use.
type Loader struct {
	client *http.Client
	w, h   int
	log    *slog.Logger
	// OnLoad, if set, is called after a thumbnail lands in the cache.
	OnLoad func(src string)

	group  singleflight.Group
	mu     sync.RWMutex
	thumbs map[string]Thumb
}

// New creates a loader producing w×h pixel thumbnails.
func New(w, h int, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		client: &http.Client{Timeout: fetchTimeout},
		w:      w,
		h:      h,
		log:    log,
		thumbs: make(map[string]Thumb),
	}
}

// Preload loads a project's cover and waits at most until ctx is done.
// The fetch keeps going in the background after that and its result is
// still cached.
func (l *Loader) Preload(ctx context.Context, p library.Project) {
	if p.CoverURL == "" {
		return
	}
	if _, err := l.Load(ctx, p.CoverURL); err != nil {
		l.log.Debug("cover preload", "project", p.PublicID, "error", err)
	}
}

// Thumb returns a cached thumbnail without loading.
func (l *Loader) Thumb(src string) (Thumb, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.thumbs[src]
	return t, ok
}

// Load returns the thumbnail for src, fetching it once no matter how many
// callers ask concurrently.
func (l *Loader) Load(ctx context.Context, src string) (Thumb, error) {
	if t, ok := l.Thumb(src); ok {
		return t, nil
	}
	ch := l.group.DoChan(src, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		img, err := l.fetch(fctx, src)
		if err != nil {
			return Thumb{}, err
		}
		t := Scale(img, l.w, l.h)
		l.mu.Lock()
		l.thumbs[src] = t
		l.mu.Unlock()
		if l.OnLoad != nil {
			l.OnLoad(src)
		}
		return t, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return Thumb{}, r.Err
		}
		return r.Val.(Thumb), nil
	case <-ctx.Done():
		return Thumb{}, ctx.Err()
	}
}

func (l *Loader) fetch(ctx context.Context, src string) (image.Image, error) {
	rc, err := l.open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	img, _, err := image.Decode(io.LimitReader(rc, maxCoverBytes))
	if err != nil {
		return nil, fmt.Errorf("decoding cover %s: %w", src, err)
	}
	return img, nil
}

func (l *Loader) open(ctx context.Context, src string) (io.ReadCloser, error) {
	u, err := url.Parse(src)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain path (a one-letter scheme is a Windows drive).
		return os.Open(src)
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		return os.Open(u.Path)
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching cover: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetching cover %s: %s", src, resp.Status)
		}
		return resp.Body, nil
	default:
		return nil, fmt.Errorf("cover %s: unsupported scheme %q", src, u.Scheme)
	}
}

// Scale shrinks img to w×h and computes its average colour.
func Scale(img image.Image, w, h int) Thumb {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	t := Thumb{W: w, H: h, Pix: make([]color.RGBA, 0, w*h)}
	var r, g, b, a int
	for y := range h {
		for x := range w {
			c := dst.RGBAAt(x, y)
			t.Pix = append(t.Pix, c)
			r += int(c.R)
			g += int(c.G)
			b += int(c.B)
			a += int(c.A)
		}
	}
	if n := w * h; n > 0 {
		t.Average = color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n), A: uint8(a / n)}
	}
	return t
}
