// Package pathalloc derives the session-unique upload folder and the
// sequential per-file storage paths. The folder base is fetched once from the
// time authority and memoized for the rest of the flow; the file counter is
// monotonic, never reset and never reused.
package pathalloc

import (
	"context"
	"crypto/rand"
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// DefaultRoot is the storage prefix all wizard uploads live under.
const DefaultRoot = "RoomGenerator/EditorQuickFormV2"

const randSuffixLen = 16

// TimeSource is the remote time authority. It returns a server-formatted
// timestamp of the fixed lexical shape YYYY-MM-DDTHH-mm-ss-SSS.
type TimeSource interface {
	FilenameTimestamp(ctx context.Context) (string, error)
}

// Allocator owns one flow's folder base and file counter. Constructed once
// per user flow and handed to whichever controller needs it; there is no
// ambient singleton.
type Allocator struct {
	root    string
	source  TimeSource
	group   singleflight.Group
	counter atomic.Int64

	mu   sync.Mutex
	base string
}

// New builds an allocator rooted at root (DefaultRoot when empty).
func New(root string, source TimeSource) *Allocator {
	if strings.TrimSpace(root) == "" {
		root = DefaultRoot
	}
	return &Allocator{root: strings.TrimRight(root, "/"), source: source}
}

// Base returns the memoized folder base, creating it on first call. The base
// looks like `<root>/<YYYY-MM>/<timestamp>_<rand16>/`. Concurrent first
// callers are collapsed into a single time-authority fetch; a failed fetch is
// not memoized, so the next caller retries. If the time authority fails the
// error goes to the caller — no synthetic fallback base exists.
func (a *Allocator) Base(ctx context.Context) (string, error) {
	a.mu.Lock()
	if a.base != "" {
		base := a.base
		a.mu.Unlock()
		return base, nil
	}
	a.mu.Unlock()

	v, err, _ := a.group.Do("base", func() (any, error) {
		a.mu.Lock()
		if a.base != "" {
			base := a.base
			a.mu.Unlock()
			return base, nil
		}
		a.mu.Unlock()

		ts, err := a.source.FilenameTimestamp(ctx)
		if err != nil {
			return "", fmt.Errorf("fetch server time: %w", err)
		}
		if len(ts) < 7 {
			return "", fmt.Errorf("malformed server timestamp %q", ts)
		}
		base := fmt.Sprintf("%s/%s/%s_%s/", a.root, ts[:7], ts, randAlnum(randSuffixLen))

		a.mu.Lock()
		a.base = base
		a.mu.Unlock()
		return base, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// FolderName returns the last segment of the folder base, the value handed to
// the room-creation procedure as formId.
func (a *Allocator) FolderName(ctx context.Context) (string, error) {
	base, err := a.Base(ctx)
	if err != nil {
		return "", err
	}
	trimmed := strings.TrimRight(base, "/")
	return trimmed[strings.LastIndex(trimmed, "/")+1:], nil
}

// LogoPath returns `<base>logo.jpg`. The logo name is fixed and independent
// of the artwork counter.
func (a *Allocator) LogoPath(ctx context.Context) (string, error) {
	base, err := a.Base(ctx)
	if err != nil {
		return "", err
	}
	return base + "logo.jpg", nil
}

// NextArtworkPath increments the shared counter and returns
// `<base><counter><ext>` where ext is the normalized extension of the
// original file name.
func (a *Allocator) NextArtworkPath(ctx context.Context, originalName string) (string, error) {
	base, err := a.Base(ctx)
	if err != nil {
		return "", err
	}
	n := a.counter.Add(1)
	return fmt.Sprintf("%s%d%s", base, n, normalizeExt(originalName)), nil
}

// normalizeExt lower-cases the extension and rewrites jpeg to jpg. A name
// without an extension yields an empty string.
func normalizeExt(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	return ext
}

const alnumPool = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randAlnum(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	for i := range buf {
		buf[i] = alnumPool[int(buf[i])%len(alnumPool)]
	}
	return string(buf)
}
