// Package cache implements the invalidation side-channel used by the chat
// subsystem: after any mutation that could change a rendered chat list or
// chat detail view, the affected logical path is marked stale so the next
// read recomputes it.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Invalidator receives best-effort notifications that the cached view for a
// given path must be recomputed before next use. Implementations must never
// panic and never block the caller.
type Invalidator interface {
	Invalidate(path string)
}

// PathVersions is an in-memory Invalidator keeping a monotonic version per
// path. The HTTP layer folds the current version into ETags, so bumping a
// path's version is enough to defeat any conditional-response cache.
//
// The zero value is ready to use and safe for concurrent access.
type PathVersions struct {
	versions sync.Map // path -> *atomic.Int64
}

// Invalidate bumps the version for path. Empty paths are ignored.
func (p *PathVersions) Invalidate(path string) {
	if path == "" {
		return
	}
	v, _ := p.versions.LoadOrStore(path, new(atomic.Int64))
	n := v.(*atomic.Int64).Add(1)
	log.Debug().Str("path", path).Int64("version", n).Msg("cache invalidated")
}

// Version returns the current version for path; 0 means the path has never
// been invalidated.
func (p *PathVersions) Version(path string) int64 {
	if v, ok := p.versions.Load(path); ok {
		return v.(*atomic.Int64).Load()
	}
	return 0
}

// Noop discards all invalidation signals. Useful in tests and tooling where
// no view cache exists.
type Noop struct{}

// Invalidate implements Invalidator.
func (Noop) Invalidate(string) {}
