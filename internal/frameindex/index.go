// Package frameindex holds the in-memory frame catalogue: a brand → model →
// size → year selection tree, the normalized frame population and the
// nearest-frame ranker. Each load builds a new immutable Snapshot and
// publishes it atomically; readers never observe a partially built one.
package frameindex

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
)

// Source delivers the raw catalogue. Implementations own transport,
// decoding, validation and timeouts.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]frame.Record, error)
}

// Options configure how snapshots are built.
type Options struct {
	Rider           frame.Rider
	DuplicatePolicy DuplicatePolicy
	Now             func() time.Time
}

type Index struct {
	source  Source
	opts    Options
	loadMu  sync.Mutex
	version uint64
	current atomic.Pointer[Snapshot]
}

func New(source Source, opts Options) *Index {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Index{source: source, opts: opts}
}

// Load fetches the catalogue and publishes a new snapshot. Any failure,
// including cancellation of ctx, returns a *LoadError and leaves the current
// snapshot untouched. Concurrent calls are serialised.
func (i *Index) Load(ctx context.Context) (*Snapshot, error) {
	i.loadMu.Lock()
	defer i.loadMu.Unlock()

	records, err := i.source.Fetch(ctx)
	if err != nil {
		return nil, i.loadError(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, i.loadError(err)
	}
	snap, err := NewSnapshot(records, i.opts.Rider, i.opts.DuplicatePolicy)
	if err != nil {
		return nil, i.loadError(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, i.loadError(err)
	}

	i.version++
	snap.Version = i.version
	snap.LoadedAt = i.opts.Now().UTC()
	snap.Source = i.source.Name()
	i.current.Store(snap)
	return snap, nil
}

func (i *Index) loadError(err error) error {
	return &LoadError{Source: i.source.Name(), Err: err}
}

// Snapshot returns the published snapshot, or ErrNotLoaded before the first
// successful load.
func (i *Index) Snapshot() (*Snapshot, error) {
	snap := i.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

// Loaded reports whether a snapshot has been published.
func (i *Index) Loaded() bool {
	return i.current.Load() != nil
}

// SourceName identifies where the index loads from.
func (i *Index) SourceName() string {
	return i.source.Name()
}
