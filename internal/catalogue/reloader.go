// Package catalogue keeps the frame index current. It runs loads on startup,
// on demand, on a timer and on file changes, and reports each outcome to the
// logs, Prometheus, the nearest cache and the event stream.
package catalogue

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/events"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frameindex"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/watch"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/tracing"
)

// Load triggers.
const (
	TriggerStartup    = "startup"
	TriggerManual     = "manual"
	TriggerInterval   = "interval"
	TriggerFileChange = "file_change"
)

// Index is the loadable frame index; *frameindex.Index satisfies it.
type Index interface {
	Load(ctx context.Context) (*frameindex.Snapshot, error)
	SourceName() string
}

// Invalidator drops cached results derived from an older snapshot.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Tracker receives catalogue events.
type Tracker interface {
	Track(event events.CatalogueEvent)
}

// Options wire optional collaborators. Nil fields are skipped.
type Options struct {
	Metrics *metrics.Metrics
	Cache   Invalidator
	Events  Tracker
	Now     func() time.Time
}

type Reloader struct {
	index  Index
	opts   Options
	logger *slog.Logger
}

func NewReloader(index Index, opts Options) *Reloader {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Reloader{
		index:  index,
		opts:   opts,
		logger: logger.WithComponent("catalogue-reloader").With("source", index.SourceName()),
	}
}

// Reload runs one load and reports its outcome. On failure the previously
// published snapshot stays in place.
func (r *Reloader) Reload(ctx context.Context, trigger string) (*frameindex.Snapshot, error) {
	log := logger.FromContext(ctx).With("component", "catalogue-reloader", "source", r.index.SourceName(), "trigger", trigger)
	traceID := logger.RequestID(ctx)
	if traceID == "" {
		traceID = trigger
	}
	ctx, span := tracing.StartSpan(ctx, "catalogue.load", traceID)
	span.SetAttr("trigger", trigger)
	defer func() {
		span.End()
		span.Log(ctx, log)
	}()

	start := r.opts.Now()
	snap, err := r.index.Load(ctx)
	elapsed := r.opts.Now().Sub(start)

	event := events.CatalogueEvent{
		Trigger:   trigger,
		Source:    r.index.SourceName(),
		LatencyMs: elapsed.Milliseconds(),
		Timestamp: r.opts.Now().UTC(),
	}
	if err != nil {
		log.Error("catalogue load failed", "error", err, "duration", elapsed)
		r.observe(trigger, "failure", elapsed, nil)
		event.Type = events.CatalogueLoadFailed
		event.Error = err.Error()
		span.SetAttr("error", err.Error())
		r.track(event)
		return nil, err
	}

	degenerate := ratioNames(snap.Stats().Degenerate())
	log.Info("catalogue loaded",
		"version", snap.Version,
		"frames", snap.Len(),
		"tuples", snap.Tuples(),
		"duration", elapsed,
	)
	if len(degenerate) > 0 {
		log.Warn("ratio scores undefined for this population", "ratios", degenerate)
	}
	span.SetAttr("version", snap.Version)
	r.observe(trigger, "success", elapsed, snap)
	if r.opts.Cache != nil {
		if err := r.opts.Cache.Invalidate(ctx); err != nil {
			log.Warn("nearest cache invalidation failed", "error", err)
		}
	}
	event.Type = events.CatalogueLoaded
	event.Version = snap.Version
	event.Frames = snap.Len()
	event.Tuples = snap.Tuples()
	event.Degenerate = degenerate
	r.track(event)
	return snap, nil
}

// RunInterval reloads every interval until ctx is done. A non-positive
// interval returns immediately.
func (r *Reloader) RunInterval(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	r.logger.Info("periodic reload enabled", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reload(ctx, TriggerInterval)
		}
	}
}

// RunOnChange reloads once per settled file change until ctx is done or
// changes is closed.
func (r *Reloader) RunOnChange(ctx context.Context, changes <-chan watch.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			if change.Op == watch.OpRemove {
				r.logger.Warn("catalogue file removed, keeping current snapshot", "path", change.Path)
				continue
			}
			r.logger.Info("catalogue file changed", "path", change.Path, "op", change.Op.String())
			r.Reload(ctx, TriggerFileChange)
		}
	}
}

func (r *Reloader) observe(trigger, status string, elapsed time.Duration, snap *frameindex.Snapshot) {
	m := r.opts.Metrics
	if m == nil {
		return
	}
	m.LoadsTotal.WithLabelValues(trigger, status).Inc()
	m.LoadDuration.Observe(elapsed.Seconds())
	if snap == nil {
		return
	}
	m.FramesLoaded.Set(float64(snap.Len()))
	m.FrameTuples.Set(float64(snap.Tuples()))
	m.SnapshotVersion.Set(float64(snap.Version))
	stats := snap.Stats()
	for _, kind := range frame.RatioKinds {
		v := 0.0
		if stats.For(kind).Degenerate() {
			v = 1
		}
		m.DegenerateRatios.WithLabelValues(kind.String()).Set(v)
	}
}

func (r *Reloader) track(event events.CatalogueEvent) {
	if r.opts.Events != nil {
		r.opts.Events.Track(event)
	}
}

func ratioNames(kinds []frame.RatioKind) []string {
	if len(kinds) == 0 {
		return nil
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}
