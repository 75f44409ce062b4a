// Package handler serves the frame index over HTTP: the cascading
// brand/model/size/year selection, frame lookup, nearest-frame ranking,
// population statistics and on-demand reload.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/catalogue"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frameindex"
	apperrors "github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/ratelimit"
)

// SnapshotProvider hands out the currently published snapshot.
type SnapshotProvider interface {
	Snapshot() (*frameindex.Snapshot, error)
}

// Reloader runs a catalogue load.
type Reloader interface {
	Reload(ctx context.Context, trigger string) (*frameindex.Snapshot, error)
}

// Config holds the handler's dependencies. Cache, Metrics and
// ReloadLimiter may be nil.
type Config struct {
	Index         SnapshotProvider
	Reloader      Reloader
	Cache         *cache.NearestCache
	Metrics       *metrics.Metrics
	ReloadLimiter *ratelimit.Limiter
	DefaultLimit  int
	MaxLimit      int
}

type Handler struct {
	index        SnapshotProvider
	reloader     Reloader
	cache        *cache.NearestCache
	metrics      *metrics.Metrics
	limiter      *ratelimit.Limiter
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

func New(cfg Config) *Handler {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = frameindex.DefaultNearest
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}
	return &Handler{
		index:        cfg.Index,
		reloader:     cfg.Reloader,
		cache:        cfg.Cache,
		metrics:      cfg.Metrics,
		limiter:      cfg.ReloadLimiter,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		logger:       slog.Default().With("component", "frame-handler"),
	}
}

// Register mounts the API routes on mux.
//
//	GET  /api/v1/brands
//	GET  /api/v1/brands/{brand}/models
//	GET  /api/v1/brands/{brand}/models/{model}/sizes
//	GET  /api/v1/brands/{brand}/models/{model}/sizes/{size}/years
//	GET  /api/v1/frames/lookup?brand=&model=&size=&year=
//	GET  /api/v1/frames/{id}
//	GET  /api/v1/frames/{id}/nearest?k=&dsd=&drop=&ratio_dsd_drop=&fork_rate=
//	GET  /api/v1/stats
//	POST /api/v1/reload
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/brands", h.Brands)
	mux.HandleFunc("GET /api/v1/brands/{brand}/models", h.Models)
	mux.HandleFunc("GET /api/v1/brands/{brand}/models/{model}/sizes", h.Sizes)
	mux.HandleFunc("GET /api/v1/brands/{brand}/models/{model}/sizes/{size}/years", h.Years)
	mux.HandleFunc("GET /api/v1/frames/lookup", h.Lookup)
	mux.HandleFunc("GET /api/v1/frames/{id}", h.Frame)
	mux.HandleFunc("GET /api/v1/frames/{id}/nearest", h.Nearest)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/reload", h.Reload)
}

func (h *Handler) Brands(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"brands": snap.Brands()})
}

func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	brand := r.PathValue("brand")
	models, err := snap.Models(brand)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"brand": brand, "models": models})
}

func (h *Handler) Sizes(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	brand, model := r.PathValue("brand"), r.PathValue("model")
	sizes, err := snap.Sizes(brand, model)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"brand": brand, "model": model, "sizes": sizes})
}

func (h *Handler) Years(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	brand, model, size := r.PathValue("brand"), r.PathValue("model"), r.PathValue("size")
	years, err := snap.Years(brand, model, size)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"brand": brand, "model": model, "size": size, "years": years})
}

func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := frame.Path{
		Brand: q.Get("brand"),
		Model: q.Get("model"),
		Size:  q.Get("size"),
		Year:  q.Get("year"),
	}
	if path.Brand == "" || path.Model == "" || path.Size == "" || path.Year == "" {
		h.writeErr(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "brand, model, size and year are required"))
		return
	}
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	f, err := snap.Frame(path)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, f)
}

func (h *Handler) Frame(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	f, err := snap.FrameByID(r.PathValue("id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, f)
}

// NearestResponse is the body of the nearest-frames endpoint.
type NearestResponse struct {
	Reference string             `json:"reference"`
	Version   uint64             `json:"version"`
	K         int                `json:"k"`
	CacheHit  bool               `json:"cache_hit"`
	Results   []frameindex.Match `json:"results"`
}

func (h *Handler) Nearest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logger.FromContext(r.Context())

	params, err := parseNearest(r.URL.Query(), h.defaultLimit, h.maxLimit)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	compute := func() ([]frameindex.Match, error) {
		return snap.Nearest(id, params.query, params.k)
	}

	var matches []frameindex.Match
	cacheHit := false
	if h.cache != nil {
		matches, cacheHit, err = h.cache.GetOrCompute(r.Context(), snap, id, params.query, params.k, compute)
	} else {
		matches, err = compute()
	}
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	elapsed := time.Since(start)
	if h.metrics != nil {
		status := "miss"
		if h.cache == nil {
			status = "disabled"
		} else if cacheHit {
			status = "hit"
		}
		h.metrics.NearestLatency.WithLabelValues(status).Observe(elapsed.Seconds())
	}
	log.Debug("nearest frames ranked",
		"id", id,
		"k", params.k,
		"returned", len(matches),
		"cache_hit", cacheHit,
		"latency_ms", elapsed.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, NearestResponse{
		Reference: id,
		Version:   snap.Version,
		K:         params.k,
		CacheHit:  cacheHit,
		Results:   matches,
	})
}

// StatsResponse describes the published snapshot.
type StatsResponse struct {
	Version         uint64           `json:"version"`
	LoadedAt        time.Time        `json:"loaded_at"`
	Source          string           `json:"source"`
	Frames          int              `json:"frames"`
	Tuples          int              `json:"tuples"`
	DuplicatePolicy string           `json:"duplicate_policy"`
	Rider           frame.Rider      `json:"rider"`
	Statistics      frameindex.Stats `json:"statistics"`
	Degenerate      []string         `json:"degenerate_ratios"`
	Cache           *CacheStats      `json:"cache,omitempty"`
}

type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.stats(snap))
}

func (h *Handler) stats(snap *frameindex.Snapshot) StatsResponse {
	stats := snap.Stats()
	degenerate := []string{}
	for _, kind := range stats.Degenerate() {
		degenerate = append(degenerate, kind.String())
	}
	resp := StatsResponse{
		Version:         snap.Version,
		LoadedAt:        snap.LoadedAt,
		Source:          snap.Source,
		Frames:          snap.Len(),
		Tuples:          snap.Tuples(),
		DuplicatePolicy: snap.Policy.String(),
		Rider:           snap.Rider,
		Statistics:      stats,
		Degenerate:      degenerate,
	}
	if h.cache != nil {
		hits, misses := h.cache.Stats()
		resp.Cache = &CacheStats{Hits: hits, Misses: misses}
	}
	return resp
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		h.writeErr(w, r, apperrors.New(apperrors.ErrInternal, http.StatusNotImplemented, "reload is not configured"))
		return
	}
	if h.limiter != nil && !h.limiter.Allow(clientKey(r)) {
		h.writeErr(w, r, apperrors.New(apperrors.ErrRateLimited, http.StatusTooManyRequests, "too many reload requests"))
		return
	}
	snap, err := h.reloader.Reload(r.Context(), catalogue.TriggerManual)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.stats(snap))
}

// clientKey identifies the caller by remote host.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (*frameindex.Snapshot, bool) {
	snap, err := h.index.Snapshot()
	if err != nil {
		h.writeErr(w, r, err)
		return nil, false
	}
	return snap, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Level string `json:"level,omitempty"`
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	body := errorBody{Error: err.Error(), Kind: errorKind(err)}
	var nf *frameindex.NotFoundError
	if errors.As(err, &nf) {
		body.Level = nf.Level
	}
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		log.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	h.writeJSON(w, status, body)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrLoadFailed):
		return "load_failed"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, apperrors.ErrNotLoaded):
		return "not_loaded"
	case errors.Is(err, apperrors.ErrDuplicateFrame):
		return "duplicate_frame"
	case errors.Is(err, apperrors.ErrDegenerateStatistics):
		return "degenerate_statistics"
	case errors.Is(err, apperrors.ErrRateLimited):
		return "rate_limited"
	default:
		return ""
	}
}
