package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/catalogue"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frameindex"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
)

type stubSource struct {
	mu      sync.Mutex
	records []frame.Record
	err     error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(ctx context.Context) ([]frame.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records, s.err
}

type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *mapStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, redis.Nil
	}
	return v, nil
}

func (s *mapStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *mapStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data))
	s.data = make(map[string][]byte)
	return n, nil
}

func rec(id, brand, model, size, year string, reach float64) frame.Record {
	return frame.Record{
		ID: id, Brand: brand, Model: model, Size: size, Year: year,
		VirtualSeatTube: 50, VirtualTopTube: 52, SeatTube: 48, TopTube: 51,
		HeadTubeAngle: 72, SeatTubeAngle: 74, HeadTubeLength: 12,
		ChainStayLength: 40.5, FrontCenter: 58, Wheelbase: 97.5,
		BottomBracketDrop: 7, BracketHeight: 26.5,
		Stack: 60, Reach: reach, CrankLength: 170, ForkRate: 45,
	}
}

func catalogueRecords() []frame.Record {
	return []frame.Record{
		rec("1", "Time", "NXR", "XS", "2011", 36),
		rec("2", "Time", "NXR", "XS", "2010", 37),
		rec("3", "Time", "VXRS", "M", "2012", 40),
		rec("4", "Look", "695", "M", "2014", 44),
	}
}

type fixture struct {
	src     *stubSource
	index   *frameindex.Index
	handler *Handler
	mux     *http.ServeMux
}

func newFixture(t *testing.T, load bool, withCache bool) *fixture {
	t.Helper()
	src := &stubSource{records: catalogueRecords()}
	idx := frameindex.New(src, frameindex.Options{Rider: frame.Rider{SaddleHeight: 74.5, SaddleForeAft: 20.5}})
	if load {
		if _, err := idx.Load(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	cfg := Config{
		Index:        idx,
		Reloader:     catalogue.NewReloader(idx, catalogue.Options{}),
		DefaultLimit: 2,
		MaxLimit:     3,
	}
	if withCache {
		cfg.Cache = cache.New(&mapStore{data: make(map[string][]byte)}, time.Minute, nil)
	}
	h := New(cfg)
	mux := http.NewServeMux()
	h.Register(mux)
	return &fixture{src: src, index: idx, handler: h, mux: mux}
}

func (f *fixture) do(t *testing.T, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s %s: invalid JSON %q: %v", method, target, rec.Body.String(), err)
	}
	return rec, body
}

func TestNotLoadedAnswers503(t *testing.T) {
	f := newFixture(t, false, false)
	for _, target := range []string{"/api/v1/brands", "/api/v1/frames/1", "/api/v1/frames/1/nearest", "/api/v1/stats"} {
		rec, body := f.do(t, http.MethodGet, target)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", target, rec.Code)
		}
		if body["kind"] != "not_loaded" {
			t.Errorf("%s: kind = %v", target, body["kind"])
		}
	}
}

func TestCascadingSelection(t *testing.T) {
	f := newFixture(t, true, false)

	_, body := f.do(t, http.MethodGet, "/api/v1/brands")
	if got := body["brands"].([]any); len(got) != 2 || got[0] != "Time" || got[1] != "Look" {
		t.Errorf("brands = %v", got)
	}
	_, body = f.do(t, http.MethodGet, "/api/v1/brands/Time/models")
	if got := body["models"].([]any); len(got) != 2 || got[0] != "NXR" {
		t.Errorf("models = %v", got)
	}
	_, body = f.do(t, http.MethodGet, "/api/v1/brands/Time/models/NXR/sizes")
	if got := body["sizes"].([]any); len(got) != 1 || got[0] != "XS" {
		t.Errorf("sizes = %v", got)
	}
	_, body = f.do(t, http.MethodGet, "/api/v1/brands/Time/models/NXR/sizes/XS/years")
	if got := body["years"].([]any); len(got) != 2 || got[0] != "2011" || got[1] != "2010" {
		t.Errorf("years = %v", got)
	}
}

func TestSelectionNotFound(t *testing.T) {
	f := newFixture(t, true, false)
	tests := []struct {
		target string
		level  string
	}{
		{"/api/v1/brands/Colnago/models", "brand"},
		{"/api/v1/brands/Time/models/ZXRS/sizes", "model"},
		{"/api/v1/brands/Time/models/NXR/sizes/XL/years", "size"},
		{"/api/v1/frames/lookup?brand=Time&model=NXR&size=XS&year=1999", "year"},
		{"/api/v1/frames/99", "id"},
		{"/api/v1/frames/99/nearest", "id"},
	}
	for _, tt := range tests {
		rec, body := f.do(t, http.MethodGet, tt.target)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", tt.target, rec.Code)
		}
		if body["level"] != tt.level {
			t.Errorf("%s: level = %v, want %s", tt.target, body["level"], tt.level)
		}
	}
}

func TestLookupAndFrame(t *testing.T) {
	f := newFixture(t, true, false)
	rec, body := f.do(t, http.MethodGet, "/api/v1/frames/lookup?brand=Time&model=NXR&size=XS&year=2010")
	if rec.Code != http.StatusOK || body["_id"] != "2" {
		t.Fatalf("lookup: %d %v", rec.Code, body)
	}
	ratio := body["ratioStackReach"].(map[string]any)
	if _, ok := ratio["normal"].(float64); !ok {
		t.Errorf("expected a numeric normal score, got %v", ratio["normal"])
	}

	rec, body = f.do(t, http.MethodGet, "/api/v1/frames/lookup?brand=Time&model=NXR")
	if rec.Code != http.StatusBadRequest || body["kind"] != "invalid_input" {
		t.Errorf("partial lookup: %d %v", rec.Code, body)
	}

	rec, body = f.do(t, http.MethodGet, "/api/v1/frames/4")
	if rec.Code != http.StatusOK || body["brand"] != "Look" {
		t.Errorf("frame: %d %v", rec.Code, body)
	}
}

func TestNearest(t *testing.T) {
	f := newFixture(t, true, false)
	rec, body := f.do(t, http.MethodGet, "/api/v1/frames/1/nearest")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, body)
	}
	results := body["results"].([]any)
	if len(results) != 2 || body["k"].(float64) != 2 {
		t.Fatalf("default k not applied: %v", body)
	}
	first := results[0].(map[string]any)
	if first["frame"].(map[string]any)["_id"] != "1" || first["distance"].(float64) != 0 {
		t.Errorf("reference should rank first at distance 0: %v", first)
	}
	if results[1].(map[string]any)["frame"].(map[string]any)["_id"] != "2" {
		t.Errorf("closest other frame should be 2: %v", results[1])
	}

	_, body = f.do(t, http.MethodGet, "/api/v1/frames/1/nearest?k=50")
	if len(body["results"].([]any)) != 3 {
		t.Errorf("k above max should clamp to 3, got %d", len(body["results"].([]any)))
	}
	if body["k"].(float64) != 3 {
		t.Errorf("response should echo the effective k, got %v", body["k"])
	}
	_, body = f.do(t, http.MethodGet, "/api/v1/frames/1/nearest?k=0")
	if len(body["results"].([]any)) != 2 {
		t.Errorf("k=0 should use the default")
	}
}

func TestNearestRejectsBadParameters(t *testing.T) {
	f := newFixture(t, true, false)
	for _, target := range []string{
		"/api/v1/frames/1/nearest?k=two",
		"/api/v1/frames/1/nearest?dsd=abc",
		"/api/v1/frames/1/nearest?drop=NaN",
		"/api/v1/frames/1/nearest?fork_rate=Inf",
	} {
		rec, body := f.do(t, http.MethodGet, target)
		if rec.Code != http.StatusBadRequest || body["kind"] != "invalid_input" {
			t.Errorf("%s: %d %v", target, rec.Code, body)
		}
	}
}

func TestNearestQueryTargetChangesRanking(t *testing.T) {
	f := newFixture(t, true, false)
	// Frame 3's saddle-to-bar distance as a target moves frame 2 ahead of
	// the reference itself.
	_, body := f.do(t, http.MethodGet, "/api/v1/frames/1/nearest?k=2&dsd=60.5")
	results := body["results"].([]any)
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.(map[string]any)["frame"].(map[string]any)["_id"].(string)
	}
	if strings.Join(ids, ",") != "2,1" {
		t.Errorf("ranking = %v, want [2 1]", ids)
	}
}

func TestNearestUsesCache(t *testing.T) {
	f := newFixture(t, true, true)
	_, body := f.do(t, http.MethodGet, "/api/v1/frames/1/nearest?k=3")
	if body["cache_hit"] != false {
		t.Errorf("first call cache_hit = %v", body["cache_hit"])
	}
	_, body = f.do(t, http.MethodGet, "/api/v1/frames/1/nearest?k=3")
	if body["cache_hit"] != true {
		t.Errorf("second call cache_hit = %v", body["cache_hit"])
	}
	_, stats := f.do(t, http.MethodGet, "/api/v1/stats")
	c := stats["cache"].(map[string]any)
	if c["hits"].(float64) != 1 || c["misses"].(float64) != 1 {
		t.Errorf("cache stats = %v", c)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, true, false)
	rec, body := f.do(t, http.MethodGet, "/api/v1/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["frames"].(float64) != 4 || body["tuples"].(float64) != 4 || body["version"].(float64) != 1 {
		t.Errorf("stats = %v", body)
	}
	if body["duplicate_policy"] != "keep_first" || body["source"] != "stub" {
		t.Errorf("stats = %v", body)
	}
	if got := body["degenerate_ratios"].([]any); len(got) != 0 {
		t.Errorf("degenerate = %v", got)
	}
}

func TestReload(t *testing.T) {
	f := newFixture(t, false, false)
	rec, body := f.do(t, http.MethodPost, "/api/v1/reload")
	if rec.Code != http.StatusOK || body["version"].(float64) != 1 {
		t.Fatalf("reload: %d %v", rec.Code, body)
	}

	f.src.mu.Lock()
	f.src.err = errors.New("connection refused")
	f.src.mu.Unlock()
	rec, body = f.do(t, http.MethodPost, "/api/v1/reload")
	if rec.Code != http.StatusBadGateway || body["kind"] != "load_failed" {
		t.Errorf("failed reload: %d %v", rec.Code, body)
	}
	rec, _ = f.do(t, http.MethodGet, "/api/v1/brands")
	if rec.Code != http.StatusOK {
		t.Error("previous snapshot should still serve after a failed reload")
	}
}

func TestReloadRateLimited(t *testing.T) {
	f := newFixture(t, false, false)
	f.handler.limiter = ratelimit.New(1, time.Hour)
	rec, _ := f.do(t, http.MethodPost, "/api/v1/reload")
	if rec.Code != http.StatusOK {
		t.Fatalf("first reload: %d", rec.Code)
	}
	rec, body := f.do(t, http.MethodPost, "/api/v1/reload")
	if rec.Code != http.StatusTooManyRequests || body["kind"] != "rate_limited" {
		t.Errorf("second reload: %d %v", rec.Code, body)
	}
	if v, _ := f.index.Snapshot(); v.Version != 1 {
		t.Errorf("limited reload should not load, version = %d", v.Version)
	}
}

func TestDegenerateScoresSerializeAsNull(t *testing.T) {
	f := newFixture(t, false, false)
	f.src.records = []frame.Record{
		rec("1", "Time", "NXR", "XS", "2011", 38),
		rec("2", "Time", "NXR", "XS", "2010", 38),
	}
	if _, err := f.index.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, body := f.do(t, http.MethodGet, "/api/v1/frames/1")
	ratio := body["ratioDsdDrop"].(map[string]any)
	if v, ok := ratio["normal"]; !ok || v != nil {
		t.Errorf("normal = %v, want null", v)
	}
	_, stats := f.do(t, http.MethodGet, "/api/v1/stats")
	if got := stats["degenerate_ratios"].([]any); len(got) != 3 {
		t.Errorf("degenerate = %v", got)
	}
}
