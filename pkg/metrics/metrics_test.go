package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()
	m.LoadsTotal.WithLabelValues("startup", "success").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		byName[f.GetName()] = f
	}
	if got := byName["cache_hits_total"].GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}
	if got := byName["cache_misses_total"].GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Errorf("cache misses = %v, want 1", got)
	}
	if _, ok := byName["frameindex_loads_total"]; !ok {
		t.Error("loads counter not gathered")
	}
}

func TestNewTwiceOnSeparateRegistries(t *testing.T) {
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.LoadsTotal.WithLabelValues("manual", "failure").Inc()

	rec := httptest.NewRecorder()
	newMux(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `frameindex_loads_total{status="failure",trigger="manual"} 1`) {
		t.Errorf("scrape missing load counter:\n%s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	newMux(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d", rec.Code)
	}
}
