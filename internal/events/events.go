package events

import "time"

type Type string

const (
	CatalogueLoaded     Type = "catalogue.loaded"
	CatalogueLoadFailed Type = "catalogue.load_failed"
)

// CatalogueEvent describes one load attempt of the frame index.
type CatalogueEvent struct {
	Type       Type      `json:"type"`
	Trigger    string    `json:"trigger"`
	Source     string    `json:"source"`
	Version    uint64    `json:"version,omitempty"`
	Frames     int       `json:"frames,omitempty"`
	Tuples     int       `json:"tuples,omitempty"`
	Degenerate []string  `json:"degenerate_ratios,omitempty"`
	Error      string    `json:"error,omitempty"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
