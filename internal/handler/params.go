package handler

import (
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
	apperrors "github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/errors"
)

type nearestParams struct {
	k     int
	query frame.Query
}

// parseNearest reads k and the optional query targets. A missing or
// non-positive k falls back to defaultLimit; k above maxLimit is clamped.
func parseNearest(values url.Values, defaultLimit, maxLimit int) (nearestParams, error) {
	p := nearestParams{k: defaultLimit}
	if raw := values.Get("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil {
			return p, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "k must be an integer, got %q", raw)
		}
		if k > 0 {
			p.k = min(k, maxLimit)
		}
	}

	targets := []struct {
		name string
		dst  **float64
	}{
		{"dsd", &p.query.DSD},
		{"drop", &p.query.Drop},
		{"ratio_dsd_drop", &p.query.RatioDSDDrop},
		{"fork_rate", &p.query.ForkRate},
	}
	for _, t := range targets {
		raw := values.Get(t.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return p, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "%s must be a finite number, got %q", t.name, raw)
		}
		*t.dst = &v
	}
	return p, nil
}
