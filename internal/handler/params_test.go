package handler

import (
	"errors"
	"net/url"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/errors"
)

func TestParseNearest(t *testing.T) {
	tests := []struct {
		query   string
		wantK   int
		wantErr bool
	}{
		{"", 10, false},
		{"k=5", 5, false},
		{"k=0", 10, false},
		{"k=-3", 10, false},
		{"k=500", 100, false},
		{"k=1.5", 0, true},
		{"dsd=60&drop=10.5&ratio_dsd_drop=5&fork_rate=45", 10, false},
		{"dsd=", 10, false},
		{"ratio_dsd_drop=x", 0, true},
		{"fork_rate=-Inf", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			p, err := parseNearest(values, 10, 100)
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.k != tt.wantK {
				t.Errorf("k = %d, want %d", p.k, tt.wantK)
			}
		})
	}
}

func TestParseNearestTargets(t *testing.T) {
	values, _ := url.ParseQuery("dsd=60&fork_rate=45")
	p, err := parseNearest(values, 10, 100)
	if err != nil {
		t.Fatal(err)
	}
	if p.query.DSD == nil || *p.query.DSD != 60 || p.query.ForkRate == nil || *p.query.ForkRate != 45 {
		t.Errorf("query = %+v", p.query)
	}
	if p.query.Drop != nil || p.query.RatioDSDDrop != nil {
		t.Error("unset targets should stay nil")
	}
}
