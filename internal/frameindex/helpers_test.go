package frameindex

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
)

var testRider = frame.Rider{SaddleHeight: 74.5, SaddleForeAft: 20.5}

func newRecord(id, brand, model, size, year string) frame.Record {
	return frame.Record{
		ID: id, Brand: brand, Model: model, Size: size, Year: year,
		VirtualSeatTube: 50, VirtualTopTube: 52, SeatTube: 48, TopTube: 51,
		HeadTubeAngle: 72, SeatTubeAngle: 74, HeadTubeLength: 12,
		ChainStayLength: 40.5, FrontCenter: 58, Wheelbase: 97.5,
		BottomBracketDrop: 7, BracketHeight: 26.5,
		Stack: 52, Reach: 38, CrankLength: 170, ForkRate: 45,
	}
}

// withStackReach returns a record with a stack/reach ratio of r and the
// stack held below the saddle.
func withStackReach(id string, r float64) frame.Record {
	rec := newRecord(id, "Time", "NXR", "M", id)
	rec.Stack = 60
	rec.Reach = 60 / r
	return rec
}

// population returns n records with distinct, spread-out geometry.
func population(n int) []frame.Record {
	out := make([]frame.Record, 0, n)
	for i := 0; i < n; i++ {
		rec := newRecord(fmt.Sprintf("f%03d", i), "Brand", "Model", "S", fmt.Sprintf("%d", 2000+i))
		rec.Stack = 50 + float64(i%7)
		rec.Reach = 36 + float64(i%5)
		out = append(out, rec)
	}
	return out
}

// fakeSource serves a fixed record set, an error, or blocks until released.
type fakeSource struct {
	mu      sync.Mutex
	records []frame.Record
	err     error
	calls   int
	block   chan struct{}
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Fetch(ctx context.Context) ([]frame.Record, error) {
	s.mu.Lock()
	s.calls++
	block := s.block
	records, err := s.records, s.err
	s.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *fakeSource) set(records []frame.Record, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records, s.err = records, err
}

var errTransport = errors.New("connection refused")
