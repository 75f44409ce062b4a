package frameindex

import (
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
)

// Stats holds the population statistics each frame was normalized against.
type Stats struct {
	Population      int              `json:"population"`
	StackReach      frame.RatioStats `json:"ratioStackReach"`
	DSDDrop         frame.RatioStats `json:"ratioDsdDrop"`
	DSDSaddleHeight frame.RatioStats `json:"ratioDsdSaddleHeight"`
}

// For returns the statistics of the given ratio.
func (s Stats) For(kind frame.RatioKind) frame.RatioStats {
	switch kind {
	case frame.RatioDSDDrop:
		return s.DSDDrop
	case frame.RatioDSDSaddleHeight:
		return s.DSDSaddleHeight
	default:
		return s.StackReach
	}
}

func (s *Stats) set(kind frame.RatioKind, rs frame.RatioStats) {
	switch kind {
	case frame.RatioDSDDrop:
		s.DSDDrop = rs
	case frame.RatioDSDSaddleHeight:
		s.DSDSaddleHeight = rs
	default:
		s.StackReach = rs
	}
}

// Degenerate lists the ratios whose scores are undefined for this population.
func (s Stats) Degenerate() []frame.RatioKind {
	var out []frame.RatioKind
	for _, kind := range frame.RatioKinds {
		if s.For(kind).Degenerate() {
			out = append(out, kind)
		}
	}
	return out
}

// accumulator tracks min, max and sum of one ratio. It is seeded by the
// first value it sees.
type accumulator struct {
	seen     bool
	min, max float64
	sum      float64
	n        int
}

func (a *accumulator) add(v float64) {
	if !a.seen {
		a.min, a.max, a.seen = v, v, true
	}
	if v < a.min {
		a.min = v
	}
	if v > a.max {
		a.max = v
	}
	a.sum += v
	a.n++
}

func (a *accumulator) stats() frame.RatioStats {
	return frame.RatioStats{Min: a.min, Max: a.max, Mean: a.sum / float64(a.n)}
}

// Normalize builds one Frame per record for rider, then attaches population
// min, max, mean and 0-10 scores to every ratio. The returned frames are
// complete; nothing mutates them afterwards.
func Normalize(records []frame.Record, rider frame.Rider) ([]*frame.Frame, Stats, error) {
	if len(records) == 0 {
		return nil, Stats{}, &DegenerateStatisticsError{Reason: "empty population"}
	}

	frames := make([]*frame.Frame, 0, len(records))
	for _, rec := range records {
		f, err := frame.New(rec, rider)
		if err != nil {
			return nil, Stats{}, err
		}
		frames = append(frames, f)
	}

	accs := make([]accumulator, len(frame.RatioKinds))
	for _, f := range frames {
		for i, kind := range frame.RatioKinds {
			accs[i].add(f.Ratio(kind).Value)
		}
	}

	stats := Stats{Population: len(frames)}
	for i, kind := range frame.RatioKinds {
		stats.set(kind, accs[i].stats())
	}

	for _, f := range frames {
		for _, kind := range frame.RatioKinds {
			f.ApplyStats(kind, stats.For(kind))
		}
	}
	return frames, stats, nil
}
