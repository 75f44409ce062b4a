package frame

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/errors"
)

// ErrInvalidGeometry is returned when a record's geometry cannot produce
// finite ratios for the given rider.
var ErrInvalidGeometry = errors.New("invalid frame geometry")

// Rider is the saddle position every frame is evaluated against.
type Rider struct {
	SaddleHeight  float64 `json:"saddleHeight"`
	SaddleForeAft float64 `json:"saddleForeAft"`
}

func (r Rider) validate() error {
	if !(r.SaddleHeight > 0) || math.IsInf(r.SaddleHeight, 0) {
		return fmt.Errorf("%w: saddle height %v", ErrInvalidGeometry, r.SaddleHeight)
	}
	if !(r.SaddleForeAft >= 0) || r.SaddleForeAft >= r.SaddleHeight {
		return fmt.Errorf("%w: saddle fore-aft %v", ErrInvalidGeometry, r.SaddleForeAft)
	}
	return nil
}

// Geometry holds the catalogue measurements under their entity names.
type Geometry struct {
	VirtualSeatTube   float64 `json:"virtualSeatTube"`
	VirtualTopTube    float64 `json:"virtualTopTube"`
	SeatTube          float64 `json:"seatTube"`
	TopTube           float64 `json:"topTube"`
	HeadTubeAngle     float64 `json:"headTubeAngle"`
	SeatTubeAngle     float64 `json:"seatTubeAngle"`
	HeadTubeLength    float64 `json:"headTubeLength"`
	ChainStayLength   float64 `json:"chainStayLength"`
	FrontCenter       float64 `json:"frontCenter"`
	Wheelbase         float64 `json:"wheelbase"`
	BottomBracketDrop float64 `json:"bottomBracketDrop"`
	BracketHeight     float64 `json:"bracketHeight"`
	Stack             float64 `json:"stack"`
	Reach             float64 `json:"reach"`
	CrankLength       float64 `json:"crankLength"`
	ForkRate          float64 `json:"forkRate"`
}

// RatioKind identifies one of the derived ratios.
type RatioKind int

const (
	RatioStackReach RatioKind = iota
	RatioDSDDrop
	RatioDSDSaddleHeight
)

// RatioKinds lists every ratio in a fixed order.
var RatioKinds = []RatioKind{RatioStackReach, RatioDSDDrop, RatioDSDSaddleHeight}

func (k RatioKind) String() string {
	switch k {
	case RatioStackReach:
		return "stack_reach"
	case RatioDSDDrop:
		return "dsd_drop"
	case RatioDSDSaddleHeight:
		return "dsd_saddle_height"
	default:
		return "unknown"
	}
}

// Ratio is a derived value plus the population statistics attached to it
// after normalization. Normal is only meaningful when Defined is true.
type Ratio struct {
	Kind    RatioKind
	Value   float64
	Mean    float64
	Normal  float64
	Defined bool
}

// Score returns the 0-10 normalized score, or a DegenerateStatisticsError
// when the population range for this ratio was zero.
func (r Ratio) Score() (float64, error) {
	if !r.Defined {
		return 0, &DegenerateStatisticsError{Ratio: r.Kind.String(), Reason: "min equals max"}
	}
	return r.Normal, nil
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	out := struct {
		Value  float64  `json:"value"`
		Mean   float64  `json:"mean"`
		Normal *float64 `json:"normal"`
	}{Value: r.Value, Mean: r.Mean}
	if r.Defined {
		n := r.Normal
		out.Normal = &n
	}
	return json.Marshal(out)
}

// Frame is the normalized view of one Record for a given rider.
type Frame struct {
	ID    string `json:"_id"`
	Brand string `json:"brand"`
	Model string `json:"model"`
	Size  string `json:"size"`
	Year  string `json:"year"`
	Geometry

	Rider Rider   `json:"rider"`
	DSD   float64 `json:"dsd"`
	Drop  float64 `json:"drop"`

	StackReach      Ratio `json:"ratioStackReach"`
	DSDDrop         Ratio `json:"ratioDsdDrop"`
	DSDSaddleHeight Ratio `json:"ratioDsdSaddleHeight"`
}

// New maps a raw record onto a Frame and computes its ratios for rider.
// Population statistics are left unset; see Frame.ApplyStats.
func New(rec Record, rider Rider) (*Frame, error) {
	if err := rider.validate(); err != nil {
		return nil, err
	}
	f := &Frame{
		ID:    rec.ID,
		Brand: rec.Brand,
		Model: rec.Model,
		Size:  rec.Size,
		Year:  rec.Year,
		Geometry: Geometry{
			VirtualSeatTube:   rec.VirtualSeatTube,
			VirtualTopTube:    rec.VirtualTopTube,
			SeatTube:          rec.SeatTube,
			TopTube:           rec.TopTube,
			HeadTubeAngle:     rec.HeadTubeAngle,
			SeatTubeAngle:     rec.SeatTubeAngle,
			HeadTubeLength:    rec.HeadTubeLength,
			ChainStayLength:   rec.ChainStayLength,
			FrontCenter:       rec.FrontCenter,
			Wheelbase:         rec.Wheelbase,
			BottomBracketDrop: rec.BottomBracketDrop,
			BracketHeight:     rec.BracketHeight,
			Stack:             rec.Stack,
			Reach:             rec.Reach,
			CrankLength:       rec.CrankLength,
			ForkRate:          rec.ForkRate,
		},
		Rider: rider,
	}
	if err := f.derive(); err != nil {
		return nil, fmt.Errorf("frame %s: %w", rec.ID, err)
	}
	return f, nil
}

// derive places the saddle behind the bottom bracket at the rider's
// fore-aft offset and the bar on top of the head tube at (reach, stack).
func (f *Frame) derive() error {
	saddleY := math.Sqrt(f.Rider.SaddleHeight*f.Rider.SaddleHeight - f.Rider.SaddleForeAft*f.Rider.SaddleForeAft)
	f.DSD = f.Reach + f.Rider.SaddleForeAft
	f.Drop = saddleY - f.Stack

	stackReach, err := ratio(f.Stack, f.Reach, "stack/reach")
	if err != nil {
		return err
	}
	dsdDrop, err := ratio(f.DSD, f.Drop, "dsd/drop")
	if err != nil {
		return err
	}
	dsdSaddle, err := ratio(f.DSD, f.Rider.SaddleHeight, "dsd/saddle height")
	if err != nil {
		return err
	}
	f.StackReach = Ratio{Kind: RatioStackReach, Value: stackReach}
	f.DSDDrop = Ratio{Kind: RatioDSDDrop, Value: dsdDrop}
	f.DSDSaddleHeight = Ratio{Kind: RatioDSDSaddleHeight, Value: dsdSaddle}
	return nil
}

func ratio(num, den float64, name string) (float64, error) {
	if den == 0 {
		return 0, fmt.Errorf("%w: %s has zero denominator", ErrInvalidGeometry, name)
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s is not finite", ErrInvalidGeometry, name)
	}
	return v, nil
}

// Ratio returns a pointer to the ratio of the given kind.
func (f *Frame) Ratio(kind RatioKind) *Ratio {
	switch kind {
	case RatioStackReach:
		return &f.StackReach
	case RatioDSDDrop:
		return &f.DSDDrop
	case RatioDSDSaddleHeight:
		return &f.DSDSaddleHeight
	default:
		return nil
	}
}

// ApplyStats attaches population statistics to the ratio of the given kind.
// A zero range leaves the normalized score undefined.
func (f *Frame) ApplyStats(kind RatioKind, s RatioStats) {
	r := f.Ratio(kind)
	r.Mean = s.Mean
	if s.Degenerate() {
		r.Normal = 0
		r.Defined = false
		return
	}
	r.Normal = 10 * ((r.Value - s.Min) / (s.Max - s.Min))
	r.Defined = true
}

// RatioStats are the population-wide statistics of one ratio.
type RatioStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Degenerate reports whether normalizing against these stats would divide
// by zero.
func (s RatioStats) Degenerate() bool {
	return s.Max == s.Min
}

// DegenerateStatisticsError reports a population whose statistics cannot
// produce normalized scores.
type DegenerateStatisticsError struct {
	Ratio  string
	Reason string
}

func (e *DegenerateStatisticsError) Error() string {
	if e.Ratio == "" {
		return fmt.Sprintf("degenerate statistics: %s", e.Reason)
	}
	return fmt.Sprintf("degenerate statistics for ratio %s: %s", e.Ratio, e.Reason)
}

func (e *DegenerateStatisticsError) Is(target error) bool {
	return target == apperrors.ErrDegenerateStatistics
}
