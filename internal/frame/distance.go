package frame

import "math"

// Query narrows a similarity search. A nil field means "compare against the
// reference frame"; a set field replaces the reference with an explicit
// target for that quantity.
type Query struct {
	DSD          *float64 `json:"dsd,omitempty"`
	Drop         *float64 `json:"drop,omitempty"`
	RatioDSDDrop *float64 `json:"ratioDsdDrop,omitempty"`
	ForkRate     *float64 `json:"forkRate,omitempty"`
}

// IsZero reports whether no target is set.
func (q Query) IsZero() bool {
	return q.DSD == nil && q.Drop == nil && q.RatioDSDDrop == nil && q.ForkRate == nil
}

// Distance scores how far other is from f. The base term is the Euclidean
// distance between normalized ratio scores; ratios without a defined score
// on either side are skipped. Each target set in q adds its own term.
func (f *Frame) Distance(other *Frame, q Query) float64 {
	var sum float64
	for _, kind := range RatioKinds {
		a, b := f.Ratio(kind), other.Ratio(kind)
		if !a.Defined || !b.Defined {
			continue
		}
		d := a.Normal - b.Normal
		sum += d * d
	}
	if q.DSD != nil {
		d := other.DSD - *q.DSD
		sum += d * d
	}
	if q.Drop != nil {
		d := other.Drop - *q.Drop
		sum += d * d
	}
	if q.RatioDSDDrop != nil {
		d := 10 * (other.DSDDrop.Value - *q.RatioDSDDrop)
		sum += d * d
	}
	if q.ForkRate != nil {
		d := (other.ForkRate - *q.ForkRate) / 10
		sum += d * d
	}
	return math.Sqrt(sum)
}
