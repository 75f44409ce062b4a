package frameindex

import (
	"slices"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
)

// DefaultNearest is the result count used when a caller does not ask for a
// specific k.
const DefaultNearest = 10

// Match is one ranked frame.
type Match struct {
	Frame    *frame.Frame `json:"frame"`
	Distance float64      `json:"distance"`
}

// Nearest scores every frame in population against ref and returns the k
// closest, nearest first. The reference itself is not excluded. Equal
// distances keep population order. k is clamped to [0, len(population)].
func Nearest(population []*frame.Frame, ref *frame.Frame, q frame.Query, k int) []Match {
	matches := make([]Match, 0, len(population))
	for _, f := range population {
		matches = append(matches, Match{
			Frame:    f,
			Distance: ref.Distance(f, q),
		})
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})
	return matches[:clampK(k, len(matches))]
}

func clampK(k, n int) int {
	return max(0, min(k, n))
}
