package reindex

import "math/rand/v2"

// DefaultOffsetRange is the initial candidate offset range.
const DefaultOffsetRange = 1024

// Rand is the source of candidate offsets. Implementations must be safe for concurrent
// use when the DAO is shared by several workers.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// selector walks the random-offset sampling states of one candidate search. The range
// halves whenever the offset lands past the last eligible row, so the search ends once
// no eligible row is left.
type selector struct {
	rand        Rand
	offsetRange int
}

func newSelector(r Rand, offsetRange int) *selector {
	return &selector{rand: r, offsetRange: offsetRange}
}

// next returns the offset to probe and false when the search is exhausted.
func (s *selector) next() (int, bool) {
	if s.offsetRange <= 0 {
		return 0, false
	}
	return s.rand.IntN(s.offsetRange), true
}

// empty records that the probed offset returned no row.
func (s *selector) empty() {
	s.offsetRange /= 2
}
