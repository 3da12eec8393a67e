package scheduler

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/retainhq/retain/pkg/types"
)

// Interval fuzz spreads review-bound intervals a little so cards graded on
// the same day do not all come due together again.

type fuzzRange struct {
	start, end float64
	factor     float64
}

var fuzzRanges = []fuzzRange{
	{2.5, 7.0, 0.15},
	{7.0, 20.0, 0.10},
	{20.0, math.Inf(1), 0.05},
}

// fuzzDelta is the half-width of the fuzz window for a given interval:
// 1.0 + sum(factor * max(min(interval, end) - start, 0)) over the ranges.
func fuzzDelta(interval float64) float64 {
	delta := 1.0
	for _, r := range fuzzRanges {
		delta += r.factor * math.Max(math.Min(interval, r.end)-r.start, 0)
	}
	return delta
}

// applyFuzz picks a randomized interval in [interval-delta, interval+delta].
// Intervals under 2.5 days are returned unchanged.
func applyFuzz(interval, maxIvl int, rng *rand.Rand) int {
	if float64(interval) < 2.5 {
		return interval
	}

	ivl := float64(interval)
	delta := fuzzDelta(ivl)

	lo := max(2, int(math.Round(ivl-delta)))
	hi := min(int(math.Round(ivl+delta)), maxIvl)
	lo = min(lo, hi)

	// Floor sampling keeps the result uniform over [lo, hi]; rounding
	// would spill past hi.
	fuzzed := int(rng.Float64()*float64(hi-lo+1)) + lo
	return min(fuzzed, maxIvl)
}

// defaultFuzzSeed derives a deterministic seed from the card and the review
// instant. Fuzzing with a seed that is a pure function of the inputs keeps
// Preview and Commit referentially transparent: the same (card, now) always
// produces the same fuzzed interval, and commit equals the preview entry for
// the chosen rating. Tests can inject their own seed function through Config.
func defaultFuzzSeed(card types.Card, now time.Time) int64 {
	h := fnv.New64a()
	var buf [8]byte

	put := func(v uint64) {
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		h.Write(buf[:])
	}

	put(uint64(now.UnixNano()))
	put(uint64(card.Due.UnixNano()))
	put(math.Float64bits(card.Stability))
	put(uint64(card.Reps)<<32 | uint64(uint32(card.Lapses)))
	return int64(h.Sum64())
}
