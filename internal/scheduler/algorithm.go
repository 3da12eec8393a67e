package scheduler

import (
	"math"

	"github.com/retainhq/retain/pkg/types"
)

// referenceRetention is the recall probability the forgetting curve is
// anchored to: retrievability(stability, stability) == referenceRetention.
const referenceRetention = 0.9

// memoryModel holds precomputed constants derived from the 21 weights.
type memoryModel struct {
	w      [21]float64
	decay  float64 // -w[20]
	factor float64 // referenceRetention^(1/decay) - 1
}

func newMemoryModel(w [21]float64) memoryModel {
	decay := -w[20]
	factor := math.Pow(referenceRetention, 1.0/decay) - 1.0
	return memoryModel{w: w, decay: decay, factor: factor}
}

// retrievability estimates the recall probability after elapsedDays given
// the current stability: R(t, S) = (1 + factor*t/S)^decay. It tends to 1 as
// t→0 and to 0 as t→∞, and equals referenceRetention at t == S.
func (m *memoryModel) retrievability(elapsedDays, stability float64) float64 {
	return math.Pow(1+m.factor*elapsedDays/stability, m.decay)
}

// initStability is the rating-dependent stability assigned on first review.
func (m *memoryModel) initStability(r types.Rating) float64 {
	return clampStability(m.w[r-1])
}

// initDifficulty is the rating-dependent difficulty assigned on first
// review: D0(G) = w[4] - e^(w[5]*(G-1)) + 1. The mean-reversion target uses
// the unclamped value.
func (m *memoryModel) initDifficulty(r types.Rating, clamp bool) float64 {
	d := m.w[4] - math.Exp(m.w[5]*float64(r-1)) + 1
	if clamp {
		return clampDifficulty(d)
	}
	return d
}

// nextInterval inverts the forgetting curve for the desired retention:
// the returned interval (in whole days, clamped to [minIvl, maxIvl]) is the
// time at which predicted retrievability falls to desiredRetention.
func (m *memoryModel) nextInterval(stability, desiredRetention float64, minIvl, maxIvl int) int {
	ivl := stability / m.factor * (math.Pow(desiredRetention, 1.0/m.decay) - 1)
	days := int(math.Round(ivl))
	if days < minIvl {
		days = minIvl
	}
	if days > maxIvl {
		days = maxIvl
	}
	return days
}

// shortTermStability handles same-day reviews, where the full forgetting
// curve does not apply: S' = S * e^(w[17]*(G-3+w[18])) * S^(-w[19]),
// never shrinking on good or easy.
func (m *memoryModel) shortTermStability(stability float64, r types.Rating) float64 {
	inc := math.Exp(m.w[17]*(float64(r)-3+m.w[18])) * math.Pow(stability, -m.w[19])
	if r == types.Good || r == types.Easy {
		inc = math.Max(inc, 1.0)
	}
	return clampStability(stability * inc)
}

// nextDifficulty applies the bounded difficulty update: again pushes
// difficulty up, easy pulls it down, and a mean-reversion term nudges it
// back toward the long-run target over repeated reviews.
func (m *memoryModel) nextDifficulty(difficulty float64, r types.Rating) float64 {
	delta := -m.w[6] * (float64(r) - 3)
	damped := difficulty + (types.MaxDifficulty-difficulty)*delta/9
	target := m.initDifficulty(types.Easy, false)
	reverted := m.w[7]*target + (1-m.w[7])*damped
	return clampDifficulty(reverted)
}

// nextStability dispatches between the recall and forget updates.
func (m *memoryModel) nextStability(d, s, retr float64, r types.Rating) float64 {
	if r == types.Again {
		return m.nextForgetStability(d, s, retr)
	}
	return m.nextRecallStability(d, s, retr, r)
}

// nextRecallStability grows stability after a successful recall. The growth
// is larger when pre-review retrievability was low (recalling against high
// forgetting risk is rewarded more), when the card is easy, and when the
// rating is easy.
func (m *memoryModel) nextRecallStability(d, s, retr float64, r types.Rating) float64 {
	hardPenalty := 1.0
	if r == types.Hard {
		hardPenalty = m.w[15]
	}
	easyBonus := 1.0
	if r == types.Easy {
		easyBonus = m.w[16]
	}
	grown := s * (1 + math.Exp(m.w[8])*
		(11-d)*
		math.Pow(s, -m.w[9])*
		(math.Exp((1-retr)*m.w[10])-1)*
		hardPenalty*easyBonus)
	return clampStability(grown)
}

// nextForgetStability shrinks stability after a lapse. The result is capped
// by the short-term formula so a lapse can never leave a card more stable
// than a same-day again would.
func (m *memoryModel) nextForgetStability(d, s, retr float64) float64 {
	long := m.w[11] *
		math.Pow(d, -m.w[12]) *
		(math.Pow(s+1, m.w[13]) - 1) *
		math.Exp((1-retr)*m.w[14])
	short := s / math.Exp(m.w[17]*m.w[18])
	return clampStability(math.Min(long, short))
}

func clampStability(s float64) float64 {
	return math.Max(s, 0.001)
}

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, types.MinDifficulty), types.MaxDifficulty)
}
