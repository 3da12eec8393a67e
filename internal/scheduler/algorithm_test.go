package scheduler

import (
	"math"
	"testing"

	"github.com/retainhq/retain/pkg/types"
)

func defaultModel() memoryModel {
	return newMemoryModel(DefaultParameters)
}

func TestRetrievabilityAnchor(t *testing.T) {
	m := defaultModel()
	// The curve is anchored so that R(S, S) == referenceRetention.
	for _, s := range []float64{0.5, 1, 4, 10, 100} {
		got := m.retrievability(s, s)
		if math.Abs(got-referenceRetention) > 1e-9 {
			t.Errorf("R(S=%v, t=S) = %v, want %v", s, got, referenceRetention)
		}
	}
}

func TestRetrievabilityMonotone(t *testing.T) {
	m := defaultModel()
	const stability = 5.0
	prev := m.retrievability(0, stability)
	if math.Abs(prev-1.0) > 1e-9 {
		t.Errorf("R(0) = %v, want 1", prev)
	}
	for _, elapsed := range []float64{0.5, 1, 2, 5, 10, 50, 500, 5000} {
		r := m.retrievability(elapsed, stability)
		if r >= prev {
			t.Errorf("R(%v) = %v not below R at shorter elapsed %v", elapsed, r, prev)
		}
		prev = r
	}
	// The power curve decays slowly; just confirm it keeps falling well
	// past the sampled range.
	if far := m.retrievability(1e7, stability); far >= prev {
		t.Errorf("R(1e7) = %v, want below R(5000) = %v", far, prev)
	}
}

func TestInitStabilityPerRating(t *testing.T) {
	m := defaultModel()
	prev := 0.0
	for _, r := range allRatings {
		s := m.initStability(r)
		if s <= 0 {
			t.Errorf("initStability(%v) = %v, want > 0", r, s)
		}
		if s <= prev {
			t.Errorf("initStability(%v) = %v, want above %v for the previous rating", r, s, prev)
		}
		prev = s
	}
}

func TestInitDifficultyOrdering(t *testing.T) {
	m := defaultModel()
	// Harder ratings start with higher difficulty.
	dAgain := m.initDifficulty(types.Again, true)
	dEasy := m.initDifficulty(types.Easy, true)
	if dAgain <= dEasy {
		t.Errorf("D0(again)=%v should exceed D0(easy)=%v", dAgain, dEasy)
	}
	for _, r := range allRatings {
		d := m.initDifficulty(r, true)
		if d < types.MinDifficulty || d > types.MaxDifficulty {
			t.Errorf("D0(%v) = %v outside range", r, d)
		}
	}
}

func TestNextDifficultyDirection(t *testing.T) {
	m := defaultModel()
	const d = 5.0
	if up := m.nextDifficulty(d, types.Again); up <= d {
		t.Errorf("again should increase difficulty: %v -> %v", d, up)
	}
	if down := m.nextDifficulty(d, types.Easy); down >= d {
		t.Errorf("easy should decrease difficulty: %v -> %v", d, down)
	}
}

func TestNextDifficultyClamped(t *testing.T) {
	m := defaultModel()
	d := types.MaxDifficulty
	for i := 0; i < 50; i++ {
		d = m.nextDifficulty(d, types.Again)
		if d < types.MinDifficulty || d > types.MaxDifficulty {
			t.Fatalf("difficulty escaped range after %d updates: %v", i+1, d)
		}
	}
	d = types.MinDifficulty
	for i := 0; i < 50; i++ {
		d = m.nextDifficulty(d, types.Easy)
		if d < types.MinDifficulty || d > types.MaxDifficulty {
			t.Fatalf("difficulty escaped range after %d updates: %v", i+1, d)
		}
	}
}

func TestNextIntervalInvertsCurve(t *testing.T) {
	m := defaultModel()
	// At the default retention target the interval equals the stability
	// (rounded), since R(S, S) == referenceRetention.
	for _, s := range []float64{1, 5, 10, 42} {
		days := m.nextInterval(s, referenceRetention, 1, 36500)
		if days != int(math.Round(s)) {
			t.Errorf("nextInterval(S=%v) = %d, want %d", s, days, int(math.Round(s)))
		}
	}
}

func TestNextIntervalClamped(t *testing.T) {
	m := defaultModel()
	if days := m.nextInterval(0.01, referenceRetention, 1, 36500); days != 1 {
		t.Errorf("tiny stability should clamp to min interval, got %d", days)
	}
	if days := m.nextInterval(1e6, referenceRetention, 1, 365); days != 365 {
		t.Errorf("huge stability should clamp to max interval, got %d", days)
	}
}

func TestNextRecallStabilityRewardsRisk(t *testing.T) {
	m := defaultModel()
	const d, s = 5.0, 10.0
	// Recalling when retrievability was low grows stability more.
	lowRisk := m.nextRecallStability(d, s, 0.95, types.Good)
	highRisk := m.nextRecallStability(d, s, 0.60, types.Good)
	if highRisk <= lowRisk {
		t.Errorf("low-retrievability recall should grow stability more: %v vs %v", highRisk, lowRisk)
	}
	if lowRisk <= s {
		t.Errorf("successful recall should grow stability: %v -> %v", s, lowRisk)
	}
}

func TestNextForgetStabilityShrinks(t *testing.T) {
	m := defaultModel()
	const d, s = 5.0, 10.0
	next := m.nextForgetStability(d, s, 0.9)
	if next >= s {
		t.Errorf("forgetting should shrink stability: %v -> %v", s, next)
	}
	if next <= 0 {
		t.Errorf("stability must stay positive, got %v", next)
	}
}

func TestValidateParametersBounds(t *testing.T) {
	if err := ValidateParameters(DefaultParameters); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	p := DefaultParameters
	p[0] = -1
	if err := ValidateParameters(p); err == nil {
		t.Error("out-of-bounds weight should be rejected")
	}
	p = DefaultParameters
	p[20] = 5
	if err := ValidateParameters(p); err == nil {
		t.Error("out-of-bounds decay should be rejected")
	}
}
