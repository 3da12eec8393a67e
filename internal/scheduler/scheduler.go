package scheduler

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/retainhq/retain/pkg/types"
)

// allRatings in ascending order, used by Preview.
var allRatings = []types.Rating{types.Again, types.Hard, types.Good, types.Easy}

// Config configures a Scheduler. Zero values produce sensible defaults;
// see field comments.
type Config struct {
	Parameters       [21]float64     // zero → DefaultParameters
	DesiredRetention float64         // zero → 0.9
	LearningSteps    []time.Duration // nil → [1m, 10m]; empty → no steps
	RelearningSteps  []time.Duration // nil → [10m]; empty → no steps
	MinInterval      int             // zero → 1 day
	MaximumInterval  int             // zero → 36500 days
	DisableFuzzing   bool            // zero → fuzz enabled

	// FuzzSeed overrides the seed used for interval fuzzing. nil uses a
	// deterministic hash of (card, now), which keeps Commit equal to the
	// corresponding Preview entry. Tests inject a fixed function here.
	FuzzSeed func(types.Card, time.Time) int64
}

// Scheduler evolves card memory state in response to ratings. It is
// stateless apart from its configuration and safe for concurrent use.
type Scheduler struct {
	model            memoryModel
	desiredRetention float64
	learningSteps    []time.Duration
	relearningSteps  []time.Duration
	minInterval      int
	maximumInterval  int
	disableFuzzing   bool
	fuzzSeed         func(types.Card, time.Time) int64
}

// New creates a Scheduler from the given config. Zero-value fields are
// filled with defaults; invalid values return an error.
func New(cfg Config) (*Scheduler, error) {
	params := cfg.Parameters
	if params == [21]float64{} {
		params = DefaultParameters
	}
	if err := ValidateParameters(params); err != nil {
		return nil, err
	}

	retention := cfg.DesiredRetention
	if retention == 0 {
		retention = referenceRetention
	}
	if retention <= 0 || retention > 1 {
		return nil, fmt.Errorf("scheduler: desired retention %f out of range (0, 1]", retention)
	}

	minIvl := cfg.MinInterval
	if minIvl == 0 {
		minIvl = 1
	}
	maxIvl := cfg.MaximumInterval
	if maxIvl == 0 {
		maxIvl = 36500
	}
	if minIvl < 1 || maxIvl < minIvl {
		return nil, fmt.Errorf("scheduler: interval bounds [%d, %d] invalid", minIvl, maxIvl)
	}

	learning := cfg.LearningSteps
	if learning == nil {
		learning = []time.Duration{time.Minute, 10 * time.Minute}
	}
	relearning := cfg.RelearningSteps
	if relearning == nil {
		relearning = []time.Duration{10 * time.Minute}
	}

	seed := cfg.FuzzSeed
	if seed == nil {
		seed = defaultFuzzSeed
	}

	return &Scheduler{
		model:            newMemoryModel(params),
		desiredRetention: retention,
		learningSteps:    learning,
		relearningSteps:  relearning,
		minInterval:      minIvl,
		maximumInterval:  maxIvl,
		disableFuzzing:   cfg.DisableFuzzing,
		fuzzSeed:         seed,
	}, nil
}

// Commit applies a rating to the card at the given time and returns the
// updated card. The input card is never mutated; on error it is returned
// unchanged in meaning (the zero Card and a non-nil error). The result is
// identical to the corresponding Preview entry for the same inputs.
func (s *Scheduler) Commit(card types.Card, rating types.Rating, now time.Time) (types.Card, error) {
	if !rating.IsValid() {
		return types.Card{}, fmt.Errorf("%w: %d", ErrInvalidRating, int(rating))
	}
	if err := card.Validate(); err != nil {
		return types.Card{}, fmt.Errorf("%w: %v", ErrInvalidCardState, err)
	}

	c := card.Clone()

	var elapsed float64
	if c.LastReview != nil {
		elapsed = now.Sub(*c.LastReview).Hours() / 24.0
		if elapsed < 0 {
			elapsed = 0
		}
	}

	s.updateMemory(&c, rating, elapsed)
	interval := s.transition(&c, rating)

	if !s.disableFuzzing && c.State == types.StateReview {
		days := int(interval.Hours() / 24.0)
		if days > 0 {
			rng := rand.New(rand.NewSource(s.fuzzSeed(card, now)))
			fuzzed := applyFuzz(days, s.maximumInterval, rng)
			interval = time.Duration(fuzzed) * 24 * time.Hour
		}
	}

	c.Due = now.Add(interval)
	c.ElapsedDays = int(elapsed)
	c.ScheduledDays = int(interval.Hours() / 24.0)
	c.Reps++
	reviewedAt := now
	c.LastReview = &reviewedAt

	return c, nil
}

// Preview returns the card that Commit would produce for each of the four
// ratings, without committing anything. It is pure: calling it any number
// of times with identical arguments yields identical results.
func (s *Scheduler) Preview(card types.Card, now time.Time) (map[types.Rating]types.Card, error) {
	out := make(map[types.Rating]types.Card, len(allRatings))
	for _, r := range allRatings {
		c, err := s.Commit(card, r, now)
		if err != nil {
			return nil, err
		}
		out[r] = c
	}
	return out, nil
}

// Retrievability estimates the probability of recalling the card at the
// given time. A card that has never been reviewed has no curve yet and
// reports 0.
func (s *Scheduler) Retrievability(card types.Card, now time.Time) float64 {
	if card.LastReview == nil {
		return 0
	}
	elapsed := now.Sub(*card.LastReview).Hours() / 24.0
	if elapsed < 0 {
		elapsed = 0
	}
	return s.model.retrievability(elapsed, card.Stability)
}

// updateMemory evolves stability and difficulty for the rating. First
// reviews bootstrap both from the rating; later same-day reviews use the
// short-term update, cross-day reviews the full forgetting-curve update.
func (s *Scheduler) updateMemory(c *types.Card, rating types.Rating, elapsed float64) {
	if c.State == types.StateNew {
		c.Stability = s.model.initStability(rating)
		c.Difficulty = s.model.initDifficulty(rating, true)
		return
	}

	if elapsed < 1 {
		c.Stability = s.model.shortTermStability(c.Stability, rating)
	} else {
		retr := s.model.retrievability(elapsed, c.Stability)
		c.Stability = s.model.nextStability(c.Difficulty, c.Stability, retr, rating)
	}
	c.Difficulty = s.model.nextDifficulty(c.Difficulty, rating)
}

// transition applies the state machine and returns the raw interval before
// fuzzing. LearningSteps on the card is the index of the current step.
func (s *Scheduler) transition(c *types.Card, rating types.Rating) time.Duration {
	switch c.State {
	case types.StateNew:
		c.State = types.StateLearning
		c.LearningSteps = 0
		return s.stepLearning(c, rating, s.learningSteps)
	case types.StateLearning:
		return s.stepLearning(c, rating, s.learningSteps)
	case types.StateRelearning:
		return s.stepLearning(c, rating, s.relearningSteps)
	default:
		return s.stepReview(c, rating)
	}
}

// stepLearning advances a Learning or Relearning card through its steps.
func (s *Scheduler) stepLearning(c *types.Card, rating types.Rating, steps []time.Duration) time.Duration {
	step := c.LearningSteps

	// No steps configured, or the step index outlived a config change:
	// graduate unless the card was forgotten outright.
	if len(steps) == 0 || (step >= len(steps) && rating != types.Again) {
		return s.graduate(c)
	}

	switch rating {
	case types.Again:
		c.LearningSteps = 0
		return steps[0]

	case types.Hard:
		if step == 0 && len(steps) == 1 {
			return time.Duration(float64(steps[0]) * 1.5)
		}
		if step == 0 && len(steps) >= 2 {
			return (steps[0] + steps[1]) / 2
		}
		return steps[step]

	case types.Good:
		next := step + 1
		if next >= len(steps) {
			return s.graduate(c)
		}
		c.LearningSteps = next
		return steps[next]

	default: // easy skips the remaining steps
		return s.graduate(c)
	}
}

// stepReview handles a card already in long-term review. Again lapses the
// card into relearning; everything else reschedules on the inverted curve.
func (s *Scheduler) stepReview(c *types.Card, rating types.Rating) time.Duration {
	if rating == types.Again {
		c.Lapses++
		if len(s.relearningSteps) > 0 {
			c.State = types.StateRelearning
			c.LearningSteps = 0
			return s.relearningSteps[0]
		}
		// No relearning steps configured: stay in review on the
		// shrunk stability.
	}
	days := s.model.nextInterval(c.Stability, s.desiredRetention, s.minInterval, s.maximumInterval)
	return time.Duration(days) * 24 * time.Hour
}

// graduate promotes a card out of its learning steps into long-term review.
func (s *Scheduler) graduate(c *types.Card) time.Duration {
	c.State = types.StateReview
	c.LearningSteps = 0
	days := s.model.nextInterval(c.Stability, s.desiredRetention, s.minInterval, s.maximumInterval)
	return time.Duration(days) * 24 * time.Hour
}
