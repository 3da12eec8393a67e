package types

import (
	"fmt"
	"time"
)

// Default memory-model values assigned when a card is created.
const (
	InitialStability  = 4.0
	InitialDifficulty = 5.0

	// Difficulty is always clamped to [MinDifficulty, MaxDifficulty].
	MinDifficulty = 1.0
	MaxDifficulty = 10.0
)

// Card holds the scheduling state of one learnable item. It carries no
// behavior: cards are created once via NewCard and thereafter updated only
// by scheduler commits.
type Card struct {
	State         State      `json:"state"`
	Due           time.Time  `json:"due"`
	Stability     float64    `json:"stability"`
	Difficulty    float64    `json:"difficulty"`
	ElapsedDays   int        `json:"elapsed_days"`
	ScheduledDays int        `json:"scheduled_days"`
	LearningSteps int        `json:"learning_steps"`
	Reps          int        `json:"reps"`
	Lapses        int        `json:"lapses"`
	LastReview    *time.Time `json:"last_review"`
}

// NewCard returns a card with default memory-model values, due immediately.
func NewCard(now time.Time) Card {
	return Card{
		State:      StateNew,
		Due:        now,
		Stability:  InitialStability,
		Difficulty: InitialDifficulty,
	}
}

// Validate checks the card's invariants. It returns a descriptive error for
// the first violation found, or nil if the card is well formed.
func (c Card) Validate() error {
	if !c.State.IsValid() {
		return fmt.Errorf("invalid state: %d", int(c.State))
	}
	if c.Due.IsZero() {
		return fmt.Errorf("due timestamp is unset")
	}
	if c.Stability <= 0 {
		return fmt.Errorf("stability %v must be positive", c.Stability)
	}
	if c.Difficulty < MinDifficulty || c.Difficulty > MaxDifficulty {
		return fmt.Errorf("difficulty %v outside [%v, %v]", c.Difficulty, MinDifficulty, MaxDifficulty)
	}
	if c.ElapsedDays < 0 || c.ScheduledDays < 0 || c.LearningSteps < 0 || c.Reps < 0 || c.Lapses < 0 {
		return fmt.Errorf("negative counter (elapsed=%d scheduled=%d steps=%d reps=%d lapses=%d)",
			c.ElapsedDays, c.ScheduledDays, c.LearningSteps, c.Reps, c.Lapses)
	}
	if c.State == StateNew && c.LastReview != nil {
		return fmt.Errorf("new card has a last_review timestamp")
	}
	if c.State != StateNew && c.LastReview == nil {
		return fmt.Errorf("%s card has no last_review timestamp", c.State)
	}
	return nil
}

// Clone returns a deep copy of the card. The LastReview pointer is copied
// by value so the copy can be mutated without aliasing the original.
func (c Card) Clone() Card {
	out := c
	if c.LastReview != nil {
		v := *c.LastReview
		out.LastReview = &v
	}
	return out
}

// IsDue reports whether the card is eligible for review at the given time.
func (c Card) IsDue(now time.Time) bool {
	return !c.Due.After(now)
}
