// Package scheduler implements the spaced-repetition memory model that
// decides when a card is next shown. It is a self-contained FSRS-class
// implementation: per-card stability and difficulty evolve in response to
// recall ratings, and the next interval is derived by inverting the
// forgetting curve for a target retention.
//
// All operations are pure: Commit and Preview never mutate their inputs and
// never touch storage. Persisting the returned card is the caller's job.
package scheduler

import "errors"

// Sentinel errors. Check with errors.Is.
var (
	// ErrInvalidRating is returned when a rating outside again..easy is
	// passed to Commit. The input card is untouched.
	ErrInvalidRating = errors.New("scheduler: invalid rating")

	// ErrInvalidCardState is returned when the input card violates a
	// memory-model invariant. The input card is untouched.
	ErrInvalidCardState = errors.New("scheduler: invalid card state")

	// ErrInvalidParameters is returned by New when a weight is outside
	// its allowed bounds.
	ErrInvalidParameters = errors.New("scheduler: parameters out of bounds")
)
