package storage

import (
	"errors"
	"time"

	"github.com/retainhq/retain/pkg/types"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates that a competing write to the same question won.
	// The losing writer must re-read the question and decide whether to retry.
	ErrConflict = errors.New("concurrent modification conflict")
)

// PaginatedResult is a page of results plus enough metadata to page further.
type PaginatedResult[T any] struct {
	Items    []T  `json:"items"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}

// ListOptions provides pagination and filtering for question listings.
type ListOptions struct {
	// Page is the page number to retrieve (1-indexed, default: 1).
	Page int

	// Limit is the number of items per page (default: 20, max: 100).
	Limit int

	// ContextID filters to questions of one context. Empty means no filter.
	ContextID string

	// State filters by card state name ("new", "learning", ...).
	// Empty string means no filter.
	State string
}

// Normalize applies defaults and clamps the ListOptions.
func (o *ListOptions) Normalize() {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
}

// Offset calculates the SQL offset for the current page.
func (o *ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// ReviewLog records one graded review event.
type ReviewLog struct {
	QuestionID string
	Rating     types.Rating
	ReviewedAt time.Time
	TimeSpent  time.Duration
}

// Stats is the aggregate review picture shown on the home screen.
type Stats struct {
	TotalQuestions int            `json:"total_questions"`
	TotalContexts  int            `json:"total_contexts"`
	DueNow         int            `json:"due_now"`
	ByState        map[string]int `json:"by_state"`

	// ReviewsToday is the number of reviews logged since local midnight.
	ReviewsToday int `json:"reviews_today"`

	// Accuracy is the fraction of logged reviews rated above again,
	// over the most recent 100 reviews. 0 when no reviews exist.
	Accuracy float64 `json:"accuracy"`

	// StreakDays is the number of consecutive calendar days, ending today
	// or yesterday, with at least one logged review.
	StreakDays int `json:"streak_days"`
}
