package types

import (
	"fmt"
	"strings"
	"time"
)

// Question is one learnable item: a prompt, its reference answer, and the
// scheduling card that decides when it is next shown.
type Question struct {
	ID        string    `json:"id"`
	ContextID string    `json:"context_id,omitempty"`
	Prompt    string    `json:"prompt"`
	Answer    string    `json:"answer"`
	Card      Card      `json:"card"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version is incremented on every persisted update and used for
	// optimistic concurrency control in the store.
	Version int64 `json:"version"`
}

// Validate checks that the question has the fields required for storage.
func (q *Question) Validate() error {
	if q == nil {
		return fmt.Errorf("question is nil")
	}
	if q.ID == "" {
		return fmt.Errorf("question ID is required")
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("question prompt is required")
	}
	if strings.TrimSpace(q.Answer) == "" {
		return fmt.Errorf("question answer is required")
	}
	return q.Card.Validate()
}

// Context is a unit of ingested source material (pasted text, a fetched URL,
// an imported deck) that questions are generated from.
type Context struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Source    string    `json:"source"` // "text", "url", "import"
	CreatedAt time.Time `json:"created_at"`
}

// ReviewRecord is one graded answer inside a review session. Records are
// append-only; the session summary is computed from them.
type ReviewRecord struct {
	QuestionID string        `json:"question_id"`
	Rating     Rating        `json:"rating"`
	Feedback   string        `json:"feedback"`
	NextDue    time.Time     `json:"next_due"`
	TimeSpent  time.Duration `json:"time_spent"`
}

// Correct reports whether the record counts as a successful recall.
// Again is the only failing rating.
func (r ReviewRecord) Correct() bool {
	return r.Rating != Again
}
