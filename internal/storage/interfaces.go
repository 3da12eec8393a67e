// Package storage defines the persistence interfaces for Retain.
//
// Implementations live in the sqlite and postgres subpackages. Interfaces
// are kept small and focused so backends can be implemented independently
// and composed as needed.
package storage

import (
	"context"
	"time"

	"github.com/retainhq/retain/pkg/types"
)

// QuestionStore is the durable home of questions and their scheduling cards.
type QuestionStore interface {
	// CreateQuestion inserts a new question with its initial card.
	CreateQuestion(ctx context.Context, q *types.Question) error

	// GetQuestion retrieves a question by ID.
	// Returns ErrNotFound if the question doesn't exist.
	GetQuestion(ctx context.Context, id string) (*types.Question, error)

	// GetDue returns questions whose card is due at or before now, ordered
	// by due ascending with ID ascending as tiebreak. contextID narrows the
	// result to one context when non-empty. limit caps the result size.
	GetDue(ctx context.Context, now time.Time, limit int, contextID string) ([]*types.Question, error)

	// Save persists an updated question. The write succeeds only when the
	// stored version matches q.Version; the version is then incremented.
	// Returns ErrConflict when a competing write won, ErrNotFound when the
	// question no longer exists. On success q.Version reflects the stored
	// version.
	Save(ctx context.Context, q *types.Question) error

	// ListQuestions retrieves questions with pagination.
	ListQuestions(ctx context.Context, opts ListOptions) (*PaginatedResult[types.Question], error)

	// DeleteQuestion removes a question permanently.
	// Returns ErrNotFound if the question doesn't exist.
	DeleteQuestion(ctx context.Context, id string) error

	// RecordReview appends one graded review to the review log.
	RecordReview(ctx context.Context, rec *ReviewLog) error

	// Stats computes aggregate review statistics at the given time.
	Stats(ctx context.Context, now time.Time) (*Stats, error)

	// Close releases any resources held by the store.
	Close() error
}

// ContextStore persists ingested source material.
type ContextStore interface {
	// CreateContext inserts a new context.
	CreateContext(ctx context.Context, c *types.Context) error

	// GetContext retrieves a context by ID.
	// Returns ErrNotFound if the context doesn't exist.
	GetContext(ctx context.Context, id string) (*types.Context, error)

	// ListContexts returns all contexts, newest first.
	ListContexts(ctx context.Context) ([]*types.Context, error)

	// DeleteContext removes a context and its questions.
	// Returns ErrNotFound if the context doesn't exist.
	DeleteContext(ctx context.Context, id string) error
}

// Store is the full persistence surface the application wires together.
type Store interface {
	QuestionStore
	ContextStore
}

// EmbeddingStore is an optional capability for backends that can keep
// question embeddings for near-duplicate detection at generation time.
// Callers discover it with a type assertion on the Store.
type EmbeddingStore interface {
	// StoreQuestionEmbedding stores or replaces the embedding for a question.
	StoreQuestionEmbedding(ctx context.Context, questionID string, embedding []float32, model string) error

	// MaxSimilarity returns the highest cosine similarity between the given
	// embedding and any stored question embedding within the context.
	// Returns 0 when no embeddings are stored.
	MaxSimilarity(ctx context.Context, contextID string, embedding []float32) (float64, error)
}
