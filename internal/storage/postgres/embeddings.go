package postgres

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/retainhq/retain/internal/storage"
)

// StoreQuestionEmbedding stores or replaces the embedding for a question.
// The vector is always kept in the BYTEA column; when pgvector is available
// it is also written to embedding_vec for cosine-distance queries.
func (s *Store) StoreQuestionEmbedding(ctx context.Context, questionID string, embedding []float32, model string) error {
	if questionID == "" {
		return fmt.Errorf("%w: question ID is required", storage.ErrInvalidInput)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding vector cannot be empty", storage.ErrInvalidInput)
	}
	if model == "" {
		return fmt.Errorf("%w: model is required", storage.ErrInvalidInput)
	}

	raw := serializeEmbedding(embedding)

	if s.pgvectorAvailable {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO question_embeddings (question_id, embedding, dimension, model, embedding_vec, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
			ON CONFLICT (question_id) DO UPDATE SET
				embedding = excluded.embedding,
				dimension = excluded.dimension,
				model = excluded.model,
				embedding_vec = excluded.embedding_vec,
				updated_at = CURRENT_TIMESTAMP`,
			questionID, raw, len(embedding), model, pgvector.NewVector(embedding),
		)
		if err != nil {
			return fmt.Errorf("postgres: failed to store embedding: %w", err)
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO question_embeddings (question_id, embedding, dimension, model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (question_id) DO UPDATE SET
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			model = excluded.model,
			updated_at = CURRENT_TIMESTAMP`,
		questionID, raw, len(embedding), model,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to store embedding: %w", err)
	}
	return nil
}

// MaxSimilarity returns the highest cosine similarity between the given
// embedding and any stored question embedding within the context. Returns 0
// when no embeddings are stored.
func (s *Store) MaxSimilarity(ctx context.Context, contextID string, embedding []float32) (float64, error) {
	if len(embedding) == 0 {
		return 0, fmt.Errorf("%w: embedding vector cannot be empty", storage.ErrInvalidInput)
	}

	if s.pgvectorAvailable {
		return s.maxSimilarityVec(ctx, contextID, embedding)
	}
	return s.maxSimilarityScan(ctx, contextID, embedding)
}

// maxSimilarityVec pushes the cosine computation into the database.
// The <=> operator is cosine distance, so similarity is 1 - distance.
func (s *Store) maxSimilarityVec(ctx context.Context, contextID string, embedding []float32) (float64, error) {
	query := `
		SELECT MAX(1 - (e.embedding_vec <=> $1))
		FROM question_embeddings e
		JOIN questions q ON q.id = e.question_id
		WHERE e.embedding_vec IS NOT NULL`
	args := []any{pgvector.NewVector(embedding)}
	if contextID != "" {
		query += ` AND q.context_id = $2`
		args = append(args, contextID)
	}

	var sim sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&sim); err != nil {
		return 0, fmt.Errorf("postgres: failed to query similarity: %w", err)
	}
	if !sim.Valid {
		return 0, nil
	}
	return sim.Float64, nil
}

// maxSimilarityScan loads stored vectors and computes cosine similarity in
// Go. Used when the pgvector extension is absent; acceptable for the small
// per-context corpora duplicate detection works over.
func (s *Store) maxSimilarityScan(ctx context.Context, contextID string, embedding []float32) (float64, error) {
	query := `
		SELECT e.embedding, e.dimension
		FROM question_embeddings e
		JOIN questions q ON q.id = e.question_id`
	var args []any
	if contextID != "" {
		query += ` WHERE q.context_id = $1`
		args = append(args, contextID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var max float64
	for rows.Next() {
		var raw []byte
		var dim int
		if err := rows.Scan(&raw, &dim); err != nil {
			return 0, fmt.Errorf("postgres: failed to scan embedding: %w", err)
		}
		stored, err := deserializeEmbedding(raw, dim)
		if err != nil {
			return 0, fmt.Errorf("postgres: stored embedding corrupt: %w", err)
		}
		if sim := cosineSimilarity(embedding, stored); sim > max {
			max = sim
		}
	}
	return max, rows.Err()
}

// serializeEmbedding packs a float32 slice as little-endian bytes.
func serializeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func deserializeEmbedding(buf []byte, dimension int) ([]float32, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dimension)
	}
	if len(buf) != dimension*4 {
		return nil, fmt.Errorf("buffer size mismatch: expected %d bytes, got %d", dimension*4, len(buf))
	}
	embedding := make([]float32, dimension)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return embedding, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
