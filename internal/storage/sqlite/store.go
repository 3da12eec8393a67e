// Package sqlite implements the storage interfaces on SQLite, the default
// single-user backend.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/retainhq/retain/internal/storage"
	"github.com/retainhq/retain/pkg/types"
)

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New opens a SQLite database, configures WAL mode, and creates the schema.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY under concurrent load;
	// WAL mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// GetDB exposes the underlying connection for settings persistence.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const questionColumns = `id, context_id, prompt, answer, state, due, stability, difficulty,
	elapsed_days, scheduled_days, learning_steps, reps, lapses, last_review,
	version, created_at, updated_at`

// CreateQuestion inserts a new question with its initial card.
func (s *Store) CreateQuestion(ctx context.Context, q *types.Question) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = now
	}
	if q.Version == 0 {
		q.Version = 1
	}

	state, err := q.Card.State.MarshalText()
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO questions (`+questionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, nullableString(q.ContextID), q.Prompt, q.Answer, string(state),
		q.Card.Due.UTC(), q.Card.Stability, q.Card.Difficulty,
		q.Card.ElapsedDays, q.Card.ScheduledDays, q.Card.LearningSteps,
		q.Card.Reps, q.Card.Lapses, nullableTime(q.Card.LastReview),
		q.Version, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert question: %w", err)
	}
	return nil
}

// GetQuestion retrieves a question by ID.
func (s *Store) GetQuestion(ctx context.Context, id string) (*types.Question, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	q, err := scanQuestion(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: question %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get question: %w", err)
	}
	return q, nil
}

// GetDue returns questions due at or before now, due ascending, ID tiebreak.
func (s *Store) GetDue(ctx context.Context, now time.Time, limit int, contextID string) ([]*types.Question, error) {
	if limit < 1 {
		limit = 20
	}

	query := `SELECT ` + questionColumns + ` FROM questions WHERE due <= ?`
	args := []any{now.UTC()}
	if contextID != "" {
		query += ` AND context_id = ?`
		args = append(args, contextID)
	}
	query += ` ORDER BY due ASC, id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query due questions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanQuestions(rows)
}

// Save persists an updated question with an optimistic version check.
func (s *Store) Save(ctx context.Context, q *types.Question) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	state, err := q.Card.State.MarshalText()
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE questions SET
			prompt = ?, answer = ?, state = ?, due = ?,
			stability = ?, difficulty = ?,
			elapsed_days = ?, scheduled_days = ?, learning_steps = ?,
			reps = ?, lapses = ?, last_review = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		q.Prompt, q.Answer, string(state), q.Card.Due.UTC(),
		q.Card.Stability, q.Card.Difficulty,
		q.Card.ElapsedDays, q.Card.ScheduledDays, q.Card.LearningSteps,
		q.Card.Reps, q.Card.Lapses, nullableTime(q.Card.LastReview),
		time.Now().UTC(), q.ID, q.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save question: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to read affected rows: %w", err)
	}
	if affected == 0 {
		// Either the question is gone or another writer bumped the version.
		var count int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM questions WHERE id = ?", q.ID).Scan(&count); err != nil {
			return fmt.Errorf("sqlite: failed to check question existence: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("%w: question %s", storage.ErrNotFound, q.ID)
		}
		return fmt.Errorf("%w: question %s at version %d", storage.ErrConflict, q.ID, q.Version)
	}

	q.Version++
	return nil
}

// ListQuestions retrieves questions with pagination.
func (s *Store) ListQuestions(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.Question], error) {
	opts.Normalize()

	where := " WHERE 1=1"
	var args []any
	if opts.ContextID != "" {
		where += " AND context_id = ?"
		args = append(args, opts.ContextID)
	}
	if opts.State != "" {
		where += " AND state = ?"
		args = append(args, opts.State)
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM questions"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("sqlite: failed to count questions: %w", err)
	}

	query := `SELECT ` + questionColumns + ` FROM questions` + where +
		` ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list questions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	questions, err := scanQuestions(rows)
	if err != nil {
		return nil, err
	}

	items := make([]types.Question, len(questions))
	for i, q := range questions {
		items[i] = *q
	}
	return &storage.PaginatedResult[types.Question]{
		Items:    items,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.Limit,
		HasMore:  opts.Offset()+len(items) < total,
	}, nil
}

// DeleteQuestion removes a question permanently.
func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM questions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete question: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: question %s", storage.ErrNotFound, id)
	}
	return nil
}

// RecordReview appends one graded review to the review log.
func (s *Store) RecordReview(ctx context.Context, rec *storage.ReviewLog) error {
	if rec == nil || rec.QuestionID == "" || !rec.Rating.IsValid() {
		return fmt.Errorf("%w: review log requires question ID and valid rating", storage.ErrInvalidInput)
	}
	reviewedAt := rec.ReviewedAt
	if reviewedAt.IsZero() {
		reviewedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_logs (question_id, rating, reviewed_at, time_spent_ms)
		VALUES (?, ?, ?, ?)`,
		rec.QuestionID, int(rec.Rating), reviewedAt.UTC(), rec.TimeSpent.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to record review: %w", err)
	}
	return nil
}

// Stats computes aggregate review statistics.
func (s *Store) Stats(ctx context.Context, now time.Time) (*storage.Stats, error) {
	stats := &storage.Stats{ByState: make(map[string]int)}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM questions").Scan(&stats.TotalQuestions); err != nil {
		return nil, fmt.Errorf("sqlite: failed to count questions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM contexts").Scan(&stats.TotalContexts); err != nil {
		return nil, fmt.Errorf("sqlite: failed to count contexts: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM questions WHERE due <= ?", now.UTC()).Scan(&stats.DueNow); err != nil {
		return nil, fmt.Errorf("sqlite: failed to count due questions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT state, COUNT(*) FROM questions GROUP BY state")
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to count states: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan state count: %w", err)
		}
		stats.ByState[state] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: state count rows: %w", err)
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM review_logs WHERE reviewed_at >= ?",
		midnight.UTC()).Scan(&stats.ReviewsToday); err != nil {
		return nil, fmt.Errorf("sqlite: failed to count today's reviews: %w", err)
	}

	ratings, err := s.recentRatings(ctx, 100)
	if err != nil {
		return nil, err
	}
	stats.Accuracy = storage.AccuracyFromRatings(ratings)

	days, err := s.reviewDays(ctx)
	if err != nil {
		return nil, err
	}
	stats.StreakDays = storage.StreakFromDays(days, now)

	return stats, nil
}

func (s *Store) recentRatings(ctx context.Context, limit int) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT rating FROM review_logs ORDER BY reviewed_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query recent ratings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ratings []int
	for rows.Next() {
		var r int
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

func (s *Store) reviewDays(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT reviewed_at FROM review_logs ORDER BY reviewed_at DESC LIMIT 2000")
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query review days: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var days []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan review time: %w", err)
		}
		days = append(days, at)
	}
	return days, rows.Err()
}

// CreateContext inserts a new context.
func (s *Store) CreateContext(ctx context.Context, c *types.Context) error {
	if c == nil || c.ID == "" || c.Name == "" {
		return fmt.Errorf("%w: context requires ID and name", storage.ErrInvalidInput)
	}
	if c.Source == "" {
		c.Source = "text"
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contexts (id, name, content, source, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Content, c.Source, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert context: %w", err)
	}
	return nil
}

// GetContext retrieves a context by ID.
func (s *Store) GetContext(ctx context.Context, id string) (*types.Context, error) {
	var c types.Context
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, content, source, created_at FROM contexts WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Content, &c.Source, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: context %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get context: %w", err)
	}
	return &c, nil
}

// ListContexts returns all contexts, newest first.
func (s *Store) ListContexts(ctx context.Context) ([]*types.Context, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, content, source, created_at
		FROM contexts ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list contexts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contexts []*types.Context
	for rows.Next() {
		var c types.Context
		if err := rows.Scan(&c.ID, &c.Name, &c.Content, &c.Source, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan context: %w", err)
		}
		contexts = append(contexts, &c)
	}
	return contexts, rows.Err()
}

// DeleteContext removes a context and, via the foreign key, its questions.
func (s *Store) DeleteContext(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM contexts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete context: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: context %s", storage.ErrNotFound, id)
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanQuestion.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*types.Question, error) {
	var (
		q          types.Question
		contextID  sql.NullString
		state      string
		lastReview sql.NullTime
	)
	err := row.Scan(
		&q.ID, &contextID, &q.Prompt, &q.Answer, &state, &q.Card.Due,
		&q.Card.Stability, &q.Card.Difficulty,
		&q.Card.ElapsedDays, &q.Card.ScheduledDays, &q.Card.LearningSteps,
		&q.Card.Reps, &q.Card.Lapses, &lastReview,
		&q.Version, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if contextID.Valid {
		q.ContextID = contextID.String
	}
	if err := q.Card.State.UnmarshalText([]byte(state)); err != nil {
		return nil, err
	}
	if lastReview.Valid {
		t := lastReview.Time
		q.Card.LastReview = &t
	}
	return &q, nil
}

func scanQuestions(rows *sql.Rows) ([]*types.Question, error) {
	var questions []*types.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
