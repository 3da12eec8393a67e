// Package postgres provides PostgreSQL implementations of the storage
// interfaces, for deployments shared across devices.
package postgres

// Schema contains the SQL statements to create the database schema.
// All statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS contexts (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    content    TEXT NOT NULL DEFAULT '',
    source     TEXT NOT NULL DEFAULT 'text',
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS questions (
    id             TEXT PRIMARY KEY,
    context_id     TEXT REFERENCES contexts(id) ON DELETE CASCADE,
    prompt         TEXT NOT NULL,
    answer         TEXT NOT NULL,

    -- Scheduling card
    state          TEXT NOT NULL DEFAULT 'new',
    due            TIMESTAMPTZ NOT NULL,
    stability      DOUBLE PRECISION NOT NULL,
    difficulty     DOUBLE PRECISION NOT NULL,
    elapsed_days   INTEGER NOT NULL DEFAULT 0,
    scheduled_days INTEGER NOT NULL DEFAULT 0,
    learning_steps INTEGER NOT NULL DEFAULT 0,
    reps           INTEGER NOT NULL DEFAULT 0,
    lapses         INTEGER NOT NULL DEFAULT 0,
    last_review    TIMESTAMPTZ,

    -- Optimistic concurrency control
    version        BIGINT NOT NULL DEFAULT 1,

    created_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_questions_due ON questions(due, id);
CREATE INDEX IF NOT EXISTS idx_questions_context ON questions(context_id);
CREATE INDEX IF NOT EXISTS idx_questions_state ON questions(state);

CREATE TABLE IF NOT EXISTS review_logs (
    id            BIGSERIAL PRIMARY KEY,
    question_id   TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
    rating        INTEGER NOT NULL,
    reviewed_at   TIMESTAMPTZ NOT NULL,
    time_spent_ms BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_review_logs_reviewed_at ON review_logs(reviewed_at);
CREATE INDEX IF NOT EXISTS idx_review_logs_question ON review_logs(question_id);

-- Embeddings for near-duplicate detection at question generation time.
-- The raw vector is always kept in BYTEA; embedding_vec is added by the
-- pgvector migration when the extension is available.
CREATE TABLE IF NOT EXISTS question_embeddings (
    question_id TEXT PRIMARY KEY REFERENCES questions(id) ON DELETE CASCADE,
    embedding   BYTEA NOT NULL,
    dimension   INTEGER NOT NULL,
    model       TEXT NOT NULL,

    created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Settings table: persistent key-value store for application configuration.
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL,

    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// MigrationPgvector adds a vector column to question_embeddings for
// cosine-distance queries. Applied only when the extension is available.
// Safe to run multiple times.
const MigrationPgvector = `
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns
        WHERE table_name = 'question_embeddings' AND column_name = 'embedding_vec'
    ) THEN
        ALTER TABLE question_embeddings ADD COLUMN embedding_vec vector;
    END IF;
END
$$;

-- ivfflat needs rows to build from, so the index is only created once data
-- exists. Lists = 100 is a reasonable default for up to ~1M vectors.
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1 FROM pg_indexes WHERE indexname = 'idx_question_embeddings_vec_cosine'
  ) THEN
    IF EXISTS (SELECT 1 FROM question_embeddings LIMIT 1) THEN
      EXECUTE 'CREATE INDEX idx_question_embeddings_vec_cosine ON question_embeddings USING ivfflat (embedding_vec vector_cosine_ops) WITH (lists = 100)';
    END IF;
  END IF;
END$$;
`
