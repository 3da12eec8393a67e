package sqlite

// Schema is the SQLite DDL, applied at open time. All statements are
// idempotent so reopening an existing database is safe.
const Schema = `
CREATE TABLE IF NOT EXISTS contexts (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	content    TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT 'text',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS questions (
	id             TEXT PRIMARY KEY,
	context_id     TEXT REFERENCES contexts(id) ON DELETE CASCADE,
	prompt         TEXT NOT NULL,
	answer         TEXT NOT NULL,
	state          TEXT NOT NULL DEFAULT 'new',
	due            TIMESTAMP NOT NULL,
	stability      REAL NOT NULL,
	difficulty     REAL NOT NULL,
	elapsed_days   INTEGER NOT NULL DEFAULT 0,
	scheduled_days INTEGER NOT NULL DEFAULT 0,
	learning_steps INTEGER NOT NULL DEFAULT 0,
	reps           INTEGER NOT NULL DEFAULT 0,
	lapses         INTEGER NOT NULL DEFAULT 0,
	last_review    TIMESTAMP,
	version        INTEGER NOT NULL DEFAULT 1,
	created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_questions_due ON questions(due, id);
CREATE INDEX IF NOT EXISTS idx_questions_context ON questions(context_id);
CREATE INDEX IF NOT EXISTS idx_questions_state ON questions(state);

CREATE TABLE IF NOT EXISTS review_logs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	question_id   TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	rating        INTEGER NOT NULL,
	reviewed_at   TIMESTAMP NOT NULL,
	time_spent_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_review_logs_reviewed_at ON review_logs(reviewed_at);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
