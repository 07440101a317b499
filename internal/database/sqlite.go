package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // driver: sqlite
)

// OpenSQLite opens the local result database at path, creating its directory
// and schema when missing.
func OpenSQLite(ctx context.Context, path string, log zerolog.Logger) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps sqlite from returning SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, SQLiteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap sqlite schema: %w", err)
	}

	log.Info().Str("path", path).Msg("SQLite opened")
	return db, nil
}

// SQLiteSchema mirrors migrations/sqlite and is applied on every open.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS quiz_results (
  id TEXT PRIMARY KEY,
  subject_id TEXT NOT NULL,
  mode TEXT NOT NULL,
  score REAL NOT NULL,
  total_possible_marks REAL NOT NULL,
  correct_count INTEGER NOT NULL,
  wrong_count INTEGER NOT NULL,
  skipped_count INTEGER NOT NULL,
  total_questions INTEGER NOT NULL,
  accuracy_percent REAL NOT NULL,
  total_active_duration_seconds REAL NOT NULL,
  missed_questions_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quiz_results_subject_created
  ON quiz_results (subject_id, created_at DESC);

CREATE TABLE IF NOT EXISTS missed_questions (
  question_id TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  question_json TEXT NOT NULL,
  selected_index INTEGER NOT NULL,
  miss_count INTEGER NOT NULL DEFAULT 1,
  last_missed_at INTEGER NOT NULL,
  PRIMARY KEY (subject_id, question_id)
);
`
