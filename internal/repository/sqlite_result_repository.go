package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-prep/internal/model"
)

// SQLiteResultRepository is the local ResultStore.
type SQLiteResultRepository struct {
	db *sql.DB
}

// NewSQLiteResultRepository wraps a database opened by database.OpenSQLite.
func NewSQLiteResultRepository(db *sql.DB) *SQLiteResultRepository {
	return &SQLiteResultRepository{db: db}
}

func (r *SQLiteResultRepository) SaveResult(ctx context.Context, res *model.Result) (string, error) {
	if err := r.SaveResults(ctx, []*model.Result{res}); err != nil {
		return "", err
	}
	return res.ID, nil
}

func (r *SQLiteResultRepository) SaveResults(ctx context.Context, results []*model.Result) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, res := range results {
		if res.ID == "" {
			res.ID = uuid.New().String()
		}
		if err := r.saveTx(ctx, tx, res); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteResultRepository) saveTx(ctx context.Context, tx *sql.Tx, res *model.Result) error {
	missed, err := json.Marshal(nonNilMissed(res.MissedQuestions))
	if err != nil {
		return fmt.Errorf("encode missed questions: %w", err)
	}

	out, err := tx.ExecContext(ctx,
		`INSERT INTO quiz_results (
			id, subject_id, mode, score, total_possible_marks,
			correct_count, wrong_count, skipped_count, total_questions,
			accuracy_percent, total_active_duration_seconds, missed_questions_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		res.ID, res.SubjectID, string(res.Mode), res.Score, res.TotalPossibleMarks,
		res.CorrectCount, res.WrongCount, res.SkippedCount, res.TotalQuestions,
		res.AccuracyPercent, res.TotalActiveDurationSeconds, string(missed), res.CreatedAtEpochMillis,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	if n, err := out.RowsAffected(); err != nil || n == 0 {
		return err
	}
	return upsertMissedSQLite(ctx, tx, res.SubjectID, res.MissedQuestions, res.CreatedAtEpochMillis)
}

func (r *SQLiteResultRepository) SaveMissedQuestions(ctx context.Context, subjectID string, missed []model.MissedQuestion, missedAt int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := upsertMissedSQLite(ctx, tx, subjectID, missed, missedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertMissedSQLite(ctx context.Context, tx *sql.Tx, subjectID string, missed []model.MissedQuestion, missedAt int64) error {
	if len(missed) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO missed_questions (question_id, subject_id, question_json, selected_index, miss_count, last_missed_at)
		 VALUES (?, ?, ?, ?, 1, ?)
		 ON CONFLICT (subject_id, question_id) DO UPDATE
		 SET question_json = excluded.question_json,
		     selected_index = excluded.selected_index,
		     miss_count = missed_questions.miss_count + 1,
		     last_missed_at = excluded.last_missed_at`)
	if err != nil {
		return fmt.Errorf("prepare missed upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range missed {
		q, err := json.Marshal(m.Question)
		if err != nil {
			return fmt.Errorf("encode question %s: %w", m.Question.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, m.Question.ID, subjectID, string(q), m.SelectedIndex, missedAt); err != nil {
			return fmt.Errorf("upsert missed question %s: %w", m.Question.ID, err)
		}
	}
	return nil
}

func (r *SQLiteResultRepository) GetResult(ctx context.Context, id string) (*model.Result, error) {
	res := &model.Result{}
	var mode, missed string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, subject_id, mode, score, total_possible_marks,
		        correct_count, wrong_count, skipped_count, total_questions,
		        accuracy_percent, total_active_duration_seconds, missed_questions_json, created_at
		 FROM quiz_results WHERE id = ?`, id,
	).Scan(&res.ID, &res.SubjectID, &mode, &res.Score, &res.TotalPossibleMarks,
		&res.CorrectCount, &res.WrongCount, &res.SkippedCount, &res.TotalQuestions,
		&res.AccuracyPercent, &res.TotalActiveDurationSeconds, &missed, &res.CreatedAtEpochMillis)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	res.Mode = model.Mode(mode)
	if err := json.Unmarshal([]byte(missed), &res.MissedQuestions); err != nil {
		return nil, fmt.Errorf("decode missed questions: %w", err)
	}
	return res, nil
}

func (r *SQLiteResultRepository) ListResults(ctx context.Context, subjectID string, limit, offset int) ([]model.ResultSummary, int64, error) {
	baseQuery := `FROM quiz_results WHERE 1=1`
	args := []interface{}{}
	if subjectID != "" {
		baseQuery += " AND subject_id = ?"
		args = append(args, subjectID)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, subject_id, mode, score, total_possible_marks,
		       correct_count, wrong_count, skipped_count,
		       accuracy_percent, total_active_duration_seconds, created_at
		` + baseQuery + `
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	summaries := []model.ResultSummary{}
	for rows.Next() {
		var s model.ResultSummary
		var mode string
		if err := rows.Scan(&s.ID, &s.SubjectID, &mode, &s.Score, &s.TotalPossibleMarks,
			&s.CorrectCount, &s.WrongCount, &s.SkippedCount,
			&s.AccuracyPercent, &s.TotalActiveDurationSeconds, &s.CreatedAtEpochMillis); err != nil {
			return nil, 0, err
		}
		s.Mode = model.Mode(mode)
		summaries = append(summaries, s)
	}
	return summaries, total, rows.Err()
}

func (r *SQLiteResultRepository) ListMissedQuestions(ctx context.Context, subjectID string, limit int) ([]model.RevisionItem, error) {
	query := `SELECT subject_id, question_json, selected_index, miss_count, last_missed_at FROM missed_questions`
	args := []interface{}{}
	if subjectID != "" {
		query += " WHERE subject_id = ?"
		args = append(args, subjectID)
	}
	query += " ORDER BY last_missed_at DESC, question_id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.RevisionItem{}
	for rows.Next() {
		var item model.RevisionItem
		var q string
		if err := rows.Scan(&item.SubjectID, &q, &item.SelectedIndex, &item.MissCount, &item.LastMissedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(q), &item.Question); err != nil {
			return nil, fmt.Errorf("decode question: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *SQLiteResultRepository) DeleteMissedQuestion(ctx context.Context, questionID string) error {
	out, err := r.db.ExecContext(ctx, `DELETE FROM missed_questions WHERE question_id = ?`, questionID)
	if err != nil {
		return err
	}
	n, err := out.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteResultRepository) Close() error {
	return r.db.Close()
}
