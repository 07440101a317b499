package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-prep/internal/model"
)

// ResultRepository is the PostgreSQL ResultStore.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

func (r *ResultRepository) SaveResult(ctx context.Context, res *model.Result) (string, error) {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.saveTx(ctx, tx, res); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return res.ID, nil
}

func (r *ResultRepository) SaveResults(ctx context.Context, results []*model.Result) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, res := range results {
		if res.ID == "" {
			res.ID = uuid.New().String()
		}
		if err := r.saveTx(ctx, tx, res); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ResultRepository) saveTx(ctx context.Context, tx pgx.Tx, res *model.Result) error {
	missed, err := json.Marshal(nonNilMissed(res.MissedQuestions))
	if err != nil {
		return fmt.Errorf("encode missed questions: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO quiz_results (
			id, subject_id, mode, score, total_possible_marks,
			correct_count, wrong_count, skipped_count, total_questions,
			accuracy_percent, total_active_duration_seconds, missed_questions, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING`,
		res.ID, res.SubjectID, string(res.Mode), res.Score, res.TotalPossibleMarks,
		res.CorrectCount, res.WrongCount, res.SkippedCount, res.TotalQuestions,
		res.AccuracyPercent, res.TotalActiveDurationSeconds, missed, res.CreatedAtEpochMillis,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}
	return upsertMissedPg(ctx, tx, res.SubjectID, res.MissedQuestions, res.CreatedAtEpochMillis)
}

func (r *ResultRepository) SaveMissedQuestions(ctx context.Context, subjectID string, missed []model.MissedQuestion, missedAt int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := upsertMissedPg(ctx, tx, subjectID, missed, missedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func upsertMissedPg(ctx context.Context, tx pgx.Tx, subjectID string, missed []model.MissedQuestion, missedAt int64) error {
	if len(missed) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range missed {
		q, err := json.Marshal(m.Question)
		if err != nil {
			return fmt.Errorf("encode question %s: %w", m.Question.ID, err)
		}
		batch.Queue(
			`INSERT INTO missed_questions (question_id, subject_id, question, selected_index, miss_count, last_missed_at)
			 VALUES ($1, $2, $3, $4, 1, $5)
			 ON CONFLICT (subject_id, question_id) DO UPDATE
			 SET question = EXCLUDED.question,
			     selected_index = EXCLUDED.selected_index,
			     miss_count = missed_questions.miss_count + 1,
			     last_missed_at = EXCLUDED.last_missed_at`,
			m.Question.ID, subjectID, q, m.SelectedIndex, missedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert missed questions: %w", err)
	}
	return nil
}

func (r *ResultRepository) GetResult(ctx context.Context, id string) (*model.Result, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	res := &model.Result{}
	var mode string
	var missed []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, subject_id, mode, score, total_possible_marks,
		        correct_count, wrong_count, skipped_count, total_questions,
		        accuracy_percent, total_active_duration_seconds, missed_questions, created_at
		 FROM quiz_results WHERE id = $1`, id,
	).Scan(&res.ID, &res.SubjectID, &mode, &res.Score, &res.TotalPossibleMarks,
		&res.CorrectCount, &res.WrongCount, &res.SkippedCount, &res.TotalQuestions,
		&res.AccuracyPercent, &res.TotalActiveDurationSeconds, &missed, &res.CreatedAtEpochMillis)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	res.Mode = model.Mode(mode)
	if err := json.Unmarshal(missed, &res.MissedQuestions); err != nil {
		return nil, fmt.Errorf("decode missed questions: %w", err)
	}
	return res, nil
}

func (r *ResultRepository) ListResults(ctx context.Context, subjectID string, limit, offset int) ([]model.ResultSummary, int64, error) {
	baseQuery := `FROM quiz_results WHERE 1=1`
	args := []interface{}{}
	if subjectID != "" {
		args = append(args, subjectID)
		baseQuery += fmt.Sprintf(" AND subject_id = $%d", len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, subject_id, mode, score, total_possible_marks,
		       correct_count, wrong_count, skipped_count,
		       accuracy_percent, total_active_duration_seconds, created_at
		` + baseQuery + `
		ORDER BY created_at DESC, id ASC
		LIMIT $` + fmt.Sprintf("%d", len(args)+1) + ` OFFSET $` + fmt.Sprintf("%d", len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
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

func (r *ResultRepository) ListMissedQuestions(ctx context.Context, subjectID string, limit int) ([]model.RevisionItem, error) {
	query := `SELECT subject_id, question, selected_index, miss_count, last_missed_at FROM missed_questions`
	args := []interface{}{}
	if subjectID != "" {
		args = append(args, subjectID)
		query += " WHERE subject_id = $1"
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY last_missed_at DESC, question_id ASC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.RevisionItem{}
	for rows.Next() {
		var item model.RevisionItem
		var q []byte
		if err := rows.Scan(&item.SubjectID, &q, &item.SelectedIndex, &item.MissCount, &item.LastMissedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(q, &item.Question); err != nil {
			return nil, fmt.Errorf("decode question: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *ResultRepository) DeleteMissedQuestion(ctx context.Context, questionID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM missed_questions WHERE question_id = $1`, questionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the underlying pool.
func (r *ResultRepository) Close() error {
	r.pool.Close()
	return nil
}

func nonNilMissed(m []model.MissedQuestion) []model.MissedQuestion {
	if m == nil {
		return []model.MissedQuestion{}
	}
	return m
}
