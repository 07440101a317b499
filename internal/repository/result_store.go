package repository

import (
	"context"
	"errors"

	"github.com/stemsi/exstem-prep/internal/model"
)

// ErrNotFound is returned when a result or revision item does not exist.
var ErrNotFound = errors.New("repository: not found")

// ResultStore persists finished attempts and the revision list.
type ResultStore interface {
	// SaveResult stores r and folds its missed questions into the revision
	// list in one transaction. Saving the same ID twice is a no-op, so a
	// retried save never double-counts misses.
	SaveResult(ctx context.Context, r *model.Result) (string, error)
	// SaveResults stores a batch in one transaction with SaveResult semantics.
	SaveResults(ctx context.Context, results []*model.Result) error
	// SaveMissedQuestions upserts questions into the revision list, bumping
	// the miss counter of questions already there.
	SaveMissedQuestions(ctx context.Context, subjectID string, missed []model.MissedQuestion, missedAt int64) error
	GetResult(ctx context.Context, id string) (*model.Result, error)
	// ListResults returns summaries newest first. An empty subjectID lists all.
	ListResults(ctx context.Context, subjectID string, limit, offset int) ([]model.ResultSummary, int64, error)
	// ListMissedQuestions returns revision items most recently missed first.
	ListMissedQuestions(ctx context.Context, subjectID string, limit int) ([]model.RevisionItem, error)
	// DeleteMissedQuestion removes a question from the revision list.
	DeleteMissedQuestion(ctx context.Context, questionID string) error
	Close() error
}
