package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/model"
	"github.com/stemsi/exstem-prep/internal/repository"
	"github.com/stemsi/exstem-prep/internal/response"
)

const defaultRevisionLimit = 50

// HistoryService reads past results and the revision list.
type HistoryService struct {
	store repository.ResultStore
	log   zerolog.Logger
}

func NewHistoryService(store repository.ResultStore, log zerolog.Logger) *HistoryService {
	return &HistoryService{
		store: store,
		log:   log.With().Str("component", "history_service").Logger(),
	}
}

// ListResults returns one page of result summaries, newest first.
func (s *HistoryService) ListResults(ctx context.Context, subjectID string, page, perPage int) ([]model.ResultSummary, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	results, total, err := s.store.ListResults(ctx, subjectID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if results == nil {
		results = []model.ResultSummary{}
	}

	totalPages := (int(total) + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	}

	return results, pagination, nil
}

func (s *HistoryService) GetResult(ctx context.Context, id string) (*model.Result, error) {
	return s.store.GetResult(ctx, id)
}

// Revision lists missed questions to revisit.
func (s *HistoryService) Revision(ctx context.Context, subjectID string, limit int) ([]model.RevisionItem, error) {
	if limit < 1 || limit > 500 {
		limit = defaultRevisionLimit
	}
	return s.store.ListMissedQuestions(ctx, subjectID, limit)
}

// MarkRevised removes a question from the revision list.
func (s *HistoryService) MarkRevised(ctx context.Context, questionID string) error {
	if err := s.store.DeleteMissedQuestion(ctx, questionID); err != nil {
		return err
	}
	s.log.Debug().Str("question_id", questionID).Msg("question marked revised")
	return nil
}
