package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/model"
	"github.com/stemsi/exstem-prep/internal/repository"
	"github.com/stemsi/exstem-prep/internal/response"
	"github.com/stemsi/exstem-prep/internal/service"
	"github.com/stemsi/exstem-prep/internal/validator"
)

// HistoryHandler serves stored results and the revision list.
type HistoryHandler struct {
	historyService *service.HistoryService
	log            zerolog.Logger
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historyService *service.HistoryService, log zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
		log:            log.With().Str("component", "history_handler").Logger(),
	}
}

// ListResults godoc
// GET /api/v1/results?subject=&page=&per_page=
func (h *HistoryHandler) ListResults(c *gin.Context) {
	var q model.ListResultsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	results, pagination, err := h.historyService.ListResults(c.Request.Context(), q.Subject, model.IntOr(q.Page, 1), model.IntOr(q.PerPage, 0))
	if err != nil {
		h.log.Error().Err(err).Msg("list results failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, pagination)
}

// GetResult godoc
// GET /api/v1/results/:id
func (h *HistoryHandler) GetResult(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.historyService.GetResult(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Str("result_id", id).Msg("get result failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Revision godoc
// GET /api/v1/revision?subject=&limit=
func (h *HistoryHandler) Revision(c *gin.Context) {
	var q model.RevisionQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	items, err := h.historyService.Revision(c.Request.Context(), q.Subject, model.IntOr(q.Limit, 0))
	if err != nil {
		h.log.Error().Err(err).Msg("list revision failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if items == nil {
		items = []model.RevisionItem{}
	}
	response.Success(c, http.StatusOK, gin.H{"questions": items})
}

// MarkRevised godoc
// DELETE /api/v1/revision/:question_id
func (h *HistoryHandler) MarkRevised(c *gin.Context) {
	questionID := c.Param("question_id")

	if err := h.historyService.MarkRevised(c.Request.Context(), questionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Str("question_id", questionID).Msg("mark revised failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "question removed from revision"})
}
