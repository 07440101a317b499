package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/bank"
	"github.com/stemsi/exstem-prep/internal/engine"
	"github.com/stemsi/exstem-prep/internal/model"
	"github.com/stemsi/exstem-prep/internal/response"
	"github.com/stemsi/exstem-prep/internal/service"
	"github.com/stemsi/exstem-prep/internal/validator"
)

// QuizHandler serves the quiz attempt lifecycle.
type QuizHandler struct {
	quizService *service.QuizService
	log         zerolog.Logger
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService *service.QuizService, log zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		log:         log.With().Str("component", "quiz_handler").Logger(),
	}
}

// Start godoc
// POST /api/v1/quizzes
func (h *QuizHandler) Start(c *gin.Context) {
	var req model.StartQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.quizService.Start(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"quiz": state})
}

// Get godoc
// GET /api/v1/quizzes/:id
func (h *QuizHandler) Get(c *gin.Context) {
	state, err := h.quizService.Current(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quiz": state})
}

// Answer godoc
// POST /api/v1/quizzes/:id/answer
func (h *QuizHandler) Answer(c *gin.Context) {
	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	feedback, err := h.quizService.Answer(c.Param("id"), *req.ChoiceIndex)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"feedback": feedback})
}

// Clear godoc
// DELETE /api/v1/quizzes/:id/answer
func (h *QuizHandler) Clear(c *gin.Context) {
	state, err := h.quizService.Clear(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quiz": state})
}

// Next godoc
// POST /api/v1/quizzes/:id/next
func (h *QuizHandler) Next(c *gin.Context) {
	state, err := h.quizService.Next(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quiz": state})
}

// Previous godoc
// POST /api/v1/quizzes/:id/previous
func (h *QuizHandler) Previous(c *gin.Context) {
	state, err := h.quizService.Previous(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quiz": state})
}

// Jump godoc
// POST /api/v1/quizzes/:id/jump
func (h *QuizHandler) Jump(c *gin.Context) {
	var req model.JumpRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.quizService.Jump(c.Param("id"), *req.Index)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quiz": state})
}

// Submit godoc
// POST /api/v1/quizzes/:id/submit
// A result that could not be stored is still returned, with a warning.
func (h *QuizHandler) Submit(c *gin.Context) {
	result, err := h.quizService.Submit(c.Request.Context(), c.Param("id"))
	if errors.Is(err, service.ErrPersistFailed) && result != nil {
		response.Success(c, http.StatusOK, gin.H{"result": result, "saved": false})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": result, "saved": true})
}

// Abandon godoc
// DELETE /api/v1/quizzes/:id
func (h *QuizHandler) Abandon(c *gin.Context) {
	if err := h.quizService.Abandon(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "quiz abandoned"})
}

// fail maps service and engine errors to the response envelope.
func (h *QuizHandler) fail(c *gin.Context, err error) {
	status, code := quizErrorStatus(err)
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("quiz request failed")
	}
	response.Fail(c, status, code)
}

func quizErrorStatus(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrQuizNotFound):
		return http.StatusNotFound, response.ErrQuizNotFound
	case errors.Is(err, bank.ErrUnknownSubject):
		return http.StatusNotFound, response.ErrUnknownSubject
	case errors.Is(err, bank.ErrNoValidQuestions), errors.Is(err, engine.ErrNoQuestions):
		return http.StatusUnprocessableEntity, response.ErrNoQuestions
	case errors.Is(err, engine.ErrInvalidMode):
		return http.StatusBadRequest, response.ErrValidation
	case errors.Is(err, engine.ErrChoiceOutOfRange):
		return http.StatusBadRequest, response.ErrChoiceOutOfRange
	case errors.Is(err, service.ErrOutOfRange):
		return http.StatusBadRequest, response.ErrNavigation
	case errors.Is(err, engine.ErrAlreadyFinished):
		return http.StatusConflict, response.ErrQuizFinished
	case errors.Is(err, engine.ErrNotActive), errors.Is(err, engine.ErrNotInitialized):
		return http.StatusConflict, response.ErrQuizNotActive
	case errors.Is(err, bank.ErrLoadFailed):
		return http.StatusServiceUnavailable, response.ErrBankUnavailable
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}
