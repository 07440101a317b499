package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-prep/internal/bank"
	"github.com/stemsi/exstem-prep/internal/normalizer"
	"github.com/stemsi/exstem-prep/internal/response"
)

// maxBankUpload bounds the body accepted by Normalize.
const maxBankUpload = 8 << 20

// BankHandler lists subjects and normalizes uploaded banks.
type BankHandler struct {
	loader *bank.Loader
	norm   *normalizer.Normalizer
}

// NewBankHandler creates a new BankHandler.
func NewBankHandler(loader *bank.Loader, norm *normalizer.Normalizer) *BankHandler {
	return &BankHandler{loader: loader, norm: norm}
}

// ListSubjects godoc
// GET /api/v1/subjects
func (h *BankHandler) ListSubjects(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"subjects": h.loader.Subjects()})
}

// Normalize godoc
// POST /api/v1/banks/normalize
// Accepts a raw JSON bank, or YAML when the content type says so.
func (h *BankHandler) Normalize(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBankUpload))
	if err != nil {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrInvalidPayload)
		return
	}

	var report normalizer.Report
	if isYAML(c.ContentType()) {
		report = h.norm.InspectYAML(body)
	} else {
		report = h.norm.InspectJSON(body)
	}

	response.Success(c, http.StatusOK, report)
}

func isYAML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "yaml") || strings.Contains(ct, "yml")
}
