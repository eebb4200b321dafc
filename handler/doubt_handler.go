package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/prepstack/qbank-be/service"
	"github.com/prepstack/qbank-be/types"
)

// DoubtHandler serves the RAG doubt endpoint, its diagnostic probe and
// the per-question explanation endpoint.
type DoubtHandler struct {
	doubtService *service.DoubtService
}

func NewDoubtHandler(doubtService *service.DoubtService) *DoubtHandler {
	return &DoubtHandler{doubtService: doubtService}
}

// AnswerDoubt handles POST /chat/doubt.
func (h *DoubtHandler) AnswerDoubt(c *gin.Context) {
	var req types.DoubtRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{Status: "error", Message: "query is required"})
		return
	}

	result, err := h.doubtService.Answer(c.Request.Context(), req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{Status: "error", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, types.DoubtResponse{Answer: result.Answer, Sources: result.Sources})
}

// Diagnostic handles GET /chat/doubt/diagnostic.
func (h *DoubtHandler) Diagnostic(c *gin.Context) {
	c.JSON(http.StatusOK, h.doubtService.Diagnostics(c.Request.Context()))
}

// Explain handles POST /chatbot/explain.
func (h *DoubtHandler) Explain(c *gin.Context) {
	var req types.ExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.QuestionID == 0 {
		c.JSON(http.StatusBadRequest, types.DataResponse{Status: "error", Message: "question_id is required"})
		return
	}

	explanation, cached, err := h.doubtService.Explain(c.Request.Context(), req.QuestionID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, types.DataResponse{Status: "error", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, types.ExplainResponse{
		QuestionID:  req.QuestionID,
		Explanation: explanation,
		Cached:      cached,
	})
}
