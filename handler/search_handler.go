package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepstack/qbank-be/database"
	"github.com/prepstack/qbank-be/repository"
	"github.com/prepstack/qbank-be/types"
)

// SearchHandler serves question search over Postgres and material
// search over the vector store.
type SearchHandler struct {
	questions repository.QuestionRepo
	vectorDB  database.VectorDatabase
}

func NewSearchHandler(questions repository.QuestionRepo, vectorDB database.VectorDatabase) *SearchHandler {
	return &SearchHandler{questions: questions, vectorDB: vectorDB}
}

// SearchQuestions handles POST /chatbot/search.
func (h *SearchHandler) SearchQuestions(c *gin.Context) {
	var filters types.SearchFilters
	if err := c.ShouldBindJSON(&filters); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{Status: "error", Message: "invalid filters"})
		return
	}

	results, err := h.questions.Search(c.Request.Context(), filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{Status: "error", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, results)
}

// SearchInfo handles GET /chatbot/search.
func (h *SearchHandler) SearchInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Use POST with filters to search questions."})
}

// SearchMaterials handles POST /materials/search.
func (h *SearchHandler) SearchMaterials(c *gin.Context) {
	var req types.MaterialSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Queries) == 0 {
		c.JSON(http.StatusBadRequest, types.DataResponse{Status: "error", Message: "queries are required"})
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}

	var (
		docs []database.Document
		err  error
	)
	if len(req.Tags) > 0 {
		docs, _, err = h.vectorDB.SearchSimilarWithMetadata(c.Request.Context(), req.Queries, database.Metadata{Tags: req.Tags}, limit)
	} else {
		docs, _, err = h.vectorDB.SearchSimilar(c.Request.Context(), req.Queries, limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{Status: "error", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{Status: "success", Data: docs})
}
