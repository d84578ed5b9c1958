package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arigen-tech/docsearch/internal/models"
	"github.com/arigen-tech/docsearch/internal/search"
	"github.com/arigen-tech/docsearch/pkg/logger"
)

type SearchHandler struct {
	engine *search.Engine
	logger logger.Logger
}

// SelectedSearchRequest scopes a query to chosen documents.
type SelectedSearchRequest struct {
	Query       string   `json:"query" binding:"required"`
	DocumentIDs []string `json:"documentIds" binding:"required,min=1"`
}

// SearchResult is one hit on the wire.
type SearchResult struct {
	DocumentID  string  `json:"documentId"`
	PassageID   string  `json:"passageId"`
	PageOrdinal int     `json:"pageOrdinal"`
	Text        string  `json:"text"`
	Score       float64 `json:"score"`
}

func NewSearchHandler(engine *search.Engine, log logger.Logger) *SearchHandler {
	return &SearchHandler{
		engine: engine,
		logger: log,
	}
}

// SearchAll runs the query across every searchable document.
func (h *SearchHandler) SearchAll(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		h.handleError(c, http.StatusBadRequest, "Query is required", nil)
		return
	}

	results, err := h.engine.Search(c.Request.Context(), query, search.ScopeAll)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Search failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": toWire(results),
		"count":   len(results),
	})
}

// SearchSelected runs the query against each selected document and merges
// the hits best-first.
func (h *SearchHandler) SearchSelected(c *gin.Context) {
	var req SelectedSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var merged []models.ScoredPassage
	for _, docID := range req.DocumentIDs {
		results, err := h.engine.Search(c.Request.Context(), req.Query, docID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				h.handleError(c, http.StatusNotFound, "Document not found", err)
				return
			}
			h.handleError(c, http.StatusInternalServerError, "Search failed", err)
			return
		}
		merged = append(merged, results...)
	}

	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Passage.DocumentID != b.Passage.DocumentID {
			return a.Passage.DocumentID < b.Passage.DocumentID
		}
		if a.Passage.PageOrdinal != b.Passage.PageOrdinal {
			return a.Passage.PageOrdinal < b.Passage.PageOrdinal
		}
		return a.Passage.Offset < b.Passage.Offset
	})

	c.JSON(http.StatusOK, gin.H{
		"query":   req.Query,
		"results": toWire(merged),
		"count":   len(merged),
	})
}

func toWire(results []models.ScoredPassage) []SearchResult {
	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			DocumentID:  r.Passage.DocumentID,
			PassageID:   r.Passage.ID,
			PageOrdinal: r.Passage.PageOrdinal,
			Text:        r.Passage.Text,
			Score:       r.Score,
		}
	}
	return out
}

func (h *SearchHandler) handleError(c *gin.Context, status int, message string, err error) {
	h.logger.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)

	response := ErrorResponse{Message: message}
	if err != nil {
		response.Error = err.Error()
	}

	c.JSON(status, response)
}
