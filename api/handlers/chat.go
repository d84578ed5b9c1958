package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arigen-tech/docsearch/internal/chat"
	"github.com/arigen-tech/docsearch/internal/models"
	"github.com/arigen-tech/docsearch/pkg/logger"
)

type ChatHandler struct {
	manager *chat.Manager
	logger  logger.Logger
}

// MessageRequest is one user message. A missing session id starts a new
// session.
type MessageRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message" binding:"required"`
}

// ClearRequest names the session to drop; empty means drop everything.
type ClearRequest struct {
	SessionID string `json:"sessionId"`
}

func NewChatHandler(manager *chat.Manager, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		manager: manager,
		logger:  log,
	}
}

// PostMessage appends a user turn and answers it.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	turn, err := h.manager.PostMessage(c.Request.Context(), sessionID, req.Message)
	if err != nil {
		if errors.Is(err, models.ErrGenerationUnavailable) {
			h.handleError(c, http.StatusServiceUnavailable, "Answer generation unavailable", err)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Failed to process message", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId": sessionID,
		"reply":     turn.Text,
		"grounding": turn.Grounding,
		"createdAt": turn.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// GetHistory returns the session's turns in order. Unknown sessions get an
// empty history.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		h.handleError(c, http.StatusBadRequest, "Session ID is required", nil)
		return
	}

	turns, err := h.manager.History(c.Request.Context(), sessionID)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to get history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId": sessionID,
		"turns":     turns,
		"count":     len(turns),
	})
}

// Clear drops one session, or every session when no id is given.
func (h *ChatHandler) Clear(c *gin.Context) {
	var req ClearRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.handleError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.SessionID == "" {
		removed, err := h.manager.ClearAll(c.Request.Context())
		if err != nil {
			h.handleError(c, http.StatusInternalServerError, "Failed to clear sessions", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "All sessions cleared",
			"removed": removed,
		})
		return
	}

	if err := h.manager.Clear(c.Request.Context(), req.SessionID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			h.handleError(c, http.StatusNotFound, "Session not found", err)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Failed to clear session", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Session cleared",
		"sessionId": req.SessionID,
	})
}

func (h *ChatHandler) handleError(c *gin.Context, status int, message string, err error) {
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
