package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/arigen-tech/docsearch/internal/models"
	"github.com/arigen-tech/docsearch/internal/service/ingest"
	"github.com/arigen-tech/docsearch/pkg/logger"
)

type DocumentHandler struct {
	service ingest.Service
	logger  logger.Logger
}

// ProcessResponse describes one accepted upload.
type ProcessResponse struct {
	TaskID     string `json:"taskId"`
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
	Filename   string `json:"filename"`
	FileSize   int64  `json:"fileSize"`
	FileType   string `json:"fileType"`
	CreatedAt  string `json:"createdAt"`
}

func NewDocumentHandler(service ingest.Service, log logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		service: service,
		logger:  log,
	}
}

// ProcessDocument accepts one upload and queues it for ingestion.
func (h *DocumentHandler) ProcessDocument(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid file upload", err)
		return
	}
	defer file.Close()

	task, err := h.service.ProcessFile(c.Request.Context(), file, header)
	if err != nil {
		if errors.Is(err, models.ErrUnsupportedFormat) {
			h.handleError(c, http.StatusUnsupportedMediaType, "Unsupported file type", err)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Failed to process file", err)
		return
	}

	c.JSON(http.StatusOK, ProcessResponse{
		TaskID:     task.ID,
		DocumentID: task.DocumentID,
		Status:     string(task.Status),
		Filename:   header.Filename,
		FileSize:   header.Size,
		FileType:   filepath.Ext(header.Filename),
		CreatedAt:  task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// ProcessBatch queues several uploads at once.
func (h *DocumentHandler) ProcessBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid form data", err)
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		h.handleError(c, http.StatusBadRequest, "No files provided", nil)
		return
	}

	tasks, err := h.service.ProcessBatch(c.Request.Context(), files)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to process files", err)
		return
	}

	responses := make([]ProcessResponse, len(tasks))
	for i, task := range tasks {
		responses[i] = ProcessResponse{
			TaskID:     task.ID,
			DocumentID: task.DocumentID,
			Status:     string(task.Status),
			Filename:   task.Metadata["filename"],
			CreatedAt:  task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Processing %d documents", len(files)),
		"tasks":   responses,
	})
}

// ListDocuments returns every known document and its status.
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	docs, err := h.service.ListDocuments(c.Request.Context())
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to list documents", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"count":     len(docs),
	})
}

// GetStatus reports the lifecycle of one ingest task.
func (h *DocumentHandler) GetStatus(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.handleError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	task, err := h.service.GetProcessingStatus(c.Request.Context(), taskID)
	if err != nil {
		h.handleError(c, http.StatusNotFound, "Failed to get status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"taskId":     task.ID,
		"documentId": task.DocumentID,
		"status":     string(task.Status),
		"progress":   task.Progress,
		"error":      task.Error,
		"createdAt":  task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		"updatedAt":  task.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// DeleteDocument removes one document from the index and storage.
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	docID := c.Param("docId")
	if docID == "" {
		h.handleError(c, http.StatusBadRequest, "Document ID is required", nil)
		return
	}

	if err := h.service.DeleteDocument(c.Request.Context(), docID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			h.handleError(c, http.StatusNotFound, "Document not found", err)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Failed to delete document", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Document deleted",
		"documentId": docID,
	})
}

// Clean drops the whole index.
func (h *DocumentHandler) Clean(c *gin.Context) {
	removed, err := h.service.ClearIndex(c.Request.Context())
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to clean index", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Index cleaned",
		"removed": removed,
	})
}

// CancelTask removes a queued ingest task.
func (h *DocumentHandler) CancelTask(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.handleError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	if err := h.service.CancelTask(c.Request.Context(), taskID); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to cancel task", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task cancelled successfully",
		"taskId":  taskID,
	})
}

func (h *DocumentHandler) handleError(c *gin.Context, status int, message string, err error) {
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
