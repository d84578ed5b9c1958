package ingest

import (
	"context"
	"mime/multipart"

	"github.com/arigen-tech/docsearch/internal/models"
	"github.com/arigen-tech/docsearch/pkg/queue"
)

// Service is the ingest surface: it accepts uploads, runs the extraction
// pipeline on the worker side, and exposes the resulting corpus.
type Service interface {
	ProcessFile(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*models.IngestTask, error)
	ProcessBatch(ctx context.Context, files []*multipart.FileHeader) ([]*models.IngestTask, error)
	GetProcessingStatus(ctx context.Context, taskID string) (*models.IngestTask, error)
	HandleIngest(ctx context.Context, task *queue.Task) error
	ListDocuments(ctx context.Context) ([]models.Document, error)
	DeleteDocument(ctx context.Context, docID string) error
	ClearIndex(ctx context.Context) (int, error)
	CancelTask(ctx context.Context, taskID string) error
}
