package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	cfg "github.com/arigen-tech/docsearch/config"
	"github.com/arigen-tech/docsearch/internal/extractor"
	"github.com/arigen-tech/docsearch/internal/index"
	"github.com/arigen-tech/docsearch/internal/models"
	"github.com/arigen-tech/docsearch/internal/normalizer"
	"github.com/arigen-tech/docsearch/internal/ocr"
	"github.com/arigen-tech/docsearch/pkg/logger"
	"github.com/arigen-tech/docsearch/pkg/queue"
	"github.com/arigen-tech/docsearch/pkg/storage"
)

// documentIDLen is the hex prefix of the content hash used as document id.
const documentIDLen = 16

type IngestService struct {
	registry   *extractor.Registry
	normalizer *normalizer.Normalizer
	store      index.Store
	queue      queue.Queue
	storage    storage.Storage
	logger     logger.Logger
	config     *ServiceConfig
}

type ServiceConfig struct {
	MaxFileSize   int64
	AllowedTypes  []string
	QueuePriority int
	MaxConcurrent int
}

// payload is the queue-borne description of one ingest job.
type payload struct {
	DocumentID string `json:"documentId"`
	Filename   string `json:"filename"`
	Format     string `json:"format"`
	StorageKey string `json:"storageKey"`
	Size       int64  `json:"size"`
}

func NewService(
	registry *extractor.Registry,
	norm *normalizer.Normalizer,
	store index.Store,
	q queue.Queue,
	st storage.Storage,
	log logger.Logger,
	config *ServiceConfig,
) Service {
	if config == nil {
		config = &ServiceConfig{
			MaxFileSize:   50 * 1024 * 1024,
			AllowedTypes:  []string{".pdf", ".png", ".jpg", ".jpeg", ".tiff", ".txt"},
			QueuePriority: 2,
			MaxConcurrent: 5,
		}
	}

	return &IngestService{
		registry:   registry,
		normalizer: norm,
		store:      store,
		queue:      q,
		storage:    st,
		logger:     log.Named("ingest"),
		config:     config,
	}
}

// GetService wires the service from environment config: object storage,
// the redis queue, the OCR-backed extractor registry and the shared index.
func GetService(store index.Store, log logger.Logger) (Service, error) {
	st, err := storage.GetStorage(log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	q, err := queue.GetQueue()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	ocrClient, err := ocr.NewClient(log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OCR client: %w", err)
	}

	engineCfg := cfg.GetEngineConfig()
	registry := extractor.NewRegistry(ocrClient, engineCfg, log)
	norm := normalizer.New(engineCfg.MaxPassageLen, engineCfg.MinPassageLen)

	return NewService(registry, norm, store, q, st, log, nil), nil
}

// ProcessFile validates the upload, stores the raw bytes and queues an
// ingest task. The document id is a prefix of the content hash, so the same
// bytes always land on the same document.
func (s *IngestService) ProcessFile(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*models.IngestTask, error) {
	if err := s.validateFile(header); err != nil {
		s.logger.Error("File validation failed",
			logger.String("filename", header.Filename),
			logger.Error(err),
		)
		return nil, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	docID := DocumentID(data)
	storageKey := docID + ext

	if _, err := s.storage.Store(ctx, bytes.NewReader(data), storageKey); err != nil {
		s.logger.Error("Failed to store file",
			logger.String("filename", header.Filename),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	// The pending placeholder is registered for new ids only. On a
	// re-upload the live entry keeps serving its passages until the worker
	// publishes the replacement.
	if _, err := s.store.Document(ctx, docID); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up document: %w", err)
		}
		doc := models.Document{
			ID:         docID,
			Filename:   header.Filename,
			Format:     ext,
			Status:     models.DocPending,
			IngestedAt: time.Now().UTC(),
		}
		if err := s.store.Put(ctx, doc, nil, nil); err != nil {
			return nil, fmt.Errorf("failed to register document: %w", err)
		}
	}

	taskID := uuid.New().String()
	body, err := json.Marshal(payload{
		DocumentID: docID,
		Filename:   header.Filename,
		Format:     ext,
		StorageKey: storageKey,
		Size:       header.Size,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := &queue.Task{
		ID:       taskID,
		Type:     queue.TaskTypeDocumentIngest,
		Priority: s.config.QueuePriority,
		Payload:  body,
		Metadata: map[string]string{
			"filename":   header.Filename,
			"documentId": docID,
			"type":       ext,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		s.logger.Error("Failed to enqueue task",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	s.logger.Info("Ingest task created",
		logger.String("taskId", taskID),
		logger.String("documentId", docID),
		logger.String("filename", header.Filename),
	)

	return &models.IngestTask{
		ID:         taskID,
		DocumentID: docID,
		Status:     models.StatusPending,
		Metadata:   task.Metadata,
		CreatedAt:  task.CreatedAt,
	}, nil
}

// ProcessBatch ingests several uploads concurrently. A failing file aborts
// the batch but already queued tasks keep running.
func (s *IngestService) ProcessBatch(ctx context.Context, files []*multipart.FileHeader) ([]*models.IngestTask, error) {
	tasks := make([]*models.IngestTask, 0, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrent)

	for _, header := range files {
		header := header
		g.Go(func() error {
			file, err := header.Open()
			if err != nil {
				return fmt.Errorf("failed to open file %s: %w", header.Filename, err)
			}
			defer file.Close()

			task, err := s.ProcessFile(ctx, file, header)
			if err != nil {
				return fmt.Errorf("failed to process file %s: %w", header.Filename, err)
			}

			mu.Lock()
			tasks = append(tasks, task)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return tasks, err
	}
	return tasks, nil
}

// HandleIngest runs on the worker: it pulls the stored bytes, extracts the
// page stream, normalizes indexable pages into passages and publishes the
// document atomically. One bad page degrades the document to partial rather
// than failing it.
func (s *IngestService) HandleIngest(ctx context.Context, task *queue.Task) error {
	if task == nil || len(task.Payload) == 0 {
		return fmt.Errorf("invalid task: missing payload")
	}

	var p payload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	s.logger.Info("Processing document",
		logger.String("taskId", task.ID),
		logger.String("documentId", p.DocumentID),
		logger.String("filename", p.Filename),
	)

	s.saveStatus(ctx, &queue.TaskStatus{
		TaskID:     task.ID,
		Status:     queue.StatusRunning,
		Progress:   0.1,
		DocumentID: p.DocumentID,
		StartedAt:  task.CreatedAt,
	})

	reader, err := s.storage.Get(ctx, p.StorageKey)
	if err != nil {
		return s.failDocument(ctx, task, p, fmt.Errorf("failed to get file: %w", err))
	}
	data, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return s.failDocument(ctx, task, p, fmt.Errorf("failed to read file: %w", err))
	}

	results, err := s.registry.Extract(ctx, data, p.Format)
	if err != nil {
		return s.failDocument(ctx, task, p, err)
	}

	var (
		pages    []models.Page
		passages []models.Passage
		okPages  int
	)
	for res := range results {
		page := models.Page{
			DocumentID: p.DocumentID,
			Ordinal:    res.Ordinal,
			Text:       res.Text,
			Confidence: res.Confidence,
			Status:     res.Status,
			Error:      res.Err,
		}
		pages = append(pages, page)
		if res.Status == models.PageOK {
			okPages++
			passages = append(passages, s.normalizer.Normalize(page)...)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := models.Document{
		ID:         p.DocumentID,
		Filename:   p.Filename,
		Format:     p.Format,
		Status:     settleStatus(len(pages), okPages),
		PageCount:  len(pages),
		IngestedAt: time.Now().UTC(),
	}

	if err := s.store.Put(ctx, doc, pages, passages); err != nil {
		return s.failDocument(ctx, task, p, fmt.Errorf("failed to publish document: %w", err))
	}

	final := &queue.TaskStatus{
		TaskID:     task.ID,
		Status:     queue.StatusCompleted,
		Progress:   1.0,
		DocumentID: p.DocumentID,
		StartedAt:  task.CreatedAt,
		FinishedAt: time.Now().UTC(),
	}
	switch doc.Status {
	case models.DocPartial:
		final.Status = queue.StatusPartial
	case models.DocFailed:
		final.Status = queue.StatusFailed
		final.Error = "no page could be extracted"
	}
	s.saveStatus(ctx, final)

	s.logger.Info("Document ingested",
		logger.String("taskId", task.ID),
		logger.String("documentId", p.DocumentID),
		logger.String("status", string(doc.Status)),
		logger.Int("pages", len(pages)),
		logger.Int("passages", len(passages)),
	)
	return nil
}

// GetProcessingStatus reports the queue's view of a task.
func (s *IngestService) GetProcessingStatus(ctx context.Context, taskID string) (*models.IngestTask, error) {
	status, err := s.queue.GetTaskStatus(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task status: %w", err)
	}

	var taskStatus models.ProcessingStatus
	switch status.Status {
	case queue.StatusPending:
		taskStatus = models.StatusPending
	case queue.StatusRunning:
		taskStatus = models.StatusRunning
	case queue.StatusCompleted, queue.StatusPartial:
		taskStatus = models.StatusCompleted
	case queue.StatusFailed:
		taskStatus = models.StatusFailed
	default:
		taskStatus = models.StatusPending
	}

	return &models.IngestTask{
		ID:         status.TaskID,
		DocumentID: status.DocumentID,
		Status:     taskStatus,
		Progress:   status.Progress,
		Error:      status.Error,
		Metadata:   map[string]string{},
		CreatedAt:  status.StartedAt,
		UpdatedAt:  status.FinishedAt,
	}, nil
}

func (s *IngestService) ListDocuments(ctx context.Context) ([]models.Document, error) {
	return s.store.Documents(ctx)
}

// DeleteDocument removes the document from the index and best-effort drops
// its stored bytes.
func (s *IngestService) DeleteDocument(ctx context.Context, docID string) error {
	doc, err := s.store.Document(ctx, docID)
	if err != nil {
		return err
	}
	if err := s.store.ClearDocument(ctx, docID); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, doc.ID+doc.Format); err != nil {
		s.logger.Error("Failed to delete stored bytes",
			logger.String("documentId", docID),
			logger.Error(err),
		)
	}
	return nil
}

// ClearIndex drops every indexed document and reports how many were removed.
func (s *IngestService) ClearIndex(ctx context.Context) (int, error) {
	docs, err := s.store.Documents(ctx)
	if err != nil {
		return 0, err
	}
	removed, err := s.store.ClearAll(ctx)
	if err != nil {
		return 0, err
	}
	for _, doc := range docs {
		if err := s.storage.Delete(ctx, doc.ID+doc.Format); err != nil {
			s.logger.Error("Failed removing stored bytes",
				logger.String("documentId", doc.ID),
				logger.Error(err),
			)
		}
	}
	return removed, nil
}

func (s *IngestService) CancelTask(ctx context.Context, taskID string) error {
	if err := s.queue.CancelTask(ctx, taskID); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}
	s.logger.Info("Task cancelled", logger.String("taskId", taskID))
	return nil
}

// failDocument marks both the task and the document failed. The original
// extraction error is returned so the queue records it too.
func (s *IngestService) failDocument(ctx context.Context, task *queue.Task, p payload, cause error) error {
	doc := models.Document{
		ID:         p.DocumentID,
		Filename:   p.Filename,
		Format:     p.Format,
		Status:     models.DocFailed,
		IngestedAt: time.Now().UTC(),
	}
	if err := s.store.Put(ctx, doc, nil, nil); err != nil {
		s.logger.Error("Failed to record failed document",
			logger.String("documentId", p.DocumentID),
			logger.Error(err),
		)
	}
	s.saveStatus(ctx, &queue.TaskStatus{
		TaskID:     task.ID,
		Status:     queue.StatusFailed,
		DocumentID: p.DocumentID,
		Error:      cause.Error(),
		StartedAt:  task.CreatedAt,
		FinishedAt: time.Now().UTC(),
	})
	return cause
}

func (s *IngestService) saveStatus(ctx context.Context, status *queue.TaskStatus) {
	if err := s.queue.SaveStatus(ctx, status); err != nil {
		s.logger.Error("Failed to save task status",
			logger.String("taskId", status.TaskID),
			logger.Error(err),
		)
	}
}

func (s *IngestService) validateFile(header *multipart.FileHeader) error {
	if header.Size > s.config.MaxFileSize {
		return fmt.Errorf("file size exceeds maximum limit of %d bytes", s.config.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	for _, t := range s.config.AllowedTypes {
		if t == ext {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, ext)
}

// DocumentID derives the stable id from the document bytes.
func DocumentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:documentIDLen]
}

// settleStatus grades a finished extraction.
func settleStatus(total, ok int) models.DocumentStatus {
	switch {
	case total == 0 || ok == 0:
		return models.DocFailed
	case ok == total:
		return models.DocComplete
	default:
		return models.DocPartial
	}
}
