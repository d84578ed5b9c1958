package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/arigen-tech/docsearch/internal/service/ingest"
	"github.com/arigen-tech/docsearch/pkg/logger"
	"github.com/arigen-tech/docsearch/pkg/queue"
)

// IngestWorker consumes ingest tasks off the priority queues and runs the
// extraction pipeline for each.
type IngestWorker struct {
	BaseWorker
	service ingest.Service
}

func NewIngestWorker(cfg *Config, service ingest.Service, log logger.Logger) (*IngestWorker, error) {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
		},
	)

	w := &IngestWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   log.Named("worker"),
			stopChan: make(chan struct{}),
		},
		service: service,
	}

	w.registerHandlers()
	return w, nil
}

func (w *IngestWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypeDocumentIngest, w.handleDocumentIngest)
}

func (w *IngestWorker) handleDocumentIngest(ctx context.Context, t *asynq.Task) error {
	var task queue.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}

	if task.ID == "" || len(task.Payload) == 0 {
		return fmt.Errorf("invalid task data: missing required fields")
	}

	w.logger.Info("Processing ingest task",
		logger.String("taskId", task.ID),
		logger.Any("metadata", task.Metadata),
	)

	if err := w.service.HandleIngest(ctx, &task); err != nil {
		w.logger.Error("Ingest task failed",
			logger.String("taskId", task.ID),
			logger.Error(err),
		)
		return err
	}
	return nil
}

func (w *IngestWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
