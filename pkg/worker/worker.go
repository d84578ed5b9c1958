package worker

import (
	"context"
	"sync"

	"github.com/hibiken/asynq"

	"github.com/arigen-tech/docsearch/pkg/logger"
)

type Worker interface {
	Start(ctx context.Context) error
	Stop() error
}

type Config struct {
	RedisAddr   string
	RedisDB     int
	Concurrency int
	Queues      map[string]int
}

type BaseWorker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	logger   logger.Logger
	stopOnce sync.Once
	stopChan chan struct{}
}

// Stop is safe to call more than once: a context-driven shutdown and an
// explicit one may both reach it.
func (w *BaseWorker) Stop() error {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.server.Stop()
	})
	return nil
}
