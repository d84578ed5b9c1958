package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/arigen-tech/docsearch/config"
	"github.com/arigen-tech/docsearch/internal/index"
	"github.com/arigen-tech/docsearch/internal/service/ingest"
	"github.com/arigen-tech/docsearch/pkg/logger"
	"github.com/arigen-tech/docsearch/pkg/worker"
)

// Standalone ingest drainer. It publishes into its own index instance, so
// run it only against a deployment where the index is shared; the default
// single-process setup embeds the worker in cmd/server instead.
func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	store := index.NewMemoryStore()
	ingestService, err := ingest.GetService(store, log)
	if err != nil {
		log.Error("Failed to create ingest service", logger.Error(err))
		os.Exit(1)
	}

	redisCfg := config.GetRedisConfig()
	workerCfg := &worker.Config{
		RedisAddr:   redisCfg.Addr,
		RedisDB:     redisCfg.DB,
		Concurrency: 10,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	}

	ingestWorker, err := worker.NewIngestWorker(workerCfg, ingestService, log)
	if err != nil {
		log.Error("Failed to create ingest worker", logger.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ingestWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	ingestWorker.Stop()
	log.Info("Worker stopped")
}
