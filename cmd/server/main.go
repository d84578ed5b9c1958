package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/arigen-tech/docsearch/api/handlers"
	"github.com/arigen-tech/docsearch/api/routes"
	"github.com/arigen-tech/docsearch/config"
	"github.com/arigen-tech/docsearch/internal/chat"
	"github.com/arigen-tech/docsearch/internal/index"
	"github.com/arigen-tech/docsearch/internal/retriever"
	"github.com/arigen-tech/docsearch/internal/search"
	"github.com/arigen-tech/docsearch/internal/service/ingest"
	"github.com/arigen-tech/docsearch/pkg/logger"
	"github.com/arigen-tech/docsearch/pkg/worker"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/app.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	store := index.NewMemoryStore()

	ingestService, err := ingest.GetService(store, log)
	if err != nil {
		log.Fatal("Failed to get ingest service:", logger.Error(err))
	}

	engineCfg := config.GetEngineConfig()
	redisCfg := config.GetRedisConfig()

	engine := search.NewEngine(store, log)
	ret := retriever.New(engine, engineCfg.TopK, engineCfg.PerDocumentCap)

	sessionStore := chat.NewRedisSessionStore(redis.NewClient(&redis.Options{
		Addr: redisCfg.Addr,
		DB:   redisCfg.DB,
	}))
	generator := chat.NewOllamaGenerator(
		engineCfg.OllamaEndpoint,
		engineCfg.OllamaModel,
		engineCfg.GenTimeout,
		log,
	)
	manager := chat.NewManager(sessionStore, ret, generator, log)

	// The index lives in this process, so ingest tasks must drain here too.
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
		log.Fatal("Failed to create ingest worker:", logger.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := ingestWorker.Start(ctx); err != nil {
		log.Fatal("Failed to start ingest worker:", logger.Error(err))
	}

	h := handlers.NewHandlers(ingestService, engine, manager, log)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, h)

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		log.Info("Server starting on port 8080")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error:", logger.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown:", logger.Error(err))
	}
	ingestWorker.Stop()
}
