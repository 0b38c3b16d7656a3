package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/huangang/appcatalog/backend/internal/config"
	"github.com/huangang/appcatalog/backend/pkg/logger"
)

// Worker processes asset removal tasks from the Redis queue
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	remover AssetRemover
	running bool
	mu      sync.Mutex
}

// NewWorker returns nil when Redis is disabled.
func NewWorker(cfg *config.RedisConfig, remover AssetRemover) *Worker {
	if !cfg.Enabled {
		return nil
	}

	server := asynq.NewServer(
		redisClientOpt(cfg),
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				assetCleanupFailures.Inc()
				logger.Warnf("[Worker] Error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	return &Worker{
		server:  server,
		mux:     asynq.NewServeMux(),
		remover: remover,
	}
}

func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeAssetRemove, w.HandleAssetRemoval)

	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	w.running = true
	logger.Infof("[Worker] Started asset cleanup worker")
	return nil
}

func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	logger.Infof("[Worker] Shutdown complete")
}

// HandleAssetRemoval decodes and runs one removal. A malformed payload is
// skipped rather than retried.
func (w *Worker) HandleAssetRemoval(ctx context.Context, t *asynq.Task) error {
	var task AssetRemovalTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		logger.Warnf("[Worker] Failed to unmarshal task: %v", err)
		return asynq.SkipRetry
	}

	logger.Infof("[Worker] Removing asset: path=%s owner=%s/%d", task.RelativePath, task.Owner, task.OwnerID)

	if w.remover == nil {
		return nil
	}
	return w.remover(ctx, &task)
}
