package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/huangang/appcatalog/backend/internal/config"
	"github.com/huangang/appcatalog/backend/pkg/logger"
)

const (
	TaskTypeAssetRemove = "asset:remove"
)

// AssetRemovalTask is an asset file whose best-effort removal failed.
type AssetRemovalTask struct {
	RelativePath string `json:"relative_path"`
	Owner        string `json:"owner"` // application, icon
	OwnerID      uint   `json:"owner_id"`
	Reason       string `json:"reason,omitempty"`
}

// CleanupQueue retries asset removals that failed during a request.
type CleanupQueue interface {
	// Enqueue hands a failed removal to the queue
	Enqueue(task *AssetRemovalTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// AssetRemover deletes one stored asset.
type AssetRemover func(ctx context.Context, task *AssetRemovalTask) error

var (
	globalCleanupQueue CleanupQueue
	cleanupQueueOnce   sync.Once
)

// InitCleanupQueue initializes the global cleanup queue based on config
func InitCleanupQueue(cfg *config.Config, remover AssetRemover) CleanupQueue {
	cleanupQueueOnce.Do(func() {
		if cfg.Redis.Enabled {
			queue, err := NewAsyncQueue(&cfg.Redis)
			if err != nil {
				logger.Warnf("[CleanupQueue] Redis unavailable, falling back to sync mode: %v", err)
				globalCleanupQueue = NewSyncQueue(remover)
			} else {
				logger.Infof("[CleanupQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
				globalCleanupQueue = queue
			}
		} else {
			logger.Infof("[CleanupQueue] Sync queue initialized (Redis disabled)")
			globalCleanupQueue = NewSyncQueue(remover)
		}
	})
	return globalCleanupQueue
}

// GetCleanupQueue returns the global cleanup queue instance
func GetCleanupQueue() CleanupQueue {
	return globalCleanupQueue
}

// AsyncQueue implements CleanupQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := redisClientOpt(cfg)
	client := asynq.NewClient(redisOpt)

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

func redisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewAssetRemovalTask encodes task for asynq.
func NewAssetRemovalTask(task *AssetRemovalTask) (*asynq.Task, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAssetRemove, payload), nil
}

func (q *AsyncQueue) Enqueue(task *AssetRemovalTask) error {
	t, err := NewAssetRemovalTask(task)
	if err != nil {
		return err
	}

	info, err := q.client.Enqueue(t,
		asynq.Queue("default"),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return err
	}

	logger.Infof("[AsyncQueue] Asset removal enqueued: id=%s, path=%s", info.ID, task.RelativePath)
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue retries the removal inline. Without Redis there is nowhere to park
// a failed removal, so a second failure is only logged; the orphan sweep picks it up.
type SyncQueue struct {
	remover  AssetRemover
	attempts int
}

func NewSyncQueue(remover AssetRemover) *SyncQueue {
	return &SyncQueue{remover: remover, attempts: 1}
}

func (q *SyncQueue) Enqueue(task *AssetRemovalTask) error {
	if q.remover == nil {
		logger.Warnf("[SyncQueue] no remover set, dropping removal of %s", task.RelativePath)
		return nil
	}

	var err error
	for i := 0; i < q.attempts; i++ {
		if err = q.remover(context.Background(), task); err == nil {
			return nil
		}
	}
	logger.Warnf("[SyncQueue] asset removal retry failed: path=%s owner=%s/%d: %v",
		task.RelativePath, task.Owner, task.OwnerID, err)
	return err
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

func (q *SyncQueue) Close() error {
	return nil
}
