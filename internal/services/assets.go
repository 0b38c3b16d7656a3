package services

import (
	"context"
	"io"

	"github.com/huangang/appcatalog/backend/internal/storage"
	"github.com/huangang/appcatalog/backend/pkg/logger"
)

// FileUpload is an uploaded file handed to a service.
type FileUpload struct {
	FileName    string
	ContentType string
	Size        int64 // declared size; 0 when unknown
	Reader      io.Reader
}

// assetJanitor removes stored assets on a best-effort basis. Failures are logged,
// counted and handed to the cleanup queue; they never fail the caller.
type assetJanitor struct {
	store   *storage.Store
	cleanup CleanupQueue
}

func (j assetJanitor) remove(relativePath, owner string, ownerID uint) {
	if relativePath == "" {
		return
	}
	err := j.store.Remove(relativePath)
	if err == nil {
		return
	}

	assetCleanupFailures.Inc()
	logger.Warn().Err(err).
		Str("path", relativePath).
		Str("owner", owner).
		Uint("owner_id", ownerID).
		Msg("failed to remove asset, handing to cleanup queue")

	if j.cleanup == nil {
		return
	}
	task := &AssetRemovalTask{RelativePath: relativePath, Owner: owner, OwnerID: ownerID, Reason: err.Error()}
	if qerr := j.cleanup.Enqueue(task); qerr != nil {
		logger.Warn().Err(qerr).Str("path", relativePath).Msg("asset left on disk for the orphan sweep")
	}
}

// StoreRemover adapts store to the cleanup queue's remover signature.
func StoreRemover(store *storage.Store) AssetRemover {
	return func(_ context.Context, task *AssetRemovalTask) error {
		return store.Remove(task.RelativePath)
	}
}
