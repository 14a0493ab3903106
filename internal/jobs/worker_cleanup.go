package jobs

import (
	"context"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/querykit/report-delivery/internal/artifact"
	"github.com/querykit/report-delivery/pkg/metrics"
)

const CleanupJobTimeout = 1 * time.Minute

// CleanupWorker removes an artifact once its scheduled cleanup job fires.
type CleanupWorker struct {
	river.WorkerDefaults[CleanupArgs]
	store artifact.Store
}

func NewCleanupWorker(store artifact.Store) *CleanupWorker {
	return &CleanupWorker{store: store}
}

func (w *CleanupWorker) Timeout(job *river.Job[CleanupArgs]) time.Duration {
	return CleanupJobTimeout
}

func (w *CleanupWorker) Work(ctx context.Context, job *river.Job[CleanupArgs]) error {
	if err := w.store.Remove(ctx, job.Args.SavePath); err != nil {
		zap.S().Named("cleanup_worker").Errorw("failed to remove artifact", "error", err, "save_path", job.Args.SavePath)
		return err
	}

	metrics.IncreaseArtifactsCleanedMetric()
	zap.S().Named("cleanup_worker").Infow("artifact removed", "save_path", job.Args.SavePath)
	return nil
}
