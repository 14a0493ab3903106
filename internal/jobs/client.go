package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/querykit/report-delivery/internal/artifact"
	"github.com/querykit/report-delivery/internal/service"
)

type Client struct {
	*river.Client[pgx.Tx]
}

// NewClient builds the consuming client. MaxWorkers bounds how many jobs are
// worked concurrently, which is the queue's prefetch limit.
func NewClient(pool *pgxpool.Pool, reportService *service.ReportService, artifactStore artifact.Store, maxWorkers int) (*Client, error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, NewReportWorker(reportService))
	river.AddWorker(workers, NewCleanupWorker(artifactStore))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			DefaultQueue: {MaxWorkers: maxWorkers},
		},
		Workers: workers,

		FetchCooldown:     50 * time.Millisecond,
		FetchPollInterval: 100 * time.Millisecond,

		// Job retention policies to prevent database bloat
		CancelledJobRetentionPeriod: 24 * time.Hour,
		CompletedJobRetentionPeriod: 24 * time.Hour,
		DiscardedJobRetentionPeriod: 7 * 24 * time.Hour,
	})
	if err != nil {
		return nil, err
	}

	return &Client{Client: riverClient}, nil
}

// NewInsertOnlyClient builds a client that can insert and schedule jobs but
// never works them. The delivery pipeline uses it to schedule cleanups while
// the consuming client is being wired.
func NewInsertOnlyClient(pool *pgxpool.Pool) (*Client, error) {
	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{})
	if err != nil {
		return nil, err
	}
	return &Client{Client: riverClient}, nil
}

func (c *Client) InsertReportJob(ctx context.Context, args ReportArgs) (int64, error) {
	result, err := c.Insert(ctx, args, &river.InsertOpts{
		Queue:       DefaultQueue,
		MaxAttempts: MaxJobRetries,
	})
	if err != nil {
		return 0, err
	}
	return result.Job.ID, nil
}

// ScheduleCleanup inserts an artifact_cleanup job held back until the given
// time. The schedule lives in the job table, so it survives restarts.
func (c *Client) ScheduleCleanup(ctx context.Context, savePath string, at time.Time) error {
	_, err := c.Insert(ctx, CleanupArgs{SavePath: savePath}, &river.InsertOpts{
		Queue:       DefaultQueue,
		ScheduledAt: at,
	})
	return err
}

var _ service.CleanupScheduler = (*Client)(nil)
