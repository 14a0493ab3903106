package jobs

import (
	"context"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/querykit/report-delivery/internal/service"
	"github.com/querykit/report-delivery/pkg/metrics"
)

const ReportJobTimeout = 5 * time.Minute

// ReportOutput is recorded on the completed job row.
type ReportOutput struct {
	SavePath string `json:"save_path"`
}

// ReportWorker consumes report-delivery jobs. A job is acknowledged whether
// the pipeline succeeds or fails: failures are terminal, logged with full
// context and reflected in the query log, never retried.
type ReportWorker struct {
	river.WorkerDefaults[ReportArgs]
	service *service.ReportService
}

func NewReportWorker(service *service.ReportService) *ReportWorker {
	return &ReportWorker{service: service}
}

func (w *ReportWorker) Timeout(job *river.Job[ReportArgs]) time.Duration {
	return ReportJobTimeout
}

func (w *ReportWorker) Work(ctx context.Context, job *river.Job[ReportArgs]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logger := zap.S().Named("report_worker")
	req := requestFromArgs(job.Args)

	savePath, err := w.service.Deliver(ctx, req)
	if err != nil {
		logger.Errorw("report delivery failed",
			"error", err,
			"stage", service.Stage(err),
			"query", job.Args.Name,
			"user_id", job.Args.UserID,
			"query_log_id", job.Args.QueryLogID,
		)
		if job.Args.QueryLogID != 0 {
			if err := w.service.MarkFailed(ctx, job.Args.QueryLogID); err != nil {
				logger.Warnw("failed to mark query log FAILED", "error", err, "query_log_id", job.Args.QueryLogID)
			}
		}
		w.service.EmitFailed(ctx, req, err)
		metrics.IncreaseReportsProcessedMetric(metrics.OutcomeFailed, service.Stage(err))
		return nil
	}

	metrics.IncreaseReportsProcessedMetric(metrics.OutcomeDelivered, "")
	logger.Infow("report delivered", "query", job.Args.Name, "user_id", job.Args.UserID, "save_path", savePath)
	return river.RecordOutput(ctx, ReportOutput{SavePath: savePath})
}

func requestFromArgs(args ReportArgs) service.ReportRequest {
	return service.ReportRequest{
		QueryID:      args.ID,
		QueryName:    args.Name,
		FilePath:     args.FilePath,
		Department:   args.Department,
		QueryParams:  args.QueryParams,
		FirstName:    args.FirstName,
		UserID:       args.UserID,
		EmailAddress: args.EmailAddress,
		QueryLogID:   args.QueryLogID,
		Format:       args.Format,
	}
}
