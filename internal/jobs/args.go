// Package jobs holds the queue-facing side of report delivery: the job
// argument types, the workers consuming them and the client used to insert
// and schedule jobs.
package jobs

import (
	"github.com/riverqueue/river"
)

const (
	DefaultQueue  = "reports"
	MaxJobRetries = 1

	ReportJobKind  = "report_delivery"
	CleanupJobKind = "artifact_cleanup"
)

// ReportArgs is one report-delivery request as stored in river_job.args.
type ReportArgs struct {
	ID           uint           `json:"id"`
	Name         string         `json:"name"`
	FilePath     string         `json:"file_path"`
	Department   string         `json:"department"`
	QueryParams  map[string]any `json:"query_params"`
	FirstName    string         `json:"first_name"`
	UserID       int64          `json:"user_id"`
	EmailAddress string         `json:"email_address"`
	QueryLogID   uint           `json:"query_log_id"`
	Format       string         `json:"format,omitempty"`
}

func (ReportArgs) Kind() string {
	return ReportJobKind
}

func (ReportArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       DefaultQueue,
		MaxAttempts: MaxJobRetries,
	}
}

// CleanupArgs asks for removal of a stored artifact. The scheduled time is
// carried by the job row, not the args.
type CleanupArgs struct {
	SavePath string `json:"save_path"`
}

func (CleanupArgs) Kind() string {
	return CleanupJobKind
}

func (CleanupArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: DefaultQueue,
		// removal is idempotent, so retrying is safe
		MaxAttempts: 3,
	}
}
