package events

// ReportDeliveredEvent is emitted after an artifact has been stored and the
// requester notified.
type ReportDeliveredEvent struct {
	QueryLogID   uint   `json:"query_log_id"`
	QueryName    string `json:"query_name"`
	UserID       int64  `json:"user_id"`
	Department   string `json:"department"`
	ArtifactPath string `json:"artifact_path"`
}

// ReportFailedEvent is emitted when the delivery pipeline gives up on a job.
type ReportFailedEvent struct {
	QueryLogID uint   `json:"query_log_id"`
	QueryName  string `json:"query_name"`
	UserID     int64  `json:"user_id"`
	Stage      string `json:"stage"`
	Error      string `json:"error"`
}
