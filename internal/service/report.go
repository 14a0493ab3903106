// Package service holds the report-delivery pipeline and the thin
// query/query-log services the admin surface exposes.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/querykit/report-delivery/internal/artifact"
	"github.com/querykit/report-delivery/internal/events"
	"github.com/querykit/report-delivery/internal/notification"
	"github.com/querykit/report-delivery/internal/queryexec"
	"github.com/querykit/report-delivery/internal/store"
	"github.com/querykit/report-delivery/internal/store/model"
)

// CleanupScheduler schedules removal of a stored artifact at a future time.
type CleanupScheduler interface {
	ScheduleCleanup(ctx context.Context, savePath string, at time.Time) error
}

// ReportRequest is the validated form of one report-delivery job.
type ReportRequest struct {
	QueryID      uint           `validate:"required"`
	QueryName    string         `validate:"required"`
	FilePath     string         `validate:"required"`
	Department   string         `validate:"required"`
	QueryParams  map[string]any `validate:"-"`
	FirstName    string         `validate:"required"`
	UserID       int64          `validate:"required,gt=0"`
	EmailAddress string         `validate:"required,email"`
	QueryLogID   uint           `validate:"required"`
	Format       string         `validate:"omitempty,oneof=csv xlsx"`
}

// ReportConfig carries the delivery-side settings the pipeline needs.
type ReportConfig struct {
	// QueryFolder is the root the stored SQL templates live under.
	QueryFolder string
	// BaseUrl plus DownloadRoute plus the artifact path form the link
	// embedded in the notification email.
	BaseUrl       string
	DownloadRoute string
	// Retention is how long an artifact stays available after delivery.
	Retention time.Duration
}

type ReportService struct {
	store       store.Store
	executor    *queryexec.Executor
	writer      *artifact.Writer
	sender      notification.Sender
	eventWriter *events.EventProducer
	scheduler   CleanupScheduler
	cfg         ReportConfig
	validate    *validator.Validate
	nowFunc     func() time.Time
}

func NewReportService(
	store store.Store,
	executor *queryexec.Executor,
	writer *artifact.Writer,
	sender notification.Sender,
	eventWriter *events.EventProducer,
	scheduler CleanupScheduler,
	cfg ReportConfig,
) *ReportService {
	return &ReportService{
		store:       store,
		executor:    executor,
		writer:      writer,
		sender:      sender,
		eventWriter: eventWriter,
		scheduler:   scheduler,
		cfg:         cfg,
		validate:    validator.New(),
		nowFunc:     time.Now,
	}
}

// Deliver runs the whole pipeline for one job and returns the stored
// artifact path. Errors are typed by the stage they escaped from; the
// caller decides what a failure means for the job lifecycle.
func (s *ReportService) Deliver(ctx context.Context, req ReportRequest) (string, error) {
	logger := zap.S().Named("report_service")

	if err := s.validate.Struct(req); err != nil {
		return "", NewErrInvalidRequest(err.Error())
	}

	format, err := artifact.ParseFormat(req.Format)
	if err != nil {
		return "", NewErrInvalidRequest(err.Error())
	}

	sqlText, err := queryexec.ReadSQL(filepath.Join(s.cfg.QueryFolder, req.FilePath))
	if err != nil {
		return "", NewErrQueryExecution(req.QueryName, err)
	}

	rs, err := s.executor.Execute(ctx, sqlText, req.QueryParams)
	if err != nil {
		return "", NewErrQueryExecution(req.QueryName, err)
	}
	logger.Infow("query executed", "query", req.QueryName, "user_id", req.UserID, "rows", rs.TotalCount)

	now := s.nowFunc().UTC()
	savePath, err := s.writer.Save(ctx, artifact.Metadata{
		UserID:      req.UserID,
		QueryID:     req.QueryID,
		QueryName:   req.QueryName,
		QueryParams: req.QueryParams,
		Format:      format,
		Timestamp:   now,
	}, rs)
	if err != nil {
		return "", NewErrArtifactWrite(req.QueryName, err)
	}

	link := s.cfg.BaseUrl + s.cfg.DownloadRoute + savePath
	err = s.sender.Send(ctx, []notification.Recipient{{
		EmailAddress: req.EmailAddress,
		Data: notification.TemplateData{
			FirstName: capitalize(req.FirstName),
			QueryName: req.QueryName,
			Link:      link,
		},
	}})
	if err != nil {
		return "", NewErrNotification(req.EmailAddress, err)
	}

	if err := s.store.QueryLog().UpdateStatus(ctx, req.QueryLogID, model.QueryLogStatusSuccess); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return "", NewErrStatusUpdate(req.QueryLogID, NewErrQueryLogNotFound(req.QueryLogID))
		}
		return "", NewErrStatusUpdate(req.QueryLogID, err)
	}

	// the artifact lingers if scheduling fails, so only warn
	if err := s.scheduler.ScheduleCleanup(ctx, savePath, now.Add(s.cfg.Retention)); err != nil {
		logger.Warnw("failed to schedule artifact cleanup", "error", err, "save_path", savePath)
	}

	s.emitDelivered(ctx, req, savePath)

	logger.Infow("report delivered", "query", req.QueryName, "user_id", req.UserID, "save_path", savePath)
	return savePath, nil
}

// MarkFailed moves the job's log entry to FAILED. Used by the consumer on
// pipeline failure; a log already in a terminal state is left untouched.
func (s *ReportService) MarkFailed(ctx context.Context, queryLogID uint) error {
	err := s.store.QueryLog().UpdateStatus(ctx, queryLogID, model.QueryLogStatusFailed)
	if err != nil && !errors.Is(err, store.ErrTerminalState) {
		return err
	}
	return nil
}

// EmitFailed publishes the failure event for a job the pipeline gave up on.
func (s *ReportService) EmitFailed(ctx context.Context, req ReportRequest, cause error) {
	if s.eventWriter == nil {
		return
	}
	data, err := json.Marshal(events.ReportFailedEvent{
		QueryLogID: req.QueryLogID,
		QueryName:  req.QueryName,
		UserID:     req.UserID,
		Stage:      Stage(cause),
		Error:      cause.Error(),
	})
	if err != nil {
		return
	}
	if err := s.eventWriter.Write(ctx, events.ReportFailedKind, bytes.NewBuffer(data)); err != nil {
		zap.S().Named("report_service").Errorw("failed to write event", "error", err, "event_kind", events.ReportFailedKind)
	}
}

func (s *ReportService) emitDelivered(ctx context.Context, req ReportRequest, savePath string) {
	if s.eventWriter == nil {
		return
	}
	data, err := json.Marshal(events.ReportDeliveredEvent{
		QueryLogID:   req.QueryLogID,
		QueryName:    req.QueryName,
		UserID:       req.UserID,
		Department:   req.Department,
		ArtifactPath: savePath,
	})
	if err != nil {
		return
	}
	if err := s.eventWriter.Write(ctx, events.ReportDeliveredKind, bytes.NewBuffer(data)); err != nil {
		zap.S().Named("report_service").Errorw("failed to write event", "error", err, "event_kind", events.ReportDeliveredKind)
	}
}

// capitalize upper-cases the first letter and lower-cases the rest, the way
// the notification template expects first names.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
