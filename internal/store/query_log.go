package store

import (
	"context"
	"errors"

	"github.com/querykit/report-delivery/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QueryLog interface {
	Create(ctx context.Context, log model.QueryLog) (*model.QueryLog, error)
	Get(ctx context.Context, id uint) (*model.QueryLog, error)
	List(ctx context.Context, filter *QueryLogFilter, opts *ListOptions) (model.QueryLogList, error)
	// UpdateStatus moves a PENDING log to a terminal status. Updating a log
	// that already reached SUCCESS or FAILED returns ErrTerminalState.
	UpdateStatus(ctx context.Context, id uint, status string) error
	Stats(ctx context.Context) (model.QueryLogStats, error)
}

type QueryLogStore struct {
	db *gorm.DB
}

// Make sure we conform to QueryLog interface
var _ QueryLog = (*QueryLogStore)(nil)

func NewQueryLogStore(db *gorm.DB) QueryLog {
	return &QueryLogStore{db: db}
}

func (s *QueryLogStore) Create(ctx context.Context, log model.QueryLog) (*model.QueryLog, error) {
	if log.Status == "" {
		log.Status = model.QueryLogStatusPending
	}
	result := s.getDB(ctx).Clauses(clause.Returning{}).Create(&log)
	if result.Error != nil {
		return nil, result.Error
	}
	return &log, nil
}

func (s *QueryLogStore) Get(ctx context.Context, id uint) (*model.QueryLog, error) {
	var log model.QueryLog
	result := s.getDB(ctx).First(&log, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &log, nil
}

func (s *QueryLogStore) List(ctx context.Context, filter *QueryLogFilter, opts *ListOptions) (model.QueryLogList, error) {
	var logs model.QueryLogList
	tx := s.getDB(ctx).Model(&logs)

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	if opts != nil {
		for _, fn := range opts.QueryFn {
			tx = fn(tx)
		}
	}

	if result := tx.Find(&logs); result.Error != nil {
		return nil, result.Error
	}
	return logs, nil
}

func (s *QueryLogStore) UpdateStatus(ctx context.Context, id uint, status string) error {
	// conditional update enforces the PENDING -> terminal transition
	result := s.getDB(ctx).Model(&model.QueryLog{}).
		Where("id = ? AND status = ?", id, model.QueryLogStatusPending).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var log model.QueryLog
		if err := s.getDB(ctx).First(&log, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}
		return ErrTerminalState
	}
	return nil
}

func (s *QueryLogStore) Stats(ctx context.Context) (model.QueryLogStats, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	result := s.getDB(ctx).Model(&model.QueryLog{}).
		Select("status, COUNT(*) as total").
		Group("status").
		Scan(&rows)
	if result.Error != nil {
		return model.QueryLogStats{}, result.Error
	}

	stats := model.QueryLogStats{TotalByStatus: make(map[string]int64)}
	for _, row := range rows {
		stats.TotalByStatus[row.Status] = row.Total
	}
	return stats, nil
}

func (s *QueryLogStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
