package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/querykit/report-delivery/internal/store"
	"github.com/querykit/report-delivery/internal/store/model"
)

// QueryLogFilter is the closed set of predicates a log search accepts.
type QueryLogFilter struct {
	UserID     int64
	QueryID    uint
	Status     string
	Department string
	From       time.Time
	To         time.Time
	Page       int
	PerPage    int
}

// QueryLogService answers delivery-history searches over the job log.
type QueryLogService struct {
	store store.Store
}

func NewQueryLogService(store store.Store) *QueryLogService {
	return &QueryLogService{store: store}
}

func (s *QueryLogService) ListLogs(ctx context.Context, filter *QueryLogFilter) (model.QueryLogList, error) {
	storeFilter := store.NewQueryLogFilter()
	opts := store.NewListOptions().WithSortOrder(store.SortByCreatedTime)

	if filter != nil {
		if filter.UserID != 0 {
			storeFilter = storeFilter.ByUserID(filter.UserID)
		}
		if filter.QueryID != 0 {
			storeFilter = storeFilter.ByQueryID(filter.QueryID)
		}
		if filter.Status != "" {
			storeFilter = storeFilter.ByStatus(filter.Status)
		}
		if filter.Department != "" {
			storeFilter = storeFilter.ByDepartment(filter.Department)
		}
		if !filter.From.IsZero() || !filter.To.IsZero() {
			storeFilter = storeFilter.CreatedBetween(filter.From, filter.To)
		}
		opts = opts.WithPagination(filter.Page, filter.PerPage)
	}

	logs, err := s.store.QueryLog().List(ctx, storeFilter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list query logs: %w", err)
	}
	return logs, nil
}

func (s *QueryLogService) GetLog(ctx context.Context, id uint) (*model.QueryLog, error) {
	log, err := s.store.QueryLog().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrQueryLogNotFound(id)
		}
		return nil, err
	}
	return log, nil
}

func (s *QueryLogService) Stats(ctx context.Context) (model.QueryLogStats, error) {
	return s.store.Statistics(ctx)
}
