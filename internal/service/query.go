package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/querykit/report-delivery/internal/queryexec"
	"github.com/querykit/report-delivery/internal/store"
	"github.com/querykit/report-delivery/internal/store/model"
)

// QueryFilter narrows a registry listing.
type QueryFilter struct {
	Department string
	Name       string
	Page       int
	PerPage    int
}

// QueryService manages the registry of stored SQL templates.
type QueryService struct {
	store       store.Store
	executor    *queryexec.Executor
	queryFolder string
}

func NewQueryService(store store.Store, executor *queryexec.Executor, queryFolder string) *QueryService {
	return &QueryService{store: store, executor: executor, queryFolder: queryFolder}
}

func (s *QueryService) ListQueries(ctx context.Context, filter *QueryFilter) (model.QueryList, error) {
	storeFilter := store.NewQueryFilter()
	opts := store.NewListOptions().WithSortOrder(store.SortByID)

	if filter != nil {
		if filter.Department != "" {
			storeFilter = storeFilter.ByDepartment(filter.Department)
		}
		if filter.Name != "" {
			storeFilter = storeFilter.ByName(filter.Name)
		}
		opts = opts.WithPagination(filter.Page, filter.PerPage)
	}

	queries, err := s.store.Query().List(ctx, storeFilter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	return queries, nil
}

func (s *QueryService) GetQuery(ctx context.Context, id uint) (*model.Query, error) {
	query, err := s.store.Query().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrQueryNotFound(id)
		}
		return nil, err
	}
	return query, nil
}

func (s *QueryService) CreateQuery(ctx context.Context, query model.Query) (*model.Query, error) {
	created, err := s.store.Query().Create(ctx, query)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, NewErrInvalidRequest(fmt.Sprintf("query named %q already exists", query.Name))
		}
		return nil, err
	}
	return created, nil
}

func (s *QueryService) UpdateQuery(ctx context.Context, query model.Query) (*model.Query, error) {
	updated, err := s.store.Query().Update(ctx, query)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrQueryNotFound(query.ID)
		}
		return nil, err
	}
	return updated, nil
}

func (s *QueryService) DeleteQuery(ctx context.Context, id uint) error {
	return s.store.Query().Delete(ctx, id)
}

// Preview executes one page of a registered template, for inspecting a
// query's output without running a full report job.
func (s *QueryService) Preview(ctx context.Context, id uint, params map[string]any, page, perPage int) (*queryexec.ResultSet, error) {
	query, err := s.GetQuery(ctx, id)
	if err != nil {
		return nil, err
	}

	sqlText, err := queryexec.ReadSQL(filepath.Join(s.queryFolder, query.FilePath))
	if err != nil {
		return nil, NewErrQueryExecution(query.Name, err)
	}

	rs, err := s.executor.ExecutePage(ctx, sqlText, params, page, perPage)
	if err != nil {
		var invalidPage *queryexec.ErrInvalidPage
		if errors.As(err, &invalidPage) {
			return nil, NewErrInvalidRequest(err.Error())
		}
		return nil, NewErrQueryExecution(query.Name, err)
	}
	return rs, nil
}

// DeclaredParameters reads the template off disk and returns the parameters
// its header comment declares, name to type.
func (s *QueryService) DeclaredParameters(ctx context.Context, id uint) (map[string]string, error) {
	query, err := s.GetQuery(ctx, id)
	if err != nil {
		return nil, err
	}

	sqlText, err := queryexec.ReadSQL(filepath.Join(s.queryFolder, query.FilePath))
	if err != nil {
		return nil, err
	}
	return queryexec.DeclaredParams(sqlText), nil
}
