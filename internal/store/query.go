package store

import (
	"context"
	"errors"

	"github.com/querykit/report-delivery/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Query interface {
	List(ctx context.Context, filter *QueryFilter, opts *ListOptions) (model.QueryList, error)
	Get(ctx context.Context, id uint) (*model.Query, error)
	Create(ctx context.Context, query model.Query) (*model.Query, error)
	Update(ctx context.Context, query model.Query) (*model.Query, error)
	Delete(ctx context.Context, id uint) error
}

type QueryStore struct {
	db *gorm.DB
}

// Make sure we conform to Query interface
var _ Query = (*QueryStore)(nil)

func NewQueryStore(db *gorm.DB) Query {
	return &QueryStore{db: db}
}

func (s *QueryStore) List(ctx context.Context, filter *QueryFilter, opts *ListOptions) (model.QueryList, error) {
	var queries model.QueryList
	tx := s.getDB(ctx).Model(&queries)

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

	if result := tx.Find(&queries); result.Error != nil {
		return nil, result.Error
	}
	return queries, nil
}

func (s *QueryStore) Get(ctx context.Context, id uint) (*model.Query, error) {
	var query model.Query
	result := s.getDB(ctx).First(&query, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &query, nil
}

func (s *QueryStore) Create(ctx context.Context, query model.Query) (*model.Query, error) {
	result := s.getDB(ctx).Clauses(clause.Returning{}).Create(&query)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &query, nil
}

func (s *QueryStore) Update(ctx context.Context, query model.Query) (*model.Query, error) {
	existing, err := s.Get(ctx, query.ID)
	if err != nil {
		return nil, err
	}

	existing.Name = query.Name
	existing.FilePath = query.FilePath
	existing.Department = query.Department

	if result := s.getDB(ctx).Model(existing).Updates(existing); result.Error != nil {
		return nil, result.Error
	}
	return existing, nil
}

func (s *QueryStore) Delete(ctx context.Context, id uint) error {
	result := s.getDB(ctx).Delete(&model.Query{}, "id = ?", id)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return nil
}

func (s *QueryStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
