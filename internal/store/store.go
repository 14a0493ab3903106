package store

import (
	"context"

	"github.com/querykit/report-delivery/internal/store/model"
	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Query() Query
	QueryLog() QueryLog
	Statistics(ctx context.Context) (model.QueryLogStats, error)
	Close() error
}

type DataStore struct {
	db       *gorm.DB
	query    Query
	queryLog QueryLog
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:       db,
		query:    NewQueryStore(db),
		queryLog: NewQueryLogStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Query() Query {
	return s.query
}

func (s *DataStore) QueryLog() QueryLog {
	return s.queryLog
}

func (s *DataStore) Statistics(ctx context.Context) (model.QueryLogStats, error) {
	return s.queryLog.Stats(ctx)
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
