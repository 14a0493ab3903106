package store

import (
	"time"

	"gorm.io/gorm"
)

type SortOrder int

const (
	Unsorted SortOrder = iota
	SortByID
	SortByCreatedTime
	SortByUpdatedTime
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type QueryFilter BaseQuerier

func NewQueryFilter() *QueryFilter {
	return &QueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *QueryFilter) ByDepartment(department string) *QueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("department = ?", department)
	})
	return qf
}

func (qf *QueryFilter) ByName(name string) *QueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("name = ?", name)
	})
	return qf
}

// QueryLogFilter is the closed set of predicates a log search may use.
// Each predicate maps to one typed comparison; there is no attribute-driven
// filter construction.
type QueryLogFilter BaseQuerier

func NewQueryLogFilter() *QueryLogFilter {
	return &QueryLogFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *QueryLogFilter) ByUserID(userID int64) *QueryLogFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("user_id = ?", userID)
	})
	return qf
}

func (qf *QueryLogFilter) ByQueryID(queryID uint) *QueryLogFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("query_id = ?", queryID)
	})
	return qf
}

func (qf *QueryLogFilter) ByStatus(status string) *QueryLogFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status = ?", status)
	})
	return qf
}

func (qf *QueryLogFilter) ByDepartment(department string) *QueryLogFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("department = ?", department)
	})
	return qf
}

func (qf *QueryLogFilter) CreatedBetween(from, to time.Time) *QueryLogFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("created_at >= ? AND created_at < ?", from, to)
	})
	return qf
}

type ListOptions BaseQuerier

func NewListOptions() *ListOptions {
	return &ListOptions{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (o *ListOptions) WithPagination(page, perPage int) *ListOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		if page < 1 || perPage < 1 {
			return tx
		}
		return tx.Offset((page - 1) * perPage).Limit(perPage)
	})
	return o
}

func (o *ListOptions) WithSortOrder(sort SortOrder) *ListOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		switch sort {
		case SortByID:
			return tx.Order("id")
		case SortByUpdatedTime:
			return tx.Order("updated_at")
		case SortByCreatedTime:
			return tx.Order("created_at")
		default:
			return tx
		}
	})
	return o
}
