// Package queryexec executes stored, parameterized SQL templates and
// materializes their result sets, optionally paginated database-side.
package queryexec

import (
	"context"
	"fmt"
	"strconv"

	"gorm.io/gorm"
)

// ResultSet is one executed query result. Rows preserve database ordering
// and column order follows Columns.
type ResultSet struct {
	Columns    []string
	Rows       [][]any
	TotalCount int
}

// ErrInvalidPage rejects page/per-page values before they reach the
// database.
type ErrInvalidPage struct {
	error
}

func NewErrInvalidPage(page, perPage int) *ErrInvalidPage {
	return &ErrInvalidPage{fmt.Errorf("invalid pagination: page %d, per_page %d (both must be >= 1)", page, perPage)}
}

type Executor struct {
	db *gorm.DB
}

func NewExecutor(db *gorm.DB) *Executor {
	return &Executor{db: db}
}

// Paginate wraps a raw query in a window-count subquery and applies a
// database-side LIMIT/OFFSET clause. The inner query is projected untouched
// plus a trailing total column holding the unsliced row count, so one round
// trip yields both the page and the total.
func Paginate(sqlText string, page, perPage int) (string, error) {
	if page < 1 || perPage < 1 {
		return "", NewErrInvalidPage(page, perPage)
	}

	offset := (page - 1) * perPage
	wrapped := "SELECT * FROM (SELECT qy.*, COUNT(*) OVER () AS total FROM (" +
		sqlText +
		") qy) paged LIMIT " + strconv.Itoa(perPage) + " OFFSET " + strconv.Itoa(offset)
	return wrapped, nil
}

// Execute runs the full, unsliced template. This is the report-delivery
// path: the entire result set is materialized, which is acceptable for the
// moderate result sizes report jobs target.
func (e *Executor) Execute(ctx context.Context, sqlText string, params map[string]any) (*ResultSet, error) {
	rs, err := e.run(ctx, sqlText, params)
	if err != nil {
		return nil, err
	}
	rs.TotalCount = len(rs.Rows)
	return rs, nil
}

// ExecutePage runs one page of the template. TotalCount is read off the
// trailing total column of the first returned row; an empty page yields 0.
func (e *Executor) ExecutePage(ctx context.Context, sqlText string, params map[string]any, page, perPage int) (*ResultSet, error) {
	wrapped, err := Paginate(sqlText, page, perPage)
	if err != nil {
		return nil, err
	}

	rs, err := e.run(ctx, wrapped, params)
	if err != nil {
		return nil, err
	}

	if len(rs.Rows) > 0 {
		last := rs.Rows[0][len(rs.Rows[0])-1]
		rs.TotalCount = toCount(last)
	}
	return rs, nil
}

func (e *Executor) run(ctx context.Context, sqlText string, params map[string]any) (*ResultSet, error) {
	tx := e.db.WithContext(ctx)

	// templates use gorm named arguments (@name); a map is only passed when
	// there are parameters, since gorm hands an unused map straight to the
	// driver as a positional argument
	args := make([]any, 0, 1)
	if len(params) > 0 {
		args = append(args, params)
	}
	rows, err := tx.Raw(sqlText, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &ResultSet{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		for i, v := range values {
			// drivers hand text columns back as byte slices
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func toCount(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int32:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
