package model

import (
	"encoding/json"
	"time"
)

// Query is a pre-registered, parameterized SQL report definition. The SQL
// text itself lives on disk at FilePath; only the metadata is persisted.
type Query struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt  time.Time `gorm:"not null;default:now()"`
	UpdatedAt  *time.Time
	Name       string `gorm:"not null;uniqueIndex"`
	FilePath   string `gorm:"not null;type:VARCHAR(512)"`
	Department string `gorm:"type:VARCHAR(255);index:queries_department_idx"`
}

type QueryList []Query

func (q Query) String() string {
	val, _ := json.Marshal(q)
	return string(val)
}
