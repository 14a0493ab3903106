package model

import (
	"encoding/json"
	"time"
)

// Query log statuses. PENDING is set at intake; SUCCESS and FAILED are
// terminal.
const (
	QueryLogStatusPending = "PENDING"
	QueryLogStatusSuccess = "SUCCESS"
	QueryLogStatusFailed  = "FAILED"
)

// QueryLog records the lifecycle of one report-delivery job.
type QueryLog struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt  time.Time `gorm:"not null;default:now()"`
	UpdatedAt  *time.Time
	QueryID    uint   `gorm:"not null;index:query_logs_query_id_idx"`
	UserID     int64  `gorm:"not null;index:query_logs_user_id_idx"`
	Department string `gorm:"type:VARCHAR(255)"`
	Status     string `gorm:"not null;type:VARCHAR(32);default:'PENDING'"`
}

type QueryLogList []QueryLog

func (l QueryLog) String() string {
	val, _ := json.Marshal(l)
	return string(val)
}

// QueryLogStats aggregates log rows by status for the metrics collector.
type QueryLogStats struct {
	TotalByStatus map[string]int64
}
