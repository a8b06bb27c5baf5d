package log

import (
	"time"
)

// Log is a persisted, sanitized API request/response pair.
type Log struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Method          string    `gorm:"type:varchar(10);not null;index" json:"method"`
	URL             string    `gorm:"type:text;not null" json:"url"`
	UserID          *string   `gorm:"type:varchar(36);index" json:"user_id,omitempty"`
	RequestBody     string    `gorm:"type:text" json:"request_body"`
	RequestHeaders  string    `gorm:"type:text" json:"request_headers"`
	ResponseBody    string    `gorm:"type:text" json:"response_body"`
	ResponseHeaders string    `gorm:"type:text" json:"response_headers"`
	StatusCode      int       `gorm:"type:int;index" json:"status_code"`
	LatencyMs       int64     `gorm:"type:bigint" json:"latency_ms"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
