package types

import "time"

// LogEntry is a sanitized request/response pair queued for persistence.
type LogEntry struct {
	Method          string
	URL             string
	UserID          string
	RequestBody     string
	ResponseBody    string
	RequestHeaders  string
	ResponseHeaders string
	StatusCode      int
	LatencyMs       int64
	CreatedAt       time.Time
}
