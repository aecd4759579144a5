package models

import (
	"time"
)

// LogLevel classifies a job log entry
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelError   LogLevel = "ERROR"
	LogLevelSuccess LogLevel = "SUCCESS"
)

// JobLogEntry is one append-only record of a unit-of-work outcome.
// Entries are never mutated or deleted while their job exists.
type JobLogEntry struct {
	ID         string                 `json:"id" badgerhold:"key"`
	JobID      string                 `json:"job_id" badgerhold:"index"`
	RecipeID   *int64                 `json:"recipe_id,omitempty"` // nil for job-level messages
	RecipeName string                 `json:"recipe_name,omitempty"`
	Level      LogLevel               `json:"level"`
	Operation  Operation              `json:"operation,omitempty"` // empty for job-level messages
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"` // free-form diagnostics, may carry the prompt
	CreatedAt  time.Time              `json:"created_at"`
}
