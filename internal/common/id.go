package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique job ID with the "job_" prefix
// Format: job_<uuid>
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewLogID generates a unique job log entry ID
func NewLogID() string {
	return "log_" + uuid.New().String()
}
