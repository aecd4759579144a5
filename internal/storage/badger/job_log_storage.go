package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/coquo/internal/common"
	"github.com/ternarybob/coquo/internal/interfaces"
	"github.com/ternarybob/coquo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobLogStorage implements the append-only JobLogStorage interface for Badger
type JobLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobLogStorage creates a new JobLogStorage instance
func NewJobLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobLogStorage {
	return &JobLogStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobLogStorage) AppendLog(ctx context.Context, entry *models.JobLogEntry) error {
	if entry.JobID == "" {
		return fmt.Errorf("log entry requires a job ID")
	}
	if entry.ID == "" {
		entry.ID = common.NewLogID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if err := s.db.Store().Insert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to append log: %w", err)
	}
	return nil
}

// GetLogsByJob returns a job's log entries, newest first
func (s *JobLogStorage) GetLogsByJob(ctx context.Context, jobID string, limit int) ([]*models.JobLogEntry, error) {
	query := badgerhold.Where("JobID").Eq(jobID).Index("JobID").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var logs []models.JobLogEntry
	if err := s.db.Store().Find(&logs, query); err != nil {
		return nil, fmt.Errorf("failed to get logs for job %s: %w", jobID, err)
	}

	result := make([]*models.JobLogEntry, len(logs))
	for i := range logs {
		result[i] = &logs[i]
	}
	return result, nil
}

func (s *JobLogStorage) CountLogsByJob(ctx context.Context, jobID string) (int, error) {
	count, err := s.db.Store().Count(&models.JobLogEntry{}, badgerhold.Where("JobID").Eq(jobID).Index("JobID"))
	if err != nil {
		return 0, fmt.Errorf("failed to count logs for job %s: %w", jobID, err)
	}
	return int(count), nil
}
