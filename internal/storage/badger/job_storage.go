package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/referolabs/refero/internal/interfaces"
	"github.com/referolabs/refero/internal/models"
)

// JobStorage implements interfaces.JobStorage on badgerhold
type JobStorage struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.JobStorage = (*JobStorage)(nil)

// NewJobStorage creates a job storage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) *JobStorage {
	return &JobStorage{
		store:  db.Store(),
		logger: logger,
	}
}

// Save records the identity's generation job state
func (s *JobStorage) Save(ctx context.Context, job *models.GenerationJob) error {
	if job.Identity == "" {
		return fmt.Errorf("job identity cannot be empty")
	}
	if err := s.store.Upsert("job:"+job.Identity, job); err != nil {
		return fmt.Errorf("failed to store job: %w", err)
	}
	return nil
}

// Get retrieves the identity's generation job
func (s *JobStorage) Get(ctx context.Context, identity string) (*models.GenerationJob, error) {
	var job models.GenerationJob
	err := s.store.Get("job:"+identity, &job)
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	job.Identity = identity
	return &job, nil
}

// Delete removes the identity's generation job
func (s *JobStorage) Delete(ctx context.Context, identity string) error {
	err := s.store.Delete("job:"+identity, models.GenerationJob{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}
