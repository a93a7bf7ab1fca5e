package reports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/referolabs/refero/internal/interfaces"
	"github.com/referolabs/refero/internal/models"
)

// ErrGenerationInProgress indicates a run is already active for the identity
var ErrGenerationInProgress = errors.New("a report generation is already running for this identity")

// Service owns report persistence and the generation job lifecycle.
// All mutations for one identity are serialized through a per-identity
// lock so concurrent edits cannot interleave.
type Service struct {
	storage   interfaces.StorageManager
	assembler interfaces.Assembler
	logger    arbor.ILogger

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	inflight map[string]bool
}

// NewService creates a reports service
func NewService(storage interfaces.StorageManager, assembler interfaces.Assembler, logger arbor.ILogger) *Service {
	return &Service{
		storage:   storage,
		assembler: assembler,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
		inflight:  make(map[string]bool),
	}
}

// identityLock returns the mutex guarding one identity's report
func (s *Service) identityLock(identity string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[identity]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[identity] = lock
	}
	return lock
}

func (s *Service) setInflight(identity string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active {
		s.inflight[identity] = true
	} else {
		delete(s.inflight, identity)
	}
}

// GenerationActive reports whether this process has a live generation
// run for the identity. A persisted running job without a live run is
// a leftover from a crashed process.
func (s *Service) GenerationActive(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight[identity]
}

// BeginEdit acquires the identity's guard for an edit operation. It
// refuses while a generation run is active so edits never work from a
// report that is about to be replaced. The returned func releases the
// guard.
func (s *Service) BeginEdit(identity string) (func(), error) {
	if s.GenerationActive(identity) {
		return nil, ErrGenerationInProgress
	}
	lock := s.identityLock(identity)
	lock.Lock()
	if s.GenerationActive(identity) {
		lock.Unlock()
		return nil, ErrGenerationInProgress
	}
	return lock.Unlock, nil
}

// StartGeneration kicks off an asynchronous generation run. Only one
// run per identity may be active; a finished run's report replaces any
// previous one.
func (s *Service) StartGeneration(ctx context.Context, identity string, req *models.ReportRequest) error {
	lock := s.identityLock(identity)
	lock.Lock()
	defer lock.Unlock()

	job, err := s.storage.Jobs().Get(ctx, identity)
	if err == nil && (job.Status == models.JobStatusPending || job.Status == models.JobStatusRunning) {
		if s.GenerationActive(identity) {
			return ErrGenerationInProgress
		}
		// A persisted running job with no live run means the process
		// died mid-generation; the stale job must not lock the
		// identity out forever.
		s.logger.Warn().
			Str("identity", identity).
			Str("started_at", job.StartedAt.Format(time.RFC3339)).
			Msg("Recovering stale generation job from a previous process")
	}
	if err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		return fmt.Errorf("failed to check job state: %w", err)
	}

	newJob := &models.GenerationJob{
		Identity:  identity,
		Status:    models.JobStatusRunning,
		StartedAt: time.Now(),
	}
	if err := s.storage.Jobs().Save(ctx, newJob); err != nil {
		return fmt.Errorf("failed to record job: %w", err)
	}

	// The run outlives the HTTP request that started it
	s.setInflight(identity, true)
	go s.runGeneration(identity, req)

	return nil
}

func (s *Service) runGeneration(identity string, req *models.ReportRequest) {
	defer s.setInflight(identity, false)

	ctx := context.Background()

	report, err := s.assembler.Generate(ctx, identity, req)

	lock := s.identityLock(identity)
	lock.Lock()
	defer lock.Unlock()

	job := &models.GenerationJob{
		Identity:   identity,
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
	}
	if prev, getErr := s.storage.Jobs().Get(ctx, identity); getErr == nil {
		job.StartedAt = prev.StartedAt
	}

	if err != nil {
		s.logger.Error().Str("identity", identity).Err(err).Msg("Report generation failed")
		job.Status = models.JobStatusFailed
		job.Error = err.Error()
	} else {
		if saveErr := s.storage.Reports().Save(ctx, report); saveErr != nil {
			s.logger.Error().Str("identity", identity).Err(saveErr).Msg("Failed to persist report")
			job.Status = models.JobStatusFailed
			job.Error = saveErr.Error()
		} else {
			job.Status = models.JobStatusDone
			// A fresh report invalidates any pending edit state
			s.storage.Outcomes().Delete(ctx, identity)
		}
	}

	if err := s.storage.Jobs().Save(ctx, job); err != nil {
		s.logger.Error().Str("identity", identity).Err(err).Msg("Failed to record job result")
	}
}

// JobStatus returns the identity's generation job state
func (s *Service) JobStatus(ctx context.Context, identity string) (*models.GenerationJob, error) {
	job, err := s.storage.Jobs().Get(ctx, identity)
	if err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			return nil, models.ErrReportNotFound
		}
		return nil, err
	}
	return job, nil
}

// Get returns the identity's stored report
func (s *Service) Get(ctx context.Context, identity string) (*models.Report, error) {
	report, err := s.storage.Reports().Get(ctx, identity)
	if err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			return nil, models.ErrReportNotFound
		}
		return nil, err
	}
	return report, nil
}

// Save stores a report, stamping UpdatedAt
func (s *Service) Save(ctx context.Context, report *models.Report) error {
	lock := s.identityLock(report.Identity)
	lock.Lock()
	defer lock.Unlock()

	report.UpdatedAt = time.Now()
	return s.storage.Reports().Save(ctx, report)
}

// UpdateSection replaces one section's content and persists the report
func (s *Service) UpdateSection(ctx context.Context, identity, sectionTitle, content string) (*models.Report, error) {
	lock := s.identityLock(identity)
	lock.Lock()
	defer lock.Unlock()

	report, err := s.storage.Reports().Get(ctx, identity)
	if err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			return nil, models.ErrReportNotFound
		}
		return nil, err
	}

	idx := report.SectionIndex(sectionTitle)
	if idx < 0 {
		return nil, &models.SectionNotFoundError{Section: sectionTitle}
	}

	report.Sections[idx].Content = content
	report.UpdatedAt = time.Now()
	if err := s.storage.Reports().Save(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("identity", identity).
		Str("section", sectionTitle).
		Msg("Section updated")

	return report, nil
}

// Delete removes the identity's report and all associated state.
// Deleting an identity that has nothing stored succeeds.
func (s *Service) Delete(ctx context.Context, identity string) error {
	lock := s.identityLock(identity)
	lock.Lock()
	defer lock.Unlock()

	if err := s.storage.Reports().Delete(ctx, identity); err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		return err
	}
	s.storage.Jobs().Delete(ctx, identity)
	s.storage.Outcomes().Delete(ctx, identity)
	s.storage.KV().Delete(ctx, models.PendingDecisionKey(identity))

	s.logger.Info().Str("identity", identity).Msg("Report deleted")
	return nil
}
