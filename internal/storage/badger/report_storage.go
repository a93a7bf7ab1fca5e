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

// ReportStorage implements interfaces.ReportStorage on badgerhold
type ReportStorage struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.ReportStorage = (*ReportStorage)(nil)

// NewReportStorage creates a report storage instance
func NewReportStorage(db *BadgerDB, logger arbor.ILogger) *ReportStorage {
	return &ReportStorage{
		store:  db.Store(),
		logger: logger,
	}
}

// Save stores a report, replacing any previous one for the identity
func (s *ReportStorage) Save(ctx context.Context, report *models.Report) error {
	if report.Identity == "" {
		return fmt.Errorf("report identity cannot be empty")
	}
	if err := s.store.Upsert(report.Identity, report); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

// Get retrieves the identity's report
func (s *ReportStorage) Get(ctx context.Context, identity string) (*models.Report, error) {
	var report models.Report
	err := s.store.Get(identity, &report)
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	report.Identity = identity
	return &report, nil
}

// Delete removes the identity's report
func (s *ReportStorage) Delete(ctx context.Context, identity string) error {
	err := s.store.Delete(identity, models.Report{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// List returns all stored reports with their identities
func (s *ReportStorage) List(ctx context.Context) ([]*models.Report, error) {
	var reports []*models.Report
	if err := s.store.Find(&reports, nil); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}
