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

// OutcomeStorage implements interfaces.OutcomeStorage on badgerhold
type OutcomeStorage struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.OutcomeStorage = (*OutcomeStorage)(nil)

// NewOutcomeStorage creates an outcome storage instance
func NewOutcomeStorage(db *BadgerDB, logger arbor.ILogger) *OutcomeStorage {
	return &OutcomeStorage{
		store:  db.Store(),
		logger: logger,
	}
}

// Save stores the identity's proposed edit, replacing any previous one
func (s *OutcomeStorage) Save(ctx context.Context, outcome *models.ReprocessOutcome) error {
	if outcome.Identity == "" {
		return fmt.Errorf("outcome identity cannot be empty")
	}
	if err := s.store.Upsert("outcome:"+outcome.Identity, outcome); err != nil {
		return fmt.Errorf("failed to store outcome: %w", err)
	}
	return nil
}

// Get retrieves the identity's proposed edit
func (s *OutcomeStorage) Get(ctx context.Context, identity string) (*models.ReprocessOutcome, error) {
	var outcome models.ReprocessOutcome
	err := s.store.Get("outcome:"+identity, &outcome)
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get outcome: %w", err)
	}
	outcome.Identity = identity
	return &outcome, nil
}

// Delete removes the identity's proposed edit
func (s *OutcomeStorage) Delete(ctx context.Context, identity string) error {
	err := s.store.Delete("outcome:"+identity, models.ReprocessOutcome{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete outcome: %w", err)
	}
	return nil
}
