package interfaces

import (
	"context"
	"errors"

	"github.com/referolabs/refero/internal/models"
)

// ErrKeyNotFound is returned when a key does not exist in storage
var ErrKeyNotFound = errors.New("key not found")

// UserStorage defines the interface for account persistence
type UserStorage interface {
	// Create stores a new user. Returns models.ErrUserExists on conflict.
	Create(ctx context.Context, user *models.User) error

	// Get retrieves a user by username. Returns ErrKeyNotFound when absent.
	Get(ctx context.Context, username string) (*models.User, error)

	// Exists checks whether a username is taken
	Exists(ctx context.Context, username string) (bool, error)
}

// ReportStorage defines the interface for report persistence.
// Reports are keyed by identity; saving replaces any previous report.
type ReportStorage interface {
	Save(ctx context.Context, report *models.Report) error

	// Get retrieves the identity's report. Returns ErrKeyNotFound when absent.
	Get(ctx context.Context, identity string) (*models.Report, error)

	Delete(ctx context.Context, identity string) error

	// List returns all stored reports, used by the retention sweep
	List(ctx context.Context) ([]*models.Report, error)
}

// JobStorage tracks generation runs by identity
type JobStorage interface {
	Save(ctx context.Context, job *models.GenerationJob) error
	Get(ctx context.Context, identity string) (*models.GenerationJob, error)
	Delete(ctx context.Context, identity string) error
}

// OutcomeStorage holds proposed edits awaiting an explicit save
type OutcomeStorage interface {
	Save(ctx context.Context, outcome *models.ReprocessOutcome) error
	Get(ctx context.Context, identity string) (*models.ReprocessOutcome, error)
	Delete(ctx context.Context, identity string) error
}

// StorageManager provides access to all storage instances
type StorageManager interface {
	Users() UserStorage
	Reports() ReportStorage
	Jobs() JobStorage
	Outcomes() OutcomeStorage
	KV() KeyValueStorage

	// Close closes the underlying database
	Close() error
}
