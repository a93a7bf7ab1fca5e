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

// UserStorage implements interfaces.UserStorage on badgerhold
type UserStorage struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.UserStorage = (*UserStorage)(nil)

// NewUserStorage creates a user storage instance
func NewUserStorage(db *BadgerDB, logger arbor.ILogger) *UserStorage {
	return &UserStorage{
		store:  db.Store(),
		logger: logger,
	}
}

// Create stores a new user
func (s *UserStorage) Create(ctx context.Context, user *models.User) error {
	err := s.store.Insert(user.Username, user)
	if err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return models.ErrUserExists
		}
		return fmt.Errorf("failed to store user: %w", err)
	}

	s.logger.Info().Str("username", user.Username).Msg("User registered")
	return nil
}

// Get retrieves a user by username
func (s *UserStorage) Get(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.store.Get(username, &user)
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Exists checks whether a username is taken
func (s *UserStorage) Exists(ctx context.Context, username string) (bool, error) {
	_, err := s.Get(ctx, username)
	if err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
