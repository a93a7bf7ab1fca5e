package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/referolabs/refero/internal/interfaces"
)

// kvEntry is the stored form of one key-value pair
type kvEntry struct {
	Key   string `badgerhold:"key"`
	Value []byte
}

// KVStorage implements interfaces.KeyValueStorage on badgerhold
type KVStorage struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.KeyValueStorage = (*KVStorage)(nil)

// NewKVStorage creates a key-value storage instance
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) *KVStorage {
	return &KVStorage{
		store:  db.Store(),
		logger: logger,
	}
}

// Set stores a value under the key
func (s *KVStorage) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	entry := kvEntry{Key: key, Value: value}
	if err := s.store.Upsert("kv:"+key, &entry); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Get retrieves the value for a key
func (s *KVStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var entry kvEntry
	err := s.store.Get("kv:"+key, &entry)
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return entry.Value, nil
}

// Delete removes a key; missing keys are not an error
func (s *KVStorage) Delete(ctx context.Context, key string) error {
	err := s.store.Delete("kv:"+key, kvEntry{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// ListKeys returns all keys with the given prefix
func (s *KVStorage) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var entries []kvEntry
	if err := s.store.Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Key, prefix) {
			keys = append(keys, entry.Key)
		}
	}
	return keys, nil
}
