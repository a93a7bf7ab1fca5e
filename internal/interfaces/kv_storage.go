package interfaces

import "context"

// KeyValuePair represents a key-value entry
type KeyValuePair struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// KeyValueStorage defines a generic key-value store for small transient
// state such as pending edit decisions.
type KeyValueStorage interface {
	// Set stores a value under the key, overwriting any previous value
	Set(ctx context.Context, key string, value []byte) error

	// Get retrieves the value. Returns ErrKeyNotFound when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// ListKeys returns all keys with the given prefix
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}
