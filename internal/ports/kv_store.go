package ports

import "context"

// Port: a durable key-value byte store.
type KVStore interface {
	// Return the value stored under key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Store value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Remove key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
