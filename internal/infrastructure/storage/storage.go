// Package storage provides the durable key→string blob store the cart
// persists through. Implementations may fail (disabled storage, quota,
// corruption); callers are expected to degrade gracefully rather than treat
// storage errors as fatal.
package storage

// Store is a minimal durable key-value interface.
type Store interface {
	// Get returns the value for key. The second return is false when the
	// key is absent; err is reserved for storage-layer failures.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}
