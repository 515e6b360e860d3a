// Package store defines the narrow key-value capability the matchmaking
// and signaling components run against. Everything cross-connection
// lives behind this interface with a TTL, so a crashed process can
// never strand state forever; the Redis implementation backs
// production and the in-memory one backs tests.
package store

import (
	"context"
	"time"
)

// Store is the shared mutable surface. Handlers run concurrently and
// hold no locks across calls; correctness leans on the atomicity of
// the individual operations (PopHead, SetNX) rather than any
// coordination above them.
type Store interface {
	// Get returns ("", nil) when the key is absent or expired.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX writes only if the key is absent and reports whether the
	// write landed. First writer wins; there is no read-then-write.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error

	// PushTail appends to a FIFO list; PopHead atomically removes and
	// returns the head, ("", nil) when the list is empty. Two
	// concurrent poppers can never receive the same element.
	PushTail(ctx context.Context, key, value string) error
	PopHead(ctx context.Context, key string) (string, error)
	// RemoveFromList deletes every occurrence of value; absent values
	// are a no-op.
	RemoveFromList(ctx context.Context, key, value string) error

	AddToSet(ctx context.Context, key string, ttl time.Duration, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	IsSetMember(ctx context.Context, key, member string) (bool, error)

	SetHash(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error
	// GetHash returns an empty map for an absent key.
	GetHash(ctx context.Context, key string) (map[string]string, error)
}
