// ABOUTME: Byte-level storage contract shared by the response cache and sessions
// ABOUTME: Implemented by the in-memory and Redis backends

package cache

import (
	"context"
	"time"
)

// Store persists opaque values with a per-key TTL. A read after the TTL has
// elapsed must behave as a miss. A ttl of zero stores the value without
// expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
