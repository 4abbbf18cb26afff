package cache

import (
	"context"
	"time"
)

// NoExpiry keeps an entry until it is evicted for capacity reasons.
const NoExpiry time.Duration = 0

// Store is the contract response caches must satisfy. A ttl of NoExpiry keeps
// the entry forever.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
