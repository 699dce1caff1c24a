package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes writers of the same session across replicas
// that share a StateStore.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx is done.
	// The lock expires after ttl if the holder never releases it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
