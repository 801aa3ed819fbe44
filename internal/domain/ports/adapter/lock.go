package adapter

import (
	"context"
	"time"
)

// Locker serializes router mutations per device. TryLock returns a release
// token; a busy lock surfaces domain.ErrLockBusy.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
