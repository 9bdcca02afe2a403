package mailcompact

import (
	"context"
	"time"
)

// Locker grants exclusive access to a maildir's cur/ directory.
// The mail server must honour the same lock for compaction to be safe.
type Locker interface {
	// Acquire makes one attempt to lock scope for at most lease. The lease is
	// advisory and passed to the lock service; it is not enforced here.
	// Implementations return errors.ErrLockBusy or errors.ErrLockFailed
	// when the lock is not granted. Retrying is the caller's business.
	Acquire(ctx context.Context, scope string, lease time.Duration) (Token, error)
}

// Token is a granted lock.
type Token interface {
	// Scope returns the directory the lock covers.
	Scope() string

	// Holder identifies the lock holder, e.g. the PID of a lock process.
	Holder() string

	// Release gives up the lock. It does not verify that the holder still
	// owns it. Release must be called exactly once.
	Release() error
}
