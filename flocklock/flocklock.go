// Package flocklock locks maildirs with flock(2) on a lock file in the
// maildir root. It only protects against servers and tools that take the
// same lock; Dovecot does not.
//
// The package registers itself under the name "flock". The lock file name
// can be set with the "file" option.
package flocklock

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/infodancer/mailcompact"
	"github.com/infodancer/mailcompact/errors"
)

// DefaultLockFile is the lock file created next to cur/, new/ and tmp/.
const DefaultLockFile = ".mailcompact.lock"

// Locker takes a non-blocking exclusive flock per Acquire.
type Locker struct {
	file string
}

// New creates a Locker using the named lock file in each maildir.
func New(file string) *Locker {
	if file == "" {
		file = DefaultLockFile
	}
	return &Locker{file: file}
}

// Acquire tries the lock once. The lease is ignored; the lock is held
// until Release or process exit.
func (l *Locker) Acquire(ctx context.Context, scope string, lease time.Duration) (mailcompact.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fl := flock.New(filepath.Join(filepath.Dir(scope), l.file))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrLockFailed, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", errors.ErrLockBusy, fl.Path())
	}
	return &token{scope: scope, fl: fl}, nil
}

type token struct {
	scope string
	fl    *flock.Flock
}

func (t *token) Scope() string  { return t.scope }
func (t *token) Holder() string { return t.fl.Path() }

// Release unlocks and closes the lock file. The file itself is kept.
func (t *token) Release() error {
	return t.fl.Unlock()
}
