package mailcompact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gomaildir "github.com/emersion/go-maildir"

	"github.com/infodancer/mailcompact/errors"
	"github.com/infodancer/mailcompact/maildir"
)

// fakeLocker grants locks in memory. The first failFirst attempts fail.
type fakeLocker struct {
	mu         sync.Mutex
	failFirst  int
	releaseErr error

	attempts int
	acquired int
	released int
	held     map[string]bool
	leases   []time.Duration
}

func (l *fakeLocker) Acquire(ctx context.Context, scope string, lease time.Duration) (Token, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts++
	l.leases = append(l.leases, lease)
	if l.attempts <= l.failFirst {
		return nil, fmt.Errorf("%w: attempt %d", errors.ErrLockBusy, l.attempts)
	}
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[scope] {
		return nil, fmt.Errorf("%w: %s already held", errors.ErrLockBusy, scope)
	}
	l.held[scope] = true
	l.acquired++
	return &fakeToken{locker: l, scope: scope}, nil
}

func (l *fakeLocker) isHeld(scope string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[scope]
}

type fakeToken struct {
	locker *fakeLocker
	scope  string
}

func (t *fakeToken) Scope() string  { return t.scope }
func (t *fakeToken) Holder() string { return "fake" }

func (t *fakeToken) Release() error {
	t.locker.mu.Lock()
	defer t.locker.mu.Unlock()
	t.locker.released++
	t.locker.held[t.scope] = false
	return t.locker.releaseErr
}

// testConfig returns a config with a fast retry delay.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Lock.RetryDelay = time.Millisecond
	return cfg
}

func newTestMaildir(t *testing.T, root, rel string) *maildir.Maildir {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(path, 0o700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := gomaildir.Dir(path).Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return maildir.New(path)
}

func writeMessage(t *testing.T, md *maildir.Maildir, name, body string) string {
	t.Helper()
	path := filepath.Join(md.CurDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o640); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	mtime := time.Date(2012, 3, 4, 5, 6, 7, 0, time.UTC)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	return path
}
