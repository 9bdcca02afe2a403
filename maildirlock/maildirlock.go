// Package maildirlock locks maildirs with Dovecot's maildirlock helper.
//
// The helper is run as
//
//	maildirlock <maildir>/cur <lease-seconds>
//
// On success it prints the PID of a process holding the lock on its first
// line of output and exits 0; the lock lasts until that process receives
// SIGTERM or the lease runs out. Any other exit status means the lock was
// not granted.
//
// The package registers itself under the name "maildirlock".
package maildirlock

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/infodancer/mailcompact"
	"github.com/infodancer/mailcompact/errors"
)

// Locker runs the lock helper once per Acquire.
type Locker struct {
	command string
}

// New creates a Locker that runs command.
func New(command string) *Locker {
	return &Locker{command: command}
}

// Acquire runs the helper and blocks until it exits.
func (l *Locker) Acquire(ctx context.Context, scope string, lease time.Duration) (mailcompact.Token, error) {
	cmd := exec.CommandContext(ctx, l.command, scope, leaseSeconds(lease))
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrLockFailed, err)
	}

	// The lock holder may inherit stdout, so read only the first line
	// rather than waiting for EOF.
	line, readErr := bufio.NewReader(stdout).ReadString('\n')
	if waitErr := cmd.Wait(); waitErr != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", errors.ErrLockFailed, l.command, scope, waitErr)
	}
	if readErr != nil && readErr != io.EOF {
		return nil, fmt.Errorf("%w: read holder: %v", errors.ErrInvalidLockHolder, readErr)
	}

	pid, err := parsePID(line)
	if err != nil {
		return nil, err
	}
	return &token{scope: scope, pid: pid}, nil
}

func parsePID(line string) (int, error) {
	s := strings.TrimSpace(line)
	pid, err := strconv.Atoi(s)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%w: %q", errors.ErrInvalidLockHolder, s)
	}
	return pid, nil
}

// leaseSeconds formats a lease for the helper, rounding up to whole seconds.
func leaseSeconds(lease time.Duration) string {
	secs := int64((lease + time.Second - 1) / time.Second)
	return strconv.FormatInt(max(secs, 1), 10)
}

type token struct {
	scope string
	pid   int

	once sync.Once
	err  error
}

func (t *token) Scope() string  { return t.scope }
func (t *token) Holder() string { return "pid " + strconv.Itoa(t.pid) }

// Release sends SIGTERM to the holder and returns without waiting for it
// to exit. Calls after the first do nothing.
func (t *token) Release() error {
	t.once.Do(func() {
		t.err = terminate(t.pid)
	})
	return t.err
}
