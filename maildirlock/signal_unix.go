//go:build unix

package maildirlock

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func terminate(pid int) error {
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("signal lock holder %d: %w", pid, err)
	}
	return nil
}
