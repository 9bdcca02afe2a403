package flocklock

import (
	"path/filepath"

	"github.com/infodancer/mailcompact"
	"github.com/infodancer/mailcompact/errors"
)

func init() {
	mailcompact.RegisterLocker("flock", func(config mailcompact.LockConfig) (mailcompact.Locker, error) {
		// file names a lock file inside the maildir, never a path elsewhere.
		file := config.Options["file"]
		if file != "" && filepath.Base(file) != file {
			return nil, errors.ErrLockerConfigInvalid
		}
		return New(file), nil
	})
}
