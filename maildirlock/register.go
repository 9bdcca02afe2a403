package maildirlock

import (
	"github.com/infodancer/mailcompact"
	"github.com/infodancer/mailcompact/errors"
)

func init() {
	mailcompact.RegisterLocker("maildirlock", func(config mailcompact.LockConfig) (mailcompact.Locker, error) {
		if config.Command == "" {
			return nil, errors.ErrLockerConfigInvalid
		}
		return New(config.Command), nil
	})
}
