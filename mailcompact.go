// Package mailcompact compresses Maildir messages in place while a mail
// server keeps serving them.
//
// A Compactor walks a directory tree, finds maildirs, gzips every eligible
// message in cur/ into tmp/ without holding any lock, and then, under the
// mailbox lock, moves the compressed copies over the originals one batch
// at a time.
//
// The lock is obtained through a Locker. Backends register themselves by
// name; import them with a blank identifier:
//
//	import _ "github.com/infodancer/mailcompact/maildirlock"
//
// Then open a locker and run:
//
//	locker, err := mailcompact.OpenLocker(cfg.Lock)
//	...
//	c, err := mailcompact.New(cfg, locker, mailcompact.WithLogger(logger))
//	...
//	report, err := c.Run(ctx, "/var/mail")
package mailcompact
