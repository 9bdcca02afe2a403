// Package maildir implements the compaction pipeline for Maildir-format
// message stores.
//
// A maildir is recognised by its three subdirectories:
//
//	mailbox/
//	├── new/     # Newly delivered messages
//	├── cur/     # Messages the server has seen; the compaction target
//	└── tmp/     # Work area; compressed copies are staged here
//
// Messages in cur/ follow the Dovecot naming convention
// <unique>,S=<size>:2,<flags>. A message is compressed by writing a gzip
// copy named <name>Z into tmp/, cloning the original's owner, mode and
// timestamps onto it, and later (under the mailbox lock) renaming it into
// cur/ and removing the original:
//
//	for md, err := range maildir.Mailboxes("/var/mail") {
//	    ...
//	    for c, err := range maildir.Candidates(md) {
//	        ...
//	    }
//	}
//
// Nothing in this package takes the mailbox lock; callers must hold it
// around Replace.
package maildir
