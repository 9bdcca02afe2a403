package mailcompact

import (
	"time"

	"github.com/infodancer/mailcompact/maildir"
)

// Failure stages reported to Observer.JobFailed.
const (
	StageWalk     = "walk"
	StageCompress = "compress"
	StageLock     = "lock"
	StageReplace  = "replace"
)

// Observer receives progress events from a Compactor. The metrics package
// provides a Prometheus implementation.
type Observer interface {
	MailboxScanned(md *maildir.Maildir)
	FileCompressed(job maildir.Job)
	FilesReplaced(n int)
	JobFailed(stage string)
	LockAcquired(wait time.Duration)
}

type nopObserver struct{}

func (nopObserver) MailboxScanned(*maildir.Maildir) {}
func (nopObserver) FileCompressed(maildir.Job)      {}
func (nopObserver) FilesReplaced(int)               {}
func (nopObserver) JobFailed(string)                {}
func (nopObserver) LockAcquired(time.Duration)      {}
