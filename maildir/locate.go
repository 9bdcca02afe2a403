package maildir

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
)

// WalkError reports a directory that could not be read during a scan.
// The subtree below Path was skipped.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("walk %s: %v", e.Path, e.Err)
}

func (e *WalkError) Unwrap() error {
	return e.Err
}

// Mailboxes returns the maildirs found by recursive descent from root, in
// pre-order. A directory is reported as soon as cur, new and tmp are seen
// among its subdirectories; descent continues below it, so nested maildirs
// are reported too. Symlinked directories are not descended into.
//
// A directory that cannot be read yields a *WalkError and its subtree is
// skipped; the scan continues with its siblings.
func Mailboxes(root string) iter.Seq2[*Maildir, error] {
	return func(yield func(*Maildir, error) bool) {
		walkMailboxes(filepath.Clean(root), yield)
	}
}

// walkMailboxes returns false once yield asks to stop.
func walkMailboxes(dir string, yield func(*Maildir, error) bool) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return yield(nil, &WalkError{Path: dir, Err: err})
	}
	if hasLayout(dir, entries) {
		if !yield(New(dir), nil) {
			return false
		}
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if !walkMailboxes(filepath.Join(dir, e.Name()), yield) {
			return false
		}
	}
	return true
}
