package maildir

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emersion/go-maildir"
)

// newTestMaildir creates a maildir at root/rel using go-maildir's layout.
func newTestMaildir(t *testing.T, root, rel string) *Maildir {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(path, 0o700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := maildir.Dir(path).Init(); err != nil {
		t.Fatalf("Init %s: %v", path, err)
	}
	return New(path)
}

// writeMessage writes body to cur/name with a fixed, old mtime so tests can
// tell preserved timestamps from fresh ones.
func writeMessage(t *testing.T, md *Maildir, name, body string) string {
	t.Helper()
	path := filepath.Join(md.CurDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o640); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	mtime := time.Date(2012, 3, 4, 5, 6, 7, 0, time.UTC)
	atime := time.Date(2013, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := os.Chtimes(path, atime, mtime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	return path
}

func candidateFor(md *Maildir, name string) Candidate {
	return Candidate{Maildir: md, Name: name, Path: filepath.Join(md.CurDir(), name)}
}
