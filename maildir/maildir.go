package maildir

import (
	"os"
	"path/filepath"
)

// Maildir subdirectory names.
const (
	CurDirName = "cur"
	NewDirName = "new"
	TmpDirName = "tmp"
)

// Maildir represents a single maildir directory.
type Maildir struct {
	path string
}

// New creates a Maildir instance for the given path.
// It does not check the directory; use Exists() for that.
func New(path string) *Maildir {
	return &Maildir{path: path}
}

// Path returns the maildir path.
func (m *Maildir) Path() string {
	return m.path
}

// CurDir returns the path of cur/, the scope of the mailbox lock.
func (m *Maildir) CurDir() string {
	return filepath.Join(m.path, CurDirName)
}

// NewDir returns the path of new/.
func (m *Maildir) NewDir() string {
	return filepath.Join(m.path, NewDirName)
}

// TmpDir returns the path of tmp/, where compressed copies are staged.
func (m *Maildir) TmpDir() string {
	return filepath.Join(m.path, TmpDirName)
}

// String implements fmt.Stringer.
func (m *Maildir) String() string {
	return m.path
}

// Exists checks if the maildir exists and has the required structure.
// Symlinked subdirectories count.
func (m *Maildir) Exists() bool {
	for _, dir := range []string{m.CurDir(), m.NewDir(), m.TmpDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

// hasLayout reports whether the directory entries of dir include cur, new
// and tmp as directories. Symlinks are followed for the check only.
func hasLayout(dir string, entries []os.DirEntry) bool {
	found := 0
	for _, e := range entries {
		switch e.Name() {
		case CurDirName, NewDirName, TmpDirName:
		default:
			continue
		}
		if isDirEntry(dir, e) {
			found++
		}
	}
	return found == 3
}

func isDirEntry(dir string, e os.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && info.IsDir()
}
