package maildir

import (
	"os"
	"time"
)

// Metadata is the filesystem metadata of a message that the mail server
// relies on and that must survive compaction unchanged.
type Metadata struct {
	// Mode holds the permission, setuid, setgid and sticky bits.
	Mode os.FileMode

	UID int
	GID int

	Atime time.Time
	Mtime time.Time

	// Size is the on-disk size of the file when sampled. It is used to detect
	// concurrent rewrites, not cloned.
	Size int64
}

// sameContent reports whether the file sampled as m looks untouched when
// sampled again as other.
func (m Metadata) sameContent(other Metadata) bool {
	return m.Size == other.Size && m.Mtime.Equal(other.Mtime)
}
