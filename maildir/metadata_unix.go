//go:build linux || freebsd

package maildir

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// StatMetadata samples the metadata of the file at path.
func StatMetadata(path string) (Metadata, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return Metadata{}, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	return Metadata{
		Mode:  unixMode(uint32(st.Mode)),
		UID:   int(st.Uid),
		GID:   int(st.Gid),
		Atime: time.Unix(st.Atim.Unix()),
		Mtime: time.Unix(st.Mtim.Unix()),
		Size:  st.Size,
	}, nil
}

// applyMetadata makes path carry m. Chown must precede chmod, which keeps
// setuid/setgid bits; timestamps are set last.
func applyMetadata(path string, m Metadata, ownership bool) error {
	if ownership {
		if err := unix.Chown(path, m.UID, m.GID); err != nil {
			return &os.PathError{Op: "chown", Path: path, Err: err}
		}
		if err := unix.Chmod(path, modeBits(m.Mode)); err != nil {
			return &os.PathError{Op: "chmod", Path: path, Err: err}
		}
	}
	ts := []unix.Timespec{
		unix.NsecToTimespec(m.Atime.UnixNano()),
		unix.NsecToTimespec(m.Mtime.UnixNano()),
	}
	if err := unix.UtimesNano(path, ts); err != nil {
		return &os.PathError{Op: "utimes", Path: path, Err: err}
	}
	return nil
}

// unixMode converts raw st_mode permission bits to an os.FileMode.
func unixMode(raw uint32) os.FileMode {
	mode := os.FileMode(raw & 0o777)
	if raw&unix.S_ISUID != 0 {
		mode |= os.ModeSetuid
	}
	if raw&unix.S_ISGID != 0 {
		mode |= os.ModeSetgid
	}
	if raw&unix.S_ISVTX != 0 {
		mode |= os.ModeSticky
	}
	return mode
}

// modeBits is the inverse of unixMode.
func modeBits(mode os.FileMode) uint32 {
	raw := uint32(mode.Perm())
	if mode&os.ModeSetuid != 0 {
		raw |= unix.S_ISUID
	}
	if mode&os.ModeSetgid != 0 {
		raw |= unix.S_ISGID
	}
	if mode&os.ModeSticky != 0 {
		raw |= unix.S_ISVTX
	}
	return raw
}
