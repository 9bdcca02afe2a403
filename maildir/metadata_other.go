//go:build !(linux || freebsd)

package maildir

import "os"

// StatMetadata samples the metadata of the file at path. Ownership is not
// available on this platform and is reported as -1.
func StatMetadata(path string) (Metadata, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		Mode:  fi.Mode() & (os.ModePerm | os.ModeSetuid | os.ModeSetgid | os.ModeSticky),
		UID:   -1,
		GID:   -1,
		Atime: fi.ModTime(),
		Mtime: fi.ModTime(),
		Size:  fi.Size(),
	}, nil
}

func applyMetadata(path string, m Metadata, ownership bool) error {
	if ownership {
		if err := os.Chmod(path, m.Mode); err != nil {
			return err
		}
	}
	return os.Chtimes(path, m.Atime, m.Mtime)
}
