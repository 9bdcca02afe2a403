package maildir

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/emersion/go-maildir"
)

// FlagCompressed marks a message whose file content is gzip-compressed.
const FlagCompressed maildir.Flag = 'Z'

// eligiblePattern selects Dovecot message names carrying a size token
// whose last character is not the compressed flag.
var eligiblePattern = "*,S=*[^" + string(rune(FlagCompressed)) + "]"

const (
	infoSeparator = ":"
	sizeField     = ",S="
)

// Filename is a parsed maildir message filename.
// Format: unique[,S=size][,W=vsize]:2,flags
type Filename struct {
	// Key is the part before the info separator, including any size fields.
	Key string

	// Size is the value of the S= field, the message size in bytes before
	// compression. -1 if absent or malformed.
	Size int64

	// Flags are the single-character flags after ":2,".
	Flags []maildir.Flag
}

// ParseFilename splits a maildir message filename into its parts.
// Names without an info suffix parse with no flags.
func ParseFilename(name string) Filename {
	f := Filename{Key: name, Size: -1}
	if i := strings.LastIndex(name, infoSeparator); i >= 0 {
		f.Key = name[:i]
		if info := name[i+1:]; strings.HasPrefix(info, "2,") {
			for _, r := range info[2:] {
				f.Flags = append(f.Flags, maildir.Flag(r))
			}
		}
	}
	if i := strings.Index(f.Key, sizeField); i >= 0 {
		tok := f.Key[i+len(sizeField):]
		if j := strings.IndexByte(tok, ','); j >= 0 {
			tok = tok[:j]
		}
		if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
			f.Size = n
		}
	}
	return f
}

// HasFlag reports whether the filename carries the given flag.
func (f Filename) HasFlag(flag maildir.Flag) bool {
	for _, fl := range f.Flags {
		if fl == flag {
			return true
		}
	}
	return false
}

// IsEligible reports whether a message filename is a compaction candidate.
// Only the name is examined. Keyword flags sort after the compressed flag,
// so a name such as "x,S=1:2,Za" is rejected by its flags, not its last
// character.
func IsEligible(name string) bool {
	ok, err := filepath.Match(eligiblePattern, name)
	return err == nil && ok && !ParseFilename(name).HasFlag(FlagCompressed)
}

// CompressedName returns the published name of the compressed copy.
func CompressedName(name string) string {
	return name + string(rune(FlagCompressed))
}
