package maildir

import (
	"io/fs"
	"iter"
	"path/filepath"
)

// Candidate is a message file selected for compaction.
type Candidate struct {
	// Maildir is the mailbox the message belongs to.
	Maildir *Maildir

	// Name is the message filename.
	Name string

	// Path is the full path of the message, somewhere below cur/.
	Path string
}

// Filename parses the candidate's name.
func (c Candidate) Filename() Filename {
	return ParseFilename(c.Name)
}

// Candidates returns the eligible message files below md's cur/ directory,
// recursively. Selection is by name only; files are never opened.
//
// Directories that cannot be read yield a *WalkError and are skipped.
//
// A cur/ that is a symlink to a directory is followed; candidate paths are
// still reported below md.CurDir().
func Candidates(md *Maildir) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		cur := md.CurDir()
		root, err := filepath.EvalSymlinks(cur)
		if err != nil {
			yield(Candidate{}, &WalkError{Path: cur, Err: err})
			return
		}
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if rel, relErr := filepath.Rel(root, path); relErr == nil {
				path = filepath.Join(cur, rel)
			}
			if err != nil {
				if !yield(Candidate{}, &WalkError{Path: path, Err: err}) {
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !IsEligible(d.Name()) {
				return nil
			}
			if !yield(Candidate{Maildir: md, Name: d.Name(), Path: path}, nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// CollectCandidates drains Candidates into a slice. Walk errors are
// returned alongside whatever candidates were found.
func CollectCandidates(md *Maildir) ([]Candidate, []error) {
	var (
		out  []Candidate
		errs []error
	)
	for c, err := range Candidates(md) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	return out, errs
}
