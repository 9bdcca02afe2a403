package mailcompact

import (
	"log/slog"

	"github.com/hashicorp/go-multierror"
)

// Report summarises a compaction run.
type Report struct {
	// Mailboxes is the number of maildirs visited.
	Mailboxes int

	// Candidates is the number of eligible messages found.
	Candidates int

	// Compressed is the number of staged compressed copies written.
	Compressed int

	// Verbatim counts compressed copies that were already gzip and copied as is.
	Verbatim int

	// Replaced is the number of originals replaced by compressed copies.
	Replaced int

	// SizeMismatches counts originals whose S= size disagreed with the file.
	SizeMismatches int

	// Stale counts compressed copies discarded because the original changed.
	Stale int

	// BytesRead and BytesWritten are the sizes of originals and staged copies.
	BytesRead    int64
	BytesWritten int64

	// Failures is the number of recorded errors.
	Failures int

	errs *multierror.Error
}

func (r *Report) fail(err error) {
	r.Failures++
	r.errs = multierror.Append(r.errs, err)
}

// Err returns all errors recorded during the run, or nil.
func (r *Report) Err() error {
	return r.errs.ErrorOrNil()
}

// LogValue implements slog.LogValuer.
func (r *Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("mailboxes", r.Mailboxes),
		slog.Int("candidates", r.Candidates),
		slog.Int("compressed", r.Compressed),
		slog.Int("verbatim", r.Verbatim),
		slog.Int("replaced", r.Replaced),
		slog.Int("stale", r.Stale),
		slog.Int("size_mismatches", r.SizeMismatches),
		slog.Int64("bytes_read", r.BytesRead),
		slog.Int64("bytes_written", r.BytesWritten),
		slog.Int("failures", r.Failures),
	)
}
