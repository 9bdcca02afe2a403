package maildir

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	mcerrors "github.com/infodancer/mailcompact/errors"
)

// PartialBatchError reports a batch that stopped part-way through
// replacement. Jobs before Failed were applied and are not rolled back;
// jobs from Failed onwards were abandoned and their staged files remain in
// tmp/.
type PartialBatchError struct {
	Applied   int
	Failed    Job
	Abandoned []Job
	Err       error
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("replace %s: %v (%d applied, %d abandoned)",
		e.Failed.Original, e.Err, e.Applied, len(e.Abandoned))
}

func (e *PartialBatchError) Unwrap() error {
	return e.Err
}

// ReplaceResult summarises one call to Replace.
type ReplaceResult struct {
	// Applied is the number of originals replaced by their compressed copies.
	Applied int

	// Stale lists jobs whose original changed after compression. Their staged
	// files were discarded and the originals left alone.
	Stale []Job
}

// Replace publishes staged files over their originals. The caller must hold
// the mailbox lock for the whole call.
//
// For each job the staged file is renamed into the original's directory and
// only then is the original removed. A job whose original vanished or was
// rewritten since compression is skipped. The first move or remove failure
// stops the batch and is returned as a *PartialBatchError; there is no
// rollback.
func Replace(jobs []Job, logger *slog.Logger) (ReplaceResult, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var res ReplaceResult
	for i, job := range jobs {
		if err := checkFresh(job); err != nil {
			logger.Warn("skipping stale job", slog.String("path", job.Original), slog.Any("error", err))
			_ = os.Remove(job.Staged)
			res.Stale = append(res.Stale, job)
			continue
		}

		dest := filepath.Join(filepath.Dir(job.Original), filepath.Base(job.Staged))
		logger.Info("moving", slog.String("from", job.Staged), slog.String("to", dest))
		if err := move(job.Staged, dest, job.CloneMetadata); err != nil {
			return res, &PartialBatchError{Applied: res.Applied, Failed: job, Abandoned: jobs[i:], Err: err}
		}

		logger.Info("removing", slog.String("path", job.Original))
		if err := os.Remove(job.Original); err != nil {
			return res, &PartialBatchError{Applied: res.Applied, Failed: job, Abandoned: jobs[i+1:], Err: err}
		}
		res.Applied++
	}
	return res, nil
}

// checkFresh returns ErrStaleJob if the original is gone or no longer
// matches the sample taken before compression.
func checkFresh(job Job) error {
	now, err := StatMetadata(job.Original)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s vanished", mcerrors.ErrStaleJob, job.Original)
	}
	if err != nil {
		return err
	}
	if !job.Source.sameContent(now) {
		return fmt.Errorf("%w: %s modified", mcerrors.ErrStaleJob, job.Original)
	}
	return nil
}

// rename is os.Rename, replaceable in tests.
var rename = os.Rename

// move renames src to dst. When they live on different filesystems the
// data is copied to a hidden name next to dst, given src's timestamps (and
// owner and mode if ownership is set), and renamed into place so dst never
// appears half-written.
func move(src, dst string, ownership bool) error {
	err := rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	meta, err := StatMetadata(src)
	if err != nil {
		return err
	}

	part := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".part")
	if err := copyFile(src, part); err != nil {
		_ = os.Remove(part)
		return err
	}
	if err := applyMetadata(part, meta, ownership); err != nil {
		_ = os.Remove(part)
		return err
	}
	if err := rename(part, dst); err != nil {
		_ = os.Remove(part)
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if err == nil {
		err = out.Sync()
	}
	if closeErr := out.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
