package mailcompact

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/infodancer/mailcompact/errors"
	"github.com/infodancer/mailcompact/maildir"
)

// Compactor runs the compaction pipeline over a directory tree.
// Mailboxes, batches and files are processed strictly one at a time.
type Compactor struct {
	cfg        Config
	compressor *maildir.Compressor
	coord      *Coordinator
	logger     *slog.Logger
	progress   io.Writer
	observer   Observer
}

// Option configures a Compactor.
type Option func(*Compactor)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compactor) { c.logger = logger }
}

// WithProgress sets where one progress dot per compressed file is written.
// The default discards progress.
func WithProgress(w io.Writer) Option {
	return func(c *Compactor) { c.progress = w }
}

// WithObserver sets the receiver of progress events.
func WithObserver(o Observer) Option {
	return func(c *Compactor) { c.observer = o }
}

// New creates a Compactor that locks mailboxes through locker.
func New(cfg Config, locker Locker, opts ...Option) (*Compactor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if locker == nil {
		return nil, fmt.Errorf("%w: nil locker", errors.ErrLockerConfigInvalid)
	}
	c := &Compactor{
		cfg:      cfg,
		logger:   slog.New(slog.DiscardHandler),
		progress: io.Discard,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.progress == nil {
		c.progress = io.Discard
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	compressor, err := maildir.NewCompressor(cfg.Compress.compressOptions(), c.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrConfigInvalid, err)
	}
	c.compressor = compressor
	c.coord = NewCoordinator(locker, cfg.Lock.Lease, cfg.Lock.retryPolicy(), c.logger, c.observer)
	return c, nil
}

// Run compacts every maildir below root.
//
// Per-file compression failures, unreadable directories and partially
// replaced batches are recorded in the report and the run continues. The
// returned error is non-nil only when the run could not finish: root is not
// a directory, lock retries were exhausted, or ctx was cancelled. The
// report is returned in every case.
func (c *Compactor) Run(ctx context.Context, root string) (*Report, error) {
	report := &Report{}

	fi, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return report, fmt.Errorf("%w: %s", errors.ErrMaildirNotFound, root)
		}
		return report, err
	}
	if !fi.IsDir() {
		return report, fmt.Errorf("%w: %s is not a directory", errors.ErrInvalidPath, root)
	}

	for md, err := range maildir.Mailboxes(root) {
		if err != nil {
			c.logger.Error("scan failed", slog.Any("error", err))
			c.observer.JobFailed(StageWalk)
			report.fail(err)
			continue
		}
		if err := c.compactMailbox(ctx, md, report); err != nil {
			c.logger.Info("run stopped", slog.Any("report", report))
			return report, err
		}
	}

	c.logger.Info("run complete", slog.Any("report", report))
	return report, nil
}

// compactMailbox processes one maildir. It returns an error only for
// conditions that end the run.
func (c *Compactor) compactMailbox(ctx context.Context, md *maildir.Maildir, report *Report) error {
	report.Mailboxes++
	c.observer.MailboxScanned(md)

	// The tree may change while earlier mailboxes are compacted.
	if !md.Exists() {
		err := fmt.Errorf("%w: %s lost its cur, new or tmp directory", errors.ErrMaildirNotFound, md.Path())
		c.logger.Warn("skipping maildir", slog.String("maildir", md.Path()), slog.Any("error", err))
		c.observer.JobFailed(StageWalk)
		report.fail(err)
		return nil
	}

	candidates, walkErrs := maildir.CollectCandidates(md)
	for _, err := range walkErrs {
		c.logger.Error("scan failed", slog.String("maildir", md.Path()), slog.Any("error", err))
		c.observer.JobFailed(StageWalk)
		report.fail(err)
	}
	report.Candidates += len(candidates)
	if len(candidates) == 0 {
		return nil
	}

	for _, batch := range maildir.Batches(candidates, c.cfg.BatchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.compactBatch(ctx, md, batch, report); err != nil {
			return err
		}
	}
	return nil
}

// compactBatch compresses a batch without the lock, then replaces the
// originals under it.
func (c *Compactor) compactBatch(ctx context.Context, md *maildir.Maildir, batch []maildir.Candidate, report *Report) error {
	jobs := make([]maildir.Job, 0, len(batch))
	for _, cand := range batch {
		job, err := c.compressor.Compress(cand)
		if err != nil {
			c.logger.Error("compression failed", slog.String("path", cand.Path), slog.Any("error", err))
			c.observer.JobFailed(StageCompress)
			report.fail(err)
			continue
		}
		jobs = append(jobs, job)
		report.Compressed++
		report.BytesRead += job.Source.Size
		report.BytesWritten += job.Written
		if job.Verbatim {
			report.Verbatim++
		}
		if job.SizeMismatch {
			report.SizeMismatches++
		}
		c.observer.FileCompressed(job)
		_, _ = io.WriteString(c.progress, ".")
	}
	c.logger.Info("compressed mails", slog.Int("count", len(jobs)), slog.String("maildir", md.Path()))
	if len(jobs) == 0 {
		return nil
	}

	var res maildir.ReplaceResult
	err := c.coord.WithLock(ctx, md, func() error {
		var err error
		res, err = maildir.Replace(jobs, c.logger)
		return err
	})

	report.Replaced += res.Applied
	report.Stale += len(res.Stale)
	c.observer.FilesReplaced(res.Applied)

	var partial *maildir.PartialBatchError
	switch {
	case err == nil:
		return nil
	case stderrors.As(err, &partial):
		c.logger.Error("batch partially replaced", slog.String("maildir", md.Path()), slog.Any("error", err))
		c.observer.JobFailed(StageReplace)
		if stderrors.Is(err, errors.ErrLockRelease) {
			c.observer.JobFailed(StageLock)
		}
		report.fail(err)
		return nil
	case stderrors.Is(err, errors.ErrLockExhausted):
		c.observer.JobFailed(StageLock)
		c.discard(jobs)
		report.fail(err)
		return err
	case ctx.Err() != nil:
		c.discard(jobs)
		return err
	default:
		// Release failed after a successful replace.
		c.observer.JobFailed(StageLock)
		report.fail(err)
		return nil
	}
}

// discard removes staged files of a batch that will never be replaced.
func (c *Compactor) discard(jobs []maildir.Job) {
	for _, job := range jobs {
		if err := os.Remove(job.Staged); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("could not remove staged file", slog.String("path", job.Staged), slog.Any("error", err))
		}
	}
}
