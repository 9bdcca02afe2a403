package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/infodancer/mailcompact"
	_ "github.com/infodancer/mailcompact/flocklock"
	_ "github.com/infodancer/mailcompact/maildirlock"
	"github.com/infodancer/mailcompact/metrics"
)

type options struct {
	dir         string
	configPath  string
	batchSize   int
	lockBackend string
	lockCommand string
	maxAttempts int
	maxWait     time.Duration
	logLevel    string
	logFormat   string
	metricsFile string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "mailcompact --dir <path>",
		Short: "Compress Maildir messages in place",
		Long: `mailcompact walks a directory tree, finds every maildir (a directory with
cur/, new/ and tmp/), and gzip-compresses the messages in cur/ that do not
yet carry the Z flag. Compressed copies are staged in tmp/ with the
original's owner, mode and timestamps, then moved over the originals while
the mailbox is locked with Dovecot's maildirlock helper.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, stdout, stderr)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.dir, "dir", "", "directory to start searching")
	f.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	f.IntVar(&opts.batchSize, "batch-size", mailcompact.DefaultBatchSize, "messages replaced per lock hold")
	f.StringVar(&opts.lockBackend, "lock-backend", mailcompact.DefaultLockBackend, "lock backend (maildirlock, flock)")
	f.StringVar(&opts.lockCommand, "lock-command", mailcompact.DefaultLockCommand, "maildirlock helper executable")
	f.IntVar(&opts.maxAttempts, "lock-max-attempts", 0, "give up after this many lock attempts per batch (0: never)")
	f.DurationVar(&opts.maxWait, "lock-max-wait", 0, "give up after waiting this long for a lock (0: never)")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	f.StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus textfile metrics here after the run")
	_ = cmd.MarkFlagRequired("dir")

	return cmd
}

func execute() error {
	err := newRootCmd(os.Stdout, os.Stderr).Execute()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "mailcompact:", err)
	}
	return err
}

// loadConfig merges the config file, if any, with flags the user set.
func loadConfig(cmd *cobra.Command, opts options) (mailcompact.Config, error) {
	cfg := mailcompact.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = mailcompact.LoadConfig(opts.configPath); err != nil {
			return cfg, err
		}
	}

	f := cmd.Flags()
	if f.Changed("batch-size") {
		cfg.BatchSize = opts.batchSize
	}
	if f.Changed("lock-backend") {
		cfg.Lock.Backend = opts.lockBackend
	}
	if f.Changed("lock-command") {
		cfg.Lock.Command = opts.lockCommand
	}
	if f.Changed("lock-max-attempts") {
		cfg.Lock.MaxAttempts = opts.maxAttempts
	}
	if f.Changed("lock-max-wait") {
		cfg.Lock.MaxWait = opts.maxWait
	}
	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, opts options, stdout, stderr io.Writer) error {
	logger, err := newLogger(stderr, opts.logLevel, opts.logFormat)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	locker, err := mailcompact.OpenLocker(cfg.Lock)
	if err != nil {
		return fmt.Errorf("lock backend %q: %w", cfg.Lock.Backend, err)
	}

	recorder := metrics.NewRecorder()
	compactor, err := mailcompact.New(cfg, locker,
		mailcompact.WithLogger(logger),
		mailcompact.WithProgress(stdout),
		mailcompact.WithObserver(recorder),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := compactor.Run(ctx, opts.dir)
	if report.Compressed > 0 {
		_, _ = fmt.Fprintln(stdout)
	}
	if failures := report.Err(); failures != nil {
		logger.Warn("run finished with failures", slog.Int("count", report.Failures))
	}

	if opts.metricsFile != "" {
		if err := recorder.WriteTextfile(opts.metricsFile, time.Now()); err != nil {
			logger.Error("could not write metrics", slog.String("path", opts.metricsFile), slog.Any("error", err))
		}
	}
	return runErr
}
