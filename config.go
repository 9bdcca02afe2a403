package mailcompact

import (
	"compress/gzip"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/infodancer/mailcompact/errors"
	"github.com/infodancer/mailcompact/maildir"
)

// Default settings.
const (
	DefaultBatchSize   = 100
	DefaultLockBackend = "maildirlock"
	DefaultLockCommand = "/usr/libexec/dovecot/maildirlock"
	DefaultLockLease   = 30 * time.Second
	DefaultRetryDelay  = 500 * time.Millisecond
)

// Config holds the compactor settings. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	// BatchSize is the number of messages replaced per lock hold.
	BatchSize int `yaml:"batch_size"`

	Lock     LockConfig     `yaml:"lock"`
	Compress CompressConfig `yaml:"compress"`
}

// LockConfig selects and tunes the lock backend.
type LockConfig struct {
	// Backend is the registered locker name (e.g., "maildirlock", "flock").
	Backend string `yaml:"backend"`

	// Command is the lock helper executable for process-based backends.
	Command string `yaml:"command"`

	// Lease is the advisory maximum hold time passed to the lock service.
	Lease time.Duration `yaml:"lease"`

	// RetryDelay is the pause between acquisition attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// MaxAttempts bounds acquisition attempts per batch. 0 means no limit.
	MaxAttempts int `yaml:"max_attempts"`

	// MaxWait bounds the time spent retrying per batch. 0 means no limit.
	MaxWait time.Duration `yaml:"max_wait"`

	// Options contains backend-specific settings.
	Options map[string]string `yaml:"options"`
}

// CompressConfig mirrors maildir.CompressOptions.
type CompressConfig struct {
	Level            int  `yaml:"level"`
	DetectCompressed bool `yaml:"detect_compressed"`
	CloneMetadata    bool `yaml:"clone_metadata"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
// With MaxAttempts and MaxWait at zero, lock acquisition retries forever.
func DefaultConfig() Config {
	return Config{
		BatchSize: DefaultBatchSize,
		Lock: LockConfig{
			Backend:    DefaultLockBackend,
			Command:    DefaultLockCommand,
			Lease:      DefaultLockLease,
			RetryDelay: DefaultRetryDelay,
		},
		Compress: CompressConfig{
			Level:            gzip.DefaultCompression,
			DetectCompressed: true,
			CloneMetadata:    true,
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse %s: %v", errors.ErrConfigInvalid, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the compactor cannot use.
func (c Config) Validate() error {
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch_size must be positive, got %d", errors.ErrConfigInvalid, c.BatchSize)
	case c.Lock.Backend == "":
		return fmt.Errorf("%w: lock.backend is empty", errors.ErrConfigInvalid)
	case c.Lock.Lease <= 0:
		return fmt.Errorf("%w: lock.lease must be positive, got %s", errors.ErrConfigInvalid, c.Lock.Lease)
	case c.Lock.RetryDelay < 0:
		return fmt.Errorf("%w: lock.retry_delay is negative", errors.ErrConfigInvalid)
	case c.Lock.MaxAttempts < 0:
		return fmt.Errorf("%w: lock.max_attempts is negative", errors.ErrConfigInvalid)
	case c.Lock.MaxWait < 0:
		return fmt.Errorf("%w: lock.max_wait is negative", errors.ErrConfigInvalid)
	case c.Compress.Level < gzip.HuffmanOnly || c.Compress.Level > gzip.BestCompression:
		return fmt.Errorf("%w: compress.level %d out of range", errors.ErrConfigInvalid, c.Compress.Level)
	}
	return nil
}

// compressOptions converts the compress section for the maildir package.
func (c CompressConfig) compressOptions() maildir.CompressOptions {
	return maildir.CompressOptions{
		Level:            c.Level,
		DetectCompressed: c.DetectCompressed,
		CloneMetadata:    c.CloneMetadata,
	}
}

// retryPolicy extracts the acquisition retry settings.
func (c LockConfig) retryPolicy() RetryPolicy {
	return RetryPolicy{
		Delay:       c.RetryDelay,
		MaxAttempts: c.MaxAttempts,
		MaxWait:     c.MaxWait,
	}
}
