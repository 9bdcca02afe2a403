package mailcompact

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"

	"github.com/infodancer/mailcompact/errors"
	"github.com/infodancer/mailcompact/maildir"
)

// RetryPolicy controls how often a Coordinator asks the Locker for a lock.
// Attempts are spaced Delay apart. Zero MaxAttempts and MaxWait retry
// without limit, which blocks forever if the lock service never succeeds.
type RetryPolicy struct {
	Delay       time.Duration
	MaxAttempts int
	MaxWait     time.Duration
}

// backOff builds a fresh backoff schedule for one acquisition.
func (p RetryPolicy) backOff() backoff.BackOff {
	// A non-growing exponential schedule is a constant delay that also
	// honours MaxElapsedTime.
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.Delay
	eb.MaxInterval = p.Delay
	eb.Multiplier = 1
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = p.MaxWait

	var b backoff.BackOff = eb
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	return b
}

// Coordinator pairs every lock acquisition with exactly one release.
type Coordinator struct {
	locker   Locker
	lease    time.Duration
	policy   RetryPolicy
	logger   *slog.Logger
	observer Observer
}

// NewCoordinator wraps locker with the retry policy. A nil logger discards
// output and a nil observer records nothing.
func NewCoordinator(locker Locker, lease time.Duration, policy RetryPolicy, logger *slog.Logger, observer Observer) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Coordinator{
		locker:   locker,
		lease:    lease,
		policy:   policy,
		logger:   logger,
		observer: observer,
	}
}

// Acquire locks md's cur/ directory, retrying per the policy. It returns
// errors.ErrLockExhausted when the policy gives up and ctx.Err() when ctx
// ends first.
func (c *Coordinator) Acquire(ctx context.Context, md *maildir.Maildir) (Token, error) {
	scope := md.CurDir()
	start := time.Now()
	attempts := 0

	var token Token
	op := func() error {
		attempts++
		t, err := c.locker.Acquire(ctx, scope, c.lease)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		token = t
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("lock not acquired, retrying",
			slog.String("scope", scope),
			slog.Int("attempt", attempts),
			slog.Duration("wait", wait),
			slog.Any("error", err))
	}

	err := backoff.RetryNotify(op, backoff.WithContext(c.policy.backOff(), ctx), notify)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s after %d attempts: %w", errors.ErrLockExhausted, scope, attempts, err)
	}

	c.observer.LockAcquired(time.Since(start))
	c.logger.Info("lock acquired", slog.String("scope", scope), slog.String("holder", token.Holder()))
	return token, nil
}

// Release releases token. Failures are logged and returned; the holder is
// not waited for.
func (c *Coordinator) Release(token Token) error {
	c.logger.Info("releasing lock", slog.String("scope", token.Scope()), slog.String("holder", token.Holder()))
	if err := token.Release(); err != nil {
		c.logger.Error("lock release failed", slog.String("scope", token.Scope()), slog.Any("error", err))
		return fmt.Errorf("%w: %s: %w", errors.ErrLockRelease, token.Scope(), err)
	}
	return nil
}

// WithLock runs fn while holding md's lock. The lock is released exactly
// once after fn returns, even if fn fails or panics. When both fn and the
// release fail, the returned error carries both.
func (c *Coordinator) WithLock(ctx context.Context, md *maildir.Maildir, fn func() error) (err error) {
	token, err := c.Acquire(ctx, md)
	if err != nil {
		return err
	}
	defer func() {
		relErr := c.Release(token)
		switch {
		case relErr == nil:
		case err == nil:
			err = relErr
		default:
			err = multierror.Append(err, relErr)
		}
	}()
	return fn()
}
