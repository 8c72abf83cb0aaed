// Package txn runs store-native atomic attempts with bounded conflict retry.
package txn

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/postspot/user-service/internal/domain"
)

// ErrConflict is wrapped by storage backends when an attempt lost a write
// race and may be retried from scratch.
var ErrConflict = errors.New("write conflict")

// Func is one atomic attempt against the store. It must be safe to call
// again after returning an error wrapping ErrConflict.
type Func func(ctx context.Context) error

// Observer receives retry accounting.
type Observer interface {
	TxRetried(op string)
	TxExhausted(op string)
}

// Config bounds the retry loop.
type Config struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// DefaultConfig returns the values used when nothing is configured.
func DefaultConfig() Config {
	return Config{MaxAttempts: 10, BackoffBase: 5 * time.Millisecond, BackoffMax: 250 * time.Millisecond}
}

// Coordinator executes transaction attempts and retries on conflicts.
type Coordinator struct {
	cfg      Config
	logger   *zap.Logger
	observer Observer
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewCoordinator builds a coordinator. Zero config fields fall back to defaults.
func NewCoordinator(cfg Config, logger *zap.Logger, observer Observer) *Coordinator {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = def.BackoffBase
	}
	if cfg.BackoffMax < cfg.BackoffBase {
		cfg.BackoffMax = cfg.BackoffBase
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{cfg: cfg, logger: logger, observer: observer, sleep: sleepContext}
}

// Run calls fn until it commits, fails with a non-conflict error, the
// context ends, or MaxAttempts conflicts have been seen. Exhaustion is
// reported as domain.ErrTransactionConflict.
func (c *Coordinator) Run(ctx context.Context, op string, fn Func) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}

		if attempt >= c.cfg.MaxAttempts {
			if c.observer != nil {
				c.observer.TxExhausted(op)
			}
			c.logger.Warn("transaction retries exhausted",
				zap.String("op", op),
				zap.Int("attempts", attempt),
				zap.Error(err))
			return fmt.Errorf("%s after %d attempts: %w", op, attempt, domain.ErrTransactionConflict)
		}

		if c.observer != nil {
			c.observer.TxRetried(op)
		}
		delay := c.backoff(attempt)
		c.logger.Debug("transaction conflict, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay))

		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// backoff doubles from BackoffBase per attempt, capped at BackoffMax, and
// picks a random point in the upper half of that window.
func (c *Coordinator) backoff(attempt int) time.Duration {
	delay := c.cfg.BackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.cfg.BackoffMax {
			delay = c.cfg.BackoffMax
			break
		}
	}
	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
