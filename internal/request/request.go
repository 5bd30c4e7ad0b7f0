// Package request is the resilient outbound-call layer: per-endpoint
// minimum-interval throttling, bounded exponential-backoff retry and a
// circuit breaker per endpoint. It knows nothing about trading; every
// outbound call (market data, account, orders, notifications) goes
// through a Client.
package request

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"mako/internal/logger"
	"mako/internal/pkg/circuit"
)

// ErrCircuitOpen is returned without issuing the call when the endpoint's
// breaker is open.
var ErrCircuitOpen = errors.New("request: circuit open")

// Error is the terminal failure after all attempts were exhausted.
type Error struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("request %s failed after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type Config struct {
	// DefaultInterval applies to endpoints with no explicit entry.
	DefaultInterval time.Duration
	Intervals       map[string]time.Duration

	MaxAttempts    int
	InitialBackoff time.Duration
	AttemptTimeout time.Duration

	BreakerThreshold int
	BreakerCooldown  time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultInterval <= 0 {
		c.DefaultInterval = 500 * time.Millisecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 15 * time.Second
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	return c
}

// Retryable decides whether an attempt error is worth retrying. The zero
// value (nil) retries everything.
type Retryable func(error) bool

// Client throttles and retries calls per endpoint key.
type Client struct {
	cfg       Config
	retryable Retryable
	sleep     func(context.Context, time.Duration) error

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	breakers map[string]*circuit.Breaker
}

type Option func(*Client)

// WithRetryable installs a custom retry classifier.
func WithRetryable(fn Retryable) Option {
	return func(c *Client) { c.retryable = fn }
}

func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:      cfg.withDefaults(),
		limiters: make(map[string]*rate.Limiter),
		breakers: make(map[string]*circuit.Breaker),
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do runs call under the endpoint's throttle, retry and breaker policy.
// Each attempt carries its own timeout and consumes a throttle token, so a
// hammering caller is always paced. The wait happens on the caller's
// goroutine only; no shared lock is held while sleeping.
func (c *Client) Do(ctx context.Context, endpoint string, call func(context.Context) error) error {
	limiter := c.limiter(endpoint)
	breaker := c.breaker(endpoint)

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return &Error{Endpoint: endpoint, Attempts: attempts, Err: err}
		}
		if !breaker.Allow() {
			return &Error{Endpoint: endpoint, Attempts: attempts, Err: ErrCircuitOpen}
		}

		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		err := call(attemptCtx)
		cancel()
		if err == nil {
			breaker.RecordSuccess()
			return nil
		}
		breaker.RecordFailure()
		lastErr = err

		if c.retryable != nil && !c.retryable(err) {
			logger.Debugf("request %s: non-retryable error: %v", endpoint, err)
			break
		}
		if attempt < c.cfg.MaxAttempts {
			backoff := c.cfg.InitialBackoff << (attempt - 1)
			logger.Warnf("request %s: attempt %d/%d failed (%v), retrying in %s",
				endpoint, attempt, c.cfg.MaxAttempts, err, backoff)
			if err := c.sleep(ctx, backoff); err != nil {
				return &Error{Endpoint: endpoint, Attempts: attempts, Err: err}
			}
		}
	}
	return &Error{Endpoint: endpoint, Attempts: attempts, Err: lastErr}
}

func (c *Client) limiter(endpoint string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lim, ok := c.limiters[endpoint]; ok {
		return lim
	}
	interval := c.cfg.DefaultInterval
	if v, ok := c.cfg.Intervals[endpoint]; ok && v > 0 {
		interval = v
	}
	lim := rate.NewLimiter(rate.Every(interval), 1)
	c.limiters[endpoint] = lim
	return lim
}

func (c *Client) breaker(endpoint string) *circuit.Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.breakers[endpoint]; ok {
		return b
	}
	b := circuit.NewBreaker(endpoint, c.cfg.BreakerThreshold, c.cfg.BreakerCooldown)
	c.breakers[endpoint] = b
	return b
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
