package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

// Attempt outcomes reported to an AttemptObserver.
const (
	OutcomeSuccess     = "success"
	OutcomeRetry       = "retry"
	OutcomeRateLimited = "rate_limited"
	OutcomeExhausted   = "exhausted"
	OutcomeCancelled   = "cancelled"
)

type AttemptObserver interface {
	ObserveAttempt(operation, outcome string)
}

type Option func(*Executor)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithObserver(observer AttemptObserver) Option {
	return func(e *Executor) {
		e.observer = observer
	}
}

// WithSleep replaces the backoff wait. The function must return early with an
// error when ctx is done.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(e *Executor) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// WithJitter replaces the random source; fn returns a value in [0, 1).
func WithJitter(fn func() float64) Option {
	return func(e *Executor) {
		if fn != nil {
			e.jitter = fn
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// Executor runs an operation with bounded retries, exponential backoff with
// jitter, rate-limit aware waits and an optional circuit breaker.
type Executor struct {
	cfg      Config
	logger   *slog.Logger
	observer AttemptObserver
	limiter  *rate.Limiter
	sleep    func(context.Context, time.Duration) error
	jitter   func() float64
	now      func() time.Time

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewExecutor(cfg Config, opts ...Option) *Executor {
	e := &Executor{
		cfg:      cfg.normalize(),
		logger:   slog.Default(),
		sleep:    sleepContext,
		jitter:   rand.Float64,
		now:      time.Now,
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
	if e.cfg.RequestsPerMinute > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(e.cfg.RequestsPerMinute/60.0), 1)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute calls fn until it succeeds, the retry budget is spent or ctx is
// cancelled. Exhaustion returns *domain.InvocationError; cancellation returns
// an error matching domain.ErrCancelled.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}

	if !e.cfg.BreakerEnabled {
		return e.executeWithRetry(ctx, op, fn)
	}

	breaker := e.circuitBreaker(op)
	_, err := breaker.Execute(func() (any, error) {
		return nil, e.executeWithRetry(ctx, op, fn)
	})
	if IsCircuitOpen(err) {
		e.observe(op, OutcomeExhausted)
		return &domain.InvocationError{Attempts: 0, Err: err}
	}
	return err
}

func (e *Executor) executeWithRetry(ctx context.Context, operation string, fn func(context.Context) error) error {
	maxAttempts := e.cfg.Retries + 1

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			e.observe(operation, OutcomeCancelled)
			return domain.WrapError(domain.ErrCancelled, operation, err)
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				e.observe(operation, OutcomeCancelled)
				return domain.WrapError(domain.ErrCancelled, operation, err)
			}
		}

		e.logger.Debug("attempt_start", "operation", operation, "attempt", attempt, "max_attempts", maxAttempts)
		err := fn(ctx)
		if err == nil {
			e.observe(operation, OutcomeSuccess)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			e.observe(operation, OutcomeCancelled)
			return domain.WrapError(domain.ErrCancelled, operation, err)
		}

		if attempt >= maxAttempts {
			e.observe(operation, OutcomeExhausted)
			e.logger.Error("retry_exhausted",
				"operation", operation,
				"attempts", attempt,
				"error", err,
			)
			return &domain.InvocationError{Attempts: attempt, Err: err}
		}

		info := ClassifyRateLimit(err, e.now())
		wait := e.backoff(attempt, info)
		outcome := OutcomeRetry
		if info.Limited {
			outcome = OutcomeRateLimited
		}
		e.observe(operation, outcome)
		e.logger.Warn("retry_attempt",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"rate_limited", info.Limited,
			"backoff_ms", float64(wait.Microseconds())/1000.0,
			"error", err,
		)

		if err := e.sleep(ctx, wait); err != nil {
			e.observe(operation, OutcomeCancelled)
			return domain.WrapError(domain.ErrCancelled, operation, err)
		}
	}
}

// backoff returns the wait before the attempt following the given one.
func (e *Executor) backoff(attempt int, info RateLimitInfo) time.Duration {
	switch {
	case info.Limited && info.HasRetryAfter:
		return info.RetryAfter + e.jitterFor(info.RetryAfter)
	case info.Limited:
		return exponential(e.cfg.RateLimitBackoffFactor, e.cfg.RateLimitMaxBackoff, attempt)
	default:
		base := exponential(e.cfg.BackoffFactor, e.cfg.MaxBackoff, attempt)
		return base + e.jitterFor(base)
	}
}

func (e *Executor) jitterFor(d time.Duration) time.Duration {
	return time.Duration(e.jitter() * 0.1 * float64(d))
}

func (e *Executor) observe(operation, outcome string) {
	if e.observer != nil {
		e.observer.ObserveAttempt(operation, outcome)
	}
}

// exponential is min(max, factor * 2^(attempt-1)).
func exponential(factor, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	wait := float64(factor) * math.Pow(2, float64(attempt-1))
	if wait > float64(max) {
		return max
	}
	return time.Duration(wait)
}

func sleepContext(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Executor) circuitBreaker(operation string) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, ok := e.breakers[operation]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= e.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrCancelled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			e.logger.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	}

	breaker := gobreaker.NewCircuitBreaker[any](settings)
	e.breakers[operation] = breaker
	return breaker
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
