package translate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/minios-linux/awslate/apperr"
	"github.com/minios-linux/awslate/jsontree"
)

// ---------------------------------------------------------------------------
// Service errors
// ---------------------------------------------------------------------------

// ServiceError classifies a failed service call.
type ServiceError struct {
	// Code is the service's error code, e.g. "TooManyRequestsException".
	Code string
	// Retryable marks transient failures (transport, 5xx).
	Retryable bool
	// Throttled marks rate-limit rejections. Throttled errors are always
	// retried and pause every worker for the backoff interval.
	Throttled bool
	// RetryAfter is a server-provided minimum delay, if any.
	RetryAfter time.Duration
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Err.Error()
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Permanent marks err as not worth retrying (bad request, unsupported
// language pair).
func Permanent(code string, err error) error {
	return &ServiceError{Code: code, Err: err}
}

// Transient marks err as retryable.
func Transient(code string, err error) error {
	return &ServiceError{Code: code, Retryable: true, Err: err}
}

// Throttled marks err as a rate-limit rejection.
func Throttled(code string, err error, retryAfter time.Duration) error {
	return &ServiceError{Code: code, Retryable: true, Throttled: true, RetryAfter: retryAfter, Err: err}
}

// classify reports whether err should be retried and whether it is a
// rate-limit rejection. Unclassified errors are assumed transient.
func classify(err error) (retry, throttled bool, after time.Duration) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Retryable || se.Throttled, se.Throttled, se.RetryAfter
	}
	return true, false, 0
}

// ---------------------------------------------------------------------------
// Rate limit state (global pause for parallel workers)
// ---------------------------------------------------------------------------

type rateLimitState struct {
	mu       sync.Mutex
	paused   int32 // atomic: 1 = paused
	pauseEnd time.Time
}

func (r *rateLimitState) isPaused() bool {
	return atomic.LoadInt32(&r.paused) == 1
}

// pause stops all workers for at least duration. A shorter pause never
// cuts a longer one short.
func (r *rateLimitState) pause(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	end := time.Now().Add(duration)
	if end.After(r.pauseEnd) {
		r.pauseEnd = end
	}
	atomic.StoreInt32(&r.paused, 1)
}

// remaining reports how long the pause still has to run. An expired pause
// is cleared under the same lock that pause takes, so a pause started
// concurrently is never lost.
func (r *rateLimitState) remaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	left := time.Until(r.pauseEnd)
	if left <= 0 {
		atomic.StoreInt32(&r.paused, 0)
	}
	return left
}

// waitIfPaused blocks until the rate limit pause is over.
func (r *rateLimitState) waitIfPaused(ctx context.Context) error {
	for r.isPaused() {
		remaining := r.remaining()
		if remaining <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(min(remaining, 100*time.Millisecond)):
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Per-leaf retry loop
// ---------------------------------------------------------------------------

// translateLeaf calls the service until it succeeds, the error is not
// retryable, or the retry budget is spent.
func (d *dispatcher) translateLeaf(ctx context.Context, job Job, path jsontree.Path) LeafResult {
	res := LeafResult{Path: path, Source: job.Text}
	maxAttempts := d.opts.effectiveMaxRetries() + 1

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := d.rl.waitIfPaused(ctx); err != nil {
			res.Err = err
			return res
		}

		res.Attempts = attempt
		text, err := d.call(ctx, job)
		if err == nil {
			res.Text = text
			return res
		}
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			return res
		}
		lastErr = err

		retry, throttled, after := classify(err)
		if !retry || attempt >= maxAttempts {
			break
		}

		delay := max(d.opts.backoff(attempt), after)
		if throttled {
			d.rl.pause(delay)
		}
		if d.opts.Verbose {
			d.opts.log("  [%s] %s: attempt %d/%d failed: %v (retrying in %s)", job.Target, path, attempt, maxAttempts, err, delay)
		}

		select {
		case <-ctx.Done():
			res.Err = ctx.Err()
			return res
		case <-time.After(delay):
		}
	}

	res.Err = apperr.Service(fmt.Sprintf("translation failed after %d attempt(s)", res.Attempts), lastErr).
		WithLang(job.Target).
		WithPath(path.String())
	return res
}
