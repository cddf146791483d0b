// Package translate dispatches per-leaf machine translation requests.
//
// Every string leaf of a locale file is sent to a Service once per target
// language. Languages run concurrently with each other and leaves within
// a language run concurrently too, but the number of calls in flight is
// bounded by a single semaphore shared by all languages. Failures are
// retried with exponential backoff and then recorded on the leaf; they
// never abort sibling leaves or other languages.
package translate

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/minios-linux/awslate/jsontree"
)

// ---------------------------------------------------------------------------
// Service interfaces
// ---------------------------------------------------------------------------

// Service translates one piece of text. Implementations must be safe for
// concurrent use. Errors may be wrapped in *ServiceError to control
// retries; any other error is treated as a retryable transport failure.
type Service interface {
	TranslateText(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Job is one request sent to a Service.
type Job struct {
	Source string
	Target string
	Text   string
}

// LeafResult is the terminal outcome of translating one leaf into one
// language.
type LeafResult struct {
	Path   jsontree.Path
	Source string // original text
	Text   string // translated text; empty when Err is set
	Err    error
	// Attempts is the number of service calls made (0 for skipped leaves).
	Attempts int
	// Skipped is set for empty or whitespace-only text, which is passed
	// through without calling the service.
	Skipped bool
}

// LeafPath implements jsontree.Replacement.
func (r LeafResult) LeafPath() jsontree.Path { return r.Path }

// Translated implements jsontree.Replacement.
func (r LeafResult) Translated() (string, bool) {
	if r.Err != nil {
		return "", false
	}
	return r.Text, true
}

// Failed reports whether the leaf ended without a translation.
func (r LeafResult) Failed() bool { return r.Err != nil }

// ---------------------------------------------------------------------------
// Translation options
// ---------------------------------------------------------------------------

// Options controls dispatch behavior. It is passed by value and never
// modified by the dispatcher.
type Options struct {
	// MaxConcurrent is the maximum number of service calls in flight
	// across all languages. Default: 5.
	MaxConcurrent int
	// MaxRetries is the number of retries after the first failed attempt.
	// Zero or negative disables retries.
	MaxRetries int
	// RetryDelay is the backoff before the first retry; it doubles on
	// every following retry. Default: 1s.
	RetryDelay time.Duration
	// MaxRetryDelay caps the backoff. Default: 30s.
	MaxRetryDelay time.Duration
	// Timeout is the per-request timeout (0 = none).
	Timeout time.Duration
	// OnProgress is called after each leaf reaches a terminal outcome.
	// It may be called from several goroutines at once.
	OnProgress func(lang string, done, total int)
	// OnLog emits log messages during translation.
	OnLog func(format string, args ...any)
	// Verbose enables per-attempt retry logging.
	Verbose bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) effectiveMaxConcurrent() int {
	if o.MaxConcurrent > 0 {
		return o.MaxConcurrent
	}
	return 5
}

func (o *Options) effectiveMaxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return 0
}

func (o *Options) effectiveRetryDelay() time.Duration {
	if o.RetryDelay > 0 {
		return o.RetryDelay
	}
	return time.Second
}

func (o *Options) effectiveMaxRetryDelay() time.Duration {
	if o.MaxRetryDelay > 0 {
		return o.MaxRetryDelay
	}
	return 30 * time.Second
}

// backoff returns the delay before retry number n (1-based).
func (o *Options) backoff(n int) time.Duration {
	d := o.effectiveRetryDelay()
	limit := o.effectiveMaxRetryDelay()
	for i := 1; i < n && d < limit; i++ {
		d *= 2
	}
	return min(d, limit)
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

// Translate translates every leaf into every target language and returns
// one result slice per language, in the same order as leaves. It returns
// only after every leaf of every language has a terminal outcome.
//
// Duplicate target languages are translated once. If ctx is cancelled,
// in-flight calls are abandoned, leaves not yet started are marked with
// ctx.Err(), and ctx.Err() is returned along with the partial results.
func Translate(ctx context.Context, leaves []jsontree.Leaf, sourceLang string, targetLangs []string, svc Service, opts Options) (map[string][]LeafResult, error) {
	d := &dispatcher{
		svc:  svc,
		opts: opts,
		sem:  make(chan struct{}, opts.effectiveMaxConcurrent()),
		rl:   &rateLimitState{},
	}

	results := make(map[string][]LeafResult, len(targetLangs))
	var langs []string
	for _, lang := range targetLangs {
		if _, dup := results[lang]; dup {
			continue
		}
		results[lang] = make([]LeafResult, len(leaves))
		langs = append(langs, lang)
	}

	var wg sync.WaitGroup
	for _, lang := range langs {
		wg.Add(1)
		go func(lang string, out []LeafResult) {
			defer wg.Done()
			d.translateLanguage(ctx, sourceLang, lang, leaves, out)
		}(lang, results[lang])
	}
	wg.Wait()

	return results, ctx.Err()
}

type dispatcher struct {
	svc  Service
	opts Options
	sem  chan struct{}
	rl   *rateLimitState
}

// translateLanguage fills out[i] with the outcome for leaves[i].
func (d *dispatcher) translateLanguage(ctx context.Context, source, target string, leaves []jsontree.Leaf, out []LeafResult) {
	total := len(leaves)
	var done int64
	progress := func() {
		n := atomic.AddInt64(&done, 1)
		if d.opts.OnProgress != nil {
			d.opts.OnProgress(target, int(n), total)
		}
	}

	var wg sync.WaitGroup
	for i, leaf := range leaves {
		if strings.TrimSpace(leaf.Text) == "" {
			out[i] = LeafResult{Path: leaf.Path, Source: leaf.Text, Text: leaf.Text, Skipped: true}
			progress()
			continue
		}

		if !d.acquire(ctx) {
			for j := i; j < len(leaves); j++ {
				out[j] = LeafResult{Path: leaves[j].Path, Source: leaves[j].Text, Err: ctx.Err()}
			}
			break
		}

		wg.Add(1)
		go func(i int, leaf jsontree.Leaf) {
			defer func() {
				d.release()
				wg.Done()
			}()
			out[i] = d.translateLeaf(ctx, Job{Source: source, Target: target, Text: leaf.Text}, leaf.Path)
			progress()
		}(i, leaf)
	}
	wg.Wait()
}

func (d *dispatcher) acquire(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case d.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (d *dispatcher) release() { <-d.sem }

// call issues a single request, bounded by the per-request timeout.
func (d *dispatcher) call(ctx context.Context, job Job) (string, error) {
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}
	return d.svc.TranslateText(ctx, job.Text, job.Source, job.Target)
}
