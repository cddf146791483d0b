package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minios-linux/awslate/apperr"
	"github.com/minios-linux/awslate/jsontree"
	"github.com/minios-linux/awslate/langmeta"
)

// stubService records calls and tracks how many run at once.
type stubService struct {
	fn    func(text, source, target string, attempt int) (string, error)
	delay time.Duration

	mu    sync.Mutex
	calls map[string]int

	inFlight    int64
	maxInFlight int64
	total       int64
}

func newStub(fn func(text, source, target string, attempt int) (string, error)) *stubService {
	return &stubService{fn: fn, calls: make(map[string]int)}
}

func (s *stubService) TranslateText(ctx context.Context, text, source, target string) (string, error) {
	n := atomic.AddInt64(&s.inFlight, 1)
	defer atomic.AddInt64(&s.inFlight, -1)
	atomic.AddInt64(&s.total, 1)
	for {
		m := atomic.LoadInt64(&s.maxInFlight)
		if n <= m || atomic.CompareAndSwapInt64(&s.maxInFlight, m, n) {
			break
		}
	}

	s.mu.Lock()
	key := target + "|" + text
	s.calls[key]++
	attempt := s.calls[key]
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.fn(text, source, target, attempt)
}

func (s *stubService) callsFor(target, text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[target+"|"+text]
}

func dictionary(dict map[string]map[string]string) func(text, source, target string, attempt int) (string, error) {
	return func(text, source, target string, attempt int) (string, error) {
		if out, ok := dict[target][text]; ok {
			return out, nil
		}
		return "[" + target + "] " + text, nil
	}
}

func leavesOf(t *testing.T, src string) (jsontree.Value, []jsontree.Leaf) {
	t.Helper()
	root, err := jsontree.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return root, jsontree.Walk(root)
}

var fastRetry = Options{MaxConcurrent: 4, MaxRetries: 3, RetryDelay: time.Millisecond, MaxRetryDelay: 4 * time.Millisecond}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

func TestTranslate_ConcreteScenario(t *testing.T) {
	root, leaves := leavesOf(t, `{"greeting": "Hello", "count": 3, "nested": {"farewell": "Bye"}}`)
	svc := newStub(dictionary(map[string]map[string]string{
		"fr": {"Hello": "Bonjour", "Bye": "Au revoir"},
	}))

	results, err := Translate(context.Background(), leaves, "en", []string{"fr"}, svc, fastRetry)
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}

	out, err := jsontree.Rebuild(root, results["fr"])
	if err != nil {
		t.Fatalf("Rebuild error: %v", err)
	}
	got := string(jsontree.Marshal(out, ""))
	want := `{"greeting":"Bonjour","count":3,"nested":{"farewell":"Au revoir"}}`
	if got != want {
		t.Fatalf("output = %s, want %s", got, want)
	}
}

func TestTranslate_ResultsFollowLeafOrder(t *testing.T) {
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < 50; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `"s%d"`, i)
	}
	b.WriteString("]")
	_, leaves := leavesOf(t, b.String())

	svc := newStub(func(text, source, target string, attempt int) (string, error) {
		// Later leaves finish first.
		var n int
		fmt.Sscanf(text, "s%d", &n)
		time.Sleep(time.Duration(50-n) * 100 * time.Microsecond)
		return strings.ToUpper(text), nil
	})

	results, err := Translate(context.Background(), leaves, "en", []string{"de", "es"}, svc, Options{MaxConcurrent: 16})
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	for _, lang := range []string{"de", "es"} {
		for i, r := range results[lang] {
			if !r.Path.Equal(leaves[i].Path) || r.Text != fmt.Sprintf("S%d", i) {
				t.Fatalf("%s result %d = %s %q, want %s S%d", lang, i, r.Path, r.Text, leaves[i].Path, i)
			}
		}
	}
}

func TestTranslate_EmptyLeavesSkipService(t *testing.T) {
	_, leaves := leavesOf(t, `{"a": "", "b": "   ", "c": "\n\t", "d": "Hi"}`)
	svc := newStub(dictionary(nil))

	results, err := Translate(context.Background(), leaves, "en", []string{"fr"}, svc, fastRetry)
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}

	for i, r := range results["fr"][:3] {
		if !r.Skipped || r.Text != leaves[i].Text || r.Attempts != 0 || r.Failed() {
			t.Fatalf("result %d = %#v, want skipped passthrough", i, r)
		}
	}
	if got := atomic.LoadInt64(&svc.total); got != 1 {
		t.Fatalf("service calls = %d, want 1", got)
	}
}

func TestTranslate_FailureIsolation(t *testing.T) {
	root, leaves := leavesOf(t, `{"greeting": "Hello", "nested": {"farewell": "Bye"}, "n": 1}`)
	svc := newStub(func(text, source, target string, attempt int) (string, error) {
		if target == "de" && text == "Bye" {
			return "", Permanent("UnsupportedLanguagePairException", errors.New("nope"))
		}
		return "[" + target + "] " + text, nil
	})

	results, err := Translate(context.Background(), leaves, "en", []string{"fr", "de", "es"}, svc, fastRetry)
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}

	for lang, rs := range results {
		for _, r := range rs {
			failedHere := lang == "de" && r.Source == "Bye"
			if r.Failed() != failedHere {
				t.Fatalf("%s %s failed=%v err=%v, want failed=%v", lang, r.Path, r.Failed(), r.Err, failedHere)
			}
		}
	}

	de := results["de"][1]
	if !apperr.IsKind(de.Err, apperr.KindService) {
		t.Fatalf("failure kind = %q, want service", apperr.KindOf(de.Err))
	}
	if de.Attempts != 1 {
		t.Fatalf("permanent error attempts = %d, want 1", de.Attempts)
	}

	out, err := jsontree.Rebuild(root, results["de"])
	if err != nil {
		t.Fatalf("Rebuild error: %v", err)
	}
	got := string(jsontree.Marshal(out, ""))
	want := `{"greeting":"[de] Hello","nested":{"farewell":"Bye"},"n":1}`
	if got != want {
		t.Fatalf("de output = %s, want %s", got, want)
	}
}

func TestTranslate_AllFailRoundTrip(t *testing.T) {
	src := `{"a": "one", "b": [true, "two", {"c": "three", "d": 4.0}], "e": null, "f": {}}`
	root, leaves := leavesOf(t, src)
	svc := newStub(func(text, source, target string, attempt int) (string, error) {
		return "", errors.New("connection reset")
	})

	results, err := Translate(context.Background(), leaves, "en", []string{"ja"}, svc, Options{MaxRetries: 1, RetryDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	for _, r := range results["ja"] {
		if r.Attempts != 2 {
			t.Fatalf("%s attempts = %d, want 2", r.Path, r.Attempts)
		}
	}

	out, err := jsontree.Rebuild(root, results["ja"])
	if err != nil {
		t.Fatalf("Rebuild error: %v", err)
	}
	if !out.Equal(root) {
		t.Fatalf("all-fail rebuild = %s, want input", jsontree.Marshal(out, ""))
	}
}

func TestTranslate_RetriesTransientThenSucceeds(t *testing.T) {
	_, leaves := leavesOf(t, `["flaky"]`)
	svc := newStub(func(text, source, target string, attempt int) (string, error) {
		if attempt < 3 {
			return "", Throttled("TooManyRequestsException", errors.New("slow down"), 0)
		}
		return "stable", nil
	})

	var logged int64
	opts := fastRetry
	opts.Verbose = true
	opts.OnLog = func(format string, args ...any) { atomic.AddInt64(&logged, 1) }

	results, err := Translate(context.Background(), leaves, "en", []string{"it"}, svc, opts)
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	r := results["it"][0]
	if r.Failed() || r.Text != "stable" || r.Attempts != 3 {
		t.Fatalf("result = %#v, want stable after 3 attempts", r)
	}
	if logged != 2 {
		t.Fatalf("retry log lines = %d, want 2", logged)
	}
}

func TestTranslate_TimeoutEndsInServiceFailure(t *testing.T) {
	_, leaves := leavesOf(t, `{"greeting": "Hello"}`)
	svc := newStub(dictionary(nil))
	svc.delay = 200 * time.Millisecond

	opts := fastRetry
	opts.Timeout = 5 * time.Millisecond

	start := time.Now()
	results, err := Translate(context.Background(), leaves, "en", []string{"fr"}, svc, opts)
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Fatalf("Translate took %s, the per-request timeout was not applied", elapsed)
	}

	r := results["fr"][0]
	if !r.Failed() {
		t.Fatalf("result = %#v, want failure", r)
	}
	if want := opts.MaxRetries + 1; r.Attempts != want || svc.callsFor("fr", "Hello") != want {
		t.Fatalf("attempts = %d, calls = %d, want %d", r.Attempts, svc.callsFor("fr", "Hello"), want)
	}
	if !apperr.IsKind(r.Err, apperr.KindService) {
		t.Fatalf("err kind = %q, want service", apperr.KindOf(r.Err))
	}
	if !errors.Is(r.Err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want it to wrap context.DeadlineExceeded", r.Err)
	}
}

func TestTranslate_ConcurrencyBound(t *testing.T) {
	var b strings.Builder
	b.WriteString("{")
	for i := 0; i < 30; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `"k%d": "text %d"`, i, i)
	}
	b.WriteString("}")
	_, leaves := leavesOf(t, b.String())

	const bound = 3
	svc := newStub(dictionary(nil))
	svc.delay = 2 * time.Millisecond

	results, err := Translate(context.Background(), leaves, "en", []string{"fr", "de", "es", "it"}, svc, Options{MaxConcurrent: bound})
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if got := atomic.LoadInt64(&svc.maxInFlight); got > bound {
		t.Fatalf("max concurrent calls = %d, want <= %d", got, bound)
	}
	if got := atomic.LoadInt64(&svc.total); got != int64(4*len(leaves)) {
		t.Fatalf("total calls = %d, want %d", got, 4*len(leaves))
	}
	for lang, rs := range results {
		for _, r := range rs {
			if r.Failed() {
				t.Fatalf("%s %s failed: %v", lang, r.Path, r.Err)
			}
		}
	}
}

func TestTranslate_DuplicateTargetsOnce(t *testing.T) {
	_, leaves := leavesOf(t, `["x"]`)
	svc := newStub(dictionary(nil))

	results, err := Translate(context.Background(), leaves, "en", []string{"fr", "fr"}, svc, fastRetry)
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if len(results) != 1 || svc.callsFor("fr", "x") != 1 {
		t.Fatalf("results=%d calls=%d, want one language translated once", len(results), svc.callsFor("fr", "x"))
	}
}

func TestTranslate_CancellationAbandonsWork(t *testing.T) {
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < 40; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `"t%d"`, i)
	}
	b.WriteString("]")
	_, leaves := leavesOf(t, b.String())

	svc := newStub(dictionary(nil))
	svc.delay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	results, err := Translate(ctx, leaves, "en", []string{"fr", "de"}, svc, Options{MaxConcurrent: 2})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("cancellation did not abandon in-flight calls")
	}
	for lang, rs := range results {
		for _, r := range rs {
			if !errors.Is(r.Err, context.Canceled) {
				t.Fatalf("%s %s err = %v, want canceled", lang, r.Path, r.Err)
			}
		}
	}
}

func TestTranslate_Progress(t *testing.T) {
	_, leaves := leavesOf(t, `{"a": "1", "b": "", "c": "3"}`)
	svc := newStub(dictionary(nil))

	var mu sync.Mutex
	last := map[string]int{}
	opts := fastRetry
	opts.OnProgress = func(lang string, done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
		if done > last[lang] {
			last[lang] = done
		}
	}

	if _, err := Translate(context.Background(), leaves, "en", []string{"fr", "de"}, svc, opts); err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if last["fr"] != 3 || last["de"] != 3 {
		t.Fatalf("final progress = %v, want 3 for each language", last)
	}
}

// ---------------------------------------------------------------------------
// Retry helpers
// ---------------------------------------------------------------------------

func TestBackoff(t *testing.T) {
	opts := Options{RetryDelay: time.Second, MaxRetryDelay: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := opts.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retry     bool
		throttled bool
	}{
		{"plain error is transient", errors.New("eof"), true, false},
		{"permanent", Permanent("ValidationException", errors.New("bad")), false, false},
		{"transient", Transient("InternalServerException", errors.New("500")), true, false},
		{"throttled", Throttled("TooManyRequestsException", errors.New("429"), time.Second), true, true},
		{"wrapped permanent", fmt.Errorf("call: %w", Permanent("X", errors.New("y"))), false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			retry, throttled, _ := classify(tc.err)
			if retry != tc.retry || throttled != tc.throttled {
				t.Errorf("classify = (%v, %v), want (%v, %v)", retry, throttled, tc.retry, tc.throttled)
			}
		})
	}
}

func TestRateLimitPause(t *testing.T) {
	rl := &rateLimitState{}
	rl.pause(30 * time.Millisecond)
	rl.pause(time.Millisecond) // must not shorten the pause

	start := time.Now()
	if err := rl.waitIfPaused(context.Background()); err != nil {
		t.Fatalf("waitIfPaused error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("waited %s, want about 30ms", elapsed)
	}
	if rl.isPaused() {
		t.Fatal("still paused after wait")
	}
}

func TestRateLimitPause_ExpiredWaitKeepsNewPause(t *testing.T) {
	rl := &rateLimitState{}
	rl.pauseEnd = time.Now().Add(-time.Second)
	rl.paused = 1

	if err := rl.waitIfPaused(context.Background()); err != nil {
		t.Fatalf("waitIfPaused error: %v", err)
	}
	if rl.isPaused() {
		t.Fatal("expired pause was not cleared")
	}

	rl.pause(time.Hour)
	if got := rl.remaining(); got <= 0 {
		t.Fatalf("remaining = %s after a fresh pause", got)
	}
	if !rl.isPaused() {
		t.Fatal("remaining cleared a pause still in force")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.waitIfPaused(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("waitIfPaused = %v, want context.Canceled while paused", err)
	}
}

func TestRateLimitPause_ConcurrentWaitersAndPauses(t *testing.T) {
	rl := &rateLimitState{}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = rl.waitIfPaused(ctx)
			}
		}()
	}
	for i := 0; i < 50; i++ {
		rl.pause(time.Microsecond)
	}
	wg.Wait()

	rl.pause(30 * time.Millisecond)
	start := time.Now()
	if err := rl.waitIfPaused(ctx); err != nil {
		t.Fatalf("waitIfPaused error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("waited %s after the last pause, want about 30ms", elapsed)
	}
}

// ---------------------------------------------------------------------------
// Targets
// ---------------------------------------------------------------------------

type fakeLister struct {
	langs []langmeta.Language
	err   error
	calls int
}

func (f *fakeLister) ListLanguages(ctx context.Context) ([]langmeta.Language, error) {
	f.calls++
	return f.langs, f.err
}

func TestTargets(t *testing.T) {
	lister := &fakeLister{langs: []langmeta.Language{{Code: "auto"}, {Code: "en"}, {Code: "fr"}, {Code: "pt-PT"}}}

	got, err := Targets(context.Background(), lister, "en", nil, nil)
	if err != nil {
		t.Fatalf("Targets error: %v", err)
	}
	if strings.Join(got, ",") != "fr,pt-PT" {
		t.Fatalf("Targets() = %v, want fr,pt-PT", got)
	}

	got, err = Targets(context.Background(), lister, "en", []string{"de"}, nil)
	if err != nil || strings.Join(got, ",") != "de" || lister.calls != 1 {
		t.Fatalf("explicit Targets() = %v, %v (calls=%d)", got, err, lister.calls)
	}

	failing := &fakeLister{err: errors.New("AccessDeniedException")}
	if _, err := Targets(context.Background(), failing, "en", nil, nil); err == nil {
		t.Fatal("expected error from failing lister")
	}
}
