package assist

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/notehaven/go-notes-backend/internal/cache"
)

// scriptedBackend is a controllable primary stand-in.
type scriptedBackend struct {
	calls   atomic.Int64
	fail    bool
	text    string
	items   []string
	release chan struct{} // when set, Complete blocks until closed
}

func (b *scriptedBackend) Complete(ctx context.Context, kind Kind, content string) (Result, error) {
	b.calls.Add(1)
	if b.release != nil {
		select {
		case <-b.release:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if b.fail {
		return Result{}, errors.New("backend down")
	}
	return Result{Text: b.text, Items: b.items}, nil
}

// panicBackend stands in for a broken fallback.
type panicBackend struct{}

func (panicBackend) Complete(context.Context, Kind, string) (Result, error) {
	panic("fallback wiring broken")
}

func newOrch(primary Backend) *Orchestrator {
	o := NewOrchestrator(primary, cache.NewMemory())
	o.Timeout = time.Second
	return o
}

func TestAssist_UnknownKind(t *testing.T) {
	o := newOrch(nil)
	if _, err := o.Assist(context.Background(), Kind("translate"), "x"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("got %v, want ErrUnknownKind", err)
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"generate-title", "summarize", "improve-content", "generate-ideas", "suggest-tags"} {
		if _, err := ParseKind(s); err != nil {
			t.Fatalf("ParseKind(%q): %v", s, err)
		}
	}
	if _, err := ParseKind("Summarize"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("kind matching is not exact: %v", err)
	}
}

func TestAssist_PrimarySuccess(t *testing.T) {
	primary := &scriptedBackend{text: "A Crisp Title"}
	o := newOrch(primary)

	res, err := o.Assist(context.Background(), KindGenerateTitle, "some note content here")
	if err != nil {
		t.Fatalf("assist: %v", err)
	}
	if res.Source != SourcePrimary || !res.Success || res.Text != "A Crisp Title" {
		t.Fatalf("res = %+v", res)
	}
	if res.Kind != KindGenerateTitle {
		t.Fatalf("kind = %q", res.Kind)
	}
}

func TestAssist_CacheReplay(t *testing.T) {
	primary := &scriptedBackend{text: "cached answer"}
	o := newOrch(primary)
	ctx := context.Background()

	first, err := o.Assist(ctx, KindSummarize, "content to summarize at length")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := o.Assist(ctx, KindSummarize, "content to summarize at length")
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if second.Source != SourceCache {
		t.Fatalf("second source = %q, want cache", second.Source)
	}
	if second.Text != first.Text || !second.Success {
		t.Fatalf("replay diverged: %+v vs %+v", second, first)
	}
	if n := primary.calls.Load(); n != 1 {
		t.Fatalf("primary called %d times, want 1", n)
	}
}

func TestAssist_FingerprintNormalization(t *testing.T) {
	primary := &scriptedBackend{text: "same"}
	o := newOrch(primary)
	ctx := context.Background()

	if _, err := o.Assist(ctx, KindSummarize, "Weekly Plan:  review   goals"); err != nil {
		t.Fatalf("first: %v", err)
	}
	res, err := o.Assist(ctx, KindSummarize, "weekly plan: review goals")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if res.Source != SourceCache {
		t.Fatalf("reformatted input missed the cache: source = %q", res.Source)
	}
	if n := primary.calls.Load(); n != 1 {
		t.Fatalf("primary called %d times, want 1", n)
	}
}

func TestAssist_KindsDoNotShareFingerprints(t *testing.T) {
	content := "identical content"
	if Fingerprint(KindSummarize, content) == Fingerprint(KindGenerateTitle, content) {
		t.Fatalf("fingerprint ignores kind")
	}
}

func TestAssist_FallbackOnPrimaryFailure(t *testing.T) {
	primary := &scriptedBackend{fail: true}
	o := newOrch(primary)

	res, err := o.Assist(context.Background(), KindSuggestTags, "Buy milk, eggs, bread")
	if err != nil {
		t.Fatalf("assist: %v", err)
	}
	if res.Source != SourceFallback || !res.Success {
		t.Fatalf("res = %+v, want successful fallback", res)
	}
	if len(res.Items) == 0 {
		t.Fatalf("fallback tag list is empty")
	}
}

func TestAssist_FallbackDeterministic(t *testing.T) {
	primary := &scriptedBackend{fail: true}
	content := "Planning the conference talk about load testing"

	// Fresh orchestrator per call so the cache cannot mask divergence.
	a, err := newOrch(primary).Assist(context.Background(), KindGenerateIdeas, content)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := newOrch(primary).Assist(context.Background(), KindGenerateIdeas, content)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !reflect.DeepEqual(a.Items, b.Items) {
		t.Fatalf("fallback diverged: %v vs %v", a.Items, b.Items)
	}
}

func TestAssist_NoPrimaryServesFallback(t *testing.T) {
	o := newOrch(nil)
	res, err := o.Assist(context.Background(), KindGenerateTitle, "grocery run for the weekend")
	if err != nil {
		t.Fatalf("assist: %v", err)
	}
	if res.Source != SourceFallback || res.Text == "" {
		t.Fatalf("res = %+v", res)
	}
}

func TestAssist_EmptyContentSkipsPrimary(t *testing.T) {
	primary := &scriptedBackend{text: "never used"}
	o := newOrch(primary)

	res, err := o.Assist(context.Background(), KindGenerateTitle, "   \n ")
	if err != nil {
		t.Fatalf("assist: %v", err)
	}
	if res.Source != SourceFallback || res.Text != titleFloor {
		t.Fatalf("res = %+v", res)
	}
	if n := primary.calls.Load(); n != 0 {
		t.Fatalf("primary called %d times for blank content", n)
	}
}

func TestAssist_CoalescesConcurrentRequests(t *testing.T) {
	primary := &scriptedBackend{text: "one answer", release: make(chan struct{})}
	o := newOrch(primary)

	const workers = 8
	results := make([]Result, workers)
	errs := make([]error, workers)

	var start, done sync.WaitGroup
	start.Add(workers)
	done.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer done.Done()
			start.Done()
			start.Wait()
			results[i], errs[i] = o.Assist(context.Background(), KindSummarize, "shared long content body")
		}(i)
	}

	start.Wait()
	// Let every worker reach the flight before the backend responds.
	time.Sleep(20 * time.Millisecond)
	close(primary.release)
	done.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if results[i].Text != "one answer" {
			t.Fatalf("worker %d diverged: %+v", i, results[i])
		}
	}
	if n := primary.calls.Load(); n != 1 {
		t.Fatalf("primary called %d times for identical concurrent requests, want 1", n)
	}
}

func TestAssist_FallbackPanicIsIsolated(t *testing.T) {
	o := newOrch(nil)
	o.Fallback = panicBackend{}

	if _, err := o.Assist(context.Background(), KindSummarize, "doomed request"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}

	// Other fingerprints keep working once the fallback is healthy again.
	o.Fallback = NewLocal()
	res, err := o.Assist(context.Background(), KindSummarize, "a different healthy request")
	if err != nil || !res.Success {
		t.Fatalf("follow-up request failed: %+v, %v", res, err)
	}
}

func TestAssist_FallbackResultIsCached(t *testing.T) {
	primary := &scriptedBackend{fail: true}
	o := newOrch(primary)
	ctx := context.Background()

	if _, err := o.Assist(ctx, KindSuggestTags, "tagging this content body"); err != nil {
		t.Fatalf("first: %v", err)
	}
	res, err := o.Assist(ctx, KindSuggestTags, "tagging this content body")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if res.Source != SourceCache {
		t.Fatalf("second source = %q, want cache", res.Source)
	}
	// Primary was still consulted only for the original miss.
	if n := primary.calls.Load(); n != 1 {
		t.Fatalf("primary called %d times, want 1", n)
	}
}

func TestAssist_NilCache(t *testing.T) {
	o := NewOrchestrator(&scriptedBackend{text: "ok"}, nil)
	for i := 0; i < 2; i++ {
		res, err := o.Assist(context.Background(), KindSummarize, "content without a cache")
		if err != nil {
			t.Fatalf("assist: %v", err)
		}
		if res.Source != SourcePrimary {
			t.Fatalf("source = %q, want primary on every call", res.Source)
		}
	}
}
