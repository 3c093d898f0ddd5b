// Package assist – AI assist orchestrator
//
// This package routes content-transformation requests (title generation,
// summarization, content improvement, idea generation, tag suggestion) to a
// remote inference backend with graceful degradation to a deterministic local
// fallback. Results are memoized by content fingerprint, and concurrent
// identical requests are coalesced so the remote backend runs at most once
// per fingerprint.
//
// Degradation order per request: fingerprint cache hit → primary backend
// (bounded timeout, detached from the caller's cancellation) → local
// fallback. The fallback is the last line of defense and always returns a
// usable result; only a panic in the fallback path surfaces ErrUnavailable,
// and that panic is recovered so other in-flight fingerprints are unaffected.
package assist

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/notehaven/go-notes-backend/internal/cache"
)

// Kind identifies one of the supported content transformations.
type Kind string

// Supported operation kinds. The values double as URL path segments.
const (
	KindGenerateTitle  Kind = "generate-title"
	KindSummarize      Kind = "summarize"
	KindImproveContent Kind = "improve-content"
	KindGenerateIdeas  Kind = "generate-ideas"
	KindSuggestTags    Kind = "suggest-tags"
)

// ParseKind maps a wire string onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindGenerateTitle, KindSummarize, KindImproveContent, KindGenerateIdeas, KindSuggestTags:
		return k, nil
	default:
		return "", ErrUnknownKind
	}
}

// Result provenance values.
const (
	SourceCache    = "cache"
	SourcePrimary  = "primary"
	SourceFallback = "fallback"
)

// Result is the outcome of one assist request. Exactly one of Text and Items
// is populated, depending on the kind: list-shaped kinds (generate-ideas,
// suggest-tags) fill Items, the rest fill Text.
type Result struct {
	Kind    Kind     `json:"kind"`
	Text    string   `json:"text,omitempty"`
	Items   []string `json:"items,omitempty"`
	Source  string   `json:"source"`
	Success bool     `json:"success"`
}

// Sentinel errors returned by the orchestrator.
var (
	// ErrUnknownKind marks an operation kind outside the supported set.
	ErrUnknownKind = errors.New("unknown assist kind")

	// ErrUnavailable marks the rare case where even the local fallback
	// could not produce a result.
	ErrUnavailable = errors.New("assist unavailable")
)

// Backend produces an assist result for one kind/content pair. Implementations
// fill Text or Items only; the orchestrator assigns Source and Success.
type Backend interface {
	Complete(ctx context.Context, kind Kind, content string) (Result, error)
}

const (
	defaultPrimaryTTL  = 6 * time.Hour
	defaultFallbackTTL = 5 * time.Minute
	defaultTimeout     = 10 * time.Second
)

// Orchestrator coordinates the cache, the primary backend, and the local
// fallback. Construct with NewOrchestrator; the zero value is not usable.
type Orchestrator struct {
	// Primary is the remote inference backend. May be nil, in which case
	// every request is served by the fallback.
	Primary Backend
	// Fallback is the deterministic local backend. Never nil.
	Fallback Backend
	// Cache memoizes results by fingerprint. May be nil.
	Cache cache.Store

	// PrimaryTTL bounds the lifetime of cached primary results.
	PrimaryTTL time.Duration
	// FallbackTTL bounds the lifetime of cached fallback results. It is kept
	// short so a recovered primary can replace degraded output.
	FallbackTTL time.Duration
	// Timeout bounds a single primary backend invocation.
	Timeout time.Duration

	group singleflight.Group
}

// NewOrchestrator wires an orchestrator with default TTLs and timeout.
// primary may be nil when no API key is configured.
func NewOrchestrator(primary Backend, c cache.Store) *Orchestrator {
	return &Orchestrator{
		Primary:     primary,
		Fallback:    NewLocal(),
		Cache:       c,
		PrimaryTTL:  defaultPrimaryTTL,
		FallbackTTL: defaultFallbackTTL,
		Timeout:     defaultTimeout,
	}
}

// Assist runs one transformation request through the cache / primary /
// fallback pipeline. Identical concurrent requests share one execution.
func (o *Orchestrator) Assist(ctx context.Context, kind Kind, content string) (Result, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return Result{}, err
	}
	fp := Fingerprint(kind, content)

	if res, ok := o.cached(ctx, fp); ok {
		observeOutcome(kind, SourceCache)
		return res, nil
	}

	v, err, _ := o.group.Do(fp, func() (any, error) {
		// Double check under the flight: a concurrent caller may have
		// populated the cache between our miss and this execution.
		if res, ok := o.cached(ctx, fp); ok {
			return res, nil
		}
		return o.execute(ctx, kind, content, fp)
	})
	if err != nil {
		observeOutcome(kind, "failed")
		return Result{}, err
	}
	res := v.(Result)
	observeOutcome(kind, res.Source)
	return res, nil
}

// execute runs the primary/fallback state machine for one fingerprint.
func (o *Orchestrator) execute(ctx context.Context, kind Kind, content string, fp string) (Result, error) {
	if o.Primary != nil && normalize(content) != "" {
		// Detach from the caller's cancellation: a client disconnect must
		// not discard a completable (and cacheable) result.
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.Timeout)
		res, err := o.Primary.Complete(pctx, kind, content)
		cancel()
		if err == nil {
			res.Kind = kind
			res.Source = SourcePrimary
			res.Success = true
			o.memoize(ctx, fp, res, o.PrimaryTTL)
			return res, nil
		}
		log.Debug().Err(err).Str("kind", string(kind)).Msg("primary assist backend failed; falling back")
	}

	res, err := o.safeFallback(ctx, kind, content)
	if err != nil {
		return Result{}, err
	}
	o.memoize(ctx, fp, res, o.FallbackTTL)
	return res, nil
}

// safeFallback invokes the local backend with panic isolation so one bad
// request can never poison the in-flight registry for other fingerprints.
func (o *Orchestrator) safeFallback(ctx context.Context, kind Kind, content string) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("kind", string(kind)).Msg("assist fallback panicked")
			err = ErrUnavailable
		}
	}()

	res, err = o.Fallback.Complete(ctx, kind, content)
	if err != nil {
		return Result{}, ErrUnavailable
	}
	res.Kind = kind
	res.Source = SourceFallback
	res.Success = true
	return res, nil
}

// cached looks the fingerprint up and rehydrates the stored result. Cache
// failures degrade to a miss.
func (o *Orchestrator) cached(ctx context.Context, fp string) (Result, bool) {
	if o.Cache == nil {
		return Result{}, false
	}
	payload, ok, err := o.Cache.GetAIResult(ctx, fp)
	if err != nil {
		log.Debug().Err(err).Msg("assist cache unavailable; degrading to backends")
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}
	var res Result
	if err := json.Unmarshal(payload, &res); err != nil {
		return Result{}, false
	}
	res.Source = SourceCache
	return res, true
}

// memoize stores a successful result under its fingerprint. Failures are
// logged and swallowed.
func (o *Orchestrator) memoize(ctx context.Context, fp string, res Result, ttl time.Duration) {
	if o.Cache == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := o.Cache.PutAIResult(ctx, fp, payload, ttl); err != nil {
		log.Debug().Err(err).Msg("assist result not cached")
	}
}
