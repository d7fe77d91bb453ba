package httpclient

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig holds the retry behavior configuration.
// Use DefaultRetryConfig() for balanced defaults, then modify as needed.
//
// The retry mechanism uses exponential backoff with jitter to prevent
// "thundering herd" problems when multiple clients retry simultaneously.
//
// Key concepts:
//   - MaxRetries: Maximum number of retry attempts (0 = disabled)
//   - MaxElapsedTime: Total time budget for all retries combined.
//     If retrying would exceed this budget, the retry loop stops.
//     Example: With MaxElapsedTime=30s, if 25s have passed, no more retries.
//   - JitterFactor: Randomization factor (0.0-1.0) applied to each interval.
//     A factor of 0.5 means intervals vary ±50% (e.g., 1s becomes 0.5s-1.5s).
//     This prevents synchronized retry storms across distributed clients.
//
// Example usage:
//
//	// Use defaults
//	client := httpclient.New(
//	    httpclient.WithRetryConfig(httpclient.DefaultRetryConfig()),
//	)
//
//	// Custom configuration
//	cfg := httpclient.DefaultRetryConfig()
//	cfg.MaxRetries = 5
//	cfg.InitialInterval = 200 * time.Millisecond
//	client := httpclient.New(
//	    httpclient.WithRetryConfig(cfg),
//	)
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts.
	// Set to 0 to disable retries entirely.
	// The initial request is not counted as a retry.
	// Default: 3
	MaxRetries uint

	// InitialInterval is the first backoff interval before any retries.
	// Subsequent intervals grow exponentially based on Multiplier.
	// Default: 500ms
	InitialInterval time.Duration

	// MaxInterval caps the backoff interval.
	// Even with exponential growth, intervals never exceed this value.
	// Default: 30s
	MaxInterval time.Duration

	// MaxElapsedTime is the total time budget for the entire retry sequence.
	// Once this time has passed since the first attempt, no more retries occur.
	// Set to 0 for no time limit (only MaxRetries applies).
	// Default: 2m
	//
	// Example: If MaxElapsedTime=30s and 25s have passed, even if MaxRetries
	// hasn't been reached, the next retry won't happen if the backoff interval
	// would push total time past 30s.
	MaxElapsedTime time.Duration

	// Multiplier controls exponential growth of backoff intervals.
	// Each retry interval = previous interval × Multiplier.
	// Default: 2.0 (intervals double each retry)
	//
	// Example with InitialInterval=500ms, Multiplier=2.0:
	//   Retry 1: 500ms → Retry 2: 1s → Retry 3: 2s → Retry 4: 4s
	Multiplier float64

	// JitterFactor adds randomization to prevent retry storms.
	// Value between 0.0 (no jitter) and 1.0 (±100% randomization).
	// Default: 0.5 (±50% randomization, recommended)
	//
	// Jitter is critical in distributed systems to prevent synchronized
	// retries from overwhelming recovering services.
	//
	// Example with JitterFactor=0.5 and interval=1s:
	// Actual wait time will be random between 0.5s and 1.5s.
	JitterFactor float64
}

// Default values for RetryConfig.
const (
	// DefaultMaxRetries is the default number of retry attempts.
	DefaultMaxRetries = 3

	// DefaultInitialInterval is the default starting backoff interval.
	DefaultInitialInterval = 500 * time.Millisecond

	// DefaultMaxInterval is the default maximum backoff interval.
	DefaultMaxInterval = 30 * time.Second

	// DefaultMaxElapsedTime is the default total retry time budget.
	DefaultMaxElapsedTime = 2 * time.Minute

	// DefaultMultiplier is the default backoff multiplier.
	DefaultMultiplier = 2.0

	// DefaultJitterFactor is the default randomization factor.
	// 0.5 means ±50% randomization, which is recommended for most use cases.
	DefaultJitterFactor = 0.5
)

// DefaultRetryConfig returns balanced defaults for general use.
//
// Configuration:
//   - 3 retries with exponential backoff (500ms → 1s → 2s)
//   - 2 minute total time budget
//   - 50% jitter for storm prevention
//   - 30s maximum interval cap
//
// This configuration is suitable for most HTTP client use cases where
// you want resilience without being too aggressive.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
		MaxElapsedTime:  DefaultMaxElapsedTime,
		Multiplier:      DefaultMultiplier,
		JitterFactor:    DefaultJitterFactor,
	}
}

// AggressiveRetryConfig returns configuration for mission-critical operations.
//
// Configuration:
//   - 5 retries with faster start (200ms → 400ms → 800ms → 1.6s → 3.2s)
//   - 5 minute total time budget
//   - 50% jitter
//   - 60s maximum interval cap
//
// Use this for:
//   - Idempotent operations that must succeed
//   - Critical payment or transaction calls
//   - Operations where failure has high business impact
//
// Warning: More aggressive retries increase load on downstream services.
// Ensure the target service can handle the additional traffic.
func AggressiveRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      5,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     60 * time.Second,
		MaxElapsedTime:  5 * time.Minute,
		Multiplier:      2.0,
		JitterFactor:    0.5,
	}
}

// ConservativeRetryConfig returns configuration for expensive or rate-limited services.
//
// Configuration:
//   - 2 retries with slower start (1s → 2s)
//   - 30 second total time budget
//   - 50% jitter
//   - 10s maximum interval cap
//
// Use this for:
//   - Rate-limited APIs (respects service capacity)
//   - Expensive downstream operations (billing APIs, etc.)
//   - Services where you want to fail fast rather than wait
//
// This configuration minimizes additional load on struggling services
// while still providing basic resilience.
func ConservativeRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 1 * time.Second,
		MaxInterval:     10 * time.Second,
		MaxElapsedTime:  30 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.5,
	}
}

// NoRetryConfig returns configuration that disables retries entirely.
//
// Use this when:
//   - The operation is not idempotent
//   - You want to handle retries at a higher level
//   - Testing without retry interference
func NoRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      0,
		InitialInterval: 0,
		MaxInterval:     0,
		MaxElapsedTime:  0,
		Multiplier:      0,
		JitterFactor:    -1, // Sentinel to distinguish from uninitialized config
	}
}

// IsEnabled returns true if retries are enabled.
func (c RetryConfig) IsEnabled() bool {
	return c.MaxRetries > 0
}

// =============================================================================
// Named backoff strategies and the pipeline-level retry orchestrator.
//
// RetryConfig above drives the legacy http.RoundTripper retry path
// (NewRetryTransport, in retry_transport.go). The orchestrator below drives retries for
// the Driver pipeline (plugins -> driver), where ResolvedRequest's own
// Retry/BackoffType/RetryDelay/ShouldRetry fields configure each call.
// =============================================================================

// computeBackoffDelay dispatches on a named strategy to produce the delay
// before retry attempt n (n is 1 for the delay before the second overall
// attempt, 2 before the third, and so on). base defaults to
// DefaultInitialInterval when zero; maxDelay of zero leaves the result
// uncapped.
//
// Recognized kinds: "linear", "exponential" (default), "exponentialCapped",
// "fibonacci", "jitter", "exponentialJitter", "custom" (paired with a
// schedule from WithBackoffDelays).
func computeBackoffDelay(kind string, n int, base, maxDelay time.Duration, schedule []time.Duration) time.Duration {
	if base <= 0 {
		base = DefaultInitialInterval
	}

	var d time.Duration
	switch kind {
	case "linear":
		d = base * time.Duration(n)
	case "exponentialCapped":
		d = base * time.Duration(uint64(1)<<uint(n-1))
	case "fibonacci":
		d = base * time.Duration(fibonacci(n))
	case "jitter":
		d = applyJitter(base, DefaultJitterFactor)
	case "exponentialJitter":
		exp := base * time.Duration(uint64(1)<<uint(n-1))
		d = applyJitter(exp, DefaultJitterFactor)
	case "custom":
		d = customScheduleDelay(n, base, schedule)
	case "exponential", "":
		d = base * time.Duration(uint64(1)<<uint(n-1))
	default:
		d = base * time.Duration(uint64(1)<<uint(n-1))
	}

	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}
	return d
}

// retryAfterDelay reads the Retry-After header off an HTTP error response, if
// any, and returns how long to wait before the next attempt. The header may
// be either a number of seconds or an HTTP-date (RFC 7231 §7.1.3); either
// form is honored, including an explicit "0" (retry immediately rather than
// falling back to the computed backoff delay).
func retryAfterDelay(err error) (time.Duration, bool) {
	var ne *NormalizedError
	if !errors.As(err, &ne) || ne.Kind != KindHTTPError || ne.Header == nil {
		return 0, false
	}
	v := strings.TrimSpace(ne.Header.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	if secs, serr := strconv.Atoi(v); serr == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, terr := http.ParseTime(v); terr == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

func customScheduleDelay(n int, base time.Duration, schedule []time.Duration) time.Duration {
	if len(schedule) == 0 {
		return base
	}
	idx := n - 1
	if idx >= len(schedule) {
		idx = len(schedule) - 1
	}
	return schedule[idx]
}

// fibonacci returns the nth Fibonacci number (1-indexed, fibonacci(1) == 1).
func fibonacci(n int) int {
	if n <= 1 {
		return 1
	}
	a, b := 1, 1
	for i := 2; i < n; i++ {
		a, b = b, a+b
	}
	return b
}

// dispatchBackOff adapts computeBackoffDelay to the cenkalti/backoff.BackOff
// interface so the named-strategy dispatch can drive backoff.Retry the same
// way the hand-rolled strategies in backoff.go do.
//
// Three sources can override the strategy's computed delay for a given
// attempt, checked in order: a Retry-After header on the failed response
// (every attempt), initialDelay (attempt 1 only), then the strategy itself
// scaling from base.
type dispatchBackOff struct {
	ctx          *requestContext
	kind         string
	base         time.Duration
	maxDelay     time.Duration
	schedule     []time.Duration
	initialDelay time.Duration
	attempt      int
}

func (b *dispatchBackOff) Reset() {
	b.attempt = 0
}

func (b *dispatchBackOff) NextBackOff() time.Duration {
	b.attempt++

	if d, ok := retryAfterDelay(b.ctx.Err); ok {
		return d
	}

	if b.attempt == 1 && b.initialDelay > 0 {
		d := b.initialDelay
		if b.maxDelay > 0 && d > b.maxDelay {
			d = b.maxDelay
		}
		return d
	}

	return computeBackoffDelay(b.kind, b.attempt, b.base, b.maxDelay, b.schedule)
}

// retryOrchestrator sits between the rate limiter and the plugin/driver
// stage, re-running one attempt until it succeeds, is classified permanent,
// or the request's retry budget is exhausted.
type retryOrchestrator struct {
	classifier RetryClassifier
}

func newRetryOrchestrator(classifier RetryClassifier) *retryOrchestrator {
	if classifier == nil {
		classifier = DefaultClassifier
	}
	return &retryOrchestrator{classifier: classifier}
}

// run drives attempt (typically the plugin pipeline wrapped around the
// driver) until success, a permanent error, or exhaustion of req.Retry.
// attempt is expected to mutate ctx.Attempt/ctx.Res/ctx.Err as a side
// effect of each call, in addition to returning its result directly.
func (o *retryOrchestrator) run(ctx *requestContext, attempt func(*requestContext) (*Response, error)) (*Response, error) {
	req := ctx.Req
	maxTries := req.Retry + 1

	backOff := o.backOffFor(ctx)

	op := func() (*Response, error) {
		res, err := attempt(ctx)
		if err == nil {
			return res, nil
		}

		if !o.shouldRetry(ctx, err) {
			return nil, backoff.Permanent(err)
		}

		ctx.Attempt++
		return nil, err
	}

	opts := []backoff.RetryOption{backoff.WithBackOff(backOff), backoff.WithMaxTries(maxTries)}
	if req.OverallDeadline > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(req.OverallDeadline))
	}

	res, err := backoff.Retry(ctx.Ctx, op, opts...)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return nil, errors.Unwrap(permanent)
		}
		return nil, err
	}
	return res, nil
}

// backOffFor picks the retry delay source for the current call.
//
// A func(*requestContext) time.Duration RetryDelay is a full delay override,
// computed fresh before each attempt, and takes priority over everything
// else. A plain time.Duration RetryDelay instead becomes the *base* that the
// selected BackoffType strategy scales from (it is not a flat delay); absent
// either, the strategy scales from DefaultInitialInterval. InitialDelay, if
// set, replaces only the first retry's delay — later attempts fall back to
// the strategy scaling from base. A Retry-After response header, when
// present, takes precedence over all of the above.
func (o *retryOrchestrator) backOffFor(ctx *requestContext) backoff.BackOff {
	req := ctx.Req
	if fn, ok := req.RetryDelay.(func(*requestContext) time.Duration); ok {
		return &funcBackOff{fn: fn, ctx: ctx}
	}

	base := DefaultInitialInterval
	if d, ok := req.RetryDelay.(time.Duration); ok && d > 0 {
		base = d
	}

	return &dispatchBackOff{
		ctx:          ctx,
		kind:         req.BackoffType,
		base:         base,
		maxDelay:     req.BackoffMaxDelay,
		schedule:     req.BackoffDelays,
		initialDelay: req.InitialDelay,
	}
}

// funcBackOff honors a WithRetryDelay func(*requestContext) time.Duration,
// computed fresh before each retry. A Retry-After response header still
// takes precedence, since it reflects what the server just asked for.
type funcBackOff struct {
	fn      func(*requestContext) time.Duration
	ctx     *requestContext
	attempt int
}

func (b *funcBackOff) Reset() { b.attempt = 0 }

func (b *funcBackOff) NextBackOff() time.Duration {
	b.attempt++
	if d, ok := retryAfterDelay(b.ctx.Err); ok {
		return d
	}
	return b.fn(b.ctx)
}

// shouldRetry classifies err against the request's RetryStatusCodes (or the
// orchestrator's default classifier) and then gives req.ShouldRetry, if
// set, the final say — it may veto a retry the classifier allowed, or allow
// one the classifier would have refused.
func (o *retryOrchestrator) shouldRetry(ctx *requestContext, err error) bool {
	ctx.Err = err

	verdict := o.classify(ctx.Req, err)
	if ctx.Req.ShouldRetry != nil {
		return ctx.Req.ShouldRetry(ctx)
	}
	return verdict
}

func (o *retryOrchestrator) classify(req *ResolvedRequest, err error) bool {
	var ne *NormalizedError
	if errors.As(err, &ne) {
		switch ne.Kind {
		case KindHTTPError:
			if len(req.RetryStatusCodes) > 0 {
				return req.RetryStatusCodes[ne.Status]
			}
			return isRetryableStatusCode(ne.Status)
		case KindTimeoutError, KindNetworkError:
			return true
		case KindAbortError, KindParseError, KindHedgingError, KindRateLimitError:
			return false
		}
	}
	return o.classifier(nil, err)
}
