package httpclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Client is a high-level HTTP client wired as a pipeline: debounce -> dedup
// -> rate limit -> retry -> (plugins -> driver [-> hedge]) -> plugins, with
// OpenTelemetry instrumentation and an opt-in circuit breaker underneath the
// driver's *http.Client.
//
// Create a Client using New():
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("https://api.example.com"),
//	    httpclient.WithServiceName("payment-service"),
//	)
//
//	resp, err := client.Get(ctx, "/users/1")
type Client struct {
	httpClient *http.Client
	config     *internalConfig

	driver  Driver
	plugins *pluginPipeline

	retrier     *retryOrchestrator
	rateLimiter *requestRateLimiter
	debouncer   *Debouncer
	deduper     *Deduplicator
	hedger      *Hedger
	tracker     *LatencyTracker
	stats       *StatsHub
	logger      zerolog.Logger
}

// HTTP returns the underlying *http.Client for advanced use cases: passing
// to third-party libraries that expect one, or making requests outside the
// pipeline entirely.
func (c *Client) HTTP() *http.Client {
	return c.httpClient
}

// Stats returns the client's StatsHub, queryable for per-endpoint success
// rate, retry rate, and latency percentiles.
func (c *Client) Stats() *StatsHub {
	return c.stats
}

// Use registers a Plugin on the client's pipeline, appended after any
// plugins set via WithPlugin at construction time.
func (c *Client) Use(plugin Plugin) {
	c.plugins.use(plugin)
}

// UpdateConfig applies opts on top of the client's current configuration and
// rebuilds the transport chain and driver accordingly. Pipeline-stage
// objects (debouncer, deduplicator, rate limiter, hedger, stats) keep their
// accumulated state; only the config and the driver-facing transport change.
func (c *Client) UpdateConfig(opts ...Option) {
	cfg := c.config.clone()
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	c.config = cfg
	c.rebuildDriver()
}

func (c *Client) rebuildDriver() {
	cfg := c.config
	instrumented := newOtelTransport(newCircuitBreakerTransport(baseTransport(cfg), cfg), cfg)
	c.httpClient = &http.Client{Transport: instrumented, Timeout: cfg.httpConfig.Timeout}

	if cfg.DriverImpl != nil {
		c.driver = cfg.DriverImpl
	} else {
		c.driver = newHTTPDriver(c.httpClient, cfg.Debug, cfg.GenerateCurl, cfg.EnableTrace, cfg.Interceptors, c.logger)
	}
}

// baseTransport picks the innermost http.RoundTripper: a stubbed
// MockTransport when WithMockTransport is set (for tests), otherwise the
// real *http.Transport built from cfg - optionally wrapped with chaos
// injection either way, so chaos testing works against mocks too.
func baseTransport(cfg *internalConfig) http.RoundTripper {
	var base http.RoundTripper
	if cfg.MockTransport != nil {
		base = cfg.MockTransport
	} else {
		base = cfg.buildTransport()
	}
	if cfg.Chaos.Enabled() {
		base = newChaosTransport(base, cfg.Chaos)
	}
	return base
}

// finishClient fills in every pipeline-stage field shared by New,
// NewWithTransport, and WrapClient, given an already-built *http.Client.
func finishClient(httpClient *http.Client, cfg *internalConfig) *Client {
	if cfg.StatsHub == nil {
		cfg.StatsHub = NewStatsHub(0)
	}
	tracker := NewLatencyTracker(0, 1)
	logger := loggerFrom(cfg)

	c := &Client{
		httpClient:  httpClient,
		config:      cfg,
		plugins:     newPluginPipeline(),
		retrier:     newRetryOrchestrator(nil),
		rateLimiter: newRequestRateLimiter(),
		debouncer:   NewDebouncer(),
		deduper:     NewDeduplicator(cfg.Deduplicate),
		tracker:     tracker,
		hedger:      NewHedger(tracker),
		stats:       cfg.StatsHub,
		logger:      logger,
	}
	for _, p := range cfg.Plugins {
		c.plugins.use(p)
	}

	if cfg.DriverImpl != nil {
		c.driver = cfg.DriverImpl
	} else {
		c.driver = newHTTPDriver(httpClient, cfg.Debug, cfg.GenerateCurl, cfg.EnableTrace, cfg.Interceptors, logger)
	}
	return c
}

func loggerFrom(cfg *internalConfig) zerolog.Logger {
	if cfg.Logger != nil {
		return *cfg.Logger
	}
	return newDefaultLogger()
}

// New creates a Client with production-ready defaults: connection pooling,
// OpenTelemetry tracing and metrics, an opt-in circuit breaker, and the full
// resilience pipeline (debounce, dedup, rate limiting, retry, hedging).
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("https://api.example.com"),
//	    httpclient.WithServiceName("my-service"),
//	)
//	resp, err := client.Get(ctx, "/users")
func New(opts ...Option) *Client {
	cfg := newConfig(opts...)
	instrumented := newOtelTransport(newCircuitBreakerTransport(baseTransport(cfg), cfg), cfg)

	httpClient := &http.Client{
		Transport: instrumented,
		Timeout:   cfg.httpConfig.Timeout,
	}

	return finishClient(httpClient, cfg)
}

// NewTransport creates an instrumented http.RoundTripper that can be used
// with a custom http.Client, for callers who want OpenTelemetry
// instrumentation without the rest of the pipeline.
func NewTransport(base http.RoundTripper, opts ...Option) http.RoundTripper {
	cfg := newConfig(opts...)
	return newOtelTransport(base, cfg)
}

// NewWithTransport creates a Client using a custom base transport, wrapped
// with OpenTelemetry instrumentation, and the full pipeline above it.
func NewWithTransport(base http.RoundTripper, opts ...Option) *Client {
	cfg := newConfig(opts...)

	httpClient := &http.Client{
		Transport: newOtelTransport(base, cfg),
		Timeout:   cfg.httpConfig.Timeout,
	}

	return finishClient(httpClient, cfg)
}

// WrapClient wraps an existing http.Client's transport with OpenTelemetry
// instrumentation in-place and returns a pipeline-enabled Client around it.
// If the client has no transport, http.DefaultTransport is used.
func WrapClient(httpClient *http.Client, opts ...Option) *Client {
	cfg := newConfig(opts...)

	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient.Transport = newOtelTransport(base, cfg)

	return finishClient(httpClient, cfg)
}

// effectiveTimeout applies WithTimeout as a ceiling on the client's own
// timeout rather than a replacement: it can only shorten the deadline.
func effectiveTimeout(cfg *internalConfig) time.Duration {
	base := cfg.httpConfig.Timeout
	if cfg.RequestTimeout <= 0 {
		return base
	}
	if base == 0 || cfg.RequestTimeout < base {
		return cfg.RequestTimeout
	}
	return base
}

// resolveRequest merges client-level config with per-request options into a
// ResolvedRequest, and computes the coalescing key used by dedup/debounce.
func (c *Client) resolveRequest(spec RequestSpec) (*ResolvedRequest, string) {
	cfg := c.config.clone()
	for _, opt := range spec.Options {
		opt(cfg)
	}

	headers := make(http.Header)
	mergeHeaders(headers, cfg.DefaultHeaders)
	mergeHeaders(headers, spec.Headers)

	req := &ResolvedRequest{
		Method:  spec.Method,
		URL:     spec.URL,
		Headers: headers,
		Query:   mergeQuery(cfg.DefaultQuery, spec.Query),
		Body:    spec.Body,

		BaseURL:             cfg.BaseURL,
		Timeout:             effectiveTimeout(cfg),
		Retry:               cfg.Retry,
		RetryDelay:          cfg.RetryDelay,
		RetryStatusCodes:    cfg.RetryStatusCodes,
		BackoffType:         cfg.BackoffType,
		BackoffMaxDelay:     cfg.BackoffMaxDelay,
		BackoffDelays:       cfg.BackoffDelays,
		InitialDelay:        cfg.InitialDelay,
		ShouldRetry:         cfg.ShouldRetry,
		ResponseType:        cfg.ResponseType,
		ParseResponse:       cfg.ParseResponse,
		IgnoreResponseError: cfg.IgnoreResponseError,

		RateLimit:       cfg.RateLimit,
		Debounce:        cfg.Debounce,
		Deduplicate:     cfg.Deduplicate,
		Hedging:         cfg.Hedging,
		AdaptiveHedging: cfg.AdaptiveHedging,
	}

	key := GenerateCoalesceKey(req.Method, req.URL, bodyKeyBytes(req.Body))
	return req, key
}

// mergeQuery combines base and extra query parameter sets, extra winning on
// conflicting keys by replacing base's values for that key.
func mergeQuery(base, extra map[string][]string) map[string][]string {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	merged := make(map[string][]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = append(merged[k], v...)
	}
	for k, v := range extra {
		merged[k] = append([]string(nil), v...)
	}
	return merged
}

// bodyKeyBytes extracts stable bytes from a request body for coalescing
// purposes. Streaming bodies (io.Reader) are not content-addressed - a
// request with a streaming body still coalesces on method+URL, just without
// body discrimination.
func bodyKeyBytes(body any) []byte {
	switch v := body.(type) {
	case nil:
		return nil
	case []byte:
		return v
	case string:
		return []byte(v)
	case FormBody:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return b
	case *MultipartBody:
		return nil
	default:
		if _, ok := v.(interface{ Read([]byte) (int, error) }); ok {
			return nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return b
	}
}

// ExpandPath replaces {name} placeholders in path with url.PathEscape'd
// values from params, for building RequestSpec.URL from a templated route.
func ExpandPath(path string, params map[string]string) string {
	for k, v := range params {
		path = strings.ReplaceAll(path, "{"+k+"}", url.PathEscape(v))
	}
	return path
}

// endpointKey identifies an endpoint for stats and hedging purposes as the
// method plus URL path, deliberately excluding query parameters and host so
// that latency tracking and adaptive hedging generalize across query-string
// variation of the same logical call.
func endpointKey(method, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return method + " " + rawURL
	}
	return method + " " + u.Path
}

// Do runs spec through the full pipeline: debounce, then dedup, then rate
// limit, then retry (wrapping the plugin chain, the driver, and optional
// hedging), recording the outcome in Stats() before returning.
func (c *Client) Do(ctx context.Context, spec RequestSpec) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	spec.Ctx = ctx

	req, key := c.resolveRequest(spec)
	rc := newRequestContext(ctx, req, c.driver)
	endpoint := endpointKey(req.Method, req.URL)

	runAttempt := func(rc *requestContext) (*Response, error) {
		attemptCtx := rc.beginAttempt(ctx)
		rc.Ctx = attemptCtx

		runOne := func(rc2 *requestContext) (*Response, error) {
			if err := c.plugins.runRequest(rc2); err != nil {
				return nil, err
			}
			res, err := rc2.Driver.Do(rc2)
			rc2.Res, rc2.Err = res, err
			if err != nil {
				if herr := c.plugins.runResponseError(rc2); herr != nil {
					return nil, herr
				}
				return nil, err
			}
			if err := c.plugins.runResponse(rc2); err != nil {
				return nil, err
			}
			return rc2.Res, nil
		}

		if req.Hedging.Enabled() || (req.AdaptiveHedging != nil && req.AdaptiveHedging.Enabled()) {
			return c.hedger.Do(rc, endpoint, req.Hedging, req.AdaptiveHedging, runOne)
		}
		return runOne(rc)
	}

	call := func() (*Response, error) {
		u, _ := url.Parse(req.URL)
		host, path := "", req.URL
		if u != nil {
			host, path = u.Host, u.Path
		}
		bucket := bucketKey(req.RateLimit.scope(), req.Method, host, path)
		release, err := applyRequestRateLimit(ctx, c.rateLimiter, bucket, req.RateLimit)
		if err != nil {
			return nil, err
		}
		defer release()

		return c.retrier.run(rc, runAttempt)
	}

	next := call
	if req.Deduplicate.Enabled() {
		dedupedCall := next
		next = func() (*Response, error) { return c.deduper.Do(key, dedupedCall) }
	}
	if req.Debounce.Enabled() {
		debouncedCall := next
		next = func() (*Response, error) { return c.debouncer.Do(key, req.Debounce, debouncedCall) }
	}
	res, err := next()

	if c.stats != nil {
		c.stats.Record(endpoint, err == nil, rc.Attempt > 1, time.Since(rc.RequestStart), rc.RequestStart)
	}
	return res, err
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, url string, opts ...Option) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodGet, URL: url, Options: opts})
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, url string, opts ...Option) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodDelete, URL: url, Options: opts})
}

// Head issues a HEAD request.
func (c *Client) Head(ctx context.Context, url string, opts ...Option) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodHead, URL: url, Options: opts})
}

// Post issues a POST request with the given body.
func (c *Client) Post(ctx context.Context, url string, body any, opts ...Option) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodPost, URL: url, Body: body, Options: opts})
}

// Put issues a PUT request with the given body.
func (c *Client) Put(ctx context.Context, url string, body any, opts ...Option) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodPut, URL: url, Body: body, Options: opts})
}

// Patch issues a PATCH request with the given body.
func (c *Client) Patch(ctx context.Context, url string, body any, opts ...Option) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodPatch, URL: url, Body: body, Options: opts})
}

// DecodeInto runs spec through Do and re-marshals the decoded Data field
// into a concrete T, for callers who want a typed result instead of any.
// Defined as a free function, not a method, since Go methods cannot carry
// their own type parameters.
func DecodeInto[T any](c *Client, ctx context.Context, spec RequestSpec) (T, error) {
	var zero T
	res, err := c.Do(ctx, spec)
	if err != nil {
		return zero, err
	}
	encoded, err := json.Marshal(res.Data)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(encoded, &out); err != nil {
		return zero, err
	}
	return out, nil
}
