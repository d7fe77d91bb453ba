// Package httpclient provides a production-ready HTTP client with built-in
// resilience, observability, and OpenTelemetry instrumentation.
//
// # Features
//
//   - OpenTelemetry tracing with detailed span attributes
//   - Prometheus-compatible metrics for request latency, errors, retries
//   - Automatic retries with exponential backoff and jitter
//   - Semantic retry classification (429, 502-504 → retry; 4xx → stop)
//   - Circuit Breaker pattern (local and distributed, Redis-backed)
//   - Request debouncing and in-flight deduplication
//   - Per-scope rate limiting
//   - Hedged Requests for tail latency optimization, with adaptive delay
//   - Chaos Injection for resilience testing
//   - Connection pooling with configurable limits
//   - Network tracing (DNS, TLS, connect timing)
//
// # Quick Start
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("https://api.example.com"),
//	    httpclient.WithServiceName("my-service"),
//	)
//
//	// Simple GET request
//	resp, err := client.Get(ctx, "/users")
//
//	// POST with JSON body; resp.Data holds the decoded body
//	resp, err := client.Post(ctx, "/users", newUser)
//
// Or decode straight into a concrete type with the generic helper:
//
//	user, err := httpclient.DecodeInto[User](client, ctx, httpclient.RequestSpec{
//	    Method: http.MethodPost,
//	    URL:    "/users",
//	    Body:   newUser,
//	})
//
// For raw *http.Client access (advanced usage):
//
//	httpClient := client.HTTP()
//	resp, err := httpClient.Do(req)
//
// # Request Pipeline
//
// Every call to Do (and the Get/Post/Put/Patch/Delete/Head shorthands) runs
// through the same ordered pipeline:
//
//	debounce -> dedup -> rate limit -> retry -> (plugins -> driver [-> hedge] -> plugins)
//
// Debounce and dedup key on method + URL + body; when both are enabled they
// compose, debounce first and then dedup. Rate limiting
// and retry always run. Plugins wrap the driver call on every attempt;
// hedging, if enabled, races the plugin+driver call from inside a single
// attempt rather than replacing the retry loop.
//
// # Configuration Presets
//
// The package provides pre-tuned transport configurations for common
// scenarios:
//
//	// High-throughput: 500 idle conns, 100 per host, 30s timeout
//	client := httpclient.New(httpclient.WithConfig(httpclient.HighThroughputConfig()))
//
//	// Low-latency: 5s timeout, 2s dial, 32KB buffers
//	client := httpclient.New(httpclient.WithConfig(httpclient.LowLatencyConfig()))
//
//	// Conservative: 20 idle conns, 5 per host, 10s timeout
//	client := httpclient.New(httpclient.WithConfig(httpclient.ConservativeConfig()))
//
// # Retry
//
// The pipeline's retry orchestrator is driven by WithRetry and friends:
//
//	client := httpclient.New(
//	    httpclient.WithRetry(3),
//	    httpclient.WithBackoffType("exponentialJitter"),
//	    httpclient.WithBackoffMaxDelay(10*time.Second),
//	    httpclient.WithRetryStatusCodes(429, 502, 503, 504),
//	)
//
// WithBackoffType accepts "linear", "exponential", "exponentialCapped",
// "fibonacci", "jitter", "exponentialJitter", or "custom" (paired with
// WithBackoffDelays for an explicit schedule).
//
// # Transport-Level Retry
//
// NewRetryTransport wraps a raw http.RoundTripper with retry logic driven by
// RetryConfig instead of the pipeline orchestrator above - useful when
// layering retry beneath a library that only accepts an http.RoundTripper,
// or below a Client's own transport chain:
//
//	// Default: 3 retries, 500ms initial, 2x multiplier, jitter
//	transport := httpclient.NewRetryTransport(http.DefaultTransport,
//	    httpclient.WithRetryConfig(httpclient.DefaultRetryConfig()),
//	)
//
//	// Aggressive: 5 retries, 200ms initial, for critical operations
//	transport := httpclient.NewRetryTransport(http.DefaultTransport,
//	    httpclient.WithRetryConfig(httpclient.AggressiveRetryConfig()),
//	)
//
//	// Custom classifier
//	transport := httpclient.NewRetryTransport(http.DefaultTransport,
//	    httpclient.WithRetryConfig(httpclient.AggressiveRetryConfig()),
//	    httpclient.WithRetryClassifier(func(resp *http.Response, err error) bool {
//	        return resp != nil && resp.StatusCode >= 500
//	    }),
//	)
//
// Beyond exponential backoff, NewRetryTransport accepts custom strategies:
//
//	// Linear backoff: 500ms -> 1s -> 1.5s -> 2s
//	transport := httpclient.NewRetryTransport(http.DefaultTransport,
//	    httpclient.WithRetryConfig(httpclient.DefaultRetryConfig()),
//	    httpclient.WithRetryBackOff(httpclient.NewLinearBackOff()),
//	)
//
//	// AWS-style decorrelated jitter for high-contention scenarios
//	transport := httpclient.NewRetryTransport(http.DefaultTransport,
//	    httpclient.WithRetryConfig(httpclient.DefaultRetryConfig()),
//	    httpclient.WithRetryBackOff(httpclient.NewDecorrelatedJitterBackOff()),
//	)
//
//	// Tiered retry: fixed delays per tier, then a cap
//	tiers := []httpclient.RetryTier{
//	    {MaxRetries: 5, Delay: 1 * time.Minute},
//	    {MaxRetries: 5, Delay: 2 * time.Minute},
//	}
//	transport := httpclient.NewRetryTransport(http.DefaultTransport,
//	    httpclient.WithTieredRetry(tiers, 10*time.Minute),
//	)
//
// # Circuit Breaker
//
// The client supports both local (in-memory) and distributed (Redis-backed)
// circuit breakers. The breaker wraps the driver's transport and is scoped
// to the client instance, named using the service name.
//
// Local circuit breaker (default is disabled; opt in explicitly):
//
//	client := httpclient.New(
//	    httpclient.WithServiceName("payment-service"),
//	    httpclient.WithBreaker(httpclient.DefaultBreakerConfig()),
//	)
//
// Distributed circuit breaker, backed by Redis:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := httpclient.NewRedisStore(rdb)
//
//	client := httpclient.New(
//	    httpclient.WithServiceName("payment-service"),
//	    httpclient.WithBreaker(httpclient.DistributedBreakerConfig(store)),
//	)
//
// Custom thresholds:
//
//	cfg := httpclient.DefaultBreakerConfig()
//	cfg.FailureThreshold = 5
//	cfg.Timeout = 60 * time.Second
//
//	client := httpclient.New(
//	    httpclient.WithServiceName("critical-service"),
//	    httpclient.WithBreaker(cfg),
//	)
//
// # Chaos Injection (Testing)
//
// Simulate failures to exercise resilience patterns in tests:
//
//	// Add latency to test timeout handling
//	client := httpclient.New(
//	    httpclient.WithChaos(httpclient.ChaosConfig{
//	        LatencyMs:       200,
//	        LatencyJitterMs: 100,
//	    }),
//	)
//
//	// Inject errors to test the circuit breaker
//	client := httpclient.New(
//	    httpclient.WithChaos(httpclient.ChaosConfig{ErrorRate: 0.5}),
//	    httpclient.WithBreaker(httpclient.DefaultBreakerConfig()),
//	)
//
// WARNING: do not use in production.
//
// # Hedged Requests (Tail Latency)
//
// Reduce tail latency by sending duplicate requests on slow responses.
// Hedging is a per-call option:
//
//	// Simple: hedge after 50ms
//	resp, err := client.Get(ctx, "/users/123", httpclient.WithHedging(httpclient.HedgeConfig{
//	    Delay:     50 * time.Millisecond,
//	    MaxHedges: 2,
//	}))
//
// Based on Google's "The Tail at Scale" paper: the first response wins, the
// remaining attempts are cancelled.
//
// IMPORTANT: only use for idempotent operations (GET, HEAD, etc.).
//
// # Adaptive Hedging
//
// Don't know your P95 latency? Adaptive hedging derives the hedge delay from
// the client's own recorded per-endpoint latency instead of a fixed value:
//
//	resp, err := client.Get(ctx, "/users/123",
//	    httpclient.WithAdaptiveHedging(httpclient.DefaultAdaptiveHedgeConfig()))
//
//	// Custom percentile/sample floor
//	resp, err := client.Get(ctx, "/users/123",
//	    httpclient.WithAdaptiveHedging(httpclient.AdaptiveHedgeConfig{
//	        TargetPercentile: 0.99,
//	        MinSamples:       20,
//	        FallbackDelay:    100 * time.Millisecond,
//	        MaxHedges:        2,
//	    }))
//
// Until MinSamples is reached for an endpoint, FallbackDelay is used.
//
// # Transport-Level Hedging
//
// NewHedgeTransport offers the same hedging strategy one layer down, as a
// raw http.RoundTripper, for callers assembling their own *http.Client
// outside of New():
//
//	transport := httpclient.NewHedgeTransport(http.DefaultTransport, httpclient.HedgeConfig{
//	    Delay:     50 * time.Millisecond,
//	    MaxHedges: 2,
//	})
//
// # Request Deduplication
//
// Coalesce simultaneous identical requests using singleflight, with an
// optional short-lived result cache:
//
//	client := httpclient.New(httpclient.WithDeduplicate(httpclient.DedupConfig{
//	    CacheTTL: 2 * time.Second,
//	}))
//	resp, err := client.Get(ctx, "/users/123")
//
// The result cache is built once by New from the client-level option; a
// per-request WithDeduplicate turns coalescing on for that call but does not
// change the cache settings.
//
// When multiple goroutines issue the same request concurrently, only one
// executes; the rest wait and share its result. Sequential requests always
// make a fresh call once any cache window expires.
//
// Use for idempotent read operations to reduce downstream load during cache
// stampedes or high concurrency.
//
// # Request Debouncing
//
// Trailing-edge debounce collapses a burst of calls sharing a key into the
// single call made once the burst settles:
//
//	resp, err := client.Post(ctx, "/search", query, httpclient.WithDebounce(httpclient.DebounceConfig{
//	    Wait: 200 * time.Millisecond,
//	}))
//
// Deduplicate and debounce compose when both are enabled on the same
// request: the debounce quiet period elapses first, then the surviving call
// is deduplicated against any other in-flight request sharing its key.
//
// # Per-Request Timeout
//
// Override the client's default timeout for specific calls:
//
//	resp, err := client.Get(ctx, "/health", httpclient.WithTimeout(1*time.Second))
//	resp, err := client.Get(ctx, "/exports/large", httpclient.WithTimeout(5*time.Minute))
//
// The effective timeout is the minimum of the context deadline, the
// client's own Timeout, and WithTimeout: WithTimeout can only shorten the
// deadline, never extend it.
//
// # Rate Limiting
//
// Proactively respect API rate limits to prevent 429 errors.
//
// Client-level rate limiting, applied to all requests:
//
//	client := httpclient.New(
//	    httpclient.WithRateLimit(httpclient.RateLimitConfig{
//	        RequestsPerSecond: 100,
//	        Burst:             10,
//	        WaitOnLimit:       true, // wait for a token
//	    }),
//	)
//
// Per-request rate limiting, e.g. a bulk endpoint limited tighter than the
// client default:
//
//	resp, err := client.Get(ctx, "/exports", httpclient.WithRateLimit(httpclient.RateLimitConfig{
//	    RequestsPerSecond: 10,
//	    Scope:             httpclient.ScopeEndpoint,
//	}))
//
// WaitOnLimit=false returns ErrRateLimited immediately instead of waiting.
// A request-level WithRateLimit replaces the client-level config for that
// call; the two are not combined. Buckets are keyed by scope (global, host,
// or method + path), and a bucket keeps the rate and burst of the config
// that first created it.
//
// # Request/Response Interceptors
//
// Interceptors run immediately before a request is sent and immediately
// after its response is received, below the plugin pipeline - they operate
// on raw *http.Request/*http.Response rather than the decoded Response.
//
//	chain := httpclient.NewInterceptorChain()
//	chain.AddRequestInterceptor(httpclient.AuthBearerInterceptor(token))
//	chain.AddResponseInterceptor(func(resp *http.Response, req *http.Request) error {
//	    log.Printf("%s %s -> %d", req.Method, req.URL, resp.StatusCode)
//	    return nil
//	})
//
//	client := httpclient.New(httpclient.WithInterceptors(chain))
//
// Built-in request interceptors:
//   - AuthBearerInterceptor(token) - static bearer token
//   - AuthBearerFuncInterceptor(fn) - dynamic/refreshable token
//   - APIKeyInterceptor(header, key) - API key header
//   - CorrelationIDInterceptor(header, fn) - request correlation
//   - UserAgentInterceptor(ua) - custom User-Agent
//
// # Plugins
//
// Plugins wrap every attempt at the pipeline's innermost stage, around the
// driver call, and see the decoded Response rather than the raw
// *http.Response. LegacyPlugin adapts a success/error rewriter pair into a
// Plugin without needing the unexported attempt-context type:
//
//	client := httpclient.New()
//	client.Use(httpclient.LegacyPlugin{
//	    PluginName: "response-logger",
//	    OnSuccess: func(res *httpclient.Response, req *httpclient.ResolvedRequest) *httpclient.Response {
//	        log.Printf("%s %s -> %d", req.Method, req.URL, res.Status)
//	        return nil
//	    },
//	}.AsPlugin())
//
// # File Uploads
//
// Multipart bodies are built explicitly and passed as the request body:
//
//	body := (&httpclient.MultipartBody{}).
//	    AddFile("document", "report.pdf", httpclient.NewFileUpload("/path/to/report.pdf")).
//	    AddField("title", "My Document")
//
//	resp, err := client.Post(ctx, "/upload", body)
//
// # Mock Transport (Testing)
//
// Test HTTP clients without network calls using MockTransport:
//
//	mock := httpclient.NewMockTransport().
//	    StubPath("/users", http.StatusOK, `[{"id":1}]`).
//	    StubPath("/posts", http.StatusNotFound, `{"error":"not found"}`)
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("https://api.example.com"),
//	    httpclient.WithMockTransport(mock),
//	)
//
//	resp, _ := client.Get(ctx, "/users")
//
// Stubbing methods:
//   - StubResponse(status, body) - default for all requests
//   - StubPath(path, status, body) - exact path match
//   - StubPathRegex(pattern, status, body) - regex path match
//   - StubMethod(method, status, body) - HTTP method match
//   - StubFunc(matcher, status, body) - custom matcher function
//   - StubError(err) - simulate network errors
//
// Request tracking:
//
//	_ = mock.Requests()     // all captured requests
//	_ = mock.RequestCount() // number of requests
//	_ = mock.LastRequest()  // most recent request
//
// # Observability
//
// The client automatically emits:
//
// Metrics:
//   - http.client.request.duration (histogram)
//   - http.client.retry.attempts (counter)
//   - http.client.retry.exhausted (counter)
//   - http.client.circuit_breaker.state (gauge, 0=Closed, 1=HalfOpen, 2=Open)
//   - http.client.circuit_breaker.requests (counter, result=success/failure/rejected)
//   - http.client.dns.duration (histogram)
//   - http.client.tls.duration (histogram)
//
// Traces:
//   - Spans for each request with method, URL, status code
//   - Retry events with attempt number and delay
//   - Network timing events (DNS, TLS, connect)
//
// Per-endpoint latency and outcome stats (independent of OTel) are available
// via Client.Stats(), backed by an HDR histogram per endpoint.
//
// # Transport Wrapping
//
// Wrap an existing transport with instrumentation only, without the
// resilience pipeline:
//
//	transport := httpclient.NewTransport(http.DefaultTransport,
//	    httpclient.WithServiceName("my-service"),
//	)
//	httpClient := &http.Client{Transport: transport}
//
// Or wrap an existing *http.Client, and get a Client back with the full
// pipeline wired around it:
//
//	httpClient := &http.Client{Timeout: 30 * time.Second}
//	client := httpclient.WrapClient(httpClient,
//	    httpclient.WithServiceName("my-service"),
//	)
//
// # Debug Utilities
//
// Enable debug logging and cURL command generation:
//
//	client := httpclient.New(
//	    httpclient.WithVerbose(),     // logs requests/responses with zerolog
//	    httpclient.WithGenerateCurl(), // populates Response.Curl
//	    httpclient.WithEnableTrace(),  // populates Response.Trace
//	)
//
//	resp, err := client.Get(ctx, "/api")
//	fmt.Println(resp.Curl)  // equivalent cURL command
//	fmt.Println(resp.Trace) // DNS, connect, TLS, server timing
package httpclient
