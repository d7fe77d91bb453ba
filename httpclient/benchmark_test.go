package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// BenchmarkStandardClient measures the baseline performance of the standard http.Client.
func BenchmarkStandardClient(b *testing.B) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	client := ts.Client()
	ctx := context.Background()
	url := ts.URL

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}

// BenchmarkSentinelClient_Default measures the performance of the client with default configuration.
func BenchmarkSentinelClient_Default(b *testing.B) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	client := New(
		WithBaseURL(ts.URL),
		WithDisableNetworkTrace(),
	)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		resp, err := client.Get(ctx, "/")
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		_ = resp.Data
	}
}

// BenchmarkSentinelClient_WithBreaker measures overhead of the circuit breaker.
func BenchmarkSentinelClient_WithBreaker(b *testing.B) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	client := New(
		WithBaseURL(ts.URL),
		WithDisableNetworkTrace(),
		WithBreaker(DefaultBreakerConfig()),
	)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		resp, err := client.Get(ctx, "/")
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		_ = resp.Data
	}
}

// BenchmarkSentinelClient_WithRateLimit measures overhead of rate limiting.
func BenchmarkSentinelClient_WithRateLimit(b *testing.B) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	client := New(
		WithBaseURL(ts.URL),
		WithDisableNetworkTrace(),
		WithRateLimit(RateLimitConfig{
			RequestsPerSecond: float64(rate.Inf),
			Burst:             1,
		}),
	)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		resp, err := client.Get(ctx, "/")
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		_ = resp.Data
	}
}

// BenchmarkSentinelClient_WithRetry measures overhead of the retry transport on the success path.
func BenchmarkSentinelClient_WithRetry(b *testing.B) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	client := New(
		WithBaseURL(ts.URL),
		WithDisableNetworkTrace(),
		WithRetryConfig(DefaultRetryConfig()),
	)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		resp, err := client.Get(ctx, "/")
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		_ = resp.Data
	}
}

// BenchmarkSentinelClient_FullChain measures overhead of retry + breaker + rate limit stacked together.
func BenchmarkSentinelClient_FullChain(b *testing.B) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	client := New(
		WithBaseURL(ts.URL),
		WithDisableNetworkTrace(),
		WithRetryConfig(DefaultRetryConfig()),
		WithBreaker(DefaultBreakerConfig()),
		WithRateLimit(RateLimitConfig{RequestsPerSecond: float64(rate.Inf), Burst: 1}),
	)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		resp, err := client.Get(ctx, "/", WithHeaders(http.Header{"X-Test": []string{"value"}}))
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		_ = resp.Data
	}
}

// BenchmarkSentinelClient_Deduplication measures in-flight request coalescing overhead/benefit.
func BenchmarkSentinelClient_Deduplication(b *testing.B) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	client := New(WithBaseURL(ts.URL), WithDisableNetworkTrace())
	ctx := context.Background()
	dedup := WithDeduplicate(DedupConfig{On: true})

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			resp, err := client.Get(ctx, "/", dedup)
			if err != nil {
				continue
			}
			_ = resp.Data
		}
	})
}

// BenchmarkClient_OptionAllocation measures allocation overhead of assembling a per-request option set.
func BenchmarkClient_OptionAllocation(b *testing.B) {
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		opts := []Option{
			WithQuery(map[string][]string{"q": {"value"}}),
			WithHeaders(http.Header{"X-Key": []string{"val"}}),
			WithDeduplicate(DedupConfig{On: true}),
			WithRateLimit(RateLimitConfig{RequestsPerSecond: 100, Burst: 10}),
			WithTimeout(5 * time.Second),
		}
		_ = opts
	}
}

// BenchmarkSentinelClient_WithInterceptors measures overhead of request/response interceptors.
func BenchmarkSentinelClient_WithInterceptors(b *testing.B) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer ts.Close()

	chain := NewInterceptorChain()
	chain.AddRequestInterceptor(func(req *http.Request) error {
		req.Header.Set("X-Intercepted", "true")
		return nil
	})
	chain.AddResponseInterceptor(func(resp *http.Response, _ *http.Request) error {
		_ = resp.StatusCode
		return nil
	})

	client := New(
		WithBaseURL(ts.URL),
		WithDisableNetworkTrace(),
		WithInterceptors(chain),
	)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		resp, err := client.Get(ctx, "/")
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		_ = resp.Data
	}
}

// BenchmarkSentinelClient_WithHedging measures overhead of adaptive hedging checks.
func BenchmarkSentinelClient_WithHedging(b *testing.B) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer ts.Close()

	client := New(WithBaseURL(ts.URL), WithDisableNetworkTrace())
	ctx := context.Background()
	hedgeCfg := DefaultAdaptiveHedgeConfig()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		resp, err := client.Get(ctx, "/", WithAdaptiveHedging(hedgeCfg))
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		_ = resp.Data
	}
}

// BenchmarkSentinelClient_ResponseDecoding measures the DecodeInto convenience wrapper.
func BenchmarkSentinelClient_ResponseDecoding(b *testing.B) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id": 123, "name": "benchmark", "active": true}`))
	}))
	defer ts.Close()

	client := New(WithBaseURL(ts.URL), WithDisableNetworkTrace())
	ctx := context.Background()

	type Data struct {
		ID     int    `json:"id"`
		Name   string `json:"name"`
		Active bool   `json:"active"`
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, err := DecodeInto[Data](client, ctx, RequestSpec{Method: http.MethodGet, URL: "/"})
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}

// BenchmarkSentinelClient_KitchenSink measures the full feature set stacked on a single request:
// breaker, rate limit, retry, adaptive hedging, deduplication and interceptors together.
func BenchmarkSentinelClient_KitchenSink(b *testing.B) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer ts.Close()

	chain := NewInterceptorChain()
	chain.AddRequestInterceptor(func(_ *http.Request) error { return nil })
	chain.AddResponseInterceptor(func(_ *http.Response, _ *http.Request) error { return nil })

	client := New(
		WithBaseURL(ts.URL),
		WithRetryConfig(DefaultRetryConfig()),
		WithBreaker(DefaultBreakerConfig()),
		WithRateLimit(RateLimitConfig{RequestsPerSecond: float64(rate.Inf), Burst: 1}),
		WithInterceptors(chain),
	)
	ctx := context.Background()
	hedgeCfg := DefaultAdaptiveHedgeConfig()

	type Resp struct {
		Status string `json:"status"`
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, err := DecodeInto[Resp](client, ctx, RequestSpec{
			Method: http.MethodGet,
			URL:    "/resource",
			Options: []Option{
				WithQuery(map[string][]string{"filter": {"active"}}),
				WithHeaders(http.Header{"X-Tenant": []string{"benchmark"}}),
				WithDeduplicate(DedupConfig{On: true}),
				WithAdaptiveHedging(hedgeCfg),
				WithEnableTrace(),
			},
		})
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}
