package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClient_Retry_ServiceUnavailableThenSuccess exercises the pipeline
// retry orchestrator (not the legacy RoundTripper path) through the public
// API: two 503s followed by a 200, with retry budget 2, should make exactly
// three server calls and record exactly one retried call in Stats().
func TestClient_Retry_ServiceUnavailableThenSuccess(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(
		WithBaseURL(server.URL),
		WithRetry(2),
		WithInitialDelay(1*time.Millisecond),
		WithBackoffType("exponential"),
	)

	resp, err := client.Get(context.Background(), "/flaky")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int32(3), calls.Load(), "two failed attempts plus one success")

	snap := client.Stats().Query(QueryParams{})
	require.Len(t, snap, 1)
	assert.Equal(t, uint64(1), snap[0].Total)
	assert.Equal(t, uint64(1), snap[0].Succeeded)
	assert.Equal(t, uint64(1), snap[0].RetriedCalls)
}

// TestClient_Retry_ExhaustsBudgetAndReturnsError confirms the retry budget
// bounds the attempt count rather than retrying forever.
func TestClient_Retry_ExhaustsBudgetAndReturnsError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(
		WithBaseURL(server.URL),
		WithRetry(2),
		WithInitialDelay(1*time.Millisecond),
	)

	resp, err := client.Get(context.Background(), "/always-down")
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus 2 retries, then give up")

	var ne *NormalizedError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, KindHTTPError, ne.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, ne.Status)
}

// TestClient_Retry_HonorsRetryAfterSeconds confirms a Retry-After: N header
// on a retryable error takes precedence over the computed backoff delay.
func TestClient_Retry_HonorsRetryAfterSeconds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(
		WithBaseURL(server.URL),
		WithRetry(1),
		// A deliberately huge base so that, if Retry-After were ignored, this
		// test would time out rather than silently pass.
		WithInitialDelay(5*time.Second),
		WithBackoffType("exponential"),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	resp, err := client.Get(ctx, "/retry-after")
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int32(2), calls.Load())
	assert.Less(t, elapsed, 1*time.Second, "Retry-After: 0 should override the 5s configured delay")
}

// TestClient_Retry_HonorsRetryAfterHTTPDate exercises the HTTP-date form of
// Retry-After, confirming it also overrides the computed delay.
func TestClient_Retry_HonorsRetryAfterHTTPDate(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			w.Header().Set("Retry-After", time.Now().Add(10*time.Millisecond).UTC().Format(http.TimeFormat))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(
		WithBaseURL(server.URL),
		WithRetry(1),
		WithInitialDelay(5*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/retry-after-date")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, int32(2), calls.Load())
}

// TestClient_Retry_InitialDelayAppliesOnlyToFirstRetry confirms that
// InitialDelay overrides only attempt 1's delay; later attempts fall back
// to the configured strategy scaling from RetryDelay's base rather than
// repeating InitialDelay forever.
func TestClient_Retry_InitialDelayAppliesOnlyToFirstRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var attemptTimes []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attemptTimes = append(attemptTimes, time.Now())
		n := calls.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(
		WithBaseURL(server.URL),
		WithRetry(2),
		WithRetryDelay(20*time.Millisecond),
		WithInitialDelay(1*time.Millisecond),
		WithBackoffType("linear"),
	)

	resp, err := client.Get(context.Background(), "/staggered")
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Len(t, attemptTimes, 3)

	firstGap := attemptTimes[1].Sub(attemptTimes[0])
	secondGap := attemptTimes[2].Sub(attemptTimes[1])

	assert.Less(t, firstGap, 15*time.Millisecond, "first retry should use the ~1ms InitialDelay override")
	assert.GreaterOrEqual(t, secondGap, 15*time.Millisecond, "second retry should scale from RetryDelay's base, not repeat InitialDelay")
}

// TestClient_Retry_RetryDelayIsBaseNotFlatOverride confirms a plain
// time.Duration RetryDelay seeds the selected BackoffType strategy instead
// of being returned unconditionally on every attempt.
func TestClient_Retry_RetryDelayIsBaseNotFlatOverride(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var attemptTimes []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attemptTimes = append(attemptTimes, time.Now())
		n := calls.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(
		WithBaseURL(server.URL),
		WithRetry(2),
		WithRetryDelay(15*time.Millisecond),
		WithBackoffType("exponential"),
	)

	resp, err := client.Get(context.Background(), "/scaling")
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Len(t, attemptTimes, 3)

	firstGap := attemptTimes[1].Sub(attemptTimes[0])
	secondGap := attemptTimes[2].Sub(attemptTimes[1])

	assert.Greater(t, secondGap, firstGap, "exponential strategy should grow the delay across attempts rather than repeating a flat 15ms")
}

// TestClient_Retry_TimeoutThenRetrySucceeds exercises a classified timeout
// being retried and eventually succeeding, distinct from the HTTP-status
// retry path above.
func TestClient_Retry_TimeoutThenRetrySucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			time.Sleep(50 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(
		WithBaseURL(server.URL),
		WithRetry(1),
		WithInitialDelay(1*time.Millisecond),
		WithTimeout(10*time.Millisecond),
	)

	resp, err := client.Get(context.Background(), "/slow-once")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int32(2), calls.Load())
}

// TestClient_Retry_CustomStatusCodesOverrideDefaultClassifier confirms
// RetryStatusCodes narrows (or widens) which statuses are retried.
func TestClient_Retry_CustomStatusCodesOverrideDefaultClassifier(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(
		WithBaseURL(server.URL),
		WithRetry(1),
		WithInitialDelay(1*time.Millisecond),
		WithRetryStatusCodes(http.StatusTeapot),
	)

	resp, err := client.Get(context.Background(), "/teapot-once")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, int32(2), calls.Load(), "418 isn't retryable by default but is explicitly listed here")
}
