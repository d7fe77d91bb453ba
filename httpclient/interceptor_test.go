package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthBearerInterceptor(t *testing.T) {
	t.Parallel()

	var capturedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	chain := NewInterceptorChain()
	chain.AddRequestInterceptor(AuthBearerInterceptor("test-token-123"))

	client := New(
		WithBaseURL(server.URL),
		WithInterceptors(chain),
	)

	_, err := client.Get(context.Background(), "/test")
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token-123", capturedAuth)
}

func TestAPIKeyInterceptor(t *testing.T) {
	t.Parallel()

	var capturedAPIKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedAPIKey = r.Header.Get("X-API-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	chain := NewInterceptorChain()
	chain.AddRequestInterceptor(APIKeyInterceptor("X-API-Key", "my-secret-key"))

	client := New(
		WithBaseURL(server.URL),
		WithInterceptors(chain),
	)

	_, err := client.Get(context.Background(), "/test")
	require.NoError(t, err)

	assert.Equal(t, "my-secret-key", capturedAPIKey)
}

func TestUserAgentInterceptor(t *testing.T) {
	t.Parallel()

	var capturedUA string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	chain := NewInterceptorChain()
	chain.AddRequestInterceptor(UserAgentInterceptor("MyApp/1.0"))

	client := New(
		WithBaseURL(server.URL),
		WithInterceptors(chain),
	)

	_, err := client.Get(context.Background(), "/test")
	require.NoError(t, err)

	assert.Equal(t, "MyApp/1.0", capturedUA)
}

func TestMultipleInterceptors_ExecuteInOrder(t *testing.T) {
	t.Parallel()

	var order []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	chain := NewInterceptorChain()
	chain.AddRequestInterceptor(func(_ *http.Request) error {
		order = append(order, "first")
		return nil
	})
	chain.AddRequestInterceptor(func(_ *http.Request) error {
		order = append(order, "second")
		return nil
	})
	chain.AddRequestInterceptor(func(_ *http.Request) error {
		order = append(order, "third")
		return nil
	})

	client := New(
		WithBaseURL(server.URL),
		WithInterceptors(chain),
	)

	_, err := client.Get(context.Background(), "/test")
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestInterceptor_ErrorStopsChain(t *testing.T) {
	t.Parallel()

	errInterceptor := errors.New("interceptor error")
	var secondCalled bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	chain := NewInterceptorChain()
	chain.AddRequestInterceptor(func(_ *http.Request) error {
		return errInterceptor
	})
	chain.AddRequestInterceptor(func(_ *http.Request) error {
		secondCalled = true
		return nil
	})

	client := New(
		WithBaseURL(server.URL),
		WithInterceptors(chain),
	)

	_, err := client.Get(context.Background(), "/test")
	require.Error(t, err)
	require.ErrorIs(t, err, errInterceptor)
	assert.False(t, secondCalled, "second interceptor should not be called")
}

func TestResponseInterceptor(t *testing.T) {
	t.Parallel()

	var capturedStatus int
	var capturedMethod string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	chain := NewInterceptorChain()
	chain.AddResponseInterceptor(func(resp *http.Response, req *http.Request) error {
		capturedStatus = resp.StatusCode
		capturedMethod = req.Method
		return nil
	})

	client := New(
		WithBaseURL(server.URL),
		WithInterceptors(chain),
	)

	_, err := client.Post(context.Background(), "/test", nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, capturedStatus)
	assert.Equal(t, http.MethodPost, capturedMethod)
}

func TestResponseInterceptor_ErrorReturned(t *testing.T) {
	t.Parallel()

	errResponse := errors.New("response interceptor error")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	chain := NewInterceptorChain()
	chain.AddResponseInterceptor(func(_ *http.Response, _ *http.Request) error {
		return errResponse
	})

	client := New(
		WithBaseURL(server.URL),
		WithInterceptors(chain),
	)

	_, err := client.Get(context.Background(), "/test")
	require.Error(t, err)
	assert.ErrorIs(t, err, errResponse)
}

func TestBothRequestAndResponseInterceptors(t *testing.T) {
	t.Parallel()

	var requestCalled, responseCalled atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	chain := NewInterceptorChain()
	chain.AddRequestInterceptor(func(_ *http.Request) error {
		requestCalled.Store(true)
		return nil
	})
	chain.AddResponseInterceptor(func(_ *http.Response, _ *http.Request) error {
		responseCalled.Store(true)
		return nil
	})

	client := New(
		WithBaseURL(server.URL),
		WithInterceptors(chain),
	)

	_, err := client.Get(context.Background(), "/test")
	require.NoError(t, err)

	assert.True(t, requestCalled.Load())
	assert.True(t, responseCalled.Load())
}

func TestCorrelationIDInterceptor(t *testing.T) {
	t.Parallel()

	var capturedCorrelationID string
	callCount := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedCorrelationID = r.Header.Get("X-Correlation-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	chain := NewInterceptorChain()
	chain.AddRequestInterceptor(CorrelationIDInterceptor("X-Correlation-ID", func() string {
		callCount++
		return "corr-id-" + string(rune('0'+callCount))
	}))

	client := New(
		WithBaseURL(server.URL),
		WithInterceptors(chain),
	)

	_, err := client.Get(context.Background(), "/test")
	require.NoError(t, err)
	assert.Equal(t, "corr-id-1", capturedCorrelationID)

	_, err = client.Get(context.Background(), "/test")
	require.NoError(t, err)
	assert.Equal(t, "corr-id-2", capturedCorrelationID)
}
