package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// contextWithTimeout composes a bounded child context for one attempt. Kept
// as a thin wrapper (rather than calling context.WithTimeout inline) so the
// Signal Manager has one place to extend if cross-attempt deadline
// propagation needs adjusting later.
func contextWithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}

// classifyContextErr recognizes context cancellation/deadline errors
// surfaced by http.Client.Do and returns the NormalizedError constructor
// that should wrap them, if any.
func classifyContextErr(err error) (func(req *ResolvedRequest, attempt int, timeout time.Duration) *NormalizedError, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return func(req *ResolvedRequest, attempt int, timeout time.Duration) *NormalizedError {
			return newTimeoutError(timeout, req, attempt, err)
		}, true
	}
	if errors.Is(err, context.Canceled) {
		return func(req *ResolvedRequest, attempt int, _ time.Duration) *NormalizedError {
			return newAbortError("context canceled", req, attempt, err)
		}, true
	}
	return nil, false
}

// Driver performs one HTTP attempt for a requestContext and normalizes the
// outcome into either a Response or a *NormalizedError. Implementations may
// be swapped via WithDriver, e.g. for MockTransport-backed tests or an
// alternative transport stack; any Driver conforming to this interface is
// accepted, regardless of what it wraps internally.
type Driver interface {
	Do(ctx *requestContext) (*Response, error)
}

// httpDriver is the default Driver, built around an *http.Client whose
// Transport is the chain assembled in client.go (transport -> retry-free
// circuit breaker -> OTel instrumentation). Retry, rate limiting,
// deduplication, and debouncing all live above the Driver in the pipeline;
// the Driver's job is exactly one attempt.
type httpDriver struct {
	httpClient   *http.Client
	debug        bool
	generateCurl bool
	enableTrace  bool
	interceptors *InterceptorChain
	logger       zerolog.Logger
}

func newHTTPDriver(httpClient *http.Client, debug, generateCurl, enableTrace bool, interceptors *InterceptorChain, logger zerolog.Logger) *httpDriver {
	return &httpDriver{
		httpClient:   httpClient,
		debug:        debug,
		generateCurl: generateCurl,
		enableTrace:  enableTrace,
		interceptors: interceptors,
		logger:       logger,
	}
}

// Do builds the *http.Request from ctx.Req, executes it, and normalizes the
// result. It never retries — that's the retry orchestrator's job one layer
// up — but it does apply ctx.Req.Timeout as a per-attempt deadline, deriving
// the attempt's context with contextWithTimeout.
func (d *httpDriver) Do(ctx *requestContext) (*Response, error) {
	req := ctx.Req

	rawURL, err := composeURL(req.BaseURL, req.URL, req.Query)
	if err != nil {
		return nil, newAbortError("invalid url", req, ctx.Attempt, err)
	}

	bodyReader, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, newAbortError("invalid body", req, ctx.Attempt, err)
	}

	attemptCtx := ctx.Ctx
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		attemptCtx, cancel = contextWithTimeout(attemptCtx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, rawURL, bodyReader)
	if err != nil {
		return nil, newAbortError("failed to build request", req, ctx.Attempt, err)
	}

	mergeHeaders(httpReq.Header, req.Headers)
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if d.interceptors != nil {
		if err := d.interceptors.ApplyRequestInterceptors(httpReq); err != nil {
			return nil, newAbortError("request interceptor rejected request", req, ctx.Attempt, err)
		}
	}

	var tracer *requestTracer
	if d.enableTrace {
		tracer = &requestTracer{totalStart: time.Now()}
		attemptCtx = httptrace.WithClientTrace(attemptCtx, tracer.clientTrace())
		httpReq = httpReq.WithContext(attemptCtx)
	}

	var curlCmd string
	if d.generateCurl {
		var bodyBytes []byte
		if httpReq.Body != nil {
			bodyBytes, _ = io.ReadAll(httpReq.Body)
			httpReq.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
		curlCmd = generateCurlCommand(httpReq, bodyBytes)
	}

	if d.debug {
		logRequest(d.logger, httpReq)
	}
	attemptStart := time.Now()

	httpResp, err := d.httpClient.Do(httpReq)
	if err != nil {
		if deadlineErr, ok := classifyContextErr(err); ok {
			return nil, deadlineErr(req, ctx.Attempt, req.Timeout)
		}
		return nil, newNetworkError(err, req, ctx.Attempt)
	}

	if d.interceptors != nil {
		if err := d.interceptors.ApplyResponseInterceptors(httpResp, httpReq); err != nil {
			return nil, newAbortError("response interceptor rejected response", req, ctx.Attempt, err)
		}
	}

	raw := &rawResponse{Response: httpResp, request: httpReq}
	body, err := raw.Body()
	if err != nil {
		return nil, newNetworkError(err, req, ctx.Attempt)
	}

	if d.debug {
		logResponse(d.logger, httpResp, time.Since(attemptStart))
	}

	if httpResp.StatusCode >= 400 && !req.IgnoreResponseError {
		return nil, newHTTPError(httpResp, body, req, ctx.Attempt)
	}

	data, err := decodeResponse(httpResp, body, req)
	if err != nil {
		return nil, newParseError(err, body, httpResp.Header, req, ctx.Attempt)
	}

	res := &Response{
		Status:     httpResp.StatusCode,
		StatusText: httpResp.Status,
		Header:     httpResp.Header,
		Data:       data,
		Curl:       curlCmd,
	}
	if tracer != nil {
		res.Trace = tracer.toTraceInfo()
	}
	return res, nil
}

// composeURL joins a base URL and a request path/URL, preserving query
// parameters from both and merging in extra params.
func composeURL(base, ref string, extraQuery map[string][]string) (string, error) {
	var full string
	if base != "" && !strings.Contains(ref, "://") {
		full = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
	} else {
		full = ref
	}

	u, err := url.Parse(full)
	if err != nil {
		return "", err
	}

	if len(extraQuery) > 0 {
		q := u.Query()
		for k, values := range extraQuery {
			for _, v := range values {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// mergeHeaders copies src into dst without clearing dst first, so
// client-level defaults seeded onto dst survive and request-level headers
// in src win on conflicting keys.
func mergeHeaders(dst, src http.Header) {
	for k, values := range src {
		dst.Del(k)
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}

// encodeBody dispatches on the dynamic type of body to produce a request
// body reader and Content-Type. A nil body yields no reader at all.
func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "", nil
	case FormBody:
		values := url.Values{}
		for k, val := range v {
			values.Set(k, val)
		}
		return strings.NewReader(values.Encode()), "application/x-www-form-urlencoded", nil
	case *MultipartBody:
		buf, ct, err := buildMultipartBody(v)
		if err != nil {
			return nil, "", err
		}
		return buf, ct, nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("encode json body: %w", err)
		}
		return bytes.NewReader(encoded), "application/json", nil
	}
}

// decodeResponse dispatches on req.ParseResponse / req.ResponseType to turn
// a raw body into the Data field of a Response.
func decodeResponse(resp *http.Response, body []byte, req *ResolvedRequest) (any, error) {
	if req.ParseResponse != nil {
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return req.ParseResponse(resp)
	}

	rt := req.ResponseType
	if rt == "" {
		rt = ResponseAuto
	}

	switch rt {
	case ResponseText, ResponseHTML:
		return string(body), nil
	case ResponseBlob, ResponseArrayBuffer, ResponseStream:
		return body, nil
	case ResponseXML:
		var v any
		if len(body) == 0 {
			return nil, nil
		}
		if err := decodeBody(body, "application/xml", &v); err != nil {
			return nil, err
		}
		return v, nil
	case ResponseNDJSON:
		var lines []any
		for _, line := range bytes.Split(body, []byte("\n")) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var v any
			if err := json.Unmarshal(line, &v); err != nil {
				return nil, err
			}
			lines = append(lines, v)
		}
		return lines, nil
	case ResponseJSON, ResponseAuto:
		if len(body) == 0 {
			return nil, nil
		}
		contentType := resp.Header.Get("Content-Type")
		if rt == ResponseAuto && !strings.Contains(contentType, "json") && contentType != "" {
			return string(body), nil
		}
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		var v any
		if len(body) == 0 {
			return nil, nil
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
