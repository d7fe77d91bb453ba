package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ResponseType selects how the driver decodes a response body when no
// ParseResponse override is supplied.
type ResponseType string

const (
	ResponseAuto        ResponseType = "auto"
	ResponseJSON        ResponseType = "json"
	ResponseText        ResponseType = "text"
	ResponseBlob        ResponseType = "blob"
	ResponseArrayBuffer ResponseType = "arrayBuffer"
	ResponseStream      ResponseType = "stream"
	ResponseXML         ResponseType = "xml"
	ResponseHTML        ResponseType = "html"
	ResponseNDJSON      ResponseType = "ndjson"
)

// FormBody marshals as application/x-www-form-urlencoded.
type FormBody map[string]string

// MultipartBody marshals as multipart/form-data.
type MultipartBody struct {
	Fields []multipartField
	Files  []FileUpload
}

type multipartField struct {
	key, value string
}

// AddField appends a form field, preserving insertion order.
func (m *MultipartBody) AddField(key, value string) *MultipartBody {
	m.Fields = append(m.Fields, multipartField{key, value})
	return m
}

// AddFile attaches a file upload built from an in-memory or streamed reader.
func (m *MultipartBody) AddFile(fieldName, fileName string, upload FileUpload) *MultipartBody {
	upload.FieldName = fieldName
	upload.FileName = fileName
	m.Files = append(m.Files, upload)
	return m
}

// RequestSpec is the caller-facing description of one HTTP call. It is
// immutable from the caller's perspective; the pipeline deep-copies it into
// a ResolvedRequest before mutating anything.
type RequestSpec struct {
	Method  string
	URL     string
	Headers http.Header
	Query   map[string][]string
	Body    any
	Options []Option
	Ctx     context.Context
}

// ResolvedRequest is what the driver actually sees: the merge of client-level
// configuration with any per-request overrides, field by field, with the
// request winning on conflict.
type ResolvedRequest struct {
	Method  string
	URL     string
	Headers http.Header
	Query   map[string][]string
	Body    any

	BaseURL             string
	Timeout             time.Duration
	Retry               uint
	RetryDelay          any // time.Duration or func(*requestContext) time.Duration
	RetryStatusCodes    map[int]bool
	BackoffType         string
	BackoffMaxDelay     time.Duration
	BackoffDelays       []time.Duration
	InitialDelay        time.Duration
	ShouldRetry         func(ctx *requestContext) bool
	ResponseType        ResponseType
	ParseResponse       func(resp *http.Response) (any, error)
	IgnoreResponseError bool

	RateLimit       RateLimitConfig
	Debounce        DebounceConfig
	Deduplicate     DedupConfig
	Hedging         HedgeConfig
	AdaptiveHedging *AdaptiveHedgeConfig

	OverallDeadline time.Duration
}

// Response is the decoded result of a successful (or IgnoreResponseError'd)
// call.
type Response struct {
	Status     int
	StatusText string
	Header     http.Header
	Data       any

	HedgeMeta *HedgeMeta

	// Curl holds the equivalent cURL command for the request that produced
	// this response, populated only when the client has curl generation
	// enabled.
	Curl string

	// Trace holds httptrace-derived timing for this attempt, populated only
	// when the client has tracing enabled.
	Trace *TraceInfo
}

// IsSuccess reports whether the status is 2xx.
func (r *Response) IsSuccess() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// HedgeMeta records which attempt of a hedged call won.
type HedgeMeta struct {
	Winner       string
	Attempts     int
	LatencySaved time.Duration
}

// requestContext is the shared, mutable object threaded through the plugin
// pipeline, the retry orchestrator, and the driver for a single user call.
// It embeds no context.Context directly; Ctx holds the live composite
// context for the current attempt instead, since each retry replaces it.
type requestContext struct {
	Req          *ResolvedRequest
	Res          *Response
	Err          error
	Ctx          context.Context
	Controller   context.CancelFunc
	Attempt      int
	Meta         map[string]any
	RequestID    string
	RequestStart time.Time
	Driver       Driver
}

// newRequestContext seeds a fresh context for the first attempt of a call.
func newRequestContext(ctx context.Context, req *ResolvedRequest, driver Driver) *requestContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &requestContext{
		Req:          req,
		Ctx:          ctx,
		Attempt:      1,
		Meta:         make(map[string]any),
		RequestID:    uuid.NewString(),
		RequestStart: time.Now(),
		Driver:       driver,
	}
}

// beginAttempt cancels any live controller from a previous attempt and
// installs a fresh one, composed from the given parent context.
func (c *requestContext) beginAttempt(parent context.Context) context.Context {
	if c.Controller != nil {
		c.Controller()
	}
	ctx, cancel := context.WithCancel(parent)
	c.Controller = cancel
	c.Ctx = ctx
	return ctx
}
