package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingPlugin(name string, order *[]string) Plugin {
	return PluginFuncs{
		PluginName: name,
		OnRequestFunc: func(_ *requestContext) error {
			*order = append(*order, name+":request")
			return nil
		},
		OnResponseFunc: func(_ *requestContext) error {
			*order = append(*order, name+":response")
			return nil
		},
		OnErrorFunc: func(_ *requestContext) error {
			*order = append(*order, name+":error")
			return nil
		},
	}
}

func TestPluginPipeline_RequestOrderForward_ResponseOrderReverse(t *testing.T) {
	t.Parallel()

	var order []string
	pipeline := newPluginPipeline()
	pipeline.use(recordingPlugin("p1", &order))
	pipeline.use(recordingPlugin("p2", &order))
	pipeline.use(recordingPlugin("p3", &order))

	ctx := &requestContext{Ctx: context.Background()}

	require.NoError(t, pipeline.runRequest(ctx))
	assert.Equal(t, []string{"p1:request", "p2:request", "p3:request"}, order)

	order = nil
	require.NoError(t, pipeline.runResponse(ctx))
	assert.Equal(t, []string{"p3:response", "p2:response", "p1:response"}, order)
}

func TestPluginPipeline_RunResponseError_ReverseOrder_AndLatestErrorWins(t *testing.T) {
	t.Parallel()

	var order []string
	pipeline := newPluginPipeline()
	pipeline.use(recordingPlugin("p1", &order))
	pipeline.use(recordingPlugin("p2", &order))
	pipeline.use(recordingPlugin("p3", &order))

	ctx := &requestContext{Ctx: context.Background(), Err: errors.New("boom")}

	err := pipeline.runResponseError(ctx)
	assert.Equal(t, []string{"p3:error", "p2:error", "p1:error"}, order)
	assert.Equal(t, ctx.Err, err)
}

func TestPluginPipeline_RunRequest_ShortCircuitsOnError(t *testing.T) {
	t.Parallel()

	var order []string
	pipeline := newPluginPipeline()
	pipeline.use(recordingPlugin("p1", &order))
	pipeline.use(PluginFuncs{
		PluginName: "p2",
		OnRequestFunc: func(_ *requestContext) error {
			order = append(order, "p2:request")
			return errors.New("p2 refused")
		},
	})
	pipeline.use(recordingPlugin("p3", &order))

	ctx := &requestContext{Ctx: context.Background()}
	err := pipeline.runRequest(ctx)

	require.Error(t, err)
	assert.Equal(t, []string{"p1:request", "p2:request"}, order, "p3 should never run after p2 short-circuits")
	assert.Equal(t, err, ctx.Err)
}

func TestLegacyPlugin_AsPlugin_AdaptsSuccessAndErrorRewriters(t *testing.T) {
	t.Parallel()

	legacy := LegacyPlugin{
		PluginName: "legacy",
		OnSuccess: func(res *Response, _ *ResolvedRequest) *Response {
			res.StatusText = "rewritten"
			return res
		},
		OnError: func(err error, _ *ResolvedRequest) error {
			return errors.New("wrapped: " + err.Error())
		},
	}
	plugin := legacy.AsPlugin()

	ctx := &requestContext{Ctx: context.Background(), Res: &Response{Status: http.StatusOK}}
	require.NoError(t, plugin.OnResponse(ctx))
	assert.Equal(t, "rewritten", ctx.Res.StatusText)

	ctx2 := &requestContext{Ctx: context.Background(), Err: errors.New("original")}
	err := plugin.OnResponseError(ctx2)
	require.Error(t, err)
	assert.Equal(t, "wrapped: original", err.Error())
	assert.Equal(t, ctx2.Err, err)
}

func TestClient_Use_PluginObservesRequestAndResponseInRegistrationOrder(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var order []string
	client := New(WithBaseURL(server.URL))
	client.Use(recordingPlugin("p1", &order))
	client.Use(recordingPlugin("p2", &order))
	client.Use(recordingPlugin("p3", &order))

	resp, err := client.Get(context.Background(), "/ping")
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, []string{
		"p1:request", "p2:request", "p3:request",
		"p3:response", "p2:response", "p1:response",
	}, order)
}
