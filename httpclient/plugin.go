package httpclient

// Plugin hooks into the request lifecycle. All three hooks are optional;
// implementations that only care about one should embed PluginFuncs instead
// of writing empty methods.
type Plugin interface {
	Name() string
	OnRequest(ctx *requestContext) error
	OnResponse(ctx *requestContext) error
	OnResponseError(ctx *requestContext) error
}

// PluginFuncs implements Plugin from a set of optional function fields, for
// callers who don't want to define a named type.
type PluginFuncs struct {
	PluginName      string
	OnRequestFunc   func(ctx *requestContext) error
	OnResponseFunc  func(ctx *requestContext) error
	OnErrorFunc     func(ctx *requestContext) error
}

func (p PluginFuncs) Name() string {
	if p.PluginName == "" {
		return "anonymous"
	}
	return p.PluginName
}

func (p PluginFuncs) OnRequest(ctx *requestContext) error {
	if p.OnRequestFunc == nil {
		return nil
	}
	return p.OnRequestFunc(ctx)
}

func (p PluginFuncs) OnResponse(ctx *requestContext) error {
	if p.OnResponseFunc == nil {
		return nil
	}
	return p.OnResponseFunc(ctx)
}

func (p PluginFuncs) OnResponseError(ctx *requestContext) error {
	if p.OnErrorFunc == nil {
		return nil
	}
	return p.OnErrorFunc(ctx)
}

// LegacyPlugin adapts the teacher's interceptor shape (success/error
// rewriters operating directly on Response/ResolvedRequest) onto the modern
// hook set, for callers migrating off AddRequestInterceptor/AddResponseInterceptor.
type LegacyPlugin struct {
	PluginName string
	OnSuccess  func(res *Response, req *ResolvedRequest) *Response
	OnError    func(err error, req *ResolvedRequest) error
}

// AsPlugin normalizes a LegacyPlugin into the modern Plugin interface.
func (l LegacyPlugin) AsPlugin() Plugin {
	return PluginFuncs{
		PluginName: l.PluginName,
		OnResponseFunc: func(ctx *requestContext) error {
			if l.OnSuccess == nil {
				return nil
			}
			if replaced := l.OnSuccess(ctx.Res, ctx.Req); replaced != nil {
				ctx.Res = replaced
			}
			return nil
		},
		OnErrorFunc: func(ctx *requestContext) error {
			if l.OnError == nil {
				return nil
			}
			if replaced := l.OnError(ctx.Err, ctx.Req); replaced != nil {
				ctx.Err = replaced
			}
			return ctx.Err
		},
	}
}

// pluginPipeline runs the registered plugins around one attempt. OnRequest
// runs forward (first-registered first); OnResponse/OnResponseError run in
// reverse, since plugins compose like wrapping middleware — whoever touches
// the request first is the last to see the response. This is a deliberate
// departure from the teacher's InterceptorChain, which ran both directions
// forward; the chain-walking shape is otherwise the same.
type pluginPipeline struct {
	plugins []Plugin
}

func newPluginPipeline() *pluginPipeline {
	return &pluginPipeline{}
}

func (p *pluginPipeline) use(plugin Plugin) {
	p.plugins = append(p.plugins, plugin)
}

// runRequest executes OnRequest in registration order. A non-nil error
// short-circuits the remaining plugins and becomes ctx.Err.
func (p *pluginPipeline) runRequest(ctx *requestContext) error {
	for _, plugin := range p.plugins {
		if err := plugin.OnRequest(ctx); err != nil {
			ctx.Err = err
			return err
		}
	}
	return nil
}

// runResponse executes OnResponse in reverse registration order.
func (p *pluginPipeline) runResponse(ctx *requestContext) error {
	for i := len(p.plugins) - 1; i >= 0; i-- {
		if err := p.plugins[i].OnResponse(ctx); err != nil {
			ctx.Err = err
			return err
		}
	}
	return nil
}

// runResponseError executes OnResponseError in reverse registration order.
// Each hook may replace ctx.Err with its own return value.
func (p *pluginPipeline) runResponseError(ctx *requestContext) error {
	for i := len(p.plugins) - 1; i >= 0; i-- {
		if err := p.plugins[i].OnResponseError(ctx); err != nil {
			ctx.Err = err
		}
	}
	return ctx.Err
}
