package hostfuncs

import (
	"context"
)

// CallContext wraps a context.Context with the identity of the export being
// invoked. Native functions that take a context.Context receive one.
type CallContext interface {
	context.Context

	// Module returns the name of the module that owns the export.
	Module() string

	// Function returns the exported name being invoked.
	Function() string
}

type callContextKey struct{}

type callContext struct {
	context.Context
	module   string
	function string
}

func (c *callContext) Module() string {
	return c.module
}

func (c *callContext) Function() string {
	return c.function
}

// Value keeps the call identity reachable after ctx is wrapped again.
func (c *callContext) Value(key any) any {
	if key == (callContextKey{}) {
		return c
	}
	return c.Context.Value(key)
}

// WithCall returns a CallContext for an invocation of module.function.
func WithCall(ctx context.Context, module, function string) CallContext {
	if cc, ok := ctx.(*callContext); ok && cc.module == module && cc.function == function {
		return cc
	}
	return &callContext{Context: ctx, module: module, function: function}
}

// CallContextFrom extracts a CallContext from ctx.
func CallContextFrom(ctx context.Context) (CallContext, bool) {
	if cc, ok := ctx.(CallContext); ok {
		return cc, true
	}
	if cc, ok := ctx.Value(callContextKey{}).(*callContext); ok {
		return cc, true
	}
	return nil, false
}
