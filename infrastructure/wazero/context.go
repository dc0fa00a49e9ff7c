package wazero

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// Caller identifies the guest side of a host function call.
type Caller struct {
	// Guest is the instance name of the calling guest module.
	Guest string
	// HostModule is the host module name the guest imported from, which
	// differs from the record name when WithModuleName is used.
	HostModule string
}

type callerKey struct{}

// WithCaller attaches c to ctx. Native functions taking a context.Context
// receive it through Record.Invoke.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the Caller attached by the host function
// wrapper, if any.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// callerOf keeps a Caller already present in ctx and otherwise derives one
// from the calling module.
func callerOf(ctx context.Context, mod api.Module, hostModule string) Caller {
	if c, ok := CallerFromContext(ctx); ok {
		return c
	}
	return Caller{Guest: mod.Name(), HostModule: hostModule}
}
