package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	nmerrors "github.com/python-project-templates/nativemod/domain/errors"
)

// Handler is the uniform host-callable signature every native function is
// reduced to. A non-nil error is always an *entities.ErrorDetail once it
// leaves Function.Call.
type Handler func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error)

// Signature describes the native shape behind a wrapped function.
type Signature struct {
	// Result is nil when the function returns no value.
	Result reflect.Type

	// Params are the positional parameter types, excluding a leading
	// context.Context. For variadic functions the last entry is the slice type.
	Params []reflect.Type

	Context  bool
	Fallible bool
	Variadic bool
}

// Arity returns the number of fixed positional parameters.
func (s Signature) Arity() int {
	if s.Variadic {
		return len(s.Params) - 1
	}
	return len(s.Params)
}

// ParamType returns the Go type the argument at position i decodes into.
func (s Signature) ParamType(i int) reflect.Type {
	if s.Variadic && i >= len(s.Params)-1 {
		return s.Params[len(s.Params)-1].Elem()
	}
	return s.Params[i]
}

func (s Signature) String() string {
	params := make([]string, 0, len(s.Params)+1)
	if s.Context {
		params = append(params, "context.Context")
	}
	for i, p := range s.Params {
		if s.Variadic && i == len(s.Params)-1 {
			params = append(params, "..."+p.Elem().String())
			continue
		}
		params = append(params, p.String())
	}

	var results []string
	if s.Result != nil {
		results = append(results, s.Result.String())
	}
	if s.Fallible {
		results = append(results, "error")
	}

	out := "func(" + strings.Join(params, ", ") + ")"
	switch len(results) {
	case 0:
	case 1:
		out += " " + results[0]
	default:
		out += " (" + strings.Join(results, ", ") + ")"
	}
	return out
}

// Function is one native capability in host-callable form. It is immutable
// and holds no state between calls.
type Function struct {
	native  any
	handler Handler
	sig     Signature
}

// newFunction installs panic recovery directly around the native handler, so
// it stays innermost below any middleware added later.
func newFunction(native any, sig Signature, h Handler) *Function {
	return &Function{native: native, handler: PanicRecoveryMiddleware()(h), sig: sig}
}

// Signature returns the native signature of the wrapped function.
func (f *Function) Signature() Signature {
	return f.sig
}

// Native returns the underlying native function value.
func (f *Function) Native() any {
	return f.native
}

// Call invokes the native function with JSON-encoded positional arguments.
// Panics are recovered, and every error is returned as *entities.ErrorDetail.
// The outer recovery here catches panics raised by middleware.
func (f *Function) Call(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := PanicRecoveryMiddleware()(f.handler)(ctx, args)
	if err != nil {
		return nil, nmerrors.ToErrorDetail(err)
	}
	if len(resp) == 0 {
		resp = json.RawMessage("null")
	}
	return resp, nil
}

// WithMiddleware returns a new Function whose handler is wrapped by mw in
// FIFO order (the first middleware is outermost). f is left untouched.
func (f *Function) WithMiddleware(mw ...Middleware) *Function {
	if len(mw) == 0 {
		return f
	}
	return &Function{native: f.native, handler: Chain(f.handler, mw...), sig: f.sig}
}

// HostFunc is the typed request/response form used by JSON.
type HostFunc[Req any, Resp any] func(context.Context, Req) (Resp, error)

// JSON wraps a typed function that takes a single request value.
//
// Usage:
//
//	greet := hostfuncs.JSON(func(ctx context.Context, req GreetRequest) (GreetResponse, error) {
//	    return GreetResponse{Greeting: "hello " + req.Name}, nil
//	})
func JSON[Req any, Resp any](fn HostFunc[Req, Resp]) *Function {
	sig := Signature{
		Params:   []reflect.Type{reflect.TypeFor[Req]()},
		Result:   reflect.TypeFor[Resp](),
		Context:  true,
		Fallible: true,
	}
	return newFunction(fn, sig, func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if err := checkArity(ctx, sig, len(args)); err != nil {
			return nil, err
		}
		req, err := decodeTyped[Req](args, 0)
		if err != nil {
			return nil, err
		}
		resp, err := fn(ctx, req)
		if err != nil {
			return nil, nmerrors.ToErrorDetail(err)
		}
		return encodeResult(resp)
	})
}

func encodeResult(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, NewInternalError(fmt.Sprintf("failed to encode result: %v", err)).WithCode("encode")
	}
	return b, nil
}
