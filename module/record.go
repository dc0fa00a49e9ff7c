package module

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/python-project-templates/nativemod/application/schema"
	"github.com/python-project-templates/nativemod/domain/entities"
	"github.com/python-project-templates/nativemod/hostfuncs"
)

// Record is a finalized module: a fixed name and a mapping from export name
// to wrapped function. A Record is immutable; lookups and invocations are
// lock-free and safe for concurrent use.
type Record struct {
	funcs map[string]*hostfuncs.Function
	name  string
	names []string // sorted for consistent iteration
}

// Name returns the module name.
func (r *Record) Name() string {
	return r.name
}

// Names returns a sorted list of all export names.
func (r *Record) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

// Has returns true if an export with the given name exists.
func (r *Record) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

// Function returns the wrapped function exported under name.
func (r *Record) Function(name string) (*hostfuncs.Function, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Invoke dispatches a call by export name with JSON-encoded positional
// arguments. Errors are always *entities.ErrorDetail; an unknown name is a
// not_found error.
func (r *Record) Invoke(ctx context.Context, name string, args []json.RawMessage) (json.RawMessage, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return nil, hostfuncs.NewNotFoundError(r.name, name)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return fn.Call(hostfuncs.WithCall(ctx, r.name, name), args)
}

// Call marshals args to JSON, invokes name and decodes the result into a
// generic Go value (numbers decode as float64).
func (r *Record) Call(ctx context.Context, name string, args ...any) (any, error) {
	return CallAs[any](ctx, r, name, args...)
}

// CallAs is like Record.Call but decodes the result into T.
func CallAs[T any](ctx context.Context, r *Record, name string, args ...any) (T, error) {
	var out T

	raw := make([]json.RawMessage, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return out, hostfuncs.NewArgumentError("encode", fmt.Sprintf("argument %d: %v", i, err))
		}
		raw[i] = b
	}

	resp, err := r.Invoke(ctx, name, raw)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return out, hostfuncs.NewInternalError(fmt.Sprintf("decode result of %s: %v", name, err)).WithCode("decode")
	}
	return out, nil
}

// WithMiddleware returns a derived Record whose functions are wrapped by mw
// in FIFO order. r itself is left untouched.
func (r *Record) WithMiddleware(mw ...Middleware) *Record {
	if len(mw) == 0 {
		return r
	}
	funcs := make(map[string]*hostfuncs.Function, len(r.funcs))
	for name, fn := range r.funcs {
		funcs[name] = fn.WithMiddleware(mw...)
	}
	return &Record{name: r.name, funcs: funcs, names: r.names}
}

// Manifest describes the record's exports with JSON schemas for their
// parameters and results.
func (r *Record) Manifest() (entities.ModuleManifest, error) {
	m := entities.ModuleManifest{
		Name:      r.name,
		Functions: make([]entities.FunctionManifest, 0, len(r.names)),
	}
	for _, name := range r.names {
		fm, err := schema.FunctionManifest(name, r.funcs[name])
		if err != nil {
			return m, fmt.Errorf("module %q: %w", r.name, err)
		}
		m.Functions = append(m.Functions, fm)
	}
	return m, nil
}

// Middleware is re-exported so hosts can decorate records without importing
// hostfuncs.
type Middleware = hostfuncs.Middleware
