package module

import (
	"fmt"

	nmerrors "github.com/python-project-templates/nativemod/domain/errors"
	"github.com/python-project-templates/nativemod/hostfuncs"
)

// Builder is the construction handle an entry point attaches exports to.
// It is only valid during the entry point call.
//
// The first failed attachment is sticky: later attachments return the same
// error and the registration fails even if the entry point ignores it.
type Builder struct {
	err    error
	funcs  map[string]*hostfuncs.Function
	name   string
	closed bool
}

func newBuilder(name string) *Builder {
	return &Builder{name: name, funcs: make(map[string]*hostfuncs.Function)}
}

// Name returns the module name being constructed.
func (b *Builder) Name() string {
	return b.name
}

// Add wraps fn with hostfuncs.Wrap and attaches it under name.
func (b *Builder) Add(name string, fn any) error {
	if b.closed || b.err != nil {
		return b.AddFunction(name, nil)
	}
	wrapped, err := hostfuncs.Wrap(fn)
	if err != nil {
		return b.fail(fmt.Errorf("export %q: %w", name, err))
	}
	return b.AddFunction(name, wrapped)
}

// AddFunction attaches an already wrapped function under name.
func (b *Builder) AddFunction(name string, fn *hostfuncs.Function) error {
	if b.closed {
		return fmt.Errorf("module %q: builder used after the entry point returned", b.name)
	}
	if b.err != nil {
		return b.err
	}
	if err := validateExportName(b.name, name); err != nil {
		return b.fail(err)
	}
	if fn == nil {
		return b.fail(&nmerrors.WrapError{Func: name, Reason: "nil function"})
	}
	if _, exists := b.funcs[name]; exists {
		return b.fail(&nmerrors.DuplicateNameError{Module: b.name, Name: name})
	}
	b.funcs[name] = fn
	return nil
}

// AddBundle attaches every export of bundle in name order. Parts of a
// combined bundle are attached one after another.
func (b *Builder) AddBundle(bundle Bundle) error {
	if b.err != nil {
		return b.err
	}
	if c, ok := bundle.(*compositeBundle); ok {
		for _, part := range c.bundles {
			if err := b.AddBundle(part); err != nil {
				return err
			}
		}
		return nil
	}

	exports := bundle.Exports()
	for _, name := range sortedNames(exports) {
		if err := b.AddFunction(name, exports[name]); err != nil {
			return err
		}
	}
	return nil
}

// Err returns the first attachment failure, if any.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(err error) error {
	b.err = err
	return err
}

// finalize publishes the attached exports as an immutable Record.
func (b *Builder) finalize() *Record {
	funcs := make(map[string]*hostfuncs.Function, len(b.funcs))
	for name, fn := range b.funcs {
		funcs[name] = fn
	}
	return &Record{name: b.name, funcs: funcs, names: sortedNames(funcs)}
}
