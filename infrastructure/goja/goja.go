// Package goja exposes module records to JavaScript running on goja.
//
// A record becomes a frozen JS object with one function per export.
// Arguments are exported to Go values and passed as JSON; results are
// converted back to JS values. Host errors are thrown as JS errors carrying
// "type" and "code" properties: TypeError for argument and validation
// errors, ReferenceError for unknown exports, Error otherwise.
//
//	vm := goja.New()
//	if err := nmgoja.EnableRequire(ctx, vm, host.NewLoader()); err != nil {
//	    return err
//	}
//	v, err := vm.RunString(`require("project").hello()`)
package goja

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"

	"github.com/dop251/goja"
	"github.com/python-project-templates/nativemod/domain/entities"
	nmerrors "github.com/python-project-templates/nativemod/domain/errors"
	"github.com/python-project-templates/nativemod/module"
)

// RuntimeName is the Runtime name records should be loaded with when they
// are exposed through this package.
const RuntimeName = "goja"

// ModuleNotFoundCode is the "code" property of the error require throws for
// an unknown module.
const ModuleNotFoundCode = "MODULE_NOT_FOUND"

// Importer resolves modules for require. *host.Loader implements it.
type Importer interface {
	Import(ctx context.Context, name string) (*module.Record, error)
}

// NewObject returns a frozen JS object exposing every export of rec. Calls
// made through it run with ctx.
func NewObject(ctx context.Context, vm *goja.Runtime, rec *module.Record) (*goja.Object, error) {
	obj := vm.NewObject()
	for _, name := range rec.Names() {
		fn := vm.ToValue(exportFunc(ctx, vm, rec, name))
		if err := obj.Set(name, fn); err != nil {
			return nil, fmt.Errorf("set export %q: %w", name, err)
		}
	}
	if err := freeze(vm, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Install binds rec as a global named after the module.
func Install(ctx context.Context, vm *goja.Runtime, rec *module.Record) error {
	obj, err := NewObject(ctx, vm, rec)
	if err != nil {
		return err
	}
	return vm.Set(rec.Name(), obj)
}

// EnableRequire defines a global require(name) that imports modules through
// importer. Each module object is created once per runtime. A failed import
// throws an Error whose "code" is MODULE_NOT_FOUND for unknown modules.
func EnableRequire(ctx context.Context, vm *goja.Runtime, importer Importer) error {
	cache := make(map[string]*goja.Object)

	return vm.Set("require", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		if obj, ok := cache[name]; ok {
			return obj
		}

		rec, err := importer.Import(ctx, name)
		if err != nil {
			panic(importError(vm, name, err))
		}
		obj, err := NewObject(ctx, vm, rec)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		cache[name] = obj
		return obj
	})
}

func exportFunc(ctx context.Context, vm *goja.Runtime, rec *module.Record, name string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		args := make([]json.RawMessage, len(call.Arguments))
		for i, arg := range call.Arguments {
			b, err := json.Marshal(arg.Export())
			if err != nil {
				panic(throwable(vm, entities.NewErrorDetail(entities.ErrorTypeArgument,
					fmt.Sprintf("argument %d: %v", i, err)).WithCode("encode")))
			}
			args[i] = b
		}

		resp, err := rec.Invoke(ctx, name, args)
		if err != nil {
			panic(throwable(vm, nmerrors.ToErrorDetail(err)))
		}

		var out any
		if err := json.Unmarshal(resp, &out); err != nil {
			panic(vm.NewGoError(err))
		}
		return vm.ToValue(out)
	}
}

// throwable converts a host error into the JS error object to throw.
func throwable(vm *goja.Runtime, detail *entities.ErrorDetail) *goja.Object {
	if detail == nil {
		detail = entities.NewErrorDetail(entities.ErrorTypeInternal, "call failed without an error value")
	}
	ctor := "Error"
	switch detail.Type {
	case entities.ErrorTypeArgument, entities.ErrorTypeValidation:
		ctor = "TypeError"
	case entities.ErrorTypeNotFound:
		ctor = "ReferenceError"
	}

	obj := newError(vm, ctor, detail.Message)
	_ = obj.Set("type", detail.Type)
	if detail.Code != "" {
		_ = obj.Set("code", detail.Code)
	}
	if len(detail.Details) > 0 {
		_ = obj.Set("details", detail.Details)
	}
	return obj
}

func importError(vm *goja.Runtime, name string, err error) *goja.Object {
	obj := newError(vm, "Error", err.Error())
	var notFound *nmerrors.ModuleNotFoundError
	if stdErrors.As(err, &notFound) {
		_ = obj.Set("code", ModuleNotFoundCode)
	}
	_ = obj.Set("module", name)
	return obj
}

func newError(vm *goja.Runtime, ctor, message string) *goja.Object {
	obj, err := vm.New(vm.Get(ctor), vm.ToValue(message))
	if err != nil {
		return vm.NewGoError(fmt.Errorf("%s", message))
	}
	return obj
}

func freeze(vm *goja.Runtime, obj *goja.Object) error {
	fn, ok := goja.AssertFunction(vm.Get("Object").ToObject(vm).Get("freeze"))
	if !ok {
		return fmt.Errorf("freeze is not a function")
	}
	_, err := fn(goja.Undefined(), obj)
	return err
}
