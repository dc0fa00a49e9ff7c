package hostfuncs

import (
	"context"
	"encoding/json"
	"reflect"

	nmerrors "github.com/python-project-templates/nativemod/domain/errors"
)

// Typed wrappers cover the common fixed shapes without reflection on the
// call path. The E variants wrap fallible functions.

// Func0 wraps a function with no arguments and one result.
func Func0[R any](fn func() R) *Function {
	sig := Signature{Result: reflect.TypeFor[R]()}
	return newFunction(fn, sig, func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if err := checkArity(ctx, sig, len(args)); err != nil {
			return nil, err
		}
		return encodeResult(fn())
	})
}

// Func0E wraps a fallible function with no arguments.
func Func0E[R any](fn func() (R, error)) *Function {
	sig := Signature{Result: reflect.TypeFor[R](), Fallible: true}
	return newFunction(fn, sig, func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if err := checkArity(ctx, sig, len(args)); err != nil {
			return nil, err
		}
		r, err := fn()
		if err != nil {
			return nil, nmerrors.ToErrorDetail(err)
		}
		return encodeResult(r)
	})
}

// Func1 wraps a function with one argument and one result.
func Func1[A, R any](fn func(A) R) *Function {
	sig := Signature{Params: []reflect.Type{reflect.TypeFor[A]()}, Result: reflect.TypeFor[R]()}
	return newFunction(fn, sig, func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if err := checkArity(ctx, sig, len(args)); err != nil {
			return nil, err
		}
		a, err := decodeTyped[A](args, 0)
		if err != nil {
			return nil, err
		}
		return encodeResult(fn(a))
	})
}

// Func1E wraps a fallible function with one argument.
func Func1E[A, R any](fn func(A) (R, error)) *Function {
	sig := Signature{Params: []reflect.Type{reflect.TypeFor[A]()}, Result: reflect.TypeFor[R](), Fallible: true}
	return newFunction(fn, sig, func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if err := checkArity(ctx, sig, len(args)); err != nil {
			return nil, err
		}
		a, err := decodeTyped[A](args, 0)
		if err != nil {
			return nil, err
		}
		r, err := fn(a)
		if err != nil {
			return nil, nmerrors.ToErrorDetail(err)
		}
		return encodeResult(r)
	})
}

// Func2 wraps a function with two arguments and one result.
func Func2[A, B, R any](fn func(A, B) R) *Function {
	sig := Signature{
		Params: []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B]()},
		Result: reflect.TypeFor[R](),
	}
	return newFunction(fn, sig, func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if err := checkArity(ctx, sig, len(args)); err != nil {
			return nil, err
		}
		a, err := decodeTyped[A](args, 0)
		if err != nil {
			return nil, err
		}
		b, err := decodeTyped[B](args, 1)
		if err != nil {
			return nil, err
		}
		return encodeResult(fn(a, b))
	})
}

// Func2E wraps a fallible function with two arguments.
func Func2E[A, B, R any](fn func(A, B) (R, error)) *Function {
	sig := Signature{
		Params:   []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B]()},
		Result:   reflect.TypeFor[R](),
		Fallible: true,
	}
	return newFunction(fn, sig, func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if err := checkArity(ctx, sig, len(args)); err != nil {
			return nil, err
		}
		a, err := decodeTyped[A](args, 0)
		if err != nil {
			return nil, err
		}
		b, err := decodeTyped[B](args, 1)
		if err != nil {
			return nil, err
		}
		r, err := fn(a, b)
		if err != nil {
			return nil, nmerrors.ToErrorDetail(err)
		}
		return encodeResult(r)
	})
}
