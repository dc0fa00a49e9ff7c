package hostfuncs

import (
	"context"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"

	nmerrors "github.com/python-project-templates/nativemod/domain/errors"
)

var (
	contextType         = reflect.TypeFor[context.Context]()
	errorType           = reflect.TypeFor[error]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// Wrap adapts an arbitrary native function using reflection.
//
// Accepted shapes: an optional leading context.Context, any number of
// JSON-representable parameters (the last may be variadic), and results of
// (), (R), (error) or (R, error). Anything else is rejected with a
// *errors.WrapError before the function can be registered.
func Wrap(fn any) (*Function, error) {
	if fn == nil {
		return nil, &nmerrors.WrapError{Reason: "nil function"}
	}
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, &nmerrors.WrapError{Func: t.String(), Reason: "not a function"}
	}
	if v.IsNil() {
		return nil, &nmerrors.WrapError{Func: t.String(), Reason: "nil function"}
	}

	sig, err := signatureOf(t)
	if err != nil {
		return nil, err
	}

	return newFunction(fn, sig, func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if err := checkArity(ctx, sig, len(args)); err != nil {
			return nil, err
		}

		in := make([]reflect.Value, 0, len(args)+1)
		if sig.Context {
			in = append(in, reflect.ValueOf(ctx))
		}
		for i, raw := range args {
			av, err := decodeArg(raw, sig.ParamType(i), i)
			if err != nil {
				return nil, err
			}
			in = append(in, av)
		}

		return convertResults(sig, v.Call(in))
	}), nil
}

// Must is like Wrap but panics on error. It is meant for package-level
// export tables whose shapes are fixed at compile time.
func Must(fn any) *Function {
	f, err := Wrap(fn)
	if err != nil {
		panic(err)
	}
	return f
}

func signatureOf(t reflect.Type) (Signature, error) {
	var sig Signature

	start := 0
	if t.NumIn() > 0 && t.In(0) == contextType {
		sig.Context = true
		start = 1
	}
	sig.Variadic = t.IsVariadic()

	for i := start; i < t.NumIn(); i++ {
		pt := t.In(i)
		check := pt
		if sig.Variadic && i == t.NumIn()-1 {
			check = pt.Elem()
		}
		if err := checkParamType(check); err != nil {
			return sig, &nmerrors.WrapError{
				Func:   t.String(),
				Reason: fmt.Sprintf("unsupported parameter %d", i-start),
				Err:    err,
			}
		}
		sig.Params = append(sig.Params, pt)
	}

	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errorType {
			sig.Fallible = true
			break
		}
		if err := checkResultType(t.Out(0)); err != nil {
			return sig, &nmerrors.WrapError{Func: t.String(), Reason: "unsupported result", Err: err}
		}
		sig.Result = t.Out(0)
	case 2:
		if t.Out(1) != errorType {
			return sig, &nmerrors.WrapError{Func: t.String(), Reason: "second result must be error"}
		}
		if err := checkResultType(t.Out(0)); err != nil {
			return sig, &nmerrors.WrapError{Func: t.String(), Reason: "unsupported result", Err: err}
		}
		sig.Result = t.Out(0)
		sig.Fallible = true
	default:
		return sig, &nmerrors.WrapError{Func: t.String(), Reason: fmt.Sprintf("too many results (%d)", t.NumOut())}
	}

	return sig, nil
}

func convertResults(sig Signature, out []reflect.Value) (json.RawMessage, error) {
	if sig.Fallible {
		if errV := out[len(out)-1]; !errV.IsNil() {
			err := errV.Interface().(error)
			if v := reflect.ValueOf(err); v.Kind() == reflect.Pointer && v.IsNil() {
				return nil, NewInternalError(fmt.Sprintf("native function returned a nil %T as its error", err))
			}
			return nil, nmerrors.ToErrorDetail(err)
		}
	}
	if sig.Result == nil {
		return json.RawMessage("null"), nil
	}
	return encodeResult(out[0].Interface())
}

// checkParamType rejects types that JSON cannot decode into.
func checkParamType(t reflect.Type) error {
	if t.Kind() == reflect.Interface {
		if t.NumMethod() != 0 {
			return fmt.Errorf("interface %s cannot be decoded from JSON", t)
		}
		return nil
	}
	return checkJSONType(t)
}

// checkResultType rejects types that JSON cannot encode.
func checkResultType(t reflect.Type) error {
	if t.Kind() == reflect.Interface {
		return nil
	}
	return checkJSONType(t)
}

func checkJSONType(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128, reflect.Invalid:
		return fmt.Errorf("%s is not JSON-representable", t)
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return checkJSONType(t.Elem())
	case reflect.Map:
		switch t.Key().Kind() {
		case reflect.String,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		default:
			if !reflect.PointerTo(t.Key()).Implements(textUnmarshalerType) {
				return fmt.Errorf("map key %s is not JSON-representable", t.Key())
			}
		}
		return checkJSONType(t.Elem())
	}
	return nil
}
