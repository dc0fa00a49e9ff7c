package hostfuncs

import (
	"bytes"
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is a package-level singleton; validator caches struct metadata.
var validate = validator.New()

func checkArity(ctx context.Context, sig Signature, given int) error {
	fixed := sig.Arity()
	if sig.Variadic {
		if given >= fixed {
			return nil
		}
		return NewArgumentError("arity", fmt.Sprintf("%s takes at least %d %s (%d given)",
			callName(ctx), fixed, plural(fixed), given))
	}
	if given == fixed {
		return nil
	}
	return NewArgumentError("arity", fmt.Sprintf("%s takes %d %s (%d given)",
		callName(ctx), fixed, plural(fixed), given))
}

func callName(ctx context.Context) string {
	if cc, ok := CallContextFrom(ctx); ok && cc.Function() != "" {
		return cc.Function() + "()"
	}
	return "function"
}

func plural(n int) string {
	if n == 1 {
		return "positional argument"
	}
	return "positional arguments"
}

// decodeArg decodes one JSON argument into a new value of type t.
func decodeArg(raw json.RawMessage, t reflect.Type, pos int) (reflect.Value, error) {
	ptr := reflect.New(t)
	if err := decodeInto(raw, ptr.Interface(), pos); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

func decodeTyped[T any](args []json.RawMessage, pos int) (T, error) {
	var v T
	err := decodeInto(args[pos], &v, pos)
	return v, err
}

func decodeInto(raw json.RawMessage, target any, pos int) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("null")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return NewArgumentError("decode", fmt.Sprintf("argument %d: %v", pos, err))
	}
	if _, err := dec.Token(); err != io.EOF {
		return NewArgumentError("decode", fmt.Sprintf("argument %d: unexpected data after JSON value", pos))
	}
	return validateArg(reflect.ValueOf(target).Elem(), pos)
}

// validateArg runs struct validation tags on struct and pointer-to-struct
// arguments. Other kinds are accepted as decoded.
func validateArg(v reflect.Value, pos int) error {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(v.Interface()); err != nil {
		var verrs validator.ValidationErrors
		if stdErrors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return NewValidationError(fmt.Sprintf("argument %d: %s", pos, strings.Join(fields, "; "))).
				WithCode("validate")
		}
		return NewValidationError(fmt.Sprintf("argument %d: %v", pos, err)).WithCode("validate")
	}
	return nil
}
