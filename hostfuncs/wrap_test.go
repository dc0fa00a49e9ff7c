package hostfuncs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"unsafe"

	"github.com/python-project-templates/nativemod/domain/entities"
	nmerrors "github.com/python-project-templates/nativemod/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawArgs(t *testing.T, args ...any) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		require.NoError(t, err)
		out[i] = b
	}
	return out
}

func requireDetail(t *testing.T, err error) *entities.ErrorDetail {
	t.Helper()
	require.Error(t, err)
	var detail *entities.ErrorDetail
	require.ErrorAs(t, err, &detail)
	return detail
}

func TestWrap_NoArgs(t *testing.T) {
	fn, err := Wrap(func() string { return "A string" })
	require.NoError(t, err)

	sig := fn.Signature()
	assert.Equal(t, 0, sig.Arity())
	assert.False(t, sig.Fallible)
	assert.Equal(t, "func() string", sig.String())

	for i := 0; i < 3; i++ {
		resp, err := fn.Call(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, `"A string"`, string(resp))
	}
}

func TestWrap_RejectsIncompatible(t *testing.T) {
	tests := []struct {
		fn     any
		name   string
		reason string
	}{
		{name: "nil", fn: nil, reason: "nil function"},
		{name: "typed nil", fn: (func())(nil), reason: "nil function"},
		{name: "not a function", fn: 42, reason: "not a function"},
		{name: "chan parameter", fn: func(chan int) {}, reason: "unsupported parameter 0"},
		{name: "func result", fn: func() func() { return nil }, reason: "unsupported result"},
		{name: "complex parameter", fn: func(int, complex128) {}, reason: "unsupported parameter 1"},
		{name: "unsafe pointer", fn: func(unsafe.Pointer) {}, reason: "unsupported parameter 0"},
		{name: "non-empty interface parameter", fn: func(error) {}, reason: "unsupported parameter 0"},
		{name: "bad map key", fn: func(map[[2]int]string) {}, reason: "unsupported parameter 0"},
		{name: "second result not error", fn: func() (int, int) { return 0, 0 }, reason: "second result must be error"},
		{name: "too many results", fn: func() (int, int, error) { return 0, 0, nil }, reason: "too many results"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := Wrap(tt.fn)
			require.Error(t, err)
			assert.Nil(t, fn)

			var wrapErr *nmerrors.WrapError
			require.ErrorAs(t, err, &wrapErr)
			assert.Contains(t, wrapErr.Reason, tt.reason)
		})
	}
}

func TestMust_Panics(t *testing.T) {
	assert.Panics(t, func() { Must("nope") })
	assert.NotPanics(t, func() { Must(func() {}) })
}

func TestWrap_Arity(t *testing.T) {
	fn := Must(func(a, b int) int { return a + b })

	resp, err := fn.Call(context.Background(), rawArgs(t, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, "5", string(resp))

	_, err = fn.Call(context.Background(), rawArgs(t, 2))
	detail := requireDetail(t, err)
	assert.Equal(t, entities.ErrorTypeArgument, detail.Type)
	assert.Equal(t, "arity", detail.Code)
	assert.Contains(t, detail.Message, "takes 2 positional arguments (1 given)")
}

func TestWrap_ArityUsesCallName(t *testing.T) {
	fn := Must(func() string { return "A string" })

	ctx := WithCall(context.Background(), "project", "hello")
	_, err := fn.Call(ctx, rawArgs(t, "extra"))
	detail := requireDetail(t, err)
	assert.Equal(t, "hello() takes 0 positional arguments (1 given)", detail.Message)
}

func TestWrap_Variadic(t *testing.T) {
	fn := Must(func(sep string, parts ...string) string {
		out := ""
		for i, p := range parts {
			if i > 0 {
				out += sep
			}
			out += p
		}
		return out
	})

	assert.True(t, fn.Signature().Variadic)
	assert.Equal(t, 1, fn.Signature().Arity())
	assert.Equal(t, "func(string, ...string) string", fn.Signature().String())

	resp, err := fn.Call(context.Background(), rawArgs(t, "-", "a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, `"a-b-c"`, string(resp))

	resp, err = fn.Call(context.Background(), rawArgs(t, "-"))
	require.NoError(t, err)
	assert.Equal(t, `""`, string(resp))

	_, err = fn.Call(context.Background(), nil)
	detail := requireDetail(t, err)
	assert.Contains(t, detail.Message, "at least 1 positional argument (0 given)")
}

func TestWrap_DecodeError(t *testing.T) {
	fn := Must(func(n int) int { return n * 2 })

	_, err := fn.Call(context.Background(), rawArgs(t, "not a number"))
	detail := requireDetail(t, err)
	assert.Equal(t, entities.ErrorTypeArgument, detail.Type)
	assert.Equal(t, "decode", detail.Code)
	assert.Contains(t, detail.Message, "argument 0")
}

func TestWrap_UnknownFieldsRejected(t *testing.T) {
	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	fn := Must(func(p point) int { return p.X + p.Y })

	resp, err := fn.Call(context.Background(), []json.RawMessage{json.RawMessage(`{"x":1,"y":2}`)})
	require.NoError(t, err)
	assert.Equal(t, "3", string(resp))

	_, err = fn.Call(context.Background(), []json.RawMessage{json.RawMessage(`{"x":1,"z":2}`)})
	detail := requireDetail(t, err)
	assert.Equal(t, "decode", detail.Code)
}

func TestWrap_StructValidation(t *testing.T) {
	type greetRequest struct {
		Name string `json:"name" validate:"required"`
		Age  int    `json:"age" validate:"gte=0,lte=150"`
	}
	fn := Must(func(req greetRequest) string { return "hi " + req.Name })

	resp, err := fn.Call(context.Background(), []json.RawMessage{json.RawMessage(`{"name":"ada","age":36}`)})
	require.NoError(t, err)
	assert.Equal(t, `"hi ada"`, string(resp))

	_, err = fn.Call(context.Background(), []json.RawMessage{json.RawMessage(`{"age":200}`)})
	detail := requireDetail(t, err)
	assert.Equal(t, entities.ErrorTypeValidation, detail.Type)
	assert.Contains(t, detail.Message, "Name")
	assert.Contains(t, detail.Message, "Age")
}

func TestWrap_PointerArgument(t *testing.T) {
	type opts struct {
		Upper bool `json:"upper"`
	}
	fn := Must(func(s string, o *opts) string {
		if o != nil && o.Upper {
			return s + "!"
		}
		return s
	})

	resp, err := fn.Call(context.Background(), []json.RawMessage{json.RawMessage(`"x"`), json.RawMessage(`null`)})
	require.NoError(t, err)
	assert.Equal(t, `"x"`, string(resp))

	resp, err = fn.Call(context.Background(), []json.RawMessage{json.RawMessage(`"x"`), json.RawMessage(`{"upper":true}`)})
	require.NoError(t, err)
	assert.Equal(t, `"x!"`, string(resp))
}

func TestWrap_Fallible(t *testing.T) {
	fn := Must(func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, nmerrors.NewNativeError("zero_division", "division by zero")
		}
		return a / b, nil
	})
	assert.True(t, fn.Signature().Fallible)

	resp, err := fn.Call(context.Background(), rawArgs(t, 9, 3))
	require.NoError(t, err)
	assert.Equal(t, "3", string(resp))

	_, err = fn.Call(context.Background(), rawArgs(t, 1, 0))
	detail := requireDetail(t, err)
	assert.Equal(t, "zero_division", detail.Type)
	assert.Equal(t, "division by zero", detail.Message)
}

func TestWrap_ErrorOnly(t *testing.T) {
	fail := true
	fn := Must(func() error {
		if fail {
			return errors.New("not ready")
		}
		return nil
	})

	_, err := fn.Call(context.Background(), nil)
	detail := requireDetail(t, err)
	assert.Equal(t, entities.ErrorTypeNative, detail.Type)
	assert.Equal(t, "not ready", detail.Message)

	fail = false
	resp, err := fn.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(resp))
}

func TestWrap_Panic(t *testing.T) {
	fn := Must(func() string { panic("kaboom") })

	_, err := fn.Call(context.Background(), nil)
	detail := requireDetail(t, err)
	assert.Equal(t, entities.ErrorTypePanic, detail.Type)
	assert.Equal(t, "kaboom", detail.Message)
	assert.Equal(t, "panic: kaboom", detail.Error())
}

func TestWrap_TypedNilError(t *testing.T) {
	fn := Must(func() error {
		var e *entities.ErrorDetail
		return e
	})

	_, err := fn.Call(context.Background(), nil)
	detail := requireDetail(t, err)
	assert.Equal(t, entities.ErrorTypeInternal, detail.Type)
	assert.Contains(t, detail.Message, "*entities.ErrorDetail")
}

func TestWrap_WrappedErrorKeepsContext(t *testing.T) {
	fn := Must(func() error {
		return fmt.Errorf("reading config /etc/x: %w", nmerrors.NewNativeError("io", "permission denied"))
	})

	_, err := fn.Call(context.Background(), nil)
	detail := requireDetail(t, err)
	assert.Equal(t, "io", detail.Type)
	assert.Equal(t, "reading config /etc/x: permission denied", detail.Message)
}

func TestWrap_TrailingData(t *testing.T) {
	fn := Must(func(n int) int { return n })

	resp, err := fn.Call(context.Background(), []json.RawMessage{json.RawMessage(" 1 \n")})
	require.NoError(t, err)
	assert.Equal(t, "1", string(resp))

	_, err = fn.Call(context.Background(), []json.RawMessage{json.RawMessage(`1 {"garbage"`)})
	detail := requireDetail(t, err)
	assert.Equal(t, entities.ErrorTypeArgument, detail.Type)
	assert.Equal(t, "decode", detail.Code)
	assert.Contains(t, detail.Message, "argument 0")
}

func TestWrap_ContextParameter(t *testing.T) {
	fn := Must(func(ctx context.Context, suffix string) string {
		cc, ok := CallContextFrom(ctx)
		if !ok {
			return "no call context"
		}
		return cc.Module() + "." + cc.Function() + suffix
	})
	assert.True(t, fn.Signature().Context)
	assert.Equal(t, 1, fn.Signature().Arity())

	resp, err := fn.Call(WithCall(context.Background(), "project", "whoami"), rawArgs(t, "!"))
	require.NoError(t, err)
	assert.Equal(t, `"project.whoami!"`, string(resp))
}

func TestWrap_NilContext(t *testing.T) {
	fn := Must(func(ctx context.Context) bool { return ctx != nil })

	//nolint:staticcheck // nil context is replaced by Call
	resp, err := fn.Call(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "true", string(resp))
}

func TestWrap_ResultEncodeFailure(t *testing.T) {
	fn := Must(func() any { return make(chan int) })

	_, err := fn.Call(context.Background(), nil)
	detail := requireDetail(t, err)
	assert.Equal(t, entities.ErrorTypeInternal, detail.Type)
	assert.Equal(t, "encode", detail.Code)
}

func TestWrap_RoundTrip(t *testing.T) {
	type record struct {
		Attrs map[string]string `json:"attrs"`
		Name  string            `json:"name"`
		Tags  []string          `json:"tags"`
		Score float64           `json:"score"`
		OK    bool              `json:"ok"`
	}

	tests := []struct {
		value any
		fn    any
		name  string
	}{
		{name: "string", value: "A string", fn: func(s string) string { return s }},
		{name: "int", value: 42, fn: func(n int) int { return n }},
		{name: "float", value: 2.5, fn: func(f float64) float64 { return f }},
		{name: "bool", value: true, fn: func(b bool) bool { return b }},
		{name: "slice", value: []int{1, 2, 3}, fn: func(s []int) []int { return s }},
		{name: "map", value: map[string]int{"a": 1}, fn: func(m map[string]int) map[string]int { return m }},
		{
			name:  "struct",
			value: record{Name: "n", Tags: []string{"t"}, Attrs: map[string]string{"k": "v"}, Score: 1.5, OK: true},
			fn:    func(r record) record { return r },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := Must(tt.fn)
			resp, err := fn.Call(context.Background(), rawArgs(t, tt.value))
			require.NoError(t, err)

			got := reflect.New(reflect.TypeOf(tt.value))
			require.NoError(t, json.Unmarshal(resp, got.Interface()))
			assert.Equal(t, tt.value, got.Elem().Interface())
		})
	}
}
