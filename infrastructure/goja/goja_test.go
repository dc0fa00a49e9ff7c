package goja_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/dop251/goja"
	"github.com/python-project-templates/nativemod/domain/entities"
	nmerrors "github.com/python-project-templates/nativemod/domain/errors"
	"github.com/python-project-templates/nativemod/examples/calc"
	"github.com/python-project-templates/nativemod/examples/project"
	"github.com/python-project-templates/nativemod/host"
	nmgoja "github.com/python-project-templates/nativemod/infrastructure/goja"
	"github.com/python-project-templates/nativemod/module"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVM(t *testing.T) *goja.Runtime {
	t.Helper()
	vm := goja.New()
	loader := host.NewLoader(host.WithRuntimeName(nmgoja.RuntimeName))
	require.NoError(t, nmgoja.EnableRequire(context.Background(), vm, loader))
	return vm
}

func run(t *testing.T, vm *goja.Runtime, src string) any {
	t.Helper()
	v, err := vm.RunString(src)
	require.NoError(t, err)
	return v.Export()
}

func TestRequire_Hello(t *testing.T) {
	vm := newVM(t)

	got := run(t, vm, `
		const project = require("project");
		JSON.stringify([project.hello(), project.hello(), project.hello()])
	`)
	assert.JSONEq(t, `["A string", "A string", "A string"]`, got.(string))
}

func TestRequire_SameObject(t *testing.T) {
	vm := newVM(t)
	assert.Equal(t, true, run(t, vm, `require("project") === require("project")`))
}

func TestRequire_Frozen(t *testing.T) {
	vm := newVM(t)
	assert.Equal(t, true, run(t, vm, `Object.isFrozen(require("project"))`))
	assert.Equal(t, `["hello"]`, run(t, vm, `JSON.stringify(Object.keys(require("project")))`))
}

func TestRequire_Unknown(t *testing.T) {
	vm := newVM(t)

	got := run(t, vm, `
		let caught;
		try { require("nope") } catch (e) { caught = [e instanceof Error, e.code, e.module] }
		JSON.stringify(caught)
	`)
	assert.JSONEq(t, `[true, "`+nmgoja.ModuleNotFoundCode+`", "nope"]`, got.(string))
}

func TestRequire_FailedImport(t *testing.T) {
	def := module.NewDefinition("broken_js", func(_ module.Runtime, m *module.Builder) error {
		_ = m.Add("x", func() {})
		return m.Add("x", func() {})
	})
	vm := goja.New()
	require.NoError(t, nmgoja.EnableRequire(context.Background(), vm, host.NewLoader(host.WithDefinition(def))))

	_, err := vm.RunString(`require("broken_js")`)
	var ex *goja.Exception
	require.ErrorAs(t, err, &ex)
	assert.Contains(t, ex.Value().String(), "duplicate export")
}

func TestExports_Conversion(t *testing.T) {
	vm := newVM(t)

	got := run(t, vm, `
		const calc = require("calc");
		JSON.stringify([calc.add(2, 3), calc.divide(7, 2), calc.sum(1, 2, 3.5), calc.greet({name: "Ada"})])
	`)
	assert.JSONEq(t, `[5, 3.5, 6.5, {"message": "Hello, Ada!"}]`, got.(string))
}

func TestExports_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "native error kind",
			src:  `calc.divide(1, 0)`,
			want: `["Error", "zero_division", null]`,
		},
		{
			name: "arity",
			src:  `calc.add(1)`,
			want: `["TypeError", "argument", "arity"]`,
		},
		{
			name: "validation",
			src:  `calc.greet({times: 2})`,
			want: `["TypeError", "validation", "validate"]`,
		},
		{
			name: "details",
			src:  `calc.sqrt(-4)`,
			want: `["Error", "value", "negative"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := newVM(t)
			got := run(t, vm, `
				const calc = require("calc");
				let caught;
				try { `+tt.src+` } catch (e) { caught = [e.name, e.type, e.code === undefined ? null : e.code] }
				JSON.stringify(caught)
			`)
			assert.JSONEq(t, tt.want, got.(string))
		})
	}
}

func TestExports_ErrorValues(t *testing.T) {
	def := module.NewDefinition("error_values", func(_ module.Runtime, m *module.Builder) error {
		if err := m.Add("typed_nil", func() error {
			var e *entities.ErrorDetail
			return e
		}); err != nil {
			return err
		}
		return m.Add("wrapped", func() error {
			return fmt.Errorf("reading config /etc/x: %w", nmerrors.NewNativeError("io", "permission denied"))
		})
	})
	vm := goja.New()
	require.NoError(t, nmgoja.EnableRequire(context.Background(), vm, host.NewLoader(host.WithDefinition(def))))

	got := run(t, vm, `
		const m = require("error_values");
		const caught = [];
		try { m.typed_nil() } catch (e) { caught.push([e.name, e.type]) }
		try { m.wrapped() } catch (e) { caught.push([e.type, e.message]) }
		JSON.stringify(caught)
	`)
	assert.JSONEq(t, `[["Error", "internal"], ["io", "reading config /etc/x: permission denied"]]`, got.(string))
}

func TestInstall(t *testing.T) {
	rec, err := project.Definition.Load(nil)
	require.NoError(t, err)

	vm := goja.New()
	require.NoError(t, nmgoja.Install(context.Background(), vm, rec))
	assert.Equal(t, "A string", run(t, vm, `project.hello()`))
}

func TestNewObject_UnknownProperty(t *testing.T) {
	rec, err := calc.Definition.Load(nil)
	require.NoError(t, err)

	vm := goja.New()
	obj, err := nmgoja.NewObject(context.Background(), vm, rec)
	require.NoError(t, err)
	require.NoError(t, vm.Set("calc", obj))

	assert.Equal(t, true, run(t, vm, `calc.missing === undefined`))
}
