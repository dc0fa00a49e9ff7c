package host_test

import (
	"context"
	"strings"
	"testing"

	"github.com/python-project-templates/nativemod/domain/entities"
	nmerrors "github.com/python-project-templates/nativemod/domain/errors"
	"github.com/python-project-templates/nativemod/examples/project"
	"github.com/python-project-templates/nativemod/host"
	"github.com/python-project-templates/nativemod/internal/abi"
	"github.com/python-project-templates/nativemod/internal/testutil"
	"github.com/python-project-templates/nativemod/module"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newExecutor(t *testing.T, opts ...host.Option) *host.Executor {
	t.Helper()
	ctx := context.Background()
	e, err := host.NewExecutor(ctx, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(ctx) })
	return e
}

func TestNewExecutor(t *testing.T) {
	ctx := context.Background()
	e, err := host.NewExecutor(ctx, host.WithWASI(false), host.WithMemoryLimitPages(16))
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.NotNil(t, e.Loader())
	assert.NoError(t, e.Close(ctx))
}

func TestExecutor_EndToEndHello(t *testing.T) {
	ctx := context.Background()
	e := newExecutor(t)

	guest, err := e.LoadGuest(ctx, testutil.HelloGuest())
	require.NoError(t, err)
	defer guest.Close(ctx)

	assert.True(t, strings.HasPrefix(guest.Name(), "guest-"))
	assert.Equal(t, []string{project.Name}, e.Loader().Modules())

	for i := 0; i < 3; i++ {
		value, err := guest.Call(ctx, "call_hello")
		require.NoError(t, err)
		assert.Equal(t, `"A string"`, string(value))
	}
}

func TestExecutor_GuestsShareImports(t *testing.T) {
	ctx := context.Background()
	e := newExecutor(t)

	first, err := e.LoadGuest(ctx, testutil.HelloGuest())
	require.NoError(t, err)
	second, err := e.LoadGuest(ctx, testutil.HelloGuest())
	require.NoError(t, err)
	assert.NotEqual(t, first.Name(), second.Name())

	value, err := second.Call(ctx, "call_hello")
	require.NoError(t, err)
	assert.Equal(t, `"A string"`, string(value))
}

func TestExecutor_ImportIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newExecutor(t)

	require.NoError(t, e.Import(ctx, project.Name))
	require.NoError(t, e.Import(ctx, project.Name))
}

func TestExecutor_GuestArguments(t *testing.T) {
	def := module.NewDefinition("mathx", func(_ module.Runtime, m *module.Builder) error {
		return m.Add("mul", func(a, b int) int { return a * b })
	})
	ctx := context.Background()
	e := newExecutor(t, host.WithLoader(host.NewLoader(host.WithDefinition(def))))

	guest, err := e.LoadGuest(ctx, testutil.Guest(testutil.GuestImport{Module: "mathx", Name: "mul", Export: "mul"}))
	require.NoError(t, err)

	value, err := guest.Call(ctx, "mul", 6, 7)
	require.NoError(t, err)
	assert.Equal(t, "42", string(value))

	_, err = guest.Call(ctx, "mul", 6)
	testutil.RequireErrorDetail(t, err, entities.ErrorTypeArgument)
}

func TestExecutor_UnknownImport(t *testing.T) {
	ctx := context.Background()
	e := newExecutor(t)

	_, err := e.LoadGuest(ctx, testutil.Guest(testutil.GuestImport{Module: "nowhere", Name: "f", Export: "f"}))
	require.Error(t, err)
	assert.True(t, nmerrors.IsLoadError(err))
	var notFound *nmerrors.ModuleNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestExecutor_InvalidGuest(t *testing.T) {
	e := newExecutor(t)
	_, err := e.LoadGuest(context.Background(), []byte("not wasm"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile module")
}

func TestGuest_CallErrors(t *testing.T) {
	ctx := context.Background()
	e := newExecutor(t)

	guest, err := e.LoadGuest(ctx, testutil.HelloGuest())
	require.NoError(t, err)

	_, err = guest.Call(ctx, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = guest.Call(ctx, "allocate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(i64) -> i64")
}

func TestExecutor_GuestLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := context.Background()
	e := newExecutor(t, host.WithExecutorLogger(zap.New(core)))

	guest, err := e.LoadGuest(ctx, testutil.Guest(testutil.GuestImport{
		Module: host.HostModuleName, Name: "log_message", Export: "log",
	}))
	require.NoError(t, err)

	// log returns 0, so call it through the raw export rather than Guest.Call.
	mod := host.GuestModule(t, e, guest)
	packed, err := abi.Write(ctx, mod, []byte(`{"level":"warn","message":"from guest"}`))
	require.NoError(t, err)
	_, err = mod.ExportedFunction("log").Call(ctx, packed)
	require.NoError(t, err)

	entries := logs.FilterMessage("from guest").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, guest.Name(), entries[0].ContextMap()["guest"])
}
