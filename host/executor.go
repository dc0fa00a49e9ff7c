package host

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	nmwazero "github.com/python-project-templates/nativemod/infrastructure/wazero"
	"github.com/python-project-templates/nativemod/internal/abi"
	"github.com/python-project-templates/nativemod/wireformat"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

// executorConfig holds configuration for the Executor.
type executorConfig struct {
	loader             *Loader
	logger             *zap.Logger
	maxRequestSize     uint32
	memoryLimitPages   uint32
	closeOnContextDone bool
	wasi               bool
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{
		logger:         zap.NewNop(),
		maxRequestSize: nmwazero.DefaultMaxRequestSize,
		wasi:           true,
	}
}

// Executor runs WebAssembly guests that import nativemod modules.
type Executor struct {
	runtime  wazero.Runtime
	loader   *Loader
	logger   *zap.Logger
	exported map[string]bool
	config   executorConfig
	mu       sync.Mutex
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.loader == nil {
		cfg.loader = NewLoader(WithLogger(cfg.logger), WithRuntimeName(nmwazero.RuntimeName))
	}

	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(cfg.closeOnContextDone)
	if cfg.memoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.memoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rc)

	e := &Executor{
		runtime:  rt,
		loader:   cfg.loader,
		logger:   cfg.logger.With(zap.String("component", "executor")),
		exported: make(map[string]bool),
		config:   cfg,
	}

	if cfg.wasi {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
		}
	}

	if err := e.registerHostModule(ctx); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return e, nil
}

// Loader returns the loader modules are imported through.
func (e *Executor) Loader() *Loader {
	return e.loader
}

// Close releases resources held by the executor.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Import imports module name through the loader and exports it as a wazero
// host module. Importing the same name again is a no-op.
func (e *Executor) Import(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.importLocked(ctx, name)
}

func (e *Executor) importLocked(ctx context.Context, name string) error {
	if e.exported[name] {
		return nil
	}

	rec, err := e.loader.Import(ctx, name)
	if err != nil {
		return err
	}
	if _, err := nmwazero.Export(ctx, e.runtime, rec,
		nmwazero.WithLogger(e.config.logger),
		nmwazero.WithMaxRequestSize(e.config.maxRequestSize),
	); err != nil {
		return err
	}

	e.exported[name] = true
	return nil
}

// Guest represents an instantiated WASM guest.
type Guest struct {
	module api.Module
}

// LoadGuest compiles wasmBytes, imports every module the guest depends on
// and instantiates the guest under a unique name.
func (e *Executor) LoadGuest(ctx context.Context, wasmBytes []byte) (*Guest, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}

	e.mu.Lock()
	for _, def := range compiled.ImportedFunctions() {
		moduleName, _, _ := def.Import()
		if moduleName == wasi_snapshot_preview1.ModuleName || moduleName == HostModuleName {
			continue
		}
		if err := e.importLocked(ctx, moduleName); err != nil {
			e.mu.Unlock()
			_ = compiled.Close(ctx)
			return nil, fmt.Errorf("guest import %q: %w", moduleName, err)
		}
	}
	e.mu.Unlock()

	name := "guest-" + uuid.NewString()
	mod, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}

	// Reactor modules export _initialize instead of _start.
	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			_ = mod.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	e.logger.Debug("loaded guest", zap.String("guest", name))
	return &Guest{module: mod}, nil
}

// Name returns the unique instance name of the guest.
func (g *Guest) Name() string {
	return g.module.Name()
}

// Call invokes a guest export of shape (i64) -> i64 following the packed
// argument and envelope convention. Host errors in the envelope are returned
// as *entities.ErrorDetail.
func (g *Guest) Call(ctx context.Context, export string, args ...any) (json.RawMessage, error) {
	f := g.module.ExportedFunction(export)
	if f == nil {
		return nil, fmt.Errorf("export %q not found", export)
	}
	def := f.Definition()
	if len(def.ParamTypes()) != 1 || def.ParamTypes()[0] != api.ValueTypeI64 ||
		len(def.ResultTypes()) != 1 || def.ResultTypes()[0] != api.ValueTypeI64 {
		return nil, fmt.Errorf("export %q must have signature (i64) -> i64", export)
	}

	var packed uint64
	if len(args) > 0 {
		payload, err := wireformat.EncodeArgs(args...)
		if err != nil {
			return nil, err
		}
		packed, err = abi.Write(ctx, g.module, payload)
		if err != nil {
			return nil, err
		}
	}

	results, err := f.Call(ctx, packed)
	if err != nil {
		return nil, fmt.Errorf("call %q: %w", export, err)
	}
	if results[0] == 0 {
		return nil, fmt.Errorf("null response from %q", export)
	}

	envelope, err := abi.Read(g.module.Memory(), results[0], 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from memory: %w", err)
	}
	return wireformat.DecodeResponse(envelope)
}

// Close releases the guest instance.
func (g *Guest) Close(ctx context.Context) error {
	return g.module.Close(ctx)
}
