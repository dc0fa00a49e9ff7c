package wazero

import (
	"context"
	"fmt"

	"github.com/python-project-templates/nativemod/domain/entities"
	nmerrors "github.com/python-project-templates/nativemod/domain/errors"
	"github.com/python-project-templates/nativemod/hostfuncs"
	"github.com/python-project-templates/nativemod/internal/abi"
	"github.com/python-project-templates/nativemod/module"
	"github.com/python-project-templates/nativemod/wireformat"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// RuntimeName is the Runtime name records should be loaded with when they
// are exported through this package.
const RuntimeName = "wazero"

// DefaultMaxRequestSize is the default limit for argument payloads read from
// guest memory (1 MiB).
const DefaultMaxRequestSize = 1 << 20

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// Logger receives adapter diagnostics. Default: no-op.
	Logger *zap.Logger

	// ModuleName overrides the host module name (default: the record name).
	ModuleName string

	// CustomHandlers allows adding additional wazero-specific handlers that
	// don't fit the packed request/response pattern (e.g., log_message with
	// no return).
	CustomHandlers []CustomHandler

	// MaxRequestSize limits the size of incoming requests from guest memory.
	// Default is 1MB.
	MaxRequestSize uint32
}

// CustomHandler represents a custom wazero handler that doesn't use the standard
// packed i64 request/response pattern.
type CustomHandler struct {
	// Handler is the wazero GoModuleFunc implementation.
	Handler api.GoModuleFunc

	// Name is the exported function name.
	Name string

	// ParamTypes are the WASM parameter types.
	ParamTypes []api.ValueType

	// ResultTypes are the WASM result types.
	ResultTypes []api.ValueType
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name guests import from.
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithMaxRequestSize sets the maximum request size from guest memory.
func WithMaxRequestSize(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		c.MaxRequestSize = size
	}
}

// WithCustomHandler adds a custom wazero handler.
func WithCustomHandler(h CustomHandler) AdapterOption {
	return func(c *AdapterConfig) {
		c.CustomHandlers = append(c.CustomHandlers, h)
	}
}

// WithLogger sets the logger for adapter diagnostics.
func WithLogger(logger *zap.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		c.Logger = logger
	}
}

// defaultAdapterConfig returns the default adapter configuration.
func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		Logger:         zap.NewNop(),
		MaxRequestSize: DefaultMaxRequestSize,
	}
}

// Export instantiates rec as a host module in runtime. Every export of rec
// becomes one host function of the same name.
//
// A runtime holds at most one module per name: exporting a record whose
// module name is already instantiated fails with *errors.LoadError and the
// existing module keeps working.
//
// Each host function:
//   - Reads the argument array from guest memory using the packed i64 ptr+len format
//   - Invokes the record export with the decoded arguments
//   - Allocates response memory in the guest using the "allocate" export
//   - Writes the response envelope and returns its packed i64 ptr+len
func Export(ctx context.Context, runtime wazero.Runtime, rec *module.Record, opts ...AdapterOption) (api.Module, error) {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ModuleName == "" {
		cfg.ModuleName = rec.Name()
	}
	logger := cfg.Logger.With(zap.String("component", "wazero"), zap.String("module", cfg.ModuleName))

	if runtime.Module(cfg.ModuleName) != nil {
		return nil, &nmerrors.LoadError{
			Module: cfg.ModuleName,
			Err:    fmt.Errorf("module %q is already instantiated in this runtime", cfg.ModuleName),
		}
	}

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)

	for _, name := range rec.Names() {
		funcName := name // capture for closure
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				stack[0] = handleCall(ctx, mod, stack[0], rec, funcName, cfg, logger)
			}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
			WithName(funcName).
			Export(funcName)
	}

	for _, ch := range cfg.CustomHandlers {
		if rec.Has(ch.Name) {
			return nil, &nmerrors.LoadError{
				Module: cfg.ModuleName,
				Err:    &nmerrors.DuplicateNameError{Module: cfg.ModuleName, Name: ch.Name},
			}
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, &nmerrors.LoadError{Module: cfg.ModuleName, Err: err}
	}
	logger.Debug("exported host module", zap.Strings("exports", rec.Names()))
	return mod, nil
}

// handleCall handles a host function call from WASM.
// It reads the arguments from guest memory, invokes the export and writes
// the response envelope. Returns the packed envelope, or 0 if the guest
// could not receive it.
func handleCall(ctx context.Context, mod api.Module, packed uint64, rec *module.Record, name string, cfg AdapterConfig, logger *zap.Logger) uint64 {
	caller := callerOf(ctx, mod, cfg.ModuleName)
	log := logger.With(zap.String("function", name), zap.String("guest", caller.Guest))

	var (
		value  []byte
		detail *entities.ErrorDetail
	)

	payload, err := abi.Read(mod.Memory(), packed, cfg.MaxRequestSize)
	if err != nil {
		log.Warn("rejected guest request", zap.Error(err))
		detail = hostfuncs.NewArgumentError("request", err.Error())
	}

	if detail == nil {
		args, err := wireformat.DecodeArgs(payload)
		if err != nil {
			detail = hostfuncs.NewArgumentError("decode", err.Error())
		} else {
			value, err = rec.Invoke(WithCaller(ctx, caller), name, args)
			if err != nil {
				detail = nmerrors.ToErrorDetail(err)
			}
		}
	}

	resp, err := abi.Write(ctx, mod, wireformat.EncodeResponse(value, detail))
	if err != nil {
		log.Error("failed to write response to guest", zap.Error(err))
		return 0
	}
	return resp
}
