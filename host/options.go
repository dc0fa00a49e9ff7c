package host

import (
	"github.com/python-project-templates/nativemod/hostfuncs"
	"github.com/python-project-templates/nativemod/module"
	"go.uber.org/zap"
)

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithLogger sets the logger used for import diagnostics.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(c *loaderConfig) {
		c.logger = logger
	}
}

// WithMiddleware wraps every imported record's functions. Middleware
// executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...hostfuncs.Middleware) LoaderOption {
	return func(c *loaderConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithCallLogging logs every invocation through the loader's logger.
func WithCallLogging(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.logCalls = enabled
	}
}

// WithDefinition makes def importable by name in addition to the
// process-wide entry point table. It takes precedence over a table entry of
// the same name.
func WithDefinition(def *module.Definition) LoaderOption {
	return func(c *loaderConfig) {
		c.definitions[def.Name()] = def
	}
}

// WithRuntimeName sets the Runtime name passed to entry points.
func WithRuntimeName(name string) LoaderOption {
	return func(c *loaderConfig) {
		c.runtimeName = name
	}
}

// Option defines a functional option for configuring the Executor.
type Option func(*executorConfig)

// WithLoader configures the executor to import modules through l.
func WithLoader(l *Loader) Option {
	return func(c *executorConfig) {
		c.loader = l
	}
}

// WithExecutorLogger sets the logger for the executor and its host modules.
func WithExecutorLogger(logger *zap.Logger) Option {
	return func(c *executorConfig) {
		c.logger = logger
	}
}

// WithMaxRequestSize limits argument payloads read from guest memory.
func WithMaxRequestSize(size uint32) Option {
	return func(c *executorConfig) {
		c.maxRequestSize = size
	}
}

// WithMemoryLimitPages caps guest memory, in 64 KiB pages. Zero keeps the
// wazero default.
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *executorConfig) {
		c.memoryLimitPages = pages
	}
}

// WithCloseOnContextDone makes guest calls stop when their context is done.
func WithCloseOnContextDone(enabled bool) Option {
	return func(c *executorConfig) {
		c.closeOnContextDone = enabled
	}
}

// WithWASI enables or disables the wasi_snapshot_preview1 host module.
// Enabled by default.
func WithWASI(enabled bool) Option {
	return func(c *executorConfig) {
		c.wasi = enabled
	}
}
