package host

import (
	"context"
	"sort"
	"sync"

	nmerrors "github.com/python-project-templates/nativemod/domain/errors"
	"github.com/python-project-templates/nativemod/hostfuncs"
	"github.com/python-project-templates/nativemod/module"
	"go.uber.org/zap"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	logger      *zap.Logger
	definitions map[string]*module.Definition
	runtimeName string
	middleware  []hostfuncs.Middleware
	logCalls    bool
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		logger:      zap.NewNop(),
		definitions: make(map[string]*module.Definition),
		runtimeName: module.DefaultRuntime,
	}
}

// Loader imports modules by name. Imports are serialized; each module's
// entry point runs at most once per process, and a module imported through
// the same Loader twice yields the same record.
type Loader struct {
	logger  *zap.Logger
	modules map[string]*module.Record
	config  loaderConfig
	mu      sync.Mutex
}

// NewLoader creates a new Loader with defaults.
func NewLoader(opts ...LoaderOption) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	return &Loader{
		config:  cfg,
		logger:  cfg.logger.With(zap.String("component", "loader")),
		modules: make(map[string]*module.Record),
	}
}

// Import resolves the entry point of module name, runs registration and
// returns the record. Failures are *errors.LoadError; an unknown name wraps
// *errors.ModuleNotFoundError.
func (l *Loader) Import(ctx context.Context, name string) (*module.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.modules[name]; ok {
		return rec, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, &nmerrors.LoadError{Module: name, Err: err}
	}

	def, ok := l.definition(name)
	if !ok {
		l.logger.Debug("module not found", zap.String("module", name))
		return nil, &nmerrors.LoadError{Module: name, Err: &nmerrors.ModuleNotFoundError{Module: name}}
	}

	rec, err := def.Load(module.NamedRuntime(l.config.runtimeName))
	if err != nil {
		l.logger.Warn("module import failed",
			zap.String("module", name),
			zap.String("entry_point", def.EntryPoint()),
			zap.Error(err))
		return nil, err
	}

	mw := l.config.middleware
	if l.config.logCalls {
		mw = append(append([]hostfuncs.Middleware(nil), mw...), hostfuncs.LoggingMiddleware(l.logger))
	}
	rec = rec.WithMiddleware(mw...)

	l.modules[name] = rec
	l.logger.Info("imported module",
		zap.String("module", name),
		zap.String("entry_point", def.EntryPoint()),
		zap.Strings("exports", rec.Names()))
	return rec, nil
}

// Modules returns the sorted names of modules imported so far.
func (l *Loader) Modules() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.modules))
	for name := range l.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Available returns the sorted names of all importable modules.
func (l *Loader) Available() []string {
	seen := make(map[string]bool)
	for _, name := range module.Names() {
		seen[name] = true
	}
	for name := range l.config.definitions {
		seen[name] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns the definition Import would use for name.
func (l *Loader) Definition(name string) (*module.Definition, bool) {
	return l.definition(name)
}

func (l *Loader) definition(name string) (*module.Definition, bool) {
	if def, ok := l.config.definitions[name]; ok {
		return def, true
	}
	return module.Lookup(name)
}
