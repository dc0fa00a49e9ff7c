package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dop251/goja"
	"github.com/python-project-templates/nativemod/application/validation"
	"github.com/python-project-templates/nativemod/domain/entities"
	"github.com/python-project-templates/nativemod/host"
	nmgoja "github.com/python-project-templates/nativemod/infrastructure/goja"
	"github.com/python-project-templates/nativemod/infrastructure/parser"
	"github.com/python-project-templates/nativemod/infrastructure/plugin"
	"github.com/python-project-templates/nativemod/internal/config"
	"github.com/python-project-templates/nativemod/module"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type app struct {
	ctx    context.Context
	fs     afero.Fs
	stdout io.Writer
	cfg    *config.Config
	logger *zap.Logger
	loader *host.Loader
}

func newApp(ctx context.Context, fsys afero.Fs, stdout io.Writer, cfg *config.Config, logger *zap.Logger) (*app, error) {
	opts := []host.LoaderOption{
		host.WithLogger(logger),
		host.WithCallLogging(cfg.LogCalls),
	}
	for _, path := range cfg.PluginPaths {
		def, err := plugin.Open(path)
		if err != nil {
			return nil, err
		}
		logger.Debug("opened plugin", zap.String("path", path), zap.String("module", def.Name()))
		opts = append(opts, host.WithDefinition(def))
	}

	a := &app{
		ctx:    ctx,
		fs:     fsys,
		stdout: stdout,
		cfg:    cfg,
		logger: logger,
		loader: host.NewLoader(opts...),
	}

	for _, name := range cfg.Preload {
		if _, err := a.loader.Import(ctx, name); err != nil {
			return nil, fmt.Errorf("preload: %w", err)
		}
	}
	return a, nil
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(false)
	return fs
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError("%s: %v", fs.Name(), err)
	}
	return nil
}

// jsonArgs checks that every argument is a JSON document.
func jsonArgs(args []string) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(args))
	for i, arg := range args {
		if !json.Valid([]byte(arg)) {
			return nil, usageError("argument %d is not valid JSON: %s", i, arg)
		}
		out[i] = json.RawMessage(arg)
	}
	return out, nil
}

func (a *app) println(b []byte) error {
	_, err := fmt.Fprintf(a.stdout, "%s\n", b)
	return err
}

func (a *app) list(args []string) error {
	fs := newFlagSet("list")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tENTRY POINT\tSTATE")
	for _, name := range a.loader.Available() {
		def, ok := a.loader.Definition(name)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, def.EntryPoint(), def.State())
	}
	return w.Flush()
}

func (a *app) inspect(args []string) error {
	fs := newFlagSet("inspect")
	format := fs.StringP("format", "f", "json", "Output format (json, yaml)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("inspect: expected one module name")
	}
	f, err := parser.ParseFormat(*format)
	if err != nil {
		return usageError("inspect: %v", err)
	}

	rec, err := a.loader.Import(a.ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	manifest, err := rec.Manifest()
	if err != nil {
		return err
	}

	return parser.Write(a.stdout, manifest, f)
}

func (a *app) call(args []string) error {
	fs := newFlagSet("call")
	check := fs.Bool("check", false, "Validate arguments against the parameter schemas first")
	manifestPath := fs.String("manifest", "", "Validate against a saved manifest instead (implies --check)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return usageError("call: expected a module and a function name")
	}
	params, err := jsonArgs(fs.Args()[2:])
	if err != nil {
		return err
	}

	rec, err := a.loader.Import(a.ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if *check || *manifestPath != "" {
		manifest, err := a.manifest(rec, *manifestPath)
		if err != nil {
			return err
		}
		v, err := validation.NewArgumentValidator(*manifest)
		if err != nil {
			return err
		}
		rec = rec.WithMiddleware(v.Middleware())
	}

	resp, err := rec.Invoke(a.ctx, fs.Arg(1), params)
	if err != nil {
		return err
	}
	return a.println(resp)
}

// manifest returns the manifest stored at path, or the one generated from
// rec when path is empty.
func (a *app) manifest(rec *module.Record, path string) (*entities.ModuleManifest, error) {
	if path == "" {
		m, err := rec.Manifest()
		return &m, err
	}
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := parser.NewManifestParser(parser.FormatFromPath(path)).Parse(data)
	if err != nil {
		return nil, err
	}
	if m.Name != rec.Name() {
		return nil, usageError("manifest %s describes module %q, not %q", path, m.Name, rec.Name())
	}
	return m, nil
}

func (a *app) eval(args []string) error {
	fs := newFlagSet("eval")
	file := fs.StringP("file", "f", "", "Read the script from a file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	name, script := "<eval>", strings.Join(fs.Args(), " ")
	if *file != "" {
		b, err := afero.ReadFile(a.fs, *file)
		if err != nil {
			return fmt.Errorf("failed to read script: %w", err)
		}
		name, script = *file, string(b)
	}
	if strings.TrimSpace(script) == "" {
		return usageError("eval: no script given")
	}

	vm := goja.New()
	if err := nmgoja.EnableRequire(a.ctx, vm, a.loader); err != nil {
		return err
	}
	prog, err := goja.Compile(name, script, false)
	if err != nil {
		return err
	}
	v, err := vm.RunProgram(prog)
	if err != nil {
		return err
	}
	if v == nil || goja.IsUndefined(v) {
		return nil
	}

	b, err := json.Marshal(v.Export())
	if err != nil {
		return a.println([]byte(v.String()))
	}
	return a.println(b)
}

func (a *app) runGuest(args []string) error {
	fs := newFlagSet("run")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return usageError("run: expected a guest file and an export name")
	}
	params, err := jsonArgs(fs.Args()[2:])
	if err != nil {
		return err
	}

	wasmBytes, err := afero.ReadFile(a.fs, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to read guest: %w", err)
	}

	exec, err := host.NewExecutor(a.ctx,
		host.WithLoader(a.loader),
		host.WithExecutorLogger(a.logger),
		host.WithMaxRequestSize(a.cfg.Wasm.MaxRequestSize),
		host.WithMemoryLimitPages(a.cfg.Wasm.MemoryLimitPages),
		host.WithCloseOnContextDone(a.cfg.Wasm.CloseOnContextDone),
	)
	if err != nil {
		return err
	}
	defer exec.Close(a.ctx)

	guest, err := exec.LoadGuest(a.ctx, wasmBytes)
	if err != nil {
		return err
	}
	defer guest.Close(a.ctx)

	callArgs := make([]any, len(params))
	for i, p := range params {
		callArgs[i] = p
	}
	resp, err := guest.Call(a.ctx, fs.Arg(1), callArgs...)
	if err != nil {
		return err
	}
	return a.println(resp)
}
