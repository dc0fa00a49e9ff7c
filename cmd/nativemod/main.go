// Command nativemod imports nativemod modules and calls their exports from
// the command line, from JavaScript or from a WebAssembly guest.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/python-project-templates/nativemod/internal/config"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	// Modules available to every invocation.
	_ "github.com/python-project-templates/nativemod/examples/calc"
	_ "github.com/python-project-templates/nativemod/examples/project"
)

const usage = `nativemod - import native Go modules and call their exports.

Usage:
  nativemod [options] <command> [arguments]

Commands:
  list                                  List importable modules
  inspect [--format json|yaml] <module> Print the manifest of a module
  call [--check] [--manifest file] <module> <function> [json-args...]
                                        Call an export with JSON arguments
  eval [-f file] [js...]                Evaluate JavaScript with require()
  run <guest.wasm> <export> [json-args...]
                                        Call an export of a WebAssembly guest

Options:
`

// ExitError is returned for usage errors and carries the process exit code.
type ExitError struct {
	Message string
	Code    int
}

func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, afero.NewOsFs(), os.Stdout, os.Stderr, os.Args[1:])
	stop()

	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run parses global options, sets up logging and the loader, and dispatches
// the command. Files are read from fsys.
func run(ctx context.Context, fsys afero.Fs, stdout, stderr io.Writer, args []string) error {
	flags := pflag.NewFlagSet("nativemod", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}

	configPath := flags.String("config", "", "Path to configuration file")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-calls", false, "Log every call into native functions")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return usageError("%v", err)
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return &ExitError{Code: 2}
	}

	cfg, err := config.LoadFs(fsys, *configPath, flags)
	if err != nil {
		return usageError("%v", err)
	}

	logger := cfg.NewLogger(zapcore.AddSync(stderr))
	defer func() { _ = logger.Sync() }()

	app, err := newApp(ctx, fsys, stdout, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}

	command, rest := flags.Arg(0), flags.Args()[1:]
	logger.Debug("running command", zap.String("command", command), zap.Strings("args", rest))

	switch command {
	case "list":
		return app.list(rest)
	case "inspect":
		return app.inspect(rest)
	case "call":
		return app.call(rest)
	case "eval":
		return app.eval(rest)
	case "run":
		return app.runGuest(rest)
	default:
		return usageError("unknown command %q", command)
	}
}
