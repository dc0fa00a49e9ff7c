// Package plugin loads module entry points from Go plugins built with
// -buildmode=plugin.
//
// A plugin exports its entry point under the symbol module.EntryPointName,
// so a module named "greeter" is found as InitGreeter. The symbol may be a
// function with the module.InitFunc shape or a module.InitFunc variable.
package plugin

import (
	"fmt"
	"path/filepath"
	stdplugin "plugin"
	"strings"

	nmerrors "github.com/python-project-templates/nativemod/domain/errors"
	"github.com/python-project-templates/nativemod/module"
)

// SymbolTable resolves exported symbols. *plugin.Plugin implements it.
type SymbolTable interface {
	Lookup(symName string) (stdplugin.Symbol, error)
}

// extensions lists the shared object suffixes stripped from file names,
// longest first.
var extensions = []string{".abi3.so", ".so", ".dylib", ".dll"}

// ModuleNameFromPath derives the module name from a plugin file path:
// "/opt/ext/libgreeter.so" becomes "greeter".
func ModuleNameFromPath(path string) string {
	name := filepath.Base(path)
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			name = strings.TrimSuffix(name, ext)
			break
		}
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return strings.TrimPrefix(name, "lib")
}

// Open loads the plugin at path and returns the Definition of the module
// named after the file. Failures are *errors.LoadError.
func Open(path string) (*module.Definition, error) {
	name := ModuleNameFromPath(path)
	p, err := stdplugin.Open(path)
	if err != nil {
		return nil, &nmerrors.LoadError{Module: name, Err: fmt.Errorf("open plugin %s: %w", path, err)}
	}
	return FromSymbols(name, p)
}

// FromSymbols resolves the entry point of module name in syms. The returned
// Definition is not added to the process-wide table.
func FromSymbols(name string, syms SymbolTable) (*module.Definition, error) {
	if err := module.ValidateName(name); err != nil {
		return nil, &nmerrors.LoadError{Module: name, Err: err}
	}

	symbol := module.EntryPointName(name)
	sym, err := syms.Lookup(symbol)
	if err != nil {
		return nil, &nmerrors.LoadError{Module: name, Err: &nmerrors.ModuleNotFoundError{Module: name}}
	}

	init, err := asInitFunc(sym)
	if err != nil {
		return nil, &nmerrors.LoadError{Module: name, Err: fmt.Errorf("symbol %s: %w", symbol, err)}
	}
	return module.NewDefinition(name, init), nil
}

func asInitFunc(sym stdplugin.Symbol) (module.InitFunc, error) {
	switch fn := sym.(type) {
	case func(module.Runtime, *module.Builder) error:
		return fn, nil
	case module.InitFunc:
		return fn, nil
	case *module.InitFunc:
		if fn == nil || *fn == nil {
			return nil, fmt.Errorf("entry point is nil")
		}
		return *fn, nil
	case *func(module.Runtime, *module.Builder) error:
		if fn == nil || *fn == nil {
			return nil, fmt.Errorf("entry point is nil")
		}
		return *fn, nil
	default:
		return nil, fmt.Errorf("unexpected entry point type %T", sym)
	}
}
