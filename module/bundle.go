package module

import (
	"sort"

	"github.com/python-project-templates/nativemod/hostfuncs"
)

// Bundle is a pre-configured set of related exports. Bundles allow
// attaching several functions at once.
type Bundle interface {
	// Exports returns a map of export names to wrapped functions.
	Exports() map[string]*hostfuncs.Function
}

// staticBundle implements Bundle with a fixed set of functions.
type staticBundle struct {
	exports map[string]*hostfuncs.Function
}

func (b *staticBundle) Exports() map[string]*hostfuncs.Function {
	return b.exports
}

// Functions returns a bundle of already wrapped functions.
func Functions(exports map[string]*hostfuncs.Function) Bundle {
	return &staticBundle{exports: exports}
}

// compositeBundle combines multiple bundles into one.
type compositeBundle struct {
	bundles []Bundle
}

func (b *compositeBundle) Exports() map[string]*hostfuncs.Function {
	result := make(map[string]*hostfuncs.Function)
	for _, bundle := range b.bundles {
		for name, fn := range bundle.Exports() {
			result[name] = fn
		}
	}
	return result
}

// Combine returns a bundle containing the exports of all bundles. When it is
// attached, a name exported by two of the parts is a duplicate.
func Combine(bundles ...Bundle) Bundle {
	return &compositeBundle{bundles: bundles}
}

func sortedNames(exports map[string]*hostfuncs.Function) []string {
	names := make([]string, 0, len(exports))
	for name := range exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
