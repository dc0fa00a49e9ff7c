// Package module registers wrapped native functions under a named module and
// exposes the module through a single entry point.
//
// A module is declared once, usually from a package init function:
//
//	var Project = module.Define("project", func(rt module.Runtime, m *module.Builder) error {
//	    return m.Add("hello", func() string { return "A string" })
//	})
//
// A host loader resolves the entry point (by name or by its symbol,
// EntryPointName("project") == "InitProject") and calls Definition.Load.
// Load runs the entry point exactly once; the resulting Record is immutable
// and safe for concurrent use.
package module
