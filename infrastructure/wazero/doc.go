// Package wazero exports module records as wazero host modules.
//
// Each export of a record becomes a host function with the signature
// (i64) -> i64. The parameter is a packed pointer/length of a JSON array of
// positional arguments in guest memory (length 0 means no arguments). The
// result is a packed pointer/length of a JSON envelope, either
// {"value": ...} or {"error": {...}}, written into memory obtained from the
// guest's "allocate" export. Guests import the functions by module name:
//
//	(import "project" "hello" (func $hello (param i64) (result i64)))
//
// # Exporting a Record
//
//	rec, err := project.Definition.Load(module.NamedRuntime("wazero"))
//	if err != nil {
//	    return err
//	}
//
//	runtime := wazero.NewRuntime(ctx)
//	if _, err := nmwazero.Export(ctx, runtime, rec); err != nil {
//	    return err
//	}
//
// # Raw Exports
//
// An export that must see guest memory directly, such as a log sink reading
// a string, is attached with WithCustomHandler and bypasses the JSON
// envelope. Native functions that need to know which guest called them read
// CallerFromContext(ctx) inside their body.
package wazero
