// Package schema generates JSON schemas for exported function signatures.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/python-project-templates/nativemod/domain/entities"
	"github.com/python-project-templates/nativemod/hostfuncs"
)

func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		ExpandedStruct: true, // Expand struct definitions inline
		DoNotReference: true,
		Anonymous:      true,
	}
}

// GenerateSchema creates a JSON schema from a Go value.
// It uses the `invopop/jsonschema` library to reflect on the value
// and generate a standard JSON Schema (Draft 2020-12).
func GenerateSchema(v interface{}) ([]byte, error) {
	schema := newReflector().Reflect(v)

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return jsonBytes, nil
}

// TypeSchema returns the JSON schema of t as a generic map. The "$schema"
// keyword is dropped; an unconstrained type (such as an empty interface)
// yields an empty map.
func TypeSchema(t reflect.Type) (map[string]any, error) {
	schema := newReflector().ReflectFromType(t)

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema for %s: %w", t, err)
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode schema for %s: %w", t, err)
	}
	out, ok := decoded.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	delete(out, "$schema")
	return out, nil
}

// FunctionManifest describes one wrapped function for introspection.
func FunctionManifest(name string, fn *hostfuncs.Function) (entities.FunctionManifest, error) {
	sig := fn.Signature()
	m := entities.FunctionManifest{
		Name:     name,
		Params:   make([]entities.ParamManifest, 0, len(sig.Params)),
		Fallible: sig.Fallible,
		Variadic: sig.Variadic,
	}

	for i, p := range sig.Params {
		s, err := TypeSchema(p)
		if err != nil {
			return m, fmt.Errorf("%s parameter %d: %w", name, i, err)
		}
		typeName := p.String()
		if sig.Variadic && i == len(sig.Params)-1 {
			typeName = "..." + p.Elem().String()
		}
		m.Params = append(m.Params, entities.ParamManifest{Schema: s, Type: typeName, Position: i})
	}

	if sig.Result != nil {
		s, err := TypeSchema(sig.Result)
		if err != nil {
			return m, fmt.Errorf("%s result: %w", name, err)
		}
		m.Result = s
	}
	return m, nil
}
