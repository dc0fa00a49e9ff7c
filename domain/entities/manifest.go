package entities

// ModuleManifest describes a finalized module record for host-side
// introspection. Functions are sorted by name.
type ModuleManifest struct {
	Name      string             `json:"name" yaml:"name"`
	Functions []FunctionManifest `json:"functions" yaml:"functions"`
}

// FunctionManifest describes one exported function. Schemas are JSON Schema
// documents decoded into generic maps so they render as JSON or YAML.
type FunctionManifest struct {
	Result   map[string]any  `json:"result,omitempty" yaml:"result,omitempty"`
	Name     string          `json:"name" yaml:"name"`
	Params   []ParamManifest `json:"params" yaml:"params"`
	Fallible bool            `json:"fallible" yaml:"fallible"`
	Variadic bool            `json:"variadic,omitempty" yaml:"variadic,omitempty"`
}

// ParamManifest describes one positional parameter.
type ParamManifest struct {
	Schema   map[string]any `json:"schema" yaml:"schema"`
	Type     string         `json:"type" yaml:"type"`
	Position int            `json:"position" yaml:"position"`
}

// Exports returns the exported function names in manifest order.
func (m ModuleManifest) Exports() []string {
	names := make([]string, len(m.Functions))
	for i, fn := range m.Functions {
		names[i] = fn.Name
	}
	return names
}
