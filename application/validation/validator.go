// Package validation checks call arguments against the JSON schemas of a
// module manifest before they reach the wrapped function.
package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/python-project-templates/nativemod/domain/entities"
	"github.com/python-project-templates/nativemod/hostfuncs"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CodeSchema is the error code of a schema violation.
const CodeSchema = "schema"

type functionSchemas struct {
	params   []*jsonschema.Schema
	nullable []bool
	items    *jsonschema.Schema // element schema of a variadic parameter
}

// ArgumentValidator validates positional JSON arguments using the parameter
// schemas of a module manifest.
type ArgumentValidator struct {
	functions map[string]*functionSchemas
	module    string
}

// NewArgumentValidator compiles the parameter schemas of every function in
// manifest.
func NewArgumentValidator(manifest entities.ModuleManifest) (*ArgumentValidator, error) {
	v := &ArgumentValidator{
		module:    manifest.Name,
		functions: make(map[string]*functionSchemas, len(manifest.Functions)),
	}
	compiler := jsonschema.NewCompiler()

	for _, fn := range manifest.Functions {
		fs := &functionSchemas{}
		for _, p := range fn.Params {
			schema := p.Schema
			variadic := fn.Variadic && p.Position == len(fn.Params)-1
			if variadic {
				items, _ := schema["items"].(map[string]any)
				sch, err := compile(compiler, v.url(fn.Name, fmt.Sprintf("%d/items", p.Position)), items)
				if err != nil {
					return nil, err
				}
				fs.items = sch
				continue
			}
			sch, err := compile(compiler, v.url(fn.Name, fmt.Sprint(p.Position)), schema)
			if err != nil {
				return nil, err
			}
			fs.params = append(fs.params, sch)
			fs.nullable = append(fs.nullable, strings.HasPrefix(p.Type, "*"))
		}
		v.functions[fn.Name] = fs
	}
	return v, nil
}

func (v *ArgumentValidator) url(function, suffix string) string {
	return fmt.Sprintf("nativemod:///%s/%s/%s.json", v.module, function, suffix)
}

func compile(c *jsonschema.Compiler, url string, schema map[string]any) (*jsonschema.Schema, error) {
	if schema == nil {
		schema = map[string]any{}
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema %s: %w", url, err)
	}
	if err := c.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource %s: %w", url, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("invalid schema %s: %w", url, err)
	}
	return sch, nil
}

// Validate checks args against the schemas of function. Positions beyond
// the declared parameters are left to the wrapper's arity check.
func (v *ArgumentValidator) Validate(function string, args []json.RawMessage) (*entities.ValidationResult, error) {
	fs, ok := v.functions[function]
	if !ok {
		return nil, fmt.Errorf("no schemas for function %q in module %q", function, v.module)
	}

	result := &entities.ValidationResult{Valid: true}
	for i, raw := range args {
		var sch *jsonschema.Schema
		switch {
		case i < len(fs.params):
			sch = fs.params[i]
			if fs.nullable[i] && isNull(raw) {
				continue
			}
		case fs.items != nil:
			sch = fs.items
		default:
			continue
		}

		doc, err := decode(raw)
		if err != nil {
			result.Errors = append(result.Errors, entities.ValidationError{
				Field:   fmt.Sprintf("/%d", i),
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if err := sch.Validate(doc); err != nil {
			result.Errors = append(result.Errors, violations(i, err)...)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

// Middleware rejects calls whose arguments violate the parameter schemas
// with a validation error coded "schema". Calls to functions unknown to the
// manifest pass through.
func (v *ArgumentValidator) Middleware() hostfuncs.Middleware {
	return func(next hostfuncs.Handler) hostfuncs.Handler {
		return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
			cc, ok := hostfuncs.CallContextFrom(ctx)
			if !ok {
				return next(ctx, args)
			}
			result, err := v.Validate(cc.Function(), args)
			if err != nil || result.Valid {
				return next(ctx, args)
			}

			first := result.Errors[0]
			return nil, hostfuncs.NewValidationError(fmt.Sprintf("argument %s: %s", strings.TrimPrefix(first.Field, "/"), first.Message)).
				WithCode(CodeSchema).
				WithDetails(map[string]any{"errors": result.Errors})
		}
	}
}

func decode(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// violations flattens a schema error into one entry per failing leaf.
func violations(pos int, err error) []entities.ValidationError {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []entities.ValidationError{{Field: fmt.Sprintf("/%d", pos), Message: err.Error()}}
	}

	var out []entities.ValidationError
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, entities.ValidationError{
				Field:   fmt.Sprintf("/%d%s", pos, e.InstanceLocation),
				Message: e.Message,
			})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}
