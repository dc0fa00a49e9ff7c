// Package parser reads and writes module manifests as JSON or YAML.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/python-project-templates/nativemod/domain/entities"
	"gopkg.in/yaml.v3"
)

// Format is a manifest encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown manifest format %q", name)
	}
}

// FormatFromPath picks the format from a file extension. Anything other
// than .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ManifestParser decodes a manifest document.
type ManifestParser interface {
	Parse(data []byte) (*entities.ModuleManifest, error)
}

// YamlManifestParser implements ManifestParser for YAML.
type YamlManifestParser struct{}

// NewYamlManifestParser creates a new YamlManifestParser.
func NewYamlManifestParser() ManifestParser {
	return &YamlManifestParser{}
}

// Parse unmarshals YAML bytes into a ModuleManifest struct.
func (p *YamlManifestParser) Parse(data []byte) (*entities.ModuleManifest, error) {
	var manifest entities.ModuleManifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &manifest, nil
}

// JSONManifestParser implements ManifestParser for JSON.
type JSONManifestParser struct{}

// NewJSONManifestParser creates a new JSONManifestParser.
func NewJSONManifestParser() ManifestParser {
	return &JSONManifestParser{}
}

// Parse unmarshals JSON bytes into a ModuleManifest struct.
func (p *JSONManifestParser) Parse(data []byte) (*entities.ModuleManifest, error) {
	var manifest entities.ModuleManifest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &manifest, nil
}

// NewManifestParser returns the parser for format f.
func NewManifestParser(f Format) ManifestParser {
	if f == FormatYAML {
		return NewYamlManifestParser()
	}
	return NewJSONManifestParser()
}

// Write encodes manifest to w in format f.
func Write(w io.Writer, manifest entities.ModuleManifest, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(manifest)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(manifest); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown manifest format %q", f)
	}
}
