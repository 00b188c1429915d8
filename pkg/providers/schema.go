package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema describes the JSON shape a structured reply must take.
type Schema struct {
	Name        string
	Description string
	document    map[string]interface{}
	source      string
	compiled    *jsonschema.Schema
}

func NewSchema(name, description, source string) (*Schema, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("schema name is required")
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(source), &doc); err != nil {
		return nil, fmt.Errorf("parse %s schema: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	resource := name + ".json"
	if err := compiler.AddResource(resource, strings.NewReader(source)); err != nil {
		return nil, fmt.Errorf("add %s schema resource: %w", name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return &Schema{
		Name:        name,
		Description: strings.TrimSpace(description),
		document:    doc,
		source:      source,
		compiled:    compiled,
	}, nil
}

func MustSchema(name, description, source string) *Schema {
	s, err := NewSchema(name, description, source)
	if err != nil {
		panic(err)
	}
	return s
}

// Document returns the schema as a JSON-ready map.
func (s *Schema) Document() map[string]interface{} {
	return s.document
}

func (s *Schema) Source() string {
	return s.source
}

// Parse decodes raw as JSON and validates it. Code fences around the payload are tolerated.
func (s *Schema) Parse(raw string) (map[string]interface{}, error) {
	payload := stripCodeFence(raw)
	var doc interface{}
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if err := s.compiled.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate against %s: %w", s.Name, err)
	}
	fields, ok := doc.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s reply is not a JSON object", s.Name)
	}
	return fields, nil
}

func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
