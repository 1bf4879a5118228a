// Package validate compiles JSON Schemas and validates decoded values against them.
package validate

import (
	"bytes"
	"encoding/json"

	gschema "github.com/google/jsonschema-go/jsonschema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/TGBox/stat-tracker/pkg/errmodel"
)

// Schema is a compiled JSON Schema.
type Schema struct {
	name string
	sch  *jsonschema.Schema
}

// Compile compiles raw under name. An empty schema yields a nil *Schema that accepts anything.
func Compile(name string, raw []byte) (*Schema, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, errmodel.Validation("invalid_schema", "schema is not valid JSON", map[string]any{"schema": name, "error": err.Error()})
	}
	url := "mem://" + name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, errmodel.Validation("invalid_schema", "schema could not be loaded", map[string]any{"schema": name, "error": err.Error()})
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, errmodel.Validation("invalid_schema", "schema does not compile", map[string]any{"schema": name, "error": err.Error()})
	}
	return &Schema{name: name, sch: sch}, nil
}

// MustCompile is like Compile but panics on error. Use it for package-level schemas.
func MustCompile(name string, raw []byte) *Schema {
	s, err := Compile(name, raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the name the schema was compiled under.
func (s *Schema) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Validate checks data against the schema. data is normalized through JSON first,
// so Go structs validate the same way as their decoded form.
func (s *Schema) Validate(data any) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return errmodel.Validation("invalid_value", "value cannot be encoded as JSON", map[string]any{"schema": s.name, "error": err.Error()})
	}
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return errmodel.Validation("invalid_value", "value cannot be decoded", map[string]any{"schema": s.name, "error": err.Error()})
	}
	if err := s.sch.Validate(v); err != nil {
		return errmodel.Validation("invalid_value", "value does not match schema", map[string]any{"schema": s.name, "error": err.Error()})
	}
	return nil
}

// Decode unmarshals raw into out after validating it against the schema.
func (s *Schema) Decode(raw []byte, out any) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return errmodel.Validation("invalid_json", "document is not valid JSON", map[string]any{"schema": s.Name(), "error": err.Error()})
	}
	if s != nil {
		if err := s.sch.Validate(doc); err != nil {
			return errmodel.Validation("invalid_value", "document does not match schema", map[string]any{"schema": s.name, "error": err.Error()})
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errmodel.Validation("invalid_json", "document cannot be decoded", map[string]any{"schema": s.Name(), "error": err.Error()})
	}
	return nil
}

// SchemaFor infers a JSON Schema for the Go type T.
func SchemaFor[T any]() ([]byte, error) {
	s, err := gschema.For[T](nil)
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// MustSchemaFor is like SchemaFor but panics on error.
func MustSchemaFor[T any]() []byte {
	b, err := SchemaFor[T]()
	if err != nil {
		panic(err)
	}
	return b
}
