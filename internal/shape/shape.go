// Package shape declares the structure expected from model output, steers the
// model towards it and coerces raw model text into a validated Record.
//
// A Shape is a flat, ordered mapping from field name to Kind. Validation is
// shallow: object and array fields are checked for their container type only.
package shape

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the declared type of a field.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
)

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindNumber, KindBoolean, KindObject, KindArray:
		return true
	default:
		return false
	}
}

// Field is one declared output key.
type Field struct {
	Name        string `yaml:"-" json:"name"`
	Kind        Kind   `yaml:"kind" json:"kind"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Shape is an ordered set of uniquely named fields. The zero value is the
// empty shape.
type Shape struct {
	fields []Field
}

// New builds a Shape, rejecting empty or duplicate field names. Kinds are not
// checked here; an unsupported kind surfaces as *UnknownKindError on Coerce.
func New(fields ...Field) (Shape, error) {
	seen := make(map[string]struct{}, len(fields))
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return Shape{}, fmt.Errorf("field name is required")
		}
		if _, exists := seen[name]; exists {
			return Shape{}, fmt.Errorf("duplicate field name: %s", name)
		}
		seen[name] = struct{}{}
		f.Name = name
		f.Kind = Kind(strings.ToLower(strings.TrimSpace(string(f.Kind))))
		out = append(out, f)
	}
	return Shape{fields: out}, nil
}

// MustNew is New that panics on error. Intended for static declarations.
func MustNew(fields ...Field) Shape {
	s, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Shape) Len() int {
	return len(s.fields)
}

func (s Shape) IsEmpty() bool {
	return len(s.fields) == 0
}

// Fields returns the fields in declaration order.
func (s Shape) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the field names in declaration order.
func (s Shape) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

func (s Shape) Field(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// UnmarshalYAML decodes a mapping of field name to either a kind string or a
// {kind, description} mapping. Document order becomes declaration order.
func (s *Shape) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: shape must be a mapping of field name to kind", node.Line)
	}

	fields := make([]Field, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		f := Field{Name: keyNode.Value}
		switch valueNode.Kind {
		case yaml.ScalarNode:
			f.Kind = Kind(valueNode.Value)
		case yaml.MappingNode:
			if err := valueNode.Decode(&f); err != nil {
				return fmt.Errorf("field %s: %w", keyNode.Value, err)
			}
			f.Name = keyNode.Value
		default:
			return fmt.Errorf("line %d: field %s must be a kind or a mapping", valueNode.Line, keyNode.Value)
		}
		fields = append(fields, f)
	}

	built, err := New(fields...)
	if err != nil {
		return err
	}
	*s = built
	return nil
}

// MarshalYAML encodes the shape as an ordered mapping.
func (s Shape) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range s.fields {
		value := &yaml.Node{}
		if err := value.Encode(f); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: f.Name},
			value,
		)
	}
	return node, nil
}

// LoadFile reads a YAML shape declaration.
func LoadFile(path string) (Shape, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Shape{}, fmt.Errorf("read shape file %s: %w", path, err)
	}
	var s Shape
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Shape{}, fmt.Errorf("parse shape file %s: %w", path, err)
	}
	return s, nil
}
