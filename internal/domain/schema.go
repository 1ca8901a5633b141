package domain

import (
	"fmt"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/catalogseed/pkg/errors"
)

// FieldType is the storage type of a scalar entity field.
type FieldType string

// Supported field types.
const (
	FieldString  FieldType = "string"
	FieldText    FieldType = "text"
	FieldInt     FieldType = "int"
	FieldDecimal FieldType = "decimal"
	FieldBool    FieldType = "bool"
	FieldRef     FieldType = "ref"
)

// Field describes one non-key column of an entity table.
type Field struct {
	Name     string
	Type     FieldType
	Default  any
	Required bool
	// Ref names the referenced kind when Type is FieldRef.
	Ref Kind
}

// Schema describes how an entity kind is stored.
type Schema struct {
	Kind  Kind
	Table string
	// Key lists the natural-key columns.
	Key    []string
	Fields []Field
	// Parent is the column holding the parent reference, if any. It must
	// also appear in Fields as a FieldRef.
	Parent string

	TranslationTable  string
	TranslationFK     string
	TranslationFields []string
}

// Field returns the field named name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Translatable reports whether the kind has a translation table.
func (s *Schema) Translatable() bool {
	return s.TranslationTable != ""
}

// KeyValue returns the value of a single-column natural key.
func (s *Schema) KeyValue(key Key) string {
	if len(s.Key) == 0 {
		return ""
	}
	return key[s.Key[0]]
}

// ValidateKey checks that key holds a non-empty value for exactly the
// natural-key columns.
func (s *Schema) ValidateKey(key Key) error {
	if len(key) != len(s.Key) {
		return apperrors.InvalidInput(fmt.Sprintf("%s key must have columns %v, got %d", s.Kind, s.Key, len(key)))
	}
	for _, col := range s.Key {
		if v, ok := key[col]; !ok || v == "" {
			return apperrors.InvalidInput(fmt.Sprintf("%s key column %q is missing", s.Kind, col))
		}
	}
	return nil
}

// Normalize type-checks attrs against the schema. It returns the values to
// insert (provided attributes plus defaults) and the provided column names in
// schema order. Only provided columns are overwritten when the row exists.
func (s *Schema) Normalize(attrs Attributes) (Attributes, []string, error) {
	for name := range attrs {
		if slices.Contains(s.Key, name) {
			return nil, nil, apperrors.InvalidInput(fmt.Sprintf("%s field %q is part of the natural key", s.Kind, name))
		}
		if _, ok := s.Field(name); !ok {
			return nil, nil, apperrors.InvalidInput(fmt.Sprintf("unknown %s field %q", s.Kind, name))
		}
	}

	values := make(Attributes, len(s.Fields))
	var provided []string
	for _, f := range s.Fields {
		raw, ok := attrs[f.Name]
		if !ok {
			if f.Required {
				return nil, nil, apperrors.InvalidInput(fmt.Sprintf("%s field %q is required", s.Kind, f.Name))
			}
			if f.Default != nil {
				values[f.Name] = f.Default
			}
			continue
		}

		v, err := coerce(f, raw)
		if err != nil {
			return nil, nil, apperrors.InvalidInput(fmt.Sprintf("%s field %q: %v", s.Kind, f.Name, err))
		}
		values[f.Name] = v
		provided = append(provided, f.Name)
	}
	return values, provided, nil
}

// ValidateTranslation rejects translation fields the kind does not carry.
func (s *Schema) ValidateTranslation(fields map[string]string) error {
	if !s.Translatable() {
		return apperrors.InvalidInput(fmt.Sprintf("%s has no translations", s.Kind))
	}
	for name := range fields {
		if !slices.Contains(s.TranslationFields, name) {
			return apperrors.InvalidInput(fmt.Sprintf("unknown %s translation field %q", s.Kind, name))
		}
	}
	return nil
}

func coerce(f Field, raw any) (any, error) {
	if raw == nil {
		if f.Required {
			return nil, fmt.Errorf("must not be null")
		}
		return nil, nil
	}

	switch f.Type {
	case FieldString, FieldText:
		if v, ok := raw.(string); ok {
			return v, nil
		}
	case FieldRef:
		if v, ok := raw.(string); ok && v != "" {
			return v, nil
		}
	case FieldBool:
		if v, ok := raw.(bool); ok {
			return v, nil
		}
	case FieldInt:
		switch v := raw.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			if v == math.Trunc(v) {
				return int64(v), nil
			}
		}
	case FieldDecimal:
		switch v := raw.(type) {
		case decimal.Decimal:
			return v, nil
		case float64:
			return decimal.NewFromFloat(v), nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		case string:
			d, err := decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("invalid decimal %q", v)
			}
			return d, nil
		}
	default:
		return nil, fmt.Errorf("unsupported field type %s", f.Type)
	}
	return nil, fmt.Errorf("expected %s, got %T", f.Type, raw)
}
