// Package schema defines the structured-output contracts stage answers must
// satisfy before they enter shared state. Schemas are explicit descriptors
// (field name, type, required flag) checked by a dedicated validator, so the
// contract does not depend on any serialization library's reflection rules.
package schema

import (
	"fmt"
	"math"
	"strings"
)

// FieldType enumerates the value types a schema field may declare.
type FieldType string

const (
	String     FieldType = "string"
	Int        FieldType = "int"
	StringList FieldType = "string list"
)

// Field describes one schema field.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
}

// Schema is the contract for one stage's terminal answer.
type Schema struct {
	Name   string
	Fields []Field
}

// Result is a stage's validated structured answer. Values are coerced to the
// declared field types (int fields hold int, list fields hold []string).
type Result map[string]any

// ValidationError reports every problem found in a candidate answer. It is
// fed back to the model verbatim, so messages name the offending fields.
type ValidationError struct {
	Schema string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s answer invalid: %s", e.Schema, strings.Join(e.Issues, "; "))
}

// Validate checks raw against the schema, returning a coerced Result on
// success. All problems are collected in one pass so the model gets the full
// picture in a single re-prompt. Fields the schema does not declare pass
// through untouched.
func (s Schema) Validate(raw map[string]any) (Result, *ValidationError) {
	issues := []string{}
	result := Result{}
	for k, v := range raw {
		result[k] = v
	}

	for _, f := range s.Fields {
		v, present := raw[f.Name]
		if !present || v == nil {
			if f.Required {
				issues = append(issues, fmt.Sprintf("missing required field %q", f.Name))
			}
			continue
		}

		coerced, err := coerce(v, f.Type)
		if err != nil {
			issues = append(issues, fmt.Sprintf("field %q %s", f.Name, err))
			continue
		}
		result[f.Name] = coerced
	}

	if len(issues) > 0 {
		return nil, &ValidationError{Schema: s.Name, Issues: issues}
	}
	return result, nil
}

// coerce converts a decoded JSON value into the declared field type.
func coerce(v any, t FieldType) (any, error) {
	switch t {
	case String:
		s, isString := v.(string)
		if !isString {
			return nil, fmt.Errorf("must be a string, got %T", v)
		}
		return s, nil

	case Int:
		switch n := v.(type) {
		case int:
			return n, nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("must be an integer, got %v", n)
			}
			return int(n), nil
		default:
			return nil, fmt.Errorf("must be an integer, got %T", v)
		}

	case StringList:
		switch list := v.(type) {
		case []string:
			return list, nil
		case []any:
			out := make([]string, 0, len(list))
			for _, item := range list {
				s, isString := item.(string)
				if !isString {
					return nil, fmt.Errorf("must contain only strings, got %T", item)
				}
				out = append(out, s)
			}
			return out, nil
		default:
			return nil, fmt.Errorf("must be a list of strings, got %T", v)
		}

	default:
		return nil, fmt.Errorf("has unknown schema type %q", t)
	}
}

// String returns the named field as a string, or "" if absent.
func (r Result) String(name string) string {
	s, _ := r[name].(string)
	return s
}

// Int returns the named field as an int, or 0 if absent. Results reloaded
// from stored JSON carry float64 values, so both forms are accepted.
func (r Result) Int(name string) int {
	switch n := r[name].(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

// StringList returns the named field as a []string, or nil if absent.
// Results reloaded from stored JSON carry []any values.
func (r Result) StringList(name string) []string {
	switch l := r[name].(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s, isString := item.(string); isString {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
