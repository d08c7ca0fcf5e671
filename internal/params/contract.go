// SPDX-License-Identifier: MPL-2.0

package params

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// TypeString keeps the raw token.
	TypeString Type = "string"
	// TypeNumber parses a float64.
	TypeNumber Type = "number"
	// TypeBoolean accepts true/1/yes and false/0/no.
	TypeBoolean Type = "boolean"
	// TypeArray splits on commas.
	TypeArray Type = "array"
	// TypeObject parses a JSON object.
	TypeObject Type = "object"
)

var (
	// ErrValidation is the sentinel error wrapped by ValidationError.
	ErrValidation = errors.New("invalid parameters")
	// ErrInvalidContract is returned by Contract.Check.
	ErrInvalidContract = errors.New("invalid parameter contract")
)

type (
	// Type is a field's declared value type.
	Type string

	// Field is the mapping for one parameter.
	Field struct {
		// Name is the key in the validated data.
		Name string `json:"field" yaml:"field" toml:"field"`
		// Type defaults to TypeString.
		Type Type `json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty"`
		// ArgIndex is the positional token index, if positional.
		ArgIndex *int `json:"argIndex,omitempty" yaml:"arg_index,omitempty" toml:"arg_index,omitempty"`
		// Option is the named option, without dashes.
		Option string `json:"option,omitempty" yaml:"option,omitempty" toml:"option,omitempty"`
		// Default is used when neither source supplies a value.
		Default any `json:"default,omitempty" yaml:"default,omitempty" toml:"default,omitempty"`
		// Required fields without a value or default produce an issue.
		Required bool `json:"required,omitempty" yaml:"required,omitempty" toml:"required,omitempty"`
		// Description is shown in generated help.
		Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	}

	// Contract is a command's parameter declaration.
	Contract struct {
		Fields []Field
		// Schema, when set, validates the assembled raw data.
		Schema Schema
	}
)

// IsValid reports whether t is a known type. The empty type is valid and
// means TypeString.
func (t Type) IsValid() bool {
	switch t {
	case "", TypeString, TypeNumber, TypeBoolean, TypeArray, TypeObject:
		return true
	default:
		return false
	}
}

// Index returns a pointer to i, for Field.ArgIndex literals.
func Index(i int) *int { return &i }

// Check reports structural problems in the contract: empty or duplicate
// field names, unknown types, negative indexes, and two fields claiming the
// same positional index or option.
func (c Contract) Check() error {
	var problems []string
	names := map[string]bool{}
	indexes := map[int]string{}
	options := map[string]string{}

	for i, f := range c.Fields {
		if f.Name == "" {
			problems = append(problems, fmt.Sprintf("field %d has no name", i))
			continue
		}
		if names[f.Name] {
			problems = append(problems, fmt.Sprintf("duplicate field %q", f.Name))
		}
		names[f.Name] = true
		if !f.Type.IsValid() {
			problems = append(problems, fmt.Sprintf("field %q has unknown type %q", f.Name, f.Type))
		}
		if f.ArgIndex != nil {
			if *f.ArgIndex < 0 {
				problems = append(problems, fmt.Sprintf("field %q has negative argIndex", f.Name))
			} else if other, ok := indexes[*f.ArgIndex]; ok {
				problems = append(problems, fmt.Sprintf("fields %q and %q share argIndex %d", other, f.Name, *f.ArgIndex))
			} else {
				indexes[*f.ArgIndex] = f.Name
			}
		}
		if f.Option != "" {
			if strings.HasPrefix(f.Option, "-") {
				problems = append(problems, fmt.Sprintf("field %q: option %q must not include dashes", f.Name, f.Option))
			}
			if other, ok := options[f.Option]; ok {
				problems = append(problems, fmt.Sprintf("fields %q and %q share option %q", other, f.Name, f.Option))
			}
			options[f.Option] = f.Name
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidContract, strings.Join(problems, "; "))
	}
	return nil
}

// Field returns the field with the given name.
func (c Contract) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
