// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ParseResult contains the result of a successful CUE parse operation.
type ParseResult[T any] struct {
	// Value is the decoded Go struct.
	Value *T

	// Unified is the unified CUE value, kept for callers that need fields the
	// Go struct does not model (e.g. an open-ended schema block).
	Unified cue.Value
}

// ParseAndDecode compiles schema and data in one CUE context, unifies data with
// the definition at schemaPath (e.g. "#Command", "#Config"), validates and
// decodes the result into T.
//
// Errors carry the file name and the JSON-style path of the offending field.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	options := applyOptions(opts)

	if err := CheckFileSize(data, options.maxFileSize, options.filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(options.filename))
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), options.filename)
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	unified := schemaRoot.Unify(userValue)
	if err := unified.Validate(cue.Concrete(options.concrete)); err != nil {
		return nil, FormatError(err, options.filename)
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, options.filename)
	}

	return &ParseResult[T]{
		Value:   &result,
		Unified: unified,
	}, nil
}

// DecodeFile reads path and runs ParseAndDecode on its contents. The file name
// in error messages defaults to path.
func DecodeFile[T any](path string, schema []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	data, err := readLimited(path, applyOptions(opts).maxFileSize)
	if err != nil {
		return nil, err
	}
	return ParseAndDecode[T](schema, data, schemaPath, append([]Option{WithFilename(path)}, opts...)...)
}

// CompileFile compiles a CUE file without a schema. It is used to read loosely
// structured blocks (such as metadata) out of files whose full shape is checked
// elsewhere.
func CompileFile(path string, opts ...Option) (cue.Value, error) {
	options := applyOptions(append([]Option{WithFilename(path)}, opts...))
	data, err := readLimited(path, options.maxFileSize)
	if err != nil {
		return cue.Value{}, err
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(options.filename))
	if v.Err() != nil {
		return cue.Value{}, FormatError(v.Err(), options.filename)
	}
	return v, nil
}

func readLimited(path string, maxSize int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, info.Size(), maxSize)
	}
	return os.ReadFile(path)
}
