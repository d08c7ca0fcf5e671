// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE parsing utilities.
//
// Config files, declarative handler files and parameter schemas all follow the
// same flow:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with schema
//  3. Validate and decode to a Go struct
//
// # Usage
//
//	//go:embed handler_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.DecodeFile[CommandFile](path, schemaBytes, "#Command")
//	if err != nil {
//	    return nil, err // includes file name and CUE path
//	}
//	return result.Value, nil
//
// Issues flattens a CUE error into (path, message) pairs for callers that
// report structured validation problems instead of a single error string.
package cueutil
