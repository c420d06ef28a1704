// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"io"
	"os"
	"reflect"
)

// JSONOutput is an embeddable struct that adds --json output support to
// a command's params struct.
//
//	type statusParams struct {
//	    cli.JSONOutput
//	    Record string `flag:"record" desc:"class record path"`
//	}
//
//	if done, err := params.EmitJSON(report); done {
//	    return err
//	}
type JSONOutput struct {
	OutputJSON bool `json:"-" flag:"json" desc:"output as JSON"`

	// Stdout replaces os.Stdout in tests.
	Stdout io.Writer `json:"-"`
}

// EmitJSON writes result as indented JSON if --json is set. Returns
// (false, nil) when the caller should print text instead. Nil slices
// are written as [].
func (j *JSONOutput) EmitJSON(result any) (bool, error) {
	if !j.OutputJSON {
		return false, nil
	}
	w := j.Stdout
	if w == nil {
		w = os.Stdout
	}
	return true, WriteJSON(w, normalizeNilSlice(result))
}

// WriteJSON marshals value as indented JSON to w.
func WriteJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func normalizeNilSlice(value any) any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return value
}
