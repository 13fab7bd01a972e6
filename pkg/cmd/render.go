// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var jsonOptions = protojson.MarshalOptions{Multiline: true, Indent: "  "}

// renderJSON writes v as indented JSON. Values must be JSON types.
func renderJSON(w io.Writer, v map[string]any) error {
	st, err := structpb.NewStruct(v)
	if err != nil {
		return fmt.Errorf("converting output: %w", err)
	}
	data, err := jsonOptions.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
