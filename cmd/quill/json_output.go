package main

import (
	"encoding/json"
	"fmt"
	"io"
)

// emitJSON renders v as two-space-indented JSON on w for --json output.
func emitJSON(w io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(encoded))
	return err
}
