// Package utils contains small helper functions used by the CLI.
package utils

import (
	"encoding/json"
	"fmt"
	"io"
)

// PrintJSON writes v to w as tab-indented JSON.
func PrintJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return fmt.Errorf("marshalling json: %w", err)
	}

	_, err = fmt.Fprintln(w, string(out))
	return err
}

// MaskSecret keeps the first five characters of a secret so operators can
// tell configured values apart without printing them.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return "missing"
	case len(s) <= 5:
		return "present"
	default:
		return "present (" + s[:5] + "...)"
	}
}
