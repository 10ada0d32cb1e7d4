package exporter

import (
	"encoding/json"
	"io"
)

// WriteJSON writes v as indented JSON, atomically.
func WriteJSON(path string, v interface{}) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	})
}
