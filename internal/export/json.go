package export

import (
	"encoding/json"
	"io"

	"github.com/veighnsche/darkwall-comfyui/internal/history"
)

// JSONExporter exports gallery entries in pretty-printed JSON.
type JSONExporter struct{}

func (e *JSONExporter) Export(entries []history.Entry, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func (e *JSONExporter) Extension() string {
	return "json"
}
