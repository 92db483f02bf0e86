// Package export renders gallery entries in the formats the
// `gallery list` command accepts via --format.
package export

import (
	"fmt"
	"io"

	"github.com/veighnsche/darkwall-comfyui/internal/history"
)

// Exporter defines the interface for all gallery export formats.
type Exporter interface {
	Export(entries []history.Entry, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "table", "":
		return &TableExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: table, jsonl, yaml, json)", format)
	}
}
