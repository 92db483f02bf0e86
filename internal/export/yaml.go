package export

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/veighnsche/darkwall-comfyui/internal/history"
)

// YAMLExporter exports gallery entries in YAML.
type YAMLExporter struct{}

func (e *YAMLExporter) Export(entries []history.Entry, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	return enc.Encode(entries)
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}
