package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/veighnsche/darkwall-comfyui/internal/history"
)

// JSONLExporter exports gallery entries one JSON object per line.
type JSONLExporter struct{}

func (e *JSONLExporter) Export(entries []history.Entry, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, entry := range entries {
		obj := map[string]any{
			"id":              entry.ID,
			"monitor":         entry.Monitor,
			"theme":           entry.Theme,
			"template":        entry.Template,
			"seed":            entry.Seed,
			"positive_prompt": entry.PositivePrompt,
			"negative_prompt": entry.NegativePrompt,
			"workflow_id":     entry.WorkflowID,
			"path":            entry.Path,
			"created_at":      entry.CreatedAt,
			"favorite":        entry.Favorite,
		}
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}
	}
	return nil
}

func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
