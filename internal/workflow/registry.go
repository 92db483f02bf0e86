// Package workflow implements the Workflow Registry and Injector of
// spec.md §4.5: resolving a (theme, resolution) pair to a JSON
// workflow document, filtering eligible templates, and substituting
// resolved prompt sections into placeholder leaves.
package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	darkwallerrors "github.com/veighnsche/darkwall-comfyui/internal/errors"
)

// Workflow is a loaded JSON document, identified by its filename stem.
type Workflow struct {
	ID  string
	Doc map[string]any
}

// Registry resolves workflow identifiers to documents rooted at a
// configuration's workflows/ directory. Loaded documents are cached
// read-only for the process lifetime; the Injector always works over
// a deep-cloned copy so the cache is never mutated.
type Registry struct {
	root  string
	cache map[string]map[string]any
}

// NewRegistry returns a Registry rooted at the given workflows/
// directory.
func NewRegistry(root string) *Registry {
	return &Registry{root: root, cache: make(map[string]map[string]any)}
}

// Load resolves id = "{prefix}-{resolution}" to workflows/{id}.json and
// parses it as a JSON object. Structural validity beyond "is a JSON
// object" is not checked here — the remote service is the
// authoritative validator, per spec.md §4.5.
func (r *Registry) Load(prefix, resolution string) (*Workflow, error) {
	id := prefix + "-" + resolution
	if doc, ok := r.cache[id]; ok {
		return &Workflow{ID: id, Doc: doc}, nil
	}

	path := filepath.Join(r.root, id+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &darkwallerrors.WorkflowMissing{ID: id, Path: path}
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("workflow %s is not a valid JSON object: %w", id, err)
	}

	r.cache[id] = doc
	return &Workflow{ID: id, Doc: doc}, nil
}

// EligibleTemplates filters the theme's full template inventory
// through an optional per-workflow allowlist. An absent or empty
// allowlist means every template in the inventory is eligible.
func EligibleTemplates(inventory []string, allowlist []string) []string {
	if len(allowlist) == 0 {
		out := append([]string(nil), inventory...)
		sort.Strings(out)
		return out
	}
	allowed := make(map[string]bool, len(allowlist))
	for _, name := range allowlist {
		allowed[name] = true
	}
	var out []string
	for _, name := range inventory {
		if allowed[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ListPromptFiles returns the *.prompt filenames directly under
// promptsRoot, matching the original tool's flat template inventory.
func ListPromptFiles(promptsRoot string) ([]string, error) {
	entries, err := os.ReadDir(promptsRoot)
	if err != nil {
		return nil, fmt.Errorf("read prompts directory %s: %w", promptsRoot, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".prompt") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
