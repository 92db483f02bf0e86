package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	darkwallerrors "github.com/veighnsche/darkwall-comfyui/internal/errors"
	"github.com/veighnsche/darkwall-comfyui/internal/template"
)

// Injection carries the informational diagnostics spec.md §4.5
// describes alongside the substituted document.
type Injection struct {
	Doc map[string]any
	// SectionsWithoutPlaceholder are prompt-result sections that had no
	// matching placeholder anywhere in the workflow (informational).
	SectionsWithoutPlaceholder []string
	// PlaceholdersWithoutSection are negative placeholders substituted
	// with empty string because no matching section was produced
	// (warning-level; positive placeholders in this situation are a
	// hard error instead, see Inject).
	PlaceholdersWithoutSection []string
}

// Inject traverses a deep clone of wf.Doc and substitutes every string
// leaf whose value is exactly "$$name$$" or "$$name:negative$$" with
// the corresponding resolved prompt or negative text. Substring
// occurrences inside larger strings are never replaced — the
// placeholder must be the whole leaf value, per spec.md §6.3.
func Inject(wf *Workflow, result *template.PromptResult) (*Injection, error) {
	clone, err := deepClone(wf.Doc)
	if err != nil {
		return nil, fmt.Errorf("clone workflow %s: %w", wf.ID, err)
	}

	seenPlaceholders := make(map[string]bool)
	var missingSection error

	var walk func(v any) any
	walk = func(v any) any {
		switch val := v.(type) {
		case map[string]any:
			for k, child := range val {
				val[k] = walk(child)
			}
			return val
		case []any:
			for i, child := range val {
				val[i] = walk(child)
			}
			return val
		case string:
			name, negative, ok := parsePlaceholder(val)
			if !ok {
				return val
			}
			seenPlaceholders[placeholderKey(name, negative)] = true
			if negative {
				return result.Negatives[name]
			}
			text, present := result.Prompts[name]
			if !present {
				if missingSection == nil {
					missingSection = &darkwallerrors.PromptSectionMissing{Section: name}
				}
				return val
			}
			return text
		default:
			return v
		}
	}

	cloneAny := walk(any(clone))
	if missingSection != nil {
		return nil, missingSection
	}

	clonedDoc, ok := cloneAny.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("workflow %s: document root is not an object after injection", wf.ID)
	}

	var withoutPlaceholder []string
	for name := range result.Prompts {
		if !seenPlaceholders[placeholderKey(name, false)] {
			withoutPlaceholder = append(withoutPlaceholder, name)
		}
	}
	var missingInPrompts []string
	for key := range seenPlaceholders {
		name, negative := splitPlaceholderKey(key)
		if negative {
			if _, ok := result.Negatives[name]; !ok {
				missingInPrompts = append(missingInPrompts, name+":negative")
			}
		}
	}

	return &Injection{
		Doc:                        clonedDoc,
		SectionsWithoutPlaceholder: withoutPlaceholder,
		PlaceholdersWithoutSection: missingInPrompts,
	}, nil
}

// parsePlaceholder reports whether s is exactly "$$name$$" or
// "$$name:negative$$", returning the section name and whether it is
// the negative variant.
func parsePlaceholder(s string) (name string, negative bool, ok bool) {
	if !strings.HasPrefix(s, "$$") || !strings.HasSuffix(s, "$$") || len(s) <= 4 {
		return "", false, false
	}
	inner := s[2 : len(s)-2]
	if inner == "" {
		return "", false, false
	}
	if strings.HasSuffix(inner, ":negative") {
		return strings.TrimSuffix(inner, ":negative"), true, true
	}
	return inner, false, true
}

func placeholderKey(name string, negative bool) string {
	if negative {
		return name + ":negative"
	}
	return name
}

func splitPlaceholderKey(key string) (name string, negative bool) {
	if strings.HasSuffix(key, ":negative") {
		return strings.TrimSuffix(key, ":negative"), true
	}
	return key, false
}

// deepClone round-trips v through JSON encode/decode, the same
// json.loads(json.dumps(...)) idiom the original Python injector uses
// for a cheap deep copy of an arbitrary JSON tree.
func deepClone(doc map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
