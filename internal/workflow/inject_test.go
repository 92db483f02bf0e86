package workflow

import (
	"encoding/json"
	"testing"

	darkwallerrors "github.com/veighnsche/darkwall-comfyui/internal/errors"
	"github.com/veighnsche/darkwall-comfyui/internal/template"
)

func mustWorkflow(t *testing.T, jsonDoc string) *Workflow {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(jsonDoc), &doc); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	return &Workflow{ID: "fixture", Doc: doc}
}

func TestInjectSingleKeyRoundTrip(t *testing.T) {
	wf := mustWorkflow(t, `{"node": {"text": "$$positive$$"}}`)
	result := &template.PromptResult{
		Prompts:   map[string]string{"positive": "a dark forest"},
		Negatives: map[string]string{},
	}

	injected, err := Inject(wf, result)
	if err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	node := injected.Doc["node"].(map[string]any)
	if node["text"] != "a dark forest" {
		t.Errorf("node.text = %v, want 'a dark forest'", node["text"])
	}
}

func TestInjectWholeTokenOnly(t *testing.T) {
	wf := mustWorkflow(t, `{"node": {"text": "prefix $$positive$$ suffix"}}`)
	result := &template.PromptResult{
		Prompts: map[string]string{"positive": "REPLACED"},
	}

	injected, err := Inject(wf, result)
	if err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	node := injected.Doc["node"].(map[string]any)
	if node["text"] != "prefix $$positive$$ suffix" {
		t.Errorf("node.text = %v, want unchanged substring occurrence", node["text"])
	}
}

func TestInjectFourLeaves(t *testing.T) {
	wf := mustWorkflow(t, `{
		"a": {"text": "$$environment$$"},
		"b": {"text": "$$environment:negative$$"},
		"c": {"text": "$$subject$$"},
		"d": {"text": "$$subject:negative$$"},
		"e": {"text": "unrelated"}
	}`)
	result := &template.PromptResult{
		Prompts:   map[string]string{"environment": "forest", "subject": "robot"},
		Negatives: map[string]string{"environment": "blurry", "subject": "cartoon"},
	}

	injected, err := Inject(wf, result)
	if err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	get := func(key string) string {
		return injected.Doc[key].(map[string]any)["text"].(string)
	}
	if get("a") != "forest" || get("b") != "blurry" || get("c") != "robot" || get("d") != "cartoon" {
		t.Errorf("injected leaves = a:%s b:%s c:%s d:%s", get("a"), get("b"), get("c"), get("d"))
	}
	if get("e") != "unrelated" {
		t.Errorf("unrelated leaf changed: %s", get("e"))
	}
}

func TestInjectDoesNotMutateOriginal(t *testing.T) {
	wf := mustWorkflow(t, `{"node": {"text": "$$positive$$"}}`)
	result := &template.PromptResult{Prompts: map[string]string{"positive": "changed"}}

	if _, err := Inject(wf, result); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	node := wf.Doc["node"].(map[string]any)
	if node["text"] != "$$positive$$" {
		t.Errorf("original workflow document was mutated: %v", node["text"])
	}
}

func TestInjectMissingPositiveSectionIsHardError(t *testing.T) {
	wf := mustWorkflow(t, `{"node": {"text": "$$subject$$"}}`)
	result := &template.PromptResult{Prompts: map[string]string{}}

	_, err := Inject(wf, result)
	if _, ok := err.(*darkwallerrors.PromptSectionMissing); !ok {
		t.Fatalf("Inject() error = %T, want *PromptSectionMissing", err)
	}
}

func TestInjectMissingNegativeSubstitutesEmpty(t *testing.T) {
	wf := mustWorkflow(t, `{"node": {"text": "$$subject:negative$$"}}`)
	result := &template.PromptResult{
		Prompts:   map[string]string{"subject": "robot"},
		Negatives: map[string]string{},
	}

	injected, err := Inject(wf, result)
	if err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	node := injected.Doc["node"].(map[string]any)
	if node["text"] != "" {
		t.Errorf("node.text = %v, want empty string", node["text"])
	}
}
