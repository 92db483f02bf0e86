package workflow

import (
	"os"
	"path/filepath"
	"testing"

	darkwallerrors "github.com/veighnsche/darkwall-comfyui/internal/errors"
)

func TestLoadMissingWorkflowNamesFullPath(t *testing.T) {
	root := t.TempDir()
	reg := NewRegistry(root)

	_, err := reg.Load("z-image", "1920x1080")
	missing, ok := err.(*darkwallerrors.WorkflowMissing)
	if !ok {
		t.Fatalf("Load() error = %T, want *WorkflowMissing", err)
	}
	wantPath := filepath.Join(root, "z-image-1920x1080.json")
	if missing.Path != wantPath {
		t.Errorf("missing.Path = %q, want %q", missing.Path, wantPath)
	}
}

func TestLoadValidWorkflow(t *testing.T) {
	root := t.TempDir()
	content := `{"1": {"inputs": {"text": "$$positive$$"}}}`
	if err := os.WriteFile(filepath.Join(root, "z-image-1920x1080.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	reg := NewRegistry(root)
	wf, err := reg.Load("z-image", "1920x1080")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if wf.ID != "z-image-1920x1080" {
		t.Errorf("wf.ID = %q", wf.ID)
	}
}

func TestEligibleTemplatesNoAllowlist(t *testing.T) {
	got := EligibleTemplates([]string{"b.prompt", "a.prompt"}, nil)
	want := []string{"a.prompt", "b.prompt"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("EligibleTemplates() = %v, want %v", got, want)
	}
}

func TestEligibleTemplatesWithAllowlist(t *testing.T) {
	got := EligibleTemplates([]string{"a.prompt", "b.prompt", "c.prompt"}, []string{"c.prompt", "a.prompt"})
	want := []string{"a.prompt", "c.prompt"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("EligibleTemplates() = %v, want %v", got, want)
	}
}

func TestListPromptFiles(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"base.prompt", "alt.prompt", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	got, err := ListPromptFiles(root)
	if err != nil {
		t.Fatalf("ListPromptFiles() error = %v", err)
	}
	want := []string{"alt.prompt", "base.prompt"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("ListPromptFiles() = %v, want %v", got, want)
	}
}
