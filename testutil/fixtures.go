package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteThemeFixture materializes a minimal atoms/prompts/workflows tree
// for one theme under dir, the same on-disk shape config.Config.Dir
// resolves relative paths against. It returns dir for convenience.
func WriteThemeFixture(t *testing.T, dir, theme, workflowID string) string {
	t.Helper()

	mustWriteFile(t, filepath.Join(dir, "atoms", theme, "color.txt"), "red\ngreen\nblue\n")
	mustWriteFile(t, filepath.Join(dir, "atoms", theme, "subject.txt"), "mountains\nforest\nocean\n")
	mustWriteFile(t, filepath.Join(dir, "prompts", theme, "base.prompt"), "__color__ sky over __subject__\n$$negative$$\nblurry, washed out\n")
	mustWriteFile(t, filepath.Join(dir, "workflows", workflowID+".json"),
		`{"node": {"inputs": {"text": "$$positive$$"}}, "negative_node": {"inputs": {"text": "$$positive:negative$$"}}}`)

	return dir
}

// WriteFile writes content to path relative to dir, creating parent
// directories as needed. Thin wrapper shared by fixture builders and
// test code that wants a one-off file without the full theme tree.
func WriteFile(t *testing.T, dir, relPath, content string) string {
	t.Helper()
	path := filepath.Join(dir, relPath)
	mustWriteFile(t, path, content)
	return path
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
