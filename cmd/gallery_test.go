package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/veighnsche/darkwall-comfyui/internal/history"
	"github.com/veighnsche/darkwall-comfyui/testutil"
)

// withGalleryFixture points configPath at a throwaway config.yaml and a
// history.db preloaded via seedGalleryHistory, then restores the previous
// configPath on cleanup.
func withGalleryFixture(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := testutil.WriteFile(t, dir, "config.yaml", minimalGalleryConfig)

	store, err := history.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("history.Open() error = %v", err)
	}
	seedGalleryHistory(t, store)
	store.Close()

	prev := configPath
	configPath = cfgPath
	t.Cleanup(func() { configPath = prev })
}

const minimalGalleryConfig = `service:
  base_url: "http://127.0.0.1:8188"
monitors:
  DP-1:
    resolution: "1920x1080"
    output: "output/DP-1.png"
themes:
  default:
    workflow_prefix: "z-image"
`

func seedGalleryHistory(t *testing.T, store *history.Store) {
	t.Helper()
	if _, err := store.Record(history.Entry{
		Monitor:        "DP-1",
		Theme:          "default",
		Template:       "base.prompt",
		Seed:           42,
		PositivePrompt: "teal mountains",
		NegativePrompt: "blurry",
		WorkflowID:     "z-image-1920x1080",
		Path:           filepath.Join(t.TempDir(), "out.png"),
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	old := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestGalleryListRendersRecordedEntry(t *testing.T) {
	withGalleryFixture(t)
	galleryFormat = "table"
	galleryLimit = 20
	galleryMonitor = ""

	out := captureStdout(t, func() {
		if err := galleryListCmd.RunE(galleryListCmd, nil); err != nil {
			t.Fatalf("gallery list RunE error = %v", err)
		}
	})
	if !strings.Contains(out, "DP-1") {
		t.Errorf("gallery list output = %q, want it to contain DP-1", out)
	}
}

func TestGalleryStatsCountsRecordedEntries(t *testing.T) {
	withGalleryFixture(t)

	out := captureStdout(t, func() {
		if err := galleryStatsCmd.RunE(galleryStatsCmd, nil); err != nil {
			t.Fatalf("gallery stats RunE error = %v", err)
		}
	})
	if !strings.Contains(out, "total:     1") {
		t.Errorf("gallery stats output = %q, want total: 1", out)
	}
}

func TestGalleryFavoriteAndInfoRoundTrip(t *testing.T) {
	withGalleryFixture(t)

	if err := galleryFavoriteCmd.RunE(galleryFavoriteCmd, []string{"1"}); err != nil {
		t.Fatalf("gallery favorite RunE error = %v", err)
	}

	out := captureStdout(t, func() {
		if err := galleryInfoCmd.RunE(galleryInfoCmd, []string{"1"}); err != nil {
			t.Fatalf("gallery info RunE error = %v", err)
		}
	})
	if !strings.Contains(out, "favorite:        true") {
		t.Errorf("gallery info output = %q, want favorite: true", out)
	}
}
