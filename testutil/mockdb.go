package testutil

import (
	"testing"
	"time"

	"github.com/veighnsche/darkwall-comfyui/internal/history"
)

// NewHistoryFixture opens an in-memory gallery store preloaded with a
// handful of wallpaper entries spanning two monitors and one favorite.
func NewHistoryFixture(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	seed := []history.Entry{
		{
			Monitor:        "DP-1",
			Theme:          "default",
			Template:       "base.prompt",
			Seed:           111111,
			PositivePrompt: "teal mountains sky",
			NegativePrompt: "blurry, washed out",
			WorkflowID:     "z-image-1920x1080",
			Path:           "/tmp/darkwall/DP-1-1.png",
			CreatedAt:      time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC),
		},
		{
			Monitor:        "DP-1",
			Theme:          "default",
			Template:       "base.prompt",
			Seed:           222222,
			PositivePrompt: "purple ocean sky",
			NegativePrompt: "blurry, washed out",
			WorkflowID:     "z-image-1920x1080",
			Path:           "/tmp/darkwall/DP-1-2.png",
			CreatedAt:      time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC),
			Favorite:       true,
		},
		{
			Monitor:        "HDMI-A-1",
			Theme:          "night",
			Template:       "moody.prompt",
			Seed:           333333,
			PositivePrompt: "red forest sky",
			NegativePrompt: "overexposed",
			WorkflowID:     "z-image-2560x1440",
			Path:           "/tmp/darkwall/HDMI-A-1-1.png",
			CreatedAt:      time.Date(2026, 1, 2, 6, 0, 0, 0, time.UTC),
		},
	}

	for _, e := range seed {
		if _, err := store.Record(e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	return store
}
