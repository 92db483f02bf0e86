package monitors

import (
	"context"
	"os"
	"testing"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func clearCompositorEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"HYPRLAND_INSTANCE_SIGNATURE", "SWAYSOCK", "XDG_CURRENT_DESKTOP"} {
		old, had := os.LookupEnv(key)
		os.Unsetenv(key)
		t.Cleanup(func() {
			if had {
				os.Setenv(key, old)
			}
		})
	}
}

func TestListConnectedHyprland(t *testing.T) {
	clearCompositorEnv(t)
	withEnv(t, "HYPRLAND_INSTANCE_SIGNATURE", "abc123")

	d := &Detector{runCommand: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name != "hyprctl" {
			t.Fatalf("unexpected command %q", name)
		}
		return []byte(`[{"name":"DP-1","width":1920,"height":1080}]`), nil
	}}

	got, err := d.ListConnected(context.Background())
	if err != nil {
		t.Fatalf("ListConnected() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "DP-1" || got[0].Resolution != "1920x1080" {
		t.Errorf("got %+v", got)
	}
}

func TestListConnectedSwayFiltersInactive(t *testing.T) {
	clearCompositorEnv(t)
	withEnv(t, "SWAYSOCK", "/tmp/sway.sock")

	d := &Detector{runCommand: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name != "swaymsg" {
			t.Fatalf("unexpected command %q", name)
		}
		return []byte(`[
			{"name":"eDP-1","rect":{"width":1920,"height":1080},"active":true},
			{"name":"HDMI-A-1","rect":{"width":0,"height":0},"active":false}
		]`), nil
	}}

	got, err := d.ListConnected(context.Background())
	if err != nil {
		t.Fatalf("ListConnected() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "eDP-1" {
		t.Errorf("got %+v, want only eDP-1", got)
	}
}

func TestListConnectedNoCompositorDetected(t *testing.T) {
	clearCompositorEnv(t)
	d := NewDetector()
	if _, err := d.ListConnected(context.Background()); err == nil {
		t.Fatal("expected error when no compositor is detected")
	}
}
