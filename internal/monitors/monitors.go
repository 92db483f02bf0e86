// Package monitors enumerates the compositor's currently connected
// display outputs, the narrow "list_connected" collaborator of
// spec.md §6.2. It shells out to the running compositor's own query
// tool and decodes JSON, following the original monitor_detection.py's
// subprocess-and-parse approach.
package monitors

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/veighnsche/darkwall-comfyui/internal/domain"
)

// Detector lists connected monitors by shelling out to the active
// Wayland compositor's status tool.
type Detector struct {
	// runCommand is overridable in tests to avoid depending on a real
	// compositor being present.
	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewDetector returns a Detector that invokes real compositor
// subprocesses.
func NewDetector() *Detector {
	return &Detector{runCommand: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}

// ListConnected detects the active compositor from environment
// variables and queries it for connected outputs.
func (d *Detector) ListConnected(ctx context.Context) ([]domain.Monitor, error) {
	switch compositor() {
	case "hyprland":
		return d.listHyprland(ctx)
	case "sway":
		return d.listSway(ctx)
	default:
		return nil, fmt.Errorf("no supported compositor detected (checked HYPRLAND_INSTANCE_SIGNATURE, SWAYSOCK, XDG_CURRENT_DESKTOP)")
	}
}

// compositor sniffs the running compositor the way the original
// monitor_detection.py does: Hyprland's own signature variable first,
// then sway's socket variable, then a generic desktop-session hint.
func compositor() string {
	if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		return "hyprland"
	}
	if os.Getenv("SWAYSOCK") != "" {
		return "sway"
	}
	switch os.Getenv("XDG_CURRENT_DESKTOP") {
	case "Hyprland":
		return "hyprland"
	case "sway":
		return "sway"
	}
	return ""
}

type hyprlandMonitor struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (d *Detector) listHyprland(ctx context.Context) ([]domain.Monitor, error) {
	out, err := d.runCommand(ctx, "hyprctl", "monitors", "-j")
	if err != nil {
		return nil, fmt.Errorf("hyprctl monitors -j: %w", err)
	}
	var raw []hyprlandMonitor
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("decode hyprctl output: %w", err)
	}
	out2 := make([]domain.Monitor, len(raw))
	for i, m := range raw {
		out2[i] = domain.Monitor{Name: m.Name, Resolution: fmt.Sprintf("%dx%d", m.Width, m.Height)}
	}
	return out2, nil
}

type swayOutput struct {
	Name      string `json:"name"`
	Rectangle struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"rect"`
	Active bool `json:"active"`
}

func (d *Detector) listSway(ctx context.Context) ([]domain.Monitor, error) {
	out, err := d.runCommand(ctx, "swaymsg", "-t", "get_outputs")
	if err != nil {
		return nil, fmt.Errorf("swaymsg -t get_outputs: %w", err)
	}
	var raw []swayOutput
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("decode swaymsg output: %w", err)
	}
	var out2 []domain.Monitor
	for _, m := range raw {
		if !m.Active {
			continue
		}
		out2 = append(out2, domain.Monitor{
			Name:       m.Name,
			Resolution: fmt.Sprintf("%dx%d", m.Rectangle.Width, m.Rectangle.Height),
		})
	}
	return out2, nil
}
