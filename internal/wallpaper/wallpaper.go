// Package wallpaper applies a generated image as a monitor's desktop
// background by invoking an external setter program. The closed
// variant type below is the one spec.md §9 prescribes in place of the
// original's dynamic setter dispatch table (wallpaper/setters.py).
package wallpaper

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Kind names one of the supported setter programs, or Custom for a
// user-supplied command template.
type Kind string

const (
	Swaybg   Kind = "swaybg"
	Swww     Kind = "swww"
	Feh      Kind = "feh"
	Nitrogen Kind = "nitrogen"
	Hyprpaper Kind = "hyprpaper"
	Custom   Kind = "custom"
)

// Setter applies an image path as a monitor's background using the
// configured setter program. commandID selects the Kind: one of the
// fixed names above, or a "custom:<template>" string where <template>
// contains "{path}" and optionally "{monitor}" placeholders.
type Setter struct {
	runCommand func(ctx context.Context, name string, args ...string) error
}

// NewSetter returns a Setter that invokes real setter subprocesses.
func NewSetter() *Setter {
	return &Setter{runCommand: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Run()
}

// Apply installs path as monitorName's background via the setter
// named by commandID, defaulting to swaybg when commandID is empty.
func (s *Setter) Apply(ctx context.Context, path, monitorName, commandID string) error {
	kind, template := resolveKind(commandID)

	switch kind {
	case Swaybg:
		return s.runCommand(ctx, "swaybg", "-o", monitorName, "-i", path, "-m", "fill")
	case Swww:
		return s.runCommand(ctx, "swww", "img", path, "--outputs", monitorName)
	case Feh:
		return s.runCommand(ctx, "feh", "--bg-fill", path)
	case Nitrogen:
		return s.runCommand(ctx, "nitrogen", "--set-zoom-fill", path, "--save")
	case Hyprpaper:
		return s.runCommand(ctx, "hyprctl", "hyprpaper", "wallpaper", monitorName+","+path)
	case Custom:
		name, args := expandCustomTemplate(template, path, monitorName)
		if name == "" {
			return fmt.Errorf("custom setter command template %q is empty", template)
		}
		return s.runCommand(ctx, name, args...)
	default:
		return fmt.Errorf("unknown wallpaper setter %q", commandID)
	}
}

// resolveKind maps a configured command_id to a Kind and, for custom
// commands, the raw template string.
func resolveKind(commandID string) (Kind, string) {
	if commandID == "" {
		return Swaybg, ""
	}
	if template, ok := strings.CutPrefix(commandID, "custom:"); ok {
		return Custom, template
	}
	switch Kind(commandID) {
	case Swaybg, Swww, Feh, Nitrogen, Hyprpaper:
		return Kind(commandID), ""
	}
	return Kind(commandID), ""
}

// expandCustomTemplate splits a whitespace-separated command template,
// substituting {path} and {monitor} placeholders in each token.
func expandCustomTemplate(template, path, monitor string) (string, []string) {
	fields := strings.Fields(template)
	if len(fields) == 0 {
		return "", nil
	}
	replace := func(s string) string {
		s = strings.ReplaceAll(s, "{path}", path)
		s = strings.ReplaceAll(s, "{monitor}", monitor)
		return s
	}
	name := replace(fields[0])
	args := make([]string, len(fields)-1)
	for i, f := range fields[1:] {
		args[i] = replace(f)
	}
	return name, args
}
