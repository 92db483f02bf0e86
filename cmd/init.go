package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initForce bool

const defaultConfigTemplate = `service:
  base_url: "http://127.0.0.1:8188"
  timeout: 300
  poll_interval: 5

monitors:
  DP-1:
    resolution: "1920x1080"
    output: "output/DP-1.png"

themes:
  default:
    workflow_prefix: "z-image"
    default_template: "base.prompt"
    atoms_dir: "atoms/default"
    prompts_dir: "prompts/default"

workflows: {}

schedule:
  day_themes:
    - name: default
      weight: 1.0
  night_themes:
    - name: default
      weight: 1.0
  blend_duration_minutes: 30

prompt:
  time_slot_minutes: 30
  use_monitor_seed: true
`

const defaultColorAtoms = "red\ngreen\nblue\npurple\nteal\n"
const defaultPromptTemplate = "__color__ sky over a quiet horizon\n$$negative$$\nblurry, low quality\n"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Materialize a default config and atoms/prompts/workflows tree",
	Long: `init writes config.yaml and a starter atoms/default, prompts/default
tree at --config's directory, the same "empty theme" fallback-of-last-resort
layout the pipeline materializes automatically when no usable theme is
found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := filepath.Dir(configPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory %s: %w", dir, err)
		}

		if !initForce {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("%s already exists; pass --force to overwrite", configPath)
			}
		}

		if err := os.WriteFile(configPath, []byte(defaultConfigTemplate), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", configPath, err)
		}

		atomsDir := filepath.Join(dir, "atoms", "default")
		promptsDir := filepath.Join(dir, "prompts", "default")
		workflowsDir := filepath.Join(dir, "workflows")
		for _, d := range []string{atomsDir, promptsDir, workflowsDir, filepath.Join(dir, "output")} {
			if err := os.MkdirAll(d, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", d, err)
			}
		}

		if err := os.WriteFile(filepath.Join(atomsDir, "color.txt"), []byte(defaultColorAtoms), 0o644); err != nil {
			return fmt.Errorf("write starter atom file: %w", err)
		}
		if err := os.WriteFile(filepath.Join(promptsDir, "base.prompt"), []byte(defaultPromptTemplate), 0o644); err != nil {
			return fmt.Errorf("write starter template: %w", err)
		}

		fmt.Printf("initialized %s\n", dir)
		fmt.Println("next steps:")
		fmt.Println("  1. edit", configPath, "to point service.base_url at your ComfyUI instance")
		fmt.Println("  2. drop a workflow document at", filepath.Join(workflowsDir, "z-image-1920x1080.json"))
		fmt.Println("  3. run `darkwall generate --dry-run` to preview the resolved plan")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
