package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/veighnsche/darkwall-comfyui/internal/generation"
	"github.com/veighnsche/darkwall-comfyui/internal/history"
	"github.com/veighnsche/darkwall-comfyui/internal/monitors"
	"github.com/veighnsche/darkwall-comfyui/internal/notify"
	"github.com/veighnsche/darkwall-comfyui/internal/orchestrator"
	"github.com/veighnsche/darkwall-comfyui/internal/progress"
	"github.com/veighnsche/darkwall-comfyui/internal/wallpaper"
)

// monitorBarTemplate mirrors the minimal prefix+counters template the
// example pack's knit CLI uses for its data-transfer progress bars.
const monitorBarTemplate pb.ProgressBarTemplate = `{{with string . "prefix"}}{{.}} {{end}}{{counters . }} {{with string . "suffix"}} {{.}}{{end}}`

var (
	generateMonitor      string
	generateThemeOverride string
	generateTemplate     string
)

var planStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate and apply a wallpaper for the next monitor in rotation",
	Long: `Generate resolves the next monitor from the rotation cursor (or the
one named by --monitor), derives a deterministic seed for the current
time slot, resolves a template into a prompt, submits it to the
configured ComfyUI-compatible service, and applies the result as that
monitor's wallpaper.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, driver, err := buildRunContext()
		if err != nil {
			return err
		}
		var plan *orchestrator.Plan
		ctx := context.Background()
		err = progress.ShowProgress(ctx, "Generating wallpaper", func() error {
			var runErr error
			plan, runErr = rc.RunSingle(ctx, driver, generateMonitor, generateThemeOverride, generateTemplate, dryRun)
			return runErr
		})
		if err != nil {
			return err
		}
		renderPlan(plan, dryRun)
		return nil
	},
}

var generateAllCmd = &cobra.Command{
	Use:   "generate-all",
	Short: "Generate and apply a wallpaper for every configured monitor",
	Long: `generate-all performs the same pipeline as generate for every
configured, currently-connected monitor in order, without advancing the
rotation cursor. A failure on one monitor is logged and the remaining
monitors are still attempted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, driver, err := buildRunContext()
		if err != nil {
			return err
		}

		bar := monitorBarTemplate.New(len(rc.Config.Monitors))
		bar.SetWriter(os.Stderr)
		bar.Set("prefix", "Generating wallpapers:")
		bar.Start()
		rc.OnMonitorDone = func(monitorName string, err error) {
			suffix := monitorName
			if err != nil {
				suffix = monitorName + " (failed)"
			}
			bar.Set("suffix", suffix)
			bar.Increment()
		}

		ctx := context.Background()
		plans, errs := rc.RunAll(ctx, driver, generateThemeOverride, generateTemplate, dryRun)
		bar.Finish()

		for _, plan := range plans {
			renderPlan(plan, dryRun)
		}
		if len(errs) > 0 {
			return fmt.Errorf("%d of %d monitor(s) failed: %w", len(errs), len(plans)+len(errs), errs[0])
		}
		return nil
	},
}

func buildRunContext() (*orchestrator.RunContext, *generation.Driver, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	var driver *generation.Driver
	if !dryRun {
		driver, err = generation.NewDriver(generation.Config{
			BaseURL:      cfg.Service.BaseURL,
			Timeout:      cfg.Service.Timeout,
			PollInterval: cfg.Service.PollInterval,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	var sink orchestrator.HistorySink
	if !dryRun {
		store, err := history.Open(historyDBPath(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("open history store: %w", err)
		}
		sink = store
	}

	rc := orchestrator.New(cfg, rotationStatePath(cfg), monitors.NewDetector(), wallpaper.NewSetter(), notify.New(), sink)
	return rc, driver, nil
}

func renderPlan(plan *orchestrator.Plan, dryRun bool) {
	fmt.Println(planStyle.Render(fmt.Sprintf("monitor %s", plan.Monitor.Name)))
	fmt.Printf("  theme:      %s\n", plan.Theme)
	fmt.Printf("  template:   %s\n", plan.Template)
	fmt.Printf("  seed:       %d\n", plan.Seed)
	fmt.Printf("  workflow:   %s (%s)\n", plan.WorkflowID, plan.WorkflowPath)
	fmt.Printf("  output:     %s\n", plan.OutputPath)
	for name, text := range plan.PositivePrompts {
		fmt.Printf("  positive[%s]: %s\n", name, text)
	}
	for name, text := range plan.NegativePrompts {
		fmt.Printf("  negative[%s]: %s\n", name, text)
	}
	if dryRun {
		fmt.Println("  (dry run: no network calls or file writes performed)")
	}
	fmt.Println()
}

func init() {
	for _, c := range []*cobra.Command{generateCmd, generateAllCmd} {
		c.Flags().StringVar(&generateThemeOverride, "theme", "", "Override the scheduled theme")
		c.Flags().StringVar(&generateTemplate, "template", "", "Override the selected template filename")
	}
	generateCmd.Flags().StringVar(&generateMonitor, "monitor", "", "Generate for a specific monitor name instead of the rotation cursor's pick")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(generateAllCmd)
}
