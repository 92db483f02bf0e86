package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veighnsche/darkwall-comfyui/internal/config"
	darkwallerrors "github.com/veighnsche/darkwall-comfyui/internal/errors"
	"github.com/veighnsche/darkwall-comfyui/internal/logging"
)

var (
	verbose    bool
	configPath string
	dryRun     bool

	version string = "dev"
	commit  string = "unknown"
	date    string = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "darkwall",
	Short: "Synthesize and apply a ComfyUI-generated wallpaper",
	Long: `darkwall-comfyui drives an external ComfyUI-compatible image
generation service to synthesize one wallpaper per connected display and
installs it as the desktop background.

Wallpaper content is deterministic within a time slot: the same instant,
monitor, and configuration always resolve to the same prompt and seed, so
an external timer can re-invoke the tool idempotently.

Quick start:
  darkwall generate              # generate for the next monitor in rotation
  darkwall generate-all          # generate for every configured monitor
  darkwall generate --dry-run    # show the resolved plan without generating
  darkwall status                # show configuration, rotation, and schedule state

For detailed usage, see: https://github.com/veighnsche/darkwall-comfyui`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Errors are mapped to spec.md §6.5's exit codes via
// internal/errors.ExitCode.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(darkwallerrors.ExitCode(unwrapCommandError(err)))
	}
}

// unwrapCommandError recovers the pipeline's own typed error from
// underneath any fmt.Errorf("%w", ...) context a subcommand's RunE
// added, so ExitCode classifies the original failure kind rather than
// defaulting to 1 for every wrapped error.
func unwrapCommandError(err error) error {
	if e := new(darkwallerrors.ConfigInvalid); errors.As(err, &e) {
		return e
	}
	if e := new(darkwallerrors.AtomMissing); errors.As(err, &e) {
		return e
	}
	if e := new(darkwallerrors.AtomEmpty); errors.As(err, &e) {
		return e
	}
	if e := new(darkwallerrors.TemplateSyntax); errors.As(err, &e) {
		return e
	}
	if e := new(darkwallerrors.WorkflowMissing); errors.As(err, &e) {
		return e
	}
	if e := new(darkwallerrors.PromptSectionMissing); errors.As(err, &e) {
		return e
	}
	if e := new(darkwallerrors.NetworkUnreachable); errors.As(err, &e) {
		return e
	}
	if e := new(darkwallerrors.SubmissionRejected); errors.As(err, &e) {
		return e
	}
	if e := new(darkwallerrors.GenerationFailed); errors.As(err, &e) {
		return e
	}
	if e := new(darkwallerrors.GenerationTimeout); errors.As(err, &e) {
		return e
	}
	if e := new(darkwallerrors.ImageFetchFailed); errors.As(err, &e) {
		return e
	}
	if e := new(darkwallerrors.ScheduleError); errors.As(err, &e) {
		return e
	}
	if e := new(darkwallerrors.StatePersistError); errors.As(err, &e) {
		return e
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to config.yaml")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Resolve the plan without generating, writing, or notifying")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// defaultConfigPath returns ~/.config/darkwall-comfyui/config.yaml,
// spec.md §6.1's documented location.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return home + "/.config/darkwall-comfyui/config.yaml"
}

// loadConfig is the shared config.Load entry point every subcommand
// uses, so a bad --config path is reported uniformly.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// rotationStatePath returns the rotation cursor's persisted location,
// alongside the config file rather than in a separate XDG state
// directory, matching how this repository keeps run-scoped state close
// to configuration.
func rotationStatePath(cfg *config.Config) string {
	return cfg.Dir + "/rotation-state.json"
}

// historyDBPath returns the gallery SQLite database path.
func historyDBPath(cfg *config.Config) string {
	return cfg.Dir + "/history.db"
}
