// Package orchestrator wires the Seed Source, Atom Store, Template
// Engine, Theme Scheduler, Workflow Registry, Injector, Generation
// Driver, and Rotation State into the single-shot run spec.md §4.8
// describes, plus the external collaborators of §6.2.
package orchestrator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/veighnsche/darkwall-comfyui/internal/atoms"
	"github.com/veighnsche/darkwall-comfyui/internal/config"
	"github.com/veighnsche/darkwall-comfyui/internal/domain"
	"github.com/veighnsche/darkwall-comfyui/internal/generation"
	"github.com/veighnsche/darkwall-comfyui/internal/history"
	"github.com/veighnsche/darkwall-comfyui/internal/logging"
	"github.com/veighnsche/darkwall-comfyui/internal/rotation"
	"github.com/veighnsche/darkwall-comfyui/internal/schedule"
	"github.com/veighnsche/darkwall-comfyui/internal/seed"
	"github.com/veighnsche/darkwall-comfyui/internal/template"
	"github.com/veighnsche/darkwall-comfyui/internal/workflow"
)

// MonitorDetector enumerates the compositor's currently connected
// outputs, the narrow interface of spec.md §6.2.
type MonitorDetector interface {
	ListConnected(ctx context.Context) ([]domain.Monitor, error)
}

// WallpaperSetter installs an image as a monitor's background.
// Failures here are non-fatal to the core per spec.md §6.2: the image
// is retained and the failure is logged.
type WallpaperSetter interface {
	Apply(ctx context.Context, path, monitorName, commandID string) error
}

// Notifier emits a best-effort desktop notification; never fatal.
type Notifier interface {
	Notify(event, payload string)
}

// HistorySink records a completed generation for the gallery.
type HistorySink interface {
	Record(entry history.Entry) (int64, error)
}

// RunContext is the explicit, per-invocation state spec.md §9
// prescribes in place of global mutable state: it owns the Atom Store
// cache (one per theme, since each has its own atoms root), the loaded
// Workflow Registry, and the rotation cursor.
type RunContext struct {
	Config    *config.Config
	Detector  MonitorDetector
	Setter    WallpaperSetter
	Notifier  Notifier
	History   HistorySink
	Rotation  *rotation.State
	Scheduler *schedule.Scheduler

	// OnMonitorDone, when set, is called once per monitor RunAll
	// finishes attempting (success or failure), so a caller can drive a
	// determinate progress bar across the run. Never called by
	// RunSingle, which only ever attempts one monitor.
	OnMonitorDone func(monitorName string, err error)

	registry   *workflow.Registry
	atomStores map[string]*atoms.Store
}

// New builds a RunContext for cfg, loading the rotation cursor from
// statePath and constructing the Theme Scheduler from cfg.Schedule.
func New(cfg *config.Config, statePath string, detector MonitorDetector, setter WallpaperSetter, notifier Notifier, sink HistorySink) *RunContext {
	loc := time.Local
	if cfg.Schedule.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Schedule.Timezone); err == nil {
			loc = l
		} else {
			logging.LogWarn("unknown schedule.timezone %q, falling back to system local time: %v", cfg.Schedule.Timezone, err)
		}
	}

	scheduler := schedule.New(schedule.Config{
		Latitude:             cfg.Schedule.Latitude,
		Longitude:            cfg.Schedule.Longitude,
		Location:             loc,
		SunriseOverride:      cfg.Schedule.SunriseTime,
		SunsetOverride:       cfg.Schedule.SunsetTime,
		DayThemes:            toWeights(cfg.Schedule.DayThemes),
		NightThemes:          toWeights(cfg.Schedule.NightThemes),
		BlendDurationMinutes: cfg.Schedule.BlendDurationMinutes,
	})

	return &RunContext{
		Config:     cfg,
		Detector:   detector,
		Setter:     setter,
		Notifier:   notifier,
		History:    sink,
		Rotation:   rotation.Load(statePath),
		Scheduler:  scheduler,
		registry:   workflow.NewRegistry(filepath.Join(cfg.Dir, "workflows")),
		atomStores: make(map[string]*atoms.Store),
	}
}

func toWeights(in []config.ThemeWeight) []schedule.Weight {
	out := make([]schedule.Weight, len(in))
	for i, w := range in {
		out[i] = schedule.Weight{Name: w.Name, Weight: w.Weight}
	}
	return out
}

// Plan is the structured output of a dry run: every decision the
// pipeline made, with no network calls or file writes performed.
type Plan struct {
	Monitor           domain.Monitor
	Theme             string
	Template          string
	Seed              uint64
	PositivePrompts   map[string]string
	NegativePrompts   map[string]string
	WorkflowID        string
	WorkflowPath      string
	OutputPath        string
	SetterCommand     string
	InjectedWorkflow  map[string]any
}

// atomStoreFor returns the cached Atom Store for theme, constructing
// one on first use.
func (rc *RunContext) atomStoreFor(theme domain.Theme) *atoms.Store {
	if s, ok := rc.atomStores[theme.Name]; ok {
		return s
	}
	s := atoms.New(theme.AtomsRoot)
	rc.atomStores[theme.Name] = s
	return s
}

// resolveTheme implements spec.md §3's Theme fallback invariant: a
// missing atoms tree falls back to "default" with a logged warning; if
// "default" is also missing, an empty theme tree is materialized on
// disk and a diagnostic surfaced.
func (rc *RunContext) resolveTheme(themeName string) (domain.Theme, error) {
	theme, ok := rc.themeFromConfig(themeName)
	if ok {
		if _, err := os.Stat(theme.AtomsRoot); err == nil {
			return theme, nil
		}
		logging.LogWarn("theme %q atoms root %q does not exist, falling back to default theme", themeName, theme.AtomsRoot)
	} else {
		logging.LogWarn("theme %q is not configured, falling back to default theme", themeName)
	}

	fallback, ok := rc.themeFromConfig("default")
	if ok {
		if _, err := os.Stat(fallback.AtomsRoot); err == nil {
			return fallback, nil
		}
	}

	emptyRoot := filepath.Join(rc.Config.Dir, "atoms", "default")
	if err := os.MkdirAll(emptyRoot, 0o755); err != nil {
		return domain.Theme{}, fmt.Errorf("materialize empty fallback theme at %s: %w", emptyRoot, err)
	}
	logging.LogWarn("no usable theme found for %q or \"default\"; materialized an empty fallback theme at %s", themeName, emptyRoot)

	return domain.Theme{
		Name:            "default",
		AtomsRoot:       emptyRoot,
		PromptsRoot:     filepath.Join(rc.Config.Dir, "prompts", "default"),
		DefaultTemplate: "",
		WorkflowPrefix:  "default",
	}, nil
}

func (rc *RunContext) themeFromConfig(name string) (domain.Theme, bool) {
	tc, ok := rc.Config.Themes[name]
	if !ok {
		return domain.Theme{}, false
	}
	return domain.Theme{
		Name:            name,
		AtomsRoot:       filepath.Join(rc.Config.Dir, tc.AtomsDir),
		PromptsRoot:     filepath.Join(rc.Config.Dir, tc.PromptsDir),
		DefaultTemplate: tc.DefaultTemplate,
		WorkflowPrefix:  tc.WorkflowPrefix,
	}, true
}

// Plan executes steps 1-8 of spec.md §4.8 for a single monitor:
// everything up to and including workflow injection, with no network
// calls or file writes. overrideTheme and overrideTemplate, when
// non-empty, replace the scheduler/registry's own picks.
func (rc *RunContext) Plan(ctx context.Context, monitor domain.Monitor, overrideTheme, overrideTemplate string) (*Plan, error) {
	discriminator := ""
	if rc.Config.Prompt.UseMonitorSeed {
		discriminator = monitor.Name
	}
	baseSeed, err := seed.Derive(time.Now(), rc.Config.Prompt.TimeSlotMinutes, discriminator)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(baseSeed, baseSeed>>32|1))

	themeName := overrideTheme
	if themeName == "" {
		themeName, err = rc.Scheduler.Resolve(time.Now(), rng)
		if err != nil {
			return nil, err
		}
	}

	theme, err := rc.resolveTheme(themeName)
	if err != nil {
		return nil, err
	}

	wf, err := rc.registry.Load(theme.WorkflowPrefix, monitor.Resolution)
	if err != nil {
		return nil, err
	}

	templateName := overrideTemplate
	if templateName == "" {
		inventory, err := workflow.ListPromptFiles(theme.PromptsRoot)
		if err != nil {
			return nil, fmt.Errorf("list templates for theme %q: %w", theme.Name, err)
		}
		allowlist := rc.Config.Workflows[wf.ID].Prompts
		if binding, ok := rc.Config.Monitors[monitor.Name]; ok && len(binding.Templates) > 0 {
			allowlist = intersect(allowlist, binding.Templates)
		}
		eligible := workflow.EligibleTemplates(inventory, allowlist)
		if len(eligible) == 0 {
			templateName = theme.DefaultTemplate
		} else {
			templateName = eligible[rng.IntN(len(eligible))]
		}
	}
	if templateName == "" {
		return nil, fmt.Errorf("theme %q has no eligible template and no default_template configured", theme.Name)
	}

	templatePath := filepath.Join(theme.PromptsRoot, templateName)
	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", templatePath, err)
	}

	tmpl, err := template.Parse(templateName, string(raw))
	if err != nil {
		return nil, err
	}

	result, err := template.Resolve(tmpl, baseSeed, rc.atomStoreFor(theme))
	if err != nil {
		return nil, err
	}

	injection, err := workflow.Inject(wf, result)
	if err != nil {
		return nil, err
	}
	for _, name := range injection.SectionsWithoutPlaceholder {
		logging.LogInfo("prompt section %q has no matching placeholder in workflow %q", name, wf.ID)
	}
	for _, name := range injection.PlaceholdersWithoutSection {
		logging.LogWarn("workflow %q placeholder %q had no matching prompt section; substituted empty string", wf.ID, name)
	}

	outputPath := rc.outputPathFor(monitor)

	return &Plan{
		Monitor:          monitor,
		Theme:            theme.Name,
		Template:         templateName,
		Seed:             baseSeed,
		PositivePrompts:  result.Prompts,
		NegativePrompts:  result.Negatives,
		WorkflowID:       wf.ID,
		WorkflowPath:     filepath.Join(rc.Config.Dir, "workflows", wf.ID+".json"),
		OutputPath:       outputPath,
		SetterCommand:    rc.Config.Monitors[monitor.Name].Command,
		InjectedWorkflow: injection.Doc,
	}, nil
}

func (rc *RunContext) outputPathFor(monitor domain.Monitor) string {
	binding, ok := rc.Config.Monitors[monitor.Name]
	if !ok || binding.Output == "" {
		return filepath.Join(rc.Config.Dir, "output", monitor.Name+".png")
	}
	return binding.Output
}

func intersect(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	var out []string
	for _, v := range b {
		if set[v] {
			out = append(out, v)
		}
	}
	return out
}

// RunSingle executes the full pipeline (steps 1-11) for one monitor,
// selected by the Rotation State's next() unless monitorNameOverride
// is non-empty. In dry-run mode, steps 9-10 (generation, output/setter/
// history) are skipped and the Plan alone is returned.
func (rc *RunContext) RunSingle(ctx context.Context, driver *generation.Driver, monitorNameOverride, overrideTheme, overrideTemplate string, dryRun bool) (*Plan, error) {
	connected, err := rc.Detector.ListConnected(ctx)
	if err != nil {
		return nil, err
	}
	connectedByName := make(map[string]domain.Monitor, len(connected))
	for _, m := range connected {
		connectedByName[m.Name] = m
	}

	configuredNames := configuredMonitorNames(rc.Config)
	for _, name := range configuredNames {
		if _, ok := connectedByName[name]; !ok {
			logging.LogWarn("configured monitor %q is not currently connected; skipping", name)
		}
	}
	for name := range connectedByName {
		if _, ok := rc.Config.Monitors[name]; !ok {
			logging.LogWarn("connected monitor %q has no configured binding; skipping", name)
		}
	}

	name := monitorNameOverride
	if name == "" {
		name = rc.Rotation.Next(configuredNames)
	}
	monitor, ok := connectedByName[name]
	if !ok {
		return nil, fmt.Errorf("selected monitor %q is not currently connected", name)
	}

	plan, err := rc.Plan(ctx, monitor, overrideTheme, overrideTemplate)
	if err != nil {
		return nil, err
	}
	if dryRun {
		return plan, nil
	}

	if err := rc.execute(ctx, driver, plan); err != nil {
		return plan, err
	}

	if err := rc.Rotation.Record(monitor.Name, configuredNames, time.Now()); err != nil {
		logging.LogError("failed to persist rotation state: %v", err)
	}

	return plan, nil
}

// RunAll executes steps 4-10 independently for every configured,
// connected monitor; the rotation cursor is not advanced. A failure on
// one monitor is logged and iteration continues, per spec.md §4.8.
func (rc *RunContext) RunAll(ctx context.Context, driver *generation.Driver, overrideTheme, overrideTemplate string, dryRun bool) ([]*Plan, []error) {
	connected, err := rc.Detector.ListConnected(ctx)
	if err != nil {
		return nil, []error{err}
	}

	var plans []*Plan
	var errs []error
	for _, monitor := range connected {
		if _, ok := rc.Config.Monitors[monitor.Name]; !ok {
			continue
		}
		plan, err := rc.Plan(ctx, monitor, overrideTheme, overrideTemplate)
		if err != nil {
			logging.LogError("monitor %q: %v", monitor.Name, err)
			errs = append(errs, err)
			rc.reportMonitorDone(monitor.Name, err)
			continue
		}
		if !dryRun {
			if err := rc.execute(ctx, driver, plan); err != nil {
				logging.LogError("monitor %q: %v", monitor.Name, err)
				errs = append(errs, err)
				rc.reportMonitorDone(monitor.Name, err)
				continue
			}
		}
		plans = append(plans, plan)
		rc.reportMonitorDone(monitor.Name, nil)
	}
	return plans, errs
}

func (rc *RunContext) reportMonitorDone(monitorName string, err error) {
	if rc.OnMonitorDone != nil {
		rc.OnMonitorDone(monitorName, err)
	}
}

// execute drives generation and the output/setter/history collaborators
// for an already-computed Plan (steps 9-10 of spec.md §4.8).
func (rc *RunContext) execute(ctx context.Context, driver *generation.Driver, plan *Plan) error {
	result, err := driver.Run(ctx, plan.InjectedWorkflow)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(plan.OutputPath), 0o755); err != nil {
		return &outputWriteError{path: plan.OutputPath, err: err}
	}
	tmp := plan.OutputPath + ".tmp"
	if err := os.WriteFile(tmp, result.Image, 0o644); err != nil {
		return &outputWriteError{path: plan.OutputPath, err: err}
	}
	if err := os.Rename(tmp, plan.OutputPath); err != nil {
		return &outputWriteError{path: plan.OutputPath, err: err}
	}

	if rc.Setter != nil {
		if err := rc.Setter.Apply(ctx, plan.OutputPath, plan.Monitor.Name, plan.SetterCommand); err != nil {
			logging.LogError("wallpaper setter failed for monitor %q: %v", plan.Monitor.Name, err)
		}
	}

	if rc.History != nil {
		entry := history.Entry{
			Monitor:        plan.Monitor.Name,
			Theme:          plan.Theme,
			Template:       plan.Template,
			Seed:           plan.Seed,
			PositivePrompt: joinPrompts(plan.PositivePrompts),
			NegativePrompt: joinPrompts(plan.NegativePrompts),
			WorkflowID:     plan.WorkflowID,
			Path:           plan.OutputPath,
			CreatedAt:      time.Now(),
		}
		if _, err := rc.History.Record(entry); err != nil {
			logging.LogError("failed to record history entry: %v", err)
		}
	}

	if rc.Notifier != nil {
		rc.Notifier.Notify("wallpaper_generated", plan.Monitor.Name+": "+plan.OutputPath)
	}

	return nil
}

// joinPrompts flattens a PromptResult section map into a single
// stable string for history storage, sections in name order.
func joinPrompts(sections map[string]string) string {
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)
	out := ""
	for i, name := range names {
		if i > 0 {
			out += "; "
		}
		out += name + ": " + sections[name]
	}
	return out
}

type outputWriteError struct {
	path string
	err  error
}

func (e *outputWriteError) Error() string {
	return fmt.Sprintf("failed to write output image to %s: %v", e.path, e.err)
}

func (e *outputWriteError) Unwrap() error { return e.err }

func configuredMonitorNames(cfg *config.Config) []string {
	names, err := config.ConfiguredMonitorNames(filepath.Join(cfg.Dir, "config.yaml"))
	if err == nil && len(names) > 0 {
		return names
	}
	// Fall back to map iteration, sorted, when the on-disk ordering
	// cannot be recovered (e.g. a config not loaded from a real file
	// during tests).
	fallback := make([]string, 0, len(cfg.Monitors))
	for name := range cfg.Monitors {
		fallback = append(fallback, name)
	}
	sort.Strings(fallback)
	return fallback
}
