// Package config loads and validates the darkwall-comfyui configuration
// file, the declarative surface described in spec.md §6.1.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	darkwallerrors "github.com/veighnsche/darkwall-comfyui/internal/errors"
)

// ServiceConfig describes the remote ComfyUI-like image service.
type ServiceConfig struct {
	BaseURL      string `yaml:"base_url"`
	Timeout      int    `yaml:"timeout"`
	PollInterval int    `yaml:"poll_interval"`
}

// MonitorConfig is the user-declared binding for one named output.
type MonitorConfig struct {
	Resolution string   `yaml:"resolution"`
	Output     string   `yaml:"output"`
	Command    string   `yaml:"command"`
	Templates  []string `yaml:"templates"`
}

// ThemeConfig names the atoms/prompts/workflow-prefix bundle for a theme.
type ThemeConfig struct {
	WorkflowPrefix  string `yaml:"workflow_prefix"`
	DefaultTemplate string `yaml:"default_template"`
	AtomsDir        string `yaml:"atoms_dir"`
	PromptsDir      string `yaml:"prompts_dir"`
}

// WorkflowConfig is the optional allowlist of templates eligible for a
// given workflow id.
type WorkflowConfig struct {
	Prompts []string `yaml:"prompts"`
}

// ThemeWeight pairs a theme name with a relative sampling weight.
type ThemeWeight struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

// ScheduleConfig is the declarative solar/manual theme schedule.
type ScheduleConfig struct {
	Latitude             *float64      `yaml:"latitude"`
	Longitude            *float64      `yaml:"longitude"`
	Timezone             string        `yaml:"timezone"`
	SunriseTime          string        `yaml:"sunrise_time"`
	SunsetTime           string        `yaml:"sunset_time"`
	DayThemes            []ThemeWeight `yaml:"day_themes"`
	NightThemes          []ThemeWeight `yaml:"night_themes"`
	BlendDurationMinutes int           `yaml:"blend_duration_minutes"`
}

// PromptConfig controls seeding behavior.
type PromptConfig struct {
	TimeSlotMinutes int  `yaml:"time_slot_minutes"`
	UseMonitorSeed  bool `yaml:"use_monitor_seed"`
}

// Config is the fully-parsed configuration tree.
type Config struct {
	Service   ServiceConfig             `yaml:"service"`
	Monitors  map[string]MonitorConfig  `yaml:"monitors"`
	Themes    map[string]ThemeConfig    `yaml:"themes"`
	Workflows map[string]WorkflowConfig `yaml:"workflows"`
	Schedule  ScheduleConfig            `yaml:"schedule"`
	Prompt    PromptConfig              `yaml:"prompt"`

	// Dir is the directory the config file was loaded from; atoms/,
	// prompts/, and workflows/ trees are resolved relative to it. Not
	// part of the YAML document.
	Dir string `yaml:"-"`
}

// Defaults matching spec.md §6.1's documented defaults.
const (
	DefaultTimeout              = 300
	DefaultPollInterval         = 5
	DefaultTimeSlotMinutes      = 30
	DefaultBlendDurationMinutes = 30
)

// deprecatedKeys are array-style or otherwise superseded configuration
// shapes the original Python tool accepted; the Go implementation
// rejects them outright per spec.md §6.1's "Deprecated keys" row.
var deprecatedKeys = []string{"monitor_count", "paths"}

// Load reads and validates the configuration file at path. Deprecated
// or structurally invalid keys surface as *errors.ConfigInvalid before
// any pipeline component runs, matching spec.md §7's propagation policy.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &darkwallerrors.ConfigInvalid{Key: path, Reason: fmt.Sprintf("cannot read config file: %v", err)}
	}

	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, &darkwallerrors.ConfigInvalid{Key: path, Reason: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if err := checkDeprecated(&node); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, &darkwallerrors.ConfigInvalid{Key: path, Reason: fmt.Sprintf("invalid YAML: %v", err)}
	}
	cfg.Dir = filepath.Dir(path)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in zero-valued fields with spec.md's documented
// defaults.
func (c *Config) applyDefaults() {
	if c.Service.Timeout == 0 {
		c.Service.Timeout = DefaultTimeout
	}
	if c.Service.PollInterval == 0 {
		c.Service.PollInterval = DefaultPollInterval
	}
	if c.Prompt.TimeSlotMinutes == 0 {
		c.Prompt.TimeSlotMinutes = DefaultTimeSlotMinutes
	}
	if c.Schedule.BlendDurationMinutes == 0 {
		c.Schedule.BlendDurationMinutes = DefaultBlendDurationMinutes
	}
	for name, theme := range c.Themes {
		if theme.AtomsDir == "" {
			theme.AtomsDir = "atoms"
		}
		if theme.PromptsDir == "" {
			theme.PromptsDir = "prompts"
		}
		c.Themes[name] = theme
	}
}

// Validate checks the documented ranges and invariants of spec.md §6.1
// and §4.1/§4.7.
func (c *Config) Validate() error {
	if c.Service.BaseURL == "" {
		return &darkwallerrors.ConfigInvalid{Key: "service.base_url", Reason: "must not be empty"}
	}
	if c.Service.Timeout < 1 || c.Service.Timeout > 3600 {
		return &darkwallerrors.ConfigInvalid{Key: "service.timeout", Reason: "must be in 1..=3600"}
	}
	if c.Service.PollInterval < 1 || c.Service.PollInterval > 60 {
		return &darkwallerrors.ConfigInvalid{Key: "service.poll_interval", Reason: "must be in 1..=60"}
	}
	if c.Prompt.TimeSlotMinutes < 1 || c.Prompt.TimeSlotMinutes > 1440 {
		return &darkwallerrors.ConfigInvalid{Key: "prompt.time_slot_minutes", Reason: "must be in 1..=1440"}
	}
	if c.Schedule.BlendDurationMinutes < 0 {
		return &darkwallerrors.ConfigInvalid{Key: "schedule.blend_duration_minutes", Reason: "must be non-negative"}
	}
	for name, m := range c.Monitors {
		if m.Resolution == "" {
			return &darkwallerrors.ConfigInvalid{Key: fmt.Sprintf("monitors.%s.resolution", name), Reason: "must not be empty"}
		}
		if m.Output == "" {
			return &darkwallerrors.ConfigInvalid{Key: fmt.Sprintf("monitors.%s.output", name), Reason: "must not be empty"}
		}
	}
	for name, th := range c.Themes {
		if th.WorkflowPrefix == "" {
			return &darkwallerrors.ConfigInvalid{Key: fmt.Sprintf("themes.%s.workflow_prefix", name), Reason: "must not be empty"}
		}
	}
	return nil
}

// checkDeprecated walks the raw document node for deprecated shapes:
// a top-level monitor_count/paths key, or "workflows"/"templates"/"monitors"
// expressed as a sequence instead of a mapping (the array-style
// configuration the original tool briefly supported, later dropped).
func checkDeprecated(root *yaml.Node) error {
	if len(root.Content) == 0 {
		return nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		val := doc.Content[i+1]
		for _, dep := range deprecatedKeys {
			if key.Value == dep {
				return &darkwallerrors.ConfigInvalid{
					Key:    key.Value,
					Reason: "deprecated configuration key; remove it and use the monitors/themes mapping form instead",
				}
			}
		}
		if key.Value == "workflows" && val.Kind == yaml.SequenceNode {
			return &darkwallerrors.ConfigInvalid{
				Key:    "workflows",
				Reason: "array-style workflow configuration is deprecated; use a mapping of workflow id to {prompts: [...]}",
			}
		}
		if key.Value == "templates" && val.Kind == yaml.SequenceNode {
			return &darkwallerrors.ConfigInvalid{
				Key:    "templates",
				Reason: "array-style template configuration is deprecated; list templates per workflow (workflows.<id>.prompts) or per monitor instead",
			}
		}
		if key.Value == "monitors" && val.Kind == yaml.SequenceNode {
			return &darkwallerrors.ConfigInvalid{
				Key:    "monitors",
				Reason: "array-style monitor configuration is deprecated; use a mapping of monitor name to binding",
			}
		}
	}
	return nil
}

// ConfiguredMonitorNames returns the monitor names in declaration
// order as they appear in the YAML document. yaml.v3 map decoding does
// not preserve order, so order-sensitive rotation semantics re-parse
// the raw document's mapping node instead of ranging over the Go map.
func ConfiguredMonitorNames(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config for ordering: %w", err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("parse config for ordering: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	doc := root.Content[0]
	var names []string
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == "monitors" {
			monitors := doc.Content[i+1]
			for j := 0; j+1 < len(monitors.Content); j += 2 {
				names = append(names, monitors.Content[j].Value)
			}
		}
	}
	return names, nil
}
