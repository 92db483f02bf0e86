package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/veighnsche/darkwall-comfyui/internal/config"
	"github.com/veighnsche/darkwall-comfyui/internal/rotation"
	"github.com/veighnsche/darkwall-comfyui/internal/schedule"
)

var (
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true).Underline(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, rotation, and schedule state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Println(sectionStyle.Render("Configuration"))
		fmt.Printf("  config file:    %s\n", configPath)
		fmt.Printf("  service:        %s (timeout %ds, poll %ds)\n", cfg.Service.BaseURL, cfg.Service.Timeout, cfg.Service.PollInterval)
		fmt.Printf("  monitors:       %d configured\n", len(cfg.Monitors))
		fmt.Printf("  themes:         %d configured\n", len(cfg.Themes))
		fmt.Printf("  time slot:      %d minutes (monitor-seeded: %v)\n", cfg.Prompt.TimeSlotMinutes, cfg.Prompt.UseMonitorSeed)
		fmt.Println()

		fmt.Println(sectionStyle.Render("Rotation"))
		names, _ := config.ConfiguredMonitorNames(configPath)
		if len(names) == 0 {
			for name := range cfg.Monitors {
				names = append(names, name)
			}
		}
		state := rotation.Load(rotationStatePath(cfg))
		next := state.Next(names)
		if next == "" {
			fmt.Println(warnStyle.Render("  no monitors configured"))
		} else {
			fmt.Printf("  next monitor:   %s\n", next)
		}
		for _, name := range names {
			if at, ok := state.LastServed[name]; ok {
				fmt.Printf("  last served %-12s %s\n", name+":", at.Format(time.RFC3339))
			}
		}
		fmt.Println()

		fmt.Println(sectionStyle.Render("Schedule"))
		printScheduleStatus(cfg)

		fmt.Println(successStyle.Render("Status check complete"))
		return nil
	},
}

func printScheduleStatus(cfg *config.Config) {
	loc := time.Local
	if cfg.Schedule.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Schedule.Timezone); err == nil {
			loc = l
		}
	}
	scheduler := schedule.New(schedule.Config{
		Latitude:             cfg.Schedule.Latitude,
		Longitude:            cfg.Schedule.Longitude,
		Location:             loc,
		SunriseOverride:      cfg.Schedule.SunriseTime,
		SunsetOverride:       cfg.Schedule.SunsetTime,
		DayThemes:            weightsFrom(cfg.Schedule.DayThemes),
		NightThemes:          weightsFrom(cfg.Schedule.NightThemes),
		BlendDurationMinutes: cfg.Schedule.BlendDurationMinutes,
	})

	now := time.Now()
	phase, probs, err := scheduler.Phase(now)
	if err != nil {
		fmt.Println(infoStyle.Render("  schedule unavailable: " + err.Error()))
		return
	}
	fmt.Printf("  phase:          %s\n", phase)
	for _, name := range sortedProbKeys(probs) {
		fmt.Printf("  %-12s %.2f\n", name+":", probs[name])
	}
}

func weightsFrom(in []config.ThemeWeight) []schedule.Weight {
	out := make([]schedule.Weight, len(in))
	for i, w := range in {
		out[i] = schedule.Weight{Name: w.Name, Weight: w.Weight}
	}
	return out
}

func sortedProbKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
