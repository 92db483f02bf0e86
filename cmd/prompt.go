package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/veighnsche/darkwall-comfyui/internal/atoms"
	"github.com/veighnsche/darkwall-comfyui/internal/config"
	"github.com/veighnsche/darkwall-comfyui/internal/seed"
	"github.com/veighnsche/darkwall-comfyui/internal/template"
	"github.com/veighnsche/darkwall-comfyui/internal/workflow"
)

var (
	promptTheme    string
	promptMonitor  string
	promptTemplate string
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Inspect template resolution without driving generation",
}

var promptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the templates eligible for a theme",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, theme, err := resolveThemeConfig()
		if err != nil {
			return err
		}
		names, err := workflow.ListPromptFiles(filepath.Join(cfg.Dir, theme.PromptsDir))
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var promptPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Resolve a template's prompt sections for the current time slot without contacting the service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, theme, err := resolveThemeConfig()
		if err != nil {
			return err
		}

		templateName := promptTemplate
		if templateName == "" {
			templateName = theme.DefaultTemplate
		}

		discriminator := ""
		if cfg.Prompt.UseMonitorSeed {
			discriminator = promptMonitor
		}
		s, err := seed.Derive(time.Now(), cfg.Prompt.TimeSlotMinutes, discriminator)
		if err != nil {
			return err
		}

		path := filepath.Join(cfg.Dir, theme.PromptsDir, templateName)
		content, err := readTemplateFile(path, templateName)
		if err != nil {
			return err
		}
		tmpl, err := template.Parse(templateName, content)
		if err != nil {
			return err
		}

		store := atoms.New(filepath.Join(cfg.Dir, theme.AtomsDir))
		result, err := template.Resolve(tmpl, s, store)
		if err != nil {
			return err
		}

		fmt.Printf("template: %s\n", templateName)
		fmt.Printf("seed:     %d (slot %s)\n", s, seed.SlotString(time.Now(), cfg.Prompt.TimeSlotMinutes, discriminator))
		fmt.Println()
		for _, name := range sortedKeys(result.Prompts) {
			fmt.Printf("[%s]\n%s\n", name, result.Prompts[name])
			if neg, ok := result.Negatives[name]; ok {
				fmt.Printf("[%s:negative]\n%s\n", name, neg)
			}
			fmt.Println()
		}
		return nil
	},
}

var promptGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Resolve a template and inject it into its workflow document, printing the result without submitting it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, theme, err := resolveThemeConfig()
		if err != nil {
			return err
		}

		mc, ok := cfg.Monitors[promptMonitor]
		if !ok {
			return fmt.Errorf("monitor %q is not configured", promptMonitor)
		}

		templateName := promptTemplate
		if templateName == "" {
			templateName = theme.DefaultTemplate
		}

		discriminator := ""
		if cfg.Prompt.UseMonitorSeed {
			discriminator = promptMonitor
		}
		s, err := seed.Derive(time.Now(), cfg.Prompt.TimeSlotMinutes, discriminator)
		if err != nil {
			return err
		}

		path := filepath.Join(cfg.Dir, theme.PromptsDir, templateName)
		content, err := readTemplateFile(path, templateName)
		if err != nil {
			return err
		}
		tmpl, err := template.Parse(templateName, content)
		if err != nil {
			return err
		}

		store := atoms.New(filepath.Join(cfg.Dir, theme.AtomsDir))
		result, err := template.Resolve(tmpl, s, store)
		if err != nil {
			return err
		}

		registry := workflow.NewRegistry(filepath.Join(cfg.Dir, "workflows"))
		wf, err := registry.Load(theme.WorkflowPrefix, mc.Resolution)
		if err != nil {
			return err
		}

		injection, err := workflow.Inject(wf, result)
		if err != nil {
			return err
		}

		fmt.Printf("workflow: %s\n", wf.ID)
		for node, field := range flattenInjected(injection.Doc) {
			fmt.Printf("  %s = %s\n", node, field)
		}
		if len(injection.SectionsWithoutPlaceholder) > 0 {
			fmt.Printf("sections without a matching placeholder: %v\n", injection.SectionsWithoutPlaceholder)
		}
		if len(injection.PlaceholdersWithoutSection) > 0 {
			fmt.Printf("negative placeholders with no matching section: %v\n", injection.PlaceholdersWithoutSection)
		}
		return nil
	},
}

func resolveThemeConfig() (*config.Config, config.ThemeConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, config.ThemeConfig{}, err
	}
	name := promptTheme
	if name == "" {
		name = "default"
	}
	theme, ok := cfg.Themes[name]
	if !ok {
		return nil, config.ThemeConfig{}, fmt.Errorf("theme %q is not configured", name)
	}
	return cfg, theme, nil
}

func readTemplateFile(path, templateName string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", templateName, err)
	}
	return string(content), nil
}

// flattenInjected walks a small, already-injected workflow document and
// reports every string leaf, for prompt generate's plain-text preview.
func flattenInjected(v any) map[string]string {
	out := make(map[string]string)
	var walk func(prefix string, node any)
	walk = func(prefix string, node any) {
		switch val := node.(type) {
		case map[string]any:
			for k, child := range val {
				p := k
				if prefix != "" {
					p = prefix + "." + k
				}
				walk(p, child)
			}
		case string:
			out[prefix] = val
		}
	}
	walk("", v)
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	for _, c := range []*cobra.Command{promptListCmd, promptPreviewCmd, promptGenerateCmd} {
		c.Flags().StringVar(&promptTheme, "theme", "", "Theme name (defaults to \"default\")")
	}
	for _, c := range []*cobra.Command{promptPreviewCmd, promptGenerateCmd} {
		c.Flags().StringVar(&promptTemplate, "template", "", "Template filename (defaults to the theme's default_template)")
		c.Flags().StringVar(&promptMonitor, "monitor", "", "Monitor name, used as the seed discriminator and resolution lookup")
	}

	promptCmd.AddCommand(promptListCmd, promptPreviewCmd, promptGenerateCmd)
	rootCmd.AddCommand(promptCmd)
}
