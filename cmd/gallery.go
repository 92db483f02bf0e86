package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/veighnsche/darkwall-comfyui/internal/export"
	"github.com/veighnsche/darkwall-comfyui/internal/history"
)

var (
	galleryMonitor string
	galleryLimit   int
	galleryFormat  string
	galleryOlder   string
	galleryDelete  bool
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect and manage the history of generated wallpapers",
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded wallpapers",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer store.Close()
		_ = cfg

		entries, err := store.List(galleryMonitor, galleryLimit)
		if err != nil {
			return err
		}
		exporter, err := export.NewExporter(galleryFormat)
		if err != nil {
			return err
		}
		return exporter.Export(entries, os.Stdout)
	},
}

var galleryInfoCmd = &cobra.Command{
	Use:   "info <id>",
	Short: "Show full detail for one recorded wallpaper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := parseEntryID(args[0])
		if err != nil {
			return err
		}
		entry, err := store.Get(id)
		if err != nil {
			return err
		}
		fmt.Printf("id:              %d\n", entry.ID)
		fmt.Printf("monitor:         %s\n", entry.Monitor)
		fmt.Printf("theme:           %s\n", entry.Theme)
		fmt.Printf("template:        %s\n", entry.Template)
		fmt.Printf("seed:            %d\n", entry.Seed)
		fmt.Printf("workflow:        %s\n", entry.WorkflowID)
		fmt.Printf("path:            %s\n", entry.Path)
		fmt.Printf("created_at:      %s\n", entry.CreatedAt.Format(time.RFC3339))
		fmt.Printf("favorite:        %v\n", entry.Favorite)
		fmt.Printf("positive_prompt: %s\n", entry.PositivePrompt)
		fmt.Printf("negative_prompt: %s\n", entry.NegativePrompt)
		return nil
	},
}

var galleryFavoriteCmd = &cobra.Command{
	Use:   "favorite <id>",
	Short: "Mark a recorded wallpaper as a favorite, exempting it from cleanup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := parseEntryID(args[0])
		if err != nil {
			return err
		}
		if err := store.SetFavorite(id, true); err != nil {
			return err
		}
		fmt.Printf("wallpaper %d marked favorite\n", id)
		return nil
	},
}

var galleryUnfavoriteCmd = &cobra.Command{
	Use:   "unfavorite <id>",
	Short: "Clear a recorded wallpaper's favorite flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := parseEntryID(args[0])
		if err != nil {
			return err
		}
		if err := store.SetFavorite(id, false); err != nil {
			return err
		}
		fmt.Printf("wallpaper %d unmarked favorite\n", id)
		return nil
	},
}

var galleryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a recorded wallpaper's history entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := parseEntryID(args[0])
		if err != nil {
			return err
		}
		if galleryDelete {
			entry, err := store.Get(id)
			if err == nil {
				if rmErr := os.Remove(entry.Path); rmErr != nil && !os.IsNotExist(rmErr) {
					fmt.Fprintf(os.Stderr, "warning: could not remove image file %s: %v\n", entry.Path, rmErr)
				}
			}
		}
		if err := store.Delete(id); err != nil {
			return err
		}
		fmt.Printf("wallpaper %d deleted\n", id)
		return nil
	},
}

var galleryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the gallery store",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("total:     %d\n", stats.Total)
		fmt.Printf("favorites: %d\n", stats.Favorites)
		fmt.Println("by monitor:")
		for name, count := range stats.ByMonitor {
			fmt.Printf("  %-16s %d\n", name, count)
		}
		fmt.Println("by theme:")
		for name, count := range stats.ByTheme {
			fmt.Printf("  %-16s %d\n", name, count)
		}
		return nil
	},
}

var galleryCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete non-favorite wallpapers older than --older-than",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		age, err := time.ParseDuration(galleryOlder)
		if err != nil {
			return fmt.Errorf("--older-than: %w", err)
		}
		cutoff := time.Now().Add(-age)
		removed, err := store.CleanupOlderThan(cutoff)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d wallpaper(s) older than %s\n", removed, galleryOlder)
		return nil
	},
}

func openHistoryStore() (*history.Store, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	path := historyDBPath(cfg)
	store, err := history.Open(path)
	if err != nil {
		return nil, "", err
	}
	return store, path, nil
}

func parseEntryID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid wallpaper id %q: %w", raw, err)
	}
	return id, nil
}

func init() {
	galleryListCmd.Flags().StringVar(&galleryMonitor, "monitor", "", "Filter by monitor name")
	galleryListCmd.Flags().IntVar(&galleryLimit, "limit", 20, "Maximum entries to list (0 for all)")
	galleryListCmd.Flags().StringVar(&galleryFormat, "format", "table", "Output format: table, jsonl, json, yaml")
	galleryDeleteCmd.Flags().BoolVar(&galleryDelete, "remove-file", false, "Also remove the underlying image file")
	galleryCleanupCmd.Flags().StringVar(&galleryOlder, "older-than", "720h", "Age threshold (Go duration syntax, e.g. 168h for a week)")

	galleryCmd.AddCommand(galleryListCmd, galleryInfoCmd, galleryFavoriteCmd, galleryUnfavoriteCmd, galleryDeleteCmd, galleryStatsCmd, galleryCleanupCmd)
	rootCmd.AddCommand(galleryCmd)
}
