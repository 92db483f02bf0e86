package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file and exit 0/1",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Printf("%s is valid (%d monitor(s), %d theme(s))\n", configPath, len(cfg.Monitors), len(cfg.Themes))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
