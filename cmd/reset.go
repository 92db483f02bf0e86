package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veighnsche/darkwall-comfyui/internal/rotation"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the persisted rotation cursor",
	Long:  `After reset, the next generate invocation serves the first configured monitor again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		state := rotation.Load(rotationStatePath(cfg))
		if err := state.Reset(); err != nil {
			return err
		}
		fmt.Println("rotation state reset")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
