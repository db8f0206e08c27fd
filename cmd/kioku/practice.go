package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/kioku/internal/cli"
)

func newPracticeCommand() *cobra.Command {
	var learnerID string
	mode := modeFlag("practice")
	var maxItems int

	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Practice today's session interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			service, cat, closeDB, err := openService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			practice, err := cli.NewPracticeCLI(cmd.Context(), service, cat, learnerID, mode.String(), maxItems, os.Stdin, os.Stdout)
			if err != nil {
				return err
			}
			fmt.Printf("Starting practice with %d items. Type :q to stop.\n", practice.Remaining())
			if err := cli.Run(cmd.Context(), practice); err != nil {
				return err
			}
			cli.PrintSummary(os.Stdout, practice.Summary())
			return nil
		},
	}
	cmd.Flags().StringVar(&learnerID, "learner", "", "learner id")
	cmd.Flags().Var(&mode, "mode", "learn or practice")
	cmd.Flags().IntVar(&maxItems, "max", 0, "maximum number of items (default from config)")
	_ = cmd.MarkFlagRequired("learner")
	return cmd
}
