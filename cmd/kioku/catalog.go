package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/kioku/internal/catalog"
)

func newCatalogCommand() *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Content catalog commands",
	}
	catalogCmd.AddCommand(newCatalogValidateCommand())
	return catalogCmd
}

func newCatalogValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configured catalog and report its contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			cat, err := catalog.LoadConfigured(cmd.Context(), cfg.Catalog)
			if err != nil {
				return fmt.Errorf("invalid catalog: %w", err)
			}

			perCategory := make(map[string]int)
			for _, item := range cat.Items() {
				perCategory[item.SkillCategory]++
			}
			categories := make([]string, 0, len(perCategory))
			for category := range perCategory {
				categories = append(categories, category)
			}
			sort.Strings(categories)

			out := cmd.OutOrStdout()
			_, _ = color.New(color.FgGreen).Fprintf(out, "Catalog is valid: %d items\n", cat.Len())
			for _, category := range categories {
				_, _ = fmt.Fprintf(out, "  %-20s %d\n", category, perCategory[category])
			}
			return nil
		},
	}
}
