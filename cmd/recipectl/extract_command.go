package main

import (
	"fmt"

	"recipe-finder/internal/core/extract"
	"recipe-finder/internal/core/recipe"
	"recipe-finder/internal/infrastructure/config"

	"github.com/spf13/cobra"
)

func newExtractCommand() *cobra.Command {
	var policy string

	cmd := &cobra.Command{
		Use:   "extract URL",
		Short: "Fetch a recipe page and print the extraction result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if policy == "" {
				policy = cfg.Extract.Policy
			}
			if policy != recipe.Strict.Name && policy != recipe.Lenient.Name {
				return fmt.Errorf("policy must be strict or lenient, got %q", policy)
			}

			extractor := extract.NewExtractor(cfg.Extract, nil, nil)
			res, err := extractor.ExtractWithPolicy(cmd.Context(), args[0], recipe.PolicyByName(policy))
			if err != nil {
				return fmt.Errorf("extract %s: %w", args[0], err)
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&policy, "policy", "", "Validation policy: strict or lenient (default from config)")
	return cmd
}
