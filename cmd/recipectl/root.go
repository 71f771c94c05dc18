package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "recipectl",
		Short:         "Recipe finder command line tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newExtractCommand())
	rootCmd.AddCommand(newParseCommand())
	rootCmd.AddCommand(newSearchCommand())
	rootCmd.AddCommand(newFormatCommand())
	rootCmd.AddCommand(newTokenCommand())

	return rootCmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
