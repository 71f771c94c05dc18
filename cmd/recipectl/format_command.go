package main

import (
	"fmt"
	"strconv"

	"recipe-finder/internal/core/recipe"

	"github.com/spf13/cobra"
)

func newFormatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Format recipe durations and amounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "duration VALUE",
		Short:   "Render an ISO-8601 duration such as PT1H30M",
		Example: "  recipectl format duration PT1H30M",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), recipe.FormatDuration(args[0]))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "amount VALUE",
		Short:   "Render decimal quantities as kitchen fractions",
		Example: "  recipectl format amount \"0.5 cup\"",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), recipe.FormatAmount(args[0]))
			return err
		},
	})

	var scale float64
	quantity := &cobra.Command{
		Use:     "quantity NUMBER",
		Short:   "Render a bare number as a kitchen fraction, optionally scaled",
		Example: "  recipectl format quantity 0.75\n  recipectl format quantity 1.5 --scale 0.5",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("quantity must be a number: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), recipe.FormatQuantity(value*scale))
			return err
		},
	}
	quantity.Flags().Float64Var(&scale, "scale", 1, "multiply the quantity before formatting")
	cmd.AddCommand(quantity)

	cmd.AddCommand(&cobra.Command{
		Use:   "compact VALUE",
		Short: "Render an ISO-8601 duration in short form such as 1h 30m",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), recipe.CompactDuration(args[0]))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clock SECONDS",
		Short: "Render a timer countdown as H:MM:SS or M:SS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("seconds must be an integer: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), recipe.FormatClock(seconds))
			return err
		},
	})

	return cmd
}
