package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-finder/internal/core/search"
	"recipe-finder/internal/core/stream"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

func newSearchCommand() *cobra.Command {
	var server string
	var mode string
	var cuisine string
	var dietary string
	var maxTime int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "search INGREDIENT...",
		Short: "Run a recipe search against a running server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := search.Request{Ingredients: args, Mode: mode}
			if cuisine != "" || dietary != "" || maxTime > 0 {
				req.Preferences = &search.Preferences{Cuisine: cuisine, Dietary: dietary, MaxTime: maxTime}
			}
			if err := req.Validate(); err != nil {
				return err
			}

			resp, err := resty.New().
				SetTimeout(timeout).
				R().
				SetContext(cmd.Context()).
				SetDoNotParseResponse(true).
				SetBody(req).
				Post(strings.TrimRight(server, "/") + "/api/v1/recipes/search")
			if err != nil {
				return fmt.Errorf("search request: %w", err)
			}
			body := resp.RawBody()
			defer body.Close()

			if resp.StatusCode() != http.StatusOK {
				return fmt.Errorf("search failed with status %d", resp.StatusCode())
			}

			out := cmd.OutOrStdout()
			var lastStatus string
			final := stream.Consume(cmd.Context(), body, stream.NewParser(stream.Marked), func(u stream.Update) {
				if u.Status != "" && u.Status != lastStatus {
					lastStatus = u.Status
					fmt.Fprintln(out, u.Status)
				}
			})
			if !final.Complete {
				return fmt.Errorf("stream ended before the recipe list arrived")
			}
			return writeJSON(out, final.Recipes)
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "Recipe finder server base URL")
	cmd.Flags().StringVar(&mode, "mode", "", "Search mode: tools or narrated")
	cmd.Flags().StringVar(&cuisine, "cuisine", "", "Preferred cuisine")
	cmd.Flags().StringVar(&dietary, "dietary", "", "Dietary restriction")
	cmd.Flags().IntVar(&maxTime, "max-time", 0, "Maximum total time in minutes")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "Overall request timeout")
	return cmd
}
