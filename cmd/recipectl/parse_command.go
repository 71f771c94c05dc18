package main

import (
	"fmt"
	"io"
	"os"

	"recipe-finder/internal/core/stream"

	"github.com/spf13/cobra"
)

func newParseCommand() *cobra.Command {
	var unmarked bool
	var follow bool
	var chunk int

	cmd := &cobra.Command{
		Use:   "parse [FILE]",
		Short: "Replay a saved model stream through the incremental parser",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open stream file: %w", err)
				}
				defer f.Close()
				in = f
			}
			if chunk > 0 {
				in = &chunkedReader{r: in, size: chunk}
			}

			protocol := stream.Marked
			if unmarked {
				protocol = stream.Unmarked
			}

			out := cmd.OutOrStdout()
			var lastStatus string
			var lastCount int
			final := stream.Consume(cmd.Context(), in, stream.NewParser(protocol), func(u stream.Update) {
				if !follow || (u.Status == lastStatus && len(u.Recipes) == lastCount) {
					return
				}
				lastStatus, lastCount = u.Status, len(u.Recipes)
				fmt.Fprintf(out, "[%d recipes] %s\n", len(u.Recipes), u.Status)
			})
			return writeJSON(out, final)
		},
	}

	cmd.Flags().BoolVar(&unmarked, "unmarked", false, "Input is free text without [STATUS]/[RECIPES_START] markers")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Print every status or recipe count change")
	cmd.Flags().IntVar(&chunk, "chunk", 0, "Feed the parser N bytes at a time")
	return cmd
}

// chunkedReader 每次最多回傳 size 個位元組，模擬網路片段
type chunkedReader struct {
	r    io.Reader
	size int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(p) > c.size {
		p = p[:c.size]
	}
	return c.r.Read(p)
}
