package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func indexCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rebuild the search index and print its state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := g.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.RebuildIndex(cmd.Context()); err != nil {
				return err
			}
			info := c.IndexInfo()
			if g.jsonOutput {
				return printJSON(cmd.OutOrStdout(), info)
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Generation: %d\n", info.Generation)
			_, _ = fmt.Fprintf(w, "Entries:    %d\n", info.Entries)
			_, _ = fmt.Fprintf(w, "Built at:   %s\n", info.BuiltAt.Format(time.RFC3339))
			if len(info.Failed) > 0 {
				_, _ = fmt.Fprintf(w, "Failed:     %s\n", strings.Join(info.Failed, ", "))
			}
			return nil
		},
	}
}
