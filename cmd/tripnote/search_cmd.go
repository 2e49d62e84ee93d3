package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func searchCmd(g *globals) *cobra.Command {
	var (
		modules   []string
		limit     int
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search every collection with exact, fuzzy and entity matching",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			hits, err := c.Search(strings.Join(args, " ")).
				In(modules...).
				Limit(limit).
				Threshold(threshold).
				Do(cmd.Context())
			if err != nil {
				return err
			}
			return printHits(cmd.OutOrStdout(), hits, g.jsonOutput)
		},
	}
	cmd.Flags().StringSliceVarP(&modules, "modules", "m", nil, "restrict to collections (comma separated)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum results (default 20)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum fuzzy score 0..1 (default 0.3)")
	return cmd
}

func semanticCmd(g *globals) *cobra.Command {
	var modules []string
	cmd := &cobra.Command{
		Use:   "semantic <query>",
		Short: "Match only people, places, amounts and dates found in the query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			hits, err := c.SemanticSearch(cmd.Context(), strings.Join(args, " "), modules...)
			if err != nil {
				return err
			}
			return printHits(cmd.OutOrStdout(), hits, g.jsonOutput)
		},
	}
	cmd.Flags().StringSliceVarP(&modules, "modules", "m", nil, "restrict to collections (comma separated)")
	return cmd
}

func suggestCmd(g *globals) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Complete a title prefix",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			out, err := c.Suggest(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return printJSON(cmd.OutOrStdout(), out)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, s := range out {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Title, s.Collection, s.ID)
			}
			return tw.Flush() //nolint:wrapcheck // plain writer flush
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum suggestions")
	return cmd
}
