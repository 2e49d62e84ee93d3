package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tripnote/tripnote"
)

// The inspection commands need no store, so they skip config loading.

func analyzeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <text>",
		Short: "Show entities, topics and sentiment extracted from text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := tripnote.New(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			e := c.Analyze(strings.Join(args, " "))
			if g.jsonOutput {
				return printJSON(cmd.OutOrStdout(), e)
			}
			w := cmd.OutOrStdout()
			printList(w, "People", e.People)
			printList(w, "Places", e.Places)
			printList(w, "Organizations", e.Organizations)
			printList(w, "Money", e.Money)
			printList(w, "Dates", e.Dates)
			printList(w, "Topics", e.Topics)
			printList(w, "Categories", e.Categories)
			_, _ = fmt.Fprintf(w, "%-14s %s\n", "Sentiment:", e.Sentiment)
			return nil
		},
	}
}

func planCmd(_ *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <query>",
		Short: "Show how a query is turned into search terms and filters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := tripnote.New(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			return printJSON(cmd.OutOrStdout(), c.Plan(strings.Join(args, " ")))
		},
	}
}

func tagsCmd(g *globals) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "tags <text>",
		Short: "Suggest tags for a text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := tripnote.New(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			tags := c.GenerateTags(strings.Join(args, " "), typ)
			if g.jsonOutput {
				return printJSON(cmd.OutOrStdout(), tags)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(tags, ", "))
			return nil
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "record type added as a tag")
	return cmd
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "%-14s %s\n", label+":", strings.Join(items, ", "))
}
