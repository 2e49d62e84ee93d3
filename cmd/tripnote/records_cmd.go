package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tripnote/tripnote"
)

func addCmd(g *globals) *cobra.Command {
	var (
		rec    tripnote.Record
		amount string
	)
	cmd := &cobra.Command{
		Use:   "add <collection>",
		Short: "Add a record to a collection",
		Long: "Add a record to a collection. Tags are generated from the title\n" +
			"and description when --tags is not given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if amount != "" {
				v, err := strconv.ParseFloat(amount, 64)
				if err != nil {
					return fmt.Errorf("%w: amount %q is not a number", tripnote.ErrInvalidRecord, amount)
				}
				rec.Amount = &v
			}

			c, err := g.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			out, err := c.Add(cmd.Context(), args[0], rec)
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return printJSON(cmd.OutOrStdout(), out)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added %s/%s\n", args[0], out.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&rec.ID, "id", "", "record id (generated when empty)")
	f.StringVar(&rec.Title, "title", "", "title")
	f.StringVar(&rec.Name, "name", "", "name (people, gear)")
	f.StringVar(&rec.Description, "description", "", "description")
	f.StringVar(&rec.Content, "content", "", "body text (journal)")
	f.StringVar(&rec.Location, "location", "", "location")
	f.StringSliceVar(&rec.Tags, "tags", nil, "tags (comma separated)")
	f.StringVar(&amount, "amount", "", "amount (expenses)")
	f.StringVar(&rec.Currency, "currency", "", "currency code (expenses)")
	f.StringVar(&rec.Date, "date", "", "date YYYY-MM-DD")
	f.StringVar(&rec.Category, "category", "", "category")
	f.StringVar(&rec.Person, "person", "", "related person")
	return cmd
}

func getCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Print one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			rec, err := c.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func listCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list <collection>",
		Short: "List the records of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			recs, err := c.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), recs, g.jsonOutput)
		},
	}
}

func deleteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <collection> <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a record",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Delete(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			if !g.jsonOutput {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%s\n", args[0], args[1])
			}
			return nil
		},
	}
}

func editCmd(g *globals) *cobra.Command {
	var (
		fields tripnote.PatchFields
		text   = map[string]**string{
			"title": &fields.Title, "name": &fields.Name, "description": &fields.Description,
			"content": &fields.Content, "location": &fields.Location, "currency": &fields.Currency,
			"date": &fields.Date, "category": &fields.Category, "person": &fields.Person,
		}
		values = make(map[string]*string, len(text))
		tags   []string
		amount float64
	)
	cmd := &cobra.Command{
		Use:   "edit <collection> <id>",
		Short: "Change selected fields of a record",
		Long:  "Change selected fields of a record. Only the flags given are applied;\n--tags '' clears the tags so they are generated again.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			for name, dst := range text {
				if cmd.Flags().Changed(name) {
					*dst = values[name]
				}
			}
			if cmd.Flags().Changed("tags") {
				fields.Tags = &tags
			}
			if cmd.Flags().Changed("amount") {
				fields.Amount = &amount
			}

			c, err := g.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			out, err := c.Patch(cmd.Context(), args[0], args[1], fields)
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return printJSON(cmd.OutOrStdout(), out)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated %s/%s\n", args[0], out.ID)
			return nil
		},
	}
	f := cmd.Flags()
	for name := range text {
		values[name] = f.String(name, "", "new "+name)
	}
	f.StringSliceVar(&tags, "tags", nil, "tags (comma separated)")
	f.Float64Var(&amount, "amount", 0, "amount")
	return cmd
}
