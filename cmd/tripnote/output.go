package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-runewidth"

	"github.com/tripnote/tripnote"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func printHits(w io.Writer, hits []tripnote.Hit, asJSON bool) error {
	if asJSON {
		return printJSON(w, hits)
	}
	if len(hits) == 0 {
		_, _ = fmt.Fprintln(w, "No results.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SCORE\tCOLLECTION\tID\tTITLE\tSNIPPET")
	for _, h := range hits {
		_, _ = fmt.Fprintf(tw, "%.3f\t%s\t%s\t%s\t%s\n",
			h.Score, h.Collection, h.ID, truncate(h.Record.DisplayTitle(), 40), truncate(h.Snippet, 60))
	}
	return tw.Flush() //nolint:wrapcheck // plain writer flush
}

func printRecords(w io.Writer, recs []tripnote.Record, asJSON bool) error {
	if asJSON {
		return printJSON(w, recs)
	}
	if len(recs) == 0 {
		_, _ = fmt.Fprintln(w, "No records.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTITLE\tLOCATION\tTAGS\tUPDATED")
	for _, r := range recs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, truncate(r.DisplayTitle(), 40), r.Location, strings.Join(r.Tags, ","), r.UpdatedAt)
	}
	return tw.Flush() //nolint:wrapcheck // plain writer flush
}

// truncate flattens s to one line and cuts it to n terminal columns, so
// wide characters count double.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return runewidth.Truncate(s, n, "…")
}
