package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/cleared-dev/tally/internal/preview"
	"github.com/cleared-dev/tally/internal/rules"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.FgHiBlack)
	bold   = color.New(color.Bold)
)

var statusColor = map[preview.Status]*color.Color{
	preview.StatusNew:       green,
	preview.StatusDuplicate: yellow,
	preview.StatusError:     red,
	preview.StatusEdited:    cyan,
	preview.StatusDiscarded: faint,
}

func printPreview(w io.Writer, p *preview.Preview) {
	bold.Fprintf(w, "Preview %s  %s -> %s\n\n", p.ID, p.FileName, p.AccountID)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tROW\tLINE\tDATE\tAMOUNT\tSTATUS\tDESCRIPTION\tCATEGORY\tNOTE")
	for _, r := range p.Rows() {
		mark := " "
		if r.Importable() {
			mark = "*"
		}
		amount := ""
		if r.Status != preview.StatusError {
			amount = r.Amount.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			mark, r.ID, r.Line, r.Date, amount,
			statusColor[r.Status].Sprint(r.Status),
			truncate(r.Description, 40), r.CategoryID, rowNote(r))
	}
	tw.Flush()

	s := p.Summary()
	fmt.Fprintf(w, "\n%d rows: %d new, %d duplicate, %d error, %d edited, %d discarded\n",
		s.TotalTransactions, s.New, s.Duplicates, s.Errors, s.Edited, s.Discarded)
	fmt.Fprintf(w, "%d selected, %d importable, %d hidden\n", s.Selected, s.Importable, s.Hidden)
	for _, total := range s.TotalAmount {
		fmt.Fprintf(w, "Total: %s\n", total)
	}
	if !s.MinDate.IsZero() {
		fmt.Fprintf(w, "Dates: %s .. %s\n", s.MinDate, s.MaxDate)
	}
}

func rowNote(r preview.Row) string {
	var notes []string
	switch {
	case r.Status == preview.StatusError:
		notes = append(notes, red.Sprint(r.Error))
	case r.IsDuplicate:
		notes = append(notes, fmt.Sprintf("%s (%s)", r.DuplicateReason, r.DuplicateOf))
	}
	if r.WillBeHidden {
		notes = append(notes, "hidden")
	}
	if r.SuggestedBy != "" {
		notes = append(notes, "rule "+shortID(r.SuggestedBy))
	}
	return strings.Join(notes, "; ")
}

func printSuggestions(w io.Writer, sugs []rules.Suggestion) {
	if len(sugs) == 0 {
		fmt.Fprintln(w, "No rule suggestions.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONFIDENCE\tMATCHES\tRULE")
	for _, s := range sugs {
		fmt.Fprintf(tw, "%.2f\t%d\t%s\n", s.Confidence, len(s.AffectedTransactions), s.Description)
	}
	tw.Flush()
}

func printRules(w io.Writer, rs []rules.Rule) {
	if len(rs) == 0 {
		fmt.Fprintln(w, "No rules.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACTIVE\tCONFIDENCE\tSEEN\tRULE")
	for _, r := range rs {
		active := green.Sprint("yes")
		if !r.Active {
			active = faint.Sprint("no ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%d\t%s\n", shortID(r.ID), active, r.Confidence, r.Occurrences, r.Describe())
	}
	tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
