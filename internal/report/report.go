// Package report renders analysis outcomes as text tables, CSV, Markdown or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"tortuosity/internal/aggregate"
	"tortuosity/internal/domain"
)

const (
	FormatTable    = "table"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Header is the column order of the flat per-document record.
var Header = table.Row{"id", "overall_tortuosity", "mean_line_tortuosity", "max_line_tortuosity", "couplet_tortuosity", "words_found", "words_missing"}

// Write renders the batch and its report. CSV carries only the flat
// per-document records.
func Write(w io.Writer, format string, batch domain.Batch, rep aggregate.Report) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Batch  domain.Batch     `json:"batch"`
			Report aggregate.Report `json:"report"`
		}{batch, rep})
	case FormatCSV:
		tw := Results(batch.Results)
		tw.SetTitle("")
		_, err := fmt.Fprintln(w, tw.RenderCSV())
		return err
	case FormatTable, FormatMarkdown, "":
		render := func(tw table.Writer) string {
			if format == FormatMarkdown {
				return tw.RenderMarkdown()
			}
			return tw.Render()
		}
		sections := []table.Writer{
			Results(batch.Results),
			Summary(rep),
			Groups(rep.Groups),
			Ranking("Most tortuous", rep.Top),
			Ranking("Least tortuous", rep.Bottom),
		}
		for _, tw := range sections {
			if tw == nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "%s\n\n", render(tw)); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "documents=%d skipped=%d failed=%d coverage=%.1f%% (found=%d missing=%d)\n",
			rep.Documents, rep.Skipped, rep.Failed, rep.Coverage.Ratio*100, rep.Coverage.Found, rep.Coverage.Missing)
		return err
	default:
		return fmt.Errorf("unknown report format: %s", format)
	}
}

// Results lists the flat per-document records.
func Results(results []domain.Result) table.Writer {
	tw := newWriter("Documents")
	tw.AppendHeader(Header)
	for _, r := range results {
		tw.AppendRow(table.Row{
			r.ID,
			num(r.OverallTortuosity),
			num(r.MeanLineTortuosity),
			num(r.MaxLineTortuosity),
			num(r.CoupletTortuosity),
			r.WordsFound,
			r.WordsMissing,
		})
	}
	alignNumbers(tw, 2, len(Header))
	return tw
}

// Summary lists descriptive statistics per field.
func Summary(rep aggregate.Report) table.Writer {
	tw := newWriter("Corpus summary")
	tw.AppendHeader(table.Row{"field", "count", "mean", "median", "std", "min", "min id", "max", "max id"})
	for _, s := range rep.Fields {
		tw.AppendRow(table.Row{s.Field, s.Count, num(s.Mean), num(s.Median), num(s.StdDev), num(s.Min.Value), s.Min.ID, num(s.Max.Value), s.Max.ID})
	}
	alignNumbers(tw, 2, 6)
	return tw
}

// Groups compares the configured ordinal groups. It returns nil when none are defined.
func Groups(groups []aggregate.GroupSummary) table.Writer {
	if len(groups) == 0 {
		return nil
	}
	tw := newWriter("Groups")
	tw.AppendHeader(table.Row{"group", "range", "count", "overall mean", "overall median", "couplet mean", "couplet median"})
	for _, g := range groups {
		tw.AppendRow(table.Row{
			g.Name,
			fmt.Sprintf("%d-%d", g.From, g.To),
			g.Count,
			num(g.Overall.Mean),
			num(g.Overall.Median),
			num(g.Couplet.Mean),
			num(g.Couplet.Median),
		})
	}
	alignNumbers(tw, 3, 7)
	return tw
}

// Ranking lists ranked documents by overall tortuosity.
func Ranking(title string, results []domain.Result) table.Writer {
	tw := newWriter(title)
	tw.AppendHeader(table.Row{"rank", "id", "overall_tortuosity", "couplet_tortuosity"})
	for i, r := range results {
		tw.AppendRow(table.Row{i + 1, r.ID, num(r.OverallTortuosity), num(r.CoupletTortuosity)})
	}
	alignNumbers(tw, 3, 4)
	return tw
}

func newWriter(title string) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)
	return tw
}

func alignNumbers(tw table.Writer, from, to int) {
	configs := make([]table.ColumnConfig, 0, to-from+1)
	for i := from; i <= to; i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
