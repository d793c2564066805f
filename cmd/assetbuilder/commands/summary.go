package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"git.home.luguber.info/inful/assetbuilder/internal/build"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printSummary renders a table on a terminal and a single log line
// otherwise, so CI logs stay greppable.
func printSummary(w io.Writer, res *build.Result) {
	if res == nil {
		return
	}
	c := res.Counts
	if !isTerminal(w) {
		slog.Info("Build summary",
			logfields.BuildID(res.BuildID),
			slog.String("status", string(res.Status)),
			logfields.Mode(string(res.Mode)),
			slog.Int("added", c.Added),
			slog.Int("modified", c.Modified),
			slog.Int("deleted", c.Deleted),
			slog.Int("unchanged", c.Unchanged),
			slog.Int("regenerated", c.Regenerated),
			slog.Int("processed", c.Processed),
			slog.Int("skipped", c.Skipped),
			slog.Int("failed", c.Failed),
			slog.Int("routes", c.Routes),
			logfields.DurationMS(float64(res.Duration.Milliseconds())))
		return
	}

	_, _ = fmt.Fprintln(w, renderSummary(res))
	for _, f := range res.Failures {
		kind := "failed"
		if f.Skipped {
			kind = "skipped"
		}
		_, _ = fmt.Fprintf(w, "  %s %s: %v\n", kind, f.SourcePath, f.Err)
	}
}

func renderSummary(res *build.Result) string {
	c := res.Counts
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(fmt.Sprintf("Build %s (%s, %s)", shortID(res.BuildID), res.Mode, res.Status))
	tw.AppendHeader(table.Row{"Added", "Modified", "Deleted", "Unchanged", "Regenerated", "Processed", "Skipped", "Failed", "Pages", "Routes", "Duration"})
	tw.AppendRow(table.Row{
		c.Added, c.Modified, c.Deleted, c.Unchanged, c.Regenerated, c.Processed, c.Skipped, c.Failed,
		c.PagesWritten, c.Routes, res.Duration.Round(time.Millisecond).String(),
	})
	configs := make([]table.ColumnConfig, 0, 11)
	for i := 1; i <= 10; i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func itoa(n int) string { return strconv.Itoa(n) }
