package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"git.home.luguber.info/inful/assetbuilder/internal/eventstore"
	"git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int           `short:"n" help:"Number of builds to show" default:"10"`
	Since time.Duration `help:"Only show builds with activity within this duration (e.g. 24h)"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	p := cfg.HistoryPath()
	if p == "" {
		return errors.ConfigError("build history is disabled (events.history is empty)").Build()
	}
	if _, err := os.Stat(p); os.IsNotExist(err) {
		fmt.Println("No builds recorded yet")
		return nil
	}
	store, err := eventstore.NewSQLiteStore(p)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	var builds []*eventstore.BuildSummary
	if h.Since > 0 {
		now := time.Now()
		builds, err = eventstore.Since(ctx, store, now.Add(-h.Since), now, h.Limit)
	} else {
		builds, err = eventstore.Recent(ctx, store, h.Limit)
	}
	if err != nil {
		return err
	}
	fmt.Println(renderHistory(builds))
	return nil
}

func renderHistory(builds []*eventstore.BuildSummary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Build", "Started", "Mode", "Status", "State", "Changes", "Failed", "Duration", "Revision"})
	for _, b := range builds {
		changes := itoa(b.Counts.Added) + "+ " + itoa(b.Counts.Modified) + "~ " + itoa(b.Counts.Deleted) + "-"
		rev := b.Revision
		if len(rev) > 12 {
			rev = rev[:12]
		}
		tw.AppendRow(table.Row{
			shortID(b.BuildID),
			b.StartedAt.Local().Format(time.DateTime),
			b.Mode,
			b.Status,
			b.LastState,
			changes,
			b.Counts.Failed,
			b.Duration.Round(time.Millisecond).String(),
			rev,
		})
	}
	return tw.Render()
}
