package eventstore

import (
	"context"
	"fmt"
	"time"
)

// Build statuses in a BuildSummary.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// BuildSummary is a read model folded from one build's events.
type BuildSummary struct {
	BuildID     string
	Status      string
	Mode        string
	Revision    string
	DryRun      bool
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	LastState   string
	Counts      Counts
	Error       string
}

// Summarize folds events (in append order) into a summary. A build without a
// terminal event is reported as running.
func Summarize(events []Event) (*BuildSummary, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("no events")
	}
	s := &BuildSummary{BuildID: events[0].BuildID(), Status: StatusRunning, StartedAt: events[0].Timestamp()}
	for _, e := range events {
		switch e.Type() {
		case TypeBuildStarted:
			var p BuildStarted
			if err := unmarshalPayload(e, &p); err != nil {
				return nil, err
			}
			s.Mode, s.Revision, s.DryRun = p.Mode, p.Revision, p.DryRun
			s.StartedAt = e.Timestamp()
		case TypeStateEntered:
			var p StateEntered
			if err := unmarshalPayload(e, &p); err != nil {
				return nil, err
			}
			s.LastState = p.State
		case TypeBuildCompleted, TypeBuildFailed:
			var p BuildFinished
			if err := unmarshalPayload(e, &p); err != nil {
				return nil, err
			}
			s.Status = p.Status
			s.Counts = p.Counts
			s.Error = p.Error
			s.CompletedAt = p.FinishedAt
			s.Duration = time.Duration(p.DurationMS) * time.Millisecond
			if p.State != "" {
				s.LastState = p.State
			}
		}
	}
	return s, nil
}

// Recent returns summaries of the latest limit builds, newest first.
func Recent(ctx context.Context, store Store, limit int) ([]*BuildSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	ids, err := store.RecentBuildIDs(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*BuildSummary, 0, len(ids))
	for _, id := range ids {
		events, err := store.GetByBuildID(ctx, id)
		if err != nil {
			return nil, err
		}
		s, err := Summarize(events)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", id, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Since returns summaries of builds with events between start and end,
// newest first, at most limit of them. Builds that began before start are
// summarized from their full event log.
func Since(ctx context.Context, store Store, start, end time.Time, limit int) ([]*BuildSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	events, err := store.GetRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	var ids []string
	seen := make(map[string]bool)
	for i := len(events) - 1; i >= 0 && len(ids) < limit; i-- {
		id := events[i].BuildID()
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	out := make([]*BuildSummary, 0, len(ids))
	for _, id := range ids {
		all, err := store.GetByBuildID(ctx, id)
		if err != nil {
			return nil, err
		}
		s, err := Summarize(all)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", id, err)
		}
		out = append(out, s)
	}
	return out, nil
}
