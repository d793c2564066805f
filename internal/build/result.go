package build

import (
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/eventstore"
)

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	BuildStatusSuccess   BuildStatus = "success"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsSuccess returns true if the build completed successfully.
func (s BuildStatus) IsSuccess() bool { return s == BuildStatusSuccess }

// Request selects how a build runs.
type Request struct {
	Mode config.BuildMode
	// Workers > 1 selects the sharded strategy.
	Workers int
	// DryRun stops after classification; nothing is written.
	DryRun bool
}

// Counts summarizes one build.
type Counts struct {
	Added     int
	Modified  int
	Deleted   int
	Unchanged int
	// Regenerated counts unchanged assets reprocessed only because their
	// thumbnail was missing. They are not included in Modified.
	Regenerated int
	Processed   int
	Skipped     int
	// Failed includes assets whose detail page could not be written.
	Failed int
	Routes int

	ThumbnailsGenerated int
	// PagesWritten counts page writes; a page rewritten after another page
	// failed counts twice.
	PagesWritten int
}

// ItemFailure describes an asset excluded from (or held back in) the output.
type ItemFailure struct {
	SourcePath string
	Skipped    bool // unsupported format rather than an error
	Err        error
}

// Result contains the outcome of a build execution.
type Result struct {
	BuildID  string
	Status   BuildStatus
	Mode     config.BuildMode
	Workers  int
	DryRun   bool
	Revision string

	Counts   Counts
	Failures []ItemFailure

	// States is the trail of states entered, ending in done or failed.
	States         []State
	StateDurations map[State]time.Duration
	FailedState    State

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

func (r *Result) eventCounts() eventstore.Counts {
	return eventstore.Counts{
		Added:     r.Counts.Added,
		Modified:  r.Counts.Modified,
		Deleted:   r.Counts.Deleted,
		Unchanged: r.Counts.Unchanged,
		Processed: r.Counts.Processed,
		Skipped:   r.Counts.Skipped,
		Failed:    r.Counts.Failed,
		Routes:    r.Counts.Routes,
	}
}
