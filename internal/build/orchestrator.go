package build

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/eventstore"
	"git.home.luguber.info/inful/assetbuilder/internal/git"
	"git.home.luguber.info/inful/assetbuilder/internal/incremental"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metadata"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/observability"
	"git.home.luguber.info/inful/assetbuilder/internal/render"
	"git.home.luguber.info/inful/assetbuilder/internal/thumbnail"
)

// Journal receives the build lifecycle. *eventstore.Journal satisfies it.
type Journal interface {
	Started(ctx context.Context, buildID string, p eventstore.BuildStarted)
	Entered(ctx context.Context, buildID, state string)
	Finished(ctx context.Context, msg eventstore.BuildFinished)
}

type noopJournal struct{}

func (noopJournal) Started(context.Context, string, eventstore.BuildStarted) {}
func (noopJournal) Entered(context.Context, string, string)                  {}
func (noopJournal) Finished(context.Context, eventstore.BuildFinished)       {}

// Orchestrator runs builds for one configuration. Concurrent Run calls
// against the same cache are serialized by the cache lock: the loser fails
// with a lock error.
type Orchestrator struct {
	cfg      *config.Config
	recorder metrics.Recorder
	journal  Journal
	observer Observer
	logger   *slog.Logger

	now      func() time.Time
	revision func() string
	// beforeCommit runs just before the cache is committed.
	beforeCommit func() error
}

// New creates an orchestrator with a no-op recorder and journal.
func New(cfg *config.Config) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		journal:  noopJournal{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	o.revision = o.gitRevision
	return o
}

// WithRecorder sets the metrics recorder.
func (o *Orchestrator) WithRecorder(r metrics.Recorder) *Orchestrator {
	if r != nil {
		o.recorder = r
	}
	return o
}

// WithJournal sets the build event journal.
func (o *Orchestrator) WithJournal(j Journal) *Orchestrator {
	if j != nil {
		o.journal = j
	}
	return o
}

// WithObserver sets the state observer.
func (o *Orchestrator) WithObserver(obs Observer) *Orchestrator {
	o.observer = obs
	return o
}

func (o *Orchestrator) WithLogger(l *slog.Logger) *Orchestrator {
	if l != nil {
		o.logger = l
	}
	return o
}

func (o *Orchestrator) gitRevision() string {
	rev, err := git.ReadRevision(o.cfg.RootDir())
	if err != nil {
		if !errors.Is(err, git.ErrNotRepository) {
			o.logger.Debug("Could not read git revision", logfields.Error(err))
		}
		return ""
	}
	return rev.Commit
}

// buildState carries everything one run accumulates between states.
type buildState struct {
	req    Request
	result *Result
	lock   *incremental.Lock
	cache  *incremental.BuildCache

	sidecar  *metadata.SidecarContributor
	thumbs   *thumbnail.Engine
	pages    *render.Writer
	strategy Strategy

	// configChanged is set when the cache was built under different settings;
	// derived files are then regenerated.
	configChanged bool

	candidates []incremental.Candidate
	metaFP     map[string]string
	// bases maps each live record's source path to its slug candidate.
	bases map[string]string
	changes    incremental.Changes
	outcomes   []outcome
	records    []*asset.Record
	// retained are previous entries kept because their reprocessing failed.
	retained []*incremental.Entry

	stop bool
}

// Run executes one build. The returned Result is always non-nil; err is
// non-nil when the build failed or was cancelled.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Mode == "" {
		req.Mode = o.cfg.Build.Mode
	}
	if req.Workers <= 0 {
		req.Workers = o.cfg.Build.Workers
	}

	start := o.now()
	res := &Result{
		BuildID:        uuid.NewString(),
		Mode:           req.Mode,
		Workers:        req.Workers,
		DryRun:         req.DryRun,
		StateDurations: make(map[State]time.Duration),
		StartTime:      start,
	}
	bs := &buildState{req: req, result: res, metaFP: make(map[string]string), bases: make(map[string]string)}
	ctx = observability.WithBuildID(ctx, res.BuildID)

	defer func() {
		if bs.lock != nil {
			if err := bs.lock.Release(); err != nil {
				o.logger.Warn("Failed to release build lock", logfields.Error(err))
			}
		}
	}()

	o.recorder.SetWorkers(req.Workers)
	observability.InfoContext(ctx, "Build started",
		logfields.Mode(string(req.Mode)), slog.Int("workers", req.Workers))

	states := []stateDef{
		{StateInit, o.stateInit},
		{StateScanning, o.stateScanning},
		{StateClassifying, o.stateClassifying},
		{StateProcessing, o.stateProcessing},
		{StateReconciling, o.stateReconciling},
		{StateWriting, o.stateWriting},
		{StateCommittingCache, o.stateCommitting},
	}
	err := o.runStates(ctx, bs, states)
	return o.finish(ctx, bs, err)
}

func (o *Orchestrator) finish(ctx context.Context, bs *buildState, err error) (*Result, error) {
	res := bs.result
	res.EndTime = o.now()
	res.Duration = res.EndTime.Sub(res.StartTime)
	o.recorder.ObserveBuildDuration(res.Duration)

	finished := eventstore.BuildFinished{
		BuildID:    res.BuildID,
		Mode:       string(res.Mode),
		Revision:   res.Revision,
		FinishedAt: res.EndTime.UTC(),
		DurationMS: res.Duration.Milliseconds(),
		Counts:     res.eventCounts(),
	}

	switch {
	case err == nil:
		res.Status = BuildStatusSuccess
		o.enter(ctx, bs, StateDone)
		o.recorder.IncBuildOutcome(metrics.OutcomeSuccess)
		finished.Status = eventstore.StatusSucceeded
		observability.InfoContext(ctx, "Build completed",
			logfields.DurationMS(float64(res.Duration.Milliseconds())),
			logfields.Count(len(bs.records)))
	default:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			res.Status = BuildStatusCancelled
			o.recorder.IncBuildOutcome(metrics.OutcomeCancelled)
		} else {
			res.Status = BuildStatusFailed
			o.recorder.IncBuildOutcome(metrics.OutcomeFailed)
		}
		err = classify(res.FailedState, err)
		o.enter(ctx, bs, StateFailed)
		finished.Status = eventstore.StatusFailed
		finished.State = string(res.FailedState)
		finished.Error = err.Error()
		observability.ErrorContext(ctx, "Build failed",
			slog.String("failed_state", string(res.FailedState)), logfields.Error(err))
	}

	o.journal.Finished(ctx, finished)
	return res, err
}
