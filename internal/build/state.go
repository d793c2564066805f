package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/observability"
)

// State is a step of the build state machine.
type State string

const (
	StateInit            State = "init"
	StateScanning        State = "scanning"
	StateClassifying     State = "classifying"
	StateProcessing      State = "processing"
	StateReconciling     State = "reconciling"
	StateWriting         State = "writing"
	StateCommittingCache State = "committing_cache"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// Observer receives state transitions.
type Observer interface {
	OnState(buildID string, s State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(buildID string, s State)

func (f ObserverFunc) OnState(buildID string, s State) { f(buildID, s) }

type stateFn func(ctx context.Context, bs *buildState) error

type stateDef struct {
	State State
	Fn    stateFn
}

// runStates executes states in order, recording timing and stopping on the
// first error or cancellation. A state function may set bs.stop to end the
// run early without error.
func (o *Orchestrator) runStates(ctx context.Context, bs *buildState, defs []stateDef) error {
	for _, def := range defs {
		select {
		case <-ctx.Done():
			bs.result.FailedState = def.State
			return ctx.Err()
		default:
		}

		o.enter(ctx, bs, def.State)
		sctx := observability.WithState(ctx, string(def.State))

		t0 := time.Now()
		err := def.Fn(sctx, bs)
		dur := time.Since(t0)

		bs.result.StateDurations[def.State] = dur
		o.recorder.ObserveStateDuration(string(def.State), dur)
		observability.DebugContext(sctx, "State complete", logfields.DurationMS(float64(dur.Microseconds())/1000))

		if err != nil {
			bs.result.FailedState = def.State
			return err
		}
		if bs.stop {
			return nil
		}
	}
	return nil
}

func (o *Orchestrator) enter(ctx context.Context, bs *buildState, s State) {
	bs.result.States = append(bs.result.States, s)
	if o.observer != nil {
		o.observer.OnState(bs.result.BuildID, s)
	}
	o.journal.Entered(ctx, bs.result.BuildID, string(s))
}
