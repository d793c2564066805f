package build

import (
	"errors"
	"fmt"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/incremental"
)

// WorkerError reports a shard worker that failed as a whole. Its output is
// never merged.
type WorkerError struct {
	Worker int
	Err    error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %d: %v", e.Worker, e.Err)
}

func (e *WorkerError) Unwrap() error { return e.Err }

// classify maps a fatal state error onto a ClassifiedError for the CLI.
func classify(state State, err error) error {
	if err == nil || ferrors.IsClassified(err) {
		return err
	}
	var we *WorkerError
	switch {
	case errors.Is(err, incremental.ErrCacheLocked):
		return ferrors.WrapError(err, ferrors.CategoryLock, "another build is running").
			Fatal().UserAction().WithContext("state", string(state)).Build()
	case errors.As(err, &we):
		return ferrors.WrapError(err, ferrors.CategoryWorker, "shard worker failed").
			Fatal().WithContext("state", string(state)).WithContext("worker", we.Worker).Build()
	default:
		return ferrors.WrapError(err, ferrors.CategoryBuild, "build failed").
			Fatal().WithContext("state", string(state)).Build()
	}
}
