package eventstore

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// Journal records a build's lifecycle in a Store and forwards the outcome to
// a Publisher. Both are optional. Failures are logged and never fail a
// build.
type Journal struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

// NewJournal creates a journal. store and publisher may be nil.
func NewJournal(store Store, publisher Publisher, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{store: store, publisher: publisher, logger: logger}
}

// Started records the start of a build.
func (j *Journal) Started(ctx context.Context, buildID string, p BuildStarted) {
	j.append(ctx, buildID, TypeBuildStarted, p)
}

// Entered records a state transition.
func (j *Journal) Entered(ctx context.Context, buildID, state string) {
	j.append(ctx, buildID, TypeStateEntered, StateEntered{State: state})
}

// Finished records the outcome and publishes it.
func (j *Journal) Finished(ctx context.Context, msg BuildFinished) {
	eventType := TypeBuildCompleted
	if msg.Status != StatusSucceeded {
		eventType = TypeBuildFailed
	}
	// The build context may already be cancelled; the outcome is still recorded.
	ctx = context.WithoutCancel(ctx)
	j.append(ctx, msg.BuildID, eventType, msg)
	if j == nil || j.publisher == nil {
		return
	}
	if err := j.publisher.Publish(ctx, msg); err != nil {
		j.logger.Warn("Failed to publish build event", logfields.BuildID(msg.BuildID), logfields.Error(err))
	}
}

// Close releases the store and publisher.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	if j.publisher != nil {
		j.publisher.Close()
	}
	if j.store != nil {
		return j.store.Close()
	}
	return nil
}

func (j *Journal) append(ctx context.Context, buildID, eventType string, v any) {
	if j == nil || j.store == nil {
		return
	}
	payload, err := marshalPayload(buildID, eventType, v)
	if err == nil {
		err = j.store.Append(ctx, buildID, eventType, payload, nil)
	}
	if err != nil {
		j.logger.Warn("Failed to record build event",
			logfields.BuildID(buildID), slog.String("event_type", eventType), logfields.Error(err))
	}
}
