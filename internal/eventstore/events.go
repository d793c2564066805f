package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Counts summarizes what one build did.
type Counts struct {
	Added     int `json:"added"`
	Modified  int `json:"modified"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Routes    int `json:"routes"`
}

// BuildStarted is the payload of TypeBuildStarted.
type BuildStarted struct {
	Mode     string `json:"mode"`
	Workers  int    `json:"workers"`
	Revision string `json:"revision,omitempty"`
	DryRun   bool   `json:"dry_run,omitempty"`
}

// StateEntered is the payload of TypeStateEntered.
type StateEntered struct {
	State string `json:"state"`
}

// BuildFinished is the payload of TypeBuildCompleted and TypeBuildFailed,
// and the message published to NATS.
type BuildFinished struct {
	BuildID    string    `json:"build_id"`
	Status     string    `json:"status"`
	Mode       string    `json:"mode"`
	Revision   string    `json:"revision,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
	Counts     Counts    `json:"counts"`
	State      string    `json:"state,omitempty"` // state that failed
	Error      string    `json:"error,omitempty"`
}

func marshalPayload(buildID, eventType string, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryEvents, "marshal event payload").
			WithContext("build_id", buildID).
			WithContext("event_type", eventType).
			Build()
	}
	return payload, nil
}

func unmarshalPayload(e Event, v any) error {
	if err := json.Unmarshal(e.Payload(), v); err != nil {
		return errors.WrapError(err, errors.CategoryEvents, "unmarshal event payload").
			WithContext("build_id", e.BuildID()).
			WithContext("event_type", e.Type()).
			Build()
	}
	return nil
}
