package metrics

import "time"

// BuildOutcomeLabel is the final status of one build.
type BuildOutcomeLabel string

const (
	OutcomeSuccess   BuildOutcomeLabel = "success"
	OutcomeFailed    BuildOutcomeLabel = "failed"
	OutcomeCancelled BuildOutcomeLabel = "cancelled"
	OutcomeSkipped   BuildOutcomeLabel = "skipped"
)

// ItemResult is the outcome of processing one asset.
type ItemResult string

const (
	ItemProcessed ItemResult = "processed"
	ItemSkipped   ItemResult = "skipped"
	ItemFailed    ItemResult = "failed"
)

// Recorder defines observability hooks for build metrics.
type Recorder interface {
	ObserveStateDuration(state string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	// AddChanges counts classified assets; change is added|modified|deleted|unchanged|regenerated.
	AddChanges(change string, n int)
	IncItemResult(result ItemResult)
	IncThumbnail(generated bool)
	SetWorkers(n int)
	SetCatalogSize(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStateDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) AddChanges(string, int)                     {}
func (NoopRecorder) IncItemResult(ItemResult)                   {}
func (NoopRecorder) IncThumbnail(bool)                          {}
func (NoopRecorder) SetWorkers(int)                             {}
func (NoopRecorder) SetCatalogSize(int)                         {}
