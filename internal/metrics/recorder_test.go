package metrics

import "time"

// Compile-time checks.
var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func exerciseRecorder(r Recorder) {
	r.ObserveStateDuration("scanning", 10*time.Millisecond)
	r.ObserveBuildDuration(time.Second)
	r.IncBuildOutcome(OutcomeSuccess)
	r.AddChanges("added", 3)
	r.IncItemResult(ItemProcessed)
	r.IncThumbnail(true)
	r.SetWorkers(2)
	r.SetCatalogSize(5)
}
