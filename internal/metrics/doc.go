// Package metrics records build observability data.
//
// Components receive a Recorder and default to NoopRecorder, so metric calls
// never need nil checks. PrometheusRecorder is activated when the monitoring
// section enables a textfile or an HTTP listener.
package metrics
