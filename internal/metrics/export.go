package metrics

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func WriteTextfile(path string, reg *prom.Registry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prom.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
