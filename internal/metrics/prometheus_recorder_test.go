package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestNoopRecorder(t *testing.T) {
	exerciseRecorder(NoopRecorder{})
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	exerciseRecorder(pr)
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	exerciseRecorder(NewPrometheusRecorder(reg))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"assetbuilder_build_outcomes_total",
		"assetbuilder_asset_changes_total",
		"assetbuilder_thumbnails_total",
		"assetbuilder_workers",
	} {
		if !names[want] {
			t.Errorf("missing metric %s", want)
		}
	}
}

func TestWriteTextfile(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncBuildOutcome(OutcomeFailed)

	path := filepath.Join(t.TempDir(), "nested", "assetbuilder.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `assetbuilder_build_outcomes_total{outcome="failed"} 1`) {
		t.Fatalf("unexpected textfile:\n%s", data)
	}
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).SetWorkers(4)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "assetbuilder_workers 4") {
		t.Fatalf("unexpected body:\n%s", rec.Body.String())
	}
}
