package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arvales/tabguard"
)

type fakeSource struct {
	snapshot tabguard.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() tabguard.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: tabguard.MetricsSnapshot{
			Counters:   map[tabguard.MetricID]uint64{},
			Histograms: map[tabguard.MetricID][]uint64{},
		},
		dropped: 0,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: tabguard.MetricsSnapshot{
			Counters: map[tabguard.MetricID]uint64{
				tabguard.MetricLoginSuccess:   7,
				tabguard.MetricLockoutStarted: 1,
			},
			Histograms: map[tabguard.MetricID][]uint64{
				tabguard.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "tabguard_login_success_total 7") {
		t.Fatalf("expected login_success counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "tabguard_lockout_started_total 1") {
		t.Fatalf("expected lockout_started counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "tabguard_validate_latency_seconds_bucket{le=\"0.005\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "tabguard_validate_latency_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "tabguard_audit_dropped_total 2") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: tabguard.MetricsSnapshot{
			Counters:   map[tabguard.MetricID]uint64{tabguard.MetricLoginSuccess: 1},
			Histograms: map[tabguard.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRenderNilExporterIsEmpty(t *testing.T) {
	var exp *PrometheusExporter
	if got := exp.Render(); got != "" {
		t.Fatalf("nil exporter rendered %q", got)
	}
}
