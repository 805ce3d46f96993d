package metrics

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func findMetric(t *testing.T, c *Collector, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			return m
		}
	}
	return nil
}

func TestRecordRequest(t *testing.T) {
	c := NewCollector(testLogger())

	c.RecordRequest("gpt-4o", 200*time.Millisecond, "success")
	c.RecordRequest("gpt-4o", 100*time.Millisecond, "http")
	c.RecordRequest("gpt-4o", 100*time.Millisecond, "http")

	m := findMetric(t, c, "dialprobe_api_requests_total", map[string]string{"deployment": "gpt-4o", "kind": "http"})
	if m == nil || m.GetCounter().GetValue() != 2 {
		t.Fatalf("Expected 2 http outcomes, got %v", m)
	}

	h := findMetric(t, c, "dialprobe_api_request_duration_seconds", map[string]string{"deployment": "gpt-4o", "status": "error"})
	if h == nil || h.GetHistogram().GetSampleCount() != 2 {
		t.Fatalf("Expected 2 error durations, got %v", h)
	}
}

func TestRecordChoicesAndSweepCases(t *testing.T) {
	c := NewCollector(testLogger())

	c.RecordChoices("gemini-2.0-flash", 3)
	c.RecordSweepCase("n", true)
	c.RecordSweepCase("n", false)
	c.RecordSweepCase("n", true)

	h := findMetric(t, c, "dialprobe_choices_returned", map[string]string{"deployment": "gemini-2.0-flash"})
	if h == nil || h.GetHistogram().GetSampleSum() != 3 {
		t.Fatalf("Expected choice sum 3, got %v", h)
	}

	m := findMetric(t, c, "dialprobe_sweep_cases_total", map[string]string{"task": "n", "status": "success"})
	if m == nil || m.GetCounter().GetValue() != 2 {
		t.Fatalf("Expected 2 successful cases, got %v", m)
	}
}

func TestCollectorsAreIsolated(t *testing.T) {
	a := NewCollector(testLogger())
	b := NewCollector(testLogger())

	a.RecordSweepCase("seed", true)

	if m := findMetric(t, b, "dialprobe_sweep_cases_total", nil); m != nil {
		t.Errorf("Expected second collector to be empty, got %v", m)
	}
}

func TestSummary(t *testing.T) {
	c := NewCollector(testLogger())
	if got := c.Summary(); got != "no metrics recorded" {
		t.Errorf("Expected empty summary, got %q", got)
	}

	c.RecordRequest("gpt-4o", time.Second, "success")
	c.RecordSweepCase("temperature", false)

	summary := c.Summary()
	if !strings.Contains(summary, `dialprobe_sweep_cases_total{status="error",task="temperature"} 1`) {
		t.Errorf("Summary missing sweep counter:\n%s", summary)
	}
	if !strings.Contains(summary, `dialprobe_api_request_duration_seconds{deployment="gpt-4o",status="success"} count=1 avg=1.000`) {
		t.Errorf("Summary missing request histogram:\n%s", summary)
	}
}

func TestHandler(t *testing.T) {
	c := NewCollector(testLogger())
	c.RecordRequest("gpt-4o", time.Second, "transport")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `dialprobe_api_requests_total{deployment="gpt-4o",kind="transport"} 1`) {
		t.Errorf("Exposition missing counter:\n%s", rec.Body.String())
	}
}
