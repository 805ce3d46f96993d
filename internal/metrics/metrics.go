package metrics

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "dialprobe"

// Collector records gateway and sweep metrics on its own registry.
// It satisfies api.Recorder.
type Collector struct {
	logger   *slog.Logger
	registry *prometheus.Registry

	apiRequestDuration *prometheus.HistogramVec
	apiRequests        *prometheus.CounterVec
	choicesReturned    *prometheus.HistogramVec
	sweepCases         *prometheus.CounterVec
}

// NewCollector creates a collector with a fresh registry
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Collector{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		apiRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Gateway request duration in seconds by deployment",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~100s
			},
			[]string{"deployment", "status"},
		),
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total gateway requests by deployment and outcome kind",
			},
			[]string{"deployment", "kind"}, // kind: "success" or an error kind
		),
		choicesReturned: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "choices_returned",
				Help:      "Number of choices returned per successful completion",
				Buckets:   []float64{1, 2, 3, 5, 8},
			},
			[]string{"deployment"},
		),
		sweepCases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweep_cases_total",
				Help:      "Sweep cases executed by task and status",
			},
			[]string{"task", "status"}, // status: "success"/"error"
		),
	}

	c.registry.MustRegister(c.apiRequestDuration, c.apiRequests, c.choicesReturned, c.sweepCases)
	return c
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordRequest records one gateway round trip. outcome is "success" or an error kind.
func (c *Collector) RecordRequest(deployment string, duration time.Duration, outcome string) {
	status := "success"
	if outcome != "success" {
		status = "error"
	}
	c.apiRequestDuration.WithLabelValues(deployment, status).Observe(duration.Seconds())
	c.apiRequests.WithLabelValues(deployment, outcome).Inc()
}

// RecordChoices records how many choices a completion returned
func (c *Collector) RecordChoices(deployment string, count int) {
	c.choicesReturned.WithLabelValues(deployment).Observe(float64(count))
}

// RecordSweepCase increments the sweep case counter
func (c *Collector) RecordSweepCase(task string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	c.sweepCases.WithLabelValues(task, status).Inc()
}

// Summary returns a human-readable rendering of every non-empty series
func (c *Collector) Summary() string {
	families, err := c.registry.Gather()
	if err != nil {
		c.logger.Warn("Failed to gather metrics", "error", err)
		return "metrics unavailable"
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := formatLabels(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				lines = append(lines, fmt.Sprintf("%s%s %g", mf.GetName(), labels, m.GetCounter().GetValue()))
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				if h.GetSampleCount() == 0 {
					continue
				}
				avg := h.GetSampleSum() / float64(h.GetSampleCount())
				lines = append(lines, fmt.Sprintf("%s%s count=%d avg=%.3f", mf.GetName(), labels, h.GetSampleCount(), avg))
			}
		}
	}

	if len(lines) == 0 {
		return "no metrics recorded"
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, lp := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
