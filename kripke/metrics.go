package kripke

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds the Prometheus instruments of the checker.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg prometheus.Gatherer

	ChecksTotal    *prometheus.CounterVec
	CheckSeconds   *prometheus.HistogramVec
	ModelVariables *prometheus.GaugeVec
}

// NewMetrics registers the checker instruments on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		ChecksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kripke_bmc",
			Name:      "checks_total",
			Help:      "Property checks by property and verdict",
		}, []string{"property", "verdict"}),
		CheckSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kripke_bmc",
			Name:      "check_seconds",
			Help:      "Wall time of one scoped property check",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"property"}),
		ModelVariables: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kripke_bmc",
			Name:      "model_variables",
			Help:      "Declared variables of the last built model by family",
		}, []string{"family"}),
	}
}

// RecordCheck counts one finished check.
func (m *Metrics) RecordCheck(property string, v Verdict, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ChecksTotal.WithLabelValues(property, v.String()).Inc()
	m.CheckSeconds.WithLabelValues(property).Observe(elapsed.Seconds())
}

// RecordModel publishes the variable family sizes of a freshly built model.
func (m *Metrics) RecordModel(c Counts) {
	if m == nil {
		return
	}
	m.ModelVariables.WithLabelValues("init").Set(float64(c.Init))
	m.ModelVariables.WithLabelValues("alive").Set(float64(c.Alive))
	m.ModelVariables.WithLabelValues("deliver").Set(float64(c.Deliver))
	m.ModelVariables.WithLabelValues("flag").Set(float64(c.Flag))
	m.ModelVariables.WithLabelValues("decide").Set(float64(c.Decide))
}

// GenerateMetricsTable renders the current value of every checker series as
// a markdown table. Histograms are shown as sample count and sum.
func (m *Metrics) GenerateMetricsTable() (string, error) {
	var sb strings.Builder
	sb.WriteString("| Metric | Labels | Value |\n")
	sb.WriteString("|--------|--------|-------|\n")
	if m == nil {
		return sb.String(), nil
	}

	families, err := m.reg.Gather()
	if err != nil {
		return "", err
	}
	var rows []string
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "kripke_bmc_") {
			continue
		}
		for _, s := range mf.GetMetric() {
			rows = append(rows, fmt.Sprintf("| %s | %s | %s |\n", mf.GetName(), labelString(s), sampleString(mf.GetType(), s)))
		}
	}
	sort.Strings(rows)
	for _, r := range rows {
		sb.WriteString(r)
	}
	return sb.String(), nil
}

func labelString(s *dto.Metric) string {
	parts := make([]string, 0, len(s.GetLabel()))
	for _, l := range s.GetLabel() {
		parts = append(parts, fmt.Sprintf("%s=%s", l.GetName(), l.GetValue()))
	}
	return strings.Join(parts, ", ")
}

func sampleString(t dto.MetricType, s *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%.0f", s.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%.0f", s.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := s.GetHistogram()
		return fmt.Sprintf("%d samples, %.4fs", h.GetSampleCount(), h.GetSampleSum())
	default:
		return "-"
	}
}
