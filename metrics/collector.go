package metrics

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/achilleasa/ploc/bvh"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Collector records clustering progress as prometheus metrics.
type Collector struct {
	// rounds counts clustering rounds by phase.
	rounds *prometheus.CounterVec

	// merges counts merged node pairs by phase.
	merges *prometheus.CounterVec

	// active tracks the active window size after each round.
	active *prometheus.HistogramVec

	// buildDuration tracks build call durations by build mode.
	buildDuration *prometheus.HistogramVec
}

// Create a collector and register its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		rounds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ploc_rounds_total",
			Help: "Total clustering rounds by phase",
		}, []string{"phase"}),
		merges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ploc_merges_total",
			Help: "Total merged node pairs by phase",
		}, []string{"phase"}),
		active: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ploc_active_nodes",
			Help:    "Active nodes left after a clustering round",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		}, []string{"phase"}),
		buildDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ploc_build_duration_seconds",
			Help:    "Tree build duration by build mode",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"mode"}),
	}
}

// Observe records a clustering round. It can be used as a bvh.Builder
// round observer.
func (c *Collector) Observe(stats bvh.RoundStats) {
	phase := stats.Phase.String()
	c.rounds.WithLabelValues(phase).Inc()
	c.merges.WithLabelValues(phase).Add(float64(stats.Merged))
	c.active.WithLabelValues(phase).Observe(float64(stats.Active()))
}

// ObserveBuild records the duration of a build call.
func (c *Collector) ObserveBuild(mode string, elapsed time.Duration) {
	c.buildDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// WriteTable renders every metric gathered from g as a table.
func WriteTable(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Metric", "Labels", "Value"})
	for _, family := range families {
		for _, m := range family.GetMetric() {
			table.Append([]string{family.GetName(), fmtLabels(m.GetLabel()), fmtValue(family.GetType(), m)})
		}
	}
	table.Render()

	_, err = buf.WriteTo(w)
	return err
}

func fmtLabels(pairs []*dto.LabelPair) string {
	labels := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		labels = append(labels, fmt.Sprintf("%s=%s", pair.GetName(), pair.GetValue()))
	}
	sort.Strings(labels)
	return strings.Join(labels, ",")
}

func fmtValue(kind dto.MetricType, m *dto.Metric) string {
	switch kind {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", m.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", m.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		if h.GetSampleCount() == 0 {
			return "count=0"
		}
		return fmt.Sprintf("count=%d mean=%g", h.GetSampleCount(), h.GetSampleSum()/float64(h.GetSampleCount()))
	}
	return "-"
}
