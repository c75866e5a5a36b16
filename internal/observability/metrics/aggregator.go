package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type AggregatorMetrics struct {
	service  string
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	pairsCompared  *prometheus.CounterVec
	pairsEmitted   *prometheus.CounterVec
	malformedTotal *prometheus.CounterVec
	faultedGroups  *prometheus.CounterVec
	groupDocuments *prometheus.HistogramVec
}

func NewAggregatorMetrics(service string) *AggregatorMetrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsim",
			Subsystem: "aggregator",
			Name:      "runs_total",
			Help:      "Total similarity runs by final status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsim",
			Subsystem: "aggregator",
			Name:      "run_duration_seconds",
			Help:      "Similarity run duration in seconds by final status.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		},
		[]string{"service", "status"},
	)
	pairsCompared := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsim",
			Subsystem: "aggregator",
			Name:      "pairs_compared_total",
			Help:      "Total document pairs compared.",
		},
		[]string{"service"},
	)
	pairsEmitted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsim",
			Subsystem: "aggregator",
			Name:      "pairs_emitted_total",
			Help:      "Total document pairs scoring above the run threshold.",
		},
		[]string{"service"},
	)
	malformedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsim",
			Subsystem: "aggregator",
			Name:      "malformed_records_total",
			Help:      "Total skipped records that could not be decoded.",
		},
		[]string{"service"},
	)
	faultedGroups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsim",
			Subsystem: "aggregator",
			Name:      "faulted_groups_total",
			Help:      "Total aggregation groups dropped by a fault.",
		},
		[]string{"service"},
	)
	groupDocuments := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsim",
			Subsystem: "aggregator",
			Name:      "group_documents",
			Help:      "Distribution of documents per aggregated group.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"service"},
	)

	registry.MustRegister(runsTotal, runDuration, pairsCompared, pairsEmitted, malformedTotal, faultedGroups, groupDocuments)

	return &AggregatorMetrics{
		service:        service,
		registry:       registry,
		runsTotal:      runsTotal,
		runDuration:    runDuration,
		pairsCompared:  pairsCompared,
		pairsEmitted:   pairsEmitted,
		malformedTotal: malformedTotal,
		faultedGroups:  faultedGroups,
		groupDocuments: groupDocuments,
	}
}

func (m *AggregatorMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *AggregatorMetrics) FinishRun(status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.runsTotal.WithLabelValues(m.service, status).Inc()
	m.runDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *AggregatorMetrics) ObserveMalformedRecord() {
	m.malformedTotal.WithLabelValues(m.service).Inc()
}

func (m *AggregatorMetrics) ObserveGroup(documents int, compared int64, emitted int) {
	m.groupDocuments.WithLabelValues(m.service).Observe(float64(documents))
	m.pairsCompared.WithLabelValues(m.service).Add(float64(compared))
	m.pairsEmitted.WithLabelValues(m.service).Add(float64(emitted))
}

func (m *AggregatorMetrics) ObserveFaultedGroup() {
	m.faultedGroups.WithLabelValues(m.service).Inc()
}
