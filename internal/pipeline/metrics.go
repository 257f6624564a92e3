package pipeline

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gigsync/internal/sheets"
)

const namespace = "gigsync"

// Metrics holds the pipeline's prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	candidates    *prometheus.CounterVec
	attempts      *prometheus.CounterVec
	rows          *prometheus.CounterVec
	runs          *prometheus.CounterVec
	ledgerRecords prometheus.Gauge
	lastSuccessTS prometheus.Gauge
	runDuration   prometheus.Summary
}

// NewMetrics creates and registers the pipeline collectors.
func NewMetrics() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}

	m.candidates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "candidates_total",
		Help:      "Candidates seen per stage (discovered, new, processed, failed)",
	}, []string{"stage"})
	m.attempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_attempts_total",
		Help:      "Language model requests by outcome",
	}, []string{"outcome"})
	m.rows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sheet_rows_total",
		Help:      "Reconciled records by classification (added, updated, unchanged)",
	}, []string{"result"})
	m.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Pipeline runs by result",
	}, []string{"result"})
	m.ledgerRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ledger_records",
		Help:      "Records in the ledger after the last saved run",
	})
	m.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful run",
	})
	m.runDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Time spent per pipeline run",
	})

	m.Registry.MustRegister(
		m.candidates,
		m.attempts,
		m.rows,
		m.runs,
		m.ledgerRecords,
		m.lastSuccessTS,
		m.runDuration,
	)

	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) observeAttempt(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}

	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeSheet(res *sheets.Result) {
	if res == nil {
		return
	}

	m.rows.WithLabelValues("added").Add(float64(res.Added))
	m.rows.WithLabelValues("updated").Add(float64(res.Updated))
	m.rows.WithLabelValues("unchanged").Add(float64(res.Unchanged))
}

func (m *Metrics) observeRun(report *Report, err error, finished time.Time) {
	m.runDuration.Observe(report.Duration.Seconds())

	m.candidates.WithLabelValues("discovered").Add(float64(report.Discovered))
	m.candidates.WithLabelValues("new").Add(float64(report.New))
	m.candidates.WithLabelValues("processed").Add(float64(report.Processed))
	m.candidates.WithLabelValues("failed").Add(float64(report.Failed))

	if err != nil {
		m.runs.WithLabelValues("failure").Inc()

		return
	}

	m.runs.WithLabelValues("success").Inc()
	m.ledgerRecords.Set(float64(report.Records))
	m.lastSuccessTS.Set(float64(finished.Unix()))
}
