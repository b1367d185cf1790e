package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/insightdelivered/statement-ventilation/internal/models"
	"github.com/insightdelivered/statement-ventilation/internal/parser"
	"github.com/insightdelivered/statement-ventilation/internal/ventilation"
)

const namespace = "releve"

// Metrics holds the collectors for parsing and ventilation.
type Metrics struct {
	StatementsParsed   *prometheus.CounterVec
	ParseFailures      *prometheus.CounterVec
	Transactions       *prometheus.CounterVec
	ParseDuration      *prometheus.HistogramVec
	VentilationRuns    *prometheus.CounterVec
	UnassignedSpending prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StatementsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_parsed_total",
			Help:      "Statements parsed and reconciled successfully.",
		}, []string{"template"}),
		ParseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Statements rejected by the parser, by error kind.",
		}, []string{"template", "kind"}),
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_parsed_total",
			Help:      "Transactions read from reconciled statements.",
		}, []string{"polarity"}),
		ParseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time spent parsing one statement.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"template"}),
		VentilationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ventilation_runs_total",
			Help:      "Ventilation runs by outcome.",
		}, []string{"outcome"}),
		UnassignedSpending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unassigned_spending",
			Help:      "Unassigned spending of the last successful ventilation run, in currency units.",
		}),
	}
	reg.MustRegister(
		m.StatementsParsed,
		m.ParseFailures,
		m.Transactions,
		m.ParseDuration,
		m.VentilationRuns,
		m.UnassignedSpending,
	)
	return m
}

// ObserveParse implements parser.Observer.
func (m *Metrics) ObserveParse(template string, st *models.Statement, err error, elapsed time.Duration) {
	m.ParseDuration.WithLabelValues(template).Observe(elapsed.Seconds())
	if err != nil {
		kind := "other"
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			kind = string(pe.Kind)
		}
		m.ParseFailures.WithLabelValues(template, kind).Inc()
		return
	}
	m.StatementsParsed.WithLabelValues(template).Inc()
	for _, t := range st.Transactions {
		m.Transactions.WithLabelValues(t.Polarity.String()).Inc()
	}
}

// ObserveVentilation records the outcome of one run.
func (m *Metrics) ObserveVentilation(res *models.VentilationResult, err error) {
	var amb *ventilation.AmbiguousError
	var sum *ventilation.SumMismatchError
	switch {
	case err == nil:
		m.VentilationRuns.WithLabelValues("ok").Inc()
		m.UnassignedSpending.Set(res.Unassigned.Float64())
	case errors.As(err, &amb):
		m.VentilationRuns.WithLabelValues("ambiguous").Inc()
	case errors.As(err, &sum):
		m.VentilationRuns.WithLabelValues("sum_mismatch").Inc()
	default:
		m.VentilationRuns.WithLabelValues("error").Inc()
	}
}
