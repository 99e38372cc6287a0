package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricsPrefix = "mvcheck_"

type (
	PassOutcome string
	NodeOutcome string
)

const (
	PassConverged PassOutcome = "converged"
	PassDiverged  PassOutcome = "diverged"
	PassAborted   PassOutcome = "aborted"

	NodeMatch    NodeOutcome = "match"
	NodeMismatch NodeOutcome = "mismatch"
	NodeError    NodeOutcome = "error"
)

type Metrics struct {
	rowsIssued    prometheus.Counter
	rowsWritten   prometheus.Counter
	writeFailures prometheus.Counter
	writeRetries  prometheus.Counter
	passes        *prometheus.CounterVec
	nodeResults   *prometheus.CounterVec
	baseRows      prometheus.Gauge
	viewRows      *prometheus.GaugeVec
}

// NewMetrics registers the checker's metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		rowsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: MetricsPrefix + "rows_issued_total",
			Help: "Number of inserts dispatched to the base table",
		}),
		rowsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: MetricsPrefix + "rows_written_total",
			Help: "Number of inserts acknowledged by the cluster",
		}),
		writeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: MetricsPrefix + "write_failures_total",
			Help: "Number of inserts that failed after exhausting retries",
		}),
		writeRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: MetricsPrefix + "write_retries_total",
			Help: "Number of insert attempts that were retried",
		}),
		passes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricsPrefix + "passes_total",
			Help: "Number of verification passes grouped by outcome",
		}, []string{"outcome"}),
		nodeResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricsPrefix + "node_results_total",
			Help: "Number of per node view comparisons grouped by node and result",
		}, []string{"node", "result"}),
		baseRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: MetricsPrefix + "base_rows",
			Help: "Rows in the base table as of the last pass",
		}),
		viewRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricsPrefix + "view_rows",
			Help: "Rows in each node's view replica as of the last pass",
		}, []string{"node"}),
	}
}

// NewNoopMetrics returns metrics registered with a private registry, for tests and one-off commands.
func NewNoopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func (m *Metrics) RecordIssued() {
	m.rowsIssued.Inc()
}

func (m *Metrics) RecordWritten() {
	m.rowsWritten.Inc()
}

func (m *Metrics) RecordWriteFailure() {
	m.writeFailures.Inc()
}

func (m *Metrics) RecordWriteRetry() {
	m.writeRetries.Inc()
}

func (m *Metrics) RecordPass(outcome PassOutcome) {
	m.passes.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) RecordBaseRows(n int) {
	m.baseRows.Set(float64(n))
}

func (m *Metrics) RecordNodeResult(node int, outcome NodeOutcome, viewRows int) {
	label := strconv.Itoa(node)
	m.nodeResults.WithLabelValues(label, string(outcome)).Inc()
	if outcome != NodeError {
		m.viewRows.WithLabelValues(label).Set(float64(viewRows))
	}
}
