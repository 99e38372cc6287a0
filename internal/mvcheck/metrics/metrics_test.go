package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordIssued()
	m.RecordIssued()
	m.RecordWritten()
	m.RecordWriteFailure()
	m.RecordWriteRetry()
	m.RecordPass(PassDiverged)
	m.RecordBaseRows(10)
	m.RecordNodeResult(0, NodeMatch, 10)
	m.RecordNodeResult(1, NodeMismatch, 9)
	m.RecordNodeResult(1, NodeError, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rowsIssued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rowsWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writeFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writeRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passes.WithLabelValues("diverged")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.baseRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.nodeResults.WithLabelValues("1", "error")))
	// Errors leave the last known row count alone.
	assert.Equal(t, 9.0, testutil.ToFloat64(m.viewRows.WithLabelValues("1")))
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNoopMetrics()
		NewNoopMetrics()
	})
}
