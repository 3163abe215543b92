package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/wordembed/v1/observability"
)

func newTestMetrics() *Metrics {
	return NewMetrics(Config{Address: ":0", Namespace: "wordembed", ServiceName: "test"})
}

func TestObserveOperationCountsByStatus(t *testing.T) {
	m := newTestMetrics()

	m.ObserveOperation(observability.OperationContext{Component: "fasttext", Operation: "nn", Duration: time.Millisecond, Size: 10})
	m.ObserveOperation(observability.OperationContext{Component: "fasttext", Operation: "nn", Duration: time.Millisecond})
	m.ObserveOperation(observability.OperationContext{Component: "fasttext", Operation: "load", Error: errors.New("boom")})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("fasttext", "nn", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("fasttext", "load", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.operationDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.operationSize))
}

func TestObserveProgressSetsGauges(t *testing.T) {
	m := newTestMetrics()

	m.ObserveProgress(observability.TrainingProgress{
		Component:               "fasttext",
		Resource:                "corpus.txt",
		Progress:                0.25,
		Tokens:                  1000,
		Loss:                    1.5,
		LearningRate:            0.0375,
		WordsPerSecondPerThread: 5000,
	})

	assert.Equal(t, 0.25, testutil.ToFloat64(m.trainingProgress.WithLabelValues("fasttext", "corpus.txt")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.trainingTokens.WithLabelValues("fasttext", "corpus.txt")))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.trainingLoss.WithLabelValues("fasttext", "corpus.txt")))
	assert.Equal(t, 0.0375, testutil.ToFloat64(m.trainingLearningRate.WithLabelValues("fasttext", "corpus.txt")))
	assert.Equal(t, 5000.0, testutil.ToFloat64(m.trainingThroughput.WithLabelValues("fasttext", "corpus.txt")))
}

func TestRegistryAppliesNamespaceAndServiceLabel(t *testing.T) {
	m := newTestMetrics()
	m.ObserveOperation(observability.OperationContext{Component: "modelstore", Operation: "fetch"})

	expected := `
# HELP wordembed_operations_total Total number of completed operations
# TYPE wordembed_operations_total counter
wordembed_operations_total{component="modelstore",operation="fetch",service="test",status="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "wordembed_operations_total"))
}

func TestCreateCounterRegisters(t *testing.T) {
	m := newTestMetrics()

	c := m.CreateCounter("exports_total", "Exported points", []string{"collection"})
	c.WithLabelValues("words").Add(3)

	n, err := testutil.GatherAndCount(m.Registry, "wordembed_exports_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	g := m.CreateGauge("vocabulary_size", "Loaded vocabulary size", nil)
	g.WithLabelValues().Set(42)
	h := m.CreateHistogram("batch_seconds", "Batch duration", []string{"collection"}, []float64{0.1, 1})
	h.WithLabelValues("words").Observe(0.5)
	assert.Equal(t, 42.0, testutil.ToFloat64(g.WithLabelValues()))
}

func TestServerServesMetrics(t *testing.T) {
	m := newTestMetrics()
	m.ObserveOperation(observability.OperationContext{Component: "fasttext", Operation: "predict"})

	rec := httptest.NewRecorder()
	m.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `wordembed_operations_total{component="fasttext",operation="predict",service="test",status="success"} 1`)
}

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("METRICS_ADDRESS", "")
	t.Setenv("METRICS_ENABLE_DEFAULT_COLLECTORS", "false")

	cfg := NewConfig()
	assert.Equal(t, DefaultMetricsAddress, cfg.Address)
	assert.False(t, cfg.EnableDefaultCollectors)
}
