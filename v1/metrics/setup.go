package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics encapsulates the Prometheus registry and HTTP server responsible
// for exposing application metrics.
//
// It implements observability.Observer and observability.ProgressObserver,
// so it can be attached directly to the embedding engine and the storage
// clients.
type Metrics struct {
	// Server defines the HTTP server used to expose the /metrics endpoint.
	Server *http.Server

	// Registry is the Prometheus registry where all metrics are registered.
	// Each service maintains its own isolated registry to prevent metric name collisions.
	Registry *prometheus.Registry

	namespace  string
	registerer prometheus.Registerer

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationSize     *prometheus.HistogramVec

	trainingProgress     *prometheus.GaugeVec
	trainingTokens       *prometheus.GaugeVec
	trainingLoss         *prometheus.GaugeVec
	trainingLearningRate *prometheus.GaugeVec
	trainingThroughput   *prometheus.GaugeVec
}

// NewMetrics initializes and returns a new instance of the Metrics struct.
// It sets up a dedicated Prometheus registry, registers the operation and
// training collectors, optionally registers the Go runtime collectors, wraps
// all metrics with a constant `service` label, and creates an HTTP server
// exposing the /metrics endpoint.
//
// Example:
//
//	m := metrics.NewMetrics(metrics.Config{
//	    Address:                 ":9090",
//	    Namespace:               "wordembed",
//	    ServiceName:             "embedder",
//	    EnableDefaultCollectors: true,
//	})
//	engine.WithObserver(m)
//
// Access metrics at: http://localhost:9090/metrics
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	// All metrics emitted by this service carry service="<cfg.ServiceName>".
	wrappedRegistry := prometheus.WrapRegistererWith(
		prometheus.Labels{"service": cfg.ServiceName},
		registry,
	)

	m := &Metrics{
		Registry:   registry,
		namespace:  cfg.Namespace,
		registerer: wrappedRegistry,
	}

	m.operationsTotal = m.createCounterVec("operations_total", "Total number of completed operations", []string{"component", "operation", "status"})
	m.operationDuration = m.createHistogramVec("operation_duration_seconds", "Duration of operations in seconds", []string{"component", "operation"}, prometheus.DefBuckets)
	m.operationSize = m.createHistogramVec("operation_result_size", "Operation specific result size (results, bytes, tokens)", []string{"component", "operation"}, prometheus.ExponentialBuckets(1, 4, 12))

	trainingLabels := []string{"component", "resource"}
	m.trainingProgress = m.createGaugeVec("training_progress_ratio", "Fraction of the training token budget processed", trainingLabels)
	m.trainingTokens = m.createGaugeVec("training_tokens", "Tokens processed by the current training run", trainingLabels)
	m.trainingLoss = m.createGaugeVec("training_loss", "Running average training loss", trainingLabels)
	m.trainingLearningRate = m.createGaugeVec("training_learning_rate", "Current learning rate of the training run", trainingLabels)
	m.trainingThroughput = m.createGaugeVec("training_words_per_second_per_thread", "Training throughput per worker", trainingLabels)

	wrappedRegistry.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.operationSize,
		m.trainingProgress,
		m.trainingTokens,
		m.trainingLoss,
		m.trainingLearningRate,
		m.trainingThroughput,
	)

	// Go runtime, process and build info collectors.
	if cfg.EnableDefaultCollectors {
		wrappedRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	m.Server = &http.Server{
		Addr:    cfg.Address,
		Handler: mux,
	}
	return m
}
